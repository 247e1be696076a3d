package protocol

import (
	"io"
	"time"
)

// Version is the compiled protocol version. A received envelope carrying any
// other value is rejected before its payload is interpreted.
const Version int32 = 3

// InvalidSessionID is the sentinel for a message not yet bound to a session.
const InvalidSessionID int32 = -1

// Kind is the discriminant identifying which variant of the message sum type
// a frame encodes. The set is closed: out-of-range values are a decode error.
type Kind uint8

const (
	KindUnknown    Kind = 0x00 // Default construction only, never transmitted
	KindGet        Kind = 0x01 // Scene fetch request
	KindSet        Kind = 0x02 // Full scene snapshot
	KindDelete     Kind = 0x03 // Identifier removals
	KindFence      Kind = 0x04 // Transaction delimiter
	KindText       Kind = 0x05 // Diagnostic text
	KindScreenshot Kind = 0x06 // Capture request
	KindQuery      Kind = 0x07 // Metadata question
	KindResponse   Kind = 0x08 // Answer to a Query
	KindPoll       Kind = 0x09 // Change subscription
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindGet:
		return "Get"
	case KindSet:
		return "Set"
	case KindDelete:
		return "Delete"
	case KindFence:
		return "Fence"
	case KindText:
		return "Text"
	case KindScreenshot:
		return "Screenshot"
	case KindQuery:
		return "Query"
	case KindResponse:
		return "Response"
	case KindPoll:
		return "Poll"
	default:
		return "Unknown"
	}
}

// HeaderSize is the encoded size of the envelope in bytes.
const HeaderSize = 4 + 4 + 4 + 8

// Header is the envelope embedded in every message: protocol version, session
// identifier, message identifier, and send timestamp (Unix milliseconds).
type Header struct {
	ProtocolVersion int32
	SessionID       int32
	MessageID       int32
	SentAt          int64
}

func (h *Header) encodeTo(e *Encoder) {
	e.WriteInt32(h.ProtocolVersion)
	e.WriteInt32(h.SessionID)
	e.WriteInt32(h.MessageID)
	e.WriteInt64(h.SentAt)
}

// decodeFrom reads the envelope. The version gate runs immediately after the
// version field: on mismatch the remaining header and payload stay unread.
func (h *Header) decodeFrom(d *Decoder) error {
	v, err := d.ReadInt32()
	if err != nil {
		return err
	}
	h.ProtocolVersion = v
	if v != Version {
		return &VersionMismatchError{Got: v, Want: Version}
	}
	if h.SessionID, err = d.ReadInt32(); err != nil {
		return err
	}
	if h.MessageID, err = d.ReadInt32(); err != nil {
		return err
	}
	if h.SentAt, err = d.ReadInt64(); err != nil {
		return err
	}
	return nil
}

// Stamp sets the send timestamp to the current wall clock.
func (h *Header) Stamp() {
	h.SentAt = time.Now().UnixMilli()
}

// Message is one variant of the closed message set. A message is immutable
// once encoded or decoded; the only later mutation is a request kind's
// completion transition (see Request).
type Message interface {
	// Kind returns the variant discriminant.
	Kind() Kind

	// Header returns the envelope. Callers fill it in before sending.
	Header() *Header

	// EncodedSize returns the exact number of bytes EncodeMessage writes,
	// envelope included. Size and serialization never disagree.
	EncodedSize() int

	encodePayload(e *Encoder)
	decodePayload(d *Decoder) error
}

// Request is the subset of kinds (Get, Screenshot, Query, Poll) representing
// a request whose answer is produced on another goroutine.
type Request interface {
	Message

	// Complete flips the completion indicator to ready. Set-once; the
	// resolver calls it last, after writing any result.
	Complete()

	// Completed reports whether the indicator is ready.
	Completed() bool

	// Done returns a channel closed when the indicator becomes ready.
	Done() <-chan struct{}
}

// New constructs the empty variant for a kind. Request kinds come back with a
// live completion indicator. KindUnknown and out-of-range kinds fail with
// *UnknownKindError.
func New(k Kind) (Message, error) {
	switch k {
	case KindGet:
		return NewGetMessage(), nil
	case KindSet:
		return &SetMessage{header: newHeader()}, nil
	case KindDelete:
		return &DeleteMessage{header: newHeader()}, nil
	case KindFence:
		return &FenceMessage{header: newHeader()}, nil
	case KindText:
		return &TextMessage{header: newHeader()}, nil
	case KindScreenshot:
		return NewScreenshotMessage(), nil
	case KindQuery:
		return NewQueryMessage(QueryUnknown), nil
	case KindResponse:
		return &ResponseMessage{header: newHeader()}, nil
	case KindPoll:
		return NewPollMessage(PollUnknown), nil
	default:
		return nil, &UnknownKindError{Kind: k}
	}
}

func newHeader() Header {
	return Header{
		ProtocolVersion: Version,
		SessionID:       InvalidSessionID,
	}
}

// EncodeMessage encodes the envelope and payload of m. The kind discriminant
// travels in the frame header, not here.
func EncodeMessage(m Message) []byte {
	e := NewEncoderWithCap(m.EncodedSize())
	m.Header().encodeTo(e)
	m.encodePayload(e)
	return e.Bytes()
}

// DecodeMessage constructs the variant for kind k and decodes envelope and
// payload from data. On version mismatch the payload is untouched and the
// decoder stops right after the version field.
func DecodeMessage(k Kind, data []byte) (Message, error) {
	m, err := New(k)
	if err != nil {
		return nil, err
	}
	d := NewDecoder(data)
	if err := m.Header().decodeFrom(d); err != nil {
		return nil, err
	}
	if err := m.decodePayload(d); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteMessage frames and writes m to w: discriminant, then envelope, then
// payload.
func WriteMessage(w io.Writer, m Message) error {
	f := &Frame{Kind: m.Kind(), Payload: EncodeMessage(m)}
	return WriteFrame(w, f)
}

// ReadMessage reads one framed message from r.
func ReadMessage(r io.Reader) (Message, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeMessage(f.Kind, f.Payload)
}

var (
	_ Request = (*GetMessage)(nil)
	_ Request = (*ScreenshotMessage)(nil)
	_ Request = (*QueryMessage)(nil)
	_ Request = (*PollMessage)(nil)

	_ Message = (*SetMessage)(nil)
	_ Message = (*DeleteMessage)(nil)
	_ Message = (*FenceMessage)(nil)
	_ Message = (*TextMessage)(nil)
	_ Message = (*ResponseMessage)(nil)
)
