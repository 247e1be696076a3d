package protocol

// PollType identifies what a Poll subscribes to.
type PollType uint8

const (
	PollUnknown     PollType = 0x00
	PollSceneUpdate PollType = 0x01
)

// String returns the string representation of the poll type.
func (pt PollType) String() string {
	switch pt {
	case PollSceneUpdate:
		return "SceneUpdate"
	default:
		return "Unknown"
	}
}

// PollMessage is a long-lived subscription: the resolver completes it when
// the subscribed condition next occurs.
type PollMessage struct {
	header Header

	Type PollType

	*completion
}

// NewPollMessage creates a Poll of the given type.
func NewPollMessage(pt PollType) *PollMessage {
	return &PollMessage{
		header:     newHeader(),
		Type:       pt,
		completion: newCompletion(),
	}
}

func (m *PollMessage) Kind() Kind      { return KindPoll }
func (m *PollMessage) Header() *Header { return &m.header }

func (m *PollMessage) EncodedSize() int {
	return HeaderSize + 1
}

func (m *PollMessage) encodePayload(e *Encoder) {
	e.WriteByte(byte(m.Type))
}

func (m *PollMessage) decodePayload(d *Decoder) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	switch PollType(b) {
	case PollSceneUpdate:
		m.Type = PollType(b)
		return nil
	default:
		return &InvalidEnumError{Field: "poll type", Value: b}
	}
}
