package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxFramePayload is the maximum frame payload size. Scene snapshots
	// dominate frame sizes; anything larger than this is hostile input.
	MaxFramePayload = 256 * 1024 * 1024
)

// FrameFlags are reserved per-frame processing flags. No flag is currently
// assigned; peers must send zero.
type FrameFlags uint8

// Has returns true if the flags contain flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// ErrFrameTooLarge reports a frame whose declared payload exceeds
// MaxFramePayload.
var ErrFrameTooLarge = errors.New("protocol: frame payload too large")

// Frame carries one encoded message: the kind discriminant, flags, and the
// envelope+payload bytes. Messages are concatenated back-to-back on one
// stream; the declared length is the only outer framing.
//
// Wire format (6-byte header + payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Kind        │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
type Frame struct {
	Kind    Kind
	Flags   FrameFlags
	Payload []byte
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Kind)
	buf[1] = byte(f.Flags)
	buf[2] = byte(length >> 24)
	buf[3] = byte(length >> 16)
	buf[4] = byte(length >> 8)
	buf[5] = byte(length)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// DecodeFrame decodes a frame from a complete buffer.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}

	length := int(data[2])<<24 | int(data[3])<<16 | int(data[4])<<8 | int(data[5])
	if length > MaxFramePayload {
		return nil, ErrFrameTooLarge
	}
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:FrameHeaderSize+length])

	return &Frame{
		Kind:    Kind(data[0]),
		Flags:   FrameFlags(data[1]),
		Payload: payload,
	}, nil
}

// ReadFrame reads a complete frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	length := int(header[2])<<24 | int(header[3])<<16 | int(header[4])<<8 | int(header[5])
	if length > MaxFramePayload {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}

	return &Frame{
		Kind:    Kind(header[0]),
		Flags:   FrameFlags(header[1]),
		Payload: payload,
	}, nil
}

// WriteFrame writes a complete frame to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxFramePayload {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
