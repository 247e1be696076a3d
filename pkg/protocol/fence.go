package protocol

// FenceType delimits one atomic scene update.
type FenceType uint8

const (
	FenceUnknown    FenceType = 0x00
	FenceSceneBegin FenceType = 0x01
	FenceSceneEnd   FenceType = 0x02
)

// String returns the string representation of the fence type.
func (ft FenceType) String() string {
	switch ft {
	case FenceSceneBegin:
		return "SceneBegin"
	case FenceSceneEnd:
		return "SceneEnd"
	default:
		return "Unknown"
	}
}

// FenceMessage brackets a burst of Set/Delete messages into one
// atomically-meaningful scene update: SceneBegin, mutations, SceneEnd.
// The protocol guarantees ordering; staging and atomic application are the
// receiver's job.
type FenceMessage struct {
	header Header

	Type FenceType
}

// NewFenceMessage creates a Fence of the given type.
func NewFenceMessage(ft FenceType) *FenceMessage {
	return &FenceMessage{
		header: newHeader(),
		Type:   ft,
	}
}

func (m *FenceMessage) Kind() Kind      { return KindFence }
func (m *FenceMessage) Header() *Header { return &m.header }

func (m *FenceMessage) EncodedSize() int {
	return HeaderSize + 1
}

func (m *FenceMessage) encodePayload(e *Encoder) {
	e.WriteByte(byte(m.Type))
}

func (m *FenceMessage) decodePayload(d *Decoder) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	switch FenceType(b) {
	case FenceSceneBegin, FenceSceneEnd:
		m.Type = FenceType(b)
		return nil
	default:
		return &InvalidEnumError{Field: "fence type", Value: b}
	}
}
