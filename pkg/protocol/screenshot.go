package protocol

// ScreenshotMessage requests a capture from the peer. It has no payload; the
// captured image is delivered out of band and completion is signaled via the
// embedded request indicator.
type ScreenshotMessage struct {
	header Header

	*completion
}

// NewScreenshotMessage creates a Screenshot request.
func NewScreenshotMessage() *ScreenshotMessage {
	return &ScreenshotMessage{
		header:     newHeader(),
		completion: newCompletion(),
	}
}

func (m *ScreenshotMessage) Kind() Kind      { return KindScreenshot }
func (m *ScreenshotMessage) Header() *Header { return &m.header }

func (m *ScreenshotMessage) EncodedSize() int {
	return HeaderSize
}

func (m *ScreenshotMessage) encodePayload(e *Encoder) {}

func (m *ScreenshotMessage) decodePayload(d *Decoder) error {
	return nil
}
