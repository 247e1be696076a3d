package protocol

// TextSeverity classifies a diagnostic message.
type TextSeverity uint8

const (
	TextNormal  TextSeverity = 0x00
	TextWarning TextSeverity = 0x01
	TextError   TextSeverity = 0x02
)

// String returns the string representation of the severity.
func (ts TextSeverity) String() string {
	switch ts {
	case TextWarning:
		return "Warning"
	case TextError:
		return "Error"
	default:
		return "Normal"
	}
}

// TextMessage is a one-way diagnostic: free text plus a severity.
type TextMessage struct {
	header Header

	Text     string
	Severity TextSeverity
}

// NewTextMessage creates a Text diagnostic.
func NewTextMessage(text string, severity TextSeverity) *TextMessage {
	return &TextMessage{
		header:   newHeader(),
		Text:     text,
		Severity: severity,
	}
}

func (m *TextMessage) Kind() Kind      { return KindText }
func (m *TextMessage) Header() *Header { return &m.header }

func (m *TextMessage) EncodedSize() int {
	return HeaderSize + StringLen(m.Text) + 1
}

func (m *TextMessage) encodePayload(e *Encoder) {
	e.WriteString(m.Text)
	e.WriteByte(byte(m.Severity))
}

func (m *TextMessage) decodePayload(d *Decoder) error {
	text, err := d.ReadString()
	if err != nil {
		return err
	}
	m.Text = text
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	switch TextSeverity(b) {
	case TextNormal, TextWarning, TextError:
		m.Severity = TextSeverity(b)
		return nil
	default:
		return &InvalidEnumError{Field: "text severity", Value: b}
	}
}
