package protocol

// QueryType identifies what a Query asks for.
type QueryType uint8

const (
	QueryUnknown    QueryType = 0x00
	QueryClientName QueryType = 0x01
	QueryRootNodes  QueryType = 0x02
	QueryAllNodes   QueryType = 0x03
)

// String returns the string representation of the query type.
func (qt QueryType) String() string {
	switch qt {
	case QueryClientName:
		return "ClientName"
	case QueryRootNodes:
		return "RootNodes"
	case QueryAllNodes:
		return "AllNodes"
	default:
		return "Unknown"
	}
}

// QueryMessage asks the peer a metadata question. The answer is a Response;
// locally the Query owns an optional Response slot, set exactly once by the
// resolver before completion and read-only thereafter.
type QueryMessage struct {
	header Header

	Type QueryType

	// response is filled by Resolve before the completion flips. Not on
	// the wire.
	response *ResponseMessage

	*completion
}

// NewQueryMessage creates a Query of the given type.
func NewQueryMessage(qt QueryType) *QueryMessage {
	return &QueryMessage{
		header:     newHeader(),
		Type:       qt,
		completion: newCompletion(),
	}
}

func (m *QueryMessage) Kind() Kind      { return KindQuery }
func (m *QueryMessage) Header() *Header { return &m.header }

func (m *QueryMessage) EncodedSize() int {
	return HeaderSize + 1
}

func (m *QueryMessage) encodePayload(e *Encoder) {
	e.WriteByte(byte(m.Type))
}

func (m *QueryMessage) decodePayload(d *Decoder) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	switch QueryType(b) {
	case QueryClientName, QueryRootNodes, QueryAllNodes:
		m.Type = QueryType(b)
		return nil
	default:
		return &InvalidEnumError{Field: "query type", Value: b}
	}
}

// Resolve attaches the answer and completes the request, in that order: a
// waiter that observes ready also observes resp.
func (m *QueryMessage) Resolve(resp *ResponseMessage) {
	m.response = resp
	m.Complete()
}

// Response returns the attached answer. Valid only after the completion
// indicator has been observed ready; nil before then.
func (m *QueryMessage) Response() *ResponseMessage {
	if !m.Completed() {
		return nil
	}
	return m.response
}

// ResponseMessage is the resolved answer to a Query: an ordered sequence of
// strings.
type ResponseMessage struct {
	header Header

	Text []string
}

// NewResponseMessage creates a Response carrying the given lines.
func NewResponseMessage(text ...string) *ResponseMessage {
	return &ResponseMessage{
		header: newHeader(),
		Text:   text,
	}
}

func (m *ResponseMessage) Kind() Kind      { return KindResponse }
func (m *ResponseMessage) Header() *Header { return &m.header }

func (m *ResponseMessage) EncodedSize() int {
	n := HeaderSize + UvarintLen(uint64(len(m.Text)))
	for _, s := range m.Text {
		n += StringLen(s)
	}
	return n
}

func (m *ResponseMessage) encodePayload(e *Encoder) {
	e.WriteStringSlice(m.Text)
}

func (m *ResponseMessage) decodePayload(d *Decoder) error {
	text, err := d.ReadStringSlice()
	if err != nil {
		return err
	}
	m.Text = text
	return nil
}
