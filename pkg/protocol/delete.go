package protocol

// Identifier names one scene object for removal: a path-like name plus the
// producer-assigned numeric id.
type Identifier struct {
	Name string
	ID   int32
}

func (id *Identifier) encodedSize() int {
	return StringLen(id.Name) + 4
}

func (id *Identifier) encodeTo(e *Encoder) {
	e.WriteString(id.Name)
	e.WriteInt32(id.ID)
}

func (id *Identifier) decodeFrom(d *Decoder) error {
	name, err := d.ReadString()
	if err != nil {
		return err
	}
	id.Name = name
	id.ID, err = d.ReadInt32()
	return err
}

// DeleteMessage carries pure removals, partitioned by kind. Order within each
// sequence is significant and preserved; the three sequences are independent
// of each other.
type DeleteMessage struct {
	header Header

	Entities  []Identifier
	Materials []Identifier
	Instances []Identifier
}

// NewDeleteMessage creates an empty Delete.
func NewDeleteMessage() *DeleteMessage {
	return &DeleteMessage{header: newHeader()}
}

func (m *DeleteMessage) Kind() Kind      { return KindDelete }
func (m *DeleteMessage) Header() *Header { return &m.header }

// Empty reports whether the message carries no removals at all.
func (m *DeleteMessage) Empty() bool {
	return len(m.Entities) == 0 && len(m.Materials) == 0 && len(m.Instances) == 0
}

func identifierSeqSize(ids []Identifier) int {
	n := UvarintLen(uint64(len(ids)))
	for i := range ids {
		n += ids[i].encodedSize()
	}
	return n
}

func encodeIdentifierSeq(e *Encoder, ids []Identifier) {
	e.WriteUvarint(uint64(len(ids)))
	for i := range ids {
		ids[i].encodeTo(e)
	}
}

func decodeIdentifierSeq(d *Decoder) ([]Identifier, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	ids := make([]Identifier, count)
	for i := range ids {
		if err := ids[i].decodeFrom(d); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (m *DeleteMessage) EncodedSize() int {
	return HeaderSize +
		identifierSeqSize(m.Entities) +
		identifierSeqSize(m.Materials) +
		identifierSeqSize(m.Instances)
}

func (m *DeleteMessage) encodePayload(e *Encoder) {
	encodeIdentifierSeq(e, m.Entities)
	encodeIdentifierSeq(e, m.Materials)
	encodeIdentifierSeq(e, m.Instances)
}

func (m *DeleteMessage) decodePayload(d *Decoder) error {
	var err error
	if m.Entities, err = decodeIdentifierSeq(d); err != nil {
		return err
	}
	if m.Materials, err = decodeIdentifierSeq(d); err != nil {
		return err
	}
	m.Instances, err = decodeIdentifierSeq(d)
	return err
}
