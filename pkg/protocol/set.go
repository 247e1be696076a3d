package protocol

// SetMessage carries one full scene snapshot. The snapshot is opaque to the
// protocol: the scene-graph collaborator serializes it, the envelope only
// length-prefixes it. Self-describing, so its size is knowable without the
// protocol interpreting its internals.
type SetMessage struct {
	header Header

	// Scene is the serialized scene snapshot.
	Scene []byte
}

// NewSetMessage creates a Set carrying the given serialized snapshot.
func NewSetMessage(scene []byte) *SetMessage {
	return &SetMessage{
		header: newHeader(),
		Scene:  scene,
	}
}

func (m *SetMessage) Kind() Kind      { return KindSet }
func (m *SetMessage) Header() *Header { return &m.header }

func (m *SetMessage) EncodedSize() int {
	return HeaderSize + LenBytesLen(m.Scene)
}

func (m *SetMessage) encodePayload(e *Encoder) {
	e.WriteLenBytes(m.Scene)
}

func (m *SetMessage) decodePayload(d *Decoder) error {
	scene, err := d.ReadLenBytes()
	if err != nil {
		return err
	}
	m.Scene = scene
	return nil
}
