package protocol

// GetFlags is a bitmask selecting which scene aspects a Get requests.
// Serialized as its underlying uint32.
type GetFlags uint32

const (
	GetTransform GetFlags = 1 << iota
	GetPoints
	GetNormals
	GetTangents
	GetUV0
	GetUV1
	GetColors
	GetIndices
	GetMaterialIDs
	GetBones
	GetBlendShapes
	ApplyCulling
)

// GetEverything selects every scene aspect without culling.
const GetEverything = GetTransform | GetPoints | GetNormals | GetTangents |
	GetUV0 | GetUV1 | GetColors | GetIndices | GetMaterialIDs | GetBones |
	GetBlendShapes

// Has returns true if the flags contain flag.
func (f GetFlags) Has(flag GetFlags) bool {
	return f&flag != 0
}

// Handedness of the coordinate system a peer works in.
type Handedness uint8

const (
	HandLeft  Handedness = 0x00
	HandRight Handedness = 0x01
)

// SceneSettings are the scene-level settings a Get requests the producer to
// export with.
type SceneSettings struct {
	Handedness  Handedness
	ScaleFactor float32
}

const sceneSettingsSize = 1 + 4

func (s *SceneSettings) encodeTo(e *Encoder) {
	e.WriteByte(byte(s.Handedness))
	e.WriteFloat32(s.ScaleFactor)
}

func (s *SceneSettings) decodeFrom(d *Decoder) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	s.Handedness = Handedness(b)
	s.ScaleFactor, err = d.ReadFloat32()
	return err
}

// MeshRefineSettings control mesh post-processing on the producer side before
// a snapshot is serialized.
type MeshRefineSettings struct {
	Flags            uint32
	ScaleFactor      float32
	SmoothAngle      float32
	SplitUnit        uint32
	MaxBoneInfluence uint32
}

const meshRefineSettingsSize = 4 + 4 + 4 + 4 + 4

func (s *MeshRefineSettings) encodeTo(e *Encoder) {
	e.WriteUint32(s.Flags)
	e.WriteFloat32(s.ScaleFactor)
	e.WriteFloat32(s.SmoothAngle)
	e.WriteUint32(s.SplitUnit)
	e.WriteUint32(s.MaxBoneInfluence)
}

func (s *MeshRefineSettings) decodeFrom(d *Decoder) error {
	var err error
	if s.Flags, err = d.ReadUint32(); err != nil {
		return err
	}
	if s.ScaleFactor, err = d.ReadFloat32(); err != nil {
		return err
	}
	if s.SmoothAngle, err = d.ReadFloat32(); err != nil {
		return err
	}
	if s.SplitUnit, err = d.ReadUint32(); err != nil {
		return err
	}
	s.MaxBoneInfluence, err = d.ReadUint32()
	return err
}

// GetMessage requests a scene snapshot from the producer. The answer is a Set
// carrying the snapshot; completion is signaled out of band via the embedded
// request indicator.
type GetMessage struct {
	header Header

	Flags          GetFlags
	SceneSettings  SceneSettings
	RefineSettings MeshRefineSettings

	*completion
}

// NewGetMessage creates a Get requesting every scene aspect.
func NewGetMessage() *GetMessage {
	return &GetMessage{
		header: newHeader(),
		Flags:  GetEverything,
		SceneSettings: SceneSettings{
			Handedness:  HandLeft,
			ScaleFactor: 1.0,
		},
		RefineSettings: MeshRefineSettings{
			ScaleFactor: 1.0,
		},
		completion: newCompletion(),
	}
}

func (m *GetMessage) Kind() Kind      { return KindGet }
func (m *GetMessage) Header() *Header { return &m.header }

func (m *GetMessage) EncodedSize() int {
	return HeaderSize + 4 + sceneSettingsSize + meshRefineSettingsSize
}

func (m *GetMessage) encodePayload(e *Encoder) {
	e.WriteUint32(uint32(m.Flags))
	m.SceneSettings.encodeTo(e)
	m.RefineSettings.encodeTo(e)
}

func (m *GetMessage) decodePayload(d *Decoder) error {
	flags, err := d.ReadUint32()
	if err != nil {
		return err
	}
	m.Flags = GetFlags(flags)
	if err := m.SceneSettings.decodeFrom(d); err != nil {
		return err
	}
	return m.RefineSettings.decodeFrom(d)
}
