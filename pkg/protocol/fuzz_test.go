package protocol

import (
	"bytes"
	"testing"
)

// FuzzReadMessage throws arbitrary bytes at the framed decode path. Decoding
// may fail, but must never panic, and every accepted message must re-encode
// to its own declared size.
func FuzzReadMessage(f *testing.F) {
	for _, m := range []Message{
		NewGetMessage(),
		NewSetMessage([]byte("scene")),
		NewFenceMessage(FenceSceneBegin),
		NewTextMessage("seed", TextError),
		NewQueryMessage(QueryAllNodes),
		NewResponseMessage("a", "b"),
		NewPollMessage(PollSceneUpdate),
	} {
		var buf bytes.Buffer
		if err := WriteMessage(&buf, m); err != nil {
			f.Fatal(err)
		}
		f.Add(buf.Bytes())
	}
	f.Add([]byte{})
	f.Add([]byte{0xFF, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := ReadMessage(bytes.NewReader(data))
		if err != nil {
			return
		}
		if got := len(EncodeMessage(m)); got != m.EncodedSize() {
			t.Errorf("%v: re-encoded to %d bytes, EncodedSize() = %d", m.Kind(), got, m.EncodedSize())
		}
	})
}

// FuzzDecodeDelete exercises the sequence-heavy payload decoder directly.
func FuzzDecodeDelete(f *testing.F) {
	del := NewDeleteMessage()
	del.Entities = []Identifier{{Name: "a", ID: 1}, {Name: "b", ID: 2}}
	del.Instances = []Identifier{{Name: "c", ID: 3}}
	f.Add(EncodeMessage(del))

	f.Fuzz(func(t *testing.T, data []byte) {
		DecodeMessage(KindDelete, data)
	})
}
