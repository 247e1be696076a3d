package scene

import (
	"errors"
	"sync"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
)

// Fence sequencing errors. These are recoverable: the offending message is
// rejected, the stream framing stays intact, and the connection may continue.
var (
	// ErrFenceOpen reports SceneBegin while a scene update is already open.
	// The protocol allows one in-flight scene update per session.
	ErrFenceOpen = errors.New("scene: SceneBegin inside an open scene update")

	// ErrFenceNotOpen reports SceneEnd with no open scene update.
	ErrFenceNotOpen = errors.New("scene: SceneEnd without an open scene update")

	// ErrOutsideFence reports a Set or Delete outside any open scene
	// update. Policy decision: such mutations are rejected rather than
	// applied individually, so a consumer never sees a half snapshot.
	ErrOutsideFence = errors.New("scene: mutation outside an open scene update")
)

// Stager is the per-session sequencing guard for transactional fencing. It
// buffers mutation messages between SceneBegin and SceneEnd and hands them
// back as one atomic Update. One in-flight scene update per session; all
// methods are safe for concurrent use.
type Stager struct {
	mu  sync.Mutex
	cur *Update
}

// NewStager creates a stager with no open update.
func NewStager() *Stager {
	return &Stager{}
}

// Open reports whether a scene update is currently open.
func (s *Stager) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Begin opens a scene update. Fails with ErrFenceOpen if one is already open;
// the open update is preserved.
func (s *Stager) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		return ErrFenceOpen
	}
	s.cur = &Update{}
	return nil
}

// Set stages a snapshot into the open update.
func (s *Stager) Set(m *protocol.SetMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ErrOutsideFence
	}
	s.cur.Snapshots = append(s.cur.Snapshots, m.Scene)
	s.cur.Sets++
	return nil
}

// Delete stages removals into the open update. Per-group order is preserved
// across multiple Delete messages.
func (s *Stager) Delete(m *protocol.DeleteMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ErrOutsideFence
	}
	s.cur.Entities = append(s.cur.Entities, m.Entities...)
	s.cur.Materials = append(s.cur.Materials, m.Materials...)
	s.cur.Instances = append(s.cur.Instances, m.Instances...)
	s.cur.Deletes++
	return nil
}

// End closes the open update and returns it for atomic application.
func (s *Stager) End() (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil, ErrFenceNotOpen
	}
	u := s.cur
	s.cur = nil
	return u, nil
}

// Abort discards any open update. Used on connection teardown so a dangling
// SceneBegin never leaks staged state into the next connection.
func (s *Stager) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
}
