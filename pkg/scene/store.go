package scene

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store holds the consumer's applied scene state: the latest snapshot, the
// node index, and a monotonically increasing revision. Updates apply as one
// unit under a single lock, so readers never observe a half-applied scene.
type Store struct {
	mu       sync.RWMutex
	snapshot []byte
	nodes    map[string]struct{}
	revision uint64
	updated  chan struct{}

	indexer Indexer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIndexer sets the collaborator that extracts node paths from snapshots.
// Without one the store cannot answer node queries, but updates still apply.
func WithIndexer(ix Indexer) StoreOption {
	return func(s *Store) {
		s.indexer = ix
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		nodes:   make(map[string]struct{}),
		updated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply applies one atomic update: snapshots in arrival order, then removals.
// Returns the new revision. Watchers blocked in WaitForUpdate wake up.
//
// The node index is merge-only: a replacing snapshot adds its nodes but never
// evicts nodes indexed from earlier snapshots. Producers retire nodes through
// explicit Delete removals, not by omission.
func (s *Store) Apply(u *Update) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range u.Snapshots {
		s.snapshot = snap
		if s.indexer != nil {
			for _, node := range s.indexer.Nodes(snap) {
				s.nodes[node] = struct{}{}
			}
		}
	}

	// Removals are pure: a delete for an unknown node is a no-op.
	for _, id := range u.Entities {
		delete(s.nodes, id.Name)
	}
	for _, id := range u.Instances {
		delete(s.nodes, id.Name)
	}

	s.revision++
	close(s.updated)
	s.updated = make(chan struct{})
	return s.revision
}

// Snapshot returns the latest applied snapshot, nil before the first update.
func (s *Store) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Revision returns the number of applied updates.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// AllNodes returns every indexed node path, sorted.
func (s *Store) AllNodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]string, 0, len(s.nodes))
	for n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// RootNodes returns the indexed node paths with no parent, sorted. A path is
// a root when it holds a single segment ("/root" but not "/root/child").
func (s *Store) RootNodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var roots []string
	for n := range s.nodes {
		trimmed := strings.TrimPrefix(n, "/")
		if trimmed != "" && !strings.Contains(trimmed, "/") {
			roots = append(roots, n)
		}
	}
	sort.Strings(roots)
	return roots
}

// WaitForUpdate blocks until the revision exceeds since or ctx is cancelled.
// Poll(SceneUpdate) requests park here.
func (s *Store) WaitForUpdate(ctx context.Context, since uint64) error {
	for {
		s.mu.RLock()
		rev := s.revision
		ch := s.updated
		s.mu.RUnlock()

		if rev > since {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
