// Package scene is the consumer-side boundary to the scene graph. The wire
// protocol treats scene snapshots as opaque payloads; this package stages
// fenced mutation bursts into atomic updates and holds the applied state.
//
// The snapshot format itself belongs to the producing application. Callers
// that want node queries answered inject an Indexer that understands the
// payload; without one the store still applies updates and tracks revisions.
package scene

import "github.com/scenelink-dev/scenelink/pkg/protocol"

// Update is one atomic scene update: everything staged between a SceneBegin
// and its SceneEnd. Snapshots are kept in arrival order; removal sequences
// keep their per-group order and stay independent across groups.
type Update struct {
	Snapshots [][]byte

	Entities  []protocol.Identifier
	Materials []protocol.Identifier
	Instances []protocol.Identifier

	// Sets and Deletes count the staged mutation messages.
	Sets    int
	Deletes int
}

// Empty reports whether the update stages no work.
func (u *Update) Empty() bool {
	return u.Sets == 0 && u.Deletes == 0
}

// Indexer extracts node paths from an opaque scene snapshot. Implemented by
// the collaborator that owns the snapshot format.
type Indexer interface {
	Nodes(snapshot []byte) []string
}

// IndexerFunc adapts a function to the Indexer interface.
type IndexerFunc func(snapshot []byte) []string

// Nodes calls f.
func (f IndexerFunc) Nodes(snapshot []byte) []string { return f(snapshot) }
