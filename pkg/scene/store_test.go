package scene

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
)

// lineIndexer treats a snapshot as newline-separated node paths. Stands in
// for the real scene-graph collaborator.
var lineIndexer = IndexerFunc(func(snapshot []byte) []string {
	var nodes []string
	for _, line := range strings.Split(string(snapshot), "\n") {
		if line != "" {
			nodes = append(nodes, line)
		}
	}
	return nodes
})

func TestStoreApply(t *testing.T) {
	s := NewStore(WithIndexer(lineIndexer))

	if s.Revision() != 0 || s.Snapshot() != nil {
		t.Fatal("new store not empty")
	}

	u := &Update{
		Snapshots: [][]byte{[]byte("/root\n/root/arm"), []byte("/root\n/root/arm\n/prop")},
		Sets:      2,
	}
	rev := s.Apply(u)
	if rev != 1 {
		t.Errorf("Apply() revision = %d; want 1", rev)
	}
	if !bytes.Equal(s.Snapshot(), u.Snapshots[1]) {
		t.Error("Snapshot() is not the last applied snapshot")
	}
	if got := s.AllNodes(); !reflect.DeepEqual(got, []string{"/prop", "/root", "/root/arm"}) {
		t.Errorf("AllNodes() = %v", got)
	}
	if got := s.RootNodes(); !reflect.DeepEqual(got, []string{"/prop", "/root"}) {
		t.Errorf("RootNodes() = %v", got)
	}
}

func TestStoreApplyRemovals(t *testing.T) {
	s := NewStore(WithIndexer(lineIndexer))
	s.Apply(&Update{Snapshots: [][]byte{[]byte("/a\n/a/x\n/b")}, Sets: 1})

	s.Apply(&Update{
		Entities: []protocol.Identifier{{Name: "/a/x", ID: 2}},
		// Unknown node removal is a no-op.
		Instances: []protocol.Identifier{{Name: "/ghost", ID: 99}},
		Deletes:   1,
	})

	if got := s.AllNodes(); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("AllNodes() after removal = %v; want [/a /b]", got)
	}
	if s.Revision() != 2 {
		t.Errorf("Revision() = %d; want 2", s.Revision())
	}
}

func TestStoreIndexMergeOnly(t *testing.T) {
	s := NewStore(WithIndexer(lineIndexer))
	s.Apply(&Update{Snapshots: [][]byte{[]byte("/a\n/b")}, Sets: 1})

	// A replacing snapshot omitting /b does not evict it from the index;
	// only an explicit removal does.
	s.Apply(&Update{Snapshots: [][]byte{[]byte("/a\n/c")}, Sets: 1})
	if got := s.AllNodes(); !reflect.DeepEqual(got, []string{"/a", "/b", "/c"}) {
		t.Errorf("AllNodes() after replacing snapshot = %v; want [/a /b /c]", got)
	}

	s.Apply(&Update{
		Entities: []protocol.Identifier{{Name: "/b", ID: 2}},
		Deletes:  1,
	})
	if got := s.AllNodes(); !reflect.DeepEqual(got, []string{"/a", "/c"}) {
		t.Errorf("AllNodes() after explicit removal = %v; want [/a /c]", got)
	}
}

func TestStoreWithoutIndexer(t *testing.T) {
	s := NewStore()
	s.Apply(&Update{Snapshots: [][]byte{[]byte("opaque")}, Sets: 1})
	if len(s.AllNodes()) != 0 {
		t.Error("AllNodes() non-empty without an indexer")
	}
	if string(s.Snapshot()) != "opaque" {
		t.Error("snapshot not applied without an indexer")
	}
}

func TestStoreWaitForUpdate(t *testing.T) {
	s := NewStore()

	// Already-passed revision returns immediately.
	s.Apply(&Update{Snapshots: [][]byte{[]byte("v1")}, Sets: 1})
	if err := s.WaitForUpdate(context.Background(), 0); err != nil {
		t.Fatalf("WaitForUpdate(0) error = %v", err)
	}

	// A waiter parked on the current revision wakes on the next apply.
	done := make(chan error, 1)
	go func() {
		done <- s.WaitForUpdate(context.Background(), s.Revision())
	}()

	time.Sleep(10 * time.Millisecond)
	s.Apply(&Update{Snapshots: [][]byte{[]byte("v2")}, Sets: 1})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitForUpdate() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForUpdate() did not wake after Apply()")
	}

	// Cancellation unparks the waiter.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if err := s.WaitForUpdate(ctx, s.Revision()); err != context.Canceled {
		t.Errorf("WaitForUpdate() error = %v; want context.Canceled", err)
	}
}
