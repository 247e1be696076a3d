package scene

import (
	"errors"
	"testing"

	"github.com/scenelink-dev/scenelink/pkg/protocol"
)

func TestFenceWellFormed(t *testing.T) {
	// [SceneBegin, Set, Set, SceneEnd] yields exactly one atomic update
	// containing both snapshots.
	s := NewStager()

	if err := s.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !s.Open() {
		t.Fatal("Open() = false inside a fence")
	}
	if err := s.Set(protocol.NewSetMessage([]byte("snap-1"))); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(protocol.NewSetMessage([]byte("snap-2"))); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	u, err := s.End()
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if len(u.Snapshots) != 2 || string(u.Snapshots[0]) != "snap-1" || string(u.Snapshots[1]) != "snap-2" {
		t.Errorf("update snapshots = %q; want [snap-1 snap-2]", u.Snapshots)
	}
	if u.Sets != 2 || u.Deletes != 0 {
		t.Errorf("update counts = %d sets, %d deletes; want 2, 0", u.Sets, u.Deletes)
	}
	if s.Open() {
		t.Error("Open() = true after End()")
	}
}

func TestFenceSequencingErrors(t *testing.T) {
	t.Run("stray SceneEnd", func(t *testing.T) {
		s := NewStager()
		if _, err := s.End(); !errors.Is(err, ErrFenceNotOpen) {
			t.Errorf("End() error = %v; want ErrFenceNotOpen", err)
		}
	})

	t.Run("nested SceneBegin", func(t *testing.T) {
		s := NewStager()
		if err := s.Begin(); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(protocol.NewSetMessage([]byte("kept"))); err != nil {
			t.Fatal(err)
		}
		if err := s.Begin(); !errors.Is(err, ErrFenceOpen) {
			t.Errorf("nested Begin() error = %v; want ErrFenceOpen", err)
		}
		// The original update survives the rejected Begin.
		u, err := s.End()
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if len(u.Snapshots) != 1 || string(u.Snapshots[0]) != "kept" {
			t.Errorf("update snapshots = %q; want [kept]", u.Snapshots)
		}
	})

	t.Run("mutation outside fence", func(t *testing.T) {
		s := NewStager()
		if err := s.Set(protocol.NewSetMessage([]byte("loose"))); !errors.Is(err, ErrOutsideFence) {
			t.Errorf("Set() error = %v; want ErrOutsideFence", err)
		}
		del := protocol.NewDeleteMessage()
		del.Entities = []protocol.Identifier{{Name: "/n", ID: 1}}
		if err := s.Delete(del); !errors.Is(err, ErrOutsideFence) {
			t.Errorf("Delete() error = %v; want ErrOutsideFence", err)
		}
	})
}

func TestStagerDeleteOrdering(t *testing.T) {
	s := NewStager()
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}

	first := protocol.NewDeleteMessage()
	first.Entities = []protocol.Identifier{{Name: "c", ID: 3}, {Name: "a", ID: 1}}
	second := protocol.NewDeleteMessage()
	second.Entities = []protocol.Identifier{{Name: "b", ID: 2}}
	second.Materials = []protocol.Identifier{{Name: "m", ID: 9}}

	if err := s.Delete(first); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(second); err != nil {
		t.Fatal(err)
	}

	u, err := s.End()
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []int32{3, 1, 2}
	if len(u.Entities) != len(wantIDs) {
		t.Fatalf("staged %d entities; want %d", len(u.Entities), len(wantIDs))
	}
	for i, id := range u.Entities {
		if id.ID != wantIDs[i] {
			t.Errorf("entity #%d id = %d; want %d", i, id.ID, wantIDs[i])
		}
	}
	if len(u.Materials) != 1 || u.Materials[0].Name != "m" {
		t.Errorf("materials = %v; want [m]", u.Materials)
	}
	if u.Deletes != 2 {
		t.Errorf("Deletes = %d; want 2", u.Deletes)
	}
}

func TestStagerAbort(t *testing.T) {
	s := NewStager()
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(protocol.NewSetMessage([]byte("dropped"))); err != nil {
		t.Fatal(err)
	}
	s.Abort()

	if s.Open() {
		t.Error("Open() = true after Abort()")
	}
	// A fresh fence starts clean.
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin() after Abort() error = %v", err)
	}
	u, err := s.End()
	if err != nil {
		t.Fatal(err)
	}
	if !u.Empty() {
		t.Errorf("update after Abort() not empty: %+v", u)
	}
}
