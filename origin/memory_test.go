package origin

import "testing"

func TestSnapshotAddAndSize(t *testing.T) {
	s := New(2, WithM(4), WithSeed(1))
	vectors := map[string][]float32{
		"a": {0, 0},
		"b": {0, 1},
		"c": {1, 0},
		"d": {10, 10},
	}
	for id, v := range vectors {
		if err := s.Add([]byte(id), v); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	if s.Size() != 4 {
		t.Fatalf("expected size 4, got %d", s.Size())
	}
}

func TestSnapshotEntryPointIsHighestLevel(t *testing.T) {
	s := New(2, WithM(4), WithSeed(7))
	for i := 0; i < 50; i++ {
		id := []byte{byte(i)}
		if err := s.Add(id, []float32{float32(i), float32(i)}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	epID, epLevel, ok := s.EntryPoint()
	if !ok {
		t.Fatalf("expected entry point after inserts")
	}

	maxLevel := -1
	for _, n := range s.Nodes() {
		if n.MaxLevel > maxLevel {
			maxLevel = n.MaxLevel
		}
	}
	if epLevel != maxLevel {
		t.Fatalf("entry point level %d != max level observed %d (id=%s)", epLevel, maxLevel, epID)
	}
}

func TestSnapshotNodesExposeConnections(t *testing.T) {
	s := New(2, WithM(4), WithSeed(3))
	for _, id := range []string{"x", "y", "z"} {
		if err := s.Add([]byte(id), []float32{1, 2}); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	for _, n := range s.Nodes() {
		if len(n.Connections) != n.MaxLevel+1 {
			t.Fatalf("node %s: expected %d connection levels, got %d", n.ExternalID, n.MaxLevel+1, len(n.Connections))
		}
	}
}

func TestSnapshotDimensionMismatch(t *testing.T) {
	s := New(3)
	if err := s.Add([]byte("bad"), []float32{1, 2}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}
