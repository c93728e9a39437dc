package hnswgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/vectorgraph/hnswgraph/memstore"
	"github.com/vectorgraph/hnswgraph/origin"
	"github.com/vectorgraph/hnswgraph/store"
)

func newTestIndex(t *testing.T, dims int, opts ...func(*Builder)) *Index {
	t.Helper()
	b := NewBuilderByNameT(t, dims, "euclidean").WithStore(store.NewLevelDBStore(memstore.New(), nil))
	for _, opt := range opts {
		opt(b)
	}
	ix, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

// NewBuilderByNameT is a thin test helper wrapping NewBuilderByName,
// failing the test instead of returning an error.
func NewBuilderByNameT(t *testing.T, dims int, name string) *Builder {
	t.Helper()
	b, err := NewBuilderByName(dims, name, 0)
	if err != nil {
		t.Fatalf("NewBuilderByName: %v", err)
	}
	return b
}

func TestAddAndFindNearestExactOnTinySet(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 2)

	pts := map[string][]float32{
		"origin": {0, 0},
		"right":  {1, 0},
		"up":     {0, 1},
		"far":    {50, 50},
	}
	for _, id := range []string{"origin", "right", "up", "far"} {
		if _, err := ix.Add(ctx, []byte(id), pts[id]); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	results, err := ix.FindNearest(ctx, []float32{0.1, 0.1}, 1)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	v, err := ix.store.ReadVertex(ctx, results[0].ID)
	if err != nil {
		t.Fatalf("ReadVertex: %v", err)
	}
	if string(v.ExternalID) != "origin" {
		t.Fatalf("expected nearest to be 'origin', got %q", v.ExternalID)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 2)

	id := []byte("repeat")
	for i := 0; i < 3; i++ {
		ok, err := ix.Add(ctx, id, []float32{1, 2})
		if err != nil {
			t.Fatalf("Add iteration %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("Add iteration %d: expected true", i)
		}
	}

	n, err := ix.store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 vertex after repeated Add, got %d", n)
	}
}

func TestLevelAssignmentIsDeterministic(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 2)

	if _, err := ix.Add(ctx, []byte("stable-id"), []float32{3, 4}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	v, _, err := ix.Get(ctx, []byte("stable-id"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	ix2 := newTestIndex(t, 2)
	if _, err := ix2.Add(ctx, []byte("stable-id"), []float32{9, 9}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	v2, _, err := ix2.Get(ctx, []byte("stable-id"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if v.MaxLevel != v2.MaxLevel {
		t.Fatalf("level assignment not deterministic across indices: %d vs %d", v.MaxLevel, v2.MaxLevel)
	}
}

func TestFindNeighborsExcludesSelf(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 2)

	for i := 0; i < 10; i++ {
		id := []byte{byte('a' + i)}
		if _, err := ix.Add(ctx, id, []float32{float32(i), float32(i)}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	results, err := ix.FindNeighbors(ctx, []byte{byte('a')}, 3)
	if err != nil {
		t.Fatalf("FindNeighbors: %v", err)
	}
	self, _, err := ix.Get(ctx, []byte{byte('a')})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, r := range results {
		if r.ID == self.ID {
			t.Fatalf("FindNeighbors must exclude the query vertex, got it in results")
		}
	}
}

func TestRemoveReassignsEntryPoint(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 2)

	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, id := range ids {
		if _, err := ix.Add(ctx, []byte(id), []float32{1, 1}); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	epBefore, _, _, err := ix.entryPointLevel(ctx)
	if err != nil {
		t.Fatalf("entryPointLevel: %v", err)
	}
	v, err := ix.store.ReadVertex(ctx, epBefore)
	if err != nil {
		t.Fatalf("ReadVertex: %v", err)
	}

	ok, err := ix.Remove(ctx, v.ExternalID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !ok {
		t.Fatalf("expected Remove to report true for an existing id")
	}

	epAfter, _, ok2, err := ix.entryPointLevel(ctx)
	if err != nil {
		t.Fatalf("entryPointLevel after remove: %v", err)
	}
	if !ok2 {
		t.Fatalf("expected a surviving entry point after removing the old one")
	}
	if epAfter == epBefore {
		t.Fatalf("entry point should have changed after removing it")
	}
}

func TestRemoveUnknownIDReturnsFalse(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 2)

	ok, err := ix.Remove(ctx, []byte("never-added"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok {
		t.Fatalf("expected false removing an id that was never added")
	}
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, 3)

	_, err := ix.Add(ctx, []byte("bad"), []float32{1, 2})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestDegreeStaysWithinBound(t *testing.T) {
	ctx := context.Background()
	m := 4
	ix := newTestIndex(t, 2, func(b *Builder) { b.WithM(m) })

	rngState := uint32(12345)
	nextFloat := func() float32 {
		rngState = rngState*1664525 + 1013904223
		return float32(rngState%1000) / 10
	}

	const n = 120
	for i := 0; i < n; i++ {
		id := []byte{byte(i), byte(i >> 8)}
		vec := []float32{nextFloat(), nextFloat()}
		if _, err := ix.Add(ctx, id, vec); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	count, err := ix.store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	for id := store.VertexID(1); id <= store.VertexID(count); id++ {
		v, err := ix.store.ReadVertex(ctx, id)
		if err != nil {
			continue
		}
		deg, err := ix.store.OutDegree(ctx, id, 0)
		if err != nil {
			t.Fatalf("OutDegree(%d,0): %v", id, err)
		}
		if deg > ix.maxM0 {
			t.Fatalf("vertex %d exceeds maxM0 at level 0: degree=%d maxM0=%d", id, deg, ix.maxM0)
		}
		for lvl := 1; lvl <= v.MaxLevel; lvl++ {
			deg, err := ix.store.OutDegree(ctx, id, lvl)
			if err != nil {
				t.Fatalf("OutDegree(%d,%d): %v", id, lvl, err)
			}
			if deg > ix.maxM {
				t.Fatalf("vertex %d exceeds maxM at level %d: degree=%d maxM=%d", id, lvl, deg, ix.maxM)
			}
		}
	}
}

func TestBuildSeedsFromSnapshot(t *testing.T) {
	ctx := context.Background()
	snap := origin.New(2, origin.WithM(4), origin.WithSeed(7))
	for i := 0; i < 50; i++ {
		id := []byte{byte(i), byte(i >> 8)}
		if err := snap.Add(id, []float32{float32(i % 5), float32(i % 3)}); err != nil {
			t.Fatalf("snapshot Add: %v", err)
		}
	}

	b, err := NewBuilderByName(2, "euclidean", 0)
	if err != nil {
		t.Fatalf("NewBuilderByName: %v", err)
	}
	b.WithStore(store.NewLevelDBStore(memstore.New(), nil)).SeedFromSnapshot(snap)
	ix, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	count, err := ix.store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != snap.Size() {
		t.Fatalf("expected seeded index to have %d vertices, got %d", snap.Size(), count)
	}
}

func TestSetEfChangesQueryWidth(t *testing.T) {
	ix := newTestIndex(t, 2)
	if ix.Ef() != DefaultEf {
		t.Fatalf("expected default ef %d, got %d", DefaultEf, ix.Ef())
	}
	ix.SetEf(5)
	if ix.Ef() != 5 {
		t.Fatalf("expected ef 5 after SetEf, got %d", ix.Ef())
	}
}
