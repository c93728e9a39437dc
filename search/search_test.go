package search

import (
	"context"
	"testing"

	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/memstore"
	"github.com/vectorgraph/hnswgraph/store"
)

// buildLine wires a star centred on A (A-B, A-C, A-D, each in both
// directions) at level 0 so descent/search have something to walk, mirroring the tiny fixture of spec.md §8 scenario 1.
func buildLine(t *testing.T) (store.GraphStore, map[string]store.VertexID) {
	t.Helper()
	gs := store.NewLevelDBStore(memstore.New(), nil)

	pts := map[string][]float32{
		"A": {0, 0},
		"B": {0, 1},
		"C": {1, 0},
		"D": {10, 10},
	}
	ids := map[string]store.VertexID{}
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C", "D"} {
		v, err := gs.CreateVertex(ctx, []byte(name), pts[name])
		if err != nil {
			t.Fatalf("CreateVertex(%s): %v", name, err)
		}
		ids[name] = v.ID
	}

	edges := [][2]string{{"A", "B"}, {"A", "C"}, {"B", "A"}, {"C", "A"}, {"A", "D"}, {"D", "A"}}
	for _, e := range edges {
		if err := gs.AddEdge(ctx, ids[e[0]], ids[e[1]], 0); err != nil {
			t.Fatalf("AddEdge(%s,%s): %v", e[0], e[1], err)
		}
	}
	return gs, ids
}

func TestSearchBaseLayerFindsNeighbors(t *testing.T) {
	ctx := context.Background()
	gs, ids := buildLine(t)

	results, err := SearchBaseLayer(ctx, gs, distance.Euclidean, ids["A"], []float32{0, 0}, 3, 0)
	if err != nil {
		t.Fatalf("SearchBaseLayer: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one result")
	}
	if results[0].ID != ids["A"] {
		t.Fatalf("expected A closest to itself, got %v", results[0])
	}
	// Ascending order.
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Fatalf("results not ascending: %v", results)
		}
	}
}

func TestFindNearestExcludesFartherPoint(t *testing.T) {
	ctx := context.Background()
	gs, ids := buildLine(t)

	results, err := FindNearest(ctx, gs, distance.Euclidean, ids["A"], 0, []float32{0.1, 0.1}, 1, 10)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	if len(results) != 1 || results[0].ID != ids["A"] {
		t.Fatalf("expected [A], got %v", results)
	}
}

func TestGreedyDescentNoOpAtSameLevel(t *testing.T) {
	ctx := context.Background()
	gs, ids := buildLine(t)

	cur, _, err := GreedyDescent(ctx, gs, distance.Euclidean, []float32{0, 0}, ids["A"], 0, 0, nil)
	if err != nil {
		t.Fatalf("GreedyDescent: %v", err)
	}
	if cur != ids["A"] {
		t.Fatalf("expected no movement at level 0->0, got %v", cur)
	}
}

func TestSelectNeighborsHeuristicUnderBoundReturnsUnchanged(t *testing.T) {
	ctx := context.Background()
	gs, ids := buildLine(t)

	cands := []Result{{ID: ids["B"], Distance: 1}, {ID: ids["C"], Distance: 1}}
	kept, err := SelectNeighborsHeuristic(ctx, gs, distance.Euclidean, cands, 5)
	if err != nil {
		t.Fatalf("SelectNeighborsHeuristic: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected unchanged candidates under bound m, got %v", kept)
	}
}

func TestSelectNeighborsHeuristicPrunesToBound(t *testing.T) {
	ctx := context.Background()
	gs, ids := buildLine(t)

	cands := []Result{
		{ID: ids["A"], Distance: 0},
		{ID: ids["B"], Distance: 1},
		{ID: ids["C"], Distance: 1},
		{ID: ids["D"], Distance: 200},
	}
	kept, err := SelectNeighborsHeuristic(ctx, gs, distance.Euclidean, cands, 2)
	if err != nil {
		t.Fatalf("SelectNeighborsHeuristic: %v", err)
	}
	if len(kept) > 2 {
		t.Fatalf("expected at most 2 kept, got %d", len(kept))
	}
}
