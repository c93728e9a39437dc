// Package search implements the HNSW layered best-first search of
// spec.md §4.4 (C4) — greedy top-down descent followed by a bounded
// best-first scan at layer 0 — and the Heuristic 2 neighbor selection of
// §4.5 (C5). It is grounded on the teacher's in-memory equivalent in
// vector/hnsw.go (searchLayerClosest, searchLayer, nodeHeap) but reads
// vectors and adjacency through a store.GraphStore instead of in-process
// pointers, since this module's graph lives in the storage engine.
package search

import (
	"context"
	"fmt"

	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/store"
)

// vectorOf fetches a vertex's vector, wrapping store errors uniformly.
func vectorOf(ctx context.Context, gs store.GraphStore, id store.VertexID) ([]float32, error) {
	v, err := gs.ReadVertex(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("search: read vertex %d: %w", id, err)
	}
	return v.Vector, nil
}

// VertexLocker is the Vv monitor of spec.md §5, acquired while reading a
// vertex's out-neighbor list during insertion's descent phase so the scan
// sees a consistent snapshot. A nil VertexLocker (used by plain queries,
// which spec.md §4.4 does not require to take Vv) skips locking entirely.
type VertexLocker interface {
	LockVertex(id store.VertexID)
	UnlockVertex(id store.VertexID)
}

func scanOutNeighbors(ctx context.Context, gs store.GraphStore, locker VertexLocker, id store.VertexID, level int) ([]store.VertexID, error) {
	if locker != nil {
		locker.LockVertex(id)
		defer locker.UnlockVertex(id)
	}
	return gs.OutNeighbors(ctx, id, level)
}

// GreedyDescent implements spec.md §4.4 steps 2–3 (and the identical
// descent used during insertion, §4.6): starting at entry, greedily walk
// down from fromLevel to toLevel+1 inclusive, at each level repeatedly
// hopping to any strictly closer out-neighbor until none improves on the
// current vertex. Returns the final vertex and its distance to query.
// locker may be nil.
func GreedyDescent(ctx context.Context, gs store.GraphStore, fn distance.Func, query []float32, entry store.VertexID, fromLevel, toLevel int, locker VertexLocker) (store.VertexID, distance.D, error) {
	cur := entry
	curVec, err := vectorOf(ctx, gs, cur)
	if err != nil {
		return 0, 0, err
	}
	curDist := fn(query, curVec)

	for level := fromLevel; level > toLevel; level-- {
		for {
			neighbors, err := scanOutNeighbors(ctx, gs, locker, cur, level)
			if err != nil {
				return 0, 0, fmt.Errorf("search: out-neighbors of %d at level %d: %w", cur, level, err)
			}
			improved := false
			for _, n := range neighbors {
				nVec, err := vectorOf(ctx, gs, n)
				if err != nil {
					return 0, 0, err
				}
				if d := fn(query, nVec); distance.Lt(d, curDist) {
					cur, curDist = n, d
					improved = true
				}
			}
			if !improved {
				break
			}
		}
	}
	return cur, curDist, nil
}

// SearchBaseLayer implements spec.md §4.4's searchBaseLayer: a bounded
// best-first search at a single layer, returning up to k results ordered
// ascending by distance.
func SearchBaseLayer(ctx context.Context, gs store.GraphStore, fn distance.Func, entry store.VertexID, query []float32, k int, level int) ([]Result, error) {
	entryVec, err := vectorOf(ctx, gs, entry)
	if err != nil {
		return nil, err
	}
	entryDist := fn(query, entryVec)

	visited := map[store.VertexID]bool{entry: true}
	candidates := newMinQueue(k)
	top := newMaxQueue(k)
	candidates.pushResult(Result{ID: entry, Distance: entryDist})
	top.pushResult(Result{ID: entry, Distance: entryDist})
	lowerBound := entryDist

	for candidates.Len() > 0 {
		c := candidates.popResult()
		if distance.Gt(c.Distance, lowerBound) {
			break
		}

		neighbors, err := gs.OutNeighbors(ctx, c.ID, level)
		if err != nil {
			return nil, fmt.Errorf("search: out-neighbors of %d at level %d: %w", c.ID, level, err)
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true

			nVec, err := vectorOf(ctx, gs, n)
			if err != nil {
				return nil, err
			}
			d := fn(query, nVec)

			if top.Len() < k || distance.Lt(d, lowerBound) {
				candidates.pushResult(Result{ID: n, Distance: d})
				top.pushResult(Result{ID: n, Distance: d})
				if top.Len() > k {
					top.popResult()
				}
				lowerBound = top.peek().Distance
			}
		}
	}

	return top.drainAscending(), nil
}

// FindNearest implements spec.md §4.4's findNearest end to end: descend
// from the entry point's top level down to layer 1, then run
// SearchBaseLayer at layer 0 with ef = max(ef, k), trimming to k.
func FindNearest(ctx context.Context, gs store.GraphStore, fn distance.Func, entryPoint store.VertexID, entryLevel int, query []float32, k int, ef int) ([]Result, error) {
	cur, _, err := GreedyDescent(ctx, gs, fn, query, entryPoint, entryLevel, 0, nil)
	if err != nil {
		return nil, err
	}

	width := ef
	if k > width {
		width = k
	}
	results, err := SearchBaseLayer(ctx, gs, fn, cur, query, width, 0)
	if err != nil {
		return nil, err
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
