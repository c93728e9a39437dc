package hnswgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vectorgraph/hnswgraph/concurrency"
	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/level"
	"github.com/vectorgraph/hnswgraph/search"
	"github.com/vectorgraph/hnswgraph/store"
)

// Index is the Insertion Engine (C6): it orchestrates the level assigner,
// search engine, concurrency controller, and graph adapter to implement
// add/get/remove/findNeighbors/findNearest over a store.GraphStore.
type Index struct {
	store store.GraphStore

	distanceFn   distance.Func
	distanceName string

	dimensions   int
	maxItemCount int

	m, maxM, maxM0 int
	ef             int
	efConstruction int

	vertexType         string
	edgeType           string
	idPropertyName     string
	vectorPropertyName string

	logger *slog.Logger
	ctrl   *concurrency.Controller
}

func (ix *Index) logDebug(msg string, args ...any) {
	if ix.logger != nil {
		ix.logger.Debug(msg, args...)
	}
}

// Dimensions returns the configured vector length.
func (ix *Index) Dimensions() int { return ix.dimensions }

// M returns the target out-degree per upper layer.
func (ix *Index) M() int { return ix.m }

// Ef returns the current query-time candidate list size.
func (ix *Index) Ef() int { return ix.ef }

// SetEf changes the query-time candidate list size (spec.md §6: "ef
// (mutable)").
func (ix *Index) SetEf(ef int) { ix.ef = ef }

// EfConstruction returns the insertion-time candidate list size.
func (ix *Index) EfConstruction() int { return ix.efConstruction }

// MaxItemCount returns the advisory item-count bound (not enforced; see
// DESIGN.md).
func (ix *Index) MaxItemCount() int { return ix.maxItemCount }

// DistanceFunction returns the configured distance function.
func (ix *Index) DistanceFunction() distance.Func { return ix.distanceFn }

// entryPointLevel resolves the current entry point's id and max level, or
// ok=false if the index is empty.
func (ix *Index) entryPointLevel(ctx context.Context) (id store.VertexID, lvl int, ok bool, err error) {
	epID, epOK, err := ix.store.EntryPoint(ctx)
	if err != nil {
		return 0, 0, false, fmt.Errorf("hnswgraph: read entry point: %w", err)
	}
	if !epOK {
		return 0, 0, false, nil
	}
	epVertex, err := ix.store.ReadVertex(ctx, epID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("hnswgraph: read entry point vertex: %w", err)
	}
	return epID, epVertex.MaxLevel, true, nil
}

// Add implements spec.md §4.6: level & locking phase, optional locked
// descent, per-layer wiring with Heuristic 2 selection and re-pruning,
// and entry-point promotion. Returns true if the vertex was newly wired
// or was already present with layer-0 edges (idempotent hit).
func (ix *Index) Add(ctx context.Context, externalID []byte, vector []float32) (bool, error) {
	if len(vector) != ix.dimensions {
		return false, ErrDimensionMismatch
	}

	randomLevel := level.Assign(externalID, ix.m)

	ix.ctrl.LockGlobal()
	globalHeld := true
	release := func() {
		if globalHeld {
			ix.ctrl.UnlockGlobal()
			globalHeld = false
		}
	}
	defer release()

	v, existed, err := ix.store.VertexByExternalID(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("hnswgraph: add: %w", err)
	}
	if existed {
		deg, err := ix.store.OutDegree(ctx, v.ID, 0)
		if err != nil {
			return false, fmt.Errorf("hnswgraph: add: %w", err)
		}
		if deg > 0 {
			return true, nil
		}
	} else {
		v, err = ix.store.CreateVertex(ctx, externalID, vector)
		if err != nil {
			return false, fmt.Errorf("hnswgraph: add: %w", err)
		}
	}

	if err := ix.store.WriteMaxLevel(ctx, v.ID, randomLevel); err != nil {
		return false, fmt.Errorf("hnswgraph: add: %w", err)
	}

	ix.ctrl.Exclude(v.ID)
	defer ix.ctrl.Unexclude(v.ID)

	epID, epLevel, epOK, err := ix.entryPointLevel(ctx)
	if err != nil {
		return false, err
	}

	// Early release: once randomLevel <= epLevel, layers above it will
	// not be touched by this insert, so other inserters may proceed.
	if epOK && randomLevel <= epLevel {
		release()
	}

	cur := v.ID
	if epOK && randomLevel < epLevel {
		cur, _, err = search.GreedyDescent(ctx, ix.store, ix.distanceFn, vector, epID, epLevel, randomLevel, ix.ctrl)
		if err != nil {
			return false, fmt.Errorf("hnswgraph: add: descent: %w", err)
		}
	} else if epOK {
		cur = epID
	}

	top := randomLevel
	if epOK && epLevel < top {
		top = epLevel
	}
	for lvl := top; lvl >= 0; lvl-- {
		if err := ix.wireLayer(ctx, v.ID, vector, cur, lvl); err != nil {
			return false, fmt.Errorf("hnswgraph: add: wire layer %d: %w", lvl, err)
		}
	}

	if !epOK || randomLevel > epLevel {
		if err := ix.store.SetEntryPoint(ctx, v.ID); err != nil {
			return false, fmt.Errorf("hnswgraph: add: promote entry point: %w", err)
		}
		ix.logDebug("entry point promoted", "vertex", v.ID, "level", randomLevel)
	}

	ix.logDebug("vertex added", "vertex", v.ID, "level", randomLevel)
	return true, nil
}

// wireLayer implements the wiring phase for a single layer of spec.md
// §4.6: search, heuristic selection, bidirectional edge creation, and
// re-pruning of over-full neighbors.
func (ix *Index) wireLayer(ctx context.Context, vertexID store.VertexID, vector []float32, entry store.VertexID, lvl int) error {
	candidates, err := search.SearchBaseLayer(ctx, ix.store, ix.distanceFn, entry, vector, ix.efConstruction, lvl)
	if err != nil {
		return fmt.Errorf("search base layer: %w", err)
	}
	selected, err := search.SelectNeighborsHeuristic(ctx, ix.store, ix.distanceFn, candidates, ix.m)
	if err != nil {
		return fmt.Errorf("select neighbors: %w", err)
	}

	bound := ix.maxM
	if lvl == 0 {
		bound = ix.maxM0
	}

	for _, n := range selected {
		if ix.ctrl.IsExcluded(n.ID) {
			continue
		}
		if err := ix.store.AddEdge(ctx, vertexID, n.ID, lvl); err != nil {
			return fmt.Errorf("add edge: %w", err)
		}

		deg, err := ix.store.OutDegree(ctx, n.ID, lvl)
		if err != nil {
			return fmt.Errorf("out degree: %w", err)
		}
		if deg < bound {
			if err := ix.store.AddEdge(ctx, n.ID, vertexID, lvl); err != nil {
				return fmt.Errorf("add reverse edge: %w", err)
			}
			continue
		}

		if err := ix.repruneNeighbor(ctx, n.ID, vertexID, n.Distance, lvl, bound); err != nil {
			return fmt.Errorf("reprune: %w", err)
		}
	}
	return nil
}

// repruneNeighbor implements spec.md §4.6's re-prune path: n is already
// at its degree bound, so its neighborhood (plus the new vertex) is
// re-selected by Heuristic 2 and replaced atomically.
func (ix *Index) repruneNeighbor(ctx context.Context, n, newVertex store.VertexID, distToNew distance.D, lvl, bound int) error {
	existing, err := ix.store.OutNeighbors(ctx, n, lvl)
	if err != nil {
		return err
	}
	nVec, err := ix.store.ReadVertex(ctx, n)
	if err != nil {
		return err
	}

	cands := make([]search.Result, 0, len(existing)+1)
	cands = append(cands, search.Result{ID: newVertex, Distance: distToNew})
	for _, e := range existing {
		eVertex, err := ix.store.ReadVertex(ctx, e)
		if err != nil {
			return err
		}
		cands = append(cands, search.Result{ID: e, Distance: ix.distanceFn(nVec.Vector, eVertex.Vector)})
	}

	selected, err := search.SelectNeighborsHeuristic(ctx, ix.store, ix.distanceFn, cands, bound)
	if err != nil {
		return err
	}
	neighborIDs := make([]store.VertexID, len(selected))
	for i, s := range selected {
		neighborIDs[i] = s.ID
	}
	return ix.store.ReplaceOutEdges(ctx, n, lvl, neighborIDs)
}

// Get resolves externalID to its indexed vertex.
func (ix *Index) Get(ctx context.Context, externalID []byte) (*store.Vertex, bool, error) {
	v, ok, err := ix.store.VertexByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, fmt.Errorf("hnswgraph: get: %w", err)
	}
	return v, ok, nil
}

// Remove deletes the vertex for externalID, reassigning the entry point
// if it was the one removed (spec.md §9 decision: promote the highest
// remaining vectorMaxLevel neighbor at the deleted vertex's own level).
// If that vertex had no such neighbor, the entry point is left unset;
// the rest of the graph is not scanned. Returns false if externalID was
// not indexed.
func (ix *Index) Remove(ctx context.Context, externalID []byte) (bool, error) {
	ix.ctrl.LockGlobal()
	defer ix.ctrl.UnlockGlobal()

	v, ok, err := ix.store.VertexByExternalID(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("hnswgraph: remove: %w", err)
	}
	if !ok {
		return false, nil
	}

	epID, _, epOK, err := ix.entryPointLevel(ctx)
	if err != nil {
		return false, err
	}
	wasEntryPoint := epOK && epID == v.ID

	var neighborsAtTop []store.VertexID
	if wasEntryPoint {
		neighborsAtTop, err = ix.store.OutNeighbors(ctx, v.ID, v.MaxLevel)
		if err != nil {
			return false, fmt.Errorf("hnswgraph: remove: %w", err)
		}
	}

	if err := ix.store.DeleteVertex(ctx, v.ID); err != nil {
		return false, fmt.Errorf("hnswgraph: remove: %w", err)
	}

	if !wasEntryPoint {
		return true, nil
	}

	newEntry, newLevel, found, err := ix.bestReplacementEntryPoint(ctx, neighborsAtTop)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	ix.logDebug("entry point reassigned after removal", "vertex", newEntry, "level", newLevel)
	return true, ix.store.SetEntryPoint(ctx, newEntry)
}

// bestReplacementEntryPoint picks the highest-vectorMaxLevel vertex among
// candidates (the deleted entry point's former top-level neighbors). If
// candidates is empty it reports not-found and does not scan the rest of
// the graph, so the entry point stays unset — the next Add will promote
// naturally.
func (ix *Index) bestReplacementEntryPoint(ctx context.Context, candidates []store.VertexID) (store.VertexID, int, bool, error) {
	var best store.VertexID
	bestLevel := -1
	for _, id := range candidates {
		v, err := ix.store.ReadVertex(ctx, id)
		if err != nil {
			return 0, 0, false, fmt.Errorf("hnswgraph: remove: reassign entry point: %w", err)
		}
		if v.MaxLevel > bestLevel {
			best, bestLevel = id, v.MaxLevel
		}
	}
	if bestLevel < 0 {
		return 0, 0, false, nil
	}
	return best, bestLevel, true, nil
}

// FindNeighbors returns the k nearest vertices to externalID's vector,
// excluding externalID itself (spec.md §6, self-exclusion law of §8).
func (ix *Index) FindNeighbors(ctx context.Context, externalID []byte, k int) ([]search.Result, error) {
	v, ok, err := ix.store.VertexByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("hnswgraph: find neighbors: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("hnswgraph: find neighbors: external id %q: %w", externalID, store.ErrNotFound)
	}

	results, err := ix.FindNearest(ctx, v.Vector, k+1)
	if err != nil {
		return nil, err
	}
	out := make([]search.Result, 0, k)
	for _, r := range results {
		if r.ID == v.ID {
			continue
		}
		out = append(out, r)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// FindNearest returns the k nearest vertices to query, ascending by
// distance (spec.md §4.4).
func (ix *Index) FindNearest(ctx context.Context, query []float32, k int) ([]search.Result, error) {
	if len(query) != ix.dimensions {
		return nil, ErrDimensionMismatch
	}
	epID, epLevel, ok, err := ix.entryPointLevel(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	results, err := search.FindNearest(ctx, ix.store, ix.distanceFn, epID, epLevel, query, k, ix.ef)
	if err != nil {
		return nil, fmt.Errorf("hnswgraph: find nearest: %w", err)
	}
	return results, nil
}
