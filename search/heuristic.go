package search

import (
	"context"
	"fmt"

	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/store"
)

// SelectNeighborsHeuristic implements "Heuristic 2" (spec.md §4.5): given
// candidates ordered by distance to some query vertex, keep at most m of
// them, preferring ones that are not strictly closer to an already-kept
// neighbor than they are to the query — the diversification rule that
// preserves long-range navigability at bounded degree.
func SelectNeighborsHeuristic(ctx context.Context, gs store.GraphStore, fn distance.Func, cands []Result, m int) ([]Result, error) {
	if len(cands) < m {
		return cands, nil
	}

	closest := newMinQueue(len(cands))
	for _, c := range cands {
		closest.pushResult(c)
	}

	kept := make([]Result, 0, m)
	keptVecs := make([][]float32, 0, m)

	for closest.Len() > 0 && len(kept) < m {
		p := closest.popResult()

		pVec, err := vectorOf(ctx, gs, p.ID)
		if err != nil {
			return nil, fmt.Errorf("select neighbors: %w", err)
		}

		diverse := true
		for _, qVec := range keptVecs {
			if distance.Lt(fn(qVec, pVec), p.Distance) {
				diverse = false
				break
			}
		}
		if diverse {
			kept = append(kept, p)
			keptVecs = append(keptVecs, pVec)
		}
	}

	return kept, nil
}
