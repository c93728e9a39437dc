package search

import (
	"container/heap"

	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/store"
)

// Result pairs a vertex with its distance to some query, the ephemeral
// NodeCandidate of spec.md §3. Results are ordered by Distance only:
// container/heap is not stable, so the relative order of results with
// equal distances is not defined (neither insertion order nor ID).
type Result struct {
	ID       store.VertexID
	Distance distance.D
}

// resultQueue is the two explicit heaps spec.md §9 calls for in place of
// "unbounded priority queues with reversed comparators": a min-heap
// ordered closest-first (candidates) and a max-heap ordered farthest-first
// (top/results, capped externally at ef or k). Both share this one type,
// distinguished by the maxHeap flag, directly adapted from the teacher's
// nodeHeap in vector/hnsw.go.
type resultQueue struct {
	items   []Result
	maxHeap bool
}

func newMinQueue(cap int) *resultQueue {
	q := &resultQueue{items: make([]Result, 0, cap)}
	heap.Init(q)
	return q
}

func newMaxQueue(cap int) *resultQueue {
	q := &resultQueue{items: make([]Result, 0, cap), maxHeap: true}
	heap.Init(q)
	return q
}

func (q *resultQueue) Len() int { return len(q.items) }

func (q *resultQueue) Less(i, j int) bool {
	if q.maxHeap {
		return distance.Gt(q.items[i].Distance, q.items[j].Distance)
	}
	return distance.Lt(q.items[i].Distance, q.items[j].Distance)
}

func (q *resultQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *resultQueue) Push(x any) { q.items = append(q.items, x.(Result)) }

func (q *resultQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

func (q *resultQueue) peek() Result { return q.items[0] }

func (q *resultQueue) pushResult(r Result) { heap.Push(q, r) }

func (q *resultQueue) popResult() Result { return heap.Pop(q).(Result) }

// drainAscending empties a max-heap into a slice ordered ascending by
// distance, the way the teacher's searchLayer extracts its results
// slice from the bounded max-heap.
func (q *resultQueue) drainAscending() []Result {
	out := make([]Result, q.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = q.popResult()
	}
	return out
}
