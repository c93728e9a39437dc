// Package origin implements the "pre-built in-memory HNSW" that
// spec.md §4.8 (C8) describes as the bulk importer's input: a standalone,
// non-persistent HNSW graph exposing size, iterateNodes, getEntryPoint,
// and per-node (id, vector, maxLevel, connections[layer]).
//
// Snapshot is a direct adaptation of the teacher's in-memory
// vector.HNSWIndex (vector/hnsw.go): the same node/level/friend-map
// construction algorithm (random level, greedy descent to the insertion
// level, per-layer searchLayer + truncation to the degree bound + shrink)
// is kept here to build realistic graphs for tests and for seeding a
// Builder via SeedFromSnapshot — but the export surface is the narrow
// read-only iteration contract bulk.Importer needs, not the teacher's
// gob/JSON-shaped Export/Import pair.
package origin

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/vectorgraph/hnswgraph/distance"
)

// Snapshot is an in-memory HNSW graph, built independently of any
// persistent store, ready to be streamed into one via bulk.Importer.
type Snapshot struct {
	dimensions int
	distance   distance.Func

	m, mMax, mMax0 int
	efConstruction int
	levelMult      float64

	mu         sync.RWMutex
	nodes      map[string]*node
	order      []string
	entryPoint *node
	maxLevel   int

	rngMu sync.Mutex
	rng   *rand.Rand
}

type node struct {
	id          string
	vector      []float32
	level       int
	connections []map[string]*node
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithM sets the target out-degree per upper layer (maxM0 = 2m).
func WithM(m int) Option {
	return func(s *Snapshot) {
		s.m = m
		s.mMax = m
		s.mMax0 = m * 2
	}
}

// WithEfConstruction sets the construction-time candidate list size.
func WithEfConstruction(ef int) Option {
	return func(s *Snapshot) { s.efConstruction = ef }
}

// WithDistance overrides the distance function used to build the graph.
// Default is distance.Euclidean.
func WithDistance(fn distance.Func) Option {
	return func(s *Snapshot) { s.distance = fn }
}

// WithSeed fixes the random source for reproducible fixtures.
func WithSeed(seed int64) Option {
	return func(s *Snapshot) { s.rng = rand.New(rand.NewSource(seed)) }
}

// New creates an empty in-memory HNSW graph.
func New(dimensions int, opts ...Option) *Snapshot {
	s := &Snapshot{
		dimensions:     dimensions,
		distance:       distance.Euclidean,
		m:              16,
		mMax:           16,
		mMax0:          32,
		efConstruction: 200,
		nodes:          make(map[string]*node),
		maxLevel:       -1,
		rng:            rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.levelMult = 1.0 / math.Log(float64(s.m))
	return s
}

// Add inserts a vector under id, building its layer connections against
// the current graph. Not safe to call from the bulk importer's own
// goroutines; this type exists to build fixtures before import, not as a
// dual-write path (spec.md §4.8: the importer is single-threaded and not
// concurrent with online inserts).
func (s *Snapshot) Add(id []byte, vector []float32) error {
	if len(vector) != s.dimensions {
		return fmt.Errorf("origin: dimension mismatch: got %d, want %d", len(vector), s.dimensions)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	idStr := string(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[idStr]; exists {
		s.nodes[idStr].vector = v
		return nil
	}

	level := s.randomLevel()
	n := &node{id: idStr, vector: v, level: level, connections: make([]map[string]*node, level+1)}
	for i := 0; i <= level; i++ {
		n.connections[i] = make(map[string]*node)
	}
	s.nodes[idStr] = n
	s.order = append(s.order, idStr)

	if s.entryPoint == nil {
		s.entryPoint = n
		s.maxLevel = level
		return nil
	}

	ep := s.entryPoint
	for lc := s.maxLevel; lc > level; lc-- {
		ep = s.searchClosest(v, ep, lc)
	}

	top := level
	if s.maxLevel < top {
		top = s.maxLevel
	}
	for lc := top; lc >= 0; lc-- {
		candidates := s.searchLayer(v, ep, s.efConstruction, lc)
		bound := s.mMax
		if lc == 0 {
			bound = s.mMax0
		}
		selected := candidates
		if len(selected) > bound {
			selected = selected[:bound]
		}
		for _, neighbor := range selected {
			n.connections[lc][neighbor.id] = neighbor
			neighbor.connections[lc][n.id] = n
			if len(neighbor.connections[lc]) > bound {
				s.shrink(neighbor, lc, bound)
			}
		}
		if len(candidates) > 0 {
			ep = candidates[0]
		}
	}

	if level > s.maxLevel {
		s.entryPoint = n
		s.maxLevel = level
	}
	return nil
}

// Size returns the number of vectors in the graph.
func (s *Snapshot) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Node is the per-vertex view bulk.Importer consumes.
type Node struct {
	ExternalID  []byte
	Vector      []float32
	MaxLevel    int
	Connections [][][]byte // Connections[level] is that layer's neighbor external ids.
}

// Nodes returns every node in the graph in stable insertion order, each
// with its per-layer neighbor lists — the iterateNodes contract of
// spec.md §4.8.
func (s *Snapshot) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		n := s.nodes[id]
		conns := make([][][]byte, len(n.connections))
		for lvl, friends := range n.connections {
			ids := make([][]byte, 0, len(friends))
			for fid := range friends {
				ids = append(ids, []byte(fid))
			}
			conns[lvl] = ids
		}
		out = append(out, Node{
			ExternalID:  []byte(n.id),
			Vector:      append([]float32(nil), n.vector...),
			MaxLevel:    n.level,
			Connections: conns,
		})
	}
	return out
}

// EntryPoint returns the graph's entry-point external id and its level,
// or ok=false if the graph is empty.
func (s *Snapshot) EntryPoint() (id []byte, maxLevel int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entryPoint == nil {
		return nil, 0, false
	}
	return []byte(s.entryPoint.id), s.entryPoint.level, true
}

func (s *Snapshot) randomLevel() int {
	s.rngMu.Lock()
	r := s.rng.Float64()
	s.rngMu.Unlock()
	return int(math.Floor(-math.Log(r) * s.levelMult))
}

func (s *Snapshot) searchClosest(query []float32, entry *node, level int) *node {
	cur := entry
	curDist := s.distance(query, cur.vector)
	for {
		changed := false
		for _, friend := range cur.connections[level] {
			d := s.distance(query, friend.vector)
			if d < curDist {
				cur, curDist = friend, d
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return cur
}

type nodeEntry struct {
	n *node
	d distance.D
}

type nodeHeap struct {
	items []nodeEntry
	max   bool
}

func (h *nodeHeap) Len() int { return len(h.items) }
func (h *nodeHeap) Less(i, j int) bool {
	if h.max {
		return h.items[i].d > h.items[j].d
	}
	return h.items[i].d < h.items[j].d
}
func (h *nodeHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *nodeHeap) Push(x any)         { h.items = append(h.items, x.(nodeEntry)) }
func (h *nodeHeap) Pop() any {
	n := len(h.items)
	e := h.items[n-1]
	h.items = h.items[:n-1]
	return e
}

func (s *Snapshot) searchLayer(query []float32, entry *node, ef int, level int) []*node {
	visited := map[string]bool{entry.id: true}
	candidates := &nodeHeap{items: []nodeEntry{{entry, s.distance(query, entry.vector)}}}
	heap.Init(candidates)
	results := &nodeHeap{items: []nodeEntry{{entry, s.distance(query, entry.vector)}}, max: true}
	heap.Init(results)

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(nodeEntry)
		if c.d > results.items[0].d {
			break
		}
		for _, friend := range c.n.connections[level] {
			if visited[friend.id] {
				continue
			}
			visited[friend.id] = true
			d := s.distance(query, friend.vector)
			if results.Len() < ef || d < results.items[0].d {
				heap.Push(candidates, nodeEntry{friend, d})
				heap.Push(results, nodeEntry{friend, d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]*node, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(nodeEntry).n
	}
	return out
}

func (s *Snapshot) shrink(n *node, level int, bound int) {
	if len(n.connections[level]) <= bound {
		return
	}
	type fd struct {
		f *node
		d distance.D
	}
	all := make([]fd, 0, len(n.connections[level]))
	for _, f := range n.connections[level] {
		all = append(all, fd{f, s.distance(n.vector, f.vector)})
	}
	for i := 0; i < len(all)-1; i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].d < all[i].d {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	kept := make(map[string]*node, bound)
	for i := 0; i < bound && i < len(all); i++ {
		kept[all[i].f.id] = all[i].f
	}
	for id, f := range n.connections[level] {
		if _, ok := kept[id]; !ok {
			delete(f.connections[level], n.id)
		}
	}
	n.connections[level] = kept
}
