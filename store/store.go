// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package store is the Graph Adapter (spec.md §4.2, C2): a thin facade over
// an external graph/storage engine. The engine itself — vertex CRUD, edge
// creation, transactions, the secondary index on the external id — is out
// of scope per spec.md §1; GraphStore is the contract the HNSW core is
// written against. LevelDBStore is the reference implementation that makes
// this module runnable end to end, backed by github.com/syndtr/goleveldb
// the way the teacher's levelgraph.DB is.
package store

import "context"

// VertexID is the storage engine's internal vertex identity — opaque,
// hashable, distinct from the caller-supplied ExternalID. Analogous to an
// ArcadeDB RID or a LevelDB-assigned row number.
type VertexID uint64

// NoVertex is the zero value meaning "no such vertex".
const NoVertex VertexID = 0

// Vertex is an indexed vertex: the caller's external id, its vector, and
// the HNSW level it was assigned at insertion (spec.md §3).
type Vertex struct {
	ID         VertexID
	ExternalID []byte
	Vector     []float32
	MaxLevel   int
}

// GraphStore is the Graph Adapter contract (spec.md §4.2). All operations
// are synchronous; callers needing atomicity across several calls use a
// Txn (below) or the concurrency package's locks.
type GraphStore interface {
	// VertexByExternalID resolves the unique secondary index on the
	// external id (spec.md §3 invariant 5). ok is false if absent.
	VertexByExternalID(ctx context.Context, externalID []byte) (v *Vertex, ok bool, err error)

	// ReadVertex loads a vertex by its internal identity.
	ReadVertex(ctx context.Context, id VertexID) (*Vertex, error)

	// CreateVertex inserts a new vertex, enforcing uniqueness of
	// externalID via the secondary index. Returns ErrUniqueConstraint if
	// externalID already exists.
	CreateVertex(ctx context.Context, externalID []byte, vector []float32) (*Vertex, error)

	// WriteMaxLevel persists vectorMaxLevel for v, atomically within the
	// host transaction.
	WriteMaxLevel(ctx context.Context, id VertexID, level int) error

	// OutNeighbors enumerates v's out-neighbors at the given layer, under
	// edge-type edgeTypePrefix||level.
	OutNeighbors(ctx context.Context, id VertexID, level int) ([]VertexID, error)

	// OutDegree counts v's out-neighbors at the given layer.
	OutDegree(ctx context.Context, id VertexID, level int) (int, error)

	// AddEdge creates a directed edge u->v at level. No uniqueness check;
	// the caller (search/heuristic callers) ensures no duplicates.
	AddEdge(ctx context.Context, from, to VertexID, level int) error

	// ReplaceOutEdges atomically replaces v's entire out-edge set at level
	// with neighbors, used by the re-prune path of spec.md §4.6 step 3 to
	// preserve invariant 3 (remove-then-insert in one transaction).
	ReplaceOutEdges(ctx context.Context, id VertexID, level int, neighbors []VertexID) error

	// DeleteVertex removes the vertex and all incident edges.
	DeleteVertex(ctx context.Context, id VertexID) error

	// EntryPoint returns the current entry point, or ok=false if the
	// index is empty.
	EntryPoint(ctx context.Context) (id VertexID, ok bool, err error)

	// SetEntryPoint persists the entry point. Safe to call only while
	// holding the concurrency package's global lock (spec.md §5).
	SetEntryPoint(ctx context.Context, id VertexID) error

	// Count returns the number of indexed vertices.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Batcher exposes the storage engine's "transactional begin/commit
// suitable for use in fixed-size batches during bulk import" contract
// (spec.md §6), consumed by package bulk.
type Batcher interface {
	// BeginBatch opens a new transaction. The caller must Commit it.
	BeginBatch(ctx context.Context) (Txn, error)
}

// Txn is a single bulk-import transaction: a batch of vertex/edge writes
// committed together, then reopened for the next batch (spec.md §4.8).
type Txn interface {
	// CreateVertex inserts a vertex with a pre-assigned level (0 meaning
	// "absent" per spec.md §3), returning its assigned VertexID.
	CreateVertex(externalID []byte, vector []float32, maxLevel int) (VertexID, error)
	// AddEdge records an edge to be committed with this transaction.
	AddEdge(from, to VertexID, level int) error
	// Commit flushes the batch to the store.
	Commit(ctx context.Context) error
}
