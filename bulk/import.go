// Package bulk implements the bulk ingestion pipeline of spec.md §4.8
// (C8): rehydrating a pre-built in-memory HNSW (package origin) into a
// persistent store.GraphStore in fixed-size transactional batches,
// single-threaded and not concurrent with online inserts.
//
// The four-pass structure — materialize vertices, assign the entry
// point, a log-only edge-type step, wire edges — is grounded on the teacher's journal.go batch-write
// style (bounded-size transactions, committed and reopened) and on
// vectors.go's LoadVectors, which iterates a bulk source and writes it
// through in one streaming pass.
package bulk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vectorgraph/hnswgraph/origin"
	"github.com/vectorgraph/hnswgraph/store"
)

// DefaultBatchSize is used when Importer is constructed with batchSize <= 0.
const DefaultBatchSize = 500

// Importer streams an origin.Snapshot into a store.GraphStore.
type Importer struct {
	batchSize int
	logger    *slog.Logger
}

// NewImporter creates an Importer committing every batchSize vertices (and
// again every batchSize nodes' worth of edges). A batchSize <= 0 uses
// DefaultBatchSize. logger may be nil.
func NewImporter(batchSize int, logger *slog.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{batchSize: batchSize, logger: logger}
}

func (imp *Importer) logInfo(msg string, args ...any) {
	if imp.logger != nil {
		imp.logger.Info(msg, args...)
	}
}

// Import runs the full pipeline of spec.md §4.8 against gs, which must
// also implement store.Batcher.
func (imp *Importer) Import(ctx context.Context, o *origin.Snapshot, gs store.GraphStore) error {
	batcher, ok := gs.(store.Batcher)
	if !ok {
		return fmt.Errorf("bulk: store %T does not implement Batcher", gs)
	}

	nodes := o.Nodes()
	imp.logInfo("bulk import starting", "nodes", len(nodes))

	mapping := make(map[string]store.VertexID, len(nodes))
	globalMaxLevel := 0

	// Pass 1 — materialize vertices.
	for start := 0; start < len(nodes); start += imp.batchSize {
		end := start + imp.batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		txn, err := batcher.BeginBatch(ctx)
		if err != nil {
			return fmt.Errorf("bulk: begin vertex batch: %w", err)
		}
		for _, n := range nodes[start:end] {
			id, err := txn.CreateVertex(n.ExternalID, n.Vector, n.MaxLevel)
			if err != nil {
				return fmt.Errorf("bulk: create vertex %q: %w", n.ExternalID, err)
			}
			mapping[string(n.ExternalID)] = id
			if n.MaxLevel > globalMaxLevel {
				globalMaxLevel = n.MaxLevel
			}
		}
		if err := txn.Commit(ctx); err != nil {
			return fmt.Errorf("bulk: commit vertex batch: %w", err)
		}
		imp.logInfo("bulk import vertices committed", "batch_end", end)
	}

	// Pass 2 — assign entry point.
	if epID, _, ok := o.EntryPoint(); ok {
		epVertexID, ok := mapping[string(epID)]
		if !ok {
			return fmt.Errorf("bulk: origin entry point %q not found among materialized vertices", epID)
		}
		if err := gs.SetEntryPoint(ctx, epVertexID); err != nil {
			return fmt.Errorf("bulk: set entry point: %w", err)
		}
	}

	// Pass 3 — pre-create edge types for every layer 0..globalMaxLevel.
	// This store's key-range scheme needs no schema registration step
	// (LevelDB has none); the pass exists here only to keep the pipeline
	// shape faithful to spec.md §4.8 and as a place a schema-backed
	// GraphStore implementation would hook in.
	imp.logInfo("bulk import edge types ready", "layers", globalMaxLevel+1)

	// Pass 4 — wire edges.
	for start := 0; start < len(nodes); start += imp.batchSize {
		end := start + imp.batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		txn, err := batcher.BeginBatch(ctx)
		if err != nil {
			return fmt.Errorf("bulk: begin edge batch: %w", err)
		}
		for _, n := range nodes[start:end] {
			from, ok := mapping[string(n.ExternalID)]
			if !ok {
				continue
			}
			for level, neighbors := range n.Connections {
				for _, neighborID := range neighbors {
					to, ok := mapping[string(neighborID)]
					if !ok {
						continue
					}
					if err := txn.AddEdge(from, to, level); err != nil {
						return fmt.Errorf("bulk: add edge %q->%q at level %d: %w", n.ExternalID, neighborID, level, err)
					}
				}
			}
		}
		if err := txn.Commit(ctx); err != nil {
			return fmt.Errorf("bulk: commit edge batch: %w", err)
		}
		imp.logInfo("bulk import edges committed", "batch_end", end)
	}

	imp.logInfo("bulk import complete", "nodes", len(nodes), "global_max_level", globalMaxLevel)
	return nil
}
