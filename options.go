package hnswgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vectorgraph/hnswgraph/bulk"
	"github.com/vectorgraph/hnswgraph/concurrency"
	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/origin"
	"github.com/vectorgraph/hnswgraph/store"
)

// Defaults, matching the teacher's vector.HNSWIndex (vector/hnsw.go)
// defaults of m=16, efConstruction=200, since spec.md does not itself
// prescribe numeric defaults.
const (
	DefaultM              = 16
	DefaultEf              = 50
	DefaultEfConstruction  = 200
	DefaultTransactionSize = bulk.DefaultBatchSize
)

// Builder assembles an Index, the chainable construction surface of
// spec.md §6 ("newBuilder(...) chainable with options"). It follows the
// teacher's functional-options idiom in spirit (options.go's
// Option func(*Options) with With... constructors) but exposes chainable
// setters directly on the builder, since several of spec.md's accessors
// (notably ef) must stay mutable on the built Index itself rather than
// being fixed once at construction.
type Builder struct {
	dimensions   int
	distanceFn   distance.Func
	distanceName string
	maxItemCount int

	store store.GraphStore

	m              int
	ef             int
	efConstruction int

	vertexType         string
	edgeType           string
	idPropertyName     string
	vectorPropertyName string

	logger *slog.Logger

	seed *origin.Snapshot
}

// NewBuilder starts a Builder for an index over the given dimensions and
// distance function, with the advisory maxItemCount of spec.md §3 (stored
// on the descriptor, not enforced — see DESIGN.md).
func NewBuilder(dimensions int, distanceFn distance.Func, maxItemCount int) *Builder {
	return &Builder{
		dimensions:         dimensions,
		distanceFn:         distanceFn,
		maxItemCount:       maxItemCount,
		m:                  DefaultM,
		ef:                 DefaultEf,
		efConstruction:     DefaultEfConstruction,
		vertexType:         "IndexedVector",
		edgeType:           "HnswLayer",
		idPropertyName:     "externalId",
		vectorPropertyName: "vector",
	}
}

// NewBuilderByName resolves distanceName through the distance registry
// (C13) instead of taking a distance.Func directly, so the resulting
// Index's Descriptor round-trips through LoadDescriptor without the
// caller separately confirming the function and its registered name
// agree.
func NewBuilderByName(dimensions int, distanceName string, maxItemCount int) (*Builder, error) {
	fn, _, ok := distance.Lookup(distanceName)
	if !ok {
		return nil, fmt.Errorf("hnswgraph: %w: %q", ErrConfiguration, distanceName)
	}
	b := NewBuilder(dimensions, fn, maxItemCount)
	b.distanceName = distanceName
	return b, nil
}

// WithStore sets the GraphStore backing the index. Required.
func (b *Builder) WithStore(s store.GraphStore) *Builder {
	b.store = s
	return b
}

// WithM sets the target out-degree per upper layer; maxM0 = 2*m.
func (b *Builder) WithM(m int) *Builder {
	b.m = m
	return b
}

// WithEf sets the default query-time candidate list size. Mutable later
// via Index.SetEf.
func (b *Builder) WithEf(ef int) *Builder {
	b.ef = ef
	return b
}

// WithEfConstruction sets the insertion-time candidate list size.
func (b *Builder) WithEfConstruction(ef int) *Builder {
	b.efConstruction = ef
	return b
}

// WithLogger attaches a structured logger (C12). Nil is safe and is the
// zero value's behavior: no logging.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithDistanceName names the distance function for descriptor
// serialization (C13), when the Builder was constructed via NewBuilder
// with a literal distance.Func rather than NewBuilderByName.
func (b *Builder) WithDistanceName(name string) *Builder {
	b.distanceName = name
	return b
}

// WithSchema overrides the vertex/edge type and property names used in
// the descriptor and (where the store honors them) the storage engine's
// schema.
func (b *Builder) WithSchema(vertexType, edgeType, idPropertyName, vectorPropertyName string) *Builder {
	b.vertexType = vertexType
	b.edgeType = edgeType
	b.idPropertyName = idPropertyName
	b.vectorPropertyName = vectorPropertyName
	return b
}

// SeedFromSnapshot arranges for Build to bulk-import o before returning
// the Index, via package bulk (C8).
func (b *Builder) SeedFromSnapshot(o *origin.Snapshot) *Builder {
	b.seed = o
	return b
}

// Build validates the configuration and returns a ready Index, bulk
// importing the seed snapshot first if one was set.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	if b.store == nil {
		return nil, fmt.Errorf("hnswgraph: build: %w: no store configured", ErrConfiguration)
	}
	if b.dimensions <= 0 {
		return nil, fmt.Errorf("hnswgraph: build: %w: dimensions must be positive", ErrConfiguration)
	}
	if b.m < 2 {
		return nil, fmt.Errorf("hnswgraph: build: %w: m must be >= 2", ErrConfiguration)
	}

	efConstruction := b.efConstruction
	if efConstruction < b.m {
		efConstruction = b.m
	}

	ix := &Index{
		store:              b.store,
		distanceFn:         b.distanceFn,
		distanceName:       b.distanceName,
		dimensions:         b.dimensions,
		maxItemCount:       b.maxItemCount,
		m:                  b.m,
		maxM:               b.m,
		maxM0:              b.m * 2,
		ef:                 b.ef,
		efConstruction:     efConstruction,
		vertexType:         b.vertexType,
		edgeType:           b.edgeType,
		idPropertyName:     b.idPropertyName,
		vectorPropertyName: b.vectorPropertyName,
		logger:             b.logger,
		ctrl:               concurrency.New(),
	}

	if b.seed != nil {
		importer := bulk.NewImporter(DefaultTransactionSize, b.logger)
		if err := importer.Import(ctx, b.seed, b.store); err != nil {
			return nil, fmt.Errorf("hnswgraph: build: seed import: %w", err)
		}
	}

	return ix, nil
}
