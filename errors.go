package hnswgraph

import "errors"

// Sentinel errors surfaced by the public API (spec.md §7). Storage
// failures are wrapped with fmt.Errorf("hnswgraph: ...: %w", err) rather
// than translated into one of these, exactly as the teacher wraps
// leveldb errors in levelgraph.go.
var (
	// ErrDimensionMismatch is returned by Add when the supplied vector's
	// length does not equal the index's configured dimensions.
	ErrDimensionMismatch = errors.New("hnswgraph: vector dimension mismatch")

	// ErrConfiguration is returned when a descriptor names a distance
	// function or comparator that is not registered (spec.md §7,
	// "unknown distance-function class name on load").
	ErrConfiguration = errors.New("hnswgraph: invalid configuration")

	// ErrUniqueConstraint names a vertex created for an external id that
	// already exists. No function of this package returns it: Index.Add
	// treats an already-indexed external id as an idempotent hit, and the
	// store reports duplicates with its own store.ErrUniqueConstraint.
	ErrUniqueConstraint = errors.New("hnswgraph: external id already indexed")
)
