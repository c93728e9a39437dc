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

// Package distance provides the abstract distance contract the HNSW core
// is built against, plus a handful of concrete distance functions for
// tests and callers that don't bring their own.
//
// The core (packages search, concurrency, and the root index) never
// assumes a specific distance function: it is handed one as a Func value
// and only ever compares distances with Lt/Gt, which treat Inf as strictly
// greater than every finite value. That is the "+∞-extended total order"
// spec.md §4.1 calls for — ordinary IEEE-754 infinity already has the
// right comparison semantics, so there is no need for a custom sentinel
// type.
package distance

import (
	"errors"
	"math"
	"sync"
)

// D is a distance value. Lower means more similar. Inf represents the
// "no value yet" initial lower bound described in spec.md §4.1; it is
// never returned by a real Func.
type D = float64

// Inf is the "+∞" sentinel: strictly greater than any distance a Func
// can produce.
var Inf D = math.Inf(1)

// Lt reports whether a is strictly closer than b under the extended order.
func Lt(a, b D) bool { return a < b }

// Gt reports whether a is strictly farther than b under the extended order.
func Gt(a, b D) bool { return a > b }

// Func computes the distance between two vectors. It must be a pure, total
// function; symmetry and the triangle inequality are not required (HNSW
// degrades gracefully without them, per spec.md §4.1).
type Func func(a, b []float32) D

// Comparator orders two distances, returning <0, 0, or >0 the way
// sort.Interface.Less's three-way cousins do. The natural order (Lt) is
// sufficient for every built-in Func; Comparator exists so a descriptor
// can name a non-default order and have it resolved symmetrically with
// the distance function itself (see Register/Lookup).
type Comparator func(a, b D) int

// NaturalOrder is the default Comparator: ascending by distance.
func NaturalOrder(a, b D) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Cosine computes cosine distance (1 - cosine similarity). 0 for identical
// direction, 2 for opposite direction.
func Cosine(a, b []float32) D {
	return 1 - CosineSimilarity(a, b)
}

// CosineSimilarity returns a value in [-1, 1].
func CosineSimilarity(a, b []float32) D {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / math.Sqrt(normA*normB)
}

// Euclidean computes squared Euclidean distance, avoiding a sqrt per
// comparison — safe because the HNSW search only ever compares distances,
// never adds them to anything that needs the true metric.
func Euclidean(a, b []float32) D {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}

// DotProduct returns the negative dot product, so that larger raw dot
// products become smaller distances.
func DotProduct(a, b []float32) D {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return -sum
}

// Normalize scales v to unit L2 norm in place and returns it.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, val := range v {
		norm += float64(val) * float64(val)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// ErrUnknownFunction names a distance function with no registration.
// Lookup does not return it; Lookup reports that case with ok=false.
var ErrUnknownFunction = errors.New("distance: unknown function name")

type registration struct {
	fn  Func
	cmp Comparator
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register associates a stable name with a distance function and its
// comparator, so a Descriptor (root package, C9) can persist the name and
// rehydrate both sides symmetrically on load. This replaces the source's
// reflective class-name lookup (spec.md §9 REDESIGN FLAGS): a small name
// registry instead of reflecting over types.
func Register(name string, fn Func, cmp Comparator) {
	if cmp == nil {
		cmp = NaturalOrder
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = registration{fn: fn, cmp: cmp}
}

// Lookup resolves a previously Registered distance function and comparator
// by name.
func Lookup(name string) (Func, Comparator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	if !ok {
		return nil, nil, false
	}
	return reg.fn, reg.cmp, true
}

func init() {
	Register("cosine", Cosine, NaturalOrder)
	Register("euclidean", Euclidean, NaturalOrder)
	Register("dot", DotProduct, NaturalOrder)
}
