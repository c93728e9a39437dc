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

// Package hnswgraph is a persistent, graph-backed implementation of the
// Hierarchical Navigable Small World (HNSW) approximate nearest-neighbor
// index. Vectors are stored as vertices of a property graph; HNSW layer
// adjacency is materialized as typed directed edges, one edge-type per
// layer, in an external graph/storage engine reached through the store
// package. The index supports insertion and k-NN query against a caller
// supplied distance function, can be seeded from an in-memory HNSW
// snapshot (package origin) via a single bulk import (package bulk), and
// is serializable as a compact parameter Descriptor — the graph itself
// lives in the storage engine, not in the descriptor.
package hnswgraph
