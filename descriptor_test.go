package hnswgraph

import (
	"context"
	"testing"

	"github.com/vectorgraph/hnswgraph/memstore"
	"github.com/vectorgraph/hnswgraph/store"
)

func TestDescriptorRoundTripsThroughLoadDescriptor(t *testing.T) {
	ctx := context.Background()
	b, err := NewBuilderByName(4, "cosine", 1000)
	if err != nil {
		t.Fatalf("NewBuilderByName: %v", err)
	}
	b.WithStore(store.NewLevelDBStore(memstore.New(), nil)).WithM(8).WithEf(64).WithEfConstruction(128)
	ix, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := ix.Add(ctx, []byte("seed"), []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	raw, err := ix.MarshalDescriptor(ctx)
	if err != nil {
		t.Fatalf("MarshalDescriptor: %v", err)
	}

	d, err := ix.Descriptor(ctx)
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if d.EntryPoint != "seed" {
		t.Fatalf("expected entryPoint %q, got %q", "seed", d.EntryPoint)
	}
	if d.Dimensions != 4 || d.M != 8 || d.Ef != 64 || d.EfConstruction != 128 {
		t.Fatalf("unexpected descriptor fields: %+v", d)
	}

	rebuilt, err := LoadDescriptor(d)
	if err != nil {
		t.Fatalf("LoadDescriptor: %v", err)
	}
	if rebuilt.dimensions != 4 || rebuilt.m != 8 {
		t.Fatalf("LoadDescriptor did not restore configuration: %+v", rebuilt)
	}

	if len(raw) == 0 {
		t.Fatalf("expected non-empty marshaled descriptor")
	}
}

func TestLoadDescriptorRejectsUnknownDistanceName(t *testing.T) {
	d := Descriptor{
		Dimensions:         2,
		DistanceFunction:   "not-a-real-function",
		DistanceComparator: "not-a-real-function",
	}
	if _, err := LoadDescriptor(d); err == nil {
		t.Fatalf("expected error for unknown distance function name")
	}
}
