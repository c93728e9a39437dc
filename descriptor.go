package hnswgraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vectorgraph/hnswgraph/distance"
	"github.com/vectorgraph/hnswgraph/level"
)

// descriptorVersion is bumped whenever the Descriptor's JSON shape
// changes incompatibly.
const descriptorVersion = 1

// Descriptor is the compact, flat JSON parameter blob of spec.md §6: the
// graph itself lives in the storage engine, not here. distanceFunction and
// distanceComparator are looked up in the distance registry (C13) on
// load, rather than the source's reflective class-name lookup.
type Descriptor struct {
	Version            int     `json:"version"`
	Dimensions         int     `json:"dimensions"`
	DistanceFunction   string  `json:"distanceFunction"`
	DistanceComparator string  `json:"distanceComparator"`
	MaxItemCount       int     `json:"maxItemCount"`
	M                  int     `json:"m"`
	MaxM               int     `json:"maxM"`
	MaxM0              int     `json:"maxM0"`
	LevelLambda        float64 `json:"levelLambda"`
	Ef                 int     `json:"ef"`
	EfConstruction     int     `json:"efConstruction"`
	EntryPoint         string  `json:"entryPoint"`
	VertexType         string  `json:"vertexType"`
	EdgeType           string  `json:"edgeType"`
	IDPropertyName     string  `json:"idPropertyName"`
	VectorPropertyName string  `json:"vectorPropertyName"`
}

// Descriptor snapshots ix's configuration, resolving the current entry
// point's external id if one exists. distanceName must have been set at
// construction (NewBuilderByName, or NewBuilder followed by
// WithDistanceName) for the result to round-trip through LoadDescriptor;
// otherwise DistanceFunction is left empty.
func (ix *Index) Descriptor(ctx context.Context) (Descriptor, error) {
	d := Descriptor{
		Version:            descriptorVersion,
		Dimensions:         ix.dimensions,
		DistanceFunction:   ix.distanceName,
		DistanceComparator: ix.distanceName,
		MaxItemCount:       ix.maxItemCount,
		M:                  ix.m,
		MaxM:               ix.maxM,
		MaxM0:              ix.maxM0,
		LevelLambda:        level.Lambda(ix.m),
		Ef:                 ix.ef,
		EfConstruction:     ix.efConstruction,
		VertexType:         ix.vertexType,
		EdgeType:           ix.edgeType,
		IDPropertyName:     ix.idPropertyName,
		VectorPropertyName: ix.vectorPropertyName,
	}

	epID, ok, err := ix.store.EntryPoint(ctx)
	if err != nil {
		return Descriptor{}, fmt.Errorf("hnswgraph: descriptor: %w", err)
	}
	if ok {
		epVertex, err := ix.store.ReadVertex(ctx, epID)
		if err != nil {
			return Descriptor{}, fmt.Errorf("hnswgraph: descriptor: %w", err)
		}
		d.EntryPoint = string(epVertex.ExternalID)
	}
	return d, nil
}

// MarshalDescriptor serializes ix's Descriptor to JSON.
func (ix *Index) MarshalDescriptor(ctx context.Context) ([]byte, error) {
	d, err := ix.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("hnswgraph: marshal descriptor: %w", err)
	}
	return b, nil
}

// LoadDescriptor rebuilds a Builder from a previously marshaled
// Descriptor, resolving distanceFunction through the distance registry.
// distanceComparator is looked up in the same registry and an unknown
// name is rejected with ErrConfiguration, but the comparator it resolves
// to is not used: the built Index always orders distances ascending with
// distance.Lt/distance.Gt. The caller still supplies WithStore before
// Build, since the storage engine connection is not part of the
// descriptor.
func LoadDescriptor(d Descriptor) (*Builder, error) {
	fn, _, ok := distance.Lookup(d.DistanceFunction)
	if !ok {
		return nil, fmt.Errorf("hnswgraph: load descriptor: %w: %q", ErrConfiguration, d.DistanceFunction)
	}
	if _, _, ok := distance.Lookup(d.DistanceComparator); !ok {
		return nil, fmt.Errorf("hnswgraph: load descriptor: %w: %q", ErrConfiguration, d.DistanceComparator)
	}

	b := NewBuilder(d.Dimensions, fn, d.MaxItemCount)
	b.distanceName = d.DistanceFunction
	b.m = d.M
	b.ef = d.Ef
	b.efConstruction = d.EfConstruction
	b.vertexType = d.VertexType
	b.edgeType = d.EdgeType
	b.idPropertyName = d.IDPropertyName
	b.vectorPropertyName = d.VectorPropertyName
	return b, nil
}
