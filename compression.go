/*
Copyright © 2024 the cfnc authors.
This file is part of cfnc.

cfnc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cfnc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cfnc.  If not, see <http://www.gnu.org/licenses/>.
*/

package cfnc

import (
	"github.com/ctessum/sparse"
)

// Description describes a compressed array: its compression type, logical
// shape and the auxiliary buffers of that type.
type Description struct {
	Type  CompressionType
	Shape []int

	// DataType is the element type of sparse and aggregated arrays.
	DataType DataType

	// Data is the stored data of ragged and gathered arrays and the tie
	// points of subsampled arrays.
	Data Array

	// Count and Index are the ragged count and index arrays.
	Count, Index Array

	// List is the gathered list array. Axis is the position of the list
	// axis in Data and N the number of logical axes it replaces.
	List    Array
	Axis, N int

	// TiePointIndex, Interpolation and Parameters describe subsampling.
	TiePointIndex map[int]Array
	Interpolation string
	Parameters    map[string]InterpolationParameter

	// Sparse is the backing array of a sparse array. Masked makes absent
	// elements missing instead of zero.
	Sparse *sparse.SparseArray
	Masked bool

	// FragmentSizes, Fragments and Options describe an aggregation.
	FragmentSizes [][]int
	Fragments     []Fragment
	Options       []AggregatedOption
}

var builders = map[CompressionType]func(Description) (Compressed, error){
	RaggedContiguousType: func(d Description) (Compressed, error) {
		return NewRaggedContiguous(d.Data, d.Count, d.Shape)
	},
	RaggedIndexedType: func(d Description) (Compressed, error) {
		return NewRaggedIndexed(d.Data, d.Index, d.Shape)
	},
	RaggedIndexedContiguousType: func(d Description) (Compressed, error) {
		return NewRaggedIndexedContiguous(d.Data, d.Count, d.Index, d.Shape)
	},
	GatheredType: func(d Description) (Compressed, error) {
		return NewGathered(d.Data, d.List, d.Shape, d.Axis, d.N)
	},
	SubsampledType: func(d Description) (Compressed, error) {
		return NewSubsampled(d.Data, d.Shape, d.Interpolation, d.TiePointIndex, d.Parameters)
	},
	SparseType: func(d Description) (Compressed, error) {
		return NewSparseBacked(d.Sparse, d.DataType, d.Masked)
	},
	AggregatedType: func(d Description) (Compressed, error) {
		return NewAggregated(d.DataType, d.Shape, d.FragmentSizes, d.Fragments, d.Options...)
	},
}

// required lists the buffers each compression type needs.
var required = map[CompressionType][]string{
	RaggedContiguousType:        {"Data", "Count"},
	RaggedIndexedType:           {"Data", "Index"},
	RaggedIndexedContiguousType: {"Data", "Count", "Index"},
	GatheredType:                {"Data", "List"},
	SubsampledType:              {"Data"},
}

// Build constructs the compressed array described by d.
func Build(d Description) (Compressed, error) {
	b, ok := builders[d.Type]
	if !ok {
		return nil, validationf("Build", "unknown compression type %q", d.Type)
	}
	for _, name := range required[d.Type] {
		var a Array
		switch name {
		case "Data":
			a = d.Data
		case "Count":
			a = d.Count
		case "Index":
			a = d.Index
		case "List":
			a = d.List
		}
		if a == nil {
			return nil, validationf("Build", "%s compression needs %s", d.Type, name)
		}
	}
	return b(d)
}

// CompressedDimensions returns the compressed dimension map that the
// described array will have.
func (d Description) CompressedDimensions() (map[int][]int, error) {
	const op = "Description.CompressedDimensions"
	switch d.Type {
	case RaggedContiguousType, RaggedIndexedType:
		if len(d.Shape) < 2 {
			return nil, ConfigurationError{Op: op, Msg: "logical shape is not known"}
		}
		return map[int][]int{0: {0, 1}}, nil
	case RaggedIndexedContiguousType:
		if len(d.Shape) < 3 {
			return nil, ConfigurationError{Op: op, Msg: "logical shape is not known"}
		}
		return map[int][]int{0: {0, 1, 2}}, nil
	case GatheredType:
		if d.N < 1 {
			return nil, ConfigurationError{Op: op, Msg: "gathered axes are not known"}
		}
		axes := make([]int, d.N)
		for i := range axes {
			axes[i] = d.Axis + i
		}
		return map[int][]int{d.Axis: axes}, nil
	case SubsampledType:
		if len(d.TiePointIndex) == 0 {
			return nil, ConfigurationError{Op: op, Msg: "subsampled axes are not known"}
		}
		m := make(map[int][]int, len(d.TiePointIndex))
		for a := range d.TiePointIndex {
			m[a] = []int{a}
		}
		return m, nil
	case SparseType, AggregatedType:
		return map[int][]int{}, nil
	}
	return nil, validationf(op, "unknown compression type %q", d.Type)
}

// NoDimensionAxes returns the logical axes of c that have no netCDF
// dimension of their own, because they only exist through the compressed
// sample dimension.
func NoDimensionAxes(c Compressed) []int {
	switch c.(type) {
	case *RaggedContiguous, *RaggedIndexed:
		return []int{1}
	case *RaggedIndexedContiguous:
		return []int{1, 2}
	}
	return nil
}
