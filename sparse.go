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

// SparseBacked presents a sparse array through the Array contract.
// Elements that are not stored read as zero, or as missing if the array
// was created with masked set.
type SparseBacked struct {
	s      *sparse.SparseArray
	dtype  DataType
	masked bool
}

// NewSparseBacked returns an array backed by s.
func NewSparseBacked(s *sparse.SparseArray, dtype DataType, masked bool) (*SparseBacked, error) {
	if s == nil {
		return nil, validationf("NewSparseBacked", "nil sparse array")
	}
	if !dtype.Valid() || dtype == Char {
		return nil, validationf("NewSparseBacked", "unsupported data type %v", dtype)
	}
	size := product(s.Shape)
	for k := range s.Elements {
		if k < 0 || k >= size {
			return nil, validationf("NewSparseBacked", "element %d is outside an array of shape %v", k, s.Shape)
		}
	}
	return &SparseBacked{s: s, dtype: dtype, masked: masked}, nil
}

func (s *SparseBacked) compressed()                      {}
func (s *SparseBacked) CompressionType() CompressionType { return SparseType }

func (s *SparseBacked) Shape() []int {
	if s.s == nil {
		return nil
	}
	return append([]int{}, s.s.Shape...)
}

func (s *SparseBacked) DataType() DataType { return s.dtype }

// Sparse returns the backing array.
func (s *SparseBacked) Sparse() *sparse.SparseArray { return s.s }

// CompressedDimensions returns an empty map: a sparse array is written to
// netCDF in its dense form.
func (s *SparseBacked) CompressedDimensions() (map[int][]int, error) {
	if s.s == nil {
		return nil, ConfigurationError{Op: "SparseBacked.CompressedDimensions", Msg: "array has not been built"}
	}
	return map[int][]int{}, nil
}

func (s *SparseBacked) Read(index ...AxisIndex) (*Masked, error) {
	if s.s == nil {
		return nil, ConfigurationError{Op: "SparseBacked.Read", Msg: "array has not been built"}
	}
	sel, err := selectIndex("SparseBacked.Read", s.s.Shape, index)
	if err != nil {
		return nil, err
	}
	out := NewMasked(s.dtype, sel.shape()...)
	st := strides(s.s.Shape)
	sel.each(func(o int, p []int) error {
		j := 0
		for a, v := range p {
			j += v * st[a]
		}
		v, ok := s.s.Elements[j]
		if !ok && s.masked {
			out.SetMasked(o, true)
			return nil
		}
		out.Elements[o] = v
		return nil
	})
	return out, nil
}

// ToMemory returns a copy of s.
func (s *SparseBacked) ToMemory() (Array, error) {
	return &SparseBacked{s: s.s.Copy(), dtype: s.dtype, masked: s.masked}, nil
}

func (s *SparseBacked) Filenames() []string { return nil }
