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

import "fmt"

// Array is a lazily evaluated multidimensional array presented in its
// logical (uncompressed) shape.
type Array interface {
	// Shape returns the logical shape. Scalars have an empty shape.
	Shape() []int

	DataType() DataType

	// Read returns the elements selected by index. Omitted trailing
	// indices select whole axes.
	Read(index ...AxisIndex) (*Masked, error)

	// ToMemory returns an equivalent array whose buffers are all held in
	// memory, so that it no longer depends on any open file.
	ToMemory() (Array, error)

	// Filenames returns every external location contributing data.
	Filenames() []string
}

// CompressionType identifies the encoding of a compressed array.
type CompressionType string

// The supported compression types.
const (
	RaggedContiguousType        CompressionType = "ragged_contiguous"
	RaggedIndexedType           CompressionType = "ragged_indexed"
	RaggedIndexedContiguousType CompressionType = "ragged_indexed_contiguous"
	GatheredType                CompressionType = "gathered"
	SubsampledType              CompressionType = "subsampled"
	SparseType                  CompressionType = "sparse"
	AggregatedType              CompressionType = "cfa"
)

// Compressed is an array stored in one of the compact encodings. The set of
// implementations is closed: *RaggedContiguous, *RaggedIndexed,
// *RaggedIndexedContiguous, *Gathered, *Subsampled, *SparseBacked
// and *Aggregated.
type Compressed interface {
	Array

	CompressionType() CompressionType

	// CompressedDimensions maps each compressed axis to the logical axes it
	// encodes. Logical axes that do not appear are passed through unchanged.
	CompressedDimensions() (map[int][]int, error)

	compressed()
}

// Dense is an in-memory array.
type Dense struct {
	m *Masked
}

// NewDense returns an in-memory array with the given shape and values in
// row-major order. A nil values slice gives an array of zeros.
func NewDense(t DataType, shape []int, values []float64) *Dense {
	return NewMaskedDense(t, shape, values, nil)
}

// NewMaskedDense returns an in-memory array where elements with a true
// mask value are missing. mask may be nil.
func NewMaskedDense(t DataType, shape []int, values []float64, mask []bool) *Dense {
	m := NewMasked(t, shape...)
	if values != nil {
		if len(values) != len(m.Elements) {
			panic(fmt.Errorf("cfnc: %d values given for shape %v", len(values), shape))
		}
		copy(m.Elements, values)
	}
	if mask != nil {
		if len(mask) != len(m.Elements) {
			panic(fmt.Errorf("cfnc: %d mask values given for shape %v", len(mask), shape))
		}
		for i, v := range mask {
			m.SetMasked(i, v)
		}
	}
	return &Dense{m: m}
}

// NewStrings returns an in-memory text array. Empty strings are missing.
func NewStrings(shape []int, values []string) *Dense {
	m := NewMasked(Char, shape...)
	if len(values) != len(m.Strings) {
		panic(fmt.Errorf("cfnc: %d strings given for shape %v", len(values), shape))
	}
	for i, v := range values {
		m.Strings[i] = v
		if v == "" {
			m.SetMasked(i, true)
		}
	}
	return &Dense{m: m}
}

// NewDenseFrom wraps the result of a read as an in-memory array.
func NewDenseFrom(m *Masked) *Dense { return &Dense{m: m} }

func (d *Dense) Shape() []int {
	s := make([]int, len(d.m.Shape))
	copy(s, d.m.Shape)
	return s
}

func (d *Dense) DataType() DataType { return d.m.Type }

func (d *Dense) Read(index ...AxisIndex) (*Masked, error) {
	sel, err := selectIndex("Dense.Read", d.m.Shape, index)
	if err != nil {
		return nil, err
	}
	return d.m.subset(sel), nil
}

// ToMemory returns d.
func (d *Dense) ToMemory() (Array, error) { return d, nil }

func (d *Dense) Filenames() []string { return nil }

// Reshape returns an array holding the elements of a in row-major order with
// a new shape. It is used to add or remove size-1 axes.
func Reshape(a Array, shape ...int) (Array, error) {
	if product(shape) != product(a.Shape()) {
		return nil, validationf("Reshape", "cannot reshape %v to %v", a.Shape(), shape)
	}
	return &reshaped{a: a, shape: append([]int{}, shape...)}, nil
}

type reshaped struct {
	a     Array
	shape []int
}

func (r *reshaped) Shape() []int       { return append([]int{}, r.shape...) }
func (r *reshaped) DataType() DataType { return r.a.DataType() }
func (r *reshaped) Filenames() []string {
	return r.a.Filenames()
}

func (r *reshaped) Read(index ...AxisIndex) (*Masked, error) {
	sel, err := selectIndex("Reshape.Read", r.shape, index)
	if err != nil {
		return nil, err
	}
	m, err := r.a.Read()
	if err != nil {
		return nil, err
	}
	return m.reshape(r.shape).subset(sel), nil
}

func (r *reshaped) ToMemory() (Array, error) {
	a, err := r.a.ToMemory()
	if err != nil {
		return nil, err
	}
	return &reshaped{a: a, shape: r.shape}, nil
}
