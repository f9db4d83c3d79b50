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
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Masked holds the result of reading an array: dense values in row-major
// order together with a validity mask.
type Masked struct {
	*sparse.DenseArray

	// Mask is true where an element is missing. A nil Mask means that no
	// element is missing.
	Mask []bool

	// Strings holds the elements of text arrays. The numeric elements of
	// text arrays are unused.
	Strings []string

	Type DataType
}

// NewMasked returns an unmasked array of zeros (or empty strings for Char)
// with the given shape.
func NewMasked(t DataType, shape ...int) *Masked {
	s := make([]int, len(shape))
	copy(s, shape)
	m := &Masked{DenseArray: sparse.ZerosDense(s...), Type: t}
	if t == Char {
		m.Strings = make([]string, len(m.Elements))
	}
	return m
}

// Len returns the number of elements.
func (m *Masked) Len() int { return len(m.Elements) }

// IsMasked reports whether the element at flat index i is missing.
func (m *Masked) IsMasked(i int) bool { return m.Mask != nil && m.Mask[i] }

// SetMasked sets whether the element at flat index i is missing.
func (m *Masked) SetMasked(i int, masked bool) {
	if m.Mask == nil {
		if !masked {
			return
		}
		m.Mask = make([]bool, len(m.Elements))
	}
	m.Mask[i] = masked
}

// Count returns the number of elements that are not missing.
func (m *Masked) Count() int {
	n := 0
	for i := range m.Elements {
		if !m.IsMasked(i) {
			n++
		}
	}
	return n
}

// At returns the value at the given position and whether it is valid.
func (m *Masked) At(index ...int) (float64, bool) {
	i := flat(m.Shape, index)
	return m.Elements[i], !m.IsMasked(i)
}

// Text returns the text element at the given position and whether it
// is valid.
func (m *Masked) Text(index ...int) (string, bool) {
	i := flat(m.Shape, index)
	return m.Strings[i], !m.IsMasked(i)
}

// Filled returns a copy of the values with missing elements replaced by fill.
func (m *Masked) Filled(fill float64) []float64 {
	o := make([]float64, len(m.Elements))
	for i, v := range m.Elements {
		if m.IsMasked(i) {
			o[i] = fill
		} else {
			o[i] = v
		}
	}
	return o
}

// Ints returns the values as integers. It fails if any value is missing
// or not integral.
func (m *Masked) Ints(op string) ([]int, error) {
	o := make([]int, len(m.Elements))
	for i, v := range m.Elements {
		if m.IsMasked(i) {
			return nil, validationf(op, "element %d is missing", i)
		}
		if v != math.Trunc(v) {
			return nil, validationf(op, "element %d (%g) is not an integer", i, v)
		}
		o[i] = int(v)
	}
	return o, nil
}

// Equal reports whether m and o have the same shape, the same mask, and
// values that are equal within the given absolute or relative tolerance.
func (m *Masked) Equal(o *Masked, absTol, relTol float64) bool {
	if len(m.Shape) != len(o.Shape) || len(m.Elements) != len(o.Elements) {
		return false
	}
	for i, n := range m.Shape {
		if o.Shape[i] != n {
			return false
		}
	}
	text := m.Strings != nil || o.Strings != nil
	if text && (m.Strings == nil || o.Strings == nil) {
		return false
	}
	for i, v := range m.Elements {
		if m.IsMasked(i) != o.IsMasked(i) {
			return false
		}
		if m.IsMasked(i) {
			continue
		}
		if text {
			if m.Strings[i] != o.Strings[i] {
				return false
			}
			continue
		}
		w := o.Elements[i]
		if math.IsNaN(v) && math.IsNaN(w) {
			continue
		}
		if !floats.EqualWithinAbsOrRel(v, w, absTol, relTol) {
			return false
		}
	}
	return true
}

// copyFrom copies element j of src into element i of m.
func (m *Masked) copyFrom(i int, src *Masked, j int) {
	m.Elements[i] = src.Elements[j]
	if m.Strings != nil && src.Strings != nil {
		m.Strings[i] = src.Strings[j]
	}
	if src.IsMasked(j) {
		m.SetMasked(i, true)
	}
}

// subset returns the elements of m chosen by sel.
func (m *Masked) subset(sel *selection) *Masked {
	o := NewMasked(m.Type, sel.shape()...)
	st := strides(m.Shape)
	sel.each(func(out int, p []int) error {
		j := 0
		for a, v := range p {
			j += v * st[a]
		}
		o.copyFrom(out, m, j)
		return nil
	})
	return o
}

// reshape returns m with a new shape holding the same number of elements.
func (m *Masked) reshape(shape []int) *Masked {
	o := NewMasked(m.Type, shape...)
	copy(o.Elements, m.Elements)
	if m.Strings != nil {
		o.Strings = m.Strings
	}
	if m.Mask != nil {
		o.Mask = m.Mask
	}
	return o
}

func flat(shape, index []int) int {
	st := strides(shape)
	i := 0
	for a, v := range index {
		i += v * st[a]
	}
	return i
}
