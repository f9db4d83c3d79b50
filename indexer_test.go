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
	"errors"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

func memSource(t DataType, shape []int, values []float64) *MemorySource {
	raw := sparse.ZerosDense(shape...)
	copy(raw.Elements, values)
	return NewMemorySource(t, raw)
}

func maskOf(m *Masked) []bool {
	o := make([]bool, m.Len())
	for i := range o {
		o[i] = m.IsMasked(i)
	}
	return o
}

func TestIndexerMasking(t *testing.T) {
	src := memSource(Short, []int{2, 3}, []float64{1, -999, 3, -32767, 50, -5})
	tests := []struct {
		name  string
		attrs Attributes
		mask  []bool
	}{
		{
			name:  "default fill",
			attrs: Attributes{},
			mask:  []bool{false, false, false, true, false, false},
		},
		{
			name:  "fill value",
			attrs: Attributes{"_FillValue": int16(-999)},
			mask:  []bool{false, true, false, false, false, false},
		},
		{
			name:  "missing value",
			attrs: Attributes{"_FillValue": int16(-999), "missing_value": []int16{3, 50}},
			mask:  []bool{false, true, true, false, true, false},
		},
		{
			name:  "valid range",
			attrs: Attributes{"valid_range": []int16{0, 10}},
			mask:  []bool{false, true, false, true, true, true},
		},
		{
			name:  "valid min",
			attrs: Attributes{"valid_min": int16(0)},
			mask:  []bool{false, true, false, true, false, true},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ix, err := NewIndexer(src, test.attrs)
			if err != nil {
				t.Fatal(err)
			}
			m, err := ix.Read()
			if err != nil {
				t.Fatal(err)
			}
			if got := maskOf(m); !reflect.DeepEqual(got, test.mask) {
				t.Errorf("mask %v != %v", got, test.mask)
			}
		})
	}
}

func TestIndexerByteNoDefaultFill(t *testing.T) {
	ix, err := NewIndexer(memSource(Byte, []int{2}, []float64{-127, 1}), nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := ix.Read()
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 2 {
		t.Errorf("byte data should not be masked by the default fill value: %v", maskOf(m))
	}
}

func TestIndexerUnpack(t *testing.T) {
	src := memSource(Short, []int{4}, []float64{0, 10, -1, 20})
	ix, err := NewIndexer(src, Attributes{
		"_FillValue":   int16(-1),
		"scale_factor": float32(0.5),
		"add_offset":   float32(100),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ix.DataType() != Float || ix.StorageType() != Short {
		t.Errorf("types %v, %v", ix.DataType(), ix.StorageType())
	}
	m, err := ix.Read(Pick(3, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := m.At(0); v != 110 {
		t.Errorf("element 0 = %g", v)
	}
	if !m.IsMasked(1) {
		t.Error("fill value should be masked after unpacking")
	}
	if v, _ := m.At(2); v != 105 {
		t.Errorf("element 2 = %g", v)
	}

	packed, err := Pack(m, ix.Attributes(), Short)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{20, -1, 10}; !reflect.DeepEqual(packed, want) {
		t.Errorf("packed %v != %v", packed, want)
	}
}

func TestPackCollision(t *testing.T) {
	m := NewDense(Int, []int{2}, []float64{5, -9}).m
	_, err := Pack(m, Attributes{"_FillValue": int32(-9)}, Int)
	if !errors.As(err, &ValidationError{}) {
		t.Errorf("want ValidationError, got %v", err)
	}
	m.SetMasked(1, true)
	if _, err := Pack(m, Attributes{"_FillValue": int32(-9)}, Int); err != nil {
		t.Error(err)
	}
}

func TestIndexerText(t *testing.T) {
	raw := []float64{
		'a', 'b', 0, 0,
		' ', ' ', ' ', ' ',
		'x', 'y', 'z', 'w',
	}
	ix, err := NewIndexer(memSource(Char, []int{3, 4}, raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{3}; !reflect.DeepEqual(ix.Shape(), want) {
		t.Fatalf("shape %v != %v", ix.Shape(), want)
	}
	m, err := ix.Read()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"ab", "", "xyzw"}; !reflect.DeepEqual(m.Strings, want) {
		t.Errorf("%q != %q", m.Strings, want)
	}
	if want := []bool{false, true, false}; !reflect.DeepEqual(maskOf(m), want) {
		t.Errorf("mask %v != %v", maskOf(m), want)
	}
}

func TestIndexerToMemory(t *testing.T) {
	src := memSource(Double, []int{2, 2}, []float64{1, 2, 3, 4})
	ix, err := NewIndexer(src, Attributes{"_FillValue": 4.0})
	if err != nil {
		t.Fatal(err)
	}
	mem, err := ix.ToMemory()
	if err != nil {
		t.Fatal(err)
	}
	src.raw.Elements[0] = 100
	m, err := mem.Read()
	if err != nil {
		t.Fatal(err)
	}
	if m.Elements[0] != 1 || !m.IsMasked(3) {
		t.Errorf("to-memory copy: %v %v", m.Elements, maskOf(m))
	}
}

func TestIndexerBadAttribute(t *testing.T) {
	_, err := NewIndexer(memSource(Double, []int{1}, nil), Attributes{"valid_range": []float64{1}})
	if !errors.As(err, &ValidationError{}) {
		t.Errorf("want ValidationError, got %v", err)
	}
}
