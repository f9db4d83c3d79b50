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

func ints(v ...float64) *Dense { return NewDense(Int, []int{len(v)}, v) }

// rows returns the values of a 2-d read, with missing values as nil.
func rows(m *Masked) [][]interface{} {
	var o [][]interface{}
	for i := 0; i < m.Shape[0]; i++ {
		var r []interface{}
		for j := 0; j < m.Shape[1]; j++ {
			if v, ok := m.At(i, j); ok {
				r = append(r, v)
			} else {
				r = append(r, nil)
			}
		}
		o = append(o, r)
	}
	return o
}

func TestRaggedContiguous(t *testing.T) {
	data := NewDense(Double, []int{5}, []float64{1, 2, 3, 4, 5})
	r, err := NewRaggedContiguous(data, ints(1, 4), []int{2, 4})
	if err != nil {
		t.Fatal(err)
	}
	m, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]interface{}{{1.0, nil, nil, nil}, {2.0, 3.0, 4.0, 5.0}}
	if got := rows(m); !reflect.DeepEqual(got, want) {
		t.Errorf("%v != %v", got, want)
	}

	// The count must agree with the buffer length.
	_, err = NewRaggedContiguous(data, ints(1, 3), []int{2, 4})
	if !errors.As(err, &ValidationError{}) {
		t.Errorf("want ValidationError for inconsistent counts, got %v", err)
	}

	t.Run("invariant", func(t *testing.T) {
		counts := []float64{3, 0, 2}
		data := NewDense(Double, []int{5, 2}, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
		r, err := NewRaggedContiguous(data, ints(counts...), []int{3, 3, 2})
		if err != nil {
			t.Fatal(err)
		}
		m, err := r.Read()
		if err != nil {
			t.Fatal(err)
		}
		n := 0
		for i, c := range counts {
			for j := 0; j < 3; j++ {
				for k := 0; k < 2; k++ {
					_, ok := m.At(i, j, k)
					if ok != (j < int(c)) {
						t.Errorf("(%d,%d,%d) valid=%v with count %g", i, j, k, ok, c)
					}
				}
			}
			n += int(c)
		}
		if m.Count() != n*2 {
			t.Errorf("%d valid values, want %d", m.Count(), n*2)
		}
		if v, _ := m.At(2, 1, 1); v != 9 {
			t.Errorf("(2,1,1) = %g, want 9", v)
		}
	})

	t.Run("subset", func(t *testing.T) {
		s, err := r.Read(At(1), Slice(1, 3))
		if err != nil {
			t.Fatal(err)
		}
		if want := []float64{3, 4}; !reflect.DeepEqual(s.Elements, want) {
			t.Errorf("%v != %v", s.Elements, want)
		}
	})

	for name, count := range map[string]*Dense{
		"negative":  ints(-1, 6),
		"too long":  ints(0, 5),
		"masked":    NewMaskedDense(Int, []int{2}, []float64{1, 4}, []bool{true, false}),
		"wrong len": ints(5),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewRaggedContiguous(data, count, []int{2, 4})
			if !errors.As(err, &ValidationError{}) {
				t.Errorf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestRaggedIndexed(t *testing.T) {
	data := NewDense(Double, []int{5}, []float64{10, 20, 11, 21, 22})
	r, err := NewRaggedIndexed(data, ints(0, 1, 0, 1, 1), []int{3, 3})
	if err != nil {
		t.Fatal(err)
	}
	m, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]interface{}{{10.0, 11.0, nil}, {20.0, 21.0, 22.0}, {nil, nil, nil}}
	if got := rows(m); !reflect.DeepEqual(got, want) {
		t.Errorf("%v != %v", got, want)
	}
	if _, err := NewRaggedIndexed(data, ints(1, 1, 1, 1, 0), []int{3, 3}); !errors.As(err, &ValidationError{}) {
		t.Errorf("excess elements: want ValidationError, got %v", err)
	}
	if _, err := NewRaggedIndexed(data, ints(0, 1, 3, 1, 1), []int{3, 3}); !errors.As(err, &ValidationError{}) {
		t.Errorf("index out of range: want ValidationError, got %v", err)
	}
}

func TestRaggedIndexedContiguous(t *testing.T) {
	// Two stations; station 0 has profiles 0 and 2, station 1 has profile 1.
	data := NewDense(Double, []int{6}, []float64{1, 2, 3, 4, 5, 6})
	count := ints(2, 1, 3)
	index := ints(0, 1, 0)
	r, err := NewRaggedIndexedContiguous(data, count, index, []int{2, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if cd, _ := r.CompressedDimensions(); !reflect.DeepEqual(cd, map[int][]int{0: {0, 1, 2}}) {
		t.Errorf("compressed dimensions %v", cd)
	}
	m, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{1.0, 2.0, nil, 4.0, 5.0, 6.0, 3.0, nil, nil, nil, nil, nil}
	var got []interface{}
	for i := 0; i < m.Len(); i++ {
		if m.IsMasked(i) {
			got = append(got, nil)
		} else {
			got = append(got, m.Elements[i])
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%v != %v", got, want)
	}
}

func TestGathered(t *testing.T) {
	data := NewDense(Double, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	// Time by (lat, lon) with the land points at flattened positions 1, 5, 2.
	g, err := NewGathered(data, ints(1, 5, 2), []int{2, 2, 3}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if cd, _ := g.CompressedDimensions(); !reflect.DeepEqual(cd, map[int][]int{1: {1, 2}}) {
		t.Errorf("compressed dimensions %v", cd)
	}
	m, err := g.Read(At(1))
	if err != nil {
		t.Fatal(err)
	}
	want := [][]interface{}{{nil, 4.0, 6.0}, {nil, nil, 5.0}}
	if got := rows(m); !reflect.DeepEqual(got, want) {
		t.Errorf("%v != %v", got, want)
	}
	t.Run("land points", func(t *testing.T) {
		data := NewDense(Double, []int{2, 3}, []float64{2, 1, 3, 4, 0, 5})
		g, err := NewGathered(data, ints(1, 4, 5), []int{2, 3, 2}, 1, 2)
		if err != nil {
			t.Fatal(err)
		}
		m, err := g.Read()
		if err != nil {
			t.Fatal(err)
		}
		want := []interface{}{nil, 2.0, nil, nil, 1.0, 3.0, nil, 4.0, nil, nil, 0.0, 5.0}
		var got []interface{}
		for i := 0; i < m.Len(); i++ {
			if m.IsMasked(i) {
				got = append(got, nil)
			} else {
				got = append(got, m.Elements[i])
			}
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%v != %v", got, want)
		}
	})
	for name, list := range map[string]*Dense{
		"duplicate":    ints(1, 1, 2),
		"out of range": ints(1, 6, 2),
		"wrong length": ints(1, 2),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewGathered(data, list, []int{2, 2, 3}, 1, 2)
			if !errors.As(err, &ValidationError{}) {
				t.Errorf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestSparseBacked(t *testing.T) {
	s := sparse.ZerosSparse(2, 3)
	s.Set(7, 1, 2)
	for _, masked := range []bool{false, true} {
		a, err := NewSparseBacked(s, Double, masked)
		if err != nil {
			t.Fatal(err)
		}
		m, err := a.Read()
		if err != nil {
			t.Fatal(err)
		}
		if v, ok := m.At(1, 2); !ok || v != 7 {
			t.Errorf("masked=%v: (1,2) = %g, %v", masked, v, ok)
		}
		if _, ok := m.At(0, 0); ok == masked {
			t.Errorf("masked=%v: absent element valid=%v", masked, ok)
		}
	}
}

func TestBuild(t *testing.T) {
	data := NewDense(Double, []int{5}, []float64{1, 2, 3, 4, 5})
	c, err := Build(Description{Type: RaggedContiguousType, Shape: []int{2, 4}, Data: data, Count: ints(1, 4)})
	if err != nil {
		t.Fatal(err)
	}
	if c.CompressionType() != RaggedContiguousType {
		t.Errorf("type %v", c.CompressionType())
	}
	if !reflect.DeepEqual(NoDimensionAxes(c), []int{1}) {
		t.Errorf("no-dimension axes %v", NoDimensionAxes(c))
	}
	if _, err := Build(Description{Type: "dct"}); !errors.As(err, &ValidationError{}) {
		t.Errorf("unknown type: want ValidationError, got %v", err)
	}
	if _, err := Build(Description{Type: GatheredType, Shape: []int{2}}); !errors.As(err, &ValidationError{}) {
		t.Errorf("missing list: want ValidationError, got %v", err)
	}
	if _, err := (Description{Type: GatheredType}).CompressedDimensions(); !errors.As(err, &ConfigurationError{}) {
		t.Errorf("want ConfigurationError, got %v", err)
	}
	cd, err := Description{Type: SubsampledType, TiePointIndex: map[int]Array{1: ints(0, 4)}}.CompressedDimensions()
	if err != nil || !reflect.DeepEqual(cd, map[int][]int{1: {1}}) {
		t.Errorf("subsampled compressed dimensions %v, %v", cd, err)
	}
	for _, z := range []Compressed{&RaggedContiguous{}, &RaggedIndexed{}, &RaggedIndexedContiguous{},
		&Gathered{}, &Subsampled{}, &SparseBacked{}, &Aggregated{}} {
		if _, err := z.CompressedDimensions(); !errors.As(err, &ConfigurationError{}) {
			t.Errorf("%T: want ConfigurationError, got %v", z, err)
		}
	}
	for _, z := range []Compressed{&RaggedContiguous{}, &RaggedIndexed{}, &RaggedIndexedContiguous{},
		&Gathered{}, &Subsampled{}} {
		if _, err := z.ToMemory(); !errors.As(err, &ConfigurationError{}) {
			t.Errorf("%T.ToMemory: want ConfigurationError, got %v", z, err)
		}
	}
}
