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
)

func TestRecompress(t *testing.T) {
	like, err := NewRaggedContiguous(NewDense(Double, []int{5}, nil), ints(3, 2), []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	a := NewDense(Double, []int{2, 3}, []float64{10, 11, 12, 13, 14, 15})
	c, err := Recompress(like, a, 2)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := c.(*RaggedContiguous)
	if !ok {
		t.Fatalf("have %T", c)
	}
	m, err := r.CompressedData().Read()
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{10, 11, 12, 13, 14}; !reflect.DeepEqual(m.Elements, want) {
		t.Errorf("stored data: have %v, want %v", m.Elements, want)
	}
	if !reflect.DeepEqual(r.Counts(), []int{3, 2}) {
		t.Errorf("counts: %v", r.Counts())
	}

	_, err = Recompress(like, a, 3)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("three axes of a contiguous ragged array: have error %v", err)
	}
	_, err = Recompress(like, NewDense(Double, []int{3, 3}, nil), 2)
	if !errors.As(err, &ve) {
		t.Errorf("mismatched shape: have error %v", err)
	}
}

func TestRecompress_profiles(t *testing.T) {
	like, err := NewRaggedIndexedContiguous(NewDense(Double, []int{5}, nil), ints(2, 1, 2), ints(1, 0, 1), []int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	// One value per profile, such as the profile time.
	a := NewDense(Double, []int{2, 2}, []float64{1, 2, 3, 4})
	c, err := Recompress(like, a, 2)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := c.(*RaggedIndexed)
	if !ok {
		t.Fatalf("have %T", c)
	}
	m, err := r.CompressedData().Read()
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{3, 1, 4}; !reflect.DeepEqual(m.Elements, want) {
		t.Errorf("stored data: have %v, want %v", m.Elements, want)
	}
}
