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

package model

import (
	"testing"

	"github.com/spatialmodel/cfnc"
)

func lat() *Coordinate {
	return &Coordinate{
		Props: Properties{"standard_name": "latitude", "units": "degrees_north", "valid_max": 90},
		Array: cfnc.NewDense(cfnc.Double, []int{3}, []float64{-10, 0, 10}),
		Axes:  []string{"y"},
	}
}

func TestEqual(t *testing.T) {
	a, b := lat(), lat()
	b.Props["valid_max"] = float32(90)
	if !Equal(a, b, false) {
		t.Error("numeric types of properties should not matter")
	}

	aux := lat()
	aux.Auxiliary = true
	if Equal(a, aux, false) {
		t.Error("dimension and auxiliary coordinates should differ")
	}
	if !Equal(a, aux, true) {
		t.Error("dimension and auxiliary coordinates should be equal ignoring type")
	}

	c := lat()
	c.Array = cfnc.NewDense(cfnc.Double, []int{3}, []float64{-10, 0, 10.000001})
	if Equal(a, c, false) {
		t.Error("different data should not be equal")
	}

	d := lat()
	d.Bounds = &Bounds{Array: cfnc.NewDense(cfnc.Double, []int{3, 2}, nil)}
	if Equal(a, d, false) {
		t.Error("bounds should be compared")
	}

	e := lat()
	e.Props["long_name"] = "latitude"
	if Equal(a, e, false) {
		t.Error("extra properties should not be equal")
	}
}

func TestEqualReferences(t *testing.T) {
	orog := func(v float64) *DomainAncillary {
		return &DomainAncillary{
			Props: Properties{"standard_name": "surface_altitude"},
			Array: cfnc.NewDense(cfnc.Double, []int{2}, []float64{v, v}),
			Axes:  []string{"x"},
		}
	}
	ref := func(v float64) *CoordinateReference {
		return &CoordinateReference{
			Datum:       Properties{"earth_radius": 6371007},
			Conversion:  Properties{"standard_name": "atmosphere_hybrid_height_coordinate"},
			Ancillaries: map[string]*DomainAncillary{"orog": orog(v)},
		}
	}
	if !Equal(ref(1), ref(1), false) {
		t.Error("equal references")
	}
	if Equal(ref(1), ref(2), false) {
		t.Error("references with different ancillaries")
	}
	if ref(1).Formula() != "atmosphere_hybrid_height_coordinate" || ref(1).GridMapping() {
		t.Error("formula reference")
	}
}
