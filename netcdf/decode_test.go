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

package netcdf

import (
	"reflect"
	"testing"
)

func TestPairs(t *testing.T) {
	have := pairs("area: cell_area volume: cell_volume")
	want := []pair{{key: "area", values: []string{"cell_area"}}, {key: "volume", values: []string{"cell_volume"}}}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %+v, want %+v", have, want)
	}
	have = pairs("crs_a: lat lon crs_b: x y")
	want = []pair{{key: "crs_a", values: []string{"lat", "lon"}}, {key: "crs_b", values: []string{"x", "y"}}}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %+v, want %+v", have, want)
	}
	have = pairs("crs")
	want = []pair{{values: []string{"crs"}}}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %+v, want %+v", have, want)
	}
}

func TestPairMap(t *testing.T) {
	have := pairMap("a: var_a b: var_b eta: eta_v")
	want := map[string]string{"a": "var_a", "b": "var_b", "eta": "eta_v"}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestPerInstance(t *testing.T) {
	if n := perInstance([]int{0, 1, 1, 2, 1}, 3); n != 3 {
		t.Errorf("have %d, want 3", n)
	}
	if n := perInstance(nil, 2); n != 0 {
		t.Errorf("have %d, want 0", n)
	}
}
