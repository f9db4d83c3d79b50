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

	"github.com/spatialmodel/cfnc/model"
)

func TestParseCellMethods(t *testing.T) {
	for _, test := range []struct {
		in   string
		want []model.CellMethod
	}{
		{
			in:   "time: mean",
			want: []model.CellMethod{{Axes: []string{"time"}, Method: "mean"}},
		},
		{
			in: "lat: lon: mean where land (interval: 0.1 degree interval: 0.2 degree comment: area weighted) time: max",
			want: []model.CellMethod{
				{Axes: []string{"lat", "lon"}, Method: "mean", Where: "land", Interval: []string{"0.1 degree", "0.2 degree"}, Comment: "area weighted"},
				{Axes: []string{"time"}, Method: "max"},
			},
		},
		{
			in:   "area: sum over days within years (sampled hourly)",
			want: []model.CellMethod{{Axes: []string{"area"}, Method: "sum", Within: "years", Over: "days", Comment: "sampled hourly"}},
		},
	} {
		have, err := ParseCellMethods(test.in)
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if !reflect.DeepEqual(have, test.want) {
			t.Errorf("%q: have %+v, want %+v", test.in, have, test.want)
		}
		if s := FormatCellMethods(have, nil); s != test.in {
			t.Errorf("format: have %q, want %q", s, test.in)
		}
	}
}

func TestParseCellMethods_malformed(t *testing.T) {
	for _, s := range []string{"mean", "time:", "time: (interval: 1 day)", "time: mean (interval"} {
		if _, err := ParseCellMethods(s); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}

func TestFormatCellMethods_names(t *testing.T) {
	m := []model.CellMethod{{Axes: []string{"T", "area"}, Method: "mean"}}
	s := FormatCellMethods(m, func(k string) string {
		if k == "T" {
			return "time"
		}
		return k
	})
	if s != "time: area: mean" {
		t.Errorf("have %q", s)
	}
}
