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

import "testing"

func TestNames_allocate(t *testing.T) {
	n := newNames()
	if name, _ := n.allocate("tas", -1); name != "tas" {
		t.Errorf("first allocation: %s", name)
	}
	n.variable("tas")
	if name, _ := n.allocate("tas", -1); name != "tas_1" {
		t.Errorf("second allocation: %s", name)
	}
	n.variable("tas_1")
	if name, _ := n.allocate("tas", -1); name != "tas_2" {
		t.Errorf("third allocation: %s", name)
	}

	n.dimension("bounds2", 2, false)
	if name, reused := n.allocate("bounds2", 2); name != "bounds2" || !reused {
		t.Errorf("same size: %s %v", name, reused)
	}
	if name, reused := n.allocate("bounds2", 3); name != "bounds2_1" || reused {
		t.Errorf("different size: %s %v", name, reused)
	}
	n.dimension("time", 0, true)
	if name, reused := n.allocate("time", 0); name != "time_1" || reused {
		t.Errorf("unlimited: %s %v", name, reused)
	}
}

func TestSanitize(t *testing.T) {
	for in, want := range map[string]string{
		"air_temperature": "air_temperature",
		"air temperature": "air_temperature",
		"2m":              "_2m",
		"":                "var",
		"a-b.c":           "a-b.c",
		"-x":              "_x",
		"température":     "temp_rature",
	} {
		if have := sanitize(in); have != want {
			t.Errorf("%q: have %q, want %q", in, have, want)
		}
	}
}
