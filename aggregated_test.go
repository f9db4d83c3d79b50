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
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
)

// mapOpener opens fragments from a map keyed by "location#address".
type mapOpener struct {
	arrays map[string]Array
	opened []string
	closed int
}

func (o *mapOpener) OpenFragment(ctx context.Context, location, address, format string) (Array, io.Closer, error) {
	o.opened = append(o.opened, location)
	a, ok := o.arrays[location+"#"+address]
	if !ok {
		return nil, nil, fmt.Errorf("no such file")
	}
	return a, o, nil
}

func (o *mapOpener) Close() error {
	o.closed++
	return nil
}

func seq(start float64, shape ...int) *Dense {
	v := make([]float64, product(shape))
	for i := range v {
		v[i] = start + float64(i)
	}
	return NewDense(Double, shape, v)
}

func TestAggregated(t *testing.T) {
	opener := &mapOpener{arrays: map[string]Array{
		"/data/a.nc#tas":     seq(0, 2, 3),
		"/data/b.nc#tas":     seq(100, 3), // size-1 leading axis omitted
		"/mirror/c.nc#tas_c": seq(200, 2, 1),
		"/data/rel/d.nc#tas": seq(300, 1, 1),
	}}
	frags := []Fragment{
		{Locations: []string{"${base}/a.nc"}, Addresses: []string{"tas"}, Format: "nc"},
		{Locations: []string{"/missing/c.nc", "/mirror/c.nc"}, Addresses: []string{"tas", "tas_c"}, Format: "nc"},
		{Locations: []string{"${base}/b.nc"}, Addresses: []string{"tas"}, Format: "nc"},
		{Locations: []string{"rel/d.nc"}, Addresses: []string{"tas"}, Format: "nc"},
	}
	a, err := NewAggregated(Double, []int{3, 4}, [][]int{{2, 1}, {3, 1}}, frags,
		WithFragmentOpener(opener), WithSubstitutions(map[string]string{"base": "/data"}),
		WithBaseLocation("/data/agg.nc"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := a.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{
		0, 1, 2, 200,
		3, 4, 5, 201,
		100, 101, 102, 300,
	}
	if !reflect.DeepEqual(m.Elements, want) {
		t.Errorf("%v != %v", m.Elements, want)
	}
	if opener.closed != len(opener.opened)-1 {
		t.Errorf("%d fragments opened successfully but %d closed", len(opener.opened)-1, opener.closed)
	}

	t.Run("partial", func(t *testing.T) {
		opener.opened = nil
		m, err := a.Read(Pick(2, 0), At(1))
		if err != nil {
			t.Fatal(err)
		}
		if want := []float64{101, 1}; !reflect.DeepEqual(m.Elements, want) {
			t.Errorf("%v != %v", m.Elements, want)
		}
		if want := []string{"/data/b.nc", "/data/a.nc"}; !reflect.DeepEqual(opener.opened, want) {
			t.Errorf("opened %v, want %v", opener.opened, want)
		}
	})

	t.Run("filenames", func(t *testing.T) {
		want := []string{"/data/a.nc", "/data/b.nc", "/data/rel/d.nc", "/mirror/c.nc", "/missing/c.nc"}
		if got := a.Filenames(); !reflect.DeepEqual(got, want) {
			t.Errorf("%v != %v", got, want)
		}
	})

	t.Run("nested substitutions", func(t *testing.T) {
		b := a.Substitute(map[string]string{"base": "${root}/data", "root": "/mnt"})
		for i := 0; i < 10; i++ {
			if got := b.resolve("${base}/a.nc"); got != "/mnt/data/a.nc" {
				t.Fatalf("resolved to %s", got)
			}
		}
	})

	t.Run("substitute", func(t *testing.T) {
		b := a.Substitute(map[string]string{"base": "/elsewhere"})
		if _, err := b.Read(At(0), At(0)); !errors.As(err, &IOError{}) {
			t.Errorf("want IOError, got %v", err)
		}
		if a.Substitutions()["base"] != "/data" {
			t.Error("Substitute modified the original table")
		}
	})

	t.Run("to memory", func(t *testing.T) {
		mem, err := a.ToMemory()
		if err != nil {
			t.Fatal(err)
		}
		opener.arrays = nil
		m2, err := mem.Read()
		if err != nil {
			t.Fatal(err)
		}
		if !m2.Equal(m, 0, 0) {
			t.Errorf("%v != %v", m2.Elements, m.Elements)
		}
	})
}

func TestAggregatedFailures(t *testing.T) {
	opener := &mapOpener{arrays: map[string]Array{"x.nc#v": seq(0, 2, 2)}}
	t.Run("all candidates", func(t *testing.T) {
		a, err := NewAggregated(Double, []int{2}, [][]int{{2}},
			[]Fragment{{Locations: []string{"p.nc", "q.nc"}, Addresses: []string{"v"}}}, WithFragmentOpener(opener))
		if err != nil {
			t.Fatal(err)
		}
		_, err = a.Read()
		var ioErr IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("want IOError, got %v", err)
		}
		for _, loc := range []string{"p.nc", "q.nc"} {
			if !strings.Contains(ioErr.Error(), loc) {
				t.Errorf("error %q does not mention %s", ioErr, loc)
			}
		}
	})
	t.Run("shape mismatch", func(t *testing.T) {
		a, err := NewAggregated(Double, []int{3}, [][]int{{3}},
			[]Fragment{{Locations: []string{"x.nc"}, Addresses: []string{"v"}}}, WithFragmentOpener(opener))
		if err != nil {
			t.Fatal(err)
		}
		if _, err = a.Read(); !errors.As(err, &ValidationError{}) {
			t.Errorf("want ValidationError, got %v", err)
		}
	})
	t.Run("sizes", func(t *testing.T) {
		_, err := NewAggregated(Double, []int{3}, [][]int{{1, 1}}, []Fragment{{Literal: true}, {Literal: true}})
		if !errors.As(err, &ValidationError{}) {
			t.Errorf("want ValidationError, got %v", err)
		}
	})
}

func TestAggregatedLiteralAndCache(t *testing.T) {
	opener := &mapOpener{arrays: map[string]Array{"x.nc#v": seq(1, 2)}}
	a, err := NewAggregated(Double, []int{4}, [][]int{{2, 2}},
		[]Fragment{{Literal: true, Value: -1}, {Locations: []string{"x.nc"}, Addresses: []string{"v"}}},
		WithFragmentOpener(opener), WithFragmentCache(4))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		m, err := a.Read()
		if err != nil {
			t.Fatal(err)
		}
		if want := []float64{-1, -1, 1, 2}; !reflect.DeepEqual(m.Elements, want) {
			t.Errorf("%v != %v", m.Elements, want)
		}
	}
	if len(opener.opened) != 1 {
		t.Errorf("fragment opened %d times, want 1", len(opener.opened))
	}
}
