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


package cfncutil

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
	"github.com/spatialmodel/cfnc/netcdf"
)

func testFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "tas.nc")
	lat := &model.Coordinate{
		Props:     model.Properties{"standard_name": "latitude", "units": "degrees_north"},
		Array:     cfnc.NewDense(cfnc.Double, []int{2}, []float64{-45, 45}),
		Axes:      []string{"lat"},
		NCVarName: "lat",
	}
	f := &model.Field{
		Props: model.Properties{"standard_name": "air_temperature", "units": "K", "institution": "cfnc"},
		Array: cfnc.NewDense(cfnc.Float, []int{2}, []float64{270, 280}),
		Axes:  []string{"lat"},
		Domain: model.Domain{
			Axes:                 []*model.DomainAxis{{Key: "lat", Size: 2}},
			DimensionCoordinates: map[string]*model.Coordinate{"lat": lat},
		},
		CellMethods: []model.CellMethod{{Axes: []string{"lat"}, Method: "mean"}},
		NCVarName:   "tas",
	}
	if err := netcdf.Write(path, []*model.Field{f}); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestVersion(t *testing.T) {
	have := execute(t, "version")
	want := "cfnc v" + cfnc.Version + "\n"
	if have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestDescribe(t *testing.T) {
	out := execute(t, "describe", testFile(t))
	for _, want := range []string{
		"Field: air_temperature (ncvar tas)",
		"axes: lat(2)",
		"dimension coordinate: latitude(2)",
		"cell methods: lat: mean",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestRewrite(t *testing.T) {
	in := testFile(t)
	out := filepath.Join(t.TempDir(), "out.nc")
	execute(t, "rewrite", "--ToMemory", "--GlobalAttributes=institution", "-f", "NETCDF3_64BIT_OFFSET", in, out)
	fields, err := netcdf.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0].NCVarName != "tas" {
		t.Fatalf("unexpected fields %v", fields)
	}
	m, err := fields[0].Array.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Elements, []float64{270, 280}) {
		t.Errorf("data: %v", m.Elements)
	}
	if s := fields[0].Props.String("institution"); s != "cfnc" {
		t.Errorf("institution: %q", s)
	}
}

func TestSubstitutions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.toml")
	if err := ioutil.WriteFile(path, []byte("base = \"s3://bucket/cmip\"\nrun = \"r1\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	subs, err := Substitutions(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"base": "s3://bucket/cmip", "run": "r1"}
	if !reflect.DeepEqual(subs, want) {
		t.Errorf("have %v, want %v", subs, want)
	}
	if _, err := Substitutions(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestSetConfig_logLevel(t *testing.T) {
	defer Cfg.Set("LogLevel", "info")
	Cfg.Set("LogLevel", "loud")
	if err := setConfig(); err == nil {
		t.Error("invalid log level should be an error")
	}
}
