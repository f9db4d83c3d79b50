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
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
	"gonum.org/v1/gonum/floats"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

func latLon() (lat, lon *model.Coordinate) {
	lat = &model.Coordinate{
		Props:     model.Properties{"standard_name": "latitude", "units": "degrees_north"},
		Array:     cfnc.NewDense(cfnc.Double, []int{2}, []float64{-45, 45}),
		Axes:      []string{"lat"},
		Bounds:    &model.Bounds{Array: cfnc.NewDense(cfnc.Double, []int{2, 2}, []float64{-90, 0, 0, 90})},
		NCVarName: "lat",
	}
	lon = &model.Coordinate{
		Props:     model.Properties{"standard_name": "longitude", "units": "degrees_east"},
		Array:     cfnc.NewDense(cfnc.Double, []int{3}, []float64{0, 120, 240}),
		Axes:      []string{"lon"},
		NCVarName: "lon",
	}
	return
}

var (
	tasValues = []float64{270, 271.5, 272, 273, 274.25, 275}
	tasMask   = []bool{false, false, false, false, true, false}
)

func tasField(lat, lon *model.Coordinate) *model.Field {
	return &model.Field{
		Props: model.Properties{"standard_name": "air_temperature", "units": "K"},
		Array: cfnc.NewMaskedDense(cfnc.Float, []int{2, 3}, tasValues, tasMask),
		Axes:  []string{"lat", "lon"},
		Domain: model.Domain{
			Axes:                 []*model.DomainAxis{{Key: "lat", Size: 2}, {Key: "lon", Size: 3}},
			DimensionCoordinates: map[string]*model.Coordinate{"lat": lat, "lon": lon},
		},
		NCVarName: "tas",
	}
}

func tempFile(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}

// values reads a and returns its elements with missing values as nil.
func values(t *testing.T, a cfnc.Array) []interface{} {
	m, err := a.Read()
	if err != nil {
		t.Fatal(err)
	}
	o := make([]interface{}, m.Len())
	for i, v := range m.Elements {
		if !m.IsMasked(i) {
			o[i] = v
		}
	}
	return o
}

func variables(t *testing.T, path string) []string {
	ds, err := openFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	v := ds.variables()
	sort.Strings(v)
	return v
}

func TestWriteRead(t *testing.T) {
	lat, lon := latLon()
	f := tasField(lat, lon)
	f.Domain.Axes = append(f.Domain.Axes, &model.DomainAxis{Key: "height", Size: 1})
	f.DimensionCoordinates["height"] = &model.Coordinate{
		Props:     model.Properties{"standard_name": "height", "units": "m"},
		Array:     cfnc.NewDense(cfnc.Double, []int{1}, []float64{2}),
		Axes:      []string{"height"},
		NCVarName: "height",
	}
	f.CellMethods = []model.CellMethod{
		{Axes: []string{"height"}, Method: "point"},
		{Axes: []string{"lat", "lon"}, Method: "mean", Interval: []string{"1 degree"}},
	}
	path := tempFile(t, "tas.nc")
	if err := Write(path, []*model.Field{f}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	if g.NCVarName != "tas" {
		t.Errorf("name: %s", g.NCVarName)
	}
	if !reflect.DeepEqual(g.Axes, []string{"lat", "lon"}) {
		t.Errorf("axes: %v", g.Axes)
	}
	want := []interface{}{270.0, 271.5, 272.0, 273.0, nil, 275.0}
	if have := values(t, g.Array); !reflect.DeepEqual(have, want) {
		t.Errorf("data: have %v, want %v", have, want)
	}
	if u := g.Props.String("units"); u != "K" {
		t.Errorf("units: %q", u)
	}
	if _, ok := g.Props["Conventions"]; ok {
		t.Error("Conventions should not be a field property")
	}

	glat := g.DimensionCoordinates["lat"]
	if glat == nil {
		t.Fatal("missing latitude")
	}
	if glat.Bounds == nil {
		t.Fatal("missing latitude bounds")
	}
	if have := values(t, glat.Bounds.Array); !reflect.DeepEqual(have, []interface{}{-90.0, 0.0, 0.0, 90.0}) {
		t.Errorf("latitude bounds: %v", have)
	}
	height := g.DimensionCoordinates["height"]
	if height == nil {
		t.Fatal("missing scalar height coordinate")
	}
	if have := values(t, height.Array); !reflect.DeepEqual(have, []interface{}{2.0}) {
		t.Errorf("height: %v", have)
	}
	if ax := g.Axis("height"); ax == nil || ax.Size != 1 {
		t.Errorf("height axis: %+v", ax)
	}
	if len(g.Domain.Axes) != 3 {
		t.Fatalf("%d domain axes, want 3", len(g.Domain.Axes))
	}
	for i, want := range []model.DomainAxis{{Key: "lat", Size: 2, NCDim: "lat"}, {Key: "lon", Size: 3, NCDim: "lon"}} {
		if ax := g.Domain.Axes[i]; *ax != want {
			t.Errorf("domain axis %d: have %+v, want %+v", i, *ax, want)
		}
	}
	if !reflect.DeepEqual(g.CellMethods, f.CellMethods) {
		t.Errorf("cell methods: have %+v, want %+v", g.CellMethods, f.CellMethods)
	}

	// Writing what was read gives the same file layout.
	path2 := tempFile(t, "tas2.nc")
	if err := Write(path2, fields, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	if v1, v2 := variables(t, path), variables(t, path2); !reflect.DeepEqual(v1, v2) {
		t.Errorf("rewritten variables: %v != %v", v2, v1)
	}
}

func TestWrite_shared(t *testing.T) {
	lat, lon := latLon()
	path := tempFile(t, "shared.nc")
	if err := Write(path, []*model.Field{tasField(lat, lon), tasField(lat, lon)}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	want := []string{"lat", "lat_bounds", "lon", "tas", "tas_1"}
	if have := variables(t, path); !reflect.DeepEqual(have, want) {
		t.Errorf("variables: have %v, want %v", have, want)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("read %d fields, want 2", len(fields))
	}
	if fields[0].DimensionCoordinates["lat"] != fields[1].DimensionCoordinates["lat"] {
		t.Error("fields should share their latitude coordinate")
	}
}

func TestWrite_gridMapping(t *testing.T) {
	lat, lon := latLon()
	crs := &model.CoordinateReference{
		Coordinates: []*model.Coordinate{lat, lon},
		Datum:       model.Properties{"earth_radius": 6371000.0},
		Conversion:  model.Properties{"grid_mapping_name": "latitude_longitude"},
	}
	f1, f2 := tasField(lat, lon), tasField(lat, lon)
	f2.NCVarName = "pr"
	f1.CoordinateReferences = []*model.CoordinateReference{crs}
	f2.CoordinateReferences = []*model.CoordinateReference{crs}
	path := tempFile(t, "crs.nc")
	if err := Write(path, []*model.Field{f1, f2}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}

	ds, err := openFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var mappings []string
	for _, v := range ds.variables() {
		for _, a := range ds.attrs(v) {
			if a.name == "grid_mapping_name" {
				mappings = append(mappings, v)
			}
		}
	}
	ds.Close()
	if !reflect.DeepEqual(mappings, []string{"latitude_longitude"}) {
		t.Errorf("grid mapping variables: %v", mappings)
	}

	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range fields {
		if len(g.CoordinateReferences) != 1 {
			t.Fatalf("%s: %d coordinate references", g.NCVarName, len(g.CoordinateReferences))
		}
		r := g.CoordinateReferences[0]
		if !r.GridMapping() {
			t.Errorf("%s: not a grid mapping", g.NCVarName)
		}
		if _, ok := r.Datum["earth_radius"]; !ok {
			t.Errorf("%s: datum %v", g.NCVarName, r.Datum)
		}
		if len(r.Coordinates) != 2 {
			t.Errorf("%s: grid mapping applies to %d coordinates", g.NCVarName, len(r.Coordinates))
		}
	}
}

func TestWriteRead_raggedContiguous(t *testing.T) {
	data := cfnc.NewDense(cfnc.Double, []int{5}, []float64{1, 2, 3, 4, 5})
	count := cfnc.NewDense(cfnc.Int, []int{2}, []float64{3, 2})
	r, err := cfnc.NewRaggedContiguous(data, count, []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	f := &model.Field{
		Props: model.Properties{"standard_name": "sea_water_temperature"},
		Array: r,
		Axes:  []string{"station", "element"},
		Domain: model.Domain{
			Axes: []*model.DomainAxis{{Key: "station", Size: 2}, {Key: "element", Size: 3}},
		},
		NCVarName: "temp",
	}
	path := tempFile(t, "ragged.nc")
	if err := Write(path, []*model.Field{f}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	c, ok := g.Array.(cfnc.Compressed)
	if !ok || c.CompressionType() != cfnc.RaggedContiguousType {
		t.Fatalf("data are %T", g.Array)
	}
	if !reflect.DeepEqual(g.Axes, []string{"station", "element"}) {
		t.Errorf("axes: %v", g.Axes)
	}
	want := []interface{}{1.0, 2.0, 3.0, 4.0, 5.0, nil}
	if have := values(t, g.Array); !reflect.DeepEqual(have, want) {
		t.Errorf("data: have %v, want %v", have, want)
	}
}

func TestWriteRead_gathered(t *testing.T) {
	data := cfnc.NewDense(cfnc.Double, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	list := cfnc.NewDense(cfnc.Int, []int{3}, []float64{0, 1, 3})
	gathered, err := cfnc.NewGathered(data, list, []int{2, 2, 2}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	f := &model.Field{
		Props: model.Properties{"long_name": "soil moisture"},
		Array: gathered,
		Axes:  []string{"time", "y", "x"},
		Domain: model.Domain{
			Axes: []*model.DomainAxis{{Key: "time", Size: 2}, {Key: "y", Size: 2}, {Key: "x", Size: 2}},
		},
		NCVarName: "mrso",
	}
	path := tempFile(t, "gathered.nc")
	if err := Write(path, []*model.Field{f}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	if c, ok := g.Array.(cfnc.Compressed); !ok || c.CompressionType() != cfnc.GatheredType {
		t.Fatalf("data are %T", g.Array)
	}
	if !reflect.DeepEqual(g.Axes, []string{"time", "y", "x"}) {
		t.Errorf("axes: %v", g.Axes)
	}
	want := []interface{}{1.0, 2.0, nil, 3.0, 4.0, 5.0, nil, 6.0}
	if have := values(t, g.Array); !reflect.DeepEqual(have, want) {
		t.Errorf("data: have %v, want %v", have, want)
	}
}

func TestWriteRead_raggedIndexed(t *testing.T) {
	data := cfnc.NewDense(cfnc.Double, []int{5}, []float64{10, 20, 11, 21, 22})
	index := cfnc.NewDense(cfnc.Int, []int{5}, []float64{0, 1, 0, 1, 1})
	r, err := cfnc.NewRaggedIndexed(data, index, []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	f := &model.Field{
		Props: model.Properties{"standard_name": "air_pressure", "units": "Pa"},
		Array: r,
		Axes:  []string{"station", "obs"},
		Domain: model.Domain{
			Axes: []*model.DomainAxis{{Key: "station", Size: 2}, {Key: "obs", Size: 3}},
		},
		NCVarName: "p",
	}
	path := tempFile(t, "indexed.nc")
	if err := Write(path, []*model.Field{f}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	if c, ok := g.Array.(cfnc.Compressed); !ok || c.CompressionType() != cfnc.RaggedIndexedType {
		t.Fatalf("data are %T", g.Array)
	}
	want := []interface{}{10.0, 11.0, nil, 20.0, 21.0, 22.0}
	if have := values(t, g.Array); !reflect.DeepEqual(have, want) {
		t.Errorf("data: have %v, want %v", have, want)
	}
}

func TestWriteRead_raggedIndexedContiguous(t *testing.T) {
	// Station 0 has profiles 0 and 2, station 1 has profile 1.
	data := cfnc.NewDense(cfnc.Double, []int{6}, []float64{1, 2, 3, 4, 5, 6})
	count := cfnc.NewDense(cfnc.Int, []int{3}, []float64{2, 1, 3})
	index := cfnc.NewDense(cfnc.Int, []int{3}, []float64{0, 1, 0})
	r, err := cfnc.NewRaggedIndexedContiguous(data, count, index, []int{2, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	f := &model.Field{
		Props: model.Properties{"standard_name": "sea_water_salinity"},
		Array: r,
		Axes:  []string{"station", "profile", "z"},
		Domain: model.Domain{
			Axes: []*model.DomainAxis{{Key: "station", Size: 2}, {Key: "profile", Size: 2}, {Key: "z", Size: 3}},
		},
		NCVarName: "so",
	}
	path := tempFile(t, "profiles.nc")
	if err := Write(path, []*model.Field{f}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	if c, ok := g.Array.(cfnc.Compressed); !ok || c.CompressionType() != cfnc.RaggedIndexedContiguousType {
		t.Fatalf("data are %T", g.Array)
	}
	want := []interface{}{1.0, 2.0, nil, 4.0, 5.0, 6.0, 3.0, nil, nil, nil, nil, nil}
	if have := values(t, g.Array); !reflect.DeepEqual(have, want) {
		t.Errorf("data: have %v, want %v", have, want)
	}
}

func TestWriteRead_subsampled(t *testing.T) {
	const tolerance = 1e-12
	tp := cfnc.NewDense(cfnc.Double, []int{3}, []float64{0, 10, 40})
	tpIndex := cfnc.NewDense(cfnc.Int, []int{3}, []float64{0, 2, 5})
	sub, err := cfnc.NewSubsampled(tp, []int{6}, "linear", map[int]cfnc.Array{0: tpIndex}, nil)
	if err != nil {
		t.Fatal(err)
	}
	dist := &model.Coordinate{
		Auxiliary: true,
		Props:     model.Properties{"long_name": "distance", "units": "km"},
		Array:     sub,
		Axes:      []string{"x"},
		NCVarName: "dist",
	}
	f := &model.Field{
		Props: model.Properties{"long_name": "depth", "units": "m"},
		Array: cfnc.NewDense(cfnc.Double, []int{6}, []float64{1, 2, 3, 4, 5, 6}),
		Axes:  []string{"x"},
		Domain: model.Domain{
			Axes:                 []*model.DomainAxis{{Key: "x", Size: 6}},
			AuxiliaryCoordinates: []*model.Coordinate{dist},
		},
		NCVarName: "depth",
	}
	path := tempFile(t, "subsampled.nc")
	if err := Write(path, []*model.Field{f}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	if len(g.AuxiliaryCoordinates) != 1 {
		t.Fatalf("%d auxiliary coordinates, want 1", len(g.AuxiliaryCoordinates))
	}
	c := g.AuxiliaryCoordinates[0]
	if cc, ok := c.Array.(cfnc.Compressed); !ok || cc.CompressionType() != cfnc.SubsampledType {
		t.Fatalf("coordinate data are %T", c.Array)
	}
	m, err := c.Array.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 5, 10, 20, 30, 40}
	if len(m.Elements) != len(want) {
		t.Fatalf("read %d values, want %d", len(m.Elements), len(want))
	}
	for i, v := range m.Elements {
		if m.IsMasked(i) || !floats.EqualWithinAbsOrRel(v, want[i], tolerance, tolerance) {
			t.Errorf("element %d: %g != %g", i, v, want[i])
		}
	}
	if u := c.Props.String("units"); u != "km" {
		t.Errorf("units: %q", u)
	}
}

func fragmentField(v ...float64) *model.Field {
	return &model.Field{
		Props:     model.Properties{"units": "K"},
		Array:     cfnc.NewDense(cfnc.Double, []int{len(v)}, v),
		Axes:      []string{"time"},
		Domain:    model.Domain{Axes: []*model.DomainAxis{{Key: "time", Size: len(v)}}},
		NCVarName: "tas",
	}
}

func aggregatedField(t *testing.T, unlimited bool) *model.Field {
	a, err := cfnc.NewAggregated(cfnc.Double, []int{4}, [][]int{{2, 2}}, []cfnc.Fragment{
		{Locations: []string{"frag0.nc"}, Addresses: []string{"tas"}, Format: "nc"},
		{Locations: []string{"frag1.nc"}, Addresses: []string{"tas"}, Format: "nc"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &model.Field{
		Props:     model.Properties{"units": "K"},
		Array:     a,
		Axes:      []string{"time"},
		Domain:    model.Domain{Axes: []*model.DomainAxis{{Key: "time", Size: 4, Unlimited: unlimited}}},
		NCVarName: "tas",
	}
}

func TestWriteRead_aggregated(t *testing.T) {
	dir := t.TempDir()
	for name, f := range map[string]*model.Field{
		"frag0.nc": fragmentField(1, 2),
		"frag1.nc": fragmentField(3, 4),
	} {
		if err := Write(filepath.Join(dir, name), []*model.Field{f}, WithLogger(quiet())); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "tas.nc")
	if err := Write(path, []*model.Field{aggregatedField(t, false)}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	fields, err := Read(path, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	g := fields[0]
	a, ok := g.Array.(*cfnc.Aggregated)
	if !ok {
		t.Fatalf("data are %T", g.Array)
	}
	if !reflect.DeepEqual(a.FragmentSizes(), [][]int{{2, 2}}) {
		t.Errorf("fragment sizes: %v", a.FragmentSizes())
	}
	want := []interface{}{1.0, 2.0, 3.0, 4.0}
	if have := values(t, g.Array); !reflect.DeepEqual(have, want) {
		t.Errorf("data: have %v, want %v", have, want)
	}
}

func TestWrite_aggregatedUnlimited(t *testing.T) {
	err := Write(tempFile(t, "tas.nc"), []*model.Field{aggregatedField(t, true)}, WithLogger(quiet()))
	var sc cfnc.SemanticConflict
	if !errors.As(err, &sc) {
		t.Errorf("have error %v, want a semantic conflict", err)
	}
}

func TestWrite_netCDF4(t *testing.T) {
	lat, lon := latLon()
	err := Write(tempFile(t, "tas.nc"), []*model.Field{tasField(lat, lon)}, WithFormat(NetCDF4), WithLogger(quiet()))
	var ioe cfnc.IOError
	if !errors.As(err, &ioe) {
		t.Errorf("have error %v, want an I/O error", err)
	}
}

func TestWrite_failureKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tas.nc")
	if err := ioutil.WriteFile(path, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}
	f := &model.Field{
		Array: cfnc.NewDense(cfnc.Double, []int{2, 2}, nil),
		Axes:  []string{"time", "member"},
		Domain: model.Domain{Axes: []*model.DomainAxis{
			{Key: "time", Size: 2, Unlimited: true},
			{Key: "member", Size: 2, Unlimited: true},
		}},
		NCVarName: "tas",
	}
	err := Write(path, []*model.Field{f}, WithLogger(quiet()))
	var ioe cfnc.IOError
	if !errors.As(err, &ioe) || !strings.Contains(err.Error(), "only one unlimited dimension") {
		t.Fatalf("have error %v", err)
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "keep" {
		t.Errorf("existing file was modified: %q", b)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("%d files in output directory, want 1", len(entries))
	}
}

func TestOpen(t *testing.T) {
	lat, lon := latLon()
	path := tempFile(t, "tas.nc")
	if err := Write(path, []*model.Field{tasField(lat, lon)}, WithLogger(quiet())); err != nil {
		t.Fatal(err)
	}
	ds, err := NewReader(WithLogger(quiet())).Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	fields := ds.Fields()
	if len(fields) != 1 {
		t.Fatalf("read %d fields, want 1", len(fields))
	}
	m, err := fields[0].Array.Read(cfnc.Slice(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Shape, []int{1, 3}) {
		t.Errorf("shape: %v", m.Shape)
	}
	if v, ok := m.At(0, 0); !ok || v != 273 {
		t.Errorf("first value of second row: %v %v", v, ok)
	}
}

func TestRead_notNetCDF(t *testing.T) {
	path := tempFile(t, "x.nc")
	if err := ioutil.WriteFile(path, []byte("not netCDF"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path)
	var ioe cfnc.IOError
	if !errors.As(err, &ioe) {
		t.Errorf("have error %v, want an I/O error", err)
	}
}
