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
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// datumParameters are the grid mapping parameters that describe the datum
// rather than the coordinate conversion.
var datumParameters = map[string]bool{
	"semi_major_axis":             true,
	"semi_minor_axis":             true,
	"inverse_flattening":          true,
	"longitude_of_prime_meridian": true,
	"earth_radius":                true,
	"reference_ellipsoid_name":    true,
	"horizontal_datum_name":       true,
	"prime_meridian_name":         true,
	"towgs84":                     true,
}

// horizontal are the standard names of coordinates that a grid mapping
// given in the short form applies to.
var horizontal = map[string]bool{
	"latitude":                        true,
	"longitude":                       true,
	"grid_latitude":                   true,
	"grid_longitude":                  true,
	"projection_x_coordinate":         true,
	"projection_y_coordinate":         true,
	"projection_x_angular_coordinate": true,
	"projection_y_angular_coordinate": true,
}

type ncVar struct {
	name  string
	dims  []string
	dtype cfnc.DataType
	props model.Properties
}

func (v *ncVar) attr(name string) string { return v.props.String(name) }

// pair is one "key: value ..." entry of a CF attribute.
type pair struct {
	key    string
	values []string
}

// pairs parses attributes such as cell_measures and formula_terms.
func pairs(s string) []pair {
	var o []pair
	for _, t := range strings.Fields(s) {
		if strings.HasSuffix(t, ":") {
			o = append(o, pair{key: strings.TrimSuffix(t, ":")})
			continue
		}
		if len(o) == 0 {
			o = append(o, pair{})
		}
		o[len(o)-1].values = append(o[len(o)-1].values, t)
	}
	return o
}

func pairMap(s string) map[string]string {
	m := make(map[string]string)
	for _, p := range pairs(s) {
		if len(p.values) > 0 {
			m[p.key] = p.values[0]
		}
	}
	return m
}

func indexOf(s []string, v string) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return -1
}

// decoder assembles the fields of a dataset.
type decoder struct {
	cfg  *config
	log  logrus.FieldLogger
	path string
	ds   container

	names    []string
	vars     map[string]*ncVar
	global   model.Properties
	external map[string]bool

	// counts, indexes and lists map sample and list dimensions to the
	// ragged count, ragged index and gathered list variables.
	counts  map[string]string
	indexes map[string]string
	lists   map[string]string

	arrays     map[string]cfnc.Array
	logical    map[string][]string
	constructs map[string]model.Construct
}

func newDecoder(cfg *config, path string, ds container) *decoder {
	d := &decoder{
		cfg:        cfg,
		log:        cfg.log.WithField("path", path),
		path:       path,
		ds:         ds,
		vars:       make(map[string]*ncVar),
		global:     make(model.Properties),
		external:   make(map[string]bool),
		counts:     make(map[string]string),
		indexes:    make(map[string]string),
		lists:      make(map[string]string),
		arrays:     make(map[string]cfnc.Array),
		logical:    make(map[string][]string),
		constructs: make(map[string]model.Construct),
	}
	for _, a := range ds.attrs("") {
		d.global[a.name] = a.value
	}
	for _, e := range strings.Fields(d.global.String("external_variables")) {
		d.external[e] = true
	}
	for _, name := range ds.variables() {
		v := &ncVar{name: name, dims: ds.dims(name), dtype: ds.dtype(name), props: make(model.Properties)}
		for _, a := range ds.attrs(name) {
			v.props[a.name] = a.value
		}
		d.names = append(d.names, name)
		d.vars[name] = v
		if s := v.attr("sample_dimension"); s != "" {
			d.counts[s] = name
		}
		if v.attr("instance_dimension") != "" && len(v.dims) == 1 {
			d.indexes[v.dims[0]] = name
		}
		if v.attr("compress") != "" && len(v.dims) == 1 && v.dims[0] == name {
			d.lists[name] = name
		}
	}
	return d
}

// internal reports whether an attribute is bookkeeping of the file format
// rather than a property.
func internal(name string) bool {
	return strings.HasPrefix(name, "_Netcdf4") || name == "_NCProperties" || name == "_IsNetcdf4" || name == "_SuperblockVersion"
}

// props returns the properties of v. Field properties include the global
// attributes.
func (d *decoder) props(v *ncVar, field bool) model.Properties {
	p := make(model.Properties)
	if field {
		for k, val := range d.global {
			if reserved[k] || internal(k) {
				continue
			}
			p[k] = val
		}
	}
	for k, val := range v.props {
		if reserved[k] || internal(k) {
			continue
		}
		p[k] = val
	}
	return p
}

// referenced returns the variables that are part of another variable's
// description, and so are not data variables.
func (d *decoder) referenced() map[string]bool {
	r := make(map[string]bool)
	mark := func(names ...string) {
		for _, n := range names {
			r[n] = true
		}
	}
	for _, name := range d.names {
		v := d.vars[name]
		if len(v.dims) > 0 && v.dims[0] == name {
			mark(name)
		}
		mark(strings.Fields(v.attr("coordinates"))...)
		mark(strings.Fields(v.attr("ancillary_variables"))...)
		mark(v.attr("bounds"), v.attr("climatology"))
		for _, attr := range []string{"cell_measures", "formula_terms", "aggregated_data", "interpolation_parameters"} {
			for _, p := range pairs(v.attr(attr)) {
				mark(p.values...)
			}
		}
		for _, p := range pairs(v.attr("grid_mapping")) {
			mark(p.key)
			mark(p.values...)
		}
		for _, p := range pairs(v.attr("coordinate_interpolation")) {
			mark(p.key)
			mark(p.values...)
		}
		for _, p := range pairs(v.attr("tie_point_mapping")) {
			if len(p.values) > 0 {
				mark(p.values[0])
			}
		}
		for _, a := range []string{"sample_dimension", "instance_dimension", "compress", "interpolation_name"} {
			if v.attr(a) != "" {
				mark(name)
			}
		}
	}
	delete(r, "")
	return r
}

// fields returns a field for every data variable.
func (d *decoder) fields() ([]*model.Field, error) {
	refd := d.referenced()
	var o []*model.Field
	for _, name := range d.names {
		if refd[name] {
			continue
		}
		f, err := d.field(d.vars[name])
		if err != nil {
			return nil, err
		}
		o = append(o, f)
	}
	return o, nil
}

// raw returns the variable as stored, with packing and missing values
// applied.
func (d *decoder) raw(v *ncVar) (*cfnc.Indexer, error) {
	ix, err := cfnc.NewIndexer(d.ds.source(v.name), cfnc.Attributes(v.props))
	if err != nil {
		return nil, fmt.Errorf("netcdf: variable %s: %v", v.name, err)
	}
	return ix, nil
}

func (d *decoder) variable(name string) (*ncVar, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: variable %s does not exist", d.path, name)}
	}
	return v, nil
}

func (d *decoder) ints(name string) ([]int, error) {
	v, err := d.variable(name)
	if err != nil {
		return nil, err
	}
	ix, err := d.raw(v)
	if err != nil {
		return nil, err
	}
	m, err := ix.Read()
	if err != nil {
		return nil, err
	}
	return m.Ints("Read")
}

func (d *decoder) size(dim string) (int, error) {
	n, ok := d.ds.dimSize(dim)
	if !ok {
		return 0, cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: dimension %s does not exist", d.path, dim)}
	}
	return n, nil
}

func maxInt(v []int) int {
	m := 0
	for _, e := range v {
		if e > m {
			m = e
		}
	}
	return m
}

// perInstance returns the largest number of elements of any instance.
func perInstance(ids []int, n int) int {
	c := make([]int, n)
	for _, id := range ids {
		if id >= 0 && id < n {
			c[id]++
		}
	}
	return maxInt(c)
}

// array returns the logical array of a variable and the names of its
// logical axes, decoding compression.
func (d *decoder) array(name string) (cfnc.Array, []string, error) {
	if a, ok := d.arrays[name]; ok {
		return a, d.logical[name], nil
	}
	v, err := d.variable(name)
	if err != nil {
		return nil, nil, err
	}
	a, dims, err := d.decode(v)
	if err != nil {
		return nil, nil, err
	}
	d.arrays[name] = a
	d.logical[name] = dims
	return a, dims, nil
}

func (d *decoder) decode(v *ncVar) (cfnc.Array, []string, error) {
	if v.attr("aggregated_data") != "" {
		return d.aggregation(v)
	}
	ix, err := d.raw(v)
	if err != nil {
		return nil, nil, err
	}
	dims := v.dims
	if v.dtype == cfnc.Char && len(dims) > 0 {
		dims = dims[:len(dims)-1]
	}
	dims = append([]string{}, dims...)
	if len(dims) == 0 || v.attr("sample_dimension") != "" || v.attr("instance_dimension") != "" || v.attr("compress") != "" {
		return ix, dims, nil
	}
	shape := ix.Shape()
	if cv, ok := d.counts[dims[0]]; ok {
		return d.contiguous(ix, dims, shape, cv)
	}
	if iv, ok := d.indexes[dims[0]]; ok {
		ids, err := d.ints(iv)
		if err != nil {
			return nil, nil, err
		}
		instance := d.vars[iv].attr("instance_dimension")
		n, err := d.size(instance)
		if err != nil {
			return nil, nil, err
		}
		index, err := d.raw(d.vars[iv])
		if err != nil {
			return nil, nil, err
		}
		ls := append([]int{n, perInstance(ids, n)}, shape[1:]...)
		c, err := cfnc.Build(cfnc.Description{Type: cfnc.RaggedIndexedType, Shape: ls, Data: ix, Index: index})
		if err != nil {
			return nil, nil, fmt.Errorf("netcdf: variable %s: %v", v.name, err)
		}
		return c, append([]string{instance}, dims...), nil
	}
	for i, dim := range dims {
		lv, ok := d.lists[dim]
		if !ok {
			continue
		}
		compress := strings.Fields(d.vars[lv].attr("compress"))
		list, err := d.raw(d.vars[lv])
		if err != nil {
			return nil, nil, err
		}
		var ls []int
		ls = append(ls, shape[:i]...)
		for _, c := range compress {
			n, err := d.size(c)
			if err != nil {
				return nil, nil, err
			}
			ls = append(ls, n)
		}
		ls = append(ls, shape[i+1:]...)
		c, err := cfnc.Build(cfnc.Description{Type: cfnc.GatheredType, Shape: ls, Data: ix, List: list, Axis: i, N: len(compress)})
		if err != nil {
			return nil, nil, fmt.Errorf("netcdf: variable %s: %v", v.name, err)
		}
		logical := append(append(append([]string{}, dims[:i]...), compress...), dims[i+1:]...)
		return c, logical, nil
	}
	return ix, dims, nil
}

// contiguous decodes a variable along the sample dimension of count
// variable cv, which is either a contiguous ragged array or, when the
// count variable itself lies along the sample dimension of an index
// variable, an indexed contiguous ragged array.
func (d *decoder) contiguous(ix *cfnc.Indexer, dims []string, shape []int, cv string) (cfnc.Array, []string, error) {
	counts, err := d.ints(cv)
	if err != nil {
		return nil, nil, err
	}
	count, err := d.raw(d.vars[cv])
	if err != nil {
		return nil, nil, err
	}
	profile := d.vars[cv].dims[0]
	if iv, ok := d.indexes[profile]; ok {
		ids, err := d.ints(iv)
		if err != nil {
			return nil, nil, err
		}
		station := d.vars[iv].attr("instance_dimension")
		n, err := d.size(station)
		if err != nil {
			return nil, nil, err
		}
		index, err := d.raw(d.vars[iv])
		if err != nil {
			return nil, nil, err
		}
		ls := append([]int{n, perInstance(ids, n), maxInt(counts)}, shape[1:]...)
		c, err := cfnc.Build(cfnc.Description{Type: cfnc.RaggedIndexedContiguousType, Shape: ls, Data: ix, Count: count, Index: index})
		if err != nil {
			return nil, nil, fmt.Errorf("netcdf: variable %s: %v", d.vars[cv].name, err)
		}
		return c, append([]string{station, profile}, dims...), nil
	}
	ls := append([]int{len(counts), maxInt(counts)}, shape[1:]...)
	c, err := cfnc.Build(cfnc.Description{Type: cfnc.RaggedContiguousType, Shape: ls, Data: ix, Count: count})
	if err != nil {
		return nil, nil, fmt.Errorf("netcdf: sample dimension %s: %v", dims[0], err)
	}
	return c, append([]string{profile}, dims...), nil
}

// aggregation decodes an aggregation variable.
func (d *decoder) aggregation(v *ncVar) (cfnc.Array, []string, error) {
	const op = "Read"
	dims := strings.Fields(v.attr("aggregated_dimensions"))
	shape := make([]int, len(dims))
	for i, dim := range dims {
		n, err := d.size(dim)
		if err != nil {
			return nil, nil, err
		}
		shape[i] = n
	}
	terms := pairMap(v.attr("aggregated_data"))
	read := func(term string) (*cfnc.Masked, *ncVar, error) {
		name, ok := terms[term]
		if !ok {
			return nil, nil, nil
		}
		tv, err := d.variable(name)
		if err != nil {
			return nil, nil, err
		}
		ix, err := d.raw(tv)
		if err != nil {
			return nil, nil, err
		}
		m, err := ix.Read()
		return m, tv, err
	}
	loc, _, err := read("location")
	if err != nil {
		return nil, nil, err
	}
	if loc == nil {
		return nil, nil, cfnc.ValidationError{Op: op, Msg: fmt.Sprintf("aggregation variable %s has no location", v.name)}
	}
	rows := 1
	if len(loc.Shape) == 2 {
		rows = loc.Shape[0]
	}
	if rows != len(dims) {
		return nil, nil, cfnc.ValidationError{Op: op, Msg: fmt.Sprintf("aggregation variable %s: location has %d rows for %d dimensions", v.name, rows, len(dims))}
	}
	cols := loc.Len() / rows
	sizes := make([][]int, rows)
	nfrag := 1
	for i := range sizes {
		for j := 0; j < cols; j++ {
			if k := i*cols + j; !loc.IsMasked(k) {
				sizes[i] = append(sizes[i], int(loc.Elements[k]))
			}
		}
		nfrag *= len(sizes[i])
	}

	files, fv, err := read("file")
	if err != nil {
		return nil, nil, err
	}
	addrs, _, err := read("address")
	if err != nil {
		return nil, nil, err
	}
	formats, _, err := read("format")
	if err != nil {
		return nil, nil, err
	}
	values, _, err := read("value")
	if err != nil {
		return nil, nil, err
	}
	versions := 1
	if files != nil && nfrag > 0 {
		versions = len(files.Strings) / nfrag
	}
	str := func(m *cfnc.Masked, k, ver int) string {
		switch {
		case m == nil || len(m.Strings) == 0:
			return ""
		case len(m.Strings) == nfrag*versions:
			return m.Strings[k*versions+ver]
		case len(m.Strings) == nfrag:
			return m.Strings[k]
		}
		return m.Strings[0]
	}
	frags := make([]cfnc.Fragment, nfrag)
	for k := range frags {
		f := &frags[k]
		f.Format = str(formats, k, 0)
		for ver := 0; ver < versions; ver++ {
			if l := str(files, k, ver); l != "" {
				f.Locations = append(f.Locations, l)
				f.Addresses = append(f.Addresses, str(addrs, k, ver))
			}
		}
		if len(f.Locations) == 0 && values != nil && k < values.Len() && !values.IsMasked(k) {
			f.Literal = true
			f.Value = values.Elements[k]
		}
	}

	opts := []cfnc.AggregatedOption{
		cfnc.WithBaseLocation(d.path),
		cfnc.WithFragmentOpener(d.opener()),
		cfnc.WithFragmentCache(d.cfg.fragmentCache),
	}
	if fv != nil {
		subs := make(map[string]string)
		for _, p := range pairs(fv.attr("substitutions")) {
			key := strings.TrimSuffix(strings.TrimPrefix(p.key, "${"), "}")
			subs[key] = strings.Join(p.values, " ")
		}
		opts = append(opts, cfnc.WithSubstitutions(subs))
	}
	opts = append(opts, cfnc.WithSubstitutions(d.cfg.subs))
	c, err := cfnc.Build(cfnc.Description{
		Type:          cfnc.AggregatedType,
		Shape:         shape,
		DataType:      v.dtype,
		FragmentSizes: sizes,
		Fragments:     frags,
		Options:       opts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("netcdf: aggregation variable %s: %v", v.name, err)
	}
	return c, dims, nil
}

func (d *decoder) opener() cfnc.FragmentOpener {
	if d.cfg.opener != nil {
		return d.cfg.opener
	}
	return &fileOpener{cfg: d.cfg}
}
