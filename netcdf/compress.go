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
	"sort"
	"strings"

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

func ints(v []int) []float64 {
	o := make([]float64, len(v))
	for i, e := range v {
		o[i] = float64(e)
	}
	return o
}

// countVariable writes the count variable of a contiguous ragged array
// whose instances lie along dimension instance, and returns the name of
// its sample dimension.
func (fw *fieldWriter) countVariable(counts []int, instance string) (string, error) {
	buf := &auxBuffer{Kind: "count", Values: ints(counts), Attrs: map[string]string{"instance": instance}}
	if name, ok := fw.seen.alreadyWritten(buf, nil, false); ok {
		return fw.samples[name], nil
	}
	total := 0
	for _, c := range counts {
		if c < 0 {
			return "", cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("negative ragged count %d", c)}
		}
		total += c
	}
	sample := fw.addDimension("element", total, false)
	v := fw.addVariable("count", []string{instance}, cfnc.Int, typed(cfnc.Int, buf.Values))
	v.set("sample_dimension", sample)
	v.set("long_name", "number of elements in each instance")
	fw.samples[v.name] = sample
	fw.seen.register(buf, v.name, v.dims)
	return sample, nil
}

// indexVariable writes the index variable of an indexed ragged array
// whose instances lie along dimension instance, and returns the name of
// its sample dimension.
func (fw *fieldWriter) indexVariable(ids []int, instance, dim string) (string, error) {
	buf := &auxBuffer{Kind: "index", Values: ints(ids), Attrs: map[string]string{"instance_dimension": instance}}
	if name, ok := fw.seen.alreadyWritten(buf, nil, false); ok {
		return fw.samples[name], nil
	}
	n := fw.dimIdx[instance].size
	for _, id := range ids {
		if id < 0 || id >= n {
			return "", cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("ragged index %d outside instance dimension %s of size %d", id, instance, n)}
		}
	}
	sample := fw.addDimension(dim, len(ids), false)
	v := fw.addVariable("index", []string{sample}, cfnc.Int, typed(cfnc.Int, buf.Values))
	v.set("instance_dimension", instance)
	v.set("long_name", "which instance this element belongs to")
	fw.samples[v.name] = sample
	fw.seen.register(buf, v.name, v.dims)
	return sample, nil
}

// listVariable writes the list variable of a gathered array whose
// compressed dimensions are compress, and returns its dimension, which
// has the same name.
func (fw *fieldWriter) listVariable(list []int, compress []string) (string, error) {
	attr := strings.Join(compress, " ")
	buf := &auxBuffer{Kind: "list", Values: ints(list), Attrs: map[string]string{"compress": attr}}
	if name, ok := fw.seen.alreadyWritten(buf, nil, false); ok {
		return name, nil
	}
	n := fw.size(compress)
	for _, l := range list {
		if l < 0 || l >= n {
			return "", cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("list value %d outside compressed dimensions %v", l, compress)}
		}
	}
	name := fw.addDimension("list", len(list), false)
	v := fw.namedVariable(name, []string{name}, cfnc.Int, typed(cfnc.Int, buf.Values))
	v.set("compress", attr)
	fw.seen.register(buf, name, v.dims)
	return name, nil
}

// subsampled writes an auxiliary coordinate stored as tie points, with its
// tie point index variables, interpolation parameters and interpolation
// variable.
func (fw *fieldWriter) subsampled(c *model.Coordinate, sub *cfnc.Subsampled) error {
	if err := fw.checkAxes("subsampled coordinate", sub, c.Axes, 0); err != nil {
		return err
	}
	logical, err := fw.dimensions("subsampled coordinate", c.Axes)
	if err != nil {
		return err
	}
	tpDims := append([]string{}, logical...)
	subarea := make(map[int]string)
	var mapping []string
	index := sub.TiePointIndex()
	for _, ax := range sub.SubsampledAxes() {
		idx, err := readInts(index[ax])
		if err != nil {
			return err
		}
		dim := logical[ax]
		buf := &auxBuffer{Kind: "tie_point_index", Values: ints(idx), Attrs: map[string]string{"dimension": dim}}
		name, ok := fw.seen.alreadyWritten(buf, nil, false)
		if !ok {
			tp := fw.addDimension("tp_"+dim, len(idx), false)
			v := fw.addVariable(dim+"_indices", []string{tp}, cfnc.Int, typed(cfnc.Int, buf.Values))
			fw.seen.register(buf, v.name, v.dims)
			name = v.name
		}
		tpDims[ax] = fw.varIdx[name].dims[0]
		m := fmt.Sprintf("%s: %s %s", dim, name, tpDims[ax])
		if len(sub.Parameters()) > 0 {
			subarea[ax] = fw.sharedDimension("subarea_"+dim, len(idx)-1)
			m += " " + subarea[ax]
		}
		mapping = append(mapping, m)
	}

	params := sub.Parameters()
	terms := make([]string, 0, len(params))
	for term := range params {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	var paramAttr []string
	for _, term := range terms {
		p := params[term]
		dims := make([]string, len(p.Axes))
		for i, a := range p.Axes {
			if d, ok := subarea[a]; ok {
				dims[i] = d
			} else {
				dims[i] = logical[a]
			}
		}
		st, err := fw.dense(p.Data, dims, nil)
		if err != nil {
			return err
		}
		vals := untyped(st.dtype, st.data)
		buf := &auxBuffer{Kind: "interpolation_parameter", Values: vals, Attrs: map[string]string{"term": term, "dims": strings.Join(dims, " ")}}
		name, ok := fw.seen.alreadyWritten(buf, nil, false)
		if !ok {
			v := fw.addVariable(term, st.dims, st.dtype, st.data)
			st.apply(v)
			fw.seen.register(buf, v.name, v.dims)
			name = v.name
		}
		paramAttr = append(paramAttr, term+": "+name)
	}

	ibuf := &auxBuffer{Kind: "interpolation", Attrs: map[string]string{
		"interpolation_name":       sub.InterpolationName(),
		"tie_point_mapping":        strings.Join(mapping, " "),
		"interpolation_parameters": strings.Join(paramAttr, " "),
	}}
	interp, ok := fw.seen.alreadyWritten(ibuf, nil, false)
	if !ok {
		v := fw.addVariable("interpolation", nil, cfnc.Int, typed(cfnc.Int, []float64{0}))
		v.set("interpolation_name", sub.InterpolationName())
		v.set("tie_point_mapping", strings.Join(mapping, " "))
		if len(paramAttr) > 0 {
			v.set("interpolation_parameters", strings.Join(paramAttr, " "))
		}
		fw.seen.register(ibuf, v.name, nil)
		interp = v.name
	}

	name, ok := fw.seen.alreadyWritten(c, tpDims, true)
	if !ok {
		st, err := fw.dense(sub.TiePoints(), tpDims, c.Props)
		if err != nil {
			return err
		}
		v := fw.addVariable(candidate(c.NCVarName, c.Props.String("standard_name"), "auxiliary"), st.dims, st.dtype, st.data)
		if err := fw.properties(v, c.Props, nil); err != nil {
			return err
		}
		st.apply(v)
		fw.seen.register(c, v.name, tpDims)
		name = v.name
	}
	if c.Bounds != nil {
		fw.log.WithField("variable", name).Warn("netcdf: bounds of subsampled coordinates are not written")
	}
	fw.coordVars[c] = name
	fw.interpolation = append(fw.interpolation, name+": "+interp)
	return nil
}

// aggregable reports whether every fragment of a can be referenced from
// an aggregation variable.
func aggregable(a *cfnc.Aggregated) bool {
	if len(a.Shape()) == 0 {
		return false
	}
	for _, f := range a.Fragments() {
		if !f.Literal && len(f.Locations) == 0 {
			return false
		}
	}
	return true
}

// aggregation writes a as a scalar aggregation variable that refers to
// its fragment files.
func (fw *fieldWriter) aggregation(a *cfnc.Aggregated, dims []string, props model.Properties) (*stored, error) {
	for _, d := range dims {
		if fw.dimIdx[d].unlimited {
			return nil, cfnc.SemanticConflict{Op: "Write", Msg: fmt.Sprintf("aggregated data cannot span unlimited dimension %s", d)}
		}
	}
	sizes := a.FragmentSizes()
	frags := a.Fragments()
	grid := make([]string, len(dims))
	gshape := make([]int, len(dims))
	most := 0
	for i, d := range dims {
		gshape[i] = len(sizes[i])
		grid[i] = fw.sharedDimension("f_"+d, gshape[i])
		if gshape[i] > most {
			most = gshape[i]
		}
	}

	loc := make([]float64, len(dims)*most)
	mask := make([]bool, len(loc))
	for i, s := range sizes {
		for j := 0; j < most; j++ {
			if j < len(s) {
				loc[i*most+j] = float64(s[j])
			} else {
				mask[i*most+j] = true
			}
		}
	}
	i := fw.sharedDimension("i", len(dims))
	j := fw.sharedDimension("j", most)
	location, err := fw.auxiliaryArray("aggregation_location", cfnc.NewMaskedDense(cfnc.Int, []int{len(dims), most}, loc, mask), []string{i, j})
	if err != nil {
		return nil, err
	}

	versions := 1
	for _, f := range frags {
		if len(f.Locations) > versions {
			versions = len(f.Locations)
		}
	}
	vshape, vdims := gshape, grid
	if versions > 1 {
		vshape = append(append([]int{}, gshape...), versions)
		vdims = append(append([]string{}, grid...), fw.sharedDimension("versions", versions))
	}
	files := make([]string, 0, len(frags)*versions)
	addrs := make([]string, 0, len(frags)*versions)
	formats := make(map[string]bool)
	var literal bool
	for _, f := range frags {
		if f.Literal {
			literal = true
		} else {
			formats[f.Format] = true
		}
		for v := 0; v < versions; v++ {
			var l, ad string
			if v < len(f.Locations) {
				l = f.Locations[v]
				switch {
				case v < len(f.Addresses):
					ad = f.Addresses[v]
				case len(f.Addresses) > 0:
					ad = f.Addresses[0]
				}
			}
			files = append(files, l)
			addrs = append(addrs, ad)
		}
	}
	file, err := fw.auxiliaryArray("aggregation_file", cfnc.NewStrings(vshape, files), vdims)
	if err != nil {
		return nil, err
	}
	if subs := a.Substitutions(); len(subs) > 0 {
		keys := make([]string, 0, len(subs))
		for k := range subs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			keys[i] = fmt.Sprintf("${%s}: %s", k, subs[k])
		}
		fw.varIdx[file].set("substitutions", strings.Join(keys, " "))
	}
	address, err := fw.auxiliaryArray("aggregation_address", cfnc.NewStrings(vshape, addrs), vdims)
	if err != nil {
		return nil, err
	}
	var format string
	if len(formats) <= 1 {
		f := "nc"
		for k := range formats {
			if k != "" {
				f = k
			}
		}
		format, err = fw.auxiliaryArray("aggregation_format", cfnc.NewStrings(nil, []string{f}), nil)
	} else {
		fs := make([]string, len(frags))
		for k, f := range frags {
			fs[k] = f.Format
		}
		format, err = fw.auxiliaryArray("aggregation_format", cfnc.NewStrings(gshape, fs), grid)
	}
	if err != nil {
		return nil, err
	}
	terms := fmt.Sprintf("location: %s file: %s format: %s address: %s", location, file, format, address)
	if literal {
		vals := make([]float64, len(frags))
		vmask := make([]bool, len(frags))
		for k, f := range frags {
			vals[k] = f.Value
			vmask[k] = !f.Literal
		}
		value, err := fw.auxiliaryArray("aggregation_value", cfnc.NewMaskedDense(a.DataType(), gshape, vals, vmask), grid)
		if err != nil {
			return nil, err
		}
		terms += " value: " + value
	}

	fw.aggregated = true
	st := &stored{dtype: a.DataType(), dims: []string{}}
	st.data = typed(st.dtype, []float64{st.dtype.FillValue()})
	st.attrs = []attribute{
		{name: "aggregated_dimensions", value: strings.Join(dims, " ")},
		{name: "aggregated_data", value: terms},
	}
	return st, nil
}

// auxiliaryArray writes an array that supports another variable and
// returns its name.
func (fw *fieldWriter) auxiliaryArray(name string, a cfnc.Array, dims []string) (string, error) {
	st, err := fw.dense(a, dims, nil)
	if err != nil {
		return "", err
	}
	v := fw.addVariable(name, st.dims, st.dtype, st.data)
	st.apply(v)
	return v.name, nil
}
