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

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// stored is an array encoded for storage in a netCDF variable, together
// with the attributes its encoding requires.
type stored struct {
	dims  []string
	dtype cfnc.DataType
	data  interface{}
	attrs []attribute
}

func (st *stored) apply(v *variable) {
	for _, a := range st.attrs {
		v.set(a.name, a.value)
	}
}

// store encodes array a, which spans the given domain axes followed by the
// trailing netCDF dimensions. Compressed arrays are written compressed
// where the file format has an encoding for them.
func (fw *fieldWriter) store(what string, a cfnc.Array, axes []string, props model.Properties, trailing ...string) (*stored, error) {
	if err := fw.checkAxes(what, a, axes, len(trailing)); err != nil {
		return nil, err
	}
	k := 0
	for k < len(axes) && k < len(fw.raggedAxes) && axes[k] == fw.raggedAxes[k] {
		k++
	}
	for i, ax := range axes {
		if fw.noDim[ax] && i >= k {
			return nil, cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s spans ragged axis %q without the axes before it", what, ax)}
		}
	}
	if k > 1 {
		return fw.storeRagged(what, a, axes, props, k, trailing)
	}
	dims, err := fw.dimensions(what, axes)
	if err != nil {
		return nil, err
	}
	dims = append(dims, trailing...)
	switch c := a.(type) {
	case *cfnc.Gathered:
		return fw.storeGathered(c, dims, props)
	case *cfnc.Aggregated:
		if aggregable(c) {
			return fw.aggregation(c, dims, props)
		}
	}
	return fw.dense(a, dims, props)
}

// dimensions returns the netCDF dimensions of the given domain axes.
func (fw *fieldWriter) dimensions(what string, axes []string) ([]string, error) {
	dims := make([]string, 0, len(axes))
	for _, ax := range axes {
		d, ok := fw.dims[ax]
		if !ok {
			return nil, cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s spans axis %q, which has no netCDF dimension", what, ax)}
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// storeRagged writes an array whose first k axes are the leading axes of
// the field's ragged data.
func (fw *fieldWriter) storeRagged(what string, a cfnc.Array, axes []string, props model.Properties, k int, trailing []string) (*stored, error) {
	c, ok := a.(cfnc.Compressed)
	if !ok || k != len(fw.raggedAxes) || c.CompressionType() != fw.ragged.CompressionType() {
		var err error
		if c, err = cfnc.Recompress(fw.ragged, a, k); err != nil {
			return nil, err
		}
	}
	rest, err := fw.dimensions(what, axes[k:])
	if err != nil {
		return nil, err
	}
	instance, err := fw.dimensions(what, axes[:1])
	if err != nil {
		return nil, err
	}
	var sample string
	var data cfnc.Array
	switch r := c.(type) {
	case *cfnc.RaggedContiguous:
		if sample, err = fw.countVariable(r.Counts(), instance[0]); err != nil {
			return nil, err
		}
		data = r.CompressedData()
	case *cfnc.RaggedIndexed:
		ids, err := readInts(r.Index())
		if err != nil {
			return nil, err
		}
		dim := "obs"
		if _, ok := fw.ragged.(*cfnc.RaggedIndexedContiguous); ok {
			dim = "profile"
		}
		if sample, err = fw.indexVariable(ids, instance[0], dim); err != nil {
			return nil, err
		}
		data = r.CompressedData()
	case *cfnc.RaggedIndexedContiguous:
		ids, err := readInts(r.Index())
		if err != nil {
			return nil, err
		}
		profile, err := fw.indexVariable(ids, instance[0], "profile")
		if err != nil {
			return nil, err
		}
		counts, err := readInts(r.Count())
		if err != nil {
			return nil, err
		}
		if sample, err = fw.countVariable(counts, profile); err != nil {
			return nil, err
		}
		data = r.CompressedData()
	default:
		return nil, cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s: %s is not a ragged encoding", what, c.CompressionType())}
	}
	dims := append(append([]string{sample}, rest...), trailing...)
	return fw.dense(data, dims, props)
}

func (fw *fieldWriter) storeGathered(g *cfnc.Gathered, dims []string, props model.Properties) (*stored, error) {
	list, err := readInts(g.List())
	if err != nil {
		return nil, err
	}
	gathered := g.GatheredAxes()
	first, n := gathered[0], len(gathered)
	dim, err := fw.listVariable(list, dims[first:first+n])
	if err != nil {
		return nil, err
	}
	out := append(append(append([]string{}, dims[:first]...), dim), dims[first+n:]...)
	return fw.dense(g.CompressedData(), out, props)
}

// dense stores the values of a uncompressed. Numeric values are packed
// into the storage type of a, and text is stored as characters along a
// trailing string length dimension.
func (fw *fieldWriter) dense(a cfnc.Array, dims []string, props model.Properties) (*stored, error) {
	m, err := a.Read()
	if err != nil {
		return nil, err
	}
	st := &stored{dims: dims, dtype: a.DataType()}
	if st.dtype == cfnc.Char {
		strlen := maxLen(m.Strings)
		dim := fw.sharedDimension(fmt.Sprintf("strlen%d", strlen), strlen)
		st.dims = append(append([]string{}, dims...), dim)
		st.data = text(m.Strings, strlen)
		return st, nil
	}
	if ix, ok := a.(*cfnc.Indexer); ok {
		st.dtype = ix.StorageType()
	}
	attrs := cfnc.Attributes(props)
	packed, err := cfnc.Pack(m, attrs, st.dtype)
	if err != nil {
		return nil, err
	}
	if m.Count() < m.Len() {
		_, fill := props["_FillValue"]
		_, missing := props["missing_value"]
		if !fill && !missing {
			st.attrs = append(st.attrs, attribute{name: "_FillValue", value: typed(st.dtype, []float64{cfnc.FillValue(attrs, st.dtype)})})
		}
	}
	if n := fw.size(dims); n != len(packed) {
		return nil, cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%d values do not fill dimensions %v of size %d", len(packed), dims, n)}
	}
	st.data = typed(st.dtype, packed)
	return st, nil
}

func readInts(a cfnc.Array) ([]int, error) {
	m, err := a.Read()
	if err != nil {
		return nil, err
	}
	return m.Ints("Write")
}
