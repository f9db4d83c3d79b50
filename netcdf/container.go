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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/hdf5"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cfnc"
)

// container is an open netCDF dataset.
type container interface {
	variables() []string
	// dims returns the dimensions of v. Text variables have a trailing
	// string length dimension.
	dims(v string) []string
	shape(v string) []int
	dtype(v string) cfnc.DataType
	// attrs returns the attributes of v, or the global attributes if v
	// is "".
	attrs(v string) []attribute
	dimSize(d string) (int, bool)
	unlimited(d string) bool
	source(v string) cfnc.Source
	io.Closer
}

const (
	classicMagic = "CDF"
	hdf5Magic    = "\x89HDF"
)

// readerAt is the storage of a dataset held in memory.
type readerAt struct {
	*bytes.Reader
}

func (readerAt) WriteAt([]byte, int64) (int, error) {
	return 0, errors.New("netcdf: dataset is read-only")
}

func (readerAt) Close() error { return nil }

// openFile opens the dataset at path.
func openFile(path string) (container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cfnc.IOError{Op: "Read", Path: path, Err: err}
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("reading file signature: %v", err)}
	}
	switch {
	case string(magic[:3]) == classicMagic:
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, cfnc.IOError{Op: "Read", Path: path, Err: err}
		}
		return wrap(openClassic(path, f, f, fi.Size()))
	case string(magic) == hdf5Magic:
		f.Close()
		g, err := hdf5.Open(path)
		if err != nil {
			return nil, cfnc.IOError{Op: "Read", Path: path, Err: err}
		}
		return wrapHDF5(openHDF5(path, g))
	}
	f.Close()
	return nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("not a netCDF file")}
}

// openBytes opens a dataset held in memory. name is used in messages.
func openBytes(name string, b []byte) (container, error) {
	rw := readerAt{bytes.NewReader(b)}
	switch {
	case bytes.HasPrefix(b, []byte(classicMagic)):
		return wrap(openClassic(name, rw, rw, int64(len(b))))
	case bytes.HasPrefix(b, []byte(hdf5Magic)):
		g, err := hdf5.New(rw)
		if err != nil {
			return nil, cfnc.IOError{Op: "Read", Path: name, Err: err}
		}
		return wrapHDF5(openHDF5(name, g))
	}
	return nil, cfnc.IOError{Op: "Read", Path: name, Err: fmt.Errorf("not a netCDF file")}
}

func wrap(ds *classic, err error) (container, error) {
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func wrapHDF5(ds *hdf5File, err error) (container, error) {
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// classic is a netCDF classic or 64-bit offset dataset.
type classic struct {
	path    string
	f       *cdf.File
	c       io.Closer
	numrecs int
	sizes   map[string]int
	record  string
}

func openClassic(path string, rw cdf.ReaderWriterAt, c io.Closer, size int64) (ds *classic, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.Close()
			ds, err = nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("invalid header: %v", r)}
		}
	}()
	f, err := cdf.Open(rw)
	if err != nil {
		c.Close()
		return nil, cfnc.IOError{Op: "Read", Path: path, Err: err}
	}
	ds = &classic{path: path, f: f, c: c, sizes: make(map[string]int)}
	var buf [4]byte
	if _, err := rw.ReadAt(buf[:], 4); err != nil {
		c.Close()
		return nil, cfnc.IOError{Op: "Read", Path: path, Err: err}
	}
	if n := int32(binary.BigEndian.Uint32(buf[:])); n >= 0 {
		ds.numrecs = int(n)
	} else {
		ds.numrecs = int(f.Header.NumRecs(size))
	}
	lengths := f.Header.Lengths("")
	for i, d := range f.Header.Dimensions("") {
		if lengths[i] == 0 {
			ds.record = d
			ds.sizes[d] = ds.numrecs
			continue
		}
		ds.sizes[d] = lengths[i]
	}
	return ds, nil
}

func (ds *classic) variables() []string    { return ds.f.Header.Variables() }
func (ds *classic) dims(v string) []string { return ds.f.Header.Dimensions(v) }

func (ds *classic) shape(v string) []int {
	s := append([]int{}, ds.f.Header.Lengths(v)...)
	if ds.f.Header.IsRecordVariable(v) {
		s[0] = ds.numrecs
	}
	return s
}

func (ds *classic) dtype(v string) cfnc.DataType {
	switch ds.f.Header.ZeroValue(v, 1).(type) {
	case string:
		return cfnc.Char
	case []uint8:
		return cfnc.Byte
	case []int16:
		return cfnc.Short
	case []int32:
		return cfnc.Int
	case []float32:
		return cfnc.Float
	case []float64:
		return cfnc.Double
	}
	return cfnc.InvalidType
}

func (ds *classic) attrs(v string) []attribute {
	names := ds.f.Header.Attributes(v)
	o := make([]attribute, len(names))
	for i, n := range names {
		o[i] = attribute{name: n, value: propValue(ds.f.Header.GetAttribute(v, n))}
	}
	return o
}

func (ds *classic) dimSize(d string) (int, bool) {
	n, ok := ds.sizes[d]
	return n, ok
}

func (ds *classic) unlimited(d string) bool { return d != "" && d == ds.record }

func (ds *classic) source(v string) cfnc.Source {
	return &classicSource{ds: ds, name: v, shape: ds.shape(v), t: ds.dtype(v)}
}

func (ds *classic) Close() error { return ds.c.Close() }

// classicSource reads a variable of a classic dataset.
type classicSource struct {
	ds    *classic
	name  string
	shape []int
	t     cfnc.DataType
}

func (s *classicSource) Shape() []int           { return append([]int{}, s.shape...) }
func (s *classicSource) DataType() cfnc.DataType { return s.t }
func (s *classicSource) Filename() string       { return s.ds.path }

// ReadRaw reads the slab of the outermost axis that covers the hyperslab
// and extracts the hyperslab from it.
func (s *classicSource) ReadRaw(begin, end []int) (raw *sparse.DenseArray, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, cfnc.IOError{Op: "Read", Path: s.ds.path, Err: fmt.Errorf("reading variable %s: %v", s.name, r)}
		}
	}()
	if len(begin) != len(s.shape) || len(end) != len(s.shape) {
		return nil, cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("hyperslab %v:%v does not match shape %v", begin, end, s.shape)}
	}
	slab := append([]int{}, s.shape...)
	var b, e []int
	if len(s.shape) > 0 {
		slab[0] = end[0] - begin[0]
		b = make([]int, len(s.shape))
		e = make([]int, len(s.shape))
		b[0] = begin[0]
		for i := range e {
			e[i] = s.shape[i] - 1
		}
		e[0] = end[0] - 1
	}
	n := 1
	for _, l := range slab {
		n *= l
	}
	values := make([]float64, n)
	if n > 0 {
		var buf interface{}
		switch s.t {
		case cfnc.Byte, cfnc.Char:
			buf = make([]uint8, n)
		default:
			buf = s.ds.f.Header.ZeroValue(s.name, n)
		}
		r := s.ds.f.Reader(s.name, b, e)
		if _, err := r.Read(buf); err != nil && err != io.EOF {
			return nil, cfnc.IOError{Op: "Read", Path: s.ds.path, Err: fmt.Errorf("reading variable %s: %v", s.name, err)}
		}
		values = untyped(s.t, buf)
	}
	m := sparse.ZerosDense(slab...)
	m.Elements = values
	local := append([]int{}, begin...)
	localEnd := append([]int{}, end...)
	if len(local) > 0 {
		local[0], localEnd[0] = 0, end[0]-begin[0]
	}
	return cfnc.NewMemorySource(s.t, m).ReadRaw(local, localEnd)
}

// hdf5File is a netCDF-4 dataset. Variables are read into memory when the
// dataset is opened.
type hdf5File struct {
	path  string
	g     api.Group
	names []string
	vars  map[string]*h5var
	sizes map[string]int
	glob  []attribute
}

type h5var struct {
	dims  []string
	raw   *sparse.DenseArray
	t     cfnc.DataType
	attrs []attribute
}

func openHDF5(path string, g api.Group) (ds *hdf5File, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.Close()
			ds, err = nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("%v", r)}
		}
	}()
	ds = &hdf5File{path: path, g: g, vars: make(map[string]*h5var), sizes: make(map[string]int)}
	ds.glob = h5attrs(g.Attributes())
	for _, name := range g.ListVariables() {
		vg, err := g.GetVarGetter(name)
		if err != nil {
			g.Close()
			return nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("variable %s: %v", name, err)}
		}
		values, err := vg.Values()
		if err != nil {
			g.Close()
			return nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("variable %s: %v", name, err)}
		}
		v := &h5var{t: h5type(vg.Type()), attrs: h5attrs(vg.Attributes())}
		shape, flat := flatten(values)
		dims := vg.Dimensions()
		if s, ok := flat.([]string); ok {
			v.t = cfnc.Char
			strlen := maxLen(s)
			codes := text(s, strlen)
			raw := make([]float64, len(codes))
			for i, c := range codes {
				raw[i] = float64(c)
			}
			shape = append(shape, strlen)
			flat = raw
			if len(dims) < len(shape) {
				dims = append(dims, fmt.Sprintf("strlen%d", strlen))
			}
		}
		if len(dims) != len(shape) {
			g.Close()
			return nil, cfnc.IOError{Op: "Read", Path: path, Err: fmt.Errorf("variable %s has dimensions %v but shape %v", name, dims, shape)}
		}
		v.dims = dims
		v.raw = sparse.ZerosDense(shape...)
		v.raw.Elements = flat.([]float64)
		for i, d := range dims {
			ds.sizes[d] = shape[i]
		}
		ds.names = append(ds.names, name)
		ds.vars[name] = v
	}
	return ds, nil
}

// h5type returns the type that holds values of the given CDL type.
func h5type(cdl string) cfnc.DataType {
	switch cdl {
	case "byte":
		return cfnc.Byte
	case "char", "string":
		return cfnc.Char
	case "short", "ubyte":
		return cfnc.Short
	case "int", "ushort":
		return cfnc.Int
	case "float":
		return cfnc.Float
	}
	return cfnc.Double
}

func h5attrs(m api.AttributeMap) []attribute {
	if m == nil {
		return nil
	}
	var o []attribute
	for _, k := range m.Keys() {
		v, ok := m.Get(k)
		if !ok {
			continue
		}
		o = append(o, attribute{name: k, value: propValue(v)})
	}
	return o
}

// flatten returns the shape of nested slices and their elements in
// row-major order, as []float64 for numbers or []string for text.
func flatten(v interface{}) ([]int, interface{}) {
	rv := reflect.ValueOf(v)
	var shape []int
	for t := rv; t.Kind() == reflect.Slice; t = t.Index(0) {
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
	}
	var nums []float64
	var strs []string
	var walk func(x reflect.Value)
	walk = func(x reflect.Value) {
		switch x.Kind() {
		case reflect.Slice:
			for i := 0; i < x.Len(); i++ {
				walk(x.Index(i))
			}
		case reflect.String:
			strs = append(strs, x.String())
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
			nums = append(nums, float64(x.Int()))
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			nums = append(nums, float64(x.Uint()))
		case reflect.Float32, reflect.Float64:
			nums = append(nums, x.Float())
		}
	}
	walk(rv)
	if strs != nil {
		return shape, strs
	}
	if nums == nil {
		nums = []float64{}
	}
	return shape, nums
}

func (ds *hdf5File) variables() []string    { return ds.names }
func (ds *hdf5File) dims(v string) []string { return append([]string{}, ds.vars[v].dims...) }
func (ds *hdf5File) shape(v string) []int   { return append([]int{}, ds.vars[v].raw.Shape...) }
func (ds *hdf5File) dtype(v string) cfnc.DataType {
	return ds.vars[v].t
}

func (ds *hdf5File) attrs(v string) []attribute {
	if v == "" {
		return ds.glob
	}
	return ds.vars[v].attrs
}

func (ds *hdf5File) dimSize(d string) (int, bool) {
	n, ok := ds.sizes[d]
	return n, ok
}

func (ds *hdf5File) unlimited(string) bool { return false }

func (ds *hdf5File) source(v string) cfnc.Source {
	return cfnc.NewMemorySource(ds.vars[v].t, ds.vars[v].raw)
}

func (ds *hdf5File) Close() error {
	ds.g.Close()
	return nil
}
