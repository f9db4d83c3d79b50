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
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spf13/cast"
)

// Attributes holds the variable attributes that control how raw stored
// values are interpreted: _FillValue, missing_value, valid_min,
// valid_max, valid_range, scale_factor and add_offset.
type Attributes map[string]interface{}

// Floats returns the named attribute as a slice of numbers.
func (a Attributes) Floats(name string) ([]float64, bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, false, nil
	}
	f, err := ToFloats(v)
	if err != nil {
		return nil, true, fmt.Errorf("attribute %s: %v", name, err)
	}
	return f, true, nil
}

// ToFloats converts a numeric attribute value (a scalar or a slice) to
// a slice of float64.
func ToFloats(v interface{}) ([]float64, error) {
	if _, ok := v.(string); ok {
		return nil, fmt.Errorf("text value %q is not numeric", v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
	o := make([]float64, rv.Len())
	for i := range o {
		f, err := cast.ToFloat64E(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		o[i] = f
	}
	return o, nil
}

// Source is a raw stored buffer, such as a variable in an open file.
type Source interface {
	// Shape is the stored shape. For Char data the last axis holds the
	// characters of each string.
	Shape() []int

	DataType() DataType

	// ReadRaw returns the stored values in the hyperslab [begin, end).
	// Char data is returned as byte codes.
	ReadRaw(begin, end []int) (*sparse.DenseArray, error)

	// Filename returns the location of the buffer, or "" if it is held
	// in memory.
	Filename() string
}

// MemorySource is a Source held in memory.
type MemorySource struct {
	t   DataType
	raw *sparse.DenseArray
}

// NewMemorySource returns a Source that holds raw.
func NewMemorySource(t DataType, raw *sparse.DenseArray) *MemorySource {
	return &MemorySource{t: t, raw: raw}
}

func (s *MemorySource) Shape() []int       { return append([]int{}, s.raw.Shape...) }
func (s *MemorySource) DataType() DataType { return s.t }
func (s *MemorySource) Filename() string   { return "" }

func (s *MemorySource) ReadRaw(begin, end []int) (*sparse.DenseArray, error) {
	shape := make([]int, len(begin))
	for a := range begin {
		if begin[a] < 0 || end[a] > s.raw.Shape[a] || begin[a] > end[a] {
			return nil, validationf("MemorySource.ReadRaw", "hyperslab %v:%v out of range for shape %v", begin, end, s.raw.Shape)
		}
		shape[a] = end[a] - begin[a]
	}
	o := sparse.ZerosDense(shape...)
	st := strides(s.raw.Shape)
	ost := strides(shape)
	for i := range o.Elements {
		j := 0
		for a := range shape {
			j += (begin[a] + (i/ost[a])%shape[a]) * st[a]
		}
		o.Elements[i] = s.raw.Elements[j]
	}
	return o, nil
}

// Indexer presents a raw stored buffer as a logical array: it masks fill,
// missing and out-of-range values, unpacks scale_factor and add_offset,
// and collapses the character axis of text data.
type Indexer struct {
	src   Source
	attrs Attributes

	shape   []int
	dtype   DataType
	text    bool
	strlen  int
	charDim bool

	fill                     float64
	hasFill                  bool
	missing                  []float64
	validMin, validMax       float64
	hasValidMin, hasValidMax bool

	scale, offset float64
	packed        bool
}

// NewIndexer returns an Indexer for src interpreted using attrs.
func NewIndexer(src Source, attrs Attributes) (*Indexer, error) {
	const op = "NewIndexer"
	ix := &Indexer{src: src, attrs: Attributes{}, scale: 1}
	for k, v := range attrs {
		ix.attrs[k] = v
	}
	raw := src.Shape()
	ix.dtype = src.DataType()
	if !ix.dtype.Valid() {
		return nil, validationf(op, "unsupported data type %v", ix.dtype)
	}
	ix.shape = raw
	if ix.dtype == Char {
		ix.text = true
		if len(raw) > 0 {
			ix.shape = raw[:len(raw)-1]
			ix.strlen = raw[len(raw)-1]
			ix.charDim = true
		} else {
			ix.strlen = 1
		}
		return ix, nil
	}

	f, ok, err := attrs.Floats("_FillValue")
	if err != nil {
		return nil, validationf(op, "%v", err)
	}
	if ok && len(f) > 0 {
		ix.fill, ix.hasFill = f[0], true
	}
	if ix.missing, _, err = attrs.Floats("missing_value"); err != nil {
		return nil, validationf(op, "%v", err)
	}
	if vr, ok, err := attrs.Floats("valid_range"); err != nil {
		return nil, validationf(op, "%v", err)
	} else if ok {
		if len(vr) != 2 {
			return nil, validationf(op, "valid_range must have 2 values, got %d", len(vr))
		}
		ix.validMin, ix.validMax = vr[0], vr[1]
		ix.hasValidMin, ix.hasValidMax = true, true
	}
	if v, ok, err := attrs.Floats("valid_min"); err != nil {
		return nil, validationf(op, "%v", err)
	} else if ok && len(v) > 0 {
		ix.validMin, ix.hasValidMin = v[0], true
	}
	if v, ok, err := attrs.Floats("valid_max"); err != nil {
		return nil, validationf(op, "%v", err)
	} else if ok && len(v) > 0 {
		ix.validMax, ix.hasValidMax = v[0], true
	}
	if !ix.hasFill && ix.dtype != Byte {
		ix.fill, ix.hasFill = ix.dtype.FillValue(), true
	}

	for _, name := range []string{"scale_factor", "add_offset"} {
		v, ok, err := attrs.Floats(name)
		if err != nil {
			return nil, validationf(op, "%v", err)
		}
		if !ok || len(v) == 0 {
			continue
		}
		ix.packed = true
		if name == "scale_factor" {
			ix.scale = v[0]
		} else {
			ix.offset = v[0]
		}
		ix.dtype = unpackedType(attrs[name])
	}
	return ix, nil
}

func unpackedType(v interface{}) DataType {
	switch v.(type) {
	case float32, []float32:
		return Float
	}
	return Double
}

// Shape returns the logical shape.
func (ix *Indexer) Shape() []int { return append([]int{}, ix.shape...) }

// DataType returns the logical (unpacked) data type.
func (ix *Indexer) DataType() DataType { return ix.dtype }

// StorageType returns the type of the raw stored values.
func (ix *Indexer) StorageType() DataType { return ix.src.DataType() }

// Attributes returns a copy of the interpretation attributes.
func (ix *Indexer) Attributes() Attributes {
	a := Attributes{}
	for k, v := range ix.attrs {
		a[k] = v
	}
	return a
}

func (ix *Indexer) Filenames() []string {
	if f := ix.src.Filename(); f != "" {
		return []string{f}
	}
	return nil
}

// isMissing reports whether raw stored value v is missing.
func (ix *Indexer) isMissing(v float64) bool {
	if ix.hasFill && (v == ix.fill || math.IsNaN(v) && math.IsNaN(ix.fill)) {
		return true
	}
	for _, m := range ix.missing {
		if v == m {
			return true
		}
	}
	if ix.hasValidMin && v < ix.validMin {
		return true
	}
	if ix.hasValidMax && v > ix.validMax {
		return true
	}
	return false
}

func (ix *Indexer) Read(index ...AxisIndex) (*Masked, error) {
	sel, err := selectIndex("Indexer.Read", ix.shape, index)
	if err != nil {
		return nil, err
	}
	out := NewMasked(ix.dtype, sel.shape()...)
	if sel.size() == 0 {
		return out, nil
	}
	begin := make([]int, len(ix.shape))
	end := make([]int, len(ix.shape))
	for a, p := range sel.pos {
		begin[a], end[a] = p[0], p[0]+1
		for _, v := range p {
			if v < begin[a] {
				begin[a] = v
			}
			if v+1 > end[a] {
				end[a] = v + 1
			}
		}
	}
	rb, re := begin, end
	if ix.charDim {
		rb = append(append([]int{}, begin...), 0)
		re = append(append([]int{}, end...), ix.strlen)
	}
	raw, err := ix.src.ReadRaw(rb, re)
	if err != nil {
		return nil, err
	}
	box := make([]int, len(begin))
	for a := range begin {
		box[a] = end[a] - begin[a]
	}
	st := strides(box)
	err = sel.each(func(o int, p []int) error {
		j := 0
		for a, v := range p {
			j += (v - begin[a]) * st[a]
		}
		if ix.text {
			s := bytesToString(raw.Elements[j*ix.strlen : (j+1)*ix.strlen])
			out.Strings[o] = s
			if s == "" {
				out.SetMasked(o, true)
			}
			return nil
		}
		v := raw.Elements[j]
		if ix.isMissing(v) {
			out.SetMasked(o, true)
			return nil
		}
		if ix.packed {
			v = v*ix.scale + ix.offset
		}
		out.Elements[o] = v
		return nil
	})
	return out, err
}

func bytesToString(b []float64) string {
	s := make([]byte, len(b))
	for i, v := range b {
		s[i] = byte(v)
	}
	return strings.TrimRight(string(s), "\x00 ")
}

// ToMemory returns an Indexer whose raw buffer is held in memory.
func (ix *Indexer) ToMemory() (Array, error) {
	shape := ix.src.Shape()
	raw, err := ix.src.ReadRaw(make([]int, len(shape)), shape)
	if err != nil {
		return nil, err
	}
	return NewIndexer(NewMemorySource(ix.src.DataType(), raw), ix.attrs)
}

// FillValue returns the value that marks missing elements when data are
// written with the given attributes and storage type.
func FillValue(attrs Attributes, storage DataType) float64 {
	if f, ok, err := attrs.Floats("_FillValue"); err == nil && ok && len(f) > 0 {
		return f[0]
	}
	if m, ok, err := attrs.Floats("missing_value"); err == nil && ok && len(m) > 0 {
		return m[0]
	}
	return storage.FillValue()
}

// Pack converts logical values to stored values of the given type, applying
// scale_factor and add_offset from attrs and writing the fill value at
// missing positions. An unmasked value that packs to the fill value is an
// error, because it would read back as missing.
func Pack(m *Masked, attrs Attributes, storage DataType) ([]float64, error) {
	const op = "Pack"
	scale, offset := 1.0, 0.0
	if v, ok, err := attrs.Floats("scale_factor"); err != nil {
		return nil, validationf(op, "%v", err)
	} else if ok && len(v) > 0 {
		scale = v[0]
	}
	if v, ok, err := attrs.Floats("add_offset"); err != nil {
		return nil, validationf(op, "%v", err)
	} else if ok && len(v) > 0 {
		offset = v[0]
	}
	if scale == 0 {
		return nil, validationf(op, "scale_factor is zero")
	}
	fill := FillValue(attrs, storage)
	lo, hi := storage.Range()
	o := make([]float64, len(m.Elements))
	for i, v := range m.Elements {
		if m.IsMasked(i) {
			o[i] = fill
			continue
		}
		v = storage.Convert((v - offset) / scale)
		if storage.IsInteger() && (v < lo || v > hi) {
			return nil, validationf(op, "value %g at element %d is out of range for %v", v, i, storage)
		}
		if v == fill {
			return nil, validationf(op, "unmasked value at element %d collides with the fill value %g", i, fill)
		}
		o[i] = v
	}
	return o, nil
}
