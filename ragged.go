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
	"sort"

	"gonum.org/v1/gonum/floats"
)

// locateFunc maps logical position p to position q in a compressed data
// buffer. It returns false if p is not stored, in which case the element
// is missing.
type locateFunc func(p, q []int) bool

// decode reads the elements of a compressed array selected by index.
// The compressed positions needed are read from data with a single
// orthogonal read and then scattered into the result.
func decode(op string, shape []int, dtype DataType, data Array, locate locateFunc, index []AxisIndex) (*Masked, error) {
	sel, err := selectIndex(op, shape, index)
	if err != nil {
		return nil, err
	}
	out := NewMasked(dtype, sel.shape()...)
	rank := len(data.Shape())
	qs := make([][]int, sel.size())
	need := make([]map[int]bool, rank)
	for a := range need {
		need[a] = make(map[int]bool)
	}
	found := false
	sel.each(func(o int, p []int) error {
		q := make([]int, rank)
		if !locate(p, q) {
			out.SetMasked(o, true)
			return nil
		}
		qs[o] = q
		for a, v := range q {
			need[a][v] = true
		}
		found = true
		return nil
	})
	if !found {
		return out, nil
	}
	pos := make([][]int, rank)
	lk := make([]map[int]int, rank)
	for a, m := range need {
		for v := range m {
			pos[a] = append(pos[a], v)
		}
		sort.Ints(pos[a])
		lk[a] = lookup(pos[a])
	}
	block, err := data.Read(picks(pos)...)
	if err != nil {
		return nil, err
	}
	bst := strides(block.Shape)
	for o, q := range qs {
		if q == nil {
			continue
		}
		j := 0
		for a, v := range q {
			j += lk[a][v] * bst[a]
		}
		out.copyFrom(o, block, j)
	}
	return out, nil
}

// readInts reads a whole 1-dimensional integer array.
func readInts(op, name string, a Array, n int) ([]int, error) {
	if len(a.Shape()) != 1 {
		return nil, validationf(op, "%s must have 1 dimension, has shape %v", name, a.Shape())
	}
	if n >= 0 && a.Shape()[0] != n {
		return nil, validationf(op, "%s has %d elements, want %d", name, a.Shape()[0], n)
	}
	m, err := a.Read()
	if err != nil {
		return nil, err
	}
	return m.Ints(op)
}

// checkTrailing checks that the non-sample axes of data match the trailing
// logical axes.
func checkTrailing(op string, data Array, shape []int, skip int) error {
	ds := data.Shape()
	if len(ds) != len(shape)-skip+1 {
		return validationf(op, "data has %d axes, want %d for logical shape %v", len(ds), len(shape)-skip+1, shape)
	}
	for a := 1; a < len(ds); a++ {
		if ds[a] != shape[a+skip-1] {
			return validationf(op, "data shape %v does not match logical shape %v", ds, shape)
		}
	}
	return nil
}

// countOffsets validates counts against a buffer of length n with rows of
// at most max elements, and returns each row's starting position.
func countOffsets(op string, counts []int, n, max int) ([]int, error) {
	c := make([]float64, len(counts))
	for i, v := range counts {
		if v < 0 {
			return nil, validationf(op, "count %d is negative (%d)", i, v)
		}
		if v > max {
			return nil, validationf(op, "count %d (%d) exceeds the element axis size %d", i, v, max)
		}
		c[i] = float64(v)
	}
	cum := floats.CumSum(make([]float64, len(c)), c)
	total := 0
	if len(cum) > 0 {
		total = int(cum[len(cum)-1])
	}
	if total != n {
		return nil, validationf(op, "counts sum to %d but the data have %d elements", total, n)
	}
	offsets := make([]int, len(counts))
	for i := range counts {
		offsets[i] = int(cum[i]) - counts[i]
	}
	return offsets, nil
}

// RaggedContiguous is a contiguous ragged array: the rows of an
// (instance, element, ...) array are stored one after another, and a count
// gives the number of elements in each row. Rows shorter than the element
// axis are padded with missing values.
type RaggedContiguous struct {
	shape   []int
	data    Array
	count   Array
	counts  []int
	offsets []int
}

// NewRaggedContiguous returns a contiguous ragged array with the given
// logical shape.
func NewRaggedContiguous(data, count Array, shape []int) (*RaggedContiguous, error) {
	const op = "NewRaggedContiguous"
	if len(shape) < 2 {
		return nil, validationf(op, "logical shape %v needs at least 2 axes", shape)
	}
	if err := checkTrailing(op, data, shape, 2); err != nil {
		return nil, err
	}
	counts, err := readInts(op, "count", count, shape[0])
	if err != nil {
		return nil, err
	}
	offsets, err := countOffsets(op, counts, data.Shape()[0], shape[1])
	if err != nil {
		return nil, err
	}
	return &RaggedContiguous{shape: append([]int{}, shape...), data: data, count: count, counts: counts, offsets: offsets}, nil
}

func (r *RaggedContiguous) compressed()                      {}
func (r *RaggedContiguous) CompressionType() CompressionType { return RaggedContiguousType }
func (r *RaggedContiguous) Shape() []int                     { return append([]int{}, r.shape...) }

func (r *RaggedContiguous) DataType() DataType {
	if r.data == nil {
		return InvalidType
	}
	return r.data.DataType()
}

// CompressedData returns the concatenated rows.
func (r *RaggedContiguous) CompressedData() Array { return r.data }

// Count returns the count array.
func (r *RaggedContiguous) Count() Array { return r.count }

// Counts returns the number of elements in each row.
func (r *RaggedContiguous) Counts() []int { return append([]int{}, r.counts...) }

func (r *RaggedContiguous) CompressedDimensions() (map[int][]int, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedContiguous.CompressedDimensions", Msg: "array has not been built"}
	}
	return map[int][]int{0: {0, 1}}, nil
}

func (r *RaggedContiguous) locate(p, q []int) bool {
	i, j := p[0], p[1]
	if j >= r.counts[i] {
		return false
	}
	q[0] = r.offsets[i] + j
	copy(q[1:], p[2:])
	return true
}

func (r *RaggedContiguous) Read(index ...AxisIndex) (*Masked, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedContiguous.Read", Msg: "array has not been built"}
	}
	return decode("RaggedContiguous.Read", r.shape, r.DataType(), r.data, r.locate, index)
}

func (r *RaggedContiguous) ToMemory() (Array, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedContiguous.ToMemory", Msg: "array has not been built"}
	}
	data, err := r.data.ToMemory()
	if err != nil {
		return nil, err
	}
	count, err := r.count.ToMemory()
	if err != nil {
		return nil, err
	}
	o := *r
	o.data, o.count = data, count
	return &o, nil
}

func (r *RaggedContiguous) Filenames() []string {
	return filenames(r.data, r.count)
}

// RaggedIndexed is an indexed ragged array: each stored element carries the
// instance it belongs to, and the elements of an instance form its row in
// the order they are stored.
type RaggedIndexed struct {
	shape []int
	data  Array
	index Array
	rows  [][]int
}

// NewRaggedIndexed returns an indexed ragged array with the given logical
// shape.
func NewRaggedIndexed(data, index Array, shape []int) (*RaggedIndexed, error) {
	const op = "NewRaggedIndexed"
	if len(shape) < 2 {
		return nil, validationf(op, "logical shape %v needs at least 2 axes", shape)
	}
	if err := checkTrailing(op, data, shape, 2); err != nil {
		return nil, err
	}
	ids, err := readInts(op, "index", index, data.Shape()[0])
	if err != nil {
		return nil, err
	}
	rows, err := bucket(op, ids, shape[0], shape[1])
	if err != nil {
		return nil, err
	}
	return &RaggedIndexed{shape: append([]int{}, shape...), data: data, index: index, rows: rows}, nil
}

// bucket groups positions by id in encounter order.
func bucket(op string, ids []int, n, max int) ([][]int, error) {
	rows := make([][]int, n)
	for s, id := range ids {
		if id < 0 || id >= n {
			return nil, validationf(op, "element %d belongs to instance %d, outside [0, %d)", s, id, n)
		}
		if len(rows[id]) == max {
			return nil, validationf(op, "instance %d has more than %d elements", id, max)
		}
		rows[id] = append(rows[id], s)
	}
	return rows, nil
}

func (r *RaggedIndexed) compressed()                      {}
func (r *RaggedIndexed) CompressionType() CompressionType { return RaggedIndexedType }
func (r *RaggedIndexed) Shape() []int                     { return append([]int{}, r.shape...) }

func (r *RaggedIndexed) DataType() DataType {
	if r.data == nil {
		return InvalidType
	}
	return r.data.DataType()
}

// CompressedData returns the stored elements.
func (r *RaggedIndexed) CompressedData() Array { return r.data }

// Index returns the index array.
func (r *RaggedIndexed) Index() Array { return r.index }

func (r *RaggedIndexed) CompressedDimensions() (map[int][]int, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedIndexed.CompressedDimensions", Msg: "array has not been built"}
	}
	return map[int][]int{0: {0, 1}}, nil
}

func (r *RaggedIndexed) locate(p, q []int) bool {
	row := r.rows[p[0]]
	if p[1] >= len(row) {
		return false
	}
	q[0] = row[p[1]]
	copy(q[1:], p[2:])
	return true
}

func (r *RaggedIndexed) Read(index ...AxisIndex) (*Masked, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedIndexed.Read", Msg: "array has not been built"}
	}
	return decode("RaggedIndexed.Read", r.shape, r.DataType(), r.data, r.locate, index)
}

func (r *RaggedIndexed) ToMemory() (Array, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedIndexed.ToMemory", Msg: "array has not been built"}
	}
	data, err := r.data.ToMemory()
	if err != nil {
		return nil, err
	}
	index, err := r.index.ToMemory()
	if err != nil {
		return nil, err
	}
	o := *r
	o.data, o.index = data, index
	return &o, nil
}

func (r *RaggedIndexed) Filenames() []string { return filenames(r.data, r.index) }

// RaggedIndexedContiguous is an indexed ragged array of contiguous ragged
// rows, such as time series of profiles. The logical axes are
// (instance, profile, element, ...): count gives the length of each profile
// and index the instance each profile belongs to.
type RaggedIndexedContiguous struct {
	shape   []int
	data    Array
	count   Array
	index   Array
	counts  []int
	offsets []int
	rows    [][]int
}

// NewRaggedIndexedContiguous returns an indexed contiguous ragged array with
// the given logical shape.
func NewRaggedIndexedContiguous(data, count, index Array, shape []int) (*RaggedIndexedContiguous, error) {
	const op = "NewRaggedIndexedContiguous"
	if len(shape) < 3 {
		return nil, validationf(op, "logical shape %v needs at least 3 axes", shape)
	}
	if err := checkTrailing(op, data, shape, 3); err != nil {
		return nil, err
	}
	counts, err := readInts(op, "count", count, -1)
	if err != nil {
		return nil, err
	}
	offsets, err := countOffsets(op, counts, data.Shape()[0], shape[2])
	if err != nil {
		return nil, err
	}
	ids, err := readInts(op, "index", index, len(counts))
	if err != nil {
		return nil, err
	}
	rows, err := bucket(op, ids, shape[0], shape[1])
	if err != nil {
		return nil, err
	}
	return &RaggedIndexedContiguous{
		shape: append([]int{}, shape...), data: data, count: count, index: index,
		counts: counts, offsets: offsets, rows: rows,
	}, nil
}

func (r *RaggedIndexedContiguous) compressed() {}

func (r *RaggedIndexedContiguous) CompressionType() CompressionType {
	return RaggedIndexedContiguousType
}

func (r *RaggedIndexedContiguous) Shape() []int { return append([]int{}, r.shape...) }

func (r *RaggedIndexedContiguous) DataType() DataType {
	if r.data == nil {
		return InvalidType
	}
	return r.data.DataType()
}

// CompressedData returns the stored elements.
func (r *RaggedIndexedContiguous) CompressedData() Array { return r.data }

// Count returns the profile count array.
func (r *RaggedIndexedContiguous) Count() Array { return r.count }

// Index returns the profile index array.
func (r *RaggedIndexedContiguous) Index() Array { return r.index }

func (r *RaggedIndexedContiguous) CompressedDimensions() (map[int][]int, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedIndexedContiguous.CompressedDimensions", Msg: "array has not been built"}
	}
	return map[int][]int{0: {0, 1, 2}}, nil
}

func (r *RaggedIndexedContiguous) locate(p, q []int) bool {
	row := r.rows[p[0]]
	if p[1] >= len(row) {
		return false
	}
	profile := row[p[1]]
	if p[2] >= r.counts[profile] {
		return false
	}
	q[0] = r.offsets[profile] + p[2]
	copy(q[1:], p[3:])
	return true
}

func (r *RaggedIndexedContiguous) Read(index ...AxisIndex) (*Masked, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedIndexedContiguous.Read", Msg: "array has not been built"}
	}
	return decode("RaggedIndexedContiguous.Read", r.shape, r.DataType(), r.data, r.locate, index)
}

func (r *RaggedIndexedContiguous) ToMemory() (Array, error) {
	if r.data == nil {
		return nil, ConfigurationError{Op: "RaggedIndexedContiguous.ToMemory", Msg: "array has not been built"}
	}
	var err error
	o := *r
	if o.data, err = r.data.ToMemory(); err != nil {
		return nil, err
	}
	if o.count, err = r.count.ToMemory(); err != nil {
		return nil, err
	}
	if o.index, err = r.index.ToMemory(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *RaggedIndexedContiguous) Filenames() []string {
	return filenames(r.data, r.count, r.index)
}

// filenames returns the sorted union of the locations of arrays.
func filenames(arrays ...Array) []string {
	m := make(map[string]bool)
	for _, a := range arrays {
		if a == nil {
			continue
		}
		for _, f := range a.Filenames() {
			m[f] = true
		}
	}
	var o []string
	for f := range m {
		o = append(o, f)
	}
	sort.Strings(o)
	return o
}
