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

// Gathered is an array compressed by gathering: only the positions listed
// in a list array are stored, along a single list axis that replaces n
// consecutive logical axes. Each list value is the row-major flattened
// position, within those axes, of one stored element.
type Gathered struct {
	shape []int
	data  Array
	list  Array
	axis  int
	n     int
	where map[int]int
}

// NewGathered returns a gathered array with the given logical shape.
// Axis axis of data is the list axis and replaces logical axes
// [axis, axis+n).
func NewGathered(data, list Array, shape []int, axis, n int) (*Gathered, error) {
	const op = "NewGathered"
	if n < 1 || axis < 0 || axis+n > len(shape) {
		return nil, validationf(op, "cannot gather %d axes from axis %d of logical shape %v", n, axis, shape)
	}
	ds := data.Shape()
	if len(ds) != len(shape)-n+1 || axis >= len(ds) {
		return nil, validationf(op, "data shape %v does not match logical shape %v gathered over %d axes", ds, shape, n)
	}
	for a := range ds {
		if a == axis {
			continue
		}
		la := a
		if a > axis {
			la = a + n - 1
		}
		if ds[a] != shape[la] {
			return nil, validationf(op, "data shape %v does not match logical shape %v", ds, shape)
		}
	}
	l, err := readInts(op, "list", list, ds[axis])
	if err != nil {
		return nil, err
	}
	size := product(shape[axis : axis+n])
	where := make(map[int]int, len(l))
	for k, v := range l {
		if v < 0 || v >= size {
			return nil, validationf(op, "list value %d at position %d is outside [0, %d)", v, k, size)
		}
		if _, dup := where[v]; dup {
			return nil, validationf(op, "list value %d appears more than once", v)
		}
		where[v] = k
	}
	return &Gathered{shape: append([]int{}, shape...), data: data, list: list, axis: axis, n: n, where: where}, nil
}

func (g *Gathered) compressed()                      {}
func (g *Gathered) CompressionType() CompressionType { return GatheredType }
func (g *Gathered) Shape() []int                     { return append([]int{}, g.shape...) }

func (g *Gathered) DataType() DataType {
	if g.data == nil {
		return InvalidType
	}
	return g.data.DataType()
}

// CompressedData returns the stored elements.
func (g *Gathered) CompressedData() Array { return g.data }

// List returns the list array.
func (g *Gathered) List() Array { return g.list }

// Axis returns the position of the list axis in the stored data.
func (g *Gathered) Axis() int { return g.axis }

// GatheredAxes returns the logical axes replaced by the list axis.
func (g *Gathered) GatheredAxes() []int {
	o := make([]int, g.n)
	for i := range o {
		o[i] = g.axis + i
	}
	return o
}

func (g *Gathered) CompressedDimensions() (map[int][]int, error) {
	if g.data == nil {
		return nil, ConfigurationError{Op: "Gathered.CompressedDimensions", Msg: "array has not been built"}
	}
	return map[int][]int{g.axis: g.GatheredAxes()}, nil
}

func (g *Gathered) locate(p, q []int) bool {
	f := 0
	for a := g.axis; a < g.axis+g.n; a++ {
		f = f*g.shape[a] + p[a]
	}
	k, ok := g.where[f]
	if !ok {
		return false
	}
	copy(q, p[:g.axis])
	q[g.axis] = k
	copy(q[g.axis+1:], p[g.axis+g.n:])
	return true
}

func (g *Gathered) Read(index ...AxisIndex) (*Masked, error) {
	if g.data == nil {
		return nil, ConfigurationError{Op: "Gathered.Read", Msg: "array has not been built"}
	}
	return decode("Gathered.Read", g.shape, g.DataType(), g.data, g.locate, index)
}

func (g *Gathered) ToMemory() (Array, error) {
	if g.data == nil {
		return nil, ConfigurationError{Op: "Gathered.ToMemory", Msg: "array has not been built"}
	}
	var err error
	o := *g
	if o.data, err = g.data.ToMemory(); err != nil {
		return nil, err
	}
	if o.list, err = g.list.ToMemory(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (g *Gathered) Filenames() []string { return filenames(g.data, g.list) }
