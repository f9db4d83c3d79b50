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
	"strings"
)

type indexKind int

const (
	allKind indexKind = iota
	atKind
	sliceKind
	pickKind
)

// AxisIndex selects positions along one axis of an array. Indexing is
// orthogonal: the selections of different axes are independent, and the
// result holds their outer product.
type AxisIndex struct {
	kind              indexKind
	start, stop, step int
	list              []int
}

// All selects every position along an axis.
func All() AxisIndex { return AxisIndex{} }

// At selects a single position and drops the axis from the result.
// Negative positions count from the end of the axis.
func At(i int) AxisIndex { return AxisIndex{kind: atKind, start: i} }

// Slice selects the positions in [start, stop). Negative values count from
// the end of the axis.
func Slice(start, stop int) AxisIndex { return StepSlice(start, stop, 1) }

// StepSlice selects every step'th position in [start, stop).
func StepSlice(start, stop, step int) AxisIndex {
	return AxisIndex{kind: sliceKind, start: start, stop: stop, step: step}
}

// Pick selects the listed positions in the given order. Positions may repeat.
func Pick(positions ...int) AxisIndex {
	l := make([]int, len(positions))
	copy(l, positions)
	return AxisIndex{kind: pickKind, list: l}
}

func (x AxisIndex) String() string {
	switch x.kind {
	case atKind:
		return fmt.Sprint(x.start)
	case sliceKind:
		return fmt.Sprintf("%d:%d:%d", x.start, x.stop, x.step)
	case pickKind:
		s := make([]string, len(x.list))
		for i, v := range x.list {
			s[i] = fmt.Sprint(v)
		}
		return "[" + strings.Join(s, ",") + "]"
	default:
		return ":"
	}
}

func (x AxisIndex) positions(op string, axis, n int) ([]int, error) {
	norm := func(i int) (int, error) {
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return 0, validationf(op, "index %s out of range for axis %d of size %d", x, axis, n)
		}
		return i, nil
	}
	switch x.kind {
	case allKind:
		p := make([]int, n)
		for i := range p {
			p[i] = i
		}
		return p, nil
	case atKind:
		i, err := norm(x.start)
		if err != nil {
			return nil, err
		}
		return []int{i}, nil
	case sliceKind:
		if x.step <= 0 {
			return nil, validationf(op, "slice step must be positive, got %d", x.step)
		}
		start, stop := x.start, x.stop
		if start < 0 {
			start += n
		}
		if stop < 0 {
			stop += n
		}
		if start < 0 || stop > n || start > stop {
			return nil, validationf(op, "slice %s out of range for axis %d of size %d", x, axis, n)
		}
		var p []int
		for i := start; i < stop; i += x.step {
			p = append(p, i)
		}
		return p, nil
	default:
		p := make([]int, len(x.list))
		for j, v := range x.list {
			i, err := norm(v)
			if err != nil {
				return nil, err
			}
			p[j] = i
		}
		return p, nil
	}
}

// selection is a resolved orthogonal index into an array of a given shape.
type selection struct {
	pos  [][]int
	drop []bool
}

func selectIndex(op string, shape []int, index []AxisIndex) (*selection, error) {
	if len(index) > len(shape) {
		return nil, validationf(op, "%d indices given for an array with %d axes", len(index), len(shape))
	}
	s := &selection{pos: make([][]int, len(shape)), drop: make([]bool, len(shape))}
	for a, n := range shape {
		x := All()
		if a < len(index) {
			x = index[a]
		}
		p, err := x.positions(op, a, n)
		if err != nil {
			return nil, err
		}
		s.pos[a] = p
		s.drop[a] = x.kind == atKind
	}
	return s, nil
}

// shape returns the shape of the selection result.
func (s *selection) shape() []int {
	var o []int
	for a, p := range s.pos {
		if !s.drop[a] {
			o = append(o, len(p))
		}
	}
	return o
}

func (s *selection) size() int {
	n := 1
	for _, p := range s.pos {
		n *= len(p)
	}
	return n
}

// each calls f for every selected element in row-major order of the result.
// out is the flat index into the result and p the position in the source.
// p is reused between calls.
func (s *selection) each(f func(out int, p []int) error) error {
	n := s.size()
	if n == 0 {
		return nil
	}
	c := make([]int, len(s.pos))
	p := make([]int, len(s.pos))
	for a := range s.pos {
		p[a] = s.pos[a][0]
	}
	for out := 0; out < n; out++ {
		if err := f(out, p); err != nil {
			return err
		}
		for a := len(c) - 1; a >= 0; a-- {
			c[a]++
			if c[a] < len(s.pos[a]) {
				p[a] = s.pos[a][c[a]]
				break
			}
			c[a] = 0
			p[a] = s.pos[a][0]
		}
	}
	return nil
}

// picks returns an index that selects the given positions on every axis
// without dropping any.
func picks(pos [][]int) []AxisIndex {
	idx := make([]AxisIndex, len(pos))
	for a, p := range pos {
		idx[a] = Pick(p...)
	}
	return idx
}

// lookup maps each selected position to its ordinal in pos.
func lookup(pos []int) map[int]int {
	m := make(map[int]int, len(pos))
	for i, p := range pos {
		if _, ok := m[p]; !ok {
			m[p] = i
		}
	}
	return m
}

// strides returns the row-major strides of shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	n := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = n
		n *= shape[i]
	}
	return s
}

func product(shape []int) int {
	n := 1
	for _, v := range shape {
		n *= v
	}
	return n
}
