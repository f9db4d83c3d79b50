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
)

// Subsampled is an array stored at tie points only. Along each subsampled
// axis a tie point index lists the logical positions of the tie points,
// and the values between consecutive tie points are reconstructed with a
// named interpolation method.
type Subsampled struct {
	shape      []int
	tiePoints  Array
	indexArray map[int]Array
	indices    map[int][]int
	axes       []int
	method     string
	interp     interpolation
	params     map[string]InterpolationParameter
}

// NewSubsampled returns a subsampled array with the given logical shape.
// tiePointIndex maps each subsampled logical axis to its tie point index.
func NewSubsampled(tiePoints Array, shape []int, method string, tiePointIndex map[int]Array, params map[string]InterpolationParameter) (*Subsampled, error) {
	const op = "NewSubsampled"
	interp, ok := interpolations[method]
	if !ok {
		return nil, validationf(op, "unknown interpolation method %q", method)
	}
	if t := tiePoints.DataType(); t != Float && t != Double {
		return nil, validationf(op, "tie points must be floating point, got %v", t)
	}
	ts := tiePoints.Shape()
	if len(ts) != len(shape) {
		return nil, validationf(op, "tie points have %d axes, logical shape %v has %d", len(ts), shape, len(shape))
	}
	if len(tiePointIndex) != interp.axes {
		return nil, validationf(op, "method %q interpolates over %d axes, %d given", method, interp.axes, len(tiePointIndex))
	}
	s := &Subsampled{
		shape:      append([]int{}, shape...),
		tiePoints:  tiePoints,
		indexArray: make(map[int]Array),
		indices:    make(map[int][]int),
		method:     method,
		interp:     interp,
		params:     make(map[string]InterpolationParameter),
	}
	for a, ia := range tiePointIndex {
		if a < 0 || a >= len(shape) {
			return nil, validationf(op, "tie point index for axis %d outside logical shape %v", a, shape)
		}
		idx, err := readInts(op, "tie point index", ia, ts[a])
		if err != nil {
			return nil, err
		}
		if len(idx) == 0 || idx[0] != 0 || idx[len(idx)-1] != shape[a]-1 {
			return nil, validationf(op, "tie points of axis %d must span [0, %d]", a, shape[a]-1)
		}
		for i := 1; i < len(idx); i++ {
			if idx[i] <= idx[i-1] {
				return nil, validationf(op, "tie point index of axis %d is not strictly increasing at %d", a, i)
			}
		}
		s.indexArray[a] = ia
		s.indices[a] = idx
		s.axes = append(s.axes, a)
	}
	sort.Ints(s.axes)
	for a, n := range shape {
		if _, ok := s.indices[a]; !ok && ts[a] != n {
			return nil, validationf(op, "tie point shape %v does not match logical shape %v on axis %d", ts, shape, a)
		}
	}
	for name, p := range params {
		if !contains(interp.params, name) {
			return nil, validationf(op, "method %q does not accept parameter %q", method, name)
		}
		ps := p.Data.Shape()
		if len(ps) != len(p.Axes) {
			return nil, validationf(op, "parameter %q has %d axes but %d axis mappings", name, len(ps), len(p.Axes))
		}
		for i, a := range p.Axes {
			if a < 0 || a >= len(shape) {
				return nil, validationf(op, "parameter %q maps to axis %d outside logical shape %v", name, a, shape)
			}
			want := shape[a]
			if idx, ok := s.indices[a]; ok {
				want = len(idx) - 1
			}
			if ps[i] != want {
				return nil, validationf(op, "parameter %q has size %d on axis %d, want %d", name, ps[i], a, want)
			}
		}
		s.params[name] = p
	}
	return s, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func (s *Subsampled) compressed()                      {}
func (s *Subsampled) CompressionType() CompressionType { return SubsampledType }
func (s *Subsampled) Shape() []int                     { return append([]int{}, s.shape...) }

func (s *Subsampled) DataType() DataType {
	if s.tiePoints == nil {
		return InvalidType
	}
	return s.tiePoints.DataType()
}

// TiePoints returns the stored tie point values.
func (s *Subsampled) TiePoints() Array { return s.tiePoints }

// TiePointIndex returns the tie point index array of each subsampled axis.
func (s *Subsampled) TiePointIndex() map[int]Array {
	o := make(map[int]Array, len(s.indexArray))
	for k, v := range s.indexArray {
		o[k] = v
	}
	return o
}

// SubsampledAxes returns the subsampled logical axes in increasing order.
func (s *Subsampled) SubsampledAxes() []int { return append([]int{}, s.axes...) }

// InterpolationName returns the name of the interpolation method.
func (s *Subsampled) InterpolationName() string { return s.method }

// Parameters returns the interpolation parameters.
func (s *Subsampled) Parameters() map[string]InterpolationParameter {
	o := make(map[string]InterpolationParameter, len(s.params))
	for k, v := range s.params {
		o[k] = v
	}
	return o
}

func (s *Subsampled) CompressedDimensions() (map[int][]int, error) {
	if s.tiePoints == nil {
		return nil, ConfigurationError{Op: "Subsampled.CompressedDimensions", Msg: "array has not been built"}
	}
	m := make(map[int][]int, len(s.axes))
	for _, a := range s.axes {
		m[a] = []int{a}
	}
	return m, nil
}

// segment returns the subarea containing logical position p along a
// subsampled axis with tie point index idx, the fractional position within
// it, and the tie point at p if there is one (else -1).
func segment(idx []int, p int) (seg int, frac float64, exact int) {
	j := sort.SearchInts(idx, p)
	if j < len(idx) && idx[j] == p {
		if j == len(idx)-1 && j > 0 {
			return j - 1, 1, j
		}
		return j, 0, j
	}
	return j - 1, float64(p-idx[j-1]) / float64(idx[j]-idx[j-1]), -1
}

func (s *Subsampled) Read(index ...AxisIndex) (*Masked, error) {
	const op = "Subsampled.Read"
	if s.tiePoints == nil {
		return nil, ConfigurationError{Op: op, Msg: "array has not been built"}
	}
	sel, err := selectIndex(op, s.shape, index)
	if err != nil {
		return nil, err
	}
	out := NewMasked(s.DataType(), sel.shape()...)
	n := sel.size()
	if n == 0 {
		return out, nil
	}
	m := len(s.axes)
	type point struct {
		p     []int
		seg   []int
		frac  []float64
		exact bool
	}
	pts := make([]point, n)
	need := make([]map[int]bool, len(s.shape))
	for a := range need {
		need[a] = make(map[int]bool)
	}
	sel.each(func(o int, p []int) error {
		pt := point{p: append([]int{}, p...), seg: make([]int, m), frac: make([]float64, m), exact: true}
		for k, a := range s.axes {
			idx := s.indices[a]
			seg, frac, ex := segment(idx, p[a])
			if ex < 0 {
				pt.exact = false
			}
			pt.seg[k], pt.frac[k] = seg, frac
			need[a][seg] = true
			if seg+1 < len(idx) {
				need[a][seg+1] = true
			}
		}
		for a, v := range p {
			if _, ok := s.indices[a]; !ok {
				need[a][v] = true
			}
		}
		pts[o] = pt
		return nil
	})
	pos := make([][]int, len(s.shape))
	lk := make([]map[int]int, len(s.shape))
	for a, set := range need {
		for v := range set {
			pos[a] = append(pos[a], v)
		}
		sort.Ints(pos[a])
		lk[a] = lookup(pos[a])
	}
	block, err := s.tiePoints.Read(picks(pos)...)
	if err != nil {
		return nil, err
	}
	params := make(map[string]*Masked, len(s.params))
	for name, p := range s.params {
		pm, err := p.Data.Read()
		if err != nil {
			return nil, err
		}
		params[name] = pm
	}
	bst := strides(block.Shape)
	ncorner := 1 << uint(m)
	u := make([]float64, ncorner)
	t := make([]int, len(s.shape))
	pv := make(map[string]float64, len(params))
	for o, pt := range pts {
		// When every subsampled axis is on a tie point the value is
		// stored exactly at the corner whose offsets equal the fractions.
		first, last := 0, ncorner
		if pt.exact {
			c := 0
			for k := range s.axes {
				if pt.frac[k] == 1 {
					c |= 1 << uint(k)
				}
			}
			first, last = c, c+1
		}
		masked := false
		for c := first; c < last; c++ {
			copy(t, pt.p)
			for k, a := range s.axes {
				tp := pt.seg[k] + (c>>uint(k))&1
				if tp >= len(s.indices[a]) {
					tp = len(s.indices[a]) - 1
				}
				t[a] = tp
			}
			j := 0
			for a, v := range t {
				j += lk[a][v] * bst[a]
			}
			if block.IsMasked(j) {
				masked = true
				break
			}
			u[c] = block.Elements[j]
		}
		if masked {
			out.SetMasked(o, true)
			continue
		}
		if pt.exact {
			out.Elements[o] = u[first]
			continue
		}
		for name, pm := range params {
			v, ok := s.paramValue(pm, s.params[name].Axes, pt.p, pt.seg)
			if !ok {
				masked = true
				break
			}
			pv[name] = v
		}
		if masked {
			out.SetMasked(o, true)
			continue
		}
		out.Elements[o] = s.DataType().Convert(s.interp.f(u, pt.frac, pv))
	}
	return out, nil
}

func (s *Subsampled) paramValue(pm *Masked, axes, p, seg []int) (float64, bool) {
	st := strides(pm.Shape)
	j := 0
	for i, a := range axes {
		v := p[a]
		for k, sa := range s.axes {
			if sa == a {
				v = seg[k]
			}
		}
		j += v * st[i]
	}
	return pm.Elements[j], !pm.IsMasked(j)
}

func (s *Subsampled) ToMemory() (Array, error) {
	if s.tiePoints == nil {
		return nil, ConfigurationError{Op: "Subsampled.ToMemory", Msg: "array has not been built"}
	}
	var err error
	o := *s
	if o.tiePoints, err = s.tiePoints.ToMemory(); err != nil {
		return nil, err
	}
	o.indexArray = make(map[int]Array, len(s.indexArray))
	for a, ia := range s.indexArray {
		if o.indexArray[a], err = ia.ToMemory(); err != nil {
			return nil, err
		}
	}
	o.params = make(map[string]InterpolationParameter, len(s.params))
	for name, p := range s.params {
		d, err := p.Data.ToMemory()
		if err != nil {
			return nil, err
		}
		o.params[name] = InterpolationParameter{Data: d, Axes: p.Axes}
	}
	return &o, nil
}

func (s *Subsampled) Filenames() []string {
	arrays := []Array{s.tiePoints}
	for _, ia := range s.indexArray {
		arrays = append(arrays, ia)
	}
	for _, p := range s.params {
		arrays = append(arrays, p.Data)
	}
	return filenames(arrays...)
}
