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

// samples returns the logical (instance, element) position of each stored
// element.
func (r *RaggedContiguous) samples() [][]int {
	var o [][]int
	for i, c := range r.counts {
		for j := 0; j < c; j++ {
			o = append(o, []int{i, j})
		}
	}
	return o
}

func (r *RaggedIndexed) samples() [][]int {
	o := make([][]int, r.data.Shape()[0])
	for i, row := range r.rows {
		for j, s := range row {
			o[s] = []int{i, j}
		}
	}
	return o
}

// profiles returns the logical (instance, profile) position of each
// profile.
func (r *RaggedIndexedContiguous) profiles() [][]int {
	o := make([][]int, len(r.counts))
	for i, row := range r.rows {
		for j, p := range row {
			o[p] = []int{i, j}
		}
	}
	return o
}

func (r *RaggedIndexedContiguous) samples() [][]int {
	var o [][]int
	for p, ip := range r.profiles() {
		for k := 0; k < r.counts[p]; k++ {
			o = append(o, []int{ip[0], ip[1], k})
		}
	}
	return o
}

// Recompress encodes a with the ragged layout of like, so that it can be
// stored along like's sample dimension. The first k axes of a must be the
// first k logical axes of like. k is 2 for contiguous and indexed ragged
// arrays. For indexed contiguous ragged arrays k is 3, or 2 for data that
// vary per profile, which are encoded as an indexed ragged array along the
// profile dimension.
func Recompress(like Compressed, a Array, k int) (Compressed, error) {
	const op = "Recompress"
	shape, ls := a.Shape(), like.Shape()
	if len(shape) < k || len(ls) < k {
		return nil, validationf(op, "cannot match %d axes of shape %v to shape %v", k, shape, ls)
	}
	for i := 0; i < k; i++ {
		if shape[i] != ls[i] {
			return nil, validationf(op, "shape %v does not match compressed shape %v", shape, ls)
		}
	}
	switch r := like.(type) {
	case *RaggedContiguous:
		if k != 2 {
			break
		}
		data, err := gatherSamples(a, r.samples(), k)
		if err != nil {
			return nil, err
		}
		return NewRaggedContiguous(data, r.count, shape)
	case *RaggedIndexed:
		if k != 2 {
			break
		}
		data, err := gatherSamples(a, r.samples(), k)
		if err != nil {
			return nil, err
		}
		return NewRaggedIndexed(data, r.index, shape)
	case *RaggedIndexedContiguous:
		switch k {
		case 3:
			data, err := gatherSamples(a, r.samples(), k)
			if err != nil {
				return nil, err
			}
			return NewRaggedIndexedContiguous(data, r.count, r.index, shape)
		case 2:
			data, err := gatherSamples(a, r.profiles(), k)
			if err != nil {
				return nil, err
			}
			return NewRaggedIndexed(data, r.index, shape)
		}
	}
	return nil, validationf(op, "cannot encode %d axes with %s compression", k, like.CompressionType())
}

// gatherSamples reads a and stacks the trailing elements at each of the
// given leading positions.
func gatherSamples(a Array, samples [][]int, k int) (*Dense, error) {
	m, err := a.Read()
	if err != nil {
		return nil, err
	}
	inner := product(m.Shape[k:])
	out := NewMasked(m.Type, append([]int{len(samples)}, m.Shape[k:]...)...)
	for s, p := range samples {
		base := flat(m.Shape[:k], p) * inner
		for e := 0; e < inner; e++ {
			out.copyFrom(s*inner+e, m, base+e)
		}
	}
	return NewDenseFrom(out), nil
}
