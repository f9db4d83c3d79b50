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

import "sort"

// interpolation is a closed-form method that reconstructs values inside an
// interpolation subarea from the tie points at its corners.
type interpolation struct {
	// axes is the number of subsampled axes the method interpolates over.
	axes int
	// params are the accepted parameter names.
	params []string
	// f returns the value at fractional position s within the subarea.
	// Corner c has offset (c>>k)&1 along subsampled axis k.
	f func(u, s []float64, param map[string]float64) float64
}

var interpolations = map[string]interpolation{
	"linear": {
		axes: 1,
		f: func(u, s []float64, _ map[string]float64) float64 {
			return u[0] + s[0]*(u[1]-u[0])
		},
	},
	// quadratic passes through both tie points and through their mean
	// offset by w at the middle of the subarea.
	"quadratic": {
		axes:   1,
		params: []string{"w"},
		f: func(u, s []float64, p map[string]float64) float64 {
			t := s[0]
			mid := (u[0]+u[1])/2 + p["w"]
			return (1-t)*(1-2*t)*u[0] + 4*t*(1-t)*mid + t*(2*t-1)*u[1]
		},
	},
	"bi_linear": {
		axes: 2,
		f: func(u, s []float64, _ map[string]float64) float64 {
			a, b := s[0], s[1]
			return (1-a)*(1-b)*u[0] + a*(1-b)*u[1] + (1-a)*b*u[2] + a*b*u[3]
		},
	},
}

// InterpolationMethods returns the names of the supported interpolation
// methods.
func InterpolationMethods() []string {
	var o []string
	for k := range interpolations {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// InterpolationParameter holds the coefficients of an interpolation method.
type InterpolationParameter struct {
	Data Array

	// Axes gives the logical axis spanned by each axis of Data. Along a
	// subsampled axis there is one value per interpolation subarea, that
	// is per pair of consecutive tie points. Logical axes that are not
	// spanned are broadcast.
	Axes []int
}
