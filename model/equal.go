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

package model

import (
	"math"

	"github.com/google/go-cmp/cmp"
	"github.com/spatialmodel/cfnc"
	"gonum.org/v1/gonum/floats"
)

// Tolerances for comparing numeric values.
var (
	AbsTolerance = 2.220446049250313e-16
	RelTolerance = 2.220446049250313e-16
)

var floatComparer = cmp.Comparer(func(x, y float64) bool {
	if math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	return floats.EqualWithinAbsOrRel(x, y, AbsTolerance, RelTolerance)
})

// normalize converts numeric property values, whatever their Go type, to
// []float64 so that they compare by value.
func normalize(p Properties) map[string]interface{} {
	o := make(map[string]interface{}, len(p))
	for k, v := range p {
		if s, ok := v.(string); ok {
			o[k] = s
			continue
		}
		if f, err := cfnc.ToFloats(v); err == nil {
			o[k] = f
			continue
		}
		o[k] = v
	}
	return o
}

// EqualValue reports whether two property values are equal, treating
// numbers of different Go types and scalars and 1-element slices alike.
func EqualValue(a, b interface{}) bool {
	na := normalize(Properties{"v": a})
	nb := normalize(Properties{"v": b})
	return cmp.Equal(na, nb, floatComparer)
}

// EqualProperties reports whether a and b hold the same properties with
// equal values.
func EqualProperties(a, b Properties) bool {
	return cmp.Equal(normalize(a), normalize(b), floatComparer)
}

// EqualData reports whether two arrays have the same shape, mask and
// values.
func EqualData(a, b cfnc.Array) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !cmp.Equal(a.Shape(), b.Shape()) {
		return false
	}
	if a == b {
		return true
	}
	ma, err := a.Read()
	if err != nil {
		return false
	}
	mb, err := b.Read()
	if err != nil {
		return false
	}
	return ma.Equal(mb, AbsTolerance, RelTolerance)
}

func equalBounds(a, b *Bounds) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return EqualProperties(a.Props, b.Props) && EqualData(a.Array, b.Array)
}

// Equal reports whether two constructs are structurally equal: they have
// the same type (unless ignoreType is set), equal properties, and equal
// data, bounds and parameters.
func Equal(a, b Construct, ignoreType bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !ignoreType && a.ConstructType() != b.ConstructType() {
		return false
	}
	switch x := a.(type) {
	case *CoordinateReference:
		y, ok := b.(*CoordinateReference)
		if !ok {
			return false
		}
		return equalReferences(x, y)
	case *Coordinate:
		if y, ok := b.(*Coordinate); ok {
			if !equalBounds(x.Bounds, y.Bounds) || x.Climatology != y.Climatology {
				return false
			}
		}
	case *DomainAncillary:
		if y, ok := b.(*DomainAncillary); ok && !equalBounds(x.Bounds, y.Bounds) {
			return false
		}
	case *CellMeasure:
		if y, ok := b.(*CellMeasure); ok && (x.Measure != y.Measure || x.External != y.External) {
			return false
		}
	}
	return EqualProperties(a.Properties(), b.Properties()) && EqualData(a.Data(), b.Data())
}

func equalReferences(a, b *CoordinateReference) bool {
	if !EqualProperties(a.Datum, b.Datum) || !EqualProperties(a.Conversion, b.Conversion) {
		return false
	}
	if len(a.Ancillaries) != len(b.Ancillaries) {
		return false
	}
	for term, x := range a.Ancillaries {
		y, ok := b.Ancillaries[term]
		if !ok || !Equal(x, y, false) {
			return false
		}
	}
	return true
}
