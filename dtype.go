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
)

// DataType is the storage type of array elements.
type DataType int

// The data types that can be stored in a netCDF classic container.
const (
	InvalidType DataType = iota
	Byte
	Char
	Short
	Int
	Float
	Double
)

func (t DataType) String() string {
	switch t {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// ParseDataType returns the DataType named by s, which can be a CDL type
// name ("short") or a Go type name ("int16").
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "byte", "int8":
		return Byte, nil
	case "char", "string", "uint8":
		return Char, nil
	case "short", "int16":
		return Short, nil
	case "int", "int32":
		return Int, nil
	case "float", "float32":
		return Float, nil
	case "double", "float64":
		return Double, nil
	}
	return InvalidType, fmt.Errorf("cfnc: unsupported data type %q", s)
}

// Valid reports whether t is one of the supported types.
func (t DataType) Valid() bool { return t >= Byte && t <= Double }

// IsInteger reports whether t holds integer values.
func (t DataType) IsInteger() bool { return t == Byte || t == Short || t == Int }

// FillValue returns the netCDF default fill value for t.
func (t DataType) FillValue() float64 {
	switch t {
	case Byte:
		return -127
	case Char:
		return 0
	case Short:
		return -32767
	case Int:
		return -2147483647
	default:
		return 9.9692099683868690e+36
	}
}

// Range returns the smallest and largest values representable by t.
func (t DataType) Range() (min, max float64) {
	switch t {
	case Byte:
		return math.MinInt8, math.MaxInt8
	case Char:
		return 0, math.MaxUint8
	case Short:
		return math.MinInt16, math.MaxInt16
	case Int:
		return math.MinInt32, math.MaxInt32
	case Float:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Convert rounds v to the precision of t.
func (t DataType) Convert(v float64) float64 {
	switch t {
	case Byte, Short, Int, Char:
		return math.Round(v)
	case Float:
		return float64(float32(v))
	default:
		return v
	}
}
