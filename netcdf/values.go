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
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/spatialmodel/cfnc"
)

// typed converts values to the slice type that holds t in a netCDF file.
func typed(t cfnc.DataType, v []float64) interface{} {
	switch t {
	case cfnc.Byte:
		o := make([]uint8, len(v))
		for i, x := range v {
			o[i] = uint8(int8(x))
		}
		return o
	case cfnc.Char:
		o := make([]uint8, len(v))
		for i, x := range v {
			o[i] = uint8(x)
		}
		return o
	case cfnc.Short:
		o := make([]int16, len(v))
		for i, x := range v {
			o[i] = int16(x)
		}
		return o
	case cfnc.Int:
		o := make([]int32, len(v))
		for i, x := range v {
			o[i] = int32(x)
		}
		return o
	case cfnc.Float:
		o := make([]float32, len(v))
		for i, x := range v {
			o[i] = float32(x)
		}
		return o
	}
	return append([]float64{}, v...)
}

// untyped converts values read from a netCDF file to float64.
func untyped(t cfnc.DataType, v interface{}) []float64 {
	switch x := v.(type) {
	case []uint8:
		o := make([]float64, len(x))
		for i, e := range x {
			if t == cfnc.Byte {
				o[i] = float64(int8(e))
			} else {
				o[i] = float64(e)
			}
		}
		return o
	case []int16:
		o := make([]float64, len(x))
		for i, e := range x {
			o[i] = float64(e)
		}
		return o
	case []int32:
		o := make([]float64, len(x))
		for i, e := range x {
			o[i] = float64(e)
		}
		return o
	case []float32:
		o := make([]float64, len(x))
		for i, e := range x {
			o[i] = float64(e)
		}
		return o
	case []float64:
		return x
	}
	return nil
}

func reflectLen(v interface{}) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0
	}
	return rv.Len()
}

// text converts text elements to a character buffer with strlen
// characters per element.
func text(s []string, strlen int) []uint8 {
	o := make([]uint8, len(s)*strlen)
	for i, e := range s {
		copy(o[i*strlen:(i+1)*strlen], e)
	}
	return o
}

// maxLen returns the length of the longest string, and at least 1.
func maxLen(s []string) int {
	n := 1
	for _, e := range s {
		if len(e) > n {
			n = len(e)
		}
	}
	return n
}

// attrValue converts a property value to a value that can be stored as a
// netCDF attribute.
func attrValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []string:
		return strings.Join(x, " "), nil
	case float64:
		return []float64{x}, nil
	case float32:
		return []float32{x}, nil
	case int8:
		return []uint8{uint8(x)}, nil
	case int16:
		return []int16{x}, nil
	case int32:
		return []int32{x}, nil
	case []float64, []float32, []int16, []int32:
		return x, nil
	case []int8:
		o := make([]uint8, len(x))
		for i, e := range x {
			o[i] = uint8(e)
		}
		return o, nil
	}
	f, err := floatsOf(v)
	if err != nil {
		return nil, err
	}
	for _, e := range f {
		if e != math.Trunc(e) || e < math.MinInt32 || e > math.MaxInt32 {
			return f, nil
		}
	}
	return typed(cfnc.Int, f), nil
}

// attrAs converts a numeric property value to an attribute of type t.
func attrAs(t cfnc.DataType, v interface{}) (interface{}, error) {
	f, err := floatsOf(v)
	if err != nil {
		return nil, err
	}
	return typed(t, f), nil
}

func floatsOf(v interface{}) ([]float64, error) {
	if b, ok := v.(bool); ok {
		if b {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	}
	f, err := cfnc.ToFloats(v)
	if err != nil {
		return nil, fmt.Errorf("netcdf: attribute value %v of type %T: %v", v, v, err)
	}
	return f, nil
}

// propValue converts an attribute value read from a file to a property
// value. Single numbers are returned as scalars.
func propValue(v interface{}) interface{} {
	if b, ok := v.([]uint8); ok {
		o := make([]int8, len(b))
		for i, e := range b {
			o[i] = int8(e)
		}
		v = o
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Len() == 1 {
		return rv.Index(0).Interface()
	}
	return v
}
