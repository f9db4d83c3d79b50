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
	"strings"

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// reserved attributes are written from the structure of a field and never
// copied from construct properties.
var reserved = map[string]bool{
	"coordinates":              true,
	"cell_measures":            true,
	"ancillary_variables":      true,
	"grid_mapping":             true,
	"cell_methods":             true,
	"bounds":                   true,
	"climatology":              true,
	"formula_terms":            true,
	"compress":                 true,
	"coordinate_interpolation": true,
	"aggregated_dimensions":    true,
	"aggregated_data":          true,
	"sample_dimension":         true,
	"instance_dimension":       true,
	"Conventions":              true,
	"external_variables":       true,
}

// storageTyped attributes are stored with the type of their variable.
var storageTyped = map[string]bool{
	"_FillValue":    true,
	"missing_value": true,
	"valid_min":     true,
	"valid_max":     true,
	"valid_range":   true,
}

// dataOnly attributes describe a data variable and are never made global
// unless requested.
var dataOnly = map[string]bool{
	"standard_name":             true,
	"long_name":                 true,
	"units":                     true,
	"_FillValue":                true,
	"missing_value":             true,
	"valid_min":                 true,
	"valid_max":                 true,
	"valid_range":               true,
	"scale_factor":              true,
	"add_offset":                true,
	"positive":                  true,
	"axis":                      true,
	"calendar":                  true,
	"leap_month":                true,
	"leap_year":                 true,
	"month_lengths":             true,
	"flag_values":               true,
	"flag_masks":                true,
	"flag_meanings":             true,
	"actual_range":              true,
	"ancillary_variables":       true,
	"cell_methods":              true,
	"computed_standard_name":    true,
	"standard_error_multiplier": true,
}

// properties sets the attributes of v from props, skipping reserved
// attributes and those in skip.
func (s *session) properties(v *variable, props model.Properties, skip map[string]bool) error {
	for _, name := range props.Names() {
		val := props[name]
		if val == nil || reserved[name] || skip[name] {
			continue
		}
		var (
			a   interface{}
			err error
		)
		if storageTyped[name] {
			if v.dtype == cfnc.Char {
				continue
			}
			a, err = attrAs(v.dtype, val)
		} else {
			a, err = attrValue(val)
		}
		if err != nil {
			return cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("variable %s attribute %s: %v", v.name, name, err)}
		}
		v.set(name, a)
	}
	return nil
}

// globalAttributes chooses the field properties that are written as global
// attributes and returns their names.
func (s *session) globalAttributes(fields []*model.Field) (map[string]bool, error) {
	global := make(map[string]bool)
	if len(fields) == 0 {
		return global, nil
	}
	forced := make(map[string]bool)
	for _, name := range s.cfg.globals {
		forced[name] = true
	}
	agree := func(name string) bool {
		v, ok := fields[0].Props[name]
		if !ok {
			return false
		}
		for _, f := range fields[1:] {
			w, ok := f.Props[name]
			if !ok || !model.EqualValue(v, w) {
				return false
			}
		}
		return true
	}
	for _, name := range fields[0].Props.Names() {
		if reserved[name] || (dataOnly[name] && !forced[name]) {
			continue
		}
		if agree(name) {
			global[name] = true
		}
	}
	for _, name := range s.cfg.globals {
		if global[name] || reserved[name] {
			continue
		}
		err := cfnc.SemanticConflict{Op: "Write", Msg: fmt.Sprintf("fields disagree on global attribute %s", name)}
		s.log.WithError(err).Warn("netcdf: writing attribute on data variables instead")
	}
	for _, name := range fields[0].Props.Names() {
		if !global[name] {
			continue
		}
		a, err := attrValue(fields[0].Props[name])
		if err != nil {
			return nil, cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("global attribute %s: %v", name, err)}
		}
		s.globals = append(s.globals, attribute{name: name, value: a})
	}
	return global, nil
}

// conventions adds the Conventions and external_variables global
// attributes.
func (s *session) conventions() {
	c := Conventions
	if s.aggregated {
		c += " " + CFAConventions
	}
	attrs := []attribute{{name: "Conventions", value: c}}
	if len(s.external) > 0 {
		attrs = append(attrs, attribute{name: "external_variables", value: strings.Join(s.external, " ")})
	}
	s.globals = append(attrs, s.globals...)
}
