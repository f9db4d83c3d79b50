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
	"sort"
	"strings"

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// formulaParameters are conversion parameters of a formula that are not
// stored as formula terms.
var formulaParameters = map[string]bool{
	"standard_name":          true,
	"computed_standard_name": true,
}

func sortedTerms(r *model.CoordinateReference) []string {
	terms := make([]string, 0, len(r.Ancillaries))
	for t := range r.Ancillaries {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// sortedAncillaries returns the domain ancillaries of r in term order.
func sortedAncillaries(r *model.CoordinateReference) []*model.DomainAncillary {
	var o []*model.DomainAncillary
	for _, t := range sortedTerms(r) {
		if a := r.Ancillaries[t]; a != nil {
			o = append(o, a)
		}
	}
	return o
}

// gridMapping is a grid mapping variable and the coordinate variables it
// applies to.
type gridMapping struct {
	name   string
	coords []string
}

// references writes the coordinate references of the field: grid mapping
// variables, and the formula terms of parametric vertical coordinates.
func (fw *fieldWriter) references() error {
	var gms []gridMapping
	var datums []*model.CoordinateReference
	for _, r := range fw.f.CoordinateReferences {
		if r.GridMapping() {
			name, err := fw.gridMappingVariable(r)
			if err != nil {
				return err
			}
			gms = append(gms, gridMapping{name: name, coords: fw.coordNames(r.Coordinates)})
			continue
		}
		if err := fw.formula(r); err != nil {
			return err
		}
		if len(r.Datum) > 0 {
			datums = append(datums, r)
		}
	}
	for _, r := range datums {
		if fw.hasDatum(r.Datum) {
			continue
		}
		// A datum without a grid mapping is stored as a latitude_longitude
		// grid mapping.
		ref := &model.CoordinateReference{
			Conversion: model.Properties{"grid_mapping_name": "latitude_longitude"},
			Datum:      r.Datum,
		}
		name, err := fw.gridMappingVariable(ref)
		if err != nil {
			return err
		}
		gms = append(gms, gridMapping{name: name, coords: fw.coordNames(r.Coordinates)})
	}
	fw.gridMapping = fw.gridMappingAttribute(gms)
	return nil
}

func (fw *fieldWriter) hasDatum(d model.Properties) bool {
	for _, r := range fw.f.CoordinateReferences {
		if r.GridMapping() && model.EqualProperties(r.Datum, d) {
			return true
		}
	}
	return false
}

// coordNames returns the variable names of the given coordinates that have
// been written for this field.
func (fw *fieldWriter) coordNames(cs []*model.Coordinate) []string {
	var o []string
	for _, c := range cs {
		if n, ok := fw.coordVars[c]; ok {
			o = append(o, n)
		}
	}
	return o
}

func (fw *fieldWriter) gridMappingVariable(r *model.CoordinateReference) (string, error) {
	if name, ok := fw.seen.alreadyWritten(r, []string{}, false); ok {
		return name, nil
	}
	v := fw.addVariable(candidate(r.NCVarName, r.Conversion.String("grid_mapping_name"), "crs"), nil, cfnc.Int, typed(cfnc.Int, []float64{0}))
	if err := fw.properties(v, r.Properties(), nil); err != nil {
		return "", err
	}
	fw.seen.register(r, v.name, v.dims)
	return v.name, nil
}

// gridMappingAttribute returns the grid_mapping attribute of the data
// variable. A single grid mapping that applies to all the field's
// coordinates uses the short form.
func (fw *fieldWriter) gridMappingAttribute(gms []gridMapping) string {
	switch len(gms) {
	case 0:
		return ""
	case 1:
		if len(gms[0].coords) == 0 || sameNames(gms[0].coords, fw.horizontalNames()) {
			return gms[0].name
		}
	}
	var dimCoords []string
	for _, ax := range fw.f.Domain.Axes {
		if dc := fw.f.DimensionCoordinates[ax.Key]; dc != nil {
			if n, ok := fw.coordVars[dc]; ok {
				dimCoords = append(dimCoords, n)
			}
		}
	}
	parts := make([]string, 0, len(gms))
	for _, g := range gms {
		coords := g.coords
		if len(coords) == 0 {
			coords = dimCoords
		}
		parts = append(parts, g.name+": "+strings.Join(coords, " "))
	}
	return strings.Join(parts, " ")
}

// horizontalNames returns the variable names of the field's horizontal
// coordinates.
func (fw *fieldWriter) horizontalNames() []string {
	var o []string
	for c, name := range fw.coordVars {
		if horizontal[c.Props.String("standard_name")] {
			o = append(o, name)
		}
	}
	return o
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a = append([]string{}, a...)
	b = append([]string{}, b...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// formula writes the domain ancillaries and parameters of a parametric
// vertical coordinate and sets formula_terms on its coordinate variables.
func (fw *fieldWriter) formula(r *model.CoordinateReference) error {
	terms := make(map[string]string)
	boundTerms := make(map[string]string)
	for _, t := range sortedTerms(r) {
		a := r.Ancillaries[t]
		if a == nil {
			continue
		}
		name, err := fw.construct(a, a.Array, a.Axes, constructOpts{name: candidate(a.NCVarName, t), bounds: a.Bounds})
		if err != nil {
			return err
		}
		terms[t] = name
		boundTerms[t] = name
		if b, ok := fw.varIdx[name].get("bounds"); ok {
			boundTerms[t] = b.(string)
		}
	}
	for _, t := range r.Conversion.Names() {
		if formulaParameters[t] {
			continue
		}
		if _, ok := terms[t]; ok {
			continue
		}
		val, err := floatsOf(r.Conversion[t])
		if err != nil || len(val) != 1 {
			continue
		}
		buf := &auxBuffer{Kind: "parameter", Values: val, Attrs: map[string]string{"term": t}}
		name, ok := fw.seen.alreadyWritten(buf, nil, false)
		if !ok {
			v := fw.addVariable(t, nil, cfnc.Double, typed(cfnc.Double, val))
			fw.seen.register(buf, v.name, v.dims)
			name = v.name
		}
		terms[t] = name
		boundTerms[t] = name
	}
	if len(terms) == 0 {
		return nil
	}
	for _, name := range fw.coordNames(r.Coordinates) {
		v := fw.varIdx[name]
		v.set("formula_terms", formulaTerms(terms))
		if csn := r.Conversion.String("computed_standard_name"); csn != "" {
			v.set("computed_standard_name", csn)
		}
		if b, ok := v.get("bounds"); ok {
			fw.varIdx[b.(string)].set("formula_terms", formulaTerms(boundTerms))
		}
	}
	return nil
}

func formulaTerms(terms map[string]string) string {
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + terms[k]
	}
	return strings.Join(parts, " ")
}
