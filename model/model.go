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

// Package model holds the constructs of the CF data model that are read
// from and written to netCDF files.
package model

import (
	"sort"

	"github.com/spatialmodel/cfnc"
)

// Properties holds descriptive attributes, such as standard_name and
// units. Values are strings, numbers or slices of numbers.
type Properties map[string]interface{}

// Copy returns a shallow copy of p.
func (p Properties) Copy() Properties {
	o := make(Properties, len(p))
	for k, v := range p {
		o[k] = v
	}
	return o
}

// Names returns the property names in sorted order.
func (p Properties) Names() []string {
	var o []string
	for k := range p {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// String returns the named property if it is text.
func (p Properties) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// ConstructType identifies the kind of a construct.
type ConstructType string

// The construct types.
const (
	DimensionCoordinateType ConstructType = "dimension_coordinate"
	AuxiliaryCoordinateType ConstructType = "auxiliary_coordinate"
	CellMeasureType         ConstructType = "cell_measure"
	DomainAncillaryType     ConstructType = "domain_ancillary"
	FieldAncillaryType      ConstructType = "field_ancillary"
	CoordinateReferenceType ConstructType = "coordinate_reference"
	FieldType               ConstructType = "field"
)

// Construct is a metadata construct of a field.
type Construct interface {
	ConstructType() ConstructType
	Properties() Properties
	// Data returns the construct's data, or nil if it has none.
	Data() cfnc.Array
	// NCVar returns the preferred netCDF variable name, or "".
	NCVar() string
}

// DomainAxis is an axis of a field's domain.
type DomainAxis struct {
	// Key identifies the axis within its field.
	Key  string
	Size int
	// NCDim is the preferred netCDF dimension name, or "".
	NCDim     string
	Unlimited bool
}

// Bounds holds the cell boundaries of a coordinate or domain ancillary.
// Its data has the shape of its parent plus one trailing vertex axis.
type Bounds struct {
	Props     Properties
	Array     cfnc.Array
	NCVarName string
}

// Coordinate is a dimension coordinate or an auxiliary coordinate.
type Coordinate struct {
	// Auxiliary is true for auxiliary coordinates.
	Auxiliary bool
	Props     Properties
	Array     cfnc.Array
	// Axes are the keys of the domain axes spanned by the data.
	Axes   []string
	Bounds *Bounds
	// Climatology marks the bounds as climatological cells.
	Climatology bool
	NCVarName   string
}

func (c *Coordinate) ConstructType() ConstructType {
	if c.Auxiliary {
		return AuxiliaryCoordinateType
	}
	return DimensionCoordinateType
}
func (c *Coordinate) Properties() Properties { return c.Props }
func (c *Coordinate) Data() cfnc.Array       { return c.Array }
func (c *Coordinate) NCVar() string          { return c.NCVarName }

// CellMeasure holds cell sizes, such as areas or volumes.
type CellMeasure struct {
	// Measure is the kind of measure, such as "area".
	Measure   string
	Props     Properties
	Array     cfnc.Array
	Axes      []string
	// External cell measures are stored in another file and only
	// referenced by name.
	External  bool
	NCVarName string
}

func (c *CellMeasure) ConstructType() ConstructType { return CellMeasureType }
func (c *CellMeasure) Properties() Properties       { return c.Props }
func (c *CellMeasure) Data() cfnc.Array             { return c.Array }
func (c *CellMeasure) NCVar() string                { return c.NCVarName }

// DomainAncillary holds the values of a formula term of a coordinate
// reference.
type DomainAncillary struct {
	Props     Properties
	Array     cfnc.Array
	Axes      []string
	Bounds    *Bounds
	NCVarName string
}

func (d *DomainAncillary) ConstructType() ConstructType { return DomainAncillaryType }
func (d *DomainAncillary) Properties() Properties       { return d.Props }
func (d *DomainAncillary) Data() cfnc.Array             { return d.Array }
func (d *DomainAncillary) NCVar() string                { return d.NCVarName }

// FieldAncillary holds ancillary data, such as uncertainties, that apply
// to each element of a field's data.
type FieldAncillary struct {
	Props     Properties
	Array     cfnc.Array
	Axes      []string
	NCVarName string
}

func (f *FieldAncillary) ConstructType() ConstructType { return FieldAncillaryType }
func (f *FieldAncillary) Properties() Properties       { return f.Props }
func (f *FieldAncillary) Data() cfnc.Array             { return f.Array }
func (f *FieldAncillary) NCVar() string                { return f.NCVarName }

// CoordinateReference relates coordinates to locations in the real world.
// A grid mapping has a grid_mapping_name conversion parameter; a formula
// (parametric vertical coordinate) has a standard_name conversion parameter
// and domain ancillaries for its terms.
type CoordinateReference struct {
	// Coordinates are the coordinates that the reference applies to.
	Coordinates []*Coordinate
	// Datum holds the parameters of the datum, such as
	// semi_major_axis.
	Datum Properties
	// Conversion holds the parameters of the coordinate conversion.
	Conversion Properties
	// Ancillaries maps formula terms to domain ancillaries.
	Ancillaries map[string]*DomainAncillary
	NCVarName   string
}

func (r *CoordinateReference) ConstructType() ConstructType { return CoordinateReferenceType }

// Properties returns the datum and conversion parameters together.
func (r *CoordinateReference) Properties() Properties {
	p := r.Conversion.Copy()
	for k, v := range r.Datum {
		p[k] = v
	}
	return p
}
func (r *CoordinateReference) Data() cfnc.Array { return nil }
func (r *CoordinateReference) NCVar() string    { return r.NCVarName }

// GridMapping reports whether r is a grid mapping.
func (r *CoordinateReference) GridMapping() bool {
	_, ok := r.Conversion["grid_mapping_name"]
	return ok
}

// Formula returns the standard name of r's formula, or "" if r is not a
// formula.
func (r *CoordinateReference) Formula() string {
	if r.GridMapping() {
		return ""
	}
	return r.Conversion.String("standard_name")
}

// CellMethod describes how the values of a field represent their cells.
type CellMethod struct {
	// Axes are domain axis keys or names such as "area".
	Axes     []string
	Method   string
	Where    string
	Over     string
	Within   string
	Interval []string
	Comment  string
}

// Domain is the set of axes and metadata constructs that locate a field's
// data.
type Domain struct {
	Axes []*DomainAxis
	// DimensionCoordinates maps domain axis keys to dimension coordinates.
	DimensionCoordinates map[string]*Coordinate
	AuxiliaryCoordinates []*Coordinate
	CellMeasures         []*CellMeasure
	DomainAncillaries    []*DomainAncillary
	CoordinateReferences []*CoordinateReference
}

// Axis returns the domain axis with the given key, or nil.
func (d *Domain) Axis(key string) *DomainAxis {
	for _, a := range d.Axes {
		if a.Key == key {
			return a
		}
	}
	return nil
}

// Field is a physical quantity together with its domain.
type Field struct {
	Props Properties
	Array cfnc.Array
	// Axes are the keys of the domain axes spanned by the data.
	Axes []string
	Domain
	CellMethods      []CellMethod
	FieldAncillaries []*FieldAncillary
	NCVarName        string
}

func (f *Field) ConstructType() ConstructType { return FieldType }
func (f *Field) Properties() Properties       { return f.Props }
func (f *Field) Data() cfnc.Array             { return f.Array }
func (f *Field) NCVar() string                { return f.NCVarName }

// Identity returns the field's standard_name, long_name or netCDF
// variable name, whichever is set first.
func (f *Field) Identity() string {
	for _, k := range []string{"standard_name", "long_name"} {
		if s := f.Props.String(k); s != "" {
			return s
		}
	}
	return f.NCVarName
}
