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

// fieldReader assembles one field.
type fieldReader struct {
	*decoder
	v *ncVar
	f *model.Field
}

// field returns the field stored in data variable v.
func (d *decoder) field(v *ncVar) (*model.Field, error) {
	a, dims, err := d.array(v.name)
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{decoder: d, v: v, f: &model.Field{
		Props:     d.props(v, true),
		Array:     a,
		Axes:      dims,
		NCVarName: v.name,
		Domain:    model.Domain{DimensionCoordinates: make(map[string]*model.Coordinate)},
	}}
	shape := a.Shape()
	for i, k := range dims {
		if err := fr.axis(k, shape[i]); err != nil {
			return nil, err
		}
	}
	for _, k := range dims {
		if err := fr.dimensionCoordinate(k); err != nil {
			return nil, err
		}
	}
	for _, name := range strings.Fields(v.attr("coordinates")) {
		if err := fr.coordinate(name); err != nil {
			return nil, err
		}
	}
	for _, p := range pairs(v.attr("coordinate_interpolation")) {
		if len(p.values) == 0 {
			continue
		}
		if err := fr.subsampled(p.key, p.values[0]); err != nil {
			return nil, err
		}
	}
	for _, p := range pairs(v.attr("cell_measures")) {
		if len(p.values) == 0 {
			continue
		}
		if err := fr.cellMeasure(p.key, p.values[0]); err != nil {
			return nil, err
		}
	}
	for _, name := range strings.Fields(v.attr("ancillary_variables")) {
		if err := fr.ancillary(name); err != nil {
			return nil, err
		}
	}
	if err := fr.formulas(); err != nil {
		return nil, err
	}
	if err := fr.gridMappings(v.attr("grid_mapping")); err != nil {
		return nil, err
	}
	if cm := v.attr("cell_methods"); cm != "" {
		methods, err := ParseCellMethods(cm)
		if err != nil {
			fr.log.WithField("variable", v.name).WithError(err).Warn("netcdf: ignoring cell_methods")
		} else {
			fr.f.CellMethods = methods
		}
	}
	return fr.f, nil
}

// axis adds a domain axis, or checks the size of an existing one.
func (fr *fieldReader) axis(key string, size int) error {
	if ax := fr.f.Axis(key); ax != nil {
		if ax.Size != size {
			return cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: variable %s: axis %s has size %d and %d", fr.path, fr.v.name, key, ax.Size, size)}
		}
		return nil
	}
	ax := &model.DomainAxis{Key: key, Size: size, Unlimited: fr.ds.unlimited(key)}
	if _, ok := fr.ds.dimSize(key); ok {
		ax.NCDim = key
	}
	fr.f.Domain.Axes = append(fr.f.Domain.Axes, ax)
	return nil
}

func (fr *fieldReader) axes(dims []string, shape []int) error {
	for i, k := range dims {
		if err := fr.axis(k, shape[i]); err != nil {
			return err
		}
	}
	return nil
}

// cached returns the construct already built for a variable, so that
// fields sharing a variable share the construct.
func (fr *fieldReader) cached(kind, name string, build func() (model.Construct, error)) (model.Construct, error) {
	key := kind + ":" + name
	if c, ok := fr.constructs[key]; ok {
		return c, nil
	}
	c, err := build()
	if err != nil {
		return nil, err
	}
	fr.constructs[key] = c
	return c, nil
}

// bounds returns the bounds of v, reshaped to match a parent with the
// given shape.
func (fr *fieldReader) bounds(v *ncVar, shape []int) (*model.Bounds, bool, error) {
	name, climatology := v.attr("bounds"), false
	if name == "" {
		name, climatology = v.attr("climatology"), true
	}
	if name == "" {
		return nil, false, nil
	}
	bv, ok := fr.vars[name]
	if !ok {
		fr.log.WithField("variable", v.name).Warnf("netcdf: bounds variable %s does not exist", name)
		return nil, false, nil
	}
	a, _, err := fr.array(name)
	if err != nil {
		return nil, false, err
	}
	bs := a.Shape()
	if len(bs) == 0 {
		return nil, false, cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: bounds variable %s has no vertex dimension", fr.path, name)}
	}
	want := append(append([]int{}, shape...), bs[len(bs)-1])
	if fmt.Sprint(want) != fmt.Sprint(bs) {
		if a, err = cfnc.Reshape(a, want...); err != nil {
			return nil, false, err
		}
	}
	return &model.Bounds{Props: fr.props(bv, false), Array: a, NCVarName: name}, climatology, nil
}

// coordinateVariable reports whether name is a numeric one-dimensional
// variable with the same name as its dimension.
func (fr *fieldReader) coordinateVariable(name string) bool {
	v, ok := fr.vars[name]
	return ok && v.dtype != cfnc.Char && len(v.dims) == 1 && v.dims[0] == name
}

func (fr *fieldReader) dimensionCoordinate(key string) error {
	if !fr.coordinateVariable(key) {
		return nil
	}
	a, dims, err := fr.array(key)
	if err != nil {
		return err
	}
	if len(dims) != 1 || dims[0] != key || fr.f.Axis(key).Size != a.Shape()[0] {
		return nil
	}
	c, err := fr.cached("dimension", key, func() (model.Construct, error) {
		v := fr.vars[key]
		b, clim, err := fr.bounds(v, a.Shape())
		if err != nil {
			return nil, err
		}
		return &model.Coordinate{Props: fr.props(v, false), Array: a, Axes: []string{key}, Bounds: b, Climatology: clim, NCVarName: key}, nil
	})
	if err != nil {
		return err
	}
	fr.f.DimensionCoordinates[key] = c.(*model.Coordinate)
	return nil
}

// coordinate adds a variable named by the coordinates attribute. Numeric
// scalars become dimension coordinates of size-one axes.
func (fr *fieldReader) coordinate(name string) error {
	v, ok := fr.vars[name]
	if !ok {
		fr.log.WithField("variable", fr.v.name).Warnf("netcdf: coordinate variable %s does not exist", name)
		return nil
	}
	if _, ok := fr.f.DimensionCoordinates[name]; ok {
		return nil
	}
	a, dims, err := fr.array(name)
	if err != nil {
		return err
	}
	if len(dims) == 0 && v.dtype != cfnc.Char {
		if err := fr.axis(name, 1); err != nil {
			return err
		}
		c, err := fr.cached("scalar", name, func() (model.Construct, error) {
			r, err := cfnc.Reshape(a, 1)
			if err != nil {
				return nil, err
			}
			b, clim, err := fr.bounds(v, []int{1})
			if err != nil {
				return nil, err
			}
			return &model.Coordinate{Props: fr.props(v, false), Array: r, Axes: []string{name}, Bounds: b, Climatology: clim, NCVarName: name}, nil
		})
		if err != nil {
			return err
		}
		fr.f.DimensionCoordinates[name] = c.(*model.Coordinate)
		return nil
	}
	if err := fr.axes(dims, a.Shape()); err != nil {
		return err
	}
	c, err := fr.cached("auxiliary", name, func() (model.Construct, error) {
		b, clim, err := fr.bounds(v, a.Shape())
		if err != nil {
			return nil, err
		}
		return &model.Coordinate{Auxiliary: true, Props: fr.props(v, false), Array: a, Axes: dims, Bounds: b, Climatology: clim, NCVarName: name}, nil
	})
	if err != nil {
		return err
	}
	fr.f.AuxiliaryCoordinates = append(fr.f.AuxiliaryCoordinates, c.(*model.Coordinate))
	return nil
}

// subsampled adds an auxiliary coordinate stored as tie points.
func (fr *fieldReader) subsampled(tpName, interpName string) error {
	tv, err := fr.variable(tpName)
	if err != nil {
		return err
	}
	iv, err := fr.variable(interpName)
	if err != nil {
		return err
	}
	tp, tpDims, err := fr.array(tpName)
	if err != nil {
		return err
	}
	logical := append([]string{}, tpDims...)
	index := make(map[int]cfnc.Array)
	subarea := make(map[string]int)
	for _, m := range pairs(iv.attr("tie_point_mapping")) {
		if len(m.values) < 2 {
			return cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: malformed tie_point_mapping of %s", fr.path, interpName)}
		}
		pos := indexOf(tpDims, m.values[1])
		if pos < 0 {
			return cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: %s does not span tie point dimension %s", fr.path, tpName, m.values[1])}
		}
		logical[pos] = m.key
		ia, _, err := fr.array(m.values[0])
		if err != nil {
			return err
		}
		index[pos] = ia
		if len(m.values) > 2 {
			subarea[m.values[2]] = pos
		}
	}
	shape := make([]int, len(logical))
	for i, dim := range logical {
		if shape[i], err = fr.size(dim); err != nil {
			return err
		}
	}
	params := make(map[string]cfnc.InterpolationParameter)
	for _, p := range pairs(iv.attr("interpolation_parameters")) {
		if len(p.values) == 0 {
			continue
		}
		pa, pdims, err := fr.array(p.values[0])
		if err != nil {
			return err
		}
		axes := make([]int, len(pdims))
		for i, dim := range pdims {
			if pos, ok := subarea[dim]; ok {
				axes[i] = pos
			} else if axes[i] = indexOf(logical, dim); axes[i] < 0 {
				return cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: interpolation parameter %s spans unknown dimension %s", fr.path, p.values[0], dim)}
			}
		}
		params[p.key] = cfnc.InterpolationParameter{Data: pa, Axes: axes}
	}
	if err := fr.axes(logical, shape); err != nil {
		return err
	}
	c, err := fr.cached("subsampled", tpName, func() (model.Construct, error) {
		a, err := cfnc.Build(cfnc.Description{
			Type:          cfnc.SubsampledType,
			Shape:         shape,
			Data:          tp,
			Interpolation: iv.attr("interpolation_name"),
			TiePointIndex: index,
			Parameters:    params,
		})
		if err != nil {
			return nil, fmt.Errorf("netcdf: tie points %s: %v", tpName, err)
		}
		return &model.Coordinate{Auxiliary: true, Props: fr.props(tv, false), Array: a, Axes: logical, NCVarName: tpName}, nil
	})
	if err != nil {
		return err
	}
	fr.f.AuxiliaryCoordinates = append(fr.f.AuxiliaryCoordinates, c.(*model.Coordinate))
	return nil
}

func (fr *fieldReader) cellMeasure(measure, name string) error {
	v, ok := fr.vars[name]
	if !ok {
		if !fr.external[name] {
			fr.log.WithField("variable", fr.v.name).Warnf("netcdf: cell measure variable %s does not exist", name)
			return nil
		}
		c, _ := fr.cached("external", name, func() (model.Construct, error) {
			return &model.CellMeasure{Measure: measure, External: true, NCVarName: name}, nil
		})
		fr.f.CellMeasures = append(fr.f.CellMeasures, c.(*model.CellMeasure))
		return nil
	}
	a, dims, err := fr.array(name)
	if err != nil {
		return err
	}
	if err := fr.axes(dims, a.Shape()); err != nil {
		return err
	}
	c, _ := fr.cached("measure", name, func() (model.Construct, error) {
		return &model.CellMeasure{Measure: measure, Props: fr.props(v, false), Array: a, Axes: dims, NCVarName: name}, nil
	})
	fr.f.CellMeasures = append(fr.f.CellMeasures, c.(*model.CellMeasure))
	return nil
}

func (fr *fieldReader) ancillary(name string) error {
	v, ok := fr.vars[name]
	if !ok {
		fr.log.WithField("variable", fr.v.name).Warnf("netcdf: ancillary variable %s does not exist", name)
		return nil
	}
	a, dims, err := fr.array(name)
	if err != nil {
		return err
	}
	if err := fr.axes(dims, a.Shape()); err != nil {
		return err
	}
	c, _ := fr.cached("ancillary", name, func() (model.Construct, error) {
		return &model.FieldAncillary{Props: fr.props(v, false), Array: a, Axes: dims, NCVarName: name}, nil
	})
	fr.f.FieldAncillaries = append(fr.f.FieldAncillaries, c.(*model.FieldAncillary))
	return nil
}

// coordinates returns the field's coordinates in a stable order.
func (fr *fieldReader) coordinates() []*model.Coordinate {
	var o []*model.Coordinate
	for _, ax := range fr.f.Domain.Axes {
		if c, ok := fr.f.DimensionCoordinates[ax.Key]; ok {
			o = append(o, c)
		}
	}
	return append(o, fr.f.AuxiliaryCoordinates...)
}

// formulas adds a coordinate reference for every coordinate with a
// formula_terms attribute.
func (fr *fieldReader) formulas() error {
	for _, c := range fr.coordinates() {
		cv, ok := fr.vars[c.NCVarName]
		if !ok || cv.attr("formula_terms") == "" {
			continue
		}
		var boundsTerms map[string]string
		if c.Bounds != nil {
			if bv, ok := fr.vars[c.Bounds.NCVarName]; ok {
				boundsTerms = pairMap(bv.attr("formula_terms"))
			}
		}
		ref, err := fr.cached("formula", c.NCVarName, func() (model.Construct, error) {
			r := &model.CoordinateReference{
				Coordinates: []*model.Coordinate{c},
				Conversion:  model.Properties{"standard_name": c.Props.String("standard_name")},
				Ancillaries: make(map[string]*model.DomainAncillary),
			}
			if s := cv.attr("computed_standard_name"); s != "" {
				r.Conversion["computed_standard_name"] = s
			}
			for _, p := range pairs(cv.attr("formula_terms")) {
				if len(p.values) == 0 {
					continue
				}
				if err := fr.term(r, p.key, p.values[0], boundsTerms[p.key]); err != nil {
					return nil, err
				}
			}
			return r, nil
		})
		if err != nil {
			return err
		}
		r := ref.(*model.CoordinateReference)
		for _, da := range sortedAncillaries(r) {
			if err := fr.axes(da.Axes, da.Array.Shape()); err != nil {
				return err
			}
			if !containsAncillary(fr.f.DomainAncillaries, da) {
				fr.f.DomainAncillaries = append(fr.f.DomainAncillaries, da)
			}
		}
		fr.f.CoordinateReferences = append(fr.f.CoordinateReferences, r)
	}
	return nil
}

// term adds one formula term to r. Numeric scalars without attributes are
// conversion parameters; everything else is a domain ancillary.
func (fr *fieldReader) term(r *model.CoordinateReference, term, name, boundsName string) error {
	v, ok := fr.vars[name]
	if !ok {
		fr.log.WithField("variable", name).Warnf("netcdf: formula term %s does not exist", term)
		return nil
	}
	a, dims, err := fr.array(name)
	if err != nil {
		return err
	}
	if len(dims) == 0 && v.dtype != cfnc.Char && len(fr.props(v, false)) == 0 {
		m, err := a.Read()
		if err != nil {
			return err
		}
		if m.Len() == 1 && !m.IsMasked(0) {
			r.Conversion[term] = m.Elements[0]
			return nil
		}
	}
	c, err := fr.cached("domain_ancillary", name, func() (model.Construct, error) {
		da := &model.DomainAncillary{Props: fr.props(v, false), Array: a, Axes: dims, NCVarName: name}
		if bv, ok := fr.vars[boundsName]; ok {
			b, _, err := fr.array(boundsName)
			if err != nil {
				return nil, err
			}
			bs := b.Shape()
			if len(bs) == 0 {
				return nil, cfnc.ValidationError{Op: "Read", Msg: fmt.Sprintf("%s: bounds variable %s has no vertex dimension", fr.path, boundsName)}
			}
			want := append(append([]int{}, a.Shape()...), bs[len(bs)-1])
			if b, err = cfnc.Reshape(b, want...); err != nil {
				return nil, err
			}
			da.Bounds = &model.Bounds{Props: fr.props(bv, false), Array: b, NCVarName: boundsName}
		}
		return da, nil
	})
	if err != nil {
		return err
	}
	r.Ancillaries[term] = c.(*model.DomainAncillary)
	return nil
}

func containsAncillary(s []*model.DomainAncillary, d *model.DomainAncillary) bool {
	for _, e := range s {
		if e == d {
			return true
		}
	}
	return false
}

// gridMappings adds the coordinate references named by a grid_mapping
// attribute in either its short or its extended form.
func (fr *fieldReader) gridMappings(attr string) error {
	if attr == "" {
		return nil
	}
	var mappings []pair
	if strings.Contains(attr, ":") {
		mappings = pairs(attr)
	} else {
		for _, name := range strings.Fields(attr) {
			mappings = append(mappings, pair{key: name})
		}
	}
	byName := make(map[string]*model.Coordinate)
	for _, c := range fr.coordinates() {
		byName[c.NCVarName] = c
	}
	for _, m := range mappings {
		gv, ok := fr.vars[m.key]
		if !ok {
			fr.log.WithField("variable", fr.v.name).Warnf("netcdf: grid mapping variable %s does not exist", m.key)
			continue
		}
		var coords []*model.Coordinate
		if m.values == nil {
			for _, c := range fr.coordinates() {
				if horizontal[c.Props.String("standard_name")] {
					coords = append(coords, c)
				}
			}
		}
		for _, name := range m.values {
			if c, ok := byName[name]; ok {
				coords = append(coords, c)
			}
		}
		r := &model.CoordinateReference{
			Coordinates: coords,
			Datum:       make(model.Properties),
			Conversion:  make(model.Properties),
			NCVarName:   m.key,
		}
		for k, val := range fr.props(gv, false) {
			if datumParameters[k] {
				r.Datum[k] = val
			} else {
				r.Conversion[k] = val
			}
		}
		fr.f.CoordinateReferences = append(fr.f.CoordinateReferences, r)
	}
	return nil
}
