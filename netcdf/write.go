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

// Writer writes fields to netCDF files.
type Writer struct {
	cfg *config
}

// NewWriter returns a Writer configured by opts.
func NewWriter(opts ...Option) *Writer {
	return &Writer{cfg: newConfig(opts)}
}

// Write writes fields to a new netCDF file at path, replacing any existing
// file.
func Write(path string, fields []*model.Field, opts ...Option) error {
	return NewWriter(opts...).Write(path, fields...)
}

// Write writes fields to a new netCDF file at path, replacing any existing
// file. Constructs that are shared by several fields, or are equal, are
// written once.
func (w *Writer) Write(path string, fields ...*model.Field) error {
	if w.cfg.format == NetCDF4 || w.cfg.format == NetCDF4Classic {
		return cfnc.IOError{Op: "Write", Path: path, Err: fmt.Errorf("writing %s files is not supported", w.cfg.format)}
	}
	s := newSession(path, w.cfg)
	global, err := s.globalAttributes(fields)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := s.writeField(f, global); err != nil {
			return err
		}
	}
	s.conventions()
	return s.close()
}

// fieldWriter writes one field within a session.
type fieldWriter struct {
	*session
	f      *model.Field
	global map[string]bool

	// dims maps domain axis keys to netCDF dimensions.
	dims map[string]string
	// scalar maps domain axis keys to scalar coordinate variables.
	scalar map[string]string
	used   map[string]bool

	// ragged is the field's data when it is a ragged array, and
	// raggedAxes the axes it compresses.
	ragged     cfnc.Compressed
	raggedAxes []string
	noDim      map[string]bool

	coordVars map[*model.Coordinate]string

	coordinates   []string
	measures      []string
	ancillaries   []string
	interpolation []string
	gridMapping   string
}

type plainDim struct {
	name     string
	size     int
	attached []attached
}

// attached is a construct spanning a domain axis at position pos of its
// own axes.
type attached struct {
	c   model.Construct
	pos int
}

func (s *session) writeField(f *model.Field, global map[string]bool) error {
	const op = "Write"
	if f.Array == nil {
		return cfnc.ValidationError{Op: op, Msg: fmt.Sprintf("field %s has no data", f.Identity())}
	}
	fw := &fieldWriter{
		session:   s,
		f:         f,
		global:    global,
		dims:      make(map[string]string),
		scalar:    make(map[string]string),
		used:      make(map[string]bool),
		noDim:     make(map[string]bool),
		coordVars: make(map[*model.Coordinate]string),
	}
	if err := fw.checkAxes("field "+f.Identity(), f.Array, f.Axes, 0); err != nil {
		return err
	}
	if c, ok := f.Array.(cfnc.Compressed); ok {
		if nd := cfnc.NoDimensionAxes(c); len(nd) > 0 {
			fw.ragged = c
			fw.raggedAxes = f.Axes[:nd[len(nd)-1]+1]
			for _, i := range nd {
				fw.noDim[f.Axes[i]] = true
			}
		}
	}
	if err := fw.resolveAxes(); err != nil {
		return err
	}
	for _, c := range f.AuxiliaryCoordinates {
		if err := fw.auxiliary(c); err != nil {
			return err
		}
	}
	for _, m := range f.CellMeasures {
		if err := fw.cellMeasure(m); err != nil {
			return err
		}
	}
	for _, a := range f.FieldAncillaries {
		name, err := fw.construct(a, a.Array, a.Axes, constructOpts{name: candidate(a.NCVarName, a.Props.String("standard_name"), "ancillary")})
		if err != nil {
			return err
		}
		fw.ancillaries = append(fw.ancillaries, name)
	}
	if err := fw.references(); err != nil {
		return err
	}
	return fw.dataVariable()
}

// checkAxes checks that array a spans the given domain axes, followed by
// trailing axes that are not domain axes.
func (fw *fieldWriter) checkAxes(what string, a cfnc.Array, axes []string, trailing int) error {
	shape := a.Shape()
	if len(shape) != len(axes)+trailing {
		return cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s has shape %v but spans %d axes", what, shape, len(axes)+trailing)}
	}
	for i, k := range axes {
		ax := fw.f.Axis(k)
		if ax == nil {
			return cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s spans unknown axis %q", what, k)}
		}
		if ax.Size != shape[i] {
			return cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s has size %d along axis %q of size %d", what, shape[i], k, ax.Size)}
		}
	}
	return nil
}

// attachedTo returns the constructs of the field other than dimension
// coordinates that span axis key.
func (fw *fieldWriter) attachedTo(key string) []attached {
	var o []attached
	add := func(c model.Construct, axes []string) {
		for i, k := range axes {
			if k == key {
				o = append(o, attached{c: c, pos: i})
			}
		}
	}
	for _, c := range fw.f.AuxiliaryCoordinates {
		add(c, c.Axes)
	}
	for _, m := range fw.f.CellMeasures {
		if !m.External {
			add(m, m.Axes)
		}
	}
	for _, r := range fw.f.CoordinateReferences {
		for _, a := range sortedAncillaries(r) {
			add(a, a.Axes)
		}
	}
	for _, a := range fw.f.FieldAncillaries {
		add(a, a.Axes)
	}
	return o
}

// resolveAxes assigns each domain axis a netCDF dimension or a scalar
// coordinate variable. A dimension coordinate becomes a coordinate variable
// when its axis is spanned by the data or by another construct, and a
// scalar coordinate variable otherwise. Other axes get a plain dimension.
func (fw *fieldWriter) resolveAxes() error {
	spanned := make(map[string]bool)
	for _, k := range fw.f.Axes {
		spanned[k] = true
	}
	for _, ax := range fw.f.Domain.Axes {
		if fw.noDim[ax.Key] {
			continue
		}
		dc := fw.f.DimensionCoordinates[ax.Key]
		needed := spanned[ax.Key] || len(fw.attachedTo(ax.Key)) > 0
		switch {
		case dc != nil && (needed || ax.Size != 1):
			if err := fw.dimensionCoordinate(ax, dc); err != nil {
				return err
			}
		case dc != nil:
			if err := fw.scalarCoordinate(ax, dc); err != nil {
				return err
			}
		case needed:
			fw.plainDimension(ax)
		}
	}
	return nil
}

func (fw *fieldWriter) useDim(key, name string) {
	fw.dims[key] = name
	fw.used[name] = true
}

func (fw *fieldWriter) dimensionCoordinate(ax *model.DomainAxis, dc *model.Coordinate) error {
	if err := fw.checkAxes("dimension coordinate of axis "+ax.Key, dc.Array, []string{ax.Key}, 0); err != nil {
		return err
	}
	eligible := func(e seenEntry) bool {
		d, ok := fw.dimIdx[e.name]
		return ok && len(e.dims) == 1 && e.dims[0] == e.name && d.unlimited == ax.Unlimited && !fw.used[e.name]
	}
	if name, ok := fw.seen.lookup(dc, nil, false, eligible); ok {
		fw.useDim(ax.Key, name)
		fw.coordVars[dc] = name
		return nil
	}
	name, _ := fw.names.allocate(candidate(dc.NCVarName, ax.NCDim, dc.Props.String("standard_name"), ax.Key), -1)
	fw.namedDimension(name, ax.Size, ax.Unlimited)
	fw.useDim(ax.Key, name)
	_, err := fw.construct(dc, dc.Array, []string{ax.Key}, constructOpts{
		name: name, exact: true, bounds: dc.Bounds, climatology: dc.Climatology,
	})
	fw.coordVars[dc] = name
	return err
}

// scalarCoordinate writes the dimension coordinate of a size 1 axis that
// no data span as a scalar coordinate variable.
func (fw *fieldWriter) scalarCoordinate(ax *model.DomainAxis, dc *model.Coordinate) error {
	if err := fw.checkAxes("dimension coordinate of axis "+ax.Key, dc.Array, []string{ax.Key}, 0); err != nil {
		return err
	}
	data, err := cfnc.Reshape(dc.Array)
	if err != nil {
		return err
	}
	name, err := fw.construct(dc, data, nil, constructOpts{
		name:   candidate(dc.NCVarName, ax.NCDim, dc.Props.String("standard_name"), ax.Key),
		bounds: dc.Bounds, climatology: dc.Climatology,
	})
	if err != nil {
		return err
	}
	fw.scalar[ax.Key] = name
	fw.coordVars[dc] = name
	fw.coordinates = append(fw.coordinates, name)
	return nil
}

// plainDimension assigns a dimension to an axis without a dimension
// coordinate. A dimension created for an earlier field is reused if it
// has the same size and the constructs spanning it are equal, position by
// position, to those spanning this axis. The first such dimension wins.
func (fw *fieldWriter) plainDimension(ax *model.DomainAxis) {
	cur := fw.attachedTo(ax.Key)
	for _, p := range fw.plain {
		if p.size != ax.Size || fw.used[p.name] || fw.dimIdx[p.name].unlimited != ax.Unlimited {
			continue
		}
		if fw.sameAttached(cur, p.attached) {
			fw.log.WithField("dimension", p.name).Debug("netcdf: reusing dimension")
			fw.useDim(ax.Key, p.name)
			return
		}
	}
	name := fw.addDimension(candidate(ax.NCDim, ax.Key, "dim"), ax.Size, ax.Unlimited)
	fw.plain = append(fw.plain, &plainDim{name: name, size: ax.Size, attached: cur})
	fw.useDim(ax.Key, name)
}

func (fw *fieldWriter) sameAttached(a, b []attached) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].pos != b[i].pos || !fw.cfg.equal(a[i].c, b[i].c, false) {
			return false
		}
	}
	return true
}

type constructOpts struct {
	name        string
	exact       bool
	ignoreType  bool
	bounds      *model.Bounds
	climatology bool
}

// construct writes the variable of construct c holding data, unless an
// equal construct has already been written with the same dimensions, and
// returns the variable name.
func (fw *fieldWriter) construct(c model.Construct, data cfnc.Array, axes []string, o constructOpts) (string, error) {
	if data == nil {
		return "", cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("%s %s has no data", c.ConstructType(), o.name)}
	}
	st, err := fw.store(string(c.ConstructType()), data, axes, c.Properties())
	if err != nil {
		return "", err
	}
	if name, ok := fw.seen.alreadyWritten(c, st.dims, o.ignoreType); ok {
		return name, nil
	}
	var v *variable
	if o.exact {
		v = fw.namedVariable(o.name, st.dims, st.dtype, st.data)
	} else {
		v = fw.addVariable(o.name, st.dims, st.dtype, st.data)
	}
	if err := fw.properties(v, c.Properties(), nil); err != nil {
		return "", err
	}
	st.apply(v)
	if o.bounds != nil {
		if err := fw.writeBounds(v, o.bounds, axes, o.climatology); err != nil {
			return "", err
		}
	}
	fw.seen.register(c, v.name, st.dims)
	return v.name, nil
}

func (fw *fieldWriter) writeBounds(v *variable, b *model.Bounds, axes []string, climatology bool) error {
	if b.Array == nil {
		return nil
	}
	arr := b.Array
	shape := arr.Shape()
	if len(shape) == 0 {
		return cfnc.ValidationError{Op: "Write", Msg: fmt.Sprintf("bounds of %s have no vertex axis", v.name)}
	}
	nv := shape[len(shape)-1]
	if len(shape)-1 != len(axes) {
		var err error
		if arr, err = cfnc.Reshape(arr, nv); err != nil {
			return err
		}
	}
	vertex := fw.sharedDimension(fmt.Sprintf("bounds%d", nv), nv)
	st, err := fw.store("bounds", arr, axes, b.Props, vertex)
	if err != nil {
		return err
	}
	bv := fw.addVariable(candidate(b.NCVarName, v.name+"_bounds"), st.dims, st.dtype, st.data)
	if err := fw.properties(bv, b.Props, nil); err != nil {
		return err
	}
	st.apply(bv)
	if climatology {
		v.set("climatology", bv.name)
	} else {
		v.set("bounds", bv.name)
	}
	return nil
}

func (fw *fieldWriter) auxiliary(c *model.Coordinate) error {
	if sub, ok := c.Array.(*cfnc.Subsampled); ok {
		return fw.subsampled(c, sub)
	}
	name, err := fw.construct(c, c.Array, c.Axes, constructOpts{
		name:       candidate(c.NCVarName, c.Props.String("standard_name"), "auxiliary"),
		ignoreType: true, bounds: c.Bounds, climatology: c.Climatology,
	})
	if err != nil {
		return err
	}
	fw.coordVars[c] = name
	fw.coordinates = append(fw.coordinates, name)
	return nil
}

func (fw *fieldWriter) cellMeasure(m *model.CellMeasure) error {
	if m.Measure == "" {
		return cfnc.ValidationError{Op: "Write", Msg: "cell measure has no measure"}
	}
	if m.External {
		name := sanitize(candidate(m.NCVarName, "cell_"+m.Measure))
		if !contains(fw.external, name) {
			fw.external = append(fw.external, name)
		}
		fw.measures = append(fw.measures, m.Measure+": "+name)
		return nil
	}
	name, err := fw.construct(m, m.Array, m.Axes, constructOpts{name: candidate(m.NCVarName, "cell_"+m.Measure)})
	if err != nil {
		return err
	}
	fw.measures = append(fw.measures, m.Measure+": "+name)
	return nil
}

func (fw *fieldWriter) dataVariable() error {
	f := fw.f
	st, err := fw.store("field "+f.Identity(), f.Array, f.Axes, f.Props)
	if err != nil {
		return err
	}
	v := fw.addVariable(candidate(f.NCVarName, f.Identity(), "data"), st.dims, st.dtype, st.data)
	if err := fw.properties(v, f.Props, fw.global); err != nil {
		return err
	}
	st.apply(v)
	if len(fw.coordinates) > 0 {
		v.set("coordinates", strings.Join(fw.coordinates, " "))
	}
	if len(fw.measures) > 0 {
		v.set("cell_measures", strings.Join(fw.measures, " "))
	}
	if len(fw.ancillaries) > 0 {
		v.set("ancillary_variables", strings.Join(fw.ancillaries, " "))
	}
	if fw.gridMapping != "" {
		v.set("grid_mapping", fw.gridMapping)
	}
	if len(f.CellMethods) > 0 {
		v.set("cell_methods", FormatCellMethods(f.CellMethods, fw.axisName))
	}
	if len(fw.interpolation) > 0 {
		v.set("coordinate_interpolation", strings.Join(fw.interpolation, " "))
	}
	return nil
}

// axisName returns the netCDF name of a domain axis: its dimension or
// scalar coordinate variable. Other names, such as "area", are returned
// unchanged.
func (fw *fieldWriter) axisName(key string) string {
	if d, ok := fw.dims[key]; ok {
		return d
	}
	if s, ok := fw.scalar[key]; ok {
		return s
	}
	return key
}

// candidate returns the first name that is not empty.
func candidate(names ...string) string {
	for _, n := range names {
		if n != "" {
			return n
		}
	}
	return "var"
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
