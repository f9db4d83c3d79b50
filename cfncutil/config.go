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


package cfncutil

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
	"github.com/spatialmodel/cfnc/netcdf"
	"github.com/spf13/cast"
)

// Substitutions reads a TOML file of fragment location substitutions,
// where each key is a token name and each value its replacement.
func Substitutions(path string) (map[string]string, error) {
	subs := make(map[string]string)
	if path == "" {
		return subs, nil
	}
	if _, err := toml.DecodeFile(os.ExpandEnv(path), &subs); err != nil {
		return nil, fmt.Errorf("cfnc: reading substitutions: %v", err)
	}
	return subs, nil
}

// ReaderOptions returns the netCDF reading options given by cfg.
func ReaderOptions(cfg *viper.Viper) ([]netcdf.Option, error) {
	subs, err := Substitutions(cfg.GetString("Substitutions"))
	if err != nil {
		return nil, err
	}
	n, err := cast.ToIntE(cfg.Get("FragmentCache"))
	if err != nil {
		return nil, fmt.Errorf("cfnc: FragmentCache: %v", err)
	}
	return []netcdf.Option{
		netcdf.WithLogger(logrus.StandardLogger()),
		netcdf.WithSubstitutions(subs),
		netcdf.WithFragmentCache(n),
	}, nil
}

// WriterOptions returns the netCDF writing options given by cfg.
func WriterOptions(cfg *viper.Viper) ([]netcdf.Option, error) {
	format, err := netcdf.ParseFormat(cfg.GetString("Format"))
	if err != nil {
		return nil, err
	}
	globals, err := cast.ToStringSliceE(cfg.Get("GlobalAttributes"))
	if err != nil {
		return nil, fmt.Errorf("cfnc: GlobalAttributes: %v", err)
	}
	return []netcdf.Option{
		netcdf.WithLogger(logrus.StandardLogger()),
		netcdf.WithFormat(format),
		netcdf.WithGlobalAttributes(globals...),
	}, nil
}

func read(cfg *viper.Viper, path string) ([]*model.Field, error) {
	opts, err := ReaderOptions(cfg)
	if err != nil {
		return nil, err
	}
	return netcdf.Read(os.ExpandEnv(path), opts...)
}

func rewrite(cfg *viper.Viper, in, out string) error {
	fields, err := read(cfg, in)
	if err != nil {
		return err
	}
	if cfg.GetBool("ToMemory") {
		for _, f := range fields {
			if err := toMemory(f); err != nil {
				return err
			}
		}
	}
	opts, err := WriterOptions(cfg)
	if err != nil {
		return err
	}
	return netcdf.Write(os.ExpandEnv(out), fields, opts...)
}

// toMemory replaces the data of f and its constructs with in-memory
// copies. Aggregated data are read into dense arrays.
func toMemory(f *model.Field) error {
	load := func(a cfnc.Array) (cfnc.Array, error) {
		if a == nil {
			return nil, nil
		}
		if _, ok := a.(*cfnc.Aggregated); ok {
			m, err := a.Read()
			if err != nil {
				return nil, err
			}
			return cfnc.NewDenseFrom(m), nil
		}
		return a.ToMemory()
	}
	var err error
	if f.Array, err = load(f.Array); err != nil {
		return err
	}
	done := make(map[interface{}]bool)
	coord := func(c *model.Coordinate) error {
		if done[c] {
			return nil
		}
		done[c] = true
		if c.Array, err = load(c.Array); err != nil {
			return err
		}
		if c.Bounds != nil {
			if c.Bounds.Array, err = load(c.Bounds.Array); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range f.DimensionCoordinates {
		if err := coord(c); err != nil {
			return err
		}
	}
	for _, c := range f.AuxiliaryCoordinates {
		if err := coord(c); err != nil {
			return err
		}
	}
	for _, m := range f.CellMeasures {
		if m.Array, err = load(m.Array); err != nil {
			return err
		}
	}
	for _, a := range f.DomainAncillaries {
		if a.Array, err = load(a.Array); err != nil {
			return err
		}
	}
	for _, a := range f.FieldAncillaries {
		if a.Array, err = load(a.Array); err != nil {
			return err
		}
	}
	return nil
}

// describe prints a summary of f.
func describe(w io.Writer, f *model.Field) {
	fmt.Fprintf(w, "Field: %s (ncvar %s)\n", f.Identity(), f.NCVarName)
	fmt.Fprintf(w, "  data: %s%s %s\n", f.Array.DataType(), shapeString(f.Array.Shape()), compression(f.Array))
	var axes []string
	for _, ax := range f.Domain.Axes {
		s := fmt.Sprintf("%s(%d)", ax.Key, ax.Size)
		if ax.Unlimited {
			s += " unlimited"
		}
		axes = append(axes, s)
	}
	fmt.Fprintf(w, "  axes: %s\n", strings.Join(axes, ", "))
	fmt.Fprintf(w, "  data axes: %s\n", strings.Join(f.Axes, ", "))
	keys := make([]string, 0, len(f.DimensionCoordinates))
	for k := range f.DimensionCoordinates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := f.DimensionCoordinates[k]
		fmt.Fprintf(w, "  dimension coordinate: %s%s\n", identity(c.Props, c.NCVarName), shapeString(c.Array.Shape()))
	}
	for _, c := range f.AuxiliaryCoordinates {
		fmt.Fprintf(w, "  auxiliary coordinate: %s%s %s\n", identity(c.Props, c.NCVarName), shapeString(c.Array.Shape()), compression(c.Array))
	}
	for _, m := range f.CellMeasures {
		if m.External {
			fmt.Fprintf(w, "  cell measure: %s %s (external)\n", m.Measure, m.NCVarName)
			continue
		}
		fmt.Fprintf(w, "  cell measure: %s %s%s\n", m.Measure, m.NCVarName, shapeString(m.Array.Shape()))
	}
	for _, r := range f.CoordinateReferences {
		kind := "formula " + r.Formula()
		if r.GridMapping() {
			kind = "grid mapping " + r.Conversion.String("grid_mapping_name")
		}
		fmt.Fprintf(w, "  coordinate reference: %s\n", kind)
	}
	for _, a := range f.FieldAncillaries {
		fmt.Fprintf(w, "  field ancillary: %s%s\n", identity(a.Props, a.NCVarName), shapeString(a.Array.Shape()))
	}
	if len(f.CellMethods) > 0 {
		fmt.Fprintf(w, "  cell methods: %s\n", netcdf.FormatCellMethods(f.CellMethods, nil))
	}
}

func identity(p model.Properties, name string) string {
	for _, k := range []string{"standard_name", "long_name"} {
		if s := p.String(k); s != "" {
			return s
		}
	}
	return name
}

func shapeString(shape []int) string {
	s := make([]string, len(shape))
	for i, n := range shape {
		s[i] = fmt.Sprint(n)
	}
	return "(" + strings.Join(s, ", ") + ")"
}

func compression(a cfnc.Array) string {
	if c, ok := a.(cfnc.Compressed); ok {
		return "[" + string(c.CompressionType()) + "]"
	}
	return ""
}
