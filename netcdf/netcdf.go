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

// Package netcdf reads and writes CF fields as netCDF files.
//
// Files are written in the classic or 64-bit offset format. Classic and
// netCDF-4 (HDF5) files can be read. Compressed arrays are written with
// the matching CF encodings: ragged arrays with count and index variables,
// gathered arrays with a list variable, subsampled coordinates with tie
// points and an interpolation variable, and aggregated arrays as CFA
// aggregation variables.
package netcdf

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// Format is a netCDF file format.
type Format int

// The netCDF file formats.
const (
	Classic Format = iota
	Offset64
	NetCDF4
	NetCDF4Classic
)

func (f Format) String() string {
	switch f {
	case Classic:
		return "NETCDF3_CLASSIC"
	case Offset64:
		return "NETCDF3_64BIT_OFFSET"
	case NetCDF4:
		return "NETCDF4"
	case NetCDF4Classic:
		return "NETCDF4_CLASSIC"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat returns the format named by s.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(s) {
	case "NETCDF3_CLASSIC", "CLASSIC":
		return Classic, nil
	case "NETCDF3_64BIT_OFFSET", "NETCDF3_64BIT", "64BIT_OFFSET", "OFFSET64":
		return Offset64, nil
	case "NETCDF4":
		return NetCDF4, nil
	case "NETCDF4_CLASSIC":
		return NetCDF4Classic, nil
	}
	return Classic, fmt.Errorf("netcdf: unknown format %q", s)
}

// Conventions is the value of the Conventions global attribute written to
// every file.
const Conventions = "CF-1.11"

// CFAConventions is appended to Conventions when a file holds aggregation
// variables.
const CFAConventions = "CFA-0.6.2"

// Equaler reports whether two constructs are structurally equal. It is
// used to find constructs that have already been written.
type Equaler func(a, b model.Construct, ignoreType bool) bool

type config struct {
	format        Format
	log           logrus.FieldLogger
	equal         Equaler
	globals       []string
	opener        cfnc.FragmentOpener
	subs          map[string]string
	fragmentCache int
}

func newConfig(opts []Option) *config {
	c := &config{
		format: Classic,
		log:    logrus.StandardLogger(),
		equal:  model.Equal,
		subs:   make(map[string]string),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures reading or writing.
type Option func(*config)

// WithFormat sets the format of written files. The default is Classic.
func WithFormat(f Format) Option {
	return func(c *config) { c.format = f }
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.log = l }
}

// WithEqualer sets how constructs are compared when looking for
// constructs that have already been written. The default is model.Equal.
func WithEqualer(e Equaler) Option {
	return func(c *config) { c.equal = e }
}

// WithGlobalAttributes requests that the named field properties be written
// as global attributes. A property whose value differs between fields is
// written to each data variable instead.
func WithGlobalAttributes(names ...string) Option {
	return func(c *config) { c.globals = append(c.globals, names...) }
}

// WithFragmentOpener sets how aggregation fragments are opened when
// reading. The default opens local files and blob storage URLs.
func WithFragmentOpener(o cfnc.FragmentOpener) Option {
	return func(c *config) { c.opener = o }
}

// WithSubstitutions adds substitutions for ${name} tokens in aggregation
// fragment locations. They override substitutions stored in the file.
func WithSubstitutions(subs map[string]string) Option {
	return func(c *config) {
		for k, v := range subs {
			c.subs[k] = v
		}
	}
}

// WithFragmentCache keeps up to n aggregation fragments open in memory
// for each aggregated variable that is read.
func WithFragmentCache(n int) Option {
	return func(c *config) { c.fragmentCache = n }
}
