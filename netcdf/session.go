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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/cloud"
)

type dimension struct {
	name      string
	size      int
	unlimited bool
}

type attribute struct {
	name  string
	value interface{}
}

type variable struct {
	name  string
	dims  []string
	dtype cfnc.DataType
	attrs []attribute
	// data holds the stored values in the slice type of dtype.
	data interface{}
}

// set sets attribute name, replacing any earlier value.
func (v *variable) set(name string, value interface{}) {
	for i, a := range v.attrs {
		if a.name == name {
			v.attrs[i].value = value
			return
		}
	}
	v.attrs = append(v.attrs, attribute{name: name, value: value})
}

func (v *variable) get(name string) (interface{}, bool) {
	for _, a := range v.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return nil, false
}

// session holds the state of one call to Write: the dimensions, variables
// and attributes to be written and the names and constructs already used.
type session struct {
	cfg   *config
	log   logrus.FieldLogger
	path  string
	names *names
	seen  *seen

	dims   []*dimension
	dimIdx map[string]*dimension
	vars   []*variable
	varIdx map[string]*variable

	globals    []attribute
	external   []string
	aggregated bool

	// plain holds the dimensions created for domain axes without
	// dimension coordinates.
	plain []*plainDim
	// samples maps ragged count and index variables to their sample
	// dimensions.
	samples map[string]string
}

func newSession(path string, cfg *config) *session {
	return &session{
		cfg:     cfg,
		log:     cfg.log.WithField("path", path),
		path:    path,
		names:   newNames(),
		seen:    newSeen(cfg.equal),
		dimIdx:  make(map[string]*dimension),
		varIdx:  make(map[string]*variable),
		samples: make(map[string]string),
	}
}

// addDimension creates a dimension with a new name based on candidate.
func (s *session) addDimension(candidate string, size int, unlimited bool) string {
	name, _ := s.names.allocate(candidate, -1)
	return s.namedDimension(name, size, unlimited)
}

// namedDimension creates a dimension with exactly the given name.
func (s *session) namedDimension(name string, size int, unlimited bool) string {
	s.names.dimension(name, size, unlimited)
	d := &dimension{name: name, size: size, unlimited: unlimited}
	s.dims = append(s.dims, d)
	s.dimIdx[name] = d
	s.log.WithFields(logrus.Fields{"dimension": name, "size": size, "unlimited": unlimited}).Debug("netcdf: created dimension")
	return name
}

// sharedDimension returns a fixed-size dimension of the given size named
// after candidate, creating it if needed.
func (s *session) sharedDimension(candidate string, size int) string {
	name, reused := s.names.allocate(candidate, size)
	if reused {
		return name
	}
	return s.namedDimension(name, size, false)
}

// addVariable creates a variable with a new name based on candidate.
func (s *session) addVariable(candidate string, dims []string, dtype cfnc.DataType, data interface{}) *variable {
	name, _ := s.names.allocate(candidate, -1)
	return s.namedVariable(name, dims, dtype, data)
}

// namedVariable creates a variable with exactly the given name.
func (s *session) namedVariable(name string, dims []string, dtype cfnc.DataType, data interface{}) *variable {
	s.names.variable(name)
	v := &variable{name: name, dims: append([]string{}, dims...), dtype: dtype, data: data}
	s.vars = append(s.vars, v)
	s.varIdx[name] = v
	s.log.WithFields(logrus.Fields{"variable": name, "dimensions": dims, "type": dtype}).Debug("netcdf: created variable")
	return v
}

func (s *session) size(dims []string) int {
	n := 1
	for _, d := range dims {
		n *= s.dimIdx[d].size
	}
	return n
}

func (s *session) ioError(err error) error {
	return cfnc.IOError{Op: "Write", Path: s.path, Err: err}
}

// check verifies that the dimensions and variables can be stored in the
// requested format.
func (s *session) check() error {
	var unlimited []string
	for _, d := range s.dims {
		if d.unlimited {
			unlimited = append(unlimited, d.name)
		} else if d.size == 0 {
			return s.ioError(fmt.Errorf("dimension %s has size 0, which only an unlimited dimension can have", d.name))
		}
	}
	if len(unlimited) > 1 {
		return s.ioError(fmt.Errorf("%s allows only one unlimited dimension, found %v", s.cfg.format, unlimited))
	}
	for _, v := range s.vars {
		for i, d := range v.dims {
			if s.dimIdx[d].unlimited && i != 0 {
				return s.ioError(fmt.Errorf("unlimited dimension %s is not the outermost dimension of variable %s", d, v.name))
			}
		}
	}
	return nil
}

// header defines the file header.
func (s *session) header() (h *cdf.Header, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = s.ioError(fmt.Errorf("defining header: %v", r))
		}
	}()
	names := make([]string, len(s.dims))
	lengths := make([]int, len(s.dims))
	for i, d := range s.dims {
		names[i] = d.name
		if !d.unlimited {
			lengths[i] = d.size
		}
	}
	h = cdf.NewHeader(names, lengths)
	for _, a := range s.globals {
		h.AddAttribute("", a.name, a.value)
	}
	for _, v := range s.vars {
		var zero interface{} = "" // char
		if v.dtype != cfnc.Char {
			zero = typed(v.dtype, nil)
		}
		h.AddVariable(v.name, v.dims, zero)
		for _, a := range v.attrs {
			h.AddAttribute(v.name, a.name, a.value)
		}
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return nil, s.ioError(fmt.Errorf("invalid header: %v", errs[0]))
	}
	var b bytes.Buffer
	if err := h.WriteHeader(&b); err != nil {
		return nil, s.ioError(err)
	}
	if s.cfg.format == Classic && b.Bytes()[3] != 1 {
		return nil, s.ioError(errors.New("the data are too large for the classic format; use the 64-bit offset format"))
	}
	return h, nil
}

// close writes the file. The file is written to a temporary file next to
// the target and renamed when complete, so a failed write leaves any
// existing file untouched.
func (s *session) close() (err error) {
	if err = s.check(); err != nil {
		return err
	}
	h, err := s.header()
	if err != nil {
		return err
	}
	dir, base := filepath.Split(s.path)
	if cloud.IsURL(s.path) {
		dir, base = os.TempDir(), "cfnc"
	} else if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return s.ioError(err)
	}
	tmp := f.Name()
	defer func() {
		if r := recover(); r != nil {
			err = s.ioError(fmt.Errorf("writing data: %v", r))
		}
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	cf, err := cdf.Create(f, h)
	if err != nil {
		return s.ioError(err)
	}
	records := 0
	for _, v := range s.vars {
		if h.IsRecordVariable(v.name) {
			records++
		}
		if v.data == nil || reflectLen(v.data) == 0 {
			continue
		}
		w := cf.Writer(v.name, nil, nil)
		var n int
		n, err = w.Write(v.data)
		if err == io.EOF && n == reflectLen(v.data) {
			// Filling a fixed-size variable ends at its last element.
			err = nil
		}
		if err != nil {
			return s.ioError(fmt.Errorf("writing variable %s: %v", v.name, err))
		}
	}
	if records > 1 {
		// The last record is padded to a 4-byte boundary.
		fi, serr := f.Stat()
		if serr != nil {
			return s.ioError(serr)
		}
		if err = f.Truncate((fi.Size() + 3) &^ 3); err != nil {
			return s.ioError(err)
		}
	}
	if err = cdf.UpdateNumRecs(f); err != nil {
		return s.ioError(err)
	}
	if err = f.Close(); err != nil {
		return s.ioError(err)
	}
	if cloud.IsURL(s.path) {
		err = s.upload(tmp)
		os.Remove(tmp)
		if err != nil {
			return err
		}
	} else if err = os.Rename(tmp, s.path); err != nil {
		return s.ioError(err)
	}
	s.log.WithFields(logrus.Fields{"dimensions": len(s.dims), "variables": len(s.vars)}).Info("netcdf: wrote file")
	return nil
}

// upload copies the finished file at tmp to blob storage.
func (s *session) upload(tmp string) error {
	b, err := os.ReadFile(tmp)
	if err != nil {
		return s.ioError(err)
	}
	if err := cloud.WriteBlob(context.Background(), s.path, b); err != nil {
		return s.ioError(err)
	}
	return nil
}
