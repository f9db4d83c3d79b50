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
	"context"

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// Reader reads fields from netCDF files.
type Reader struct {
	cfg *config
}

// NewReader returns a Reader configured by opts.
func NewReader(opts ...Option) *Reader {
	return &Reader{cfg: newConfig(opts)}
}

// Read returns the fields stored in the netCDF file at path.
func Read(path string, opts ...Option) ([]*model.Field, error) {
	return NewReader(opts...).Read(path)
}

// Read returns the fields stored in the netCDF file at path, which may
// also be a blob storage location such as s3://bucket/key. The file is
// loaded into memory and closed before Read returns; the data of the
// fields are decoded when they are read.
func (r *Reader) Read(path string) ([]*model.Field, error) {
	b, err := readAll(context.Background(), path)
	if err != nil {
		return nil, err
	}
	ds, err := openBytes(path, b)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	return newDecoder(r.cfg, path, ds).fields()
}

// Dataset is an open netCDF file whose fields read their data from the
// file on demand.
type Dataset struct {
	path   string
	ds     container
	fields []*model.Field
}

// Open opens the netCDF file at path. The fields of the dataset may be
// read until it is closed.
func (r *Reader) Open(path string) (*Dataset, error) {
	ds, err := openFile(path)
	if err != nil {
		return nil, err
	}
	fields, err := newDecoder(r.cfg, path, ds).fields()
	if err != nil {
		ds.Close()
		return nil, err
	}
	return &Dataset{path: path, ds: ds, fields: fields}, nil
}

// Fields returns the fields of the dataset.
func (d *Dataset) Fields() []*model.Field { return d.fields }

// Close closes the underlying file.
func (d *Dataset) Close() error {
	if err := d.ds.Close(); err != nil {
		return cfnc.IOError{Op: "Close", Path: d.path, Err: err}
	}
	return nil
}
