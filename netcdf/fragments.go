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
	"fmt"
	"io"
	"io/ioutil"

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/cloud"
)

// fileOpener opens aggregation fragments stored in netCDF files on the
// local filesystem or in blob storage.
type fileOpener struct {
	cfg *config
}

// NewFragmentOpener returns the default FragmentOpener, which opens netCDF
// fragments from local paths and from s3://, gs:// and file:// locations.
func NewFragmentOpener(opts ...Option) cfnc.FragmentOpener {
	return &fileOpener{cfg: newConfig(opts)}
}

// OpenFragment implements cfnc.FragmentOpener. An empty address selects
// the only data variable of the fragment file.
func (o *fileOpener) OpenFragment(ctx context.Context, location, address, format string) (cfnc.Array, io.Closer, error) {
	const op = "open fragment"
	if format != "" && format != "nc" {
		return nil, nil, cfnc.IOError{Op: op, Path: location, Err: fmt.Errorf("unsupported fragment format %q", format)}
	}
	ds, err := load(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	d := newDecoder(o.cfg, location, ds)
	if address == "" {
		address, err = d.only()
		if err != nil {
			ds.Close()
			return nil, nil, cfnc.IOError{Op: op, Path: location, Err: err}
		}
	}
	a, _, err := d.array(address)
	if err != nil {
		ds.Close()
		return nil, nil, cfnc.IOError{Op: op, Path: location, Err: err}
	}
	return a, ds, nil
}

// load opens the dataset at a local path or blob storage location.
func load(ctx context.Context, location string) (container, error) {
	if !cloud.IsURL(location) {
		return openFile(location)
	}
	b, err := cloud.ReadBlob(ctx, location)
	if err != nil {
		return nil, cfnc.IOError{Op: "Read", Path: location, Err: err}
	}
	return openBytes(location, b)
}

// readAll returns the contents of the file at a local path or blob
// storage location.
func readAll(ctx context.Context, location string) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if cloud.IsURL(location) {
		b, err = cloud.ReadBlob(ctx, location)
	} else {
		b, err = ioutil.ReadFile(location)
	}
	if err != nil {
		return nil, cfnc.IOError{Op: "Read", Path: location, Err: err}
	}
	return b, nil
}

// only returns the name of the single data variable.
func (d *decoder) only() (string, error) {
	refd := d.referenced()
	var names []string
	for _, n := range d.names {
		if !refd[n] {
			names = append(names, n)
		}
	}
	if len(names) != 1 {
		return "", fmt.Errorf("no address is given and the file has %d data variables", len(names))
	}
	return names[0], nil
}
