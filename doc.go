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

/*
Package cfnc implements the array layer of a codec between the CF (Climate
and Forecast) data model and netCDF files.

Every array, whether it is read from a file or authored in memory, is
presented in its logical, uncompressed shape through the Array interface and
is read lazily with orthogonal indices. The compact encodings defined by the
CF conventions (contiguous and indexed ragged arrays, compression by
gathering, coordinate subsampling, and aggregation of fragments stored in
other files) and sparse arrays are implemented by the types that satisfy
Compressed, and are decoded on read.

Subpackage model holds the CF constructs, and subpackage netcdf reads
and writes them.
*/
package cfnc

// Version gives the version number.
const Version = "0.1.0"
