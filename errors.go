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

package cfnc

import "fmt"

// ConfigurationError is returned when an operation is requested before the
// information it needs is available, for example asking a compressed array
// that has not been built for its compressed dimensions.
type ConfigurationError struct {
	Op  string
	Msg string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("cfnc: %s: %s", e.Op, e.Msg)
}

// ValidationError is returned when values or structure violate an invariant:
// malformed ragged counts or indices, out-of-range list entries, fragment
// shape mismatches, unknown compression types or interpolation methods,
// out-of-range indices, or packed values colliding with the fill value.
type ValidationError struct {
	Op  string
	Msg string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cfnc: %s: %s", e.Op, e.Msg)
}

// IOError is returned when a container cannot be opened, created or written,
// when a fragment location cannot be resolved, or when a requested feature
// is not supported by the chosen file format.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cfnc: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cfnc: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e IOError) Unwrap() error { return e.Err }

// SemanticConflict is returned when the requested output cannot be
// represented faithfully, for example an aggregated dimension that is
// also declared unlimited.
type SemanticConflict struct {
	Op  string
	Msg string
}

func (e SemanticConflict) Error() string {
	return fmt.Sprintf("cfnc: %s: %s", e.Op, e.Msg)
}

func validationf(op, format string, args ...interface{}) error {
	return ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
