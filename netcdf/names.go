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
	"unicode"
)

// names allocates netCDF names. Dimensions and variables share one
// namespace.
type names struct {
	taken map[string]bool
	// sizes holds the sizes of fixed-size dimensions.
	sizes map[string]int
}

func newNames() *names {
	return &names{taken: make(map[string]bool), sizes: make(map[string]int)}
}

// allocate returns a free name based on candidate. If size is not
// negative and candidate, or one of its numbered variants, names a
// dimension of that size, that name is returned and reused is true.
func (n *names) allocate(candidate string, size int) (name string, reused bool) {
	base := sanitize(candidate)
	name = base
	for i := 1; ; i++ {
		if s, ok := n.sizes[name]; ok && size >= 0 && s == size {
			return name, true
		}
		if !n.taken[name] {
			return name, false
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// dimension records that name is a dimension.
func (n *names) dimension(name string, size int, unlimited bool) {
	n.taken[name] = true
	if !unlimited {
		n.sizes[name] = size
	}
}

// variable records that name is a variable.
func (n *names) variable(name string) { n.taken[name] = true }

// sanitize replaces characters that are not allowed in netCDF names.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "var"
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || r == '_'):
			b.WriteRune(r)
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		case i > 0 && strings.ContainsRune(".-+@", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
