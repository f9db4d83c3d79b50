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
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spatialmodel/cfnc/model"
)

// auxBuffer is an auxiliary variable of a compression encoding, such as a
// ragged count or a gathered list.
type auxBuffer struct {
	Kind   string
	Values []float64
	Attrs  map[string]string
}

type seenEntry struct {
	item interface{}
	name string
	dims []string
}

type aliasKey struct {
	item interface{}
	dims string
}

// seen records the constructs and auxiliary buffers that have been written
// in one session, so that equal ones are written only once.
type seen struct {
	equal   Equaler
	entries []seenEntry
	alias   map[aliasKey]int
}

func newSeen(e Equaler) *seen {
	return &seen{equal: e, alias: make(map[aliasKey]int)}
}

func dimsKey(dims []string) string {
	if dims == nil {
		return "\x00"
	}
	return strings.Join(dims, " ")
}

func hashable(item interface{}) bool {
	t := reflect.TypeOf(item)
	return t != nil && t.Comparable()
}

// alreadyWritten returns the name of a variable already written for an
// item equal to item. If dims is not nil, only variables with those
// dimensions are eligible.
func (s *seen) alreadyWritten(item interface{}, dims []string, ignoreType bool) (string, bool) {
	return s.lookup(item, dims, ignoreType, nil)
}

// lookup is alreadyWritten with an additional test that entries must pass.
func (s *seen) lookup(item interface{}, dims []string, ignoreType bool, eligible func(seenEntry) bool) (string, bool) {
	key := aliasKey{dims: dimsKey(dims)}
	if hashable(item) {
		key.item = item
		if i, ok := s.alias[key]; ok && (eligible == nil || eligible(s.entries[i])) {
			return s.entries[i].name, true
		}
	}
	for i, e := range s.entries {
		if dims != nil && !equalStrings(e.dims, dims) {
			continue
		}
		if eligible != nil && !eligible(e) {
			continue
		}
		if !s.same(item, e.item, ignoreType) {
			continue
		}
		if key.item != nil {
			s.alias[key] = i
		}
		return e.name, true
	}
	return "", false
}

func (s *seen) same(a, b interface{}, ignoreType bool) bool {
	switch x := a.(type) {
	case model.Construct:
		y, ok := b.(model.Construct)
		return ok && s.equal(x, y, ignoreType)
	case *auxBuffer:
		y, ok := b.(*auxBuffer)
		return ok && cmp.Equal(x, y)
	}
	return false
}

// register records that item was written as variable name with the given
// dimensions.
func (s *seen) register(item interface{}, name string, dims []string) {
	s.entries = append(s.entries, seenEntry{item: item, name: name, dims: append([]string{}, dims...)})
	if hashable(item) {
		s.alias[aliasKey{item: item, dims: dimsKey(dims)}] = len(s.entries) - 1
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
