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

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/cfnc/internal/hash"
)

// Fragment is one cell of an aggregation's fragment grid. It is either a
// reference to an array stored elsewhere, a literal value broadcast to the
// fragment's shape, or an array held in memory.
type Fragment struct {
	// Locations are the candidate locations of the fragment file, tried in
	// order. They may contain ${name} tokens that are replaced using the
	// aggregation's substitutions, and relative paths are relative to the
	// directory of the aggregation file.
	Locations []string

	// Addresses name the variable within each candidate location. A single
	// address applies to every location.
	Addresses []string

	// Format is the format of the fragment files, such as "nc".
	Format string

	// Literal indicates that the fragment holds Value everywhere.
	Literal bool
	Value   float64

	// Array holds the fragment data in memory. When set it is used instead
	// of opening Locations.
	Array Array
}

type fragmentHit struct{ local, ordinal int }

func (f Fragment) address(i int) string {
	if i < len(f.Addresses) {
		return f.Addresses[i]
	}
	if len(f.Addresses) > 0 {
		return f.Addresses[0]
	}
	return ""
}

// FragmentOpener opens the variable at address in the file at location.
type FragmentOpener interface {
	OpenFragment(ctx context.Context, location, address, format string) (Array, io.Closer, error)
}

// Aggregated is an array assembled by concatenating a grid of fragments.
// Along each axis the fragment sizes partition the logical axis.
type Aggregated struct {
	shape     []int
	dtype     DataType
	sizes     [][]int
	starts    [][]int
	fragments []Fragment
	subs      map[string]string
	base      string
	opener    FragmentOpener
	cache     *requestcache.Cache
}

// AggregatedOption configures an Aggregated array.
type AggregatedOption func(*Aggregated)

// WithFragmentOpener sets how fragment files are opened.
func WithFragmentOpener(o FragmentOpener) AggregatedOption {
	return func(a *Aggregated) { a.opener = o }
}

// WithSubstitutions adds entries to the table used to replace ${name}
// tokens in fragment locations.
func WithSubstitutions(subs map[string]string) AggregatedOption {
	return func(a *Aggregated) {
		for k, v := range subs {
			a.subs[k] = v
		}
	}
}

// WithBaseLocation sets the location of the aggregation file, against which
// relative fragment locations are resolved.
func WithBaseLocation(loc string) AggregatedOption {
	return func(a *Aggregated) { a.base = loc }
}

// WithFragmentCache keeps up to n opened fragments in memory so that
// repeated reads do not reopen them.
func WithFragmentCache(n int) AggregatedOption {
	return func(a *Aggregated) {
		if n <= 0 {
			a.cache = nil
			return
		}
		a.cache = requestcache.NewCache(a.loadFragment, 1, requestcache.Deduplicate(), requestcache.Memory(n))
	}
}

// NewAggregated returns an aggregated array. sizes holds the fragment
// sizes along each axis, and fragments the fragment grid in row-major order.
func NewAggregated(dtype DataType, shape []int, sizes [][]int, fragments []Fragment, opts ...AggregatedOption) (*Aggregated, error) {
	const op = "NewAggregated"
	if !dtype.Valid() {
		return nil, validationf(op, "unsupported data type %v", dtype)
	}
	if len(sizes) != len(shape) {
		return nil, validationf(op, "%d fragment size lists given for %d axes", len(sizes), len(shape))
	}
	a := &Aggregated{
		shape: append([]int{}, shape...),
		dtype: dtype,
		subs:  make(map[string]string),
	}
	n := 1
	for ax, s := range sizes {
		start := make([]int, len(s)+1)
		for k, v := range s {
			if v <= 0 {
				return nil, validationf(op, "fragment %d on axis %d has size %d", k, ax, v)
			}
			start[k+1] = start[k] + v
		}
		if start[len(s)] != shape[ax] {
			return nil, validationf(op, "fragment sizes on axis %d sum to %d, want %d", ax, start[len(s)], shape[ax])
		}
		a.sizes = append(a.sizes, append([]int{}, s...))
		a.starts = append(a.starts, start)
		n *= len(s)
	}
	if len(fragments) != n {
		return nil, validationf(op, "%d fragments given for a grid of %d", len(fragments), n)
	}
	for i, f := range fragments {
		switch {
		case f.Literal:
		case len(f.Locations) > 0:
			if len(f.Addresses) > 1 && len(f.Addresses) != len(f.Locations) {
				return nil, validationf(op, "fragment %d has %d locations but %d addresses", i, len(f.Locations), len(f.Addresses))
			}
		case f.Array != nil:
		default:
			return nil, validationf(op, "fragment %d has no location, value or data", i)
		}
	}
	a.fragments = append([]Fragment{}, fragments...)
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *Aggregated) compressed()                      {}
func (a *Aggregated) CompressionType() CompressionType { return AggregatedType }
func (a *Aggregated) Shape() []int                     { return append([]int{}, a.shape...) }
func (a *Aggregated) DataType() DataType               { return a.dtype }

// CompressedDimensions returns an empty map: the aggregation variable
// itself has no dimensions.
func (a *Aggregated) CompressedDimensions() (map[int][]int, error) {
	if a.fragments == nil {
		return nil, ConfigurationError{Op: "Aggregated.CompressedDimensions", Msg: "array has not been built"}
	}
	return map[int][]int{}, nil
}

// FragmentSizes returns the fragment sizes along each axis.
func (a *Aggregated) FragmentSizes() [][]int {
	o := make([][]int, len(a.sizes))
	for i, s := range a.sizes {
		o[i] = append([]int{}, s...)
	}
	return o
}

// Fragments returns the fragment grid in row-major order.
func (a *Aggregated) Fragments() []Fragment { return append([]Fragment{}, a.fragments...) }

// Substitutions returns a copy of the location substitution table.
func (a *Aggregated) Substitutions() map[string]string {
	o := make(map[string]string, len(a.subs))
	for k, v := range a.subs {
		o[k] = v
	}
	return o
}

// Substitute returns a copy of a whose substitution table also holds subs,
// replacing existing entries with the same name.
func (a *Aggregated) Substitute(subs map[string]string) *Aggregated {
	o := *a
	o.subs = a.Substitutions()
	for k, v := range subs {
		o.subs[k] = v
	}
	if a.cache != nil {
		// Resolved locations may change.
		o.cache = requestcache.NewCache(o.loadFragment, 1, requestcache.Deduplicate(), requestcache.Memory(len(a.fragments)))
	}
	return &o
}

// resolve applies the substitution table to loc and makes relative paths
// relative to the aggregation file.
func (a *Aggregated) resolve(loc string) string {
	keys := make([]string, 0, len(a.subs))
	for k := range a.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		loc = strings.Replace(loc, "${"+k+"}", a.subs[k], -1)
	}
	if strings.Contains(loc, "://") || filepath.IsAbs(loc) || a.base == "" {
		return loc
	}
	return filepath.Join(filepath.Dir(a.base), loc)
}

// Filenames returns the resolved candidate locations of every fragment that
// is not held in memory.
func (a *Aggregated) Filenames() []string {
	m := make(map[string]bool)
	for _, f := range a.fragments {
		if f.Array != nil {
			for _, l := range f.Array.Filenames() {
				m[l] = true
			}
			continue
		}
		for _, l := range f.Locations {
			m[a.resolve(l)] = true
		}
	}
	var o []string
	for l := range m {
		o = append(o, l)
	}
	sort.Strings(o)
	return o
}

type fragmentRequest struct {
	Location, Address, Format string
}

// loadFragment opens a fragment and reads it into memory.
func (a *Aggregated) loadFragment(ctx context.Context, payload interface{}) (interface{}, error) {
	r := payload.(fragmentRequest)
	arr, c, err := a.opener.OpenFragment(ctx, r.Location, r.Address, r.Format)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return arr.ToMemory()
}

// open returns the array of fragment f and a function that releases it.
func (a *Aggregated) open(ctx context.Context, f Fragment, shape []int) (Array, func() error, error) {
	noop := func() error { return nil }
	switch {
	case f.Literal:
		v := make([]float64, product(shape))
		for i := range v {
			v[i] = f.Value
		}
		return NewDense(a.dtype, shape, v), noop, nil
	case f.Array != nil:
		return f.Array, noop, nil
	}
	if a.opener == nil {
		return nil, nil, IOError{Op: "open fragment", Path: f.Locations[0], Err: fmt.Errorf("no fragment opener is configured")}
	}
	var attempts []string
	for i, l := range f.Locations {
		loc := a.resolve(l)
		if a.cache != nil {
			req := fragmentRequest{Location: loc, Address: f.address(i), Format: f.Format}
			res, err := a.cache.NewRequest(ctx, req, hash.Hash(req)).Result()
			if err == nil {
				return res.(Array), noop, nil
			}
			attempts = append(attempts, fmt.Sprintf("%s: %v", loc, err))
			continue
		}
		arr, c, err := a.opener.OpenFragment(ctx, loc, f.address(i), f.Format)
		if err == nil {
			return arr, c.Close, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", loc, err))
	}
	return nil, nil, IOError{
		Op:   "open fragment",
		Path: strings.Join(f.Locations, ", "),
		Err:  fmt.Errorf("no candidate location could be opened: %s", strings.Join(attempts, "; ")),
	}
}

// conform checks that fragment array arr has the shape of its grid cell,
// allowing size-1 axes to be absent.
func conform(arr Array, shape []int, k int) (Array, error) {
	got := arr.Shape()
	if equalInts(got, shape) {
		return arr, nil
	}
	if equalInts(squeeze(got), squeeze(shape)) {
		return Reshape(arr, shape...)
	}
	return nil, validationf("Aggregated.Read", "fragment %d has shape %v, want %v", k, got, shape)
}

func squeeze(s []int) []int {
	var o []int
	for _, v := range s {
		if v != 1 {
			o = append(o, v)
		}
	}
	return o
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}

// Read reads the selected elements. It is equivalent to ReadContext with
// context.TODO().
func (a *Aggregated) Read(index ...AxisIndex) (*Masked, error) {
	return a.ReadContext(context.TODO(), index...)
}

// ReadContext reads the selected elements, opening only the fragments that
// hold them.
func (a *Aggregated) ReadContext(ctx context.Context, index ...AxisIndex) (*Masked, error) {
	const op = "Aggregated.Read"
	if a.fragments == nil {
		return nil, ConfigurationError{Op: op, Msg: "array has not been built"}
	}
	sel, err := selectIndex(op, a.shape, index)
	if err != nil {
		return nil, err
	}
	out := NewMasked(a.dtype, sel.shape()...)
	if sel.size() == 0 {
		return out, nil
	}
	rank := len(a.shape)

	// For each axis, group the selected positions by fragment.
	groups := make([]map[int][]fragmentHit, rank)
	frags := make([][]int, rank)
	for ax, pos := range sel.pos {
		groups[ax] = make(map[int][]fragmentHit)
		for ord, p := range pos {
			k := sort.SearchInts(a.starts[ax], p+1) - 1
			if _, ok := groups[ax][k]; !ok {
				frags[ax] = append(frags[ax], k)
			}
			groups[ax][k] = append(groups[ax][k], fragmentHit{local: p - a.starts[ax][k], ordinal: ord})
		}
	}
	ost := make([]int, rank)
	n := 1
	for ax := rank - 1; ax >= 0; ax-- {
		ost[ax] = n
		if !sel.drop[ax] {
			n *= len(sel.pos[ax])
		}
	}
	gst := make([]int, rank)
	n = 1
	for ax := rank - 1; ax >= 0; ax-- {
		gst[ax] = n
		n *= len(a.sizes[ax])
	}

	c := make([]int, rank)
	for {
		k := 0
		cell := make([]int, rank)
		local := make([][]int, rank)
		for ax := range c {
			fk := frags[ax][c[ax]]
			k += fk * gst[ax]
			cell[ax] = a.sizes[ax][fk]
			for _, h := range groups[ax][fk] {
				local[ax] = append(local[ax], h.local)
			}
		}
		if err := a.readFragment(ctx, k, cell, local, func(bst []int, block *Masked) {
			a.scatter(out, block, bst, c, frags, groups, ost, sel.drop)
		}); err != nil {
			return nil, err
		}
		ax := rank - 1
		for ; ax >= 0; ax-- {
			c[ax]++
			if c[ax] < len(frags[ax]) {
				break
			}
			c[ax] = 0
		}
		if ax < 0 {
			break
		}
	}
	return out, nil
}

func (a *Aggregated) readFragment(ctx context.Context, k int, cell []int, local [][]int, use func([]int, *Masked)) error {
	f := a.fragments[k]
	arr, release, err := a.open(ctx, f, cell)
	if err != nil {
		return err
	}
	defer release()
	if arr, err = conform(arr, cell, k); err != nil {
		return err
	}
	block, err := arr.Read(picks(local)...)
	if err != nil {
		return fmt.Errorf("cfnc: reading fragment %d: %w", k, err)
	}
	use(strides(block.Shape), block)
	return nil
}

// scatter copies a fragment block into the output.
func (a *Aggregated) scatter(out, block *Masked, bst, c []int, frags [][]int, groups []map[int][]fragmentHit, ost []int, drop []bool) {
	rank := len(c)
	hits := make([][]fragmentHit, rank)
	for ax := range c {
		hits[ax] = groups[ax][frags[ax][c[ax]]]
	}
	idx := make([]int, rank)
	for {
		o, j := 0, 0
		for ax := range idx {
			h := hits[ax][idx[ax]]
			if !drop[ax] {
				o += h.ordinal * ost[ax]
			}
			j += idx[ax] * bst[ax]
		}
		out.copyFrom(o, block, j)
		ax := rank - 1
		for ; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < len(hits[ax]) {
				break
			}
			idx[ax] = 0
		}
		if ax < 0 {
			return
		}
	}
}

// ToMemory reads every fragment into memory. Fragment locations are kept
// so that the array can still be written as an aggregation.
func (a *Aggregated) ToMemory() (Array, error) {
	o := *a
	o.fragments = make([]Fragment, len(a.fragments))
	o.cache = nil
	c := make([]int, len(a.shape))
	for k, f := range a.fragments {
		rem := k
		for ax := len(a.sizes) - 1; ax >= 0; ax-- {
			c[ax] = rem % len(a.sizes[ax])
			rem /= len(a.sizes[ax])
		}
		cell := make([]int, len(c))
		for ax := range c {
			cell[ax] = a.sizes[ax][c[ax]]
		}
		if f.Literal {
			o.fragments[k] = f
			continue
		}
		arr, release, err := a.open(context.TODO(), f, cell)
		if err != nil {
			return nil, err
		}
		m, err := arr.ToMemory()
		release()
		if err != nil {
			return nil, err
		}
		if m, err = conform(m, cell, k); err != nil {
			return nil, err
		}
		f.Array = m
		o.fragments[k] = f
	}
	return &o, nil
}
