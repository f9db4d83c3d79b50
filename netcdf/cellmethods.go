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

	"github.com/spatialmodel/cfnc"
	"github.com/spatialmodel/cfnc/model"
)

// FormatCellMethods returns the cell_methods attribute for methods. name
// translates the axes of each method to netCDF names; it may be nil.
func FormatCellMethods(methods []model.CellMethod, name func(string) string) string {
	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		var b strings.Builder
		for _, ax := range m.Axes {
			if name != nil {
				ax = name(ax)
			}
			b.WriteString(ax + ": ")
		}
		b.WriteString(m.Method)
		for _, q := range []struct{ k, v string }{{"where", m.Where}, {"over", m.Over}, {"within", m.Within}} {
			if q.v != "" {
				fmt.Fprintf(&b, " %s %s", q.k, q.v)
			}
		}
		var extra []string
		for _, iv := range m.Interval {
			extra = append(extra, "interval: "+iv)
		}
		if m.Comment != "" {
			if len(extra) > 0 {
				extra = append(extra, "comment: "+m.Comment)
			} else {
				extra = append(extra, m.Comment)
			}
		}
		if len(extra) > 0 {
			b.WriteString(" (" + strings.Join(extra, " ") + ")")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}

// cellMethodTokens splits s at white space, keeping parenthesized groups
// together.
func cellMethodTokens(s string) ([]string, error) {
	var tokens []string
	for {
		s = strings.TrimSpace(s)
		if s == "" {
			return tokens, nil
		}
		if s[0] == '(' {
			end := strings.IndexByte(s, ')')
			if end < 0 {
				return nil, fmt.Errorf("unbalanced parenthesis in %q", s)
			}
			tokens = append(tokens, s[:end+1])
			s = s[end+1:]
			continue
		}
		end := strings.IndexAny(s, " \t\n(")
		if end < 0 {
			end = len(s)
		}
		tokens = append(tokens, s[:end])
		s = s[end:]
	}
}

// ParseCellMethods parses a cell_methods attribute. Axis names are
// returned as they appear in the attribute.
func ParseCellMethods(s string) ([]model.CellMethod, error) {
	tokens, err := cellMethodTokens(s)
	if err != nil {
		return nil, cfnc.ValidationError{Op: "ParseCellMethods", Msg: err.Error()}
	}
	var o []model.CellMethod
	for i := 0; i < len(tokens); {
		var m model.CellMethod
		for i < len(tokens) && strings.HasSuffix(tokens[i], ":") {
			m.Axes = append(m.Axes, strings.TrimSuffix(tokens[i], ":"))
			i++
		}
		if len(m.Axes) == 0 || i >= len(tokens) || strings.HasPrefix(tokens[i], "(") {
			return nil, cfnc.ValidationError{Op: "ParseCellMethods", Msg: fmt.Sprintf("malformed cell methods %q", s)}
		}
		m.Method = tokens[i]
		i++
	qualifiers:
		for i+1 < len(tokens) {
			switch tokens[i] {
			case "where":
				m.Where = tokens[i+1]
			case "over":
				m.Over = tokens[i+1]
			case "within":
				m.Within = tokens[i+1]
			default:
				break qualifiers
			}
			i += 2
		}
		if i < len(tokens) && strings.HasPrefix(tokens[i], "(") {
			parseCellMethodExtra(&m, strings.TrimSuffix(strings.TrimPrefix(tokens[i], "("), ")"))
			i++
		}
		o = append(o, m)
	}
	return o, nil
}

func parseCellMethodExtra(m *model.CellMethod, s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 || (fields[0] != "interval:" && fields[0] != "comment:") {
		m.Comment = strings.TrimSpace(s)
		return
	}
	var key string
	var val []string
	flush := func() {
		switch key {
		case "interval:":
			m.Interval = append(m.Interval, strings.Join(val, " "))
		case "comment:":
			m.Comment = strings.Join(val, " ")
		}
		val = nil
	}
	for _, f := range fields {
		if (f == "interval:" && key != "comment:") || f == "comment:" {
			flush()
			key = f
			continue
		}
		val = append(val, f)
	}
	flush()
}
