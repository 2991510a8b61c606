// Package core provides filtering, sorting, and lookup logic for script entries.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/sitescript/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // host, name, source, lines, size
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex  *regexp.Regexp // Compiled regex for ~= operator
	intVal int            // Parsed value for numeric fields
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies simple criteria for filtering entries.
type FilterOptions struct {
	Host   string // Exact match on host (empty = any)
	Search string // Case-insensitive substring of name or source
	Limit  int    // Maximum results (0 = unlimited)
}

// Filter filters entries based on the provided options.
func Filter(entries []model.Entry, opts FilterOptions) []model.Entry {
	result := make([]model.Entry, 0, len(entries))

	for _, e := range entries {
		if opts.Host != "" && e.Host != opts.Host {
			continue
		}
		result = append(result, e)
	}

	result = Search(result, opts.Search)

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
//
// Supported fields: host, name, source, lines, size
// Supported operators: = != ~ ~= > < >= <=
//
// Examples:
//   - "host=example.com"
//   - "name~title"
//   - "source~=(?i)alert\("
//   - "lines>10,host~example"
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "host=example.com".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx <= 0 {
			continue
		}
		cond := FilterCondition{
			Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
			Operator: op,
			Value:    strings.TrimSpace(s[idx+len(op):]),
		}
		if err := cond.init(); err != nil {
			return FilterCondition{}, err
		}
		return cond, nil
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init normalizes the field and pre-parses the value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "host", "site", "domain":
		c.Field = "host"
	case "name":
	case "source", "script", "src":
		c.Field = "source"
	case "lines", "size", "len", "length":
		if c.Field != "lines" {
			c.Field = "size"
		}
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: must be an integer", c.Field, c.Value)
		}
		c.intVal = n
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	switch c.Field {
	case "lines", "size":
		if c.Operator == FilterOpContains || c.Operator == FilterOpRegex {
			return fmt.Errorf("operator %s not supported for %s", c.Operator, c.Field)
		}
	default:
		switch c.Operator {
		case FilterOpGreater, FilterOpLess, FilterOpGreaterEq, FilterOpLessEq:
			return fmt.Errorf("operator %s not supported for %s", c.Operator, c.Field)
		}
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}
	return nil
}

// Match tests if an entry matches every condition.
func (f *FilterExpr) Match(e model.Entry) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(e) {
			return false
		}
	}
	return true
}

// Match tests if an entry matches this single condition.
func (c *FilterCondition) Match(e model.Entry) bool {
	switch c.Field {
	case "host":
		return c.matchString(e.Host)
	case "name":
		return c.matchString(e.Name)
	case "source":
		return c.matchString(e.Source)
	case "lines":
		return c.matchInt(e.Lines())
	case "size":
		return c.matchInt(len(e.Source))
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

func (c *FilterCondition) matchInt(fieldValue int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.intVal
	case FilterOpNotEqual:
		return fieldValue != c.intVal
	case FilterOpGreater:
		return fieldValue > c.intVal
	case FilterOpLess:
		return fieldValue < c.intVal
	case FilterOpGreaterEq:
		return fieldValue >= c.intVal
	case FilterOpLessEq:
		return fieldValue <= c.intVal
	default:
		return false
	}
}

// FilterWithExpr filters entries using a filter expression.
func FilterWithExpr(entries []model.Entry, expr *FilterExpr) []model.Entry {
	if expr == nil || len(expr.Conditions) == 0 {
		return entries
	}

	result := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if expr.Match(e) {
			result = append(result, e)
		}
	}
	return result
}
