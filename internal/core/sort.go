package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jmylchreest/sitescript/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByHost  SortField = "host"
	SortByName  SortField = "name"
	SortByLines SortField = "lines"
	SortBySize  SortField = "size"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns host then name, ascending.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByHost,
		Order: SortAsc,
	}
}

// Sort sorts entries in place. Ties fall back to host then name.
func Sort(entries []model.Entry, opts SortOptions) {
	slices.SortStableFunc(entries, func(a, b model.Entry) int {
		var c int
		switch opts.Field {
		case SortByName:
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByLines:
			c = cmp.Compare(a.Lines(), b.Lines())
		case SortBySize:
			c = cmp.Compare(len(a.Source), len(b.Source))
		}
		if c == 0 {
			c = cmp.Or(cmp.Compare(a.Host, b.Host), cmp.Compare(a.Name, b.Name))
		}
		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

// ParseSortField parses a sort field string. Unknown values sort by host.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "n":
		return SortByName
	case "lines", "l":
		return SortByLines
	case "size", "length", "s":
		return SortBySize
	default:
		return SortByHost
	}
}

// ParseSortOrder parses a sort order string. Unknown values sort ascending.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending", "d":
		return SortDesc
	default:
		return SortAsc
	}
}
