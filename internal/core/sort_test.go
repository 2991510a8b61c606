package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/sitescript/internal/model"
)

func names(entries []model.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestSort_Empty(t *testing.T) {
	var entries []model.Entry
	Sort(entries, DefaultSortOptions())
	assert.Len(t, entries, 0)
}

func TestSort_ByHostAsc(t *testing.T) {
	entries := testEntries()
	Sort(entries, DefaultSortOptions())
	assert.Equal(t, []string{"multi", "title", "log", "greet"}, names(entries))
}

func TestSort_ByNameDesc(t *testing.T) {
	entries := testEntries()
	Sort(entries, SortOptions{Field: SortByName, Order: SortDesc})
	assert.Equal(t, []string{"title", "multi", "log", "greet"}, names(entries))
}

func TestSort_ByLines(t *testing.T) {
	entries := testEntries()
	Sort(entries, SortOptions{Field: SortByLines, Order: SortDesc})
	assert.Equal(t, "multi", entries[0].Name)
}

func TestSort_BySize(t *testing.T) {
	entries := testEntries()
	Sort(entries, SortOptions{Field: SortBySize, Order: SortAsc})
	assert.Equal(t, "greet", entries[0].Name)
	assert.Equal(t, "multi", entries[len(entries)-1].Name)
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected SortField
	}{
		{"host", SortByHost},
		{"name", SortByName},
		{"N", SortByName},
		{"lines", SortByLines},
		{"size", SortBySize},
		{"length", SortBySize},
		{"bogus", SortByHost},
		{"", SortByHost},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSortField(tt.input))
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortDesc, ParseSortOrder("desc"))
	assert.Equal(t, SortDesc, ParseSortOrder(" Descending "))
	assert.Equal(t, SortAsc, ParseSortOrder("asc"))
	assert.Equal(t, SortAsc, ParseSortOrder("whatever"))
}
