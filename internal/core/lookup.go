package core

import (
	"strings"

	"github.com/jmylchreest/sitescript/internal/model"
)

// LookupByIndex finds an entry by its 1-based index.
// Returns nil if index is out of bounds.
func LookupByIndex(entries []model.Entry, index int) *model.Entry {
	idx := index - 1
	if idx < 0 || idx >= len(entries) {
		return nil
	}
	return &entries[idx]
}

// Search finds entries whose name or source contains term.
// Case-insensitive substring match.
func Search(entries []model.Entry, term string) []model.Entry {
	if term == "" {
		return entries
	}

	term = strings.ToLower(term)
	var result []model.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), term) ||
			strings.Contains(strings.ToLower(e.Source), term) {
			result = append(result, e)
		}
	}
	return result
}
