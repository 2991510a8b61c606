package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupByIndex(t *testing.T) {
	entries := testEntries()

	t.Run("valid index 1", func(t *testing.T) {
		result := LookupByIndex(entries, 1)
		assert.NotNil(t, result)
		assert.Equal(t, "title", result.Name)
	})

	t.Run("valid last index", func(t *testing.T) {
		result := LookupByIndex(entries, 4)
		assert.NotNil(t, result)
		assert.Equal(t, "log", result.Name)
	})

	t.Run("index 0", func(t *testing.T) {
		assert.Nil(t, LookupByIndex(entries, 0))
	})

	t.Run("out of bounds", func(t *testing.T) {
		assert.Nil(t, LookupByIndex(entries, 5))
	})

	t.Run("empty slice", func(t *testing.T) {
		assert.Nil(t, LookupByIndex(nil, 1))
	})
}

func TestSearch(t *testing.T) {
	entries := testEntries()

	t.Run("empty term returns all", func(t *testing.T) {
		assert.Len(t, Search(entries, ""), 4)
	})

	t.Run("matches name", func(t *testing.T) {
		result := Search(entries, "GREET")
		assert.Len(t, result, 1)
		assert.Equal(t, "sub.example.com", result[0].Host)
	})

	t.Run("matches source", func(t *testing.T) {
		assert.Len(t, Search(entries, "location"), 1)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Search(entries, "nothing here"))
	})
}
