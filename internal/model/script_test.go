package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptStore_ScriptsEmpty(t *testing.T) {
	s := NewScriptStore()

	scripts := s.Scripts("example.com")
	assert.NotNil(t, scripts)
	assert.Empty(t, scripts)

	// Empty host never matches anything
	assert.Empty(t, s.Scripts(""))
}

func TestScriptStore_PutDistinctNames(t *testing.T) {
	s := NewScriptStore()

	s, err := s.Put("example.com", "one", "alert(1)")
	require.NoError(t, err)
	s, err = s.Put("example.com", "two", "alert(2)")
	require.NoError(t, err)

	assert.Equal(t, HostScripts{"one": "alert(1)", "two": "alert(2)"}, s.Scripts("example.com"))
}

func TestScriptStore_PutOverwrites(t *testing.T) {
	s := NewScriptStore()

	s, err := s.Put("example.com", "greet", "alert('a')")
	require.NoError(t, err)
	s, err = s.Put("example.com", "greet", "alert('b')")
	require.NoError(t, err)

	scripts := s.Scripts("example.com")
	assert.Len(t, scripts, 1)
	assert.Equal(t, "alert('b')", scripts["greet"])
}

func TestScriptStore_PutDoesNotMutateReceiver(t *testing.T) {
	orig, err := NewScriptStore().Put("example.com", "a", "1")
	require.NoError(t, err)

	next, err := orig.Put("example.com", "b", "2")
	require.NoError(t, err)

	assert.Len(t, orig.Scripts("example.com"), 1)
	assert.Len(t, next.Scripts("example.com"), 2)
}

func TestScriptStore_PutErrors(t *testing.T) {
	s := NewScriptStore()

	tests := []struct {
		name    string
		host    string
		script  string
		wantErr error
	}{
		{"no host", "", "greet", ErrNoHost},
		{"empty name", "example.com", "", ErrEmptyName},
		{"whitespace name", "example.com", "   ", ErrEmptyName},
		{"long name", "example.com", strings.Repeat("x", MaxNameLength+1), ErrNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Put(tt.host, tt.script, "src")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, out.Count())
		})
	}
}

func TestScriptStore_PutTrimsName(t *testing.T) {
	s, err := NewScriptStore().Put("example.com", "  greet  ", "x")
	require.NoError(t, err)

	src, ok := s.Lookup("example.com", "greet")
	assert.True(t, ok)
	assert.Equal(t, "x", src)
}

func TestScriptStore_ScriptsReturnsCopy(t *testing.T) {
	s, err := NewScriptStore().Put("example.com", "a", "1")
	require.NoError(t, err)

	scripts := s.Scripts("example.com")
	scripts["b"] = "2"

	assert.Len(t, s.Scripts("example.com"), 1)
}

func TestScriptStore_Delete(t *testing.T) {
	s := ScriptStore{
		"example.com": {"a": "1", "b": "2"},
		"other.org":   {"c": "3"},
	}

	t.Run("existing name", func(t *testing.T) {
		out, removed := s.Delete("example.com", "a")
		assert.True(t, removed)
		assert.Equal(t, HostScripts{"b": "2"}, out.Scripts("example.com"))
		// Receiver untouched
		assert.Len(t, s.Scripts("example.com"), 2)
	})

	t.Run("last script drops host", func(t *testing.T) {
		out, removed := s.Delete("other.org", "c")
		assert.True(t, removed)
		assert.Equal(t, []string{"example.com"}, out.Hosts())
	})

	t.Run("missing name", func(t *testing.T) {
		out, removed := s.Delete("example.com", "zzz")
		assert.False(t, removed)
		assert.True(t, out.Equal(s))
	})
}

func TestScriptStore_HostsAndNames(t *testing.T) {
	s := ScriptStore{
		"b.example": {"z": "", "a": ""},
		"a.example": {"m": ""},
		"empty.org": {},
	}

	assert.Equal(t, []string{"a.example", "b.example"}, s.Hosts())
	assert.Equal(t, []string{"a", "z"}, s.Names("b.example"))
	assert.Empty(t, s.Names("unknown"))
	assert.Equal(t, 3, s.Count())
}

func TestScriptStore_Merge(t *testing.T) {
	base := ScriptStore{"example.com": {"a": "1", "b": "2"}}
	other := ScriptStore{
		"example.com": {"b": "new"},
		"other.org":   {"c": "3"},
		"":            {"ignored": "x"},
	}

	merged := base.Merge(other)
	assert.Equal(t, HostScripts{"a": "1", "b": "new"}, merged.Scripts("example.com"))
	assert.Equal(t, HostScripts{"c": "3"}, merged.Scripts("other.org"))
	assert.Equal(t, []string{"example.com", "other.org"}, merged.Hosts())

	// base unchanged
	assert.Equal(t, "2", base["example.com"]["b"])
}

func TestScriptStore_Equal(t *testing.T) {
	a := ScriptStore{"example.com": {"a": "1"}}
	b := ScriptStore{"example.com": {"a": "1"}, "empty.org": {}}
	c := ScriptStore{"example.com": {"a": "2"}}

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.True(t, NewScriptStore().Equal(nil))
}
