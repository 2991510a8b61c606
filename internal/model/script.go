// Package model defines the core data structures for sitescript.
package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MaxNameLength is the longest script name accepted, in bytes.
const MaxNameLength = 128

// HostScripts maps a script name to its source text.
type HostScripts map[string]string

// ScriptStore maps a normalized website host to the scripts saved for it.
// Values are treated as immutable: Put and Delete return a new store and
// never modify the receiver.
type ScriptStore map[string]HostScripts

// Validation errors.
var (
	ErrNoHost      = errors.New("no current host")
	ErrEmptyName   = errors.New("script name cannot be empty")
	ErrNameTooLong = fmt.Errorf("script name exceeds %d bytes", MaxNameLength)
)

// NewScriptStore returns an empty store.
func NewScriptStore() ScriptStore {
	return make(ScriptStore)
}

// ValidateName trims and checks a script name. It applies to new saves
// only; names already in a decoded snapshot are kept as they are.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// Scripts returns a copy of the scripts saved for host.
// An unseen or empty host yields an empty, non-nil mapping.
func (s ScriptStore) Scripts(host string) HostScripts {
	if host == "" {
		return HostScripts{}
	}
	hs, ok := s[host]
	if !ok || hs == nil {
		return HostScripts{}
	}
	return maps.Clone(hs)
}

// Lookup returns the source saved under name for host.
func (s ScriptStore) Lookup(host, name string) (string, bool) {
	if host == "" {
		return "", false
	}
	src, ok := s[host][name]
	return src, ok
}

// Put returns a store where store[host][name] = source.
// The host entry is created if absent and an existing name is overwritten.
// On error the receiver is returned unchanged.
func (s ScriptStore) Put(host, name, source string) (ScriptStore, error) {
	if host == "" {
		return s, ErrNoHost
	}
	name, err := ValidateName(name)
	if err != nil {
		return s, err
	}

	out := s.shallowClone()
	hs := maps.Clone(s[host])
	if hs == nil {
		hs = HostScripts{}
	}
	hs[name] = source
	out[host] = hs
	return out, nil
}

// Delete returns a store without host's script called name.
// The host entry is dropped once it holds no scripts.
// The bool reports whether anything was removed.
func (s ScriptStore) Delete(host, name string) (ScriptStore, bool) {
	if _, ok := s[host][name]; !ok {
		return s, false
	}

	out := s.shallowClone()
	hs := maps.Clone(s[host])
	delete(hs, name)
	if len(hs) == 0 {
		delete(out, host)
	} else {
		out[host] = hs
	}
	return out, true
}

// Hosts returns all hosts with at least one script, sorted.
func (s ScriptStore) Hosts() []string {
	hosts := make([]string, 0, len(s))
	for h, hs := range s {
		if len(hs) > 0 {
			hosts = append(hosts, h)
		}
	}
	slices.Sort(hosts)
	return hosts
}

// Names returns the script names saved for host, sorted.
func (s ScriptStore) Names(host string) []string {
	return slices.Sorted(maps.Keys(s[host]))
}

// Count returns the total number of scripts across all hosts.
func (s ScriptStore) Count() int {
	n := 0
	for _, hs := range s {
		n += len(hs)
	}
	return n
}

// Clone creates a deep copy of the store.
func (s ScriptStore) Clone() ScriptStore {
	out := make(ScriptStore, len(s))
	for h, hs := range s {
		out[h] = maps.Clone(hs)
	}
	return out
}

// Merge returns a store containing s overlaid with other.
// Scripts in other win on name collisions.
func (s ScriptStore) Merge(other ScriptStore) ScriptStore {
	out := s.Clone()
	for h, hs := range other {
		if h == "" || len(hs) == 0 {
			continue
		}
		if out[h] == nil {
			out[h] = HostScripts{}
		}
		maps.Copy(out[h], hs)
	}
	return out
}

// Equal reports whether two stores hold the same scripts.
// Hosts with no scripts are ignored.
func (s ScriptStore) Equal(other ScriptStore) bool {
	if len(s.Hosts()) != len(other.Hosts()) {
		return false
	}
	for h, hs := range s {
		if len(hs) == 0 {
			continue
		}
		if !maps.Equal(hs, other[h]) {
			return false
		}
	}
	return true
}

func (s ScriptStore) shallowClone() ScriptStore {
	out := make(ScriptStore, len(s)+1)
	maps.Copy(out, s)
	return out
}
