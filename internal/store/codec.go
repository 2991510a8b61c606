package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jmylchreest/sitescript/internal/model"
)

// DeserializationError reports a persisted snapshot that exists but cannot
// be parsed. Callers treat it as an empty store.
type DeserializationError struct {
	Source string // path or key of the snapshot
	Err    error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to decode script store from %s: %v", e.Source, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// SerializationError reports a store that cannot be encoded for persistence.
// Nothing is written when it occurs.
type SerializationError struct {
	Host string
	Name string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("failed to encode script store (host %q, script %q): %v", e.Host, e.Name, e.Err)
	}
	return fmt.Sprintf("failed to encode script store: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

var (
	errInvalidUTF8 = storeError("not valid UTF-8")
	errEmptyHost   = storeError("empty host key")
	errNullStore   = storeError("snapshot is null")
)

// Encode serializes the full store as a JSON object of objects, the format
// the extension has always used.
func Encode(s model.ScriptStore) ([]byte, error) {
	for host, hs := range s {
		if host == "" && len(hs) > 0 {
			return nil, &SerializationError{Err: errEmptyHost}
		}
		if !utf8.ValidString(host) {
			return nil, &SerializationError{Host: host, Err: errInvalidUTF8}
		}
		for name, src := range hs {
			if !utf8.ValidString(name) || !utf8.ValidString(src) {
				return nil, &SerializationError{Host: host, Name: name, Err: errInvalidUTF8}
			}
		}
	}

	// Hosts without scripts are not worth persisting.
	out := make(map[string]map[string]string, len(s))
	for host, hs := range s {
		if host == "" || len(hs) == 0 {
			continue
		}
		out[host] = hs
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode. Anything other than a
// two-level mapping of strings is rejected. Empty host keys and hosts
// without scripts are dropped.
func Decode(data []byte) (model.ScriptStore, error) {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNullStore
	}

	// Keys are normalized the way DeriveHost normalizes page hosts, so
	// snapshots written with mixed-case hosts stay reachable. Keys are
	// visited in order so colliding names resolve the same way every time.
	s := make(model.ScriptStore, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		hs := raw[key]
		host := normalizeHostKey(key)
		if host == "" || len(hs) == 0 {
			continue
		}
		if s[host] == nil {
			s[host] = make(model.HostScripts, len(hs))
		}
		maps.Copy(s[host], hs)
	}
	return s, nil
}

// normalizeHostKey lower-cases a stored host key. Keys that do not parse
// as a host are only lower-cased so their scripts are not dropped.
func normalizeHostKey(key string) string {
	if host, ok := model.ResolveHost(key); ok {
		return host
	}
	return strings.ToLower(strings.TrimSpace(key))
}
