package model

import "strings"

// Entry is one stored script, flattened for listing.
type Entry struct {
	Host   string `json:"host" yaml:"host"`
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
}

// Entries flattens the store, ordered by host then name.
func (s ScriptStore) Entries() []Entry {
	var out []Entry
	for _, h := range s.Hosts() {
		for _, n := range s.Names(h) {
			out = append(out, Entry{Host: h, Name: n, Source: s[h][n]})
		}
	}
	return out
}

// Lines returns the number of lines in the source.
func (e Entry) Lines() int {
	if e.Source == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(e.Source, "\n"), "\n") + 1
}

// OneLine returns the source with whitespace runs collapsed to single spaces.
func (e Entry) OneLine() string {
	return strings.Join(strings.Fields(e.Source), " ")
}

// SourceTruncated returns OneLine cut to at most maxLen bytes.
func (e Entry) SourceTruncated(maxLen int) string {
	return Truncate(e.OneLine(), maxLen)
}

// Truncate shortens s to maxLen bytes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
