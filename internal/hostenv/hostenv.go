// Package hostenv reads page information handed over by the hosting browser
// and writes the script payload handed back to it.
package hostenv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Well-known keys used by the browser extension handshake.
const (
	PreprocessingResultsKey = "NSExtensionJavaScriptPreprocessingResultsKey"
	FinalizeArgumentKey     = "NSExtensionJavaScriptFinalizeArgumentKey"
	CustomJavaScriptKey     = "customJavaScript"
)

// ErrEmptyInput is returned when no page document was supplied.
var ErrEmptyInput = errors.New("empty page document")

// PageInfo is the page a session was opened for.
type PageInfo struct {
	URL   string `json:"URL"`
	Title string `json:"title"`
}

// ReadPageInfo decodes a page document. Both the bare form
// {"URL": ..., "title": ...} and the form wrapped under
// PreprocessingResultsKey are accepted. Missing fields are left empty.
func ReadPageInfo(r io.Reader) (PageInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return PageInfo{}, fmt.Errorf("read page document: %w", err)
	}
	return ParsePageInfo(data)
}

// ParsePageInfo is ReadPageInfo for an in-memory document.
func ParsePageInfo(data []byte) (PageInfo, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return PageInfo{}, ErrEmptyInput
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return PageInfo{}, fmt.Errorf("parse page document: %w", err)
	}
	if inner, ok := raw[PreprocessingResultsKey]; ok {
		data = inner
	}

	var info PageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return PageInfo{}, fmt.Errorf("parse page document: %w", err)
	}
	return info, nil
}

// FinalizePayload is returned to the page when a session completes.
type FinalizePayload struct {
	CustomJavaScript string `json:"customJavaScript"`
}

// NewFinalizePayload wraps the edited script.
func NewFinalizePayload(script string) FinalizePayload {
	return FinalizePayload{CustomJavaScript: script}
}

// Write encodes the payload as one JSON line. When wrapped is set the
// payload is nested under FinalizeArgumentKey.
func (p FinalizePayload) Write(w io.Writer, wrapped bool) error {
	var v any = p
	if wrapped {
		v = map[string]FinalizePayload{FinalizeArgumentKey: p}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
