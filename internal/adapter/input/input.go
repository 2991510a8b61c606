// Package input provides input adapters for importing scripts.
package input

import (
	"bytes"
	"context"
	"io"

	"github.com/jmylchreest/sitescript/internal/model"
)

// InputAdapter reads scripts from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "snapshot", "yaml").
	Name() string

	// Import reads scripts from the source.
	// Returns the scripts and any error encountered.
	Import(ctx context.Context) (model.ScriptStore, error)
}

// maxInputSize bounds how much is read from a single source.
const maxInputSize = 10 * 1024 * 1024

// Formats accepted by NewAdapter.
const (
	FormatAuto     = "auto"
	FormatSnapshot = "snapshot"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// DetectFormat guesses the format of data.
// A JSON object is a snapshot, a JSON array is an entry list, anything
// else is treated as YAML.
func DetectFormat(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatSnapshot
	case bytes.HasPrefix(trimmed, []byte("[")):
		return FormatJSON
	default:
		return FormatYAML
	}
}

// NewAdapter creates an InputAdapter reading format from r.
// If format is empty or "auto", the format is detected from the content.
func NewAdapter(format string, r io.Reader) (InputAdapter, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, &AdapterError{Source: format, Message: "failed to read input", Err: err}
	}

	if format == "" || format == FormatAuto {
		format = DetectFormat(data)
	}

	switch format {
	case FormatSnapshot:
		return &SnapshotAdapter{data: data}, nil
	case FormatJSON:
		return &EntriesAdapter{data: data, yaml: false}, nil
	case FormatYAML:
		return &EntriesAdapter{data: data, yaml: true}, nil
	default:
		return nil, &AdapterError{
			Source:  format,
			Message: "unknown input format",
		}
	}
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInputSize {
		return nil, io.ErrShortBuffer
	}
	return data, nil
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
