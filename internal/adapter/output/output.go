// Package output provides output formatters for stored scripts.
package output

import (
	"io"

	"github.com/jmylchreest/sitescript/internal/model"
)

// Formatter formats script entries for output.
type Formatter interface {
	// Format writes formatted entries to the writer.
	Format(w io.Writer, entries []model.Entry) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatDmenu FormatType = "dmenu"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
	FormatKeys  FormatType = "keys"
)

// FormatTypes lists every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatDmenu, FormatPlain, FormatJSON, FormatYAML, FormatKeys}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		return NewPlainFormatter(opts)
	case FormatKeys:
		return NewKeysFormatter()
	case FormatDmenu:
		fallthrough
	default:
		return NewDmenuFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template     string // Custom template for dmenu/plain format
	ShowIndex    bool   // Show 1-based index prefix
	ShowHost     bool   // Show the host column
	SourceMaxLen int    // Maximum source preview length (0 = unlimited)
	Separator    string // Field separator for dmenu format
}

// DefaultFormatterOptions returns sensible defaults for dmenu output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:    true,
		ShowHost:     true,
		SourceMaxLen: 80,
		Separator:    " | ",
	}
}
