package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/sitescript/internal/model"
)

// PlainFormatter formats entries as plain text with the full source.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes entries as plain text.
func (f *PlainFormatter) Format(w io.Writer, entries []model.Entry) error {
	for i, e := range entries {
		if err := f.formatEntry(w, i+1, e); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatEntry(w io.Writer, index int, e model.Entry) error {
	if f.template != nil {
		if err := f.template.Execute(w, templateData{Index: index, Entry: e}); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}

	if f.opts.ShowHost {
		sb.WriteString(fmt.Sprintf("<%s> ", e.Host))
	}

	sb.WriteString(e.Name)
	sb.WriteString(fmt.Sprintf(" (%d lines)\n", e.Lines()))

	for _, line := range strings.Split(strings.TrimRight(e.Source, "\n"), "\n") {
		if line == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("    " + line + "\n")
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FormatField outputs a specific field from an entry.
func FormatField(e model.Entry, field string) string {
	switch strings.ToLower(field) {
	case "host":
		return e.Host
	case "name":
		return e.Name
	case "source", "script":
		return e.Source
	case "preview":
		return e.OneLine()
	case "lines":
		return fmt.Sprintf("%d", e.Lines())
	case "all", "full":
		return fmt.Sprintf("// %s / %s\n%s", e.Host, e.Name, e.Source)
	default:
		return e.Source
	}
}
