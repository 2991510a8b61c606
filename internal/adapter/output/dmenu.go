package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/sitescript/internal/model"
)

// DmenuFormatter formats entries for dmenu/rofi/fuzzel.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes entries in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, entries []model.Entry) error {
	for i, e := range entries {
		line := f.formatLine(i+1, e)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single entry line.
func (f *DmenuFormatter) formatLine(index int, e model.Entry) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, templateData{Index: index, Entry: e}); err == nil {
			return strings.ReplaceAll(buf.String(), "\n", " ")
		}
	}

	// Default format: [index] [host] name: source
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}

	if f.opts.ShowHost {
		parts = append(parts, e.Host)
	}

	content := e.Name
	if preview := e.SourceTruncated(f.opts.SourceMaxLen); preview != "" {
		content += ": " + preview
	}
	parts = append(parts, content)

	return strings.Join(parts, sep)
}

// templateData provides data for custom templates.
// Entry fields and methods are promoted, so {{.Name}} and
// {{.SourceTruncated 40}} work directly.
type templateData struct {
	Index int
	model.Entry
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": model.Truncate,
		"oneline": func(s string) string {
			return strings.Join(strings.Fields(s), " ")
		},
		"upper": strings.ToUpper,
	}
}
