package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/sitescript/internal/model"
)

// KeysFormatter outputs host and name separated by a tab, one per line.
// Useful for piping to other commands (e.g., sitescript get).
type KeysFormatter struct{}

// NewKeysFormatter creates a new keys formatter.
func NewKeysFormatter() *KeysFormatter {
	return &KeysFormatter{}
}

// Format writes one host/name pair per line.
func (f *KeysFormatter) Format(w io.Writer, entries []model.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", e.Host, e.Name); err != nil {
			return err
		}
	}
	return nil
}
