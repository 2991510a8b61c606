package input

import (
	"context"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sitescript/internal/model"
)

// EntriesAdapter reads a list of entries as produced by
// `sitescript list -f json` or `-f yaml`.
type EntriesAdapter struct {
	data []byte
	yaml bool
}

// Name returns the adapter identifier.
func (a *EntriesAdapter) Name() string {
	if a.yaml {
		return FormatYAML
	}
	return FormatJSON
}

// Import parses the entry list. Entries without a usable host or name
// are skipped.
func (a *EntriesAdapter) Import(ctx context.Context) (model.ScriptStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []model.Entry
	var err error
	if a.yaml {
		err = yaml.Unmarshal(a.data, &entries)
	} else if len(a.data) > 0 {
		err = json.Unmarshal(a.data, &entries)
	}
	if err != nil {
		return nil, &AdapterError{
			Source:  a.Name(),
			Message: "failed to parse entries",
			Err:     err,
		}
	}

	out := model.NewScriptStore()
	for _, e := range entries {
		putEntry(out, e)
	}
	return out, nil
}

// putEntry adds e to s in place after normalizing its host and name,
// ignoring invalid entries. s is a store being built, never a shared one.
func putEntry(s model.ScriptStore, e model.Entry) {
	host, ok := model.ResolveHost(e.Host)
	if !ok {
		return
	}
	name, err := model.ValidateName(e.Name)
	if err != nil {
		return
	}
	if s[host] == nil {
		s[host] = model.HostScripts{}
	}
	s[host][name] = e.Source
}
