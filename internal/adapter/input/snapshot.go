package input

import (
	"context"

	"github.com/jmylchreest/sitescript/internal/model"
	"github.com/jmylchreest/sitescript/internal/store"
)

// SnapshotAdapter reads a full store snapshot, the same JSON object of
// objects the file backend writes.
type SnapshotAdapter struct {
	data []byte
}

// Name returns the adapter identifier.
func (a *SnapshotAdapter) Name() string {
	return FormatSnapshot
}

// Import decodes the snapshot and normalizes its hosts.
func (a *SnapshotAdapter) Import(ctx context.Context) (model.ScriptStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(a.data) == 0 {
		return model.NewScriptStore(), nil
	}

	decoded, err := store.Decode(a.data)
	if err != nil {
		return nil, &AdapterError{
			Source:  FormatSnapshot,
			Message: "failed to parse snapshot",
			Err:     err,
		}
	}

	out := model.NewScriptStore()
	for _, e := range decoded.Entries() {
		putEntry(out, e)
	}
	return out, nil
}
