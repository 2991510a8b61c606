// Package store provides durable, host-partitioned storage of named scripts.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/sitescript/internal/model"
)

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeLoad indicates the store was (re)loaded from persistence.
	ChangeTypeLoad ChangeType = iota
	// ChangeTypePut indicates a script was saved.
	ChangeTypePut
	// ChangeTypeDelete indicates a script was removed.
	ChangeTypeDelete
	// ChangeTypeReplace indicates the whole store was replaced.
	ChangeTypeReplace
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type ChangeType
	Host string
	Name string
}

// pendingEdit is a mutation made since the last successful save.
// Pending edits are replayed on top of a reloaded snapshot so that a
// reload triggered by another process does not drop unsaved work.
type pendingEdit struct {
	host   string
	name   string
	source string
	delete bool
}

// Store manages the script store with thread-safe operations.
// Mutations stay in memory until Flush or Save writes a full snapshot.
type Store struct {
	mu      sync.RWMutex
	scripts model.ScriptStore
	pending []pendingEdit
	loaded  bool

	persistence Persistence
	logger      *slog.Logger

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates a new Store.
// If persistence is nil the store lives in memory only.
func NewStore(persistence Persistence, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		scripts:     model.NewScriptStore(),
		persistence: persistence,
		logger:      logger,
		subscribers: make([]chan ChangeEvent, 0),
	}
}

// Load reads the persisted snapshot into memory and returns a copy of it.
//
// A missing snapshot yields an empty store. A snapshot that cannot be
// decoded also yields an empty store, but the returned error is a
// *DeserializationError so callers can report it; the Store stays usable.
// Other errors (I/O, closed) leave the in-memory state untouched.
// Unsaved edits are replayed on top of whatever was loaded.
func (s *Store) Load(ctx context.Context) (model.ScriptStore, error) {
	base, loadErr := s.read(ctx)

	var decodeErr *DeserializationError
	if loadErr != nil && !errors.As(loadErr, &decodeErr) {
		return nil, loadErr
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	for _, e := range s.pending {
		base = e.apply(base)
	}
	s.scripts = base
	s.loaded = true
	out := s.scripts.Clone()
	s.notifyChange(ChangeEvent{Type: ChangeTypeLoad})
	s.mu.Unlock()

	if decodeErr != nil {
		s.logger.Warn("stored scripts are unreadable, continuing with an empty store",
			"source", decodeErr.Source, "error", decodeErr.Err)
		return out, decodeErr
	}

	s.logger.Debug("loaded script store", "hosts", len(out.Hosts()), "scripts", out.Count())
	return out, nil
}

// read fetches and decodes the snapshot without touching in-memory state.
func (s *Store) read(ctx context.Context) (model.ScriptStore, error) {
	if s.persistence == nil {
		return model.NewScriptStore(), nil
	}

	data, err := s.persistence.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return model.NewScriptStore(), nil
	}

	scripts, err := Decode(data)
	if err != nil {
		return model.NewScriptStore(), &DeserializationError{Source: s.persistence.Path(), Err: err}
	}
	return scripts, nil
}

// Save serializes scripts as the full snapshot, replacing any prior value,
// and makes it the in-memory state. Encoding failures are reported as a
// *SerializationError and nothing is written.
func (s *Store) Save(ctx context.Context, scripts model.ScriptStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := s.write(ctx, scripts); err != nil {
		return err
	}

	s.scripts = scripts.Clone()
	s.pending = nil
	s.loaded = true
	s.notifyChange(ChangeEvent{Type: ChangeTypeReplace})
	return nil
}

// Flush writes the current in-memory state as the full snapshot.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := s.write(ctx, s.scripts); err != nil {
		return err
	}
	s.pending = nil
	return nil
}

// write must be called with s.mu held.
func (s *Store) write(ctx context.Context, scripts model.ScriptStore) error {
	data, err := Encode(scripts)
	if err != nil {
		return err
	}
	if s.persistence == nil {
		return nil
	}
	if err := s.persistence.Save(ctx, data); err != nil {
		return err
	}
	s.logger.Debug("saved script store", "path", s.persistence.Path(), "bytes", len(data))
	return nil
}

// Snapshot returns a copy of the in-memory store.
func (s *Store) Snapshot() model.ScriptStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scripts.Clone()
}

// Scripts returns the scripts saved for host.
func (s *Store) Scripts(host string) model.HostScripts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scripts.Scripts(host)
}

// Lookup returns one script for host.
func (s *Store) Lookup(host, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scripts.Lookup(host, name)
}

// Put saves source under name for host in memory.
func (s *Store) Put(host, name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	name, err := model.ValidateName(name)
	if err != nil {
		return err
	}
	next, err := s.scripts.Put(host, name, source)
	if err != nil {
		return err
	}
	s.scripts = next
	s.pending = append(s.pending, pendingEdit{host: host, name: name, source: source})

	s.notifyChange(ChangeEvent{Type: ChangeTypePut, Host: host, Name: name})
	return nil
}

// Delete removes host's script called name from memory.
// It reports whether the script existed.
func (s *Store) Delete(host, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	next, removed := s.scripts.Delete(host, name)
	if !removed {
		return false, nil
	}
	s.scripts = next
	s.pending = append(s.pending, pendingEdit{host: host, name: name, delete: true})

	s.notifyChange(ChangeEvent{Type: ChangeTypeDelete, Host: host, Name: name})
	return true, nil
}

// Replace swaps the in-memory store for scripts without persisting it.
func (s *Store) Replace(scripts model.ScriptStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.scripts = scripts.Clone()
	// A replacement supersedes every earlier edit; record it as the
	// full set of puts so a reload keeps it.
	s.pending = s.pending[:0]
	for _, host := range s.scripts.Hosts() {
		for name, src := range s.scripts[host] {
			s.pending = append(s.pending, pendingEdit{host: host, name: name, source: src})
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeReplace})
	return nil
}

// Loaded reports whether Load or Save has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Dirty reports whether there are edits not yet written.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending) > 0
}

// Persistence returns the backing persistence, which may be nil.
func (s *Store) Persistence() Persistence {
	return s.persistence
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close releases resources and closes all subscriber channels.
// Unsaved edits are discarded; call Flush first to keep them.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
// Must be called with s.mu held.
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

func (e pendingEdit) apply(s model.ScriptStore) model.ScriptStore {
	if e.delete {
		out, _ := s.Delete(e.host, e.name)
		return out
	}
	out, err := s.Put(e.host, e.name, e.source)
	if err != nil {
		return s
	}
	return out
}

// Errors
var (
	ErrStoreClosed = storeError("store is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
