package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a PollWatcher checks for changes.
const DefaultPollInterval = 500 * time.Millisecond

// PollWatcher reloads the store when the persisted snapshot's modification
// time moves forward. It works for any Persistence, including SQLite where
// file events are not a reliable signal.
type PollWatcher struct {
	mu     sync.RWMutex
	store  *Store
	logger *slog.Logger

	pollInterval time.Duration
	lastModTime  time.Time

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewPollWatcher creates a PollWatcher for store.
func NewPollWatcher(store *Store, logger *slog.Logger) *PollWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollWatcher{
		store:        store,
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval sets the polling interval. Takes effect on the next Start.
func (w *PollWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if interval > 0 {
		w.pollInterval = interval
	}
}

// Start begins polling. It is a no-op when already running or when the
// store has no persistence.
func (w *PollWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.store.Persistence() == nil {
		w.mu.Unlock()
		return nil
	}
	w.running = true

	if info, err := w.store.Persistence().Stat(ctx); err == nil {
		w.lastModTime = info.ModTime
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.pollInterval
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug("store poller started", "path", w.store.Persistence().Path(), "interval", interval)
	return nil
}

// Stop stops polling and waits for the loop to exit.
func (w *PollWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	w.logger.Debug("store poller stopped")
}

func (w *PollWatcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkForChanges(ctx)
		}
	}
}

// checkForChanges reloads the store if the snapshot is newer than last seen.
func (w *PollWatcher) checkForChanges(ctx context.Context) {
	info, err := w.store.Persistence().Stat(ctx)
	if err != nil {
		if !errors.Is(err, ErrPersistenceClosed) {
			w.logger.Debug("failed to stat snapshot", "error", err)
		}
		return
	}
	if !info.Exists {
		return
	}

	w.mu.Lock()
	changed := info.ModTime.After(w.lastModTime)
	if changed {
		w.lastModTime = info.ModTime
	}
	w.mu.Unlock()

	if !changed {
		return
	}

	w.logger.Debug("snapshot changed, reloading store", "modTime", info.ModTime)
	if _, err := w.store.Load(ctx); err != nil {
		var decodeErr *DeserializationError
		if !errors.As(err, &decodeErr) && !errors.Is(err, ErrStoreClosed) {
			w.logger.Warn("failed to reload store", "error", err)
		}
	}
}
