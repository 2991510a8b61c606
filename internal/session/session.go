// Package session drives one editing session: it loads the store in the
// background, lets the user pick, edit and save scripts for the current
// host, and hands the final script back to the page.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/sitescript/internal/hostenv"
	"github.com/jmylchreest/sitescript/internal/model"
	"github.com/jmylchreest/sitescript/internal/store"
)

// ScriptStore is the part of *store.Store a session needs.
type ScriptStore interface {
	Load(ctx context.Context) (model.ScriptStore, error)
	Scripts(host string) model.HostScripts
	Lookup(host, name string) (string, bool)
	Put(host, name, source string) error
	Flush(ctx context.Context) error
}

// FailureReporter is told about storage failures the user would otherwise
// not see. *notify.Notifier implements it.
type FailureReporter interface {
	LoadFailed(ctx context.Context, err error)
	PersistFailed(ctx context.Context, host string, err error)
}

// Checker validates a script before it is saved.
type Checker func(name, src string) error

// Options configures a Controller.
type Options struct {
	Presets  []string
	Check    Checker
	Reporter FailureReporter
	Logger   *slog.Logger
}

// Result is what a completed session hands back.
// Payload always carries the edited script, even when PersistErr is set.
type Result struct {
	Session    model.Session
	Payload    hostenv.FinalizePayload
	PersistErr error
}

// Errors
var (
	ErrNoPreset  = errors.New("no such preset")
	ErrCompleted = errors.New("session already completed")
)

// Controller owns the state of one session.
type Controller struct {
	mu      sync.RWMutex
	session model.Session

	store  ScriptStore
	opts   Options
	logger *slog.Logger

	group   *errgroup.Group
	ready   chan struct{}
	loadErr error

	// Saves started before Complete are flushed with it; later ones fail
	// with ErrCompleted.
	saves        sync.WaitGroup
	pendingSaves int
	completed    bool
}

// Open starts a session for page. The page title and host are available
// immediately; the store is loaded in the background and Scripts stays
// empty until Ready is closed. Open never blocks.
func Open(ctx context.Context, st ScriptStore, page hostenv.PageInfo, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sess := model.NewSession(page.URL, page.Title)
	c := &Controller{
		session: sess,
		store:   st,
		opts:    opts,
		logger:  logger.With("session", sess.ID),
		ready:   make(chan struct{}),
	}

	if sess.Hostless() {
		c.logger.Info("no host for page, scripts cannot be listed or saved", "url", page.URL)
	}

	host := sess.Host
	c.group, ctx = errgroup.WithContext(ctx)
	c.group.Go(func() error {
		return c.load(ctx, host)
	})

	return c
}

func (c *Controller) load(ctx context.Context, host string) error {
	_, err := c.store.Load(ctx)

	c.mu.Lock()
	c.loadErr = err
	c.mu.Unlock()
	close(c.ready)

	var decodeErr *store.DeserializationError
	switch {
	case err == nil:
		c.logger.Debug("store ready", "host", host)
	case errors.As(err, &decodeErr):
		if c.opts.Reporter != nil {
			c.opts.Reporter.LoadFailed(ctx, err)
		}
	default:
		c.logger.Error("failed to load stored scripts", "error", err)
	}
	return err
}

// Ready is closed once the background load has finished, successfully or not.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// IsReady reports whether the background load has finished.
func (c *Controller) IsReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the load finishes or ctx is done and returns the load
// error. A *store.DeserializationError means the session continues with an
// empty store.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.group.Wait()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session returns a copy of the current session state.
func (c *Controller) Session() model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Title returns the page title shown while the store loads.
func (c *Controller) Title() string {
	return c.Session().DisplayTitle()
}

// Host returns the current host, empty for a hostless session.
func (c *Controller) Host() string {
	return c.Session().Host
}

// Scripts returns the scripts saved for the current host.
// It is empty before the load finishes and for hostless sessions.
func (c *Controller) Scripts() model.HostScripts {
	host := c.Host()
	if host == "" || !c.IsReady() {
		return model.HostScripts{}
	}
	return c.store.Scripts(host)
}

// Names returns the current host's script names, sorted.
func (c *Controller) Names() []string {
	scripts := c.Scripts()
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Select puts the named script into the editor.
func (c *Controller) Select(name string) (string, bool) {
	host := c.Host()
	if host == "" || !c.IsReady() {
		return "", false
	}
	src, ok := c.store.Lookup(host, name)
	if !ok {
		return "", false
	}
	c.SetScript(src)
	return src, true
}

// SetScript replaces the editor text.
func (c *Controller) SetScript(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = c.session.WithScript(src)
}

// Script returns the editor text.
func (c *Controller) Script() string {
	return c.Session().Script
}

// SaveAs stores the editor text under name for the current host.
// It waits for the background load so the save lands on the loaded store.
func (c *Controller) SaveAs(ctx context.Context, name string) error {
	return <-c.SaveAsync(ctx, name)
}

// SaveAsync starts saving the current editor text under name and returns
// a channel that receives the result. The save is registered before
// SaveAsync returns, so a later Complete includes it in the snapshot.
func (c *Controller) SaveAsync(ctx context.Context, name string) <-chan error {
	errc := make(chan error, 1)

	sess, err := c.beginSave()
	if err != nil {
		errc <- err
		return errc
	}

	go func() {
		defer c.endSave()
		errc <- c.save(ctx, sess, name)
	}()
	return errc
}

// beginSave registers an in-flight save and snapshots the session it saves.
func (c *Controller) beginSave() (model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed {
		return model.Session{}, ErrCompleted
	}
	c.pendingSaves++
	c.saves.Add(1)
	return c.session, nil
}

func (c *Controller) endSave() {
	c.mu.Lock()
	c.pendingSaves--
	c.mu.Unlock()
	c.saves.Done()
}

func (c *Controller) save(ctx context.Context, sess model.Session, name string) error {
	if sess.Hostless() {
		return model.ErrNoHost
	}

	name, err := model.ValidateName(name)
	if err != nil {
		return err
	}

	if c.opts.Check != nil {
		if err := c.opts.Check(name, sess.Script); err != nil {
			return err
		}
	}

	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := c.store.Put(sess.Host, name, sess.Script); err != nil {
		return err
	}
	c.logger.Debug("saved script", "host", sess.Host, "name", name, "bytes", len(sess.Script))
	return nil
}

// Presets returns the command list offered in the editor.
func (c *Controller) Presets() []string {
	return slices.Clone(c.opts.Presets)
}

// ApplyPreset puts preset i into the editor.
func (c *Controller) ApplyPreset(i int) (string, error) {
	if i < 0 || i >= len(c.opts.Presets) {
		return "", fmt.Errorf("%w: %d", ErrNoPreset, i)
	}
	src := c.opts.Presets[i]
	c.SetScript(src)
	return src, nil
}

// Complete ends the session: the edited script is returned for the page
// and the store is written once every save started before it has landed.
// Saves started afterwards fail with ErrCompleted. A write failure is
// reported in Result.PersistErr but never withholds the script.
//
// When the load failed for a reason other than unreadable content, the
// store is not written, so a transient read error cannot erase saved scripts.
func (c *Controller) Complete(ctx context.Context) Result {
	sess := c.Session()
	res := Result{
		Session: sess,
		Payload: hostenv.NewFinalizePayload(sess.Script),
	}

	res.PersistErr = c.persist(ctx)
	if res.PersistErr != nil {
		c.logger.Error("scripts not saved", "host", sess.Host, "error", res.PersistErr)
		if c.opts.Reporter != nil {
			c.opts.Reporter.PersistFailed(ctx, sess.Host, res.PersistErr)
		}
	} else {
		c.logger.Debug("session complete", "host", sess.Host)
	}
	return res
}

func (c *Controller) persist(ctx context.Context) error {
	c.mu.Lock()
	c.completed = true
	pending := c.pendingSaves
	c.mu.Unlock()

	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if pending > 0 {
		c.logger.Debug("waiting for saves", "pending", pending)
	}
	saved := make(chan struct{})
	go func() {
		c.saves.Wait()
		close(saved)
	}()
	select {
	case <-saved:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.RLock()
	loadErr := c.loadErr
	c.mu.RUnlock()

	var decodeErr *store.DeserializationError
	if loadErr != nil && !errors.As(loadErr, &decodeErr) {
		return fmt.Errorf("store was not loaded: %w", loadErr)
	}

	return c.store.Flush(ctx)
}
