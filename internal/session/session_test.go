package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sitescript/internal/hostenv"
	"github.com/jmylchreest/sitescript/internal/model"
	"github.com/jmylchreest/sitescript/internal/script"
	"github.com/jmylchreest/sitescript/internal/store"
)

func newFileStore(t *testing.T, path string) *store.Store {
	t.Helper()
	p, err := store.NewFilePersistence(path)
	require.NoError(t, err)
	s := store.NewStore(p, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

// gatedStore wraps a Store and holds Load until release is closed.
type gatedStore struct {
	*store.Store
	release  chan struct{}
	loadErr  error
	flushErr error
	flushes  int
}

func (g *gatedStore) Load(ctx context.Context) (model.ScriptStore, error) {
	<-g.release
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	return g.Store.Load(ctx)
}

func (g *gatedStore) Flush(ctx context.Context) error {
	g.flushes++
	if g.flushErr != nil {
		return g.flushErr
	}
	return g.Store.Flush(ctx)
}

func newGated(loadErr, flushErr error) *gatedStore {
	return &gatedStore{
		Store:    store.NewStore(nil, nil),
		release:  make(chan struct{}),
		loadErr:  loadErr,
		flushErr: flushErr,
	}
}

type recordingReporter struct {
	mu          sync.Mutex
	loadErrs    []error
	persistErrs []error
	hosts       []string
}

func (r *recordingReporter) LoadFailed(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErrs = append(r.loadErrs, err)
}

func (r *recordingReporter) PersistFailed(_ context.Context, host string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistErrs = append(r.persistErrs, err)
	r.hosts = append(r.hosts, host)
}

func TestOpen_ExistingHostScripts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scripts.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"example.com":{"title":"alert(document.title);"}}`), 0600))

	c := Open(ctx, newFileStore(t, path), hostenv.PageInfo{
		URL:   "https://example.com/path?x=1",
		Title: "Example",
	}, Options{})
	require.NoError(t, c.Wait(ctx))

	assert.Equal(t, "example.com", c.Host())
	assert.Equal(t, model.HostScripts{"title": "alert(document.title);"}, c.Scripts())
	assert.Equal(t, []string{"title"}, c.Names())

	src, ok := c.Select("title")
	require.True(t, ok)
	assert.Equal(t, "alert(document.title);", src)
	assert.Equal(t, "alert(document.title);", c.Script())

	_, ok = c.Select("missing")
	assert.False(t, ok)
}

func TestOpen_NewHostSaveAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scripts.json")

	c := Open(ctx, newFileStore(t, path), hostenv.PageInfo{URL: "https://sub.example.com"}, Options{})
	require.NoError(t, c.Wait(ctx))
	assert.Empty(t, c.Scripts())

	c.SetScript("alert('hi')")
	require.NoError(t, c.SaveAs(ctx, "greet"))

	res := c.Complete(ctx)
	require.NoError(t, res.PersistErr)
	assert.Equal(t, "alert('hi')", res.Payload.CustomJavaScript)

	reloaded, err := newFileStore(t, path).Load(ctx)
	require.NoError(t, err)
	assert.True(t, model.ScriptStore{"sub.example.com": {"greet": "alert('hi')"}}.Equal(reloaded))
}

func TestOpen_TitleAvailableBeforeLoad(t *testing.T) {
	g := newGated(nil, nil)
	require.NoError(t, g.Put("example.com", "a", "1"))

	c := Open(context.Background(), g, hostenv.PageInfo{URL: "https://example.com", Title: "Example"}, Options{})

	assert.Equal(t, "Example", c.Title())
	assert.False(t, c.IsReady())
	assert.Empty(t, c.Scripts())
	_, ok := c.Select("a")
	assert.False(t, ok)

	close(g.release)
	require.NoError(t, c.Wait(context.Background()))
	assert.True(t, c.IsReady())
	assert.Equal(t, model.HostScripts{"a": "1"}, c.Scripts())
}

func TestWait_ContextDone(t *testing.T) {
	g := newGated(nil, nil)
	defer close(g.release)

	c := Open(context.Background(), g, hostenv.PageInfo{URL: "https://example.com"}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
}

func TestSaveAs_WaitsForLoad(t *testing.T) {
	g := newGated(nil, nil)
	c := Open(context.Background(), g, hostenv.PageInfo{URL: "https://example.com"}, Options{})
	c.SetScript("alert(1)")

	done := make(chan error, 1)
	go func() { done <- c.SaveAs(context.Background(), "one") }()

	select {
	case <-done:
		t.Fatal("SaveAs returned before the store loaded")
	case <-time.After(30 * time.Millisecond):
	}

	close(g.release)
	require.NoError(t, <-done)
	assert.Equal(t, model.HostScripts{"one": "alert(1)"}, c.Scripts())
}

func TestSaveAs_Overwrites(t *testing.T) {
	ctx := context.Background()
	c := Open(ctx, store.NewStore(nil, nil), hostenv.PageInfo{URL: "https://example.com"}, Options{})
	require.NoError(t, c.Wait(ctx))

	c.SetScript("a")
	require.NoError(t, c.SaveAs(ctx, "n"))
	c.SetScript("b")
	require.NoError(t, c.SaveAs(ctx, "n"))

	assert.Equal(t, model.HostScripts{"n": "b"}, c.Scripts())
}

func TestSaveAs_Rejects(t *testing.T) {
	ctx := context.Background()

	hostless := Open(ctx, store.NewStore(nil, nil), hostenv.PageInfo{URL: "not a url"}, Options{})
	require.NoError(t, hostless.Wait(ctx))
	hostless.SetScript("alert(1)")
	assert.ErrorIs(t, hostless.SaveAs(ctx, "x"), model.ErrNoHost)
	assert.Empty(t, hostless.Scripts())

	c := Open(ctx, store.NewStore(nil, nil), hostenv.PageInfo{URL: "https://example.com"}, Options{
		Check: script.Check,
	})
	require.NoError(t, c.Wait(ctx))

	c.SetScript("alert(1)")
	assert.ErrorIs(t, c.SaveAs(ctx, "   "), model.ErrEmptyName)

	c.SetScript("alert(")
	var synErr *script.SyntaxError
	assert.True(t, errors.As(c.SaveAs(ctx, "broken"), &synErr))
	assert.Empty(t, c.Scripts())
}

func TestPresets(t *testing.T) {
	c := Open(context.Background(), store.NewStore(nil, nil), hostenv.PageInfo{}, Options{
		Presets: []string{"alert(document.title);"},
	})

	assert.Equal(t, []string{"alert(document.title);"}, c.Presets())

	src, err := c.ApplyPreset(0)
	require.NoError(t, err)
	assert.Equal(t, "alert(document.title);", src)
	assert.Equal(t, src, c.Script())

	_, err = c.ApplyPreset(1)
	assert.ErrorIs(t, err, ErrNoPreset)
	_, err = c.ApplyPreset(-1)
	assert.ErrorIs(t, err, ErrNoPreset)
}

func TestComplete_HostlessStillReturnsScript(t *testing.T) {
	ctx := context.Background()
	c := Open(ctx, store.NewStore(nil, nil), hostenv.PageInfo{}, Options{})
	c.SetScript("console.log(1)")

	res := c.Complete(ctx)
	assert.NoError(t, res.PersistErr)
	assert.Equal(t, "console.log(1)", res.Payload.CustomJavaScript)
	assert.True(t, res.Session.Hostless())
}

func TestComplete_PersistFailureStillReturnsScript(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("disk full")
	g := newGated(nil, diskFull)
	close(g.release)
	reporter := &recordingReporter{}

	c := Open(ctx, g, hostenv.PageInfo{URL: "https://example.com"}, Options{Reporter: reporter})
	c.SetScript("alert(2)")
	require.NoError(t, c.SaveAs(ctx, "two"))

	res := c.Complete(ctx)
	assert.ErrorIs(t, res.PersistErr, diskFull)
	assert.Equal(t, "alert(2)", res.Payload.CustomJavaScript)
	require.Len(t, reporter.persistErrs, 1)
	assert.Equal(t, []string{"example.com"}, reporter.hosts)
}

func TestComplete_SkipsWriteAfterLoadIOError(t *testing.T) {
	ctx := context.Background()
	ioErr := errors.New("permission denied")
	g := newGated(ioErr, nil)
	close(g.release)

	c := Open(ctx, g, hostenv.PageInfo{URL: "https://example.com"}, Options{})
	assert.ErrorIs(t, c.Wait(ctx), ioErr)

	c.SetScript("alert(3)")
	res := c.Complete(ctx)
	assert.ErrorIs(t, res.PersistErr, ioErr)
	assert.Equal(t, "alert(3)", res.Payload.CustomJavaScript)
	assert.Equal(t, 0, g.flushes)
}

func TestComplete_MalformedStoreFailsOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scripts.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0600))
	reporter := &recordingReporter{}

	c := Open(ctx, newFileStore(t, path), hostenv.PageInfo{URL: "https://example.com"}, Options{Reporter: reporter})

	var decodeErr *store.DeserializationError
	require.True(t, errors.As(c.Wait(ctx), &decodeErr))
	assert.Len(t, reporter.loadErrs, 1)
	assert.Empty(t, c.Scripts())

	c.SetScript("alert(4)")
	require.NoError(t, c.SaveAs(ctx, "four"))
	res := c.Complete(ctx)
	require.NoError(t, res.PersistErr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"example.com":{"four":"alert(4)"}}`, string(data))
}

func newGatedFile(t *testing.T, path string) *gatedStore {
	t.Helper()
	return &gatedStore{
		Store:   newFileStore(t, path),
		release: make(chan struct{}),
	}
}

func TestComplete_WaitsForSaveStartedBeforeLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scripts.json")
	g := newGatedFile(t, path)

	c := Open(ctx, g, hostenv.PageInfo{URL: "https://example.com"}, Options{})
	c.SetScript("alert(1)")
	saved := c.SaveAsync(ctx, "one")

	completed := make(chan Result, 1)
	go func() { completed <- c.Complete(ctx) }()
	close(g.release)

	res := <-completed
	require.NoError(t, res.PersistErr)
	require.NoError(t, <-saved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"example.com":{"one":"alert(1)"}}`, string(data))
}

func TestComplete_ConcurrentSaveNeverSilentlyLost(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		path := filepath.Join(t.TempDir(), "scripts.json")
		g := newGatedFile(t, path)

		c := Open(ctx, g, hostenv.PageInfo{URL: "https://example.com"}, Options{})
		c.SetScript("alert(1)")

		saveErr := make(chan error, 1)
		completed := make(chan Result, 1)
		go func() { saveErr <- c.SaveAs(ctx, "one") }()
		go func() { completed <- c.Complete(ctx) }()
		close(g.release)

		res := <-completed
		require.NoError(t, res.PersistErr)
		err := <-saveErr

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		if err == nil {
			assert.JSONEq(t, `{"example.com":{"one":"alert(1)"}}`, string(data), "iteration %d", i)
		} else {
			assert.ErrorIs(t, err, ErrCompleted, "iteration %d", i)
			assert.JSONEq(t, `{}`, string(data), "iteration %d", i)
		}
	}
}

func TestSaveAs_AfterComplete(t *testing.T) {
	ctx := context.Background()
	g := newGated(nil, nil)
	close(g.release)

	c := Open(ctx, g, hostenv.PageInfo{URL: "https://example.com"}, Options{})
	c.SetScript("alert(5)")
	require.NoError(t, c.Complete(ctx).PersistErr)

	assert.ErrorIs(t, c.SaveAs(ctx, "late"), ErrCompleted)
	_, ok := g.Lookup("example.com", "late")
	assert.False(t, ok)
}
