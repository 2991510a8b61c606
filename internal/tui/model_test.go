package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sitescript/internal/config"
	"github.com/jmylchreest/sitescript/internal/hostenv"
	"github.com/jmylchreest/sitescript/internal/session"
	"github.com/jmylchreest/sitescript/internal/store"
)

func newTestModel(t *testing.T, pageURL string) (Model, *session.Controller, *store.Store) {
	t.Helper()
	s := store.NewStore(nil, nil)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Put("example.com", "title", "alert(document.title);"))

	cfg := config.DefaultConfig()
	ctrl := session.Open(context.Background(), s, hostenv.PageInfo{URL: pageURL, Title: "Example"},
		session.Options{Presets: cfg.Editor.Presets})
	require.NoError(t, ctrl.Wait(context.Background()))

	m := New(cfg, ctrl, s)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, storeReadyMsg{})
	return m, ctrl, s
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func keyMsg(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_InitialView(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com/path?x=1")

	assert.Equal(t, ModeEdit, m.Mode())
	view := m.View()
	assert.Contains(t, view, "Example")
	assert.Contains(t, view, "example.com · 1 saved")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	s := store.NewStore(nil, nil)
	defer s.Close()
	ctrl := session.Open(context.Background(), s, hostenv.PageInfo{}, session.Options{})

	m := New(nil, ctrl, s)
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_TypingUpdatesSession(t *testing.T) {
	m, ctrl, _ := newTestModel(t, "https://example.com")

	m = update(t, m, runes("abc"))
	assert.Equal(t, "abc", ctrl.Script())
}

func TestModel_SelectSavedScript(t *testing.T) {
	m, ctrl, _ := newTestModel(t, "https://example.com/path?x=1")

	m = update(t, m, keyMsg(tea.KeyCtrlL))
	require.Equal(t, ModeScripts, m.Mode())
	require.Len(t, m.scripts.Items(), 1)

	m = update(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, ModeEdit, m.Mode())
	assert.Equal(t, "alert(document.title);", m.editor.Value())
	assert.Equal(t, "alert(document.title);", ctrl.Script())
}

func TestModel_ScriptsBackWithEsc(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com")

	m = update(t, m, keyMsg(tea.KeyCtrlL))
	m = update(t, m, keyMsg(tea.KeyEsc))
	assert.Equal(t, ModeEdit, m.Mode())
	assert.Empty(t, m.editor.Value())
}

func TestModel_SaveAs(t *testing.T) {
	m, ctrl, s := newTestModel(t, "https://example.com")

	m = update(t, m, runes("alert(1)"))
	m = update(t, m, keyMsg(tea.KeyCtrlS))
	require.Equal(t, ModeSave, m.Mode())
	assert.Contains(t, m.View(), "Save as:")

	m = update(t, m, runes("one"))
	m, cmd := updateCmd(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, ModeEdit, m.Mode())
	require.NotNil(t, cmd)

	// The save runs as a command; execute it directly.
	msg := m.saveAs("one")()
	saved, ok := msg.(savedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)

	m = update(t, m, saved)
	assert.Len(t, m.scripts.Items(), 2)

	src, ok := s.Lookup("example.com", "one")
	require.True(t, ok)
	assert.Equal(t, "alert(1)", src)
	assert.Equal(t, "alert(1)", ctrl.Scripts()["one"])
}

func TestModel_DoneRightAfterSaveKeepsSave(t *testing.T) {
	m, ctrl, s := newTestModel(t, "https://example.com")

	m = update(t, m, runes("alert(1)"))
	m = update(t, m, keyMsg(tea.KeyCtrlS))
	m = update(t, m, runes("one"))
	m = update(t, m, keyMsg(tea.KeyEnter))

	// Finish without running the save command
	m = update(t, m, keyMsg(tea.KeyCtrlD))
	require.True(t, m.Done())

	res := ctrl.Complete(context.Background())
	require.NoError(t, res.PersistErr)

	src, ok := s.Lookup("example.com", "one")
	require.True(t, ok)
	assert.Equal(t, "alert(1)", src)
}

func TestModel_SaveEmptyNameStaysInPrompt(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com")

	m = update(t, m, keyMsg(tea.KeyCtrlS))
	m, cmd := updateCmd(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, ModeSave, m.Mode())
	require.NotNil(t, cmd)

	status, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, status.isErr)
}

func TestModel_HostlessCannotSave(t *testing.T) {
	m, _, _ := newTestModel(t, "")

	m, cmd := updateCmd(t, m, keyMsg(tea.KeyCtrlS))
	assert.Equal(t, ModeEdit, m.Mode())
	require.NotNil(t, cmd)

	status, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, status.isErr)
	assert.Contains(t, status.text, "no current host")

	m = update(t, m, keyMsg(tea.KeyCtrlL))
	assert.Equal(t, ModeEdit, m.Mode())
	assert.Contains(t, m.View(), "no host")
}

func TestModel_CommandList(t *testing.T) {
	m, ctrl, _ := newTestModel(t, "https://example.com")

	m = update(t, m, keyMsg(tea.KeyCtrlP))
	require.Equal(t, ModeCommands, m.Mode())

	m = update(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, ModeEdit, m.Mode())
	assert.Equal(t, "alert(document.title);", m.editor.Value())
	assert.Equal(t, "alert(document.title);", ctrl.Script())
}

func TestModel_DoneAndCancel(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com")

	done, cmd := updateCmd(t, m, keyMsg(tea.KeyCtrlD))
	assert.True(t, done.Done())
	assert.False(t, done.Cancelled())
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)

	cancelled, cmd := updateCmd(t, m, keyMsg(tea.KeyCtrlC))
	assert.True(t, cancelled.Cancelled())
	assert.False(t, cancelled.Done())
	_, isQuit = cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestModel_HelpToggle(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com")

	m = update(t, m, keyMsg(tea.KeyF1))
	assert.Equal(t, ModeHelp, m.Mode())
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m = update(t, m, keyMsg(tea.KeyEsc))
	assert.Equal(t, ModeEdit, m.Mode())
}

func TestModel_StatusMessages(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com")

	m = update(t, m, statusMsg{text: "Saved \"x\"", isErr: false})
	assert.Contains(t, m.View(), "Saved \"x\"")

	m = update(t, m, clearStatusMsg{})
	assert.NotContains(t, m.View(), "Saved \"x\"")
	assert.Contains(t, m.View(), "done")
}

func TestModel_RefreshOnStoreChange(t *testing.T) {
	m, _, s := newTestModel(t, "https://example.com")

	require.NoError(t, s.Put("example.com", "other", "x"))
	m = update(t, m, refreshMsg{})
	assert.Len(t, m.scripts.Items(), 2)
}

func TestBuildKeybindBar_FitsWidth(t *testing.T) {
	m, _, _ := newTestModel(t, "https://example.com")

	bar := stripStyle(m.buildKeybindBar(20, "edit"))
	assert.LessOrEqual(t, len(bar), 20)
	assert.Contains(t, bar, "ctrl+d done")

	full := stripStyle(m.buildKeybindBar(0, "edit"))
	assert.Contains(t, full, "ctrl+c cancel")
}

// stripStyle drops ANSI escape sequences.
func stripStyle(s string) string {
	var b strings.Builder
	inEscape := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\x1b':
			inEscape = true
		case inEscape:
			if s[i] == 'm' {
				inEscape = false
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
