// Package tui provides the BubbleTea-based script editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/sitescript/internal/config"
	"github.com/jmylchreest/sitescript/internal/model"
	"github.com/jmylchreest/sitescript/internal/session"
	"github.com/jmylchreest/sitescript/internal/store"
)

// ErrCancelled is returned by Run when the user quits without finishing.
var ErrCancelled = errors.New("editing cancelled")

// Mode represents the current UI mode.
type Mode int

const (
	ModeEdit Mode = iota
	ModeScripts
	ModeCommands
	ModeSave
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg  *config.Config
	ctrl *session.Controller

	// Current mode
	mode Mode

	// Components
	editor    textarea.Model
	scripts   list.Model
	commands  list.Model
	nameInput textinput.Model
	help      help.Model

	// State
	loaded    bool
	loadErr   error
	lastName  string
	done      bool
	cancelled bool
	width     int
	height    int
	ready     bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool

	// Store change subscription
	refreshCh <-chan store.ChangeEvent
}

// scriptItem wraps a saved script for the list component.
type scriptItem struct {
	entry model.Entry
}

func (i scriptItem) Title() string { return i.entry.Name }

func (i scriptItem) Description() string {
	return fmt.Sprintf("%d lines - %s", i.entry.Lines(), i.entry.SourceTruncated(60))
}

func (i scriptItem) FilterValue() string { return i.entry.Name }

// presetItem wraps a command list entry.
type presetItem struct {
	index  int
	source string
}

func (i presetItem) Title() string {
	return model.Truncate(strings.Join(strings.Fields(i.source), " "), 70)
}

func (i presetItem) Description() string { return fmt.Sprintf("command %d", i.index+1) }

func (i presetItem) FilterValue() string { return i.source }

// New creates a new TUI model. The store may be nil, in which case the
// saved scripts list is only refreshed after saves.
func New(cfg *config.Config, ctrl *session.Controller, s *store.Store) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	editor := textarea.New()
	editor.Placeholder = "Type a script to run on this page..."
	editor.ShowLineNumbers = cfg.TUI.ShowLineNumbers
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.SetValue(ctrl.Script())
	editor.Focus()

	scripts := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	scripts.Title = "Saved Scripts"
	scripts.SetShowHelp(false)
	scripts.SetFilteringEnabled(true)
	scripts.DisableQuitKeybindings()

	commands := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	commands.Title = "Command List"
	commands.SetShowHelp(false)
	commands.SetFilteringEnabled(false)
	commands.DisableQuitKeybindings()

	nameInput := textinput.New()
	nameInput.Placeholder = "Script name"
	nameInput.CharLimit = model.MaxNameLength

	h := help.New()
	h.ShowAll = cfg.TUI.ShowHelp

	m := Model{
		cfg:       cfg,
		ctrl:      ctrl,
		mode:      ModeEdit,
		editor:    editor,
		scripts:   scripts,
		commands:  commands,
		nameInput: nameInput,
		help:      h,
		keys:      DefaultKeyMap(),
	}
	m.commands.SetItems(m.buildPresetItems())

	if s != nil {
		m.refreshCh = s.Subscribe()
	}

	return m
}

// Done reports whether the user finished the session.
func (m Model) Done() bool { return m.done }

// Cancelled reports whether the user quit without finishing.
func (m Model) Cancelled() bool { return m.cancelled }

// Mode returns the current UI mode.
func (m Model) Mode() Mode { return m.mode }

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForStore,
		m.watchForChanges,
	)
}

// waitForStore blocks until the background load finishes.
func (m Model) waitForStore() tea.Msg {
	<-m.ctrl.Ready()
	return storeReadyMsg{err: m.ctrl.Wait(context.Background())}
}

type storeReadyMsg struct {
	err error
}

// watchForChanges waits for the next store change.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	return refreshMsg{}
}

type refreshMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

type savedMsg struct {
	name string
	err  error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.editor.SetWidth(msg.Width)
		m.editor.SetHeight(max(msg.Height-4, 1))
		m.scripts.SetSize(msg.Width, max(msg.Height-2, 1))
		m.commands.SetSize(msg.Width, max(msg.Height-2, 1))
		m.help.Width = msg.Width
		return m, nil

	case storeReadyMsg:
		m.loaded = true
		m.loadErr = msg.err
		m.scripts.SetItems(m.buildScriptItems())
		if msg.err != nil {
			return m, m.setStatus("Stored scripts unavailable: "+msg.err.Error(), true)
		}
		return m, nil

	case refreshMsg:
		m.scripts.SetItems(m.buildScriptItems())
		return m, m.watchForChanges

	case savedMsg:
		if msg.err != nil {
			return m, m.setStatus("Save failed: "+msg.err.Error(), true)
		}
		m.lastName = msg.name
		m.scripts.SetItems(m.buildScriptItems())
		return m, m.setStatus(fmt.Sprintf("Saved %q", msg.name), false)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, m.setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, m.setStatus("Copied to clipboard", false)
	}

	// Update child components
	var cmd tea.Cmd
	switch m.mode {
	case ModeEdit:
		m.editor, cmd = m.editor.Update(msg)
	case ModeScripts:
		m.scripts, cmd = m.scripts.Update(msg)
	case ModeCommands:
		m.commands, cmd = m.commands.Update(msg)
	case ModeSave:
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

func (m Model) setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelled = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Done):
		m.done = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeEdit
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeEdit:
		return m.handleEditKey(msg)
	case ModeScripts:
		return m.handleScriptsKey(msg)
	case ModeCommands:
		return m.handleCommandsKey(msg)
	case ModeSave:
		return m.handleSaveKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeEdit
		}
		return m, nil
	}

	return m, nil
}

// handleEditKey handles keys in edit mode.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		if m.ctrl.Session().Hostless() {
			return m, m.setStatus("Cannot save: "+model.ErrNoHost.Error(), true)
		}
		m.mode = ModeSave
		m.editor.Blur()
		m.nameInput.SetValue(m.lastName)
		m.nameInput.CursorEnd()
		return m, m.nameInput.Focus()

	case key.Matches(msg, m.keys.Scripts):
		if m.ctrl.Session().Hostless() {
			return m, m.setStatus("No saved scripts: "+model.ErrNoHost.Error(), true)
		}
		if !m.loaded {
			return m, m.setStatus("Still loading saved scripts...", false)
		}
		m.mode = ModeScripts
		m.editor.Blur()
		m.scripts.SetItems(m.buildScriptItems())
		return m, nil

	case key.Matches(msg, m.keys.Commands):
		if len(m.commands.Items()) == 0 {
			return m, m.setStatus("Command list is empty", false)
		}
		m.mode = ModeCommands
		m.editor.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyToClipboard(m.editor.Value())
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.ctrl.SetScript(m.editor.Value())
	return m, cmd
}

// handleScriptsKey handles keys in the saved scripts list.
func (m Model) handleScriptsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list own the keyboard while its filter is being typed.
	if m.scripts.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.scripts, cmd = m.scripts.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.scripts.SelectedItem().(scriptItem); ok {
			if src, ok := m.ctrl.Select(item.entry.Name); ok {
				m.editor.SetValue(src)
				m.lastName = item.entry.Name
			}
		}
		return m.backToEditor()

	case key.Matches(msg, m.keys.Back):
		return m.backToEditor()
	}

	var cmd tea.Cmd
	m.scripts, cmd = m.scripts.Update(msg)
	return m, cmd
}

// handleCommandsKey handles keys in the command list.
func (m Model) handleCommandsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.commands.SelectedItem().(presetItem); ok {
			if src, err := m.ctrl.ApplyPreset(item.index); err == nil {
				m.editor.SetValue(src)
			}
		}
		return m.backToEditor()

	case key.Matches(msg, m.keys.Back):
		return m.backToEditor()
	}

	var cmd tea.Cmd
	m.commands, cmd = m.commands.Update(msg)
	return m, cmd
}

// handleSaveKey handles keys in the save prompt.
func (m Model) handleSaveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		name, err := model.ValidateName(m.nameInput.Value())
		if err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.nameInput.Blur()
		next, cmd := m.backToEditor()
		return next, tea.Batch(cmd, m.saveAs(name))

	case key.Matches(msg, m.keys.Back):
		m.nameInput.Blur()
		return m.backToEditor()
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m Model) backToEditor() (tea.Model, tea.Cmd) {
	m.mode = ModeEdit
	return m, m.editor.Focus()
}

// saveAs starts saving the editor text. The save is registered with the
// controller here, so finishing right after still includes it.
func (m Model) saveAs(name string) tea.Cmd {
	errc := m.ctrl.SaveAsync(context.Background(), name)
	return func() tea.Msg {
		return savedMsg{name: name, err: <-errc}
	}
}

// buildScriptItems lists the current host's scripts.
func (m Model) buildScriptItems() []list.Item {
	scripts := m.ctrl.Scripts()
	names := m.ctrl.Names()
	items := make([]list.Item, 0, len(names))
	for _, name := range names {
		items = append(items, scriptItem{entry: model.Entry{
			Host:   m.ctrl.Host(),
			Name:   name,
			Source: scripts[name],
		}})
	}
	return items
}

func (m Model) buildPresetItems() []list.Item {
	presets := m.ctrl.Presets()
	items := make([]list.Item, 0, len(presets))
	for i, src := range presets {
		items = append(items, presetItem{index: i, source: src})
	}
	return items
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, cfg)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeEdit:
		return m.viewEdit()
	case ModeScripts:
		return m.scripts.View() + "\n" + m.buildKeybindBar(m.width, "list")
	case ModeCommands:
		return m.commands.View() + "\n" + m.buildKeybindBar(m.width, "list")
	case ModeSave:
		return m.viewSave()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

// header shows the page title at once and the host details once loaded.
func (m Model) header() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	sess := m.ctrl.Session()
	s := titleStyle.Render(sess.DisplayTitle())

	switch {
	case sess.Hostless():
		s += dimStyle.Render("(no host, scripts cannot be saved)")
	case !m.loaded:
		s += dimStyle.Render(sess.Host + " · loading saved scripts...")
	default:
		s += dimStyle.Render(fmt.Sprintf("%s · %d saved", sess.Host, len(m.ctrl.Names())))
	}
	return s
}

func (m Model) statusLine(mode string) string {
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return statusStyle.Render(m.statusMsg)
	}
	return m.buildKeybindBar(m.width, mode)
}

func (m Model) viewEdit() string {
	return m.header() + "\n" + m.editor.View() + "\n" + m.statusLine("edit")
}

func (m Model) viewSave() string {
	return m.header() + "\n\n" + "Save as: " + m.nameInput.View() + "\n\n" + m.statusLine("save")
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp()) + "\n"
	s += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press f1 or esc to return")
	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "edit", "list", "save".
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "edit":
		binds = []keybind{
			{"ctrl+d", "done", 1},
			{"ctrl+s", "save", 2},
			{"ctrl+l", "scripts", 3},
			{"ctrl+p", "commands", 4},
			{"f1", "help", 5},
			{"ctrl+y", "copy", 6},
			{"ctrl+c", "cancel", 7},
		}
	case "list":
		binds = []keybind{
			{"enter", "use", 1},
			{"esc", "back", 2},
			{"↑/↓", "navigate", 3},
			{"/", "filter", 4},
		}
	case "save":
		binds = []keybind{
			{"enter", "save", 1},
			{"esc", "cancel", 2},
		}
	}

	// Add keybinds until we run out of space
	const separator = "  "
	result := ""
	plainLen := 0
	for _, b := range binds {
		plainItem := b.key + " " + b.desc
		testLen := plainLen + len(plainItem)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += keyStyle.Render(b.key) + " " + b.desc
		plainLen = testLen
	}

	return style.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config      *config.Config
	Controller  *session.Controller
	Store       *store.Store
	PersistPath string // Snapshot file to watch (empty = poll the store's backend)
	InputTTY    bool   // Read keys from the terminal when stdin carries data
	Logger      *slog.Logger
}

// Run starts the editor and, once the user is done, completes the session.
// Quitting without finishing returns ErrCancelled and nothing is saved.
func Run(ctx context.Context, opts RunOptions) (session.Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Watch the snapshot file when there is one, otherwise poll the backend
	var watcher *store.FileWatcher
	var poller *store.PollWatcher
	switch {
	case opts.Store == nil:
	case opts.PersistPath != "":
		var err error
		watcher, err = store.NewFileWatcher(opts.Store, opts.PersistPath, logger)
		if err != nil {
			logger.Warn("failed to create file watcher", "error", err)
		} else if err := watcher.Start(); err != nil {
			logger.Warn("failed to start file watcher", "error", err)
		}
	default:
		poller = store.NewPollWatcher(opts.Store, logger)
		if err := poller.Start(ctx); err != nil {
			logger.Warn("failed to start store poller", "error", err)
		}
	}

	m := New(opts.Config, opts.Controller, opts.Store)
	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.InputTTY {
		programOpts = append(programOpts, tea.WithInputTTY())
	}
	p := tea.NewProgram(m, programOpts...)

	final, err := p.Run()

	if watcher != nil {
		_ = watcher.Stop()
	}
	if poller != nil {
		poller.Stop()
	}

	if err != nil {
		return session.Result{}, err
	}

	fm, ok := final.(Model)
	if !ok || !fm.Done() {
		return session.Result{}, ErrCancelled
	}

	return opts.Controller.Complete(ctx), nil
}
