// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default configuration values.
const (
	DefaultBackend     = BackendFile
	DefaultKey         = "script"
	DefaultRunTimeout  = 5 * time.Second
	DefaultDmenuTmpl   = "{{.Name}} | {{.Host}} | {{.SourceTruncated 60}}"
	DefaultFullTmpl    = "// {{.Host}} / {{.Name}}\n{{.Source}}"
	DefaultTitlePreset = "alert(document.title);"
)

// Config represents the sitescript configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Editor    EditorConfig    `toml:"editor"`
	Run       RunConfig       `toml:"run"`
	Templates TemplatesConfig `toml:"templates"`
	TUI       TUIConfig       `toml:"tui"`
	Clipboard ClipboardConfig `toml:"clipboard"`
	Notify    NotifyConfig    `toml:"notify"`
}

// StorageConfig selects where the script store is persisted.
type StorageConfig struct {
	Backend string `toml:"backend"` // file or sqlite
	Path    string `toml:"path"`    // Empty = default under the data dir
	Key     string `toml:"key"`     // sqlite key holding the snapshot
}

// EditorConfig holds editing session options.
type EditorConfig struct {
	Presets     []string `toml:"presets"`      // Command list offered in the editor
	CheckSyntax bool     `toml:"check_syntax"` // Reject scripts that do not parse on save
}

// RunConfig holds sandbox execution options.
type RunConfig struct {
	Timeout Duration `toml:"timeout"`
}

// TemplatesConfig holds output templates.
type TemplatesConfig struct {
	Dmenu  string            `toml:"dmenu"`
	Full   string            `toml:"full"`
	Custom map[string]string `toml:"custom"`
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp        bool `toml:"show_help"`
	ShowLineNumbers bool `toml:"show_line_numbers"`
}

// ClipboardConfig holds clipboard settings (TUI only).
type ClipboardConfig struct {
	Command string `toml:"command"` // Auto-detected if empty
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	OnPersistFailure bool `toml:"on_persist_failure"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: DefaultBackend,
			Path:    "",
			Key:     DefaultKey,
		},
		Editor: EditorConfig{
			Presets:     []string{DefaultTitlePreset},
			CheckSyntax: false,
		},
		Run: RunConfig{
			Timeout: Duration(DefaultRunTimeout),
		},
		Templates: TemplatesConfig{
			Dmenu:  DefaultDmenuTmpl,
			Full:   DefaultFullTmpl,
			Custom: make(map[string]string),
		},
		TUI: TUIConfig{
			ShowHelp:        true,
			ShowLineNumbers: true,
		},
		Clipboard: ClipboardConfig{
			Command: "", // Auto-detect
		},
		Notify: NotifyConfig{
			OnPersistFailure: false,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sitescript", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "sitescript")
}

// ScriptsPath returns the default path of the JSON snapshot file.
func ScriptsPath() string {
	return filepath.Join(DataPath(), "scripts.json")
}

// DatabasePath returns the default path of the SQLite database.
func DatabasePath() string {
	return filepath.Join(DataPath(), "scripts.sqlite")
}

// StorePath returns the configured storage path, or the default for the
// configured backend.
func (c *Config) StorePath() string {
	if c.Storage.Path != "" {
		return expandPath(c.Storage.Path)
	}
	if c.Storage.Backend == BackendSQLite {
		return DatabasePath()
	}
	return ScriptsPath()
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ValidBackends lists the supported storage backends.
func ValidBackends() []string {
	return []string{BackendFile, BackendSQLite}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(ValidBackends(), c.Storage.Backend) {
		return fmt.Errorf("invalid storage backend %q, must be one of: %v", c.Storage.Backend, ValidBackends())
	}
	if c.Storage.Backend == BackendSQLite && strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("storage key cannot be empty for the sqlite backend")
	}
	if c.Run.Timeout.Duration() <= 0 {
		return fmt.Errorf("run timeout must be positive, got %s", c.Run.Timeout.Duration())
	}
	return nil
}

// GetTemplate returns the template for the given name.
// First checks custom templates, then built-in ones.
// Returns empty string if not found.
func (c *Config) GetTemplate(name string) string {
	if tmpl, ok := c.Templates.Custom[name]; ok {
		return tmpl
	}

	switch name {
	case "dmenu":
		return c.Templates.Dmenu
	case "full":
		return c.Templates.Full
	default:
		return ""
	}
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
