// Package main provides the CLI entrypoint for sitescript.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/config"
	"github.com/jmylchreest/sitescript/internal/model"
	"github.com/jmylchreest/sitescript/internal/notify"
	"github.com/jmylchreest/sitescript/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		storePath  string
		backend    string
		configPath string
	}
	logger *slog.Logger

	// scriptStore is the global store instance; it is opened but not loaded
	scriptStore *store.Store
	dbusSender  *notify.DBusSender
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sitescript",
	Short: "Per-site script editor and store",
	Long: `sitescript keeps named JavaScript snippets for each website host.

Open an editing session for a page, pick or write a script, save it under
a name for the page's host, and hand the final script back to the page.
Scripts are stored as one snapshot (a JSON file or a SQLite row).

Running sitescript without a subcommand launches the interactive editor.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flag overrides
		if globalOpts.backend != "" {
			cfg.Storage.Backend = globalOpts.backend
		}
		if globalOpts.storePath != "" {
			cfg.Storage.Path = globalOpts.storePath
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if cfg.Storage.Path == "" {
			if err := config.EnsureDataDir(); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
		}

		persistence, err := openPersistence(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize persistence: %w", err)
		}

		scriptStore = store.NewStore(persistence, logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if dbusSender != nil {
			_ = dbusSender.Close()
		}
		if scriptStore != nil {
			return scriptStore.Close()
		}
		return nil
	},
	// Default to the editor when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.storePath, "store", "",
		"Path to the script store (default: ~/.local/share/sitescript/scripts.json or scripts.sqlite)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.backend, "backend", "",
		"Storage backend (file, sqlite; default from config)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/sitescript/config.toml)")

	addEditFlags(rootCmd)
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// openPersistence opens the configured backend.
func openPersistence(ctx context.Context) (store.Persistence, error) {
	path := cfg.StorePath()
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return store.NewSQLitePersistence(ctx, path, cfg.Storage.Key)
	default:
		return store.NewFilePersistence(path)
	}
}

// newNotifier returns the persist-failure notifier, or nil when disabled.
func newNotifier() *notify.Notifier {
	if !cfg.Notify.OnPersistFailure {
		return nil
	}
	if dbusSender == nil {
		dbusSender = notify.NewDBusSender()
	}
	return notify.NewNotifier(dbusSender, logger)
}

// loadStore loads the global store. Unreadable content is reported on
// stderr and treated as an empty store.
func loadStore(ctx context.Context) (model.ScriptStore, error) {
	scripts, err := scriptStore.Load(ctx)
	var decodeErr *store.DeserializationError
	if errors.As(err, &decodeErr) {
		fmt.Fprintf(os.Stderr, "Warning: %v (continuing with an empty store; see `sitescript recover`)\n", err)
		return scripts, nil
	}
	return scripts, err
}

// hostArg resolves a URL or bare host argument.
func hostArg(arg string) (string, error) {
	host, ok := model.ResolveHost(arg)
	if !ok {
		return "", fmt.Errorf("%q: %w", arg, model.ErrNoHost)
	}
	return host, nil
}

// readSource reads script text from a file, or stdin when path is "" or "-".
func readSource(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// getStore returns the global store instance.
func getStore() *store.Store {
	return scriptStore
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	return cfg
}
