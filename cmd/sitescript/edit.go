package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/config"
	"github.com/jmylchreest/sitescript/internal/hostenv"
	"github.com/jmylchreest/sitescript/internal/script"
	"github.com/jmylchreest/sitescript/internal/session"
	"github.com/jmylchreest/sitescript/internal/tui"
)

var editOpts struct {
	url        string
	title      string
	stdinPage  bool
	scriptFile string
	wrap       bool
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the interactive script editor for a page",
	Long: `Open an editing session for a page.

The page title is shown at once; saved scripts for the page's host appear
once the store has loaded. When you finish (ctrl+d) the edited script is
written to stdout as {"customJavaScript": "..."} and the store is saved.
If saving fails the script is still written.

The page can be given with --url/--title, or read as JSON from stdin with
--stdin-page ({"URL": "...", "title": "..."}).

Key bindings:
  ctrl+s      Save the script under a name for this host
  ctrl+l      Pick a saved script
  ctrl+p      Pick from the command list
  ctrl+y      Copy the script to the clipboard
  ctrl+d      Done: return the script to the page
  f1          Show help
  ctrl+c      Cancel without returning a script`,
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
	addEditFlags(editCmd)
}

func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&editOpts.url, "url", "",
		"URL of the page being edited")
	cmd.Flags().StringVar(&editOpts.title, "title", "",
		"Title of the page being edited")
	cmd.Flags().BoolVar(&editOpts.stdinPage, "stdin-page", false,
		"Read the page as JSON from stdin")
	cmd.Flags().StringVar(&editOpts.scriptFile, "script-file", "",
		"Start the editor with the contents of this file")
	cmd.Flags().BoolVar(&editOpts.wrap, "wrap", false,
		"Wrap the output under NSExtensionJavaScriptFinalizeArgumentKey")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	page, err := pageFromFlags()
	if err != nil {
		return err
	}

	ctrl := session.Open(ctx, getStore(), page, sessionOptions(getConfig()))

	if editOpts.scriptFile != "" {
		src, err := os.ReadFile(editOpts.scriptFile)
		if err != nil {
			return err
		}
		ctrl.SetScript(string(src))
	}

	var persistPath string
	if getConfig().Storage.Backend == config.BackendFile {
		persistPath = getConfig().StorePath()
	}

	result, err := tui.Run(ctx, tui.RunOptions{
		Config:      getConfig(),
		Controller:  ctrl,
		Store:       getStore(),
		PersistPath: persistPath,
		InputTTY:    editOpts.stdinPage,
		Logger:      logger,
	})
	if errors.Is(err, tui.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "Cancelled, no script returned")
		return err
	}
	if err != nil {
		return err
	}

	if result.PersistErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: scripts not saved: %v\n", result.PersistErr)
	}
	return result.Payload.Write(os.Stdout, editOpts.wrap)
}

// pageFromFlags builds the page from --url/--title or --stdin-page.
func pageFromFlags() (hostenv.PageInfo, error) {
	page := hostenv.PageInfo{URL: editOpts.url, Title: editOpts.title}
	if !editOpts.stdinPage {
		return page, nil
	}

	fromStdin, err := hostenv.ReadPageInfo(os.Stdin)
	if err != nil {
		return page, err
	}
	// Flags win over the document
	if page.URL == "" {
		page.URL = fromStdin.URL
	}
	if page.Title == "" {
		page.Title = fromStdin.Title
	}
	return page, nil
}

// sessionOptions maps config onto session options.
func sessionOptions(c *config.Config) session.Options {
	opts := session.Options{
		Presets: c.Editor.Presets,
		Logger:  logger,
	}
	if c.Editor.CheckSyntax {
		opts.Check = script.Check
	}
	if n := newNotifier(); n != nil {
		opts.Reporter = n
	}
	return opts
}
