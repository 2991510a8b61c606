package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/hostenv"
	"github.com/jmylchreest/sitescript/internal/model"
	"github.com/jmylchreest/sitescript/internal/script"
)

var runOpts struct {
	file    string
	title   string
	timeout time.Duration
	payload bool
	wrap    bool
}

var runCmd = &cobra.Command{
	Use:   "run <url> [name]",
	Short: "Run a script against a page in the sandbox",
	Long: `Run a script in a JavaScript sandbox that stands in for the page.

With a name, the script saved under that name for the URL's host is run.
Otherwise the script is read from --file, or from stdin.

The sandbox provides document.title, document.URL, location, alert,
prompt, confirm and console. Alerts and console output are printed in
call order.

Examples:
  sitescript run https://example.com/path title --title "Example"
  echo 'console.log(location.hostname)' | sitescript run https://example.com
  sitescript run https://example.com --file draft.js --payload`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runOpts.file, "file", "",
		"Read the script from this file (default: stdin)")
	runCmd.Flags().StringVar(&runOpts.title, "title", "",
		"Page title exposed as document.title")
	runCmd.Flags().DurationVar(&runOpts.timeout, "timeout", 0,
		"Maximum run time (default from config)")
	runCmd.Flags().BoolVar(&runOpts.payload, "payload", false,
		"Also print the finalize payload for the script")
	runCmd.Flags().BoolVar(&runOpts.wrap, "wrap", false,
		"Wrap the payload under NSExtensionJavaScriptFinalizeArgumentKey")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pageURL := args[0]

	name, src, err := runSource(cmd, args)
	if err != nil {
		return err
	}

	timeout := runOpts.timeout
	if timeout <= 0 {
		timeout = getConfig().Run.Timeout.Duration()
	}

	runner := script.NewRunner(timeout, logger)
	result, err := runner.Run(ctx, name, src, script.Page{URL: pageURL, Title: runOpts.title})
	if err != nil {
		var syntaxErr *script.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, script.ErrTimeout) {
			return err
		}
		return fmt.Errorf("script failed: %w", err)
	}

	for _, msg := range result.Alerts {
		fmt.Printf("alert: %s\n", msg)
	}
	for _, line := range result.Logs {
		fmt.Printf("console: %s\n", line)
	}
	if result.Value != "" {
		fmt.Printf("=> %s\n", result.Value)
	}
	logger.Debug("script finished", "name", name, "duration", result.Duration)

	if runOpts.payload {
		return hostenv.NewFinalizePayload(src).Write(os.Stdout, runOpts.wrap)
	}
	return nil
}

// runSource returns the script to run: a saved one when a name is given,
// otherwise --file or stdin.
func runSource(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) < 2 {
		src, err := readSource(runOpts.file)
		if err != nil {
			return "", "", fmt.Errorf("failed to read script: %w", err)
		}
		name := runOpts.file
		if name == "" || name == "-" {
			name = "stdin"
		}
		return name, src, nil
	}

	host, ok := model.DeriveHost(args[0])
	if !ok {
		return "", "", fmt.Errorf("%q: %w", args[0], model.ErrNoHost)
	}
	if _, err := loadStore(cmd.Context()); err != nil {
		return "", "", err
	}
	src, ok := getStore().Lookup(host, args[1])
	if !ok {
		return "", "", fmt.Errorf("no script %q saved for %s", args[1], host)
	}
	return args[1], src, nil
}
