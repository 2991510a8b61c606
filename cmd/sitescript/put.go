package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/script"
)

var putOpts struct {
	file  string
	check bool
}

var putCmd = &cobra.Command{
	Use:   "put <url|host> <name>",
	Short: "Save a script for a host",
	Long: `Save a script under a name for a host, replacing any script of the
same name. The source is read from --file, or from stdin.

Examples:
  sitescript put example.com title --file title.js
  echo "alert('hi')" | sitescript put https://sub.example.com greet
  sitescript put example.com broken --check < draft.js`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

var rmCmd = &cobra.Command{
	Use:     "rm <url|host> <name>",
	Aliases: []string{"delete"},
	Short:   "Delete a saved script",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runRm,
}

func init() {
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(rmCmd)

	putCmd.Flags().StringVar(&putOpts.file, "file", "",
		"Read the script from this file (default: stdin)")
	putCmd.Flags().BoolVar(&putOpts.check, "check", false,
		"Reject the script if it does not parse (default from config)")
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	host, name, err := entryArgs(args)
	if err != nil {
		return err
	}

	src, err := readSource(putOpts.file)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	if putOpts.check || getConfig().Editor.CheckSyntax {
		if err := script.Check(name, src); err != nil {
			return err
		}
	}

	if _, err := loadStore(ctx); err != nil {
		return err
	}
	if err := getStore().Put(host, name, src); err != nil {
		return err
	}
	if err := getStore().Flush(ctx); err != nil {
		return fmt.Errorf("failed to save scripts: %w", err)
	}

	logger.Debug("script saved", "host", host, "name", name, "bytes", len(src))
	fmt.Fprintf(os.Stderr, "Saved %q for %s\n", name, host)
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	host, name, err := entryArgs(args)
	if err != nil {
		return err
	}

	if _, err := loadStore(ctx); err != nil {
		return err
	}
	removed, err := getStore().Delete(host, name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no script %q saved for %s", name, host)
	}
	if err := getStore().Flush(ctx); err != nil {
		return fmt.Errorf("failed to save scripts: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Deleted %q for %s\n", name, host)
	return nil
}
