package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/adapter/input"
	"github.com/jmylchreest/sitescript/internal/adapter/output"
	"github.com/jmylchreest/sitescript/internal/store"
)

var exportOpts struct {
	format string
	output string
}

var importOpts struct {
	format string
	merge  bool
	dryRun bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every saved script to stdout",
	Long: `Export the whole store.

Formats:
  snapshot  The stored JSON object, {"host": {"name": "source"}}
  json      A JSON list of {host, name, source} entries
  yaml      A YAML list of {host, name, source} entries

Examples:
  sitescript export > backup.json
  sitescript export -f yaml -o scripts.yaml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load scripts from a file or stdin",
	Long: `Import scripts exported by "sitescript export".

By default the store is replaced by the imported scripts. With --merge the
imported scripts are added to the store, replacing scripts of the same name
on the same host.

Entries without a usable host are skipped.

Examples:
  sitescript import backup.json
  sitescript import --merge scripts.yaml
  curl -s https://example.org/scripts.json | sitescript import --merge`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVarP(&exportOpts.format, "format", "f", input.FormatSnapshot,
		"Output format (snapshot, json, yaml)")
	exportCmd.Flags().StringVarP(&exportOpts.output, "output", "o", "",
		"Write to this file instead of stdout")

	importCmd.Flags().StringVarP(&importOpts.format, "format", "f", input.FormatAuto,
		"Input format (auto, snapshot, json, yaml)")
	importCmd.Flags().BoolVar(&importOpts.merge, "merge", false,
		"Merge into the existing scripts instead of replacing them")
	importCmd.Flags().BoolVar(&importOpts.dryRun, "dry-run", false,
		"Report what would be imported without saving")
}

func runExport(cmd *cobra.Command, args []string) error {
	scripts, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportOpts.output != "" {
		f, err := os.Create(exportOpts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch exportOpts.format {
	case input.FormatSnapshot:
		data, err := store.Encode(scripts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case input.FormatJSON:
		return output.NewJSONFormatter(output.FormatterOptions{}).Format(w, scripts.Entries())
	case input.FormatYAML:
		return output.NewYAMLFormatter(output.FormatterOptions{}).Format(w, scripts.Entries())
	default:
		return fmt.Errorf("unknown export format %q", exportOpts.format)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	adapter, err := input.NewAdapter(importOpts.format, r)
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	imported, err := adapter.Import(ctx)
	if err != nil {
		return fmt.Errorf("failed to import scripts: %w", err)
	}
	logger.Debug("imported scripts", "adapter", adapter.Name(), "hosts", len(imported.Hosts()), "scripts", imported.Count())

	existing, err := loadStore(ctx)
	if err != nil {
		return err
	}

	next := imported
	if importOpts.merge {
		next = existing.Merge(imported)
	}

	if importOpts.dryRun {
		fmt.Printf("Would import %d scripts for %d hosts (store would hold %d scripts)\n",
			imported.Count(), len(imported.Hosts()), next.Count())
		return nil
	}

	if err := getStore().Replace(next); err != nil {
		return err
	}
	if err := getStore().Flush(ctx); err != nil {
		return fmt.Errorf("failed to save scripts: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Imported %d scripts for %d hosts\n", imported.Count(), len(imported.Hosts()))
	return nil
}
