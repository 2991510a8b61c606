package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/adapter/output"
	"github.com/jmylchreest/sitescript/internal/core"
	"github.com/jmylchreest/sitescript/internal/model"
)

var getOpts struct {
	format string
	field  string
}

var getCmd = &cobra.Command{
	Use:   "get <url|host> <name|#index>",
	Short: "Print a saved script",
	Long: `Print the source of a saved script.

A single "host<TAB>name" argument, as printed by "list -f keys", is also
accepted. "#N" selects the host's N-th script in name order, as numbered
by "list <host>", unless a script is literally named "#N".

Examples:
  # Print the source
  sitescript get example.com title

  # Second script for the host
  sitescript get example.com '#2'

  # As a JSON entry
  sitescript get https://example.com/path title --format json

  # One field
  sitescript get example.com title --field lines`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getOpts.format, "format", "f", "source",
		"Output format (source, json, yaml, plain)")
	getCmd.Flags().StringVar(&getOpts.field, "field", "",
		"Output a single field (host, name, source, preview, lines, all)")
}

func runGet(cmd *cobra.Command, args []string) error {
	host, name, err := entryArgs(args)
	if err != nil {
		return err
	}

	scripts, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}

	entry, err := resolveEntry(scripts, host, name)
	if err != nil {
		return err
	}

	if getOpts.field != "" {
		fmt.Println(output.FormatField(entry, getOpts.field))
		return nil
	}

	switch getOpts.format {
	case "source", "":
		_, err := fmt.Fprint(os.Stdout, entry.Source)
		return err
	case "json":
		return output.NewJSONFormatter(output.FormatterOptions{}).FormatSingle(os.Stdout, entry)
	case "yaml", "plain":
		opts := output.DefaultFormatterOptions()
		opts.ShowIndex = false
		return output.NewFormatter(output.FormatType(getOpts.format), opts).Format(os.Stdout, []model.Entry{entry})
	default:
		return fmt.Errorf("unknown format %q", getOpts.format)
	}
}

// entryArgs parses "<host> <name>" or a single "host\tname" selection.
func entryArgs(args []string) (string, string, error) {
	hostPart, name := args[0], ""
	if len(args) > 1 {
		name = args[1]
	} else if h, n, ok := strings.Cut(strings.TrimRight(args[0], "\n"), "\t"); ok {
		hostPart, name = h, n
	}

	host, err := hostArg(hostPart)
	if err != nil {
		return "", "", err
	}
	name, err = model.ValidateName(name)
	if err != nil {
		return "", "", err
	}
	return host, name, nil
}

// resolveEntry finds host's script by exact name, falling back to a
// 1-based "#N" index into the host's scripts in name order.
func resolveEntry(scripts model.ScriptStore, host, name string) (model.Entry, error) {
	if src, ok := scripts.Lookup(host, name); ok {
		return model.Entry{Host: host, Name: name, Source: src}, nil
	}

	if rest, ok := strings.CutPrefix(name, "#"); ok {
		if index, err := strconv.Atoi(rest); err == nil {
			entries := model.ScriptStore{host: scripts.Scripts(host)}.Entries()
			if e := core.LookupByIndex(entries, index); e != nil {
				return *e, nil
			}
			return model.Entry{}, fmt.Errorf("no script at index %d for %s (%d saved)", index, host, len(entries))
		}
	}

	return model.Entry{}, fmt.Errorf("no script %q saved for %s", name, host)
}
