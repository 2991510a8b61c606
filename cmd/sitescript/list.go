package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/adapter/output"
	"github.com/jmylchreest/sitescript/internal/core"
	"github.com/jmylchreest/sitescript/internal/model"
)

var listOpts struct {
	// Filter options
	filter string
	search string
	limit  int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	template string
	field    string
	noIndex  bool
}

var listCmd = &cobra.Command{
	Use:     "list [url|host]",
	Aliases: []string{"ls"},
	Short:   "List saved scripts",
	Long: `List saved scripts, for one host or for every host.

The argument may be a full URL or a bare host name; the host is derived
the same way as in the editor.

Examples:
  # Everything, in dmenu format
  sitescript list

  # Scripts for a page
  sitescript list https://example.com/path

  # Names only
  sitescript list example.com --field name

  # Longest scripts that call alert()
  sitescript list --filter 'source~alert' --sort lines --order desc -n 5

  # Named template from the config, or an inline one
  sitescript list --template full
  sitescript list --template '{{.Host}}/{{.Name}}'

  # Pick a script with fuzzel and print its source
  sitescript list -f keys | fuzzel -d | xargs sitescript get`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts that have saved scripts",
	Long: `List every host with at least one saved script, with its script count.

Output is tab separated: host, count.`,
	Args: cobra.NoArgs,
	RunE: runHosts,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(hostsCmd)

	// Filter flags
	listCmd.Flags().StringVar(&listOpts.filter, "filter", "",
		"Filter expression (e.g. 'host~example,lines>3'; fields: host, name, source, lines, size)")
	listCmd.Flags().StringVarP(&listOpts.search, "search", "s", "",
		"Search in script names and sources")
	listCmd.Flags().IntVarP(&listOpts.limit, "limit", "n", 0,
		"Maximum number of scripts to show (0=unlimited)")

	// Sort flags
	listCmd.Flags().StringVar(&listOpts.sortBy, "sort", "host",
		"Sort by field (host, name, lines, size)")
	listCmd.Flags().StringVar(&listOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")

	// Output flags
	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "dmenu",
		"Output format (dmenu, plain, json, yaml, keys)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Template name from the config, or a Go template")
	listCmd.Flags().StringVar(&listOpts.field, "field", "",
		"Output a single field per script (host, name, source, preview, lines)")
	listCmd.Flags().BoolVar(&listOpts.noIndex, "no-index", false,
		"Hide the index column in dmenu output")
}

func runList(cmd *cobra.Command, args []string) error {
	format := output.FormatType(listOpts.format)
	if !slices.Contains(output.FormatTypes(), format) {
		return fmt.Errorf("unknown format %q, must be one of: %v", listOpts.format, output.FormatTypes())
	}

	scripts, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) > 0 {
		host, err := hostArg(args[0])
		if err != nil {
			return err
		}
		scripts = model.ScriptStore{host: scripts.Scripts(host)}
	}

	entries, err := selectEntries(scripts.Entries())
	if err != nil {
		return err
	}
	logger.Debug("listing scripts", "count", len(entries))

	if listOpts.field != "" {
		for _, e := range entries {
			fmt.Println(output.FormatField(e, listOpts.field))
		}
		return nil
	}

	opts := output.DefaultFormatterOptions()
	opts.ShowIndex = !listOpts.noIndex
	opts.Template = resolveTemplate(listOpts.template)

	return output.NewFormatter(format, opts).Format(os.Stdout, entries)
}

func runHosts(cmd *cobra.Command, args []string) error {
	scripts, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}

	for _, host := range scripts.Hosts() {
		fmt.Printf("%s\t%d\n", host, len(scripts[host]))
	}
	return nil
}

// selectEntries applies the filter, search, sort and limit flags.
func selectEntries(entries []model.Entry) ([]model.Entry, error) {
	expr, err := core.ParseFilter(listOpts.filter)
	if err != nil {
		return nil, err
	}
	entries = core.FilterWithExpr(entries, expr)

	core.Sort(entries, core.SortOptions{
		Field: core.ParseSortField(listOpts.sortBy),
		Order: core.ParseSortOrder(listOpts.sortOrder),
	})

	return core.Filter(entries, core.FilterOptions{
		Search: listOpts.search,
		Limit:  listOpts.limit,
	}), nil
}

// resolveTemplate returns the named config template, or name itself when
// no template by that name exists.
func resolveTemplate(name string) string {
	if name == "" {
		return ""
	}
	if tmpl := getConfig().GetTemplate(name); tmpl != "" {
		return tmpl
	}
	return name
}
