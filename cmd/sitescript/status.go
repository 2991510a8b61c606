package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/store"
)

var statusOpts struct {
	json bool
}

// StoreStatus describes the script store.
type StoreStatus struct {
	Backend  string    `json:"backend"`
	Path     string    `json:"path"`
	Key      string    `json:"key,omitempty"`
	Exists   bool      `json:"exists"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified,omitzero"`
	Hosts    int       `json:"hosts"`
	Scripts  int       `json:"scripts"`
	Readable bool      `json:"readable"`
	Error    string    `json:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where scripts are stored and how many there are",
	Long: `Show the storage backend, its location, the snapshot size and age,
and how many hosts and scripts it holds.

An unreadable snapshot is reported rather than treated as an error;
see "sitescript recover".`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false,
		"Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st := getStore()
	p := st.Persistence()

	status := StoreStatus{
		Backend:  getConfig().Storage.Backend,
		Path:     p.Path(),
		Readable: true,
	}
	if sp, ok := p.(*store.SQLitePersistence); ok {
		status.Key = sp.Key()
	}

	info, err := p.Stat(ctx)
	if err != nil {
		return fmt.Errorf("failed to stat store: %w", err)
	}
	status.Exists = info.Exists
	status.Size = info.Size
	status.Modified = info.ModTime

	scripts, err := st.Load(ctx)
	var decodeErr *store.DeserializationError
	switch {
	case errors.As(err, &decodeErr):
		status.Readable = false
		status.Error = decodeErr.Error()
	case err != nil:
		return err
	}
	status.Hosts = len(scripts.Hosts())
	status.Scripts = scripts.Count()

	if statusOpts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Printf("Backend:  %s\n", status.Backend)
	fmt.Printf("Path:     %s\n", status.Path)
	if status.Key != "" {
		fmt.Printf("Key:      %s\n", status.Key)
	}
	if !status.Exists {
		fmt.Println("Snapshot: not saved yet")
	} else {
		fmt.Printf("Snapshot: %s, modified %s\n",
			humanize.Bytes(uint64(status.Size)), humanize.Time(status.Modified))
	}
	fmt.Printf("Hosts:    %d\n", status.Hosts)
	fmt.Printf("Scripts:  %d\n", status.Scripts)
	if !status.Readable {
		fmt.Printf("Warning:  %s\n", status.Error)
	}
	return nil
}
