package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitescript/internal/config"
	"github.com/jmylchreest/sitescript/internal/store"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Move an unreadable scripts file aside",
	Long: `Check the scripts file and, if it cannot be parsed, rename it to
<path>.corrupted.<timestamp> so the next save starts from an empty store.

Until then, the editor treats an unreadable file as an empty store and the
next completed session overwrites it. Run this first to keep a copy.

Only the file backend is supported.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	c := getConfig()
	if c.Storage.Backend != config.BackendFile {
		return fmt.Errorf("recover only supports the %s backend, not %s", config.BackendFile, c.Storage.Backend)
	}

	path := c.StorePath()
	backup, err := store.RecoverFromCorruption(path)
	if err != nil {
		return err
	}
	if backup == "" {
		fmt.Printf("%s is readable, nothing to do\n", path)
		return nil
	}

	logger.Info("moved unreadable scripts file", "path", path, "backup", backup)
	fmt.Printf("Moved unreadable %s to %s\n", path, backup)
	return nil
}
