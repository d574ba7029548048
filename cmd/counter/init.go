package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/counter/internal/config"
	"github.com/vango-dev/counter/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		backend string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a counter.json with default settings",
		Long: `Write a counter.json with default settings into dir (default: the
current directory).

Examples:
  counter init
  counter init ./data --backend=sqlite`,
		Args: cobra.MaximumNArgs(1),
		// init runs before any config exists.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := runInit(dir, backend, force)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&backend, "backend", "b", config.DefaultBackend, "Persistence backend (memory, file, sqlite, redis)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing counter.json")

	return cmd
}

func runInit(dir, backend string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New("E101").Wrap(err)
	}
	path := filepath.Join(dir, config.ConfigFileName)
	if !force && config.Exists(dir) {
		return "", errors.New("E106").
			WithDetail(path + " already exists").
			WithSuggestion("Use --force to overwrite it")
	}

	cfg := config.New()
	cfg.Persist.Backend = strings.ToLower(backend)
	if cfg.Persist.Backend != config.BackendFile {
		cfg.Persist.Dir = ""
	}
	switch cfg.Persist.Backend {
	case config.BackendSQLite:
		cfg.Persist.DSN = "counter.db"
	case config.BackendRedis:
		cfg.Persist.Addr = "localhost:6379"
		cfg.Persist.Prefix = "counter:"
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := cfg.SaveTo(path); err != nil {
		return "", err
	}
	return path, nil
}
