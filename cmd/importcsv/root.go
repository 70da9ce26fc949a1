package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/JonMunkholm/autoimport/internal/bootstrap"
	"github.com/JonMunkholm/autoimport/internal/config"
	"github.com/JonMunkholm/autoimport/internal/core"
	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/JonMunkholm/autoimport/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app holds what the subcommands share once the root pre-run has set it up.
type app struct {
	envFile string
	cfg     *config.Config
	store   docstore.Store
	service *core.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "importcsv",
		Short: "Import car CSV files into the document store",
		Long: `importcsv loads automobile CSV files into the configured document store.

Configuration comes from the environment (and a .env file), exactly as for
the server: STORE_DRIVER, DATABASE_URL, STORE_PATH, STORE_COLLECTION,
IMPORT_BATCH_SIZE, IMPORT_NUMERIC_FIELDS and so on.

Examples:
  importcsv load data/cars.csv                 # Import with the default batch size
  importcsv load data/cars.csv --batch-size 100
  importcsv count                              # Documents in the collection
  importcsv purge --yes                        # Delete every document`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load before reading configuration")

	root.AddCommand(newLoadCmd(a))
	root.AddCommand(newCountCmd(a))
	root.AddCommand(newPurgeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Overload(a.envFile); err != nil {
		// A missing default .env is normal; a missing named one is not.
		if cmd.Flags().Changed("env-file") || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Logs go to stderr so stdout carries only command output.
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))

	store, err := bootstrap.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.store = store

	service, err := bootstrap.NewService(store, cfg)
	if err != nil {
		a.close()
		return err
	}
	a.service = service
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// closeOnError wraps a RunE so the store is closed even when the command
// fails, since cobra skips PersistentPostRunE after an error.
func (a *app) closeOnError(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := run(cmd, args); err != nil {
			a.close()
			return err
		}
		return nil
	}
}
