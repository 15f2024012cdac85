// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

// configPath is the --config flag.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Reading session sync for e-reader hosts",
	Long: `folio records reading sessions, keeps them in a local queue and uploads
them to a reading-tracking server whenever it can be reached.`,
	Version:       version + " (" + commit + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $CONFIG_PATH, ./config.yaml, /etc/folio/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(rematchCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(queueCmd)
}

// Execute runs the root command. Errors are logged before returning.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		return err
	}
	return nil
}

// loadConfig reads configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithKoanf(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Caller:     cfg.Logging.Caller,
		Timestamp:  true,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	return cfg, nil
}

// withApp wraps a command that needs the wired application.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logging.Close() }()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := logging.ContextWithNewCorrelationID(cmd.Context())
		return fn(ctx, cmd, a)
	}
}

// printJSON writes v indented to w.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
