// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/folio/internal/identity"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload queued sessions once",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		report, err := a.engine.SyncPending(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	}),
}

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Upload matched archive sessions that were never synced",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		report, err := a.engine.ResyncHistorical(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	}),
}

var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Resolve archived books that have no remote id, then upload them",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		report, err := a.engine.RematchHistorical(ctx)
		if err != nil {
			return err
		}
		drain(ctx, a)
		return printJSON(cmd.OutOrStdout(), report)
	}),
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Rebuild reading sessions from the host statistics database",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		if _, err := a.engine.ExtractHistory(ctx); err != nil {
			return err
		}
		drain(ctx, a)
		return printJSON(cmd.OutOrStdout(), a.engine.Extraction())
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue, archive and engine state",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		status, err := a.engine.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), status)
	}),
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check that the server is reachable and accepts the credentials",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		report, err := a.engine.TestConnection(ctx)
		if report != nil {
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
		}
		return err
	}),
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <file>",
	Short: "Print the content hash used to identify a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := identity.Fingerprint(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return err
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or modify the pending queue",
}

var queueClearYes bool

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every pending session",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app) error {
		if !queueClearYes {
			return errors.New("refusing to delete queued sessions without --yes")
		}
		n, err := a.engine.ClearQueue(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d pending sessions\n", n)
		return err
	}),
}

func init() {
	queueClearCmd.Flags().BoolVar(&queueClearYes, "yes", false, "confirm deletion")
	queueCmd.AddCommand(queueClearCmd)
}

// drain runs queued engine tasks to completion. Outside `serve` nothing
// else shares the engine, so no loop is needed.
func drain(ctx context.Context, a *app) {
	for a.engine.Tick(ctx) {
		if ctx.Err() != nil {
			a.engine.CancelTasks(ctx)
			return
		}
	}
}
