// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/AleutianAI/pixelgp/pkg/ux"
	"github.com/AleutianAI/pixelgp/pkg/validation"
	"github.com/AleutianAI/pixelgp/services/evolve/storage/badger"
	"github.com/spf13/cobra"
)

func newRunsCmd(root *rootOptions) *cobra.Command {
	var dbPath, deleteID string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in the run store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deleteID != "" {
				id, err := validation.SanitizeRunID(deleteID)
				if err != nil {
					return err
				}
				deleteID = id
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Storage.Path
			}
			log, err := newLogger(cfg.Observability, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer log.Close()

			db, err := openStore(dbPath, log.Slog())
			if err != nil {
				return err
			}
			defer db.Close()

			store := badger.NewRunStore(db, log.Slog())
			if deleteID != "" {
				if err := store.DeleteRun(cmd.Context(), deleteID); err != nil {
					return fmt.Errorf("delete run %s: %w", deleteID, err)
				}
				ux.NewPrinter(cmd.OutOrStdout()).Success("deleted run " + deleteID)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Run store directory (default from config)")
	cmd.Flags().StringVar(&deleteID, "delete", "", "Delete the run with this ID instead of listing")
	return cmd
}

// printRuns writes one line per run, newest first.
func printRuns(w io.Writer, runs []badger.RunMeta) {
	p := ux.NewPrinter(w)
	if len(runs) == 0 {
		p.Info("no runs recorded")
		return
	}
	for _, r := range runs {
		p.Raw(fmt.Sprintf("%s  %-9s  gens=%-4d best=%s  started=%s",
			r.ID,
			r.Status,
			r.Generations,
			strconv.FormatFloat(r.BestFitness, 'f', 4, 64),
			r.StartedAt.Local().Format(time.DateTime),
		))
	}
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath  string
		channel int
	)

	cmd := &cobra.Command{
		Use:   "inspect RUN_ID",
		Short: "Show a recorded run and dump its best program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := validation.SanitizeRunID(args[0])
			if err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Storage.Path
			}
			log, err := newLogger(cfg.Observability, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer log.Close()

			db, err := openStore(dbPath, log.Slog())
			if err != nil {
				return err
			}
			defer db.Close()

			return inspectRun(cmd.Context(), badger.NewRunStore(db, log.Slog()), id, channel, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Run store directory (default from config)")
	cmd.Flags().IntVar(&channel, "channel", -1, "Dump only this channel (0 red, 1 green, 2 blue)")
	return cmd
}
