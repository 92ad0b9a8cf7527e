/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutrabajo/apiserver/config"
	"github.com/tutrabajo/apiserver/internal/backup"
	"github.com/tutrabajo/apiserver/internal/db"
	"github.com/tutrabajo/apiserver/internal/logger"
	"github.com/tutrabajo/apiserver/internal/storage"
	"github.com/tutrabajo/apiserver/internal/store"
)

var backupKeep int

// backupCmd groups the CV snapshot commands.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage encrypted CV snapshots in object storage",
}

var backupCVsCmd = &cobra.Command{
	Use:   "cvs",
	Short: "Upload a snapshot of the cvs table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(cmd, func(b *backup.CVBackup) error {
			res, err := b.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", res.Key, res.Rows)
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Insert the CVs of a snapshot that are missing from the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(cmd, func(b *backup.CVBackup) error {
			res, err := b.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d, skipped %d\n", res.Rows, res.Skipped)
			return nil
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(cmd, func(b *backup.CVBackup) error {
			keys, err := b.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		})
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(cmd, func(b *backup.CVBackup) error {
			deleted, err := b.Prune(cmd.Context(), backupKeep)
			for _, key := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			}
			return err
		})
	},
}

func withBackup(cmd *cobra.Command, fn func(b *backup.CVBackup) error) error {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel)

	objects, err := storage.New(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}

	conn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	recordStore := store.New(conn, store.DialectForDriver(db.Driver(cfg.Database)))
	return fn(backup.NewCVBackup(recordStore, objects, cfg.Storage.Prefix, log))
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCVsCmd, backupRestoreCmd, backupListCmd, backupPruneCmd)

	backupPruneCmd.Flags().IntVar(&backupKeep, "keep", 7, "Number of snapshots to keep")
}
