package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/store"
)

var createBackupCmd = &cobra.Command{
	Use:   "create-backup",
	Short: "Snapshot the database into database.backup_path",
	Args:  cobra.NoArgs,
	RunE:  runCreateBackup,
}

func init() {
	rootCmd.AddCommand(createBackupCmd)
}

func runCreateBackup(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.Open(cfg.MustGet("database.path").String())
	if err != nil {
		return err
	}
	defer db.Close()

	path, err := db.CreateBackup(cfg.MustGet("database.backup_path").String())
	if err != nil {
		return err
	}
	log.Info("backup created", zap.String("path", path))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
