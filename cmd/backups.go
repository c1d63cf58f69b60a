package main

import (
	"context"
	"encoding/json"

	"github.com/jerry-enebeli/vanta/internal/backups"

	"github.com/sirupsen/logrus"

	"github.com/spf13/cobra"
)

func backupCommands(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "back up the link ledger",
	}

	cmd.AddCommand(backupToCommands(v))
	cmd.AddCommand(backupToS3Commands(v))

	return cmd
}

func exportDocument(v *vantaInstance) ([]byte, error) {
	document, err := v.vanta.ExportLinks(context.Background())
	if err != nil {
		return nil, err
	}
	return json.Marshal(document)
}

func backupToCommands(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "drive",
		Run: func(cmd *cobra.Command, args []string) {
			document, err := exportDocument(v)
			if err != nil {
				logrus.Error(err)
				return
			}
			path, err := backups.BackupToDisk(document)
			if err != nil {
				logrus.Error(err)
				return
			}
			logrus.Infof("backup written to %s", path)
		},
	}

	return cmd
}

func backupToS3Commands(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "s3",
		Run: func(cmd *cobra.Command, args []string) {
			document, err := exportDocument(v)
			if err != nil {
				logrus.Error(err)
				return
			}
			if err := backups.BackupToS3(context.Background(), document); err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}
