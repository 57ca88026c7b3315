package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var loadEnqueue bool

var loadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Load a JSON file of historical emails into the vector store",
	Long: `Reads a JSON array of historical emails, embeds each one and upserts
the vectors in batches. With --enqueue the file is handed to a background
worker instead of being processed inline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		defer appInstance.Close()

		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path %q: %w", args[0], err)
		}

		if loadEnqueue {
			if appInstance.JobClient == nil {
				return fmt.Errorf("job queue not configured, cannot enqueue")
			}
			if err := appInstance.JobClient.EnqueueIngestJob(ctx, path); err != nil {
				return fmt.Errorf("failed to enqueue ingest job: %w", err)
			}
			color.Green("Enqueued ingest job for %s", path)
			return nil
		}

		log.Infof("Loading emails from %s", path)
		report, err := appInstance.IngestService.LoadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}

		color.Green("Loaded %d/%d emails in %d batches (%d skipped)",
			report.Loaded, report.Total, report.Batches, report.Skipped)
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadEnqueue, "enqueue", false, "enqueue the file for a background worker instead of loading inline")
	rootCmd.AddCommand(loadCmd)
}
