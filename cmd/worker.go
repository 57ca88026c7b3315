package cmd

import (
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mailpilot/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background ingest worker",
	Long:  `Starts an asynq worker that processes queued ingest jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		defer appInstance.Close()

		cfg := appInstance.Config
		srv := asynq.NewServer(
			asynq.RedisClientOpt{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			},
			asynq.Config{
				Concurrency: cfg.Worker.Concurrency,
				Queues:      cfg.Worker.Queues,
			},
		)

		mux := asynq.NewServeMux()
		worker.RegisterHandlers(mux, worker.IngestDeps{
			IngestService: appInstance.IngestService,
		})

		log.Infof("Starting worker with concurrency %d", cfg.Worker.Concurrency)
		if err := srv.Run(mux); err != nil {
			return fmt.Errorf("worker exited: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
