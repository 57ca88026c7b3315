package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"mailpilot/internal/services"
	"mailpilot/internal/tasks"
)

// IngestDeps holds what the ingest task handler needs.
type IngestDeps struct {
	IngestService *services.IngestService
}

// RegisterHandlers wires the task handlers onto the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps IngestDeps) {
	mux.HandleFunc(tasks.TypeIngestJob, HandleIngestJob(deps))
}

// HandleIngestJob loads the file named in the payload into the vector index.
func HandleIngestJob(deps IngestDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload tasks.IngestPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal ingest payload: %w", err)
		}
		if payload.Path == "" {
			return fmt.Errorf("ingest payload has no path")
		}

		log.Infof("Ingest job started for %s", payload.Path)
		report, err := deps.IngestService.LoadFile(ctx, payload.Path)
		if err != nil {
			return fmt.Errorf("ingest job for %q: %w", payload.Path, err)
		}
		log.Infof("Ingest job finished for %s: %d loaded, %d skipped", payload.Path, report.Loaded, report.Skipped)
		return nil
	}
}
