package store

import (
	"context"
	"encoding/json"
	"fmt"

	"mailpilot/internal/tasks"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// AsynqJobClient is a concrete JobClient that enqueues ingestion tasks onto
// Redis for the worker process.
type AsynqJobClient struct {
	client *asynq.Client
}

var _ JobClient = (*AsynqJobClient)(nil)

func NewAsynqJobClient(redisAddr, redisPassword string, redisDB int) (*AsynqJobClient, error) {
	if redisAddr == "" {
		return nil, fmt.Errorf("redis address cannot be empty for AsynqJobClient")
	}
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &AsynqJobClient{client: cli}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue enqueues an arbitrary task.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		log.Errorf("Failed to enqueue task type '%s': %v", task.Type(), err)
		return nil, err
	}
	log.Debugf("Enqueued task type '%s' (id=%s, queue=%s)", task.Type(), info.ID, info.Queue)
	return info, nil
}

// EnqueueIngestJob enqueues a file-load task for the background worker.
func (jc *AsynqJobClient) EnqueueIngestJob(ctx context.Context, path string) error {
	payload, err := json.Marshal(tasks.IngestPayload{Path: path})
	if err != nil {
		return fmt.Errorf("marshal ingest payload: %w", err)
	}
	task := asynq.NewTask(tasks.TypeIngestJob, payload)
	if _, err := jc.Enqueue(ctx, task, asynq.Queue("ingest")); err != nil {
		return fmt.Errorf("enqueue ingest job for %q: %w", path, err)
	}
	return nil
}
