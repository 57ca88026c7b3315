package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Total   int
	Loaded  int
	Skipped int
	Batches int
}

// IngestService loads historical email records from a JSON file, embeds their
// content, and upserts them into the vector index in paced batches. It runs
// sequentially; the inter-batch delay is the system's backpressure toward
// upstream rate limits.
type IngestService struct {
	embedding  store.EmbeddingService
	vector     store.VectorStore
	batchSize  int
	batchDelay time.Duration
}

func NewIngestService(es store.EmbeddingService, vs store.VectorStore, batchSize int, batchDelay time.Duration) *IngestService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if batchDelay < 0 {
		batchDelay = 0
	}
	return &IngestService{
		embedding:  es,
		vector:     vs,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// LoadFile reads a JSON array of email records and ingests them, ensuring the
// index schema exists first.
func (s *IngestService) LoadFile(ctx context.Context, path string) (*IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file %q: %w", path, err)
	}
	var records []models.EmailRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse data file %q: %w", path, err)
	}

	if err := s.vector.EnsureSchema(ctx, s.embedding.Dimension()); err != nil {
		return nil, fmt.Errorf("ensure vector schema: %w", err)
	}

	log.Infof("Ingesting %d email records from %s...", len(records), path)
	return s.ingestRecords(ctx, records)
}

// ingestRecords embeds each record's content and flushes batches of at most
// batchSize vectors. Records whose embedding fails are skipped, not fatal.
func (s *IngestService) ingestRecords(ctx context.Context, records []models.EmailRecord) (*IngestReport, error) {
	report := &IngestReport{Total: len(records)}
	batch := make([]models.EmailVector, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.vector.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch of %d vectors: %w", len(batch), err)
		}
		report.Loaded += len(batch)
		report.Batches++
		batch = batch[:0]
		return nil
	}

	for _, record := range records {
		if ctx.Err() != nil {
			return report, fmt.Errorf("ingestion cancelled: %w", ctx.Err())
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}

		vec, err := s.embedding.GenerateEmbedding(ctx, record.Content)
		if err != nil {
			log.Warnf("Skipping record %s: embedding failed: %v", record.ID, err)
			report.Skipped++
			continue
		}

		batch = append(batch, models.EmailVector{ID: record.ID, Vector: vec, Record: record})
		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
			// Pace batches to respect upstream rate limits.
			select {
			case <-time.After(s.batchDelay):
			case <-ctx.Done():
				return report, fmt.Errorf("ingestion cancelled: %w", ctx.Err())
			}
		}
	}

	if err := flush(); err != nil {
		return report, err
	}
	log.Infof("Ingestion complete: %d loaded, %d skipped, %d batches.", report.Loaded, report.Skipped, report.Batches)
	return report, nil
}
