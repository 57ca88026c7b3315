package store

import (
	"context"

	"mailpilot/internal/models"

	"github.com/hibiken/asynq"
	"github.com/pgvector/pgvector-go"
)

// --- Provider Status ---

type ProviderStatus int

const (
	ProviderStatusUnknown  ProviderStatus = iota // Default zero value
	ProviderStatusActive                         // Provider is operational
	ProviderStatusInactive                       // Provider is temporarily unavailable (e.g., network, rate limit)
	ProviderStatusDisabled                       // Provider is not configured or explicitly disabled
)

// --- Vector Index ---

// VectorStore is the vector-index boundary: upserts email vectors with their
// metadata and answers nearest-neighbor queries ordered by descending
// similarity.
type VectorStore interface {
	// EnsureSchema is an idempotent create-if-absent for the index table and
	// its similarity index, followed by a readiness check.
	EnsureSchema(ctx context.Context, dimension int) error
	UpsertBatch(ctx context.Context, vectors []models.EmailVector) error
	SimilaritySearch(ctx context.Context, queryVector pgvector.Vector, k int) ([]models.Match, error)

	Ping(ctx context.Context) error
	Close() error
}

// --- Embedding Service ---

type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	Dimension() int
	ModelName() string
	Name() string
	Status() ProviderStatus
}

// --- Processing History ---

type HistoryStore interface {
	RecordProcessedEmail(ctx context.Context, entry *models.ProcessedEmail) error
	ListProcessedEmails(ctx context.Context, limit int) ([]*models.ProcessedEmail, error)

	Ping(ctx context.Context) error
	Close() error
}

// --- Job Client ---

type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueIngestJob(ctx context.Context, path string) error
	Close() error
}
