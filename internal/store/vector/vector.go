package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

// StoreImpl is the Postgres/pgvector implementation of store.VectorStore.
// Rows hold one historical email each: its embedding plus the string-typed
// metadata read back at retrieval time.
type StoreImpl struct {
	db *pgxpool.Pool
}

var _ store.VectorStore = (*StoreImpl)(nil)

func NewStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, fmt.Errorf("vector store DSN cannot be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector store DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping vector store: %w", err)
	}
	log.Info("Connected to PostgreSQL vector store.")
	return &StoreImpl{db: pool}, nil
}

func (vs *StoreImpl) Close() error {
	if vs.db != nil {
		log.Debug("Closing PostgreSQL vector store connection...")
		vs.db.Close()
	}
	return nil
}

func (vs *StoreImpl) Ping(ctx context.Context) error {
	if vs.db == nil {
		return fmt.Errorf("vector store connection is not initialized")
	}
	return vs.db.Ping(ctx)
}

// EnsureSchema creates the email vector table and its cosine index if absent,
// then verifies the store answers queries. The dimension is fixed by the
// embedding model and must match what ingestion writes.
func (vs *StoreImpl) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS email_vectors (
			id TEXT PRIMARY KEY,
			vector vector(%d) NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			sender TEXT NOT NULL DEFAULT '',
			email_timestamp TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			suggested_response TEXT NOT NULL DEFAULT '',
			thread_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS email_vectors_vector_idx
			ON email_vectors USING ivfflat (vector vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := vs.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure vector schema: %w", err)
		}
	}
	// Readiness check: the table must be queryable before ingestion proceeds.
	var count int64
	if err := vs.db.QueryRow(ctx, `SELECT count(*) FROM email_vectors`).Scan(&count); err != nil {
		return fmt.Errorf("vector schema readiness check: %w", err)
	}
	log.Infof("Vector index ready (dimension %d, %d records).", dimension, count)
	return nil
}

// UpsertBatch writes a batch of email vectors, replacing rows with the same id.
func (vs *StoreImpl) UpsertBatch(ctx context.Context, vectors []models.EmailVector) error {
	if len(vectors) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `INSERT INTO email_vectors
		(id, vector, subject, content, sender, email_timestamp, category, summary, suggested_response, thread_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			vector = EXCLUDED.vector,
			subject = EXCLUDED.subject,
			content = EXCLUDED.content,
			sender = EXCLUDED.sender,
			email_timestamp = EXCLUDED.email_timestamp,
			category = EXCLUDED.category,
			summary = EXCLUDED.summary,
			suggested_response = EXCLUDED.suggested_response,
			thread_id = EXCLUDED.thread_id`
	for _, v := range vectors {
		r := v.Record
		batch.Queue(query, v.ID, v.Vector, r.Subject, r.Content, r.Sender,
			r.Timestamp, r.Category, r.Summary, r.SuggestedResponse, r.ThreadID)
	}
	results := vs.db.SendBatch(ctx, batch)
	defer results.Close()
	for range vectors {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert email vector batch: %w", err)
		}
	}
	return nil
}

// SimilaritySearch returns the k nearest neighbors by cosine similarity,
// most similar first. Scores are 1 - cosine distance, so higher is closer.
func (vs *StoreImpl) SimilaritySearch(ctx context.Context, queryVector pgvector.Vector, k int) ([]models.Match, error) {
	query := `SELECT id, 1 - (vector <=> $1) AS score,
			category, suggested_response, subject, sender, summary
		FROM email_vectors
		ORDER BY vector <=> $1
		LIMIT $2`

	rows, err := vs.db.Query(ctx, query, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search query: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Score, &m.Category, &m.SuggestedResponse,
			&m.Subject, &m.Sender, &m.Summary); err != nil {
			return nil, fmt.Errorf("scan similarity search row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similarity search rows: %w", err)
	}
	return matches, nil
}
