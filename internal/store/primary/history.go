package primary

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

// HistoryStoreImpl persists one row per processed email in Postgres. It is
// diagnostic data only: writes are best-effort and callers log rather than
// fail when recording errors out.
type HistoryStoreImpl struct {
	db *pgxpool.Pool
}

var _ store.HistoryStore = (*HistoryStoreImpl)(nil)

func NewHistoryStore(ctx context.Context, dsn string) (*HistoryStoreImpl, error) {
	if dsn == "" {
		return nil, fmt.Errorf("history store DSN cannot be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse history store DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	hs := &HistoryStoreImpl{db: pool}
	if err := hs.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("Connected to PostgreSQL history store.")
	return hs, nil
}

func (hs *HistoryStoreImpl) ensureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS processed_emails (
		id BIGSERIAL PRIMARY KEY,
		sender TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		main_category TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_confident BOOLEAN NOT NULL DEFAULT false,
		total_matches INTEGER NOT NULL DEFAULT 0,
		response_chars INTEGER NOT NULL DEFAULT 0,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := hs.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		hs.db.Close()
	}
	return nil
}

func (hs *HistoryStoreImpl) Ping(ctx context.Context) error {
	if hs.db == nil {
		return fmt.Errorf("history store connection is not initialized")
	}
	return hs.db.Ping(ctx)
}

func (hs *HistoryStoreImpl) RecordProcessedEmail(ctx context.Context, entry *models.ProcessedEmail) error {
	query := `INSERT INTO processed_emails
		(sender, subject, main_category, confidence, is_confident, total_matches, response_chars)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, processed_at`
	err := hs.db.QueryRow(ctx, query, entry.Sender, entry.Subject, entry.MainCategory,
		entry.Confidence, entry.IsConfident, entry.TotalMatches, entry.ResponseChars).
		Scan(&entry.ID, &entry.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record processed email: %w", err)
	}
	return nil
}

func (hs *HistoryStoreImpl) ListProcessedEmails(ctx context.Context, limit int) ([]*models.ProcessedEmail, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, sender, subject, main_category, confidence, is_confident,
			total_matches, response_chars, processed_at
		FROM processed_emails
		ORDER BY processed_at DESC
		LIMIT $1`
	rows, err := hs.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list processed emails: %w", err)
	}
	defer rows.Close()

	var entries []*models.ProcessedEmail
	for rows.Next() {
		e := &models.ProcessedEmail{}
		if err := rows.Scan(&e.ID, &e.Sender, &e.Subject, &e.MainCategory, &e.Confidence,
			&e.IsConfident, &e.TotalMatches, &e.ResponseChars, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan processed email row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed email rows: %w", err)
	}
	return entries, nil
}
