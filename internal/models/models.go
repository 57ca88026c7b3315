package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmailQuery is the transient per-request input to the triage pipeline.
// Sender is required; subject and content may be empty.
type EmailQuery struct {
	Sender  string `json:"sender" binding:"required"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// EmailRecord mirrors the metadata stored alongside each vector in the index.
// All fields are string-typed, including the timestamp, matching the persisted
// schema written by ingestion and read back by retrieval.
type EmailRecord struct {
	ID                string `json:"id"`
	Subject           string `json:"subject"`
	Content           string `json:"content"`
	Sender            string `json:"sender"`
	Timestamp         string `json:"timestamp"`
	Category          string `json:"category"`
	Summary           string `json:"summary"`
	SuggestedResponse string `json:"suggested_response"`
	ThreadID          string `json:"thread_id"`
}

// EmailVector pairs a record with its embedding for an index upsert.
type EmailVector struct {
	ID     string
	Vector pgvector.Vector
	Record EmailRecord
}

// Match is one retrieved nearest neighbor. Score is a similarity (higher is
// more similar, conventionally in [0,1] for cosine). Immutable once produced
// by a retrieval call.
type Match struct {
	ID                string  `json:"id"`
	Score             float64 `json:"score"`
	Category          string  `json:"category"`
	SuggestedResponse string  `json:"suggested_response"`
	Subject           string  `json:"subject"`
	Sender            string  `json:"sender"`
	Summary           string  `json:"summary"`
}

// EmailEcho is the input echo included in the final result. Content is
// truncated to a preview by the pipeline.
type EmailEcho struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Classification is the category decision block of the final result.
type Classification struct {
	MainCategory  string             `json:"main_category"`
	Confidence    float64            `json:"confidence"`
	IsConfident   bool               `json:"is_confident"`
	AllCategories map[string]float64 `json:"all_categories"`
	Summary       string             `json:"summary"`
}

// ResponseBlock carries the synthesized reply and the evidence behind it.
type ResponseBlock struct {
	Suggested         string  `json:"suggested"`
	BasedOnCandidates int     `json:"based_on_candidates"`
	AverageSimilarity float64 `json:"average_similarity"`
}

// ResultMetadata describes how the result was produced.
type ResultMetadata struct {
	TotalMatches   int    `json:"total_matches"`
	EmbeddingModel string `json:"embedding_model"`
}

// EmailResult is the composite output of a successful pipeline run.
type EmailResult struct {
	Email          EmailEcho      `json:"email"`
	Classification Classification `json:"classification"`
	Response       ResponseBlock  `json:"response"`
	Metadata       ResultMetadata `json:"metadata"`
}

// ProcessedEmail is one row of the processing history kept in Postgres.
type ProcessedEmail struct {
	ID            int64     `json:"id" db:"id"`
	Sender        string    `json:"sender" db:"sender"`
	Subject       string    `json:"subject" db:"subject"`
	MainCategory  string    `json:"main_category" db:"main_category"`
	Confidence    float64   `json:"confidence" db:"confidence"`
	IsConfident   bool      `json:"is_confident" db:"is_confident"`
	TotalMatches  int       `json:"total_matches" db:"total_matches"`
	ResponseChars int       `json:"response_chars" db:"response_chars"`
	ProcessedAt   time.Time `json:"processed_at" db:"processed_at"`
}
