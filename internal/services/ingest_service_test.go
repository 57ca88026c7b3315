package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

// flakyEmbedding fails for content listed in failFor, otherwise returns a
// fixed vector.
type flakyEmbedding struct {
	failFor map[string]bool
}

func (f *flakyEmbedding) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	if f.failFor[text] {
		return pgvector.Vector{}, errors.New("embedding unavailable")
	}
	return pgvector.NewVector([]float32{0.1, 0.2}), nil
}

func (f *flakyEmbedding) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	out := make([]pgvector.Vector, 0, len(texts))
	for _, text := range texts {
		v, err := f.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *flakyEmbedding) Dimension() int               { return 2 }
func (f *flakyEmbedding) ModelName() string            { return "fake-embedding-model" }
func (f *flakyEmbedding) Name() string                 { return "fake" }
func (f *flakyEmbedding) Status() store.ProviderStatus { return store.ProviderStatusActive }

func writeRecordsFile(t *testing.T, records []models.EmailRecord) string {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "emails.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadFileBatchesAndFlushes(t *testing.T) {
	records := []models.EmailRecord{
		{ID: "1", Content: "one", Category: "A"},
		{ID: "2", Content: "two", Category: "B"},
		{ID: "3", Content: "three", Category: "A"},
		{ID: "4", Content: "four", Category: "C"},
		{ID: "5", Content: "five", Category: "B"},
	}
	path := writeRecordsFile(t, records)

	vs := &fakeVectorStore{}
	svc := NewIngestService(&flakyEmbedding{}, vs, 2, 0)

	report, err := svc.LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Loaded)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 3, report.Batches)

	require.Len(t, vs.upserts, 3)
	assert.Len(t, vs.upserts[0], 2)
	assert.Len(t, vs.upserts[1], 2)
	assert.Len(t, vs.upserts[2], 1)
	assert.Equal(t, 2, vs.ensuredDim)
}

func TestLoadFileSkipsFailedEmbeddings(t *testing.T) {
	records := []models.EmailRecord{
		{ID: "1", Content: "good"},
		{ID: "2", Content: "bad"},
		{ID: "3", Content: "good again"},
	}
	path := writeRecordsFile(t, records)

	vs := &fakeVectorStore{}
	emb := &flakyEmbedding{failFor: map[string]bool{"bad": true}}
	svc := NewIngestService(emb, vs, 100, 0)

	report, err := svc.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Batches)
}

func TestLoadFileAssignsMissingIDs(t *testing.T) {
	records := []models.EmailRecord{{Content: "no id"}}
	path := writeRecordsFile(t, records)

	vs := &fakeVectorStore{}
	svc := NewIngestService(&flakyEmbedding{}, vs, 100, 0)

	_, err := svc.LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, vs.upserts, 1)
	assert.NotEmpty(t, vs.upserts[0][0].ID)
}

func TestLoadFileUpsertErrorStops(t *testing.T) {
	records := []models.EmailRecord{{ID: "1", Content: "one"}}
	path := writeRecordsFile(t, records)

	vs := &fakeVectorStore{upsertErr: errors.New("connection reset")}
	svc := NewIngestService(&flakyEmbedding{}, vs, 100, 0)

	_, err := svc.LoadFile(context.Background(), path)
	assert.Error(t, err)
}

func TestLoadFileMissingFile(t *testing.T) {
	svc := NewIngestService(&flakyEmbedding{}, &fakeVectorStore{}, 100, 0)
	_, err := svc.LoadFile(context.Background(), "/does/not/exist.json")
	assert.Error(t, err)
}

func TestLoadFileMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	svc := NewIngestService(&flakyEmbedding{}, &fakeVectorStore{}, 100, 0)
	_, err := svc.LoadFile(context.Background(), path)
	assert.Error(t, err)
}
