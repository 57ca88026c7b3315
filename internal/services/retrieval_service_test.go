package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

type fakeEmbeddingService struct {
	vec       pgvector.Vector
	err       error
	dimension int
	lastText  string
}

func (f *fakeEmbeddingService) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	f.lastText = text
	return f.vec, f.err
}

func (f *fakeEmbeddingService) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	out := make([]pgvector.Vector, len(texts))
	for i := range texts {
		if f.err != nil {
			return nil, f.err
		}
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbeddingService) Dimension() int { return f.dimension }
func (f *fakeEmbeddingService) ModelName() string {
	return "fake-embedding-model"
}
func (f *fakeEmbeddingService) Name() string                 { return "fake" }
func (f *fakeEmbeddingService) Status() store.ProviderStatus { return store.ProviderStatusActive }

type fakeVectorStore struct {
	matches   []models.Match
	searchErr error
	lastK     int

	ensuredDim int
	upserts    [][]models.EmailVector
	upsertErr  error
}

func (f *fakeVectorStore) EnsureSchema(ctx context.Context, dimension int) error {
	f.ensuredDim = dimension
	return nil
}

func (f *fakeVectorStore) UpsertBatch(ctx context.Context, vectors []models.EmailVector) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	batch := make([]models.EmailVector, len(vectors))
	copy(batch, vectors)
	f.upserts = append(f.upserts, batch)
	return nil
}

func (f *fakeVectorStore) SimilaritySearch(ctx context.Context, queryVector pgvector.Vector, k int) ([]models.Match, error) {
	f.lastK = k
	return f.matches, f.searchErr
}

func (f *fakeVectorStore) Ping(ctx context.Context) error { return nil }
func (f *fakeVectorStore) Close() error                   { return nil }

func TestBuildQueryText(t *testing.T) {
	q := models.EmailQuery{Sender: "a@b.com", Subject: "Hello", Content: "Body text"}
	assert.Equal(t, "From: a@b.com\nSubject: Hello\n\nBody text", BuildQueryText(q))
}

func TestRetrieveReturnsMatches(t *testing.T) {
	emb := &fakeEmbeddingService{vec: pgvector.NewVector([]float32{0.1, 0.2})}
	vs := &fakeVectorStore{matches: []models.Match{{ID: "m1", Score: 0.9}}}
	svc := NewRetrievalService(emb, vs, 0)

	q := models.EmailQuery{Sender: "a@b.com", Subject: "s", Content: "c"}
	matches, err := svc.Retrieve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m1", matches[0].ID)
	assert.Equal(t, DefaultTopK, vs.lastK)
	assert.Equal(t, BuildQueryText(q), emb.lastText)
}

func TestRetrieveCustomTopK(t *testing.T) {
	emb := &fakeEmbeddingService{vec: pgvector.NewVector([]float32{0.1})}
	vs := &fakeVectorStore{}
	svc := NewRetrievalService(emb, vs, 7)

	_, err := svc.Retrieve(context.Background(), models.EmailQuery{Sender: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, 7, vs.lastK)
}

func TestRetrieveEmbeddingFailureDegrades(t *testing.T) {
	emb := &fakeEmbeddingService{err: errors.New("rate limited")}
	vs := &fakeVectorStore{matches: []models.Match{{ID: "m1"}}}
	svc := NewRetrievalService(emb, vs, 0)

	matches, err := svc.Retrieve(context.Background(), models.EmailQuery{Sender: "a@b.com"})
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieveEmptyVectorDegrades(t *testing.T) {
	emb := &fakeEmbeddingService{vec: pgvector.NewVector(nil)}
	vs := &fakeVectorStore{matches: []models.Match{{ID: "m1"}}}
	svc := NewRetrievalService(emb, vs, 0)

	matches, err := svc.Retrieve(context.Background(), models.EmailQuery{Sender: "a@b.com"})
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieveSearchFailureDegrades(t *testing.T) {
	emb := &fakeEmbeddingService{vec: pgvector.NewVector([]float32{0.1})}
	vs := &fakeVectorStore{searchErr: errors.New("index offline")}
	svc := NewRetrievalService(emb, vs, 0)

	matches, err := svc.Retrieve(context.Background(), models.EmailQuery{Sender: "a@b.com"})
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieveUninitialized(t *testing.T) {
	svc := NewRetrievalService(nil, &fakeVectorStore{}, 0)
	_, err := svc.Retrieve(context.Background(), models.EmailQuery{})
	assert.Error(t, err)

	svc = NewRetrievalService(&fakeEmbeddingService{}, nil, 0)
	_, err = svc.Retrieve(context.Background(), models.EmailQuery{})
	assert.Error(t, err)
}
