package apihandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/app"
	"mailpilot/internal/models"
	"mailpilot/internal/triage"
)

type stubRetriever struct {
	matches []models.Match
	err     error
}

func (s *stubRetriever) Retrieve(ctx context.Context, q models.EmailQuery) ([]models.Match, error) {
	return s.matches, s.err
}

type stubSynthesizer struct {
	reply string
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, q models.EmailQuery, candidates []string) string {
	return s.reply
}

type stubHistory struct {
	entries []*models.ProcessedEmail
	listErr error
}

func (s *stubHistory) RecordProcessedEmail(ctx context.Context, entry *models.ProcessedEmail) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubHistory) ListProcessedEmails(ctx context.Context, limit int) ([]*models.ProcessedEmail, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *stubHistory) Ping(ctx context.Context) error { return nil }
func (s *stubHistory) Close() error                   { return nil }

type stubVectorStore struct {
	pingErr error
}

func (s *stubVectorStore) EnsureSchema(ctx context.Context, dimension int) error { return nil }
func (s *stubVectorStore) UpsertBatch(ctx context.Context, vectors []models.EmailVector) error {
	return nil
}
func (s *stubVectorStore) SimilaritySearch(ctx context.Context, queryVector pgvector.Vector, k int) ([]models.Match, error) {
	return nil, nil
}
func (s *stubVectorStore) Ping(ctx context.Context) error { return s.pingErr }
func (s *stubVectorStore) Close() error                   { return nil }

func newTestRouter(retriever *stubRetriever, history *stubHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)

	pipeline := triage.NewPipeline(triage.PipelineDeps{
		Retriever:           retriever,
		Synthesizer:         &stubSynthesizer{reply: "suggested reply"},
		History:             history,
		EmbeddingModel:      "text-embedding-3-small",
		ConfidenceThreshold: 0.65,
	})

	testApp := &app.App{
		VectorStore: &stubVectorStore{},
		Pipeline:    pipeline,
	}
	if history != nil {
		testApp.HistoryStore = history
	}
	handler := NewAPIHandler(testApp)

	router := gin.New()
	router.GET("/", handler.GreetingHandler)
	router.GET("/health", handler.HealthHandler)
	router.POST("/process-email", handler.ProcessEmailHandler)
	router.GET("/history", handler.HistoryHandler)
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGreetingHandler(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"Hola"`, w.Body.String())
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestProcessEmailSuccess(t *testing.T) {
	retriever := &stubRetriever{matches: []models.Match{
		{ID: "1", Score: 0.9, Category: "Billing", SuggestedResponse: "r1"},
		{ID: "2", Score: 0.8, Category: "Billing", SuggestedResponse: "r2"},
	}}
	history := &stubHistory{}
	router := newTestRouter(retriever, history)

	w := postJSON(router, "/process-email", models.EmailQuery{
		Sender:  "juan.perez@empresa.com",
		Subject: "Invoice question",
		Content: "Where is my invoice?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.EmailResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, "juan.perez@empresa.com", result.Email.Sender)
	assert.Equal(t, "Billing", result.Classification.MainCategory)
	assert.True(t, result.Classification.IsConfident)
	assert.Equal(t, "suggested reply", result.Response.Suggested)
	assert.Equal(t, 2, result.Response.BasedOnCandidates)
	assert.Equal(t, 2, result.Metadata.TotalMatches)
	assert.Equal(t, "text-embedding-3-small", result.Metadata.EmbeddingModel)

	require.Len(t, history.entries, 1)
	assert.Equal(t, "Billing", history.entries[0].MainCategory)
}

func TestProcessEmailNoMatches(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, nil)

	w := postJSON(router, "/process-email", models.EmailQuery{
		Sender:  "a@b.com",
		Subject: "anything",
		Content: "body",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp noMatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Code)
	assert.Equal(t, "a@b.com", resp.Sender)
	assert.Equal(t, "anything", resp.Subject)
	assert.NotContains(t, w.Body.String(), "classification")
}

func TestProcessEmailMissingSender(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, nil)

	w := postJSON(router, "/process-email", map[string]string{
		"subject": "no sender",
		"content": "body",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Error.Code)
}

func TestProcessEmailMalformedBody(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/process-email", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandler(t *testing.T) {
	history := &stubHistory{entries: []*models.ProcessedEmail{
		{ID: 1, Sender: "a@b.com", MainCategory: "Billing", ProcessedAt: time.Now()},
		{ID: 2, Sender: "c@d.com", MainCategory: "Support", ProcessedAt: time.Now()},
	}}
	router := newTestRouter(&stubRetriever{}, history)

	req := httptest.NewRequest(http.MethodGet, "/history?limit=1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []*models.ProcessedEmail `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
}

func TestHistoryHandlerInvalidLimit(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, &stubHistory{})

	req := httptest.NewRequest(http.MethodGet, "/history?limit=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandlerListError(t *testing.T) {
	router := newTestRouter(&stubRetriever{}, &stubHistory{listErr: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
