package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

// DefaultTopK is the fixed neighbor count requested from the vector index.
const DefaultTopK = 5

// RetrievalService embeds an incoming email and fetches its nearest stored
// neighbors. Retrieval failure degrades to "no matches" rather than a hard
// error: an empty match list is always valid input to aggregation.
type RetrievalService struct {
	embedding store.EmbeddingService
	vector    store.VectorStore
	topK      int
}

func NewRetrievalService(es store.EmbeddingService, vs store.VectorStore, topK int) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{
		embedding: es,
		vector:    vs,
		topK:      topK,
	}
}

// BuildQueryText combines sender, subject and body into the single string
// that gets embedded, so sender and subject influence retrieval.
func BuildQueryText(q models.EmailQuery) string {
	return fmt.Sprintf("From: %s\nSubject: %s\n\n%s", q.Sender, q.Subject, q.Content)
}

// Retrieve returns the top-K nearest matches in the index's order (descending
// similarity). Embedding or index failures are logged and surfaced as an
// empty list with the error for observability; callers proceed either way.
func (s *RetrievalService) Retrieve(ctx context.Context, q models.EmailQuery) ([]models.Match, error) {
	if s.embedding == nil {
		return nil, fmt.Errorf("embedding service is not initialized")
	}
	if s.vector == nil {
		return nil, fmt.Errorf("vector store is not initialized")
	}

	queryVector, err := s.embedding.GenerateEmbedding(ctx, BuildQueryText(q))
	if err != nil {
		log.Warnf("Embedding failed for query from %q, degrading to no matches: %v", q.Sender, err)
		return nil, nil
	}
	if len(queryVector.Slice()) == 0 {
		log.Warnf("Embedding returned an empty vector for query from %q, degrading to no matches", q.Sender)
		return nil, nil
	}

	matches, err := s.vector.SimilaritySearch(ctx, queryVector, s.topK)
	if err != nil {
		log.Warnf("Similarity search failed for query from %q, degrading to no matches: %v", q.Sender, err)
		return nil, nil
	}
	return matches, nil
}
