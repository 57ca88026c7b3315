package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"mailpilot/internal/store"
)

// GeminiProvider implements both the embedding service and CompletionService
// using the Google Gemini API. It exists as an alternative to OpenAI; the
// active provider is chosen in config.
type GeminiProvider struct {
	client          *genai.Client
	embeddingModel  string // e.g. "models/embedding-001"
	completionModel string // e.g. "models/gemini-pro"
	dim             int
}

// NewGeminiProvider creates a new Gemini provider for the given models.
// completionModel may be empty when only embeddings are needed.
func NewGeminiProvider(apiKey, embeddingModel, completionModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY") // Fallback to env var
	}
	if apiKey == "" {
		log.Warn("Gemini API key not provided. Gemini provider will be disabled.")
		return &GeminiProvider{client: nil}, nil
	}

	var dim int
	switch embeddingModel {
	case "models/embedding-001":
		dim = 768
	default:
		log.Warnf("Unknown Gemini embedding model '%s', defaulting dimension to 768. Accuracy may be affected.", embeddingModel)
		dim = 768
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Infof("Gemini provider initialized (embedding %s, dimension %d)", embeddingModel, dim)

	return &GeminiProvider{
		client:          client,
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
		dim:             dim,
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

// ModelName returns the embedding model identifier.
func (p *GeminiProvider) ModelName() string { return p.embeddingModel }

// GenerateEmbedding generates an embedding for a single text.
func (p *GeminiProvider) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	if p.client == nil {
		return pgvector.Vector{}, fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if text == "" {
		log.Warn("GenerateEmbedding called with empty text for Gemini")
		return pgvector.NewVector(make([]float32, p.dim)), nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("Gemini API error generating embedding: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return pgvector.Vector{}, fmt.Errorf("Gemini API returned no embedding data")
	}
	if len(res.Embedding.Values) != p.dim {
		return pgvector.Vector{}, fmt.Errorf("Gemini API returned unexpected embedding dimension: got %d, want %d", len(res.Embedding.Values), p.dim)
	}

	return pgvector.NewVector(res.Embedding.Values), nil
}

// GenerateEmbeddings generates embeddings for multiple texts, one call each;
// the Gemini API has no batch endpoint in this client version.
func (p *GeminiProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if p.client == nil {
		return nil, fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if len(texts) == 0 {
		return []pgvector.Vector{}, nil
	}

	results := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		if text == "" {
			results[i] = pgvector.NewVector(make([]float32, p.dim))
			continue
		}
		vec, err := p.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("Gemini embedding for text at index %d: %w", i, err)
		}
		results[i] = vec
	}
	return results, nil
}

// GenerateChatCompletion implements the CompletionService interface.
func (p *GeminiProvider) GenerateChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if p.completionModel == "" {
		return "", fmt.Errorf("Gemini provider is not configured for chat completion (completion model not set)")
	}

	model := p.client.GenerativeModel(p.completionModel)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	// Gemini has no separate system role in this client; fold everything into
	// one prompt in order.
	var sb strings.Builder
	for _, m := range messages {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.Content)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return "", fmt.Errorf("Gemini chat completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("Gemini returned no completion candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("Gemini completion contained no text parts")
	}
	return out.String(), nil
}

// Dimension returns the expected embedding dimension for the configured model.
func (p *GeminiProvider) Dimension() int {
	return p.dim
}

// Status returns the operational status of the provider.
func (p *GeminiProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

var _ store.EmbeddingService = (*GeminiProvider)(nil)
var _ CompletionService = (*GeminiProvider)(nil)
