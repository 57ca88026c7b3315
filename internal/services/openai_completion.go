package services

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"mailpilot/internal/store"
)

// chatCompletionCreator is the minimal OpenAI client surface this provider
// needs; tests substitute a mock.
type chatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICompletionProvider implements CompletionService using the OpenAI
// chat completion API.
type OpenAICompletionProvider struct {
	client chatCompletionCreator
	model  string
}

var _ CompletionService = (*OpenAICompletionProvider)(nil)

// NewOpenAICompletionProvider creates a new OpenAI completion provider.
func NewOpenAICompletionProvider(apiKey, model string) *OpenAICompletionProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY") // Fallback to env var
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. Completion provider will be disabled.")
		return &OpenAICompletionProvider{client: nil, model: model}
	}
	log.Infof("OpenAI completion provider initialized with model %s", model)
	return &OpenAICompletionProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAICompletionProviderWithClient wires an existing client, used by tests.
func NewOpenAICompletionProviderWithClient(client chatCompletionCreator, model string) *OpenAICompletionProvider {
	return &OpenAICompletionProvider{client: client, model: model}
}

func (p *OpenAICompletionProvider) Name() string      { return "openai" }
func (p *OpenAICompletionProvider) ModelName() string { return p.model }

func (p *OpenAICompletionProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

func (p *OpenAICompletionProvider) GenerateChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("OpenAI completion provider is not initialized (missing API key)")
	}

	reqMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMessages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: reqMessages,
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
