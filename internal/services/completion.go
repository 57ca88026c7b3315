package services

import (
	"context"

	"mailpilot/internal/store" // For ProviderStatus
)

// ChatMessageRole defines the role of the message sender (system, user, assistant).
type ChatMessageRole string

const (
	ChatMessageRoleSystem    ChatMessageRole = "system"
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant" // "model" for Gemini
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    ChatMessageRole
	Content string
}

// CompletionService defines the interface for generating text completions.
// maxTokens bounds the output-length budget of a single completion; values
// <= 0 leave the provider default in place.
type CompletionService interface {
	GenerateChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error)
	Status() store.ProviderStatus
	Name() string
	ModelName() string
}
