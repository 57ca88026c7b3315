package services

import (
	"context"
	"fmt"
)

// SummarySystemPrompt frames the short free-text summary of an email.
const SummarySystemPrompt = "You summarize incoming emails in one short sentence for a triage dashboard. Reply with the summary only."

// SummaryService produces a short free-text summary of email content.
type SummaryService interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// CompletionSummaryService implements SummaryService on top of a
// CompletionService with a small output budget.
type CompletionSummaryService struct {
	completion CompletionService
	maxTokens  int
}

func NewCompletionSummaryService(completion CompletionService, maxTokens int) *CompletionSummaryService {
	if maxTokens <= 0 {
		maxTokens = 120
	}
	return &CompletionSummaryService{completion: completion, maxTokens: maxTokens}
}

func (s *CompletionSummaryService) Summarize(ctx context.Context, text string) (string, error) {
	if s.completion == nil {
		return "", fmt.Errorf("summary service has no completion provider")
	}
	messages := []ChatMessage{
		{Role: ChatMessageRoleSystem, Content: SummarySystemPrompt},
		{Role: ChatMessageRoleUser, Content: fmt.Sprintf("Summarize this email:\n\n%s", text)},
	}
	out, err := s.completion.GenerateChatCompletion(ctx, messages, s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize email: %w", err)
	}
	return out, nil
}

// NoopSummaryService is used when generation is disabled; summaries come back
// empty, which the pipeline tolerates.
type NoopSummaryService struct{}

func (s *NoopSummaryService) Summarize(ctx context.Context, text string) (string, error) {
	return "", nil
}

func NewNoopSummaryService() SummaryService {
	return &NoopSummaryService{}
}
