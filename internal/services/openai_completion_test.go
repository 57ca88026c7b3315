package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/store"
)

type mockChatClient struct {
	lastReq openai.ChatCompletionRequest
	resp    openai.ChatCompletionResponse
	err     error
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestOpenAICompletionGenerate(t *testing.T) {
	client := &mockChatClient{resp: chatResponse("generated reply")}
	p := NewOpenAICompletionProviderWithClient(client, "gpt-4o-mini")

	messages := []ChatMessage{
		{Role: ChatMessageRoleSystem, Content: "be brief"},
		{Role: ChatMessageRoleUser, Content: "hello"},
	}
	out, err := p.GenerateChatCompletion(context.Background(), messages, 850)
	require.NoError(t, err)
	assert.Equal(t, "generated reply", out)

	assert.Equal(t, "gpt-4o-mini", client.lastReq.Model)
	assert.Equal(t, 850, client.lastReq.MaxTokens)
	require.Len(t, client.lastReq.Messages, 2)
	assert.Equal(t, "system", client.lastReq.Messages[0].Role)
	assert.Equal(t, "user", client.lastReq.Messages[1].Role)
}

func TestOpenAICompletionZeroMaxTokensOmitted(t *testing.T) {
	client := &mockChatClient{resp: chatResponse("ok")}
	p := NewOpenAICompletionProviderWithClient(client, "gpt-4o-mini")

	_, err := p.GenerateChatCompletion(context.Background(), []ChatMessage{{Role: ChatMessageRoleUser, Content: "x"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, client.lastReq.MaxTokens)
}

func TestOpenAICompletionAPIError(t *testing.T) {
	client := &mockChatClient{err: errors.New("quota exceeded")}
	p := NewOpenAICompletionProviderWithClient(client, "gpt-4o-mini")

	_, err := p.GenerateChatCompletion(context.Background(), []ChatMessage{{Role: ChatMessageRoleUser, Content: "x"}}, 0)
	assert.Error(t, err)
}

func TestOpenAICompletionNoChoices(t *testing.T) {
	client := &mockChatClient{resp: openai.ChatCompletionResponse{}}
	p := NewOpenAICompletionProviderWithClient(client, "gpt-4o-mini")

	_, err := p.GenerateChatCompletion(context.Background(), []ChatMessage{{Role: ChatMessageRoleUser, Content: "x"}}, 0)
	assert.Error(t, err)
}

func TestOpenAICompletionDisabledWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := NewOpenAICompletionProvider("", "gpt-4o-mini")
	assert.Equal(t, store.ProviderStatusDisabled, p.Status())

	_, err := p.GenerateChatCompletion(context.Background(), []ChatMessage{{Role: ChatMessageRoleUser, Content: "x"}}, 0)
	assert.Error(t, err)
}
