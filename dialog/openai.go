package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hotsheetiq/frontdesk/call"
)

const (
	fallbackModel       = openai.GPT4o
	fallbackMaxTokens   = 100
	fallbackTemperature = 0.8
	fallbackTimeout     = 3 * time.Second

	// The caller is live on the phone; only the tail of the conversation
	// goes to the model.
	fallbackContextTurns = 3
)

// Responder answers an utterance for which no deterministic path applies.
type Responder interface {
	Respond(ctx context.Context, history []call.Turn, utterance string) (string, error)
}

// OpenAIResponder answers gaps in the scripted flow with a chat completion.
type OpenAIResponder struct {
	client *openai.Client
}

// NewOpenAIResponder creates the LLM fallback responder.
func NewOpenAIResponder(apiKey string) *OpenAIResponder {
	return &OpenAIResponder{client: openai.NewClient(apiKey)}
}

// Respond asks the model for a short conversational reply.
func (r *OpenAIResponder) Respond(ctx context.Context, history []call.Turn, utterance string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, fallbackTimeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: utterance,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       fallbackModel,
		Messages:    messages,
		MaxTokens:   fallbackMaxTokens,
		Temperature: fallbackTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return reply, nil
}
