package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal LLM boundary used by the classifier. Complete sends
// a system instruction plus a single user message and returns the raw model
// output.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient calls the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed LLM client for the given
// API key and model.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Complete sends the system and user messages to the chat completion API
// and returns the assistant's response. The context deadline set by the
// caller bounds the call.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
