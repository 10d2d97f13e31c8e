package llm

import (
	"context"
	"fmt"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the CompletionClient interface
// using the OpenAI chat completions API.
type OpenAIClient struct {
	client    *openai.Client
	modelName string
	topP      float32
	logger    *zap.Logger
}

// NewOpenAIClient creates a new OpenAI completion client
func NewOpenAIClient(apiKey, modelName string, topP float32, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
		topP:      topP,
		logger:    logger,
	}
}

// Complete issues one chat completion request and returns the raw text
func (c *OpenAIClient) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion finished",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID))

	return resp.Choices[0].Message.Content, nil
}
