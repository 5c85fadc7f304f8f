package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an HR assistant. Answer strictly from the supplied documents and conversation."

// Generator answers prompts through any OpenAI-compatible chat completions API.
type Generator struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

func NewGenerator(apiKey, baseURL, model string) *Generator {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Generator{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.2,
	}
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai chat completion status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
