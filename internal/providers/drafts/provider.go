// Package drafts generates first-draft document content from a short prompt.
// Drafts are suggestions only; approval still runs through the document
// workflow.
package drafts

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type Provider interface {
	Draft(ctx context.Context, documentType, title, instructions string) (string, error)
}

// NoOpProvider is used when draft generation is disabled.
type NoOpProvider struct{}

func (p *NoOpProvider) Draft(ctx context.Context, documentType, title, instructions string) (string, error) {
	return "", nil
}

type Config struct {
	APIKey string
	Model  string
}

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg Config) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

func (p *OpenAIProvider) Draft(ctx context.Context, documentType, title, instructions string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a first draft of a %s validation document titled %q for a GxP-regulated computerized system. %s",
		documentType, title, instructions,
	)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a pharmaceutical quality assurance writer producing validation deliverables.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
