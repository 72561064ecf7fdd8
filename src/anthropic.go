package taleweave

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const storySystemPrompt = `You are the narrator engine of an interactive fiction game. ` +
	`You always answer with exactly the JSON object the user's instructions describe, ` +
	`with no markdown fences and no commentary around it.`

// AnthropicProvider generates story text through the Anthropic messages API.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

func NewAnthropicProvider(apiKey, model string, timeout time.Duration) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicProvider{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	message, err := p.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     anthropic.F(anthropic.Model(p.model)),
			MaxTokens: anthropic.F(int64(4096)),
			System: anthropic.F([]anthropic.TextBlockParam{
				anthropic.NewTextBlock(storySystemPrompt),
			}),
			Messages: anthropic.F([]anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			}),
		},
	)
	if err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}

	if len(message.Content) == 0 || message.Content[0].Text == "" {
		return "", NewEmptyResultError(p.Name())
	}

	return message.Content[0].Text, nil
}
