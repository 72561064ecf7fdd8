package taleweave

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// newOpenAIClient builds a client against any OpenAI-compatible endpoint
// (api.openai.com, OpenRouter, a local gateway) selected by base URL.
func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}

func classifyOpenAIError(provider string, err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return NewHTTPError(provider, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return ClassifyProviderError(provider, err)
}

// OpenAITextProvider generates story text through the chat completions API.
type OpenAITextProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAITextProvider(apiKey, baseURL, model string, timeout time.Duration) *OpenAITextProvider {
	return &OpenAITextProvider{
		client:  newOpenAIClient(apiKey, baseURL),
		model:   model,
		timeout: timeout,
	}
}

func (p *OpenAITextProvider) Name() string { return "openai" }

func (p *OpenAITextProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: storySystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.8,
			MaxTokens:   4096,
			TopP:        0.95,
		},
	)
	if err != nil {
		return "", classifyOpenAIError(p.Name(), err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", NewEmptyResultError(p.Name())
	}

	return resp.Choices[0].Message.Content, nil
}

// OpenAIImageProvider generates illustrations through the images API and
// returns them as data URIs.
type OpenAIImageProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIImageProvider(apiKey, baseURL, model string, timeout time.Duration) *OpenAIImageProvider {
	return &OpenAIImageProvider{
		client:  newOpenAIClient(apiKey, baseURL),
		model:   model,
		timeout: timeout,
	}
}

func (p *OpenAIImageProvider) Name() string { return "openai-image" }

func (p *OpenAIImageProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateImage(
		ctx,
		openai.ImageRequest{
			Prompt:         prompt,
			Model:          p.model,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		},
	)
	if err != nil {
		return "", classifyOpenAIError(p.Name(), err)
	}

	if len(resp.Data) == 0 {
		return "", NewEmptyResultError(p.Name())
	}
	if resp.Data[0].B64JSON != "" {
		return "data:image/png;base64," + resp.Data[0].B64JSON, nil
	}
	if resp.Data[0].URL != "" {
		return resp.Data[0].URL, nil
	}
	return "", NewEmptyResultError(p.Name())
}
