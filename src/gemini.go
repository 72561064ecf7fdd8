package taleweave

import (
	"context"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider generates story text through the Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

func NewGeminiProvider(apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	gm := client.GenerativeModel(model)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(storySystemPrompt)},
	}
	return &GeminiProvider{
		client:  client,
		model:   gm,
		timeout: timeout,
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", NewEmptyResultError(p.Name())
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok || string(text) == "" {
		return "", NewEmptyResultError(p.Name())
	}

	return string(text), nil
}
