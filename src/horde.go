package taleweave

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/opd-ai/horde"
)

// HordeProvider generates illustrations through the crowdsourced AI Horde.
// An empty API key uses the anonymous tier.
type HordeProvider struct {
	client  *horde.Client
	timeout time.Duration
}

func NewHordeProvider(apiKey string, timeout time.Duration) *HordeProvider {
	return &HordeProvider{
		client:  horde.NewClient(apiKey),
		timeout: timeout,
	}
}

func (p *HordeProvider) Name() string { return "horde" }

// Generate submits a generation request and polls it to completion. The
// horde client has no context support, so the call runs in a goroutine and
// the deadline is enforced from outside.
func (p *HordeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		ref string
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		ref, err := p.generate(prompt)
		done <- outcome{ref: ref, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", NewTimeoutError(p.Name(), ctx.Err())
	case out := <-done:
		if out.err != nil {
			return "", ClassifyProviderError(p.Name(), out.err)
		}
		return out.ref, nil
	}
}

func (p *HordeProvider) generate(prompt string) (string, error) {
	req := horde.GenerationRequest{
		Prompt: prompt,
		Params: horde.Params{
			Steps:     horde.DefaultSteps,
			Width:     horde.DefaultWidth,
			Height:    horde.DefaultHeight,
			ModelName: horde.DefaultModel,
		},
	}

	resp, err := p.client.RequestGeneration(req)
	if err != nil {
		return "", fmt.Errorf("requesting generation: %w", err)
	}

	status, err := p.client.WaitForCompletion(resp.ID)
	if err != nil {
		return "", fmt.Errorf("waiting for completion: %w", err)
	}
	if len(status.Generation) == 0 || status.Generation[0].Image == "" {
		return "", NewEmptyResultError(p.Name())
	}

	imageData, err := p.client.DownloadImage(status.Generation[0].Image)
	if err != nil {
		return "", fmt.Errorf("downloading image: %w", err)
	}
	if len(imageData) == 0 {
		return "", NewEmptyResultError(p.Name())
	}

	return "data:image/webp;base64," + base64.StdEncoding.EncodeToString(imageData), nil
}
