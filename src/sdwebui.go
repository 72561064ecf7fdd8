package taleweave

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// SDWebUIRequest is the request body for the Stable Diffusion WebUI
// txt2img endpoint.
type SDWebUIRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"steps"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CFGScale       float64 `json:"cfg_scale,omitempty"`
	BatchSize      int     `json:"batch_size,omitempty"`
}

// SDWebUIResponse is the response body from the txt2img endpoint.
type SDWebUIResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
	Error  string   `json:"error,omitempty"`
}

// SDWebUIProvider generates illustrations against a local or self-hosted
// Stable Diffusion WebUI instance.
type SDWebUIProvider struct {
	baseURL string
	client  *http.Client
}

func NewSDWebUIProvider(baseURL string, timeout time.Duration) *SDWebUIProvider {
	return &SDWebUIProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *SDWebUIProvider) Name() string { return "sdwebui" }

func (p *SDWebUIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	requestData := SDWebUIRequest{
		Prompt:    prompt,
		Steps:     25,
		Width:     1024,
		Height:    768,
		CFGScale:  3.0,
		BatchSize: 1,
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/sdapi/v1/txt2img", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", NewHTTPError(p.Name(), resp.StatusCode, string(body))
	}

	var sdResponse SDWebUIResponse
	if err := json.Unmarshal(body, &sdResponse); err != nil {
		return "", ClassifyProviderError(p.Name(), err)
	}

	if len(sdResponse.Images) == 0 {
		return "", NewEmptyResultError(p.Name())
	}

	// The WebUI returns raw base64 without a data URI header.
	return "data:image/png;base64," + sdResponse.Images[0], nil
}
