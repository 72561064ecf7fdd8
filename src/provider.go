package taleweave

import (
	"context"
	"fmt"
)

// TextProvider is a single external text-generation endpoint. Implementations
// enforce their own wall-clock timeout, normalize failures into
// *ProviderError and never retry internally; retries across providers belong
// to the Orchestrator.
type TextProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider is a single external image-generation endpoint. The returned
// reference is either a URL or a data URI; callers treat both as opaque
// displayable references.
type ImageProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewTextProvider builds the text client named by kind. An empty kind yields
// a nil provider, meaning the slot is absent.
func NewTextProvider(kind string, cfg *Config) (TextProvider, error) {
	switch kind {
	case "":
		return nil, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("text provider %q: ANTHROPIC_API_KEY not set", kind)
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.TextTimeout), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("text provider %q: OPENAI_API_KEY not set", kind)
		}
		return NewOpenAITextProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.TextTimeout), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("text provider %q: GEMINI_API_KEY not set", kind)
		}
		return NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.TextTimeout)
	default:
		return nil, fmt.Errorf("unknown text provider kind %q", kind)
	}
}

// NewImageProvider builds the image client named by kind. An empty kind
// yields a nil provider, meaning the slot is absent.
func NewImageProvider(kind string, cfg *Config) (ImageProvider, error) {
	switch kind {
	case "":
		return nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("image provider %q: OPENAI_API_KEY not set", kind)
		}
		return NewOpenAIImageProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIImageModel, cfg.ImageTimeout), nil
	case "sdwebui":
		if cfg.SDWebUIURL == "" {
			return nil, fmt.Errorf("image provider %q: SD_WEBUI_URL not set", kind)
		}
		return NewSDWebUIProvider(cfg.SDWebUIURL, cfg.ImageTimeout), nil
	case "horde":
		return NewHordeProvider(cfg.HordeAPIKey, cfg.ImageTimeout), nil
	default:
		return nil, fmt.Errorf("unknown image provider kind %q", kind)
	}
}
