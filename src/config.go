package taleweave

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the engine and server need. Provider slots are
// independently configurable; an operation with neither slot configured is a
// startup error, never a mid-turn surprise.
type Config struct {
	Addr     string `envconfig:"TALEWEAVE_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// TLS with self-signed certificates generated on first start. For
	// anything public, terminate TLS in front of the server instead.
	TLSEnabled bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCert    string `envconfig:"TLS_CERT" default:"certs/server.crt"`
	TLSKey     string `envconfig:"TLS_KEY" default:"certs/server.key"`

	// Session persistence: memory, file or sqlite.
	SessionStore string `envconfig:"SESSION_STORE" default:"file"`
	SessionFile  string `envconfig:"SESSION_FILE" default:"sessions.json"`
	SessionDB    string `envconfig:"SESSION_DB" default:"sessions.db"`

	// Provider slot assignment. Empty means the slot is absent.
	TextPrimary    string `envconfig:"TEXT_PRIMARY" default:"anthropic"`
	TextSecondary  string `envconfig:"TEXT_SECONDARY" default:"openai"`
	ImagePrimary   string `envconfig:"IMAGE_PRIMARY" default:"openai"`
	ImageSecondary string `envconfig:"IMAGE_SECONDARY" default:"horde"`

	TextTimeout  time.Duration `envconfig:"TEXT_TIMEOUT" default:"30s"`
	ImageTimeout time.Duration `envconfig:"IMAGE_TIMEOUT" default:"60s"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-sonnet-latest"`

	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel      string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIImageModel string `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	SDWebUIURL  string `envconfig:"SD_WEBUI_URL"`
	HordeAPIKey string `envconfig:"HORDE_API_KEY"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that at least one provider is configured per operation.
func (c *Config) Validate() error {
	if c.TextPrimary == "" && c.TextSecondary == "" {
		return errors.New("no text provider configured: set TEXT_PRIMARY or TEXT_SECONDARY")
	}
	if c.ImagePrimary == "" && c.ImageSecondary == "" {
		return errors.New("no image provider configured: set IMAGE_PRIMARY or IMAGE_SECONDARY")
	}
	return nil
}
