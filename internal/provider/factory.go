package provider

import (
	"context"
	"fmt"
	"strings"
)

// Config bundles the construction parameters common to every adapter.
type Config struct {
	Name       string // "gemini" (default), "anthropic", "openai"
	Model      string
	APIKey     string
	BaseURL    string // only honored by the openai adapter
	MaxRetries int
}

// New selects and constructs a Provider by vendor name, per §6's
// LLM_PROVIDER mapping.
func New(ctx context.Context, cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = "gemini"
	}
	switch name {
	case "gemini", "google":
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		})
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini, anthropic, or openai)", cfg.Name)
	}
}
