package oracle

import (
	"fmt"
	"os"
	"time"

	"noesis/internal/logging"
)

// Settings carries everything needed to build a provider client.
type Settings struct {
	Provider Provider
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// DetectProvider inspects the environment and returns the first provider
// with a configured API key. Precedence: Anthropic, OpenAI, Gemini.
func DetectProvider() (Provider, string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return ProviderAnthropic, key, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return ProviderOpenAI, key, nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return ProviderGemini, key, nil
	}
	return "", "", fmt.Errorf("no API key found: set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY: %w", ErrAuth)
}

// NewClient builds a provider client from settings. Empty fields fall back
// to provider defaults.
func NewClient(s Settings) (Client, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("API key required for provider %q: %w", s.Provider, ErrAuth)
	}

	switch s.Provider {
	case ProviderAnthropic:
		cfg := DefaultAnthropicConfig(s.APIKey)
		applyOverrides(&cfg.BaseURL, s.BaseURL, &cfg.Model, s.Model, &cfg.Timeout, s.Timeout)
		logging.Oracle("client: provider=anthropic model=%s", cfg.Model)
		return NewAnthropicClientWithConfig(cfg), nil
	case ProviderOpenAI:
		cfg := DefaultOpenAIConfig(s.APIKey)
		applyOverrides(&cfg.BaseURL, s.BaseURL, &cfg.Model, s.Model, &cfg.Timeout, s.Timeout)
		logging.Oracle("client: provider=openai model=%s", cfg.Model)
		return NewOpenAIClientWithConfig(cfg), nil
	case ProviderGemini:
		cfg := DefaultGeminiConfig(s.APIKey)
		applyOverrides(&cfg.BaseURL, s.BaseURL, &cfg.Model, s.Model, &cfg.Timeout, s.Timeout)
		logging.Oracle("client: provider=gemini model=%s", cfg.Model)
		return NewGeminiClientWithConfig(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}
}

// NewClientFromEnv detects a provider from the environment and builds a
// client for it.
func NewClientFromEnv() (Client, error) {
	provider, key, err := DetectProvider()
	if err != nil {
		return nil, err
	}
	return NewClient(Settings{Provider: provider, APIKey: key})
}

func applyOverrides(baseURL *string, newBaseURL string, model *string, newModel string, timeout *time.Duration, newTimeout time.Duration) {
	if newBaseURL != "" {
		*baseURL = newBaseURL
	}
	if newModel != "" {
		*model = newModel
	}
	if newTimeout > 0 {
		*timeout = newTimeout
	}
}
