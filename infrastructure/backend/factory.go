package backend

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/gateway-go/domain/config"
)

// FromConfig builds a backend from gateway model settings. API keys are
// read from the environment variable named in the configuration, never
// stored in the configuration itself.
func FromConfig(cfg config.ModelConfig) (Backend, error) {
	switch cfg.Backend {
	case "anthropic":
		key, err := apiKey(cfg.APIKeyEnv, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicBackend(AnthropicConfig{
			APIKey:  key,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Name,
		}), nil

	case "openai":
		key, err := apiKey(cfg.APIKeyEnv, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIBackend(OpenAIConfig{
			APIKey:  key,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Name,
		}), nil

	case "mock":
		return NewMockBackend(), nil

	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
}

func apiKey(envName, fallback string) (string, error) {
	if envName == "" {
		envName = fallback
	}
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", envName)
	}
	return key, nil
}
