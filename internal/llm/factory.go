package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (synthesis disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config to llm.Config.
// A missing API key is taken from the provider's conventional environment variable.
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	config := Config{
		Provider:       llmConfig.Provider,
		Model:          llmConfig.Model,
		APIKey:         llmConfig.APIKey,
		BaseURL:        llmConfig.BaseURL,
		Timeout:        llmConfig.Timeout,
		StrictEvidence: true,
		MaxTokens:      llmConfig.MaxTokens,
		HTTPProxy:      httpConfig.HTTPProxy,
		HTTPSProxy:     httpConfig.HTTPSProxy,
		NoProxy:        httpConfig.NoProxy,
	}

	if config.APIKey == "" {
		switch strings.ToLower(config.Provider) {
		case "openai":
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return config
}
