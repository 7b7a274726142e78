package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// OllamaProvider grades evidence with a local model served by Ollama
type OllamaProvider struct {
	api    *apiClient
	config Config
}

type ollamaGenerate struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerated struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllamaProvider targets config.BaseURL, or a local daemon on the default port
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	api := newAPIClient(config, "http://localhost:11434", 120*time.Second)
	api.errorMessage = func(body []byte) string {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return e.Error
	}
	return &OllamaProvider{api: api, config: config}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable reports whether the daemon answers its model listing
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if err := p.api.call(ctx, http.MethodGet, "/api/tags", nil, nil); err != nil {
		slog.Warn("Ollama availability check failed", "base_url", p.api.baseURL, "error", err)
		return false
	}
	return true
}

// Synthesize runs one non-streaming generation in JSON format mode
func (p *OllamaProvider) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResponse, error) {
	model := resolveModel(req, p.config, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req)
	}

	options := map[string]any{"temperature": 0}
	if n := resolveMaxTokens(req, p.config); n > 0 {
		options["num_predict"] = n
	}

	var out ollamaGenerated
	err := p.api.call(ctx, http.MethodPost, "/api/generate", ollamaGenerate{
		Model:   model,
		System:  systemPrompt,
		Prompt:  prompt,
		Format:  "json",
		Options: options,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	// Not every model reports counts; assume 4 characters per token
	tokens := out.PromptEvalCount + out.EvalCount
	if tokens == 0 {
		tokens = (len(prompt) + len(out.Response)) / 4
	}

	return finish(p.config, req, out.Response, out.Model, tokens)
}
