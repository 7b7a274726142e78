package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-sonnet-20241022"
	anthropicProbeModel   = "claude-3-5-haiku-20241022"
)

// AnthropicProvider grades evidence through the Anthropic Messages API
type AnthropicProvider struct {
	api    *apiClient
	config Config
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins the text blocks of the reply
func (r *messagesResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// NewAnthropicProvider requires config.APIKey
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	api := newAPIClient(config, "https://api.anthropic.com", 60*time.Second)
	api.header.Set("x-api-key", config.APIKey)
	api.header.Set("anthropic-version", anthropicVersion)
	api.errorMessage = func(body []byte) string {
		var e struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
			return ""
		}
		return e.Error.Type + " - " + e.Error.Message
	}

	return &AnthropicProvider{api: api, config: config}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a minimal message to confirm the key works
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	probe := messagesRequest{
		Model:     resolveModel(SynthesisRequest{}, p.config, anthropicProbeModel),
		Messages:  []message{{Role: "user", Content: "Hi"}},
		MaxTokens: 10,
	}
	if err := p.api.call(ctx, http.MethodPost, "/v1/messages", probe, &messagesResponse{}); err != nil {
		slog.Warn("Anthropic API check failed", "error", err)
		return false
	}
	return true
}

func (p *AnthropicProvider) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req)
	}

	var out messagesResponse
	err := p.api.call(ctx, http.MethodPost, "/v1/messages", messagesRequest{
		Model:     resolveModel(req, p.config, anthropicDefaultModel),
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
		MaxTokens: resolveMaxTokens(req, p.config),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	content := out.text()
	if content == "" {
		return nil, errors.New("no text content in anthropic response")
	}
	return finish(p.config, req, content, out.Model, out.Usage.InputTokens+out.Usage.OutputTokens)
}
