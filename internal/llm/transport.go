package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/evidentia/internal/util"
)

// apiClient talks JSON to a provider that has no Go SDK in our stack
type apiClient struct {
	baseURL string
	header  http.Header
	http    *http.Client

	// errorMessage pulls the provider's message out of a non-200 body; "" if none
	errorMessage func(body []byte) string
}

func newAPIClient(config Config, defaultBaseURL string, defaultTimeout time.Duration) *apiClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		header:  http.Header{"Content-Type": []string{"application/json"}},
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
	}
}

// call sends in (if non-nil) to path and decodes a 200 reply into out (if non-nil)
func (c *apiClient) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if c.errorMessage != nil {
			if m := c.errorMessage(raw); m != "" {
				msg = m
			}
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
