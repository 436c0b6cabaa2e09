// Package openai talks to an OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
	"github.com/abhiarc/Dream-interpreter/internal/prompt"
)

const quotaCode = "insufficient_quota"

// Options are the fixed generation parameters sent with every request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client implements ports.Interpreter via the chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	opts       Options
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL string, opts Options, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       opts,
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []prompt.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Interpret sends the payload once. Quota failures wrap domain.ErrQuotaExceeded;
// every other failure wraps domain.ErrUpstreamLLM.
func (c *Client) Interpret(ctx context.Context, p prompt.Payload) (string, error) {
	if c.apiKey == "" {
		return "", domain.ErrMissingAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    p.Messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http call: %w", domain.ErrUpstreamLLM, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrUpstreamLLM, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(ctx, resp.StatusCode, respBody)
	}

	if !gjson.ValidBytes(respBody) {
		return "", fmt.Errorf("%w: response is not valid JSON", domain.ErrUpstreamLLM)
	}
	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrUpstreamLLM)
	}

	c.logger.DebugContext(ctx, "chat completion finished",
		"model", gjson.GetBytes(respBody, "model").String(),
		"finish_reason", gjson.GetBytes(respBody, "choices.0.finish_reason").String(),
		"total_tokens", gjson.GetBytes(respBody, "usage.total_tokens").Int(),
	)

	return strings.TrimSpace(content.String()), nil
}

func (c *Client) statusError(ctx context.Context, status int, body []byte) error {
	code := gjson.GetBytes(body, "error.code").String()
	errType := gjson.GetBytes(body, "error.type").String()
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	c.logger.WarnContext(ctx, "chat completion rejected", "status", status, "code", code, "type", errType)

	if code == quotaCode || errType == quotaCode {
		return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, message)
	}
	return fmt.Errorf("%w: upstream status %d: %s", domain.ErrUpstreamLLM, status, message)
}
