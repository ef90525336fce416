// Package gemini structures invoice text with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string
	BaseURL     string // optional endpoint override
	Model       string // default gemini-1.5-flash
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Charset     llm.Charset
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ llm.Structurer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Structure implements llm.Structurer. A genai client is built per call because the
// credential may differ between calls.
func (c *Client) Structure(ctx context.Context, text, apiKey string) (string, error) {
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	start := time.Now()
	c.logger.Info("llm.structure.start",
		"provider", "gemini",
		"model", c.cfg.Model,
		"text_len", len(text),
		"charset", c.cfg.Charset.Name(),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.http,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", &common.TransportError{Cause: fmt.Errorf("create genai client: %w", err)}
	}

	out, err := llm.Complete(ctx, text, c.cfg.Charset, func(ctx context.Context, prompt string) (string, error) {
		if err := c.cfg.Charset.Check(prompt); err != nil {
			return "", err
		}
		resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(c.cfg.Temperature),
			MaxOutputTokens: int32(c.cfg.MaxTokens),
		})
		if err != nil {
			return "", transportError(err)
		}
		return resp.Text(), nil
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.structure.failed",
			"provider", "gemini", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.logger.Info("llm.structure.ok",
		"provider", "gemini",
		"completion_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// transportError keeps the provider status when the SDK reports one.
func transportError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &common.TransportError{Status: apiErr.Code, Body: apiErr.Message, Cause: err}
	}
	return &common.TransportError{Cause: err}
}
