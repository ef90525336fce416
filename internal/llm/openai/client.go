package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

var _ llm.Structurer = (*Client)(nil)

// Structure implements llm.Structurer using text-only chat/completions.
func (c *Client) Structure(ctx context.Context, text, apiKey string) (string, error) {
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	start := time.Now()
	c.logger.Info("llm.structure.start",
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
		"charset", c.cfg.Charset.Name(),
	)

	out, err := llm.Complete(ctx, text, c.cfg.Charset, func(ctx context.Context, prompt string) (string, error) {
		return c.send(ctx, prompt, apiKey)
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.structure.failed",
			"provider", "openai", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.logger.Info("llm.structure.ok",
		"provider", "openai",
		"completion_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) send(ctx context.Context, prompt, apiKey string) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.cfg.Charset, c.logger)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.structure.decode_error", "error", err, "raw_bytes", len(raw))
		return "", &common.TransportError{Status: 200, Cause: fmt.Errorf("decode openai response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.structure.no_choices", "raw_bytes", len(raw))
		return "", &common.TransportError{Status: 200, Cause: fmt.Errorf("no choices in openai response")}
	}
	return cc.Choices[0].Message.Content, nil
}
