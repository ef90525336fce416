package llm

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Complete builds the extraction prompt for text and hands it to send. When send fails
// because the request cannot be encoded in cs, it retries exactly once with the text and
// prompt degraded to plain characters. A second encoding failure is a transport failure.
func Complete(ctx context.Context, text string, cs Charset, send Sender, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	out, err := send(ctx, BuildPrompt(text, false))
	if err == nil || !IsEncodingError(err) {
		return out, err
	}

	logger.Warn("llm.complete.degraded_retry", "charset", cs.Name(), "error", err)
	prompt := cs.Degrade(BuildPrompt(cs.Degrade(text), true))
	out, err = send(ctx, prompt)
	if err != nil && IsEncodingError(err) {
		return "", &common.TransportError{Cause: err}
	}
	return out, err
}
