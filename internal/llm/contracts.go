package llm

import "context"

// Structurer turns acquired document text into the raw completion of the model.
// apiKey overrides the client's configured credential when non-empty.
// Failures wrap common.ErrTransportFailure.
type Structurer interface {
	Structure(ctx context.Context, text, apiKey string) (string, error)
}

// Sender performs one provider call with a fully built prompt.
type Sender func(ctx context.Context, prompt string) (string, error)
