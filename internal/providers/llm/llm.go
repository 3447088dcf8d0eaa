package llm

import (
	"context"
	"strings"
)

type Provider interface {
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	// Model is the fixed model identifier the provider talks to.
	Model() string
	Close() error
}

// Collect drains a streamed answer and returns the chunks joined into one
// string. A single-chunk answer is returned as is.
func Collect(ctx context.Context, p Provider, prompt string) (string, error) {
	chunks, errs := p.StreamAnswer(ctx, prompt)

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
	}

	// errs is closed by the producer once chunks is; a pending error stays buffered.
	if err := <-errs; err != nil {
		return "", err
	}
	return full.String(), nil
}
