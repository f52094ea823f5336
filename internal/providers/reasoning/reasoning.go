package reasoning

import "context"

// Provider is the opaque text->text reasoning function used by the
// pipeline for intent classification, extraction, and reply generation.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)

	// Describe analyzes an image (jpeg/png bytes) and returns a short
	// scene description. Used by the vision analyzer.
	Describe(ctx context.Context, prompt string, mimeType string, image []byte) (string, error)

	Close() error
}
