package embed

import "context"

// Embedder converts text into dense float32 vectors for pgvector search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
