// Package embedding wraps the external embedding providers behind one
// interface, with retry and caching decorators.
package embedding

import "context"

// Embedder converts text into a vector representation. Implementations are
// fallible network clients; callers wrap them with WithRetry.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
