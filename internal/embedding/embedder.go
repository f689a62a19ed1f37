// Package embedding provides text embedding with a deterministic
// term-frequency embedder and an LRU cache.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must be
// deterministic: identical text always yields an identical vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
