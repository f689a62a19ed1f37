package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// SimpleEmbedder is a deterministic, non-learned embedder: a hashed
// term-frequency projection into a fixed dimension, L2-normalized. Similarity
// between its vectors tracks lexical overlap, which is enough for an in-memory
// store; a model-backed Embedder can be substituted without touching callers.
type SimpleEmbedder struct {
	dimensions int
}

// NewSimpleEmbedder returns an embedder producing vectors of the given dimension.
func NewSimpleEmbedder(dimensions int) *SimpleEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &SimpleEmbedder{dimensions: dimensions}
}

// Embed returns the normalized term-frequency vector for text.
// Empty or non-alphanumeric text yields the zero vector.
func (e *SimpleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range Tokenize(text) {
		emb[HashWord(word)%e.dimensions]++
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *SimpleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *SimpleEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for SimpleEmbedder.
func (e *SimpleEmbedder) Close() error {
	return nil
}

// Tokenize lowercases text, splits on whitespace, and strips non-alphanumeric
// runes from each token. Tokens that end up empty are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		var b strings.Builder
		for _, r := range f {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
		}
	}
	return tokens
}

// HashWord maps a word to a non-negative bucket index seed.
func HashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
