// Package chunker splits content into overlapping fixed-size chunks.
package chunker

import (
	"fmt"

	"github.com/hyperjump/contextd/internal/config"
)

// Chunk splits content into windows of at most maxSize characters where
// consecutive windows share exactly overlap characters (the final window may be
// shorter). Windows are rune-based so multi-byte text never splits mid-character.
// Content no longer than maxSize yields a single chunk equal to the content;
// empty content yields no chunks and no error. overlap at or above maxSize
// cannot make forward progress and fails with config.ErrInvalidConfig.
func Chunk(content string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", config.ErrInvalidConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", config.ErrInvalidConfig, overlap, maxSize)
	}
	runes := []rune(content)
	if len(runes) == 0 {
		return nil, nil
	}
	step := maxSize - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
