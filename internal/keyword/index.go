// Package keyword provides keyword (BM25) indexing and search over contexts.
package keyword

import (
	"context"

	"github.com/hyperjump/contextd/internal/models"
)

// Index defines keyword search operations over stored contexts. It is
// maintained alongside the context store and queried separately from the
// semantic search path.
type Index interface {
	Index(ctx context.Context, c *models.Context) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ContextID string  `json:"context_id"`
	Score     float64 `json:"score"`
}
