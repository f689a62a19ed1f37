// Package store provides the concurrent in-memory context store and its chunk index.
package store

import (
	"context"
	"errors"

	"github.com/hyperjump/contextd/internal/models"
)

// ErrNotFound reports an operation referencing a context id absent from the store.
var ErrNotFound = errors.New("context not found")

// ContextStore defines context and chunk operations. Implementations must keep
// every context's chunk set consistent with its current content: no reader may
// observe a context whose indexed chunks do not correspond to its content.
type ContextStore interface {
	// Create stores new content with tags under a fresh id and returns the record.
	Create(ctx context.Context, content string, tags []string) (*models.Context, error)
	// Get returns the context with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Context, error)
	// Update applies the non-nil fields of update. A content change atomically
	// replaces the context's whole chunk set. Both fields nil is a no-op success.
	Update(ctx context.Context, id string, update *models.ContextUpdate) (*models.Context, error)
	// Delete removes the context and its chunks, or fails ErrNotFound.
	// Repeated deletes of the same id keep failing ErrNotFound.
	Delete(ctx context.Context, id string) error
	// List returns all contexts in insertion order.
	List(ctx context.Context) ([]*models.Context, error)
	// ChunksByContextID returns the chunk set for a context in sequence order.
	ChunksByContextID(ctx context.Context, id string) ([]*models.ContextChunk, error)
	// Snapshot returns every context paired with its chunk set, in insertion
	// order, captured under a single consistency boundary.
	Snapshot(ctx context.Context) ([]*IndexedContext, error)

	CountContexts(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}

// IndexedContext pairs a context with its indexed chunk set, as captured by
// Snapshot. Callers must treat both as read-only.
type IndexedContext struct {
	Context *models.Context
	Chunks  []*models.ContextChunk
}
