package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/contextd/internal/chunker"
	"github.com/hyperjump/contextd/internal/config"
	"github.com/hyperjump/contextd/internal/embedding"
	"github.com/hyperjump/contextd/internal/models"
)

// MemoryStore is the in-memory ContextStore. The context map, the chunk index,
// and the insertion-order list form a single shared resource guarded by one
// RWMutex: reads run concurrently, every mutation takes the write lock for its
// replace-and-publish step. Chunking and embedding run outside the lock and the
// result is installed together with the content, so chunks always match the
// visible content. One coarse lock over the whole store trades per-context
// throughput for simplicity, which is fine at in-memory sizes.
//
// Ids are random uuids, so a deleted id is never handed out again.
type MemoryStore struct {
	maxChunkSize int
	chunkOverlap int
	embedder     embedding.Embedder

	mu       sync.RWMutex
	contexts map[string]*models.Context
	chunks   map[string][]*models.ContextChunk
	order    []string
}

// NewMemoryStore creates an in-memory store that chunks content into windows of
// at most maxChunkSize characters overlapping by chunkOverlap.
// Invalid chunking parameters fail with config.ErrInvalidConfig.
func NewMemoryStore(embedder embedding.Embedder, maxChunkSize, chunkOverlap int) (*MemoryStore, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", config.ErrInvalidConfig, maxChunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= maxChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", config.ErrInvalidConfig, chunkOverlap, maxChunkSize)
	}
	return &MemoryStore{
		maxChunkSize: maxChunkSize,
		chunkOverlap: chunkOverlap,
		embedder:     embedder,
		contexts:     make(map[string]*models.Context),
		chunks:       make(map[string][]*models.ContextChunk),
	}, nil
}

// buildChunks chunks and embeds content for the given context id.
// Runs without holding the store lock; chunking and embedding are CPU-bound.
func (s *MemoryStore) buildChunks(ctx context.Context, id, content string) ([]*models.ContextChunk, error) {
	texts, err := chunker.Chunk(content, s.maxChunkSize, s.chunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	out := make([]*models.ContextChunk, len(texts))
	for i, text := range texts {
		out[i] = &models.ContextChunk{
			ContextID:  id,
			ChunkIndex: i,
			Content:    text,
			Embedding:  embeddings[i],
		}
	}
	return out, nil
}

// Create stores content with tags under a fresh id.
func (s *MemoryStore) Create(ctx context.Context, content string, tags []string) (*models.Context, error) {
	id := uuid.New().String()
	chunks, err := s.buildChunks(ctx, id, content)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	record := &models.Context{
		ID:        id,
		Content:   content,
		Tags:      append([]string(nil), tags...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.contexts[id] = record
	s.chunks[id] = chunks
	s.order = append(s.order, id)
	s.mu.Unlock()

	return cloneContext(record), nil
}

// Get returns the context with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.contexts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneContext(record), nil
}

// Update applies the non-nil fields of update to the context with the given id.
// When content changes, the new chunk set is built first and published together
// with the content under the write lock, so no reader sees old chunks with new
// content or vice versa.
func (s *MemoryStore) Update(ctx context.Context, id string, update *models.ContextUpdate) (*models.Context, error) {
	if update == nil || (update.Content == nil && update.Tags == nil) {
		return s.Get(ctx, id)
	}

	s.mu.RLock()
	_, ok := s.contexts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var newChunks []*models.ContextChunk
	if update.Content != nil {
		var err error
		newChunks, err = s.buildChunks(ctx, id, *update.Content)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.contexts[id]
	if !ok {
		// Deleted between the existence check and the publish step.
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := cloneContext(current)
	if update.Content != nil {
		next.Content = *update.Content
		s.chunks[id] = newChunks
	}
	if update.Tags != nil {
		next.Tags = append([]string(nil), (*update.Tags)...)
	}
	next.UpdatedAt = time.Now().UTC()
	s.contexts[id] = next
	return cloneContext(next), nil
}

// Delete removes the context and all its chunks.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.contexts, id)
	delete(s.chunks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns all contexts in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]*models.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Context, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneContext(s.contexts[id]))
	}
	return out, nil
}

// ChunksByContextID returns the chunk set for the context in sequence order.
func (s *MemoryStore) ChunksByContextID(ctx context.Context, id string) ([]*models.ContextChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.contexts[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return append([]*models.ContextChunk(nil), s.chunks[id]...), nil
}

// Snapshot returns every context with its chunk set under one read lock.
// Chunk slices are replaced wholesale on update and never mutated in place, so
// the returned view stays internally consistent after the lock is released.
func (s *MemoryStore) Snapshot(ctx context.Context) ([]*IndexedContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*IndexedContext, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, &IndexedContext{
			Context: s.contexts[id],
			Chunks:  s.chunks[id],
		})
	}
	return out, nil
}

// CountContexts returns the number of stored contexts.
func (s *MemoryStore) CountContexts(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.contexts)), nil
}

// CountChunks returns the number of indexed chunks across all contexts.
func (s *MemoryStore) CountChunks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, chunks := range s.chunks {
		n += int64(len(chunks))
	}
	return n, nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// cloneContext copies a context record so callers cannot mutate stored state.
func cloneContext(c *models.Context) *models.Context {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}
