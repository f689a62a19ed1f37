// Package models defines core data structures for contexts, queries, and search results.
package models

import "time"

// Context represents a stored unit of text with tags and timestamps.
type Context struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAnyTag reports whether the context carries at least one of the given tags.
// An empty filter matches every context.
func (c *Context) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range c.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ContextChunk is a bounded, possibly overlapping piece of a context's content,
// the unit over which embeddings and similarity matching happen. The chunk set
// for a context is regenerated as a whole whenever its content changes.
type ContextChunk struct {
	ContextID  string    `json:"context_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// ContextInput is the input for creating a context.
type ContextInput struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// ContextUpdate carries the optional fields of an update. A nil field is left
// unchanged; both nil makes the update a no-op success.
type ContextUpdate struct {
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}
