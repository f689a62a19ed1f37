// Package search provides the semantic search coordinator.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/contextd/internal/config"
	"github.com/hyperjump/contextd/internal/embedding"
	"github.com/hyperjump/contextd/internal/keyword"
	"github.com/hyperjump/contextd/internal/models"
	"github.com/hyperjump/contextd/internal/store"
	"github.com/hyperjump/contextd/internal/vector"
)

// Engine coordinates semantic search: it embeds the query once, scores every
// indexed chunk of every context passing the tag filter, aggregates per
// context, and ranks. It also serves reference-based retrieval and, when a
// keyword index is attached, keyword search.
type Engine struct {
	store    store.ContextStore
	embedder embedding.Embedder
	config   *config.SearchConfig
	keyword  keyword.Index // optional
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(s store.ContextStore, embedder embedding.Embedder, cfg *config.SearchConfig) *Engine {
	return &Engine{
		store:    s,
		embedder: embedder,
		config:   cfg,
	}
}

// WithKeywordIndex attaches a keyword index for KeywordSearch.
func (e *Engine) WithKeywordIndex(idx keyword.Index) *Engine {
	e.keyword = idx
	return e
}

// scoredContext is an intermediate ranking entry; createdAt and id break score ties.
type scoredContext struct {
	result    *models.SearchResult
	createdAt time.Time
}

// Search runs semantic search over all indexed chunks.
//
// A context is a candidate when at least one of its chunks scores at or above
// the query's floor; its aggregate score is the best matching chunk score and
// its chunk list holds every chunk meeting the floor, best first. Candidates
// are ordered by aggregate score, then earliest creation time, then id, and
// truncated to the limit.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	minScore := query.MinScore
	if minScore <= 0 {
		minScore = e.config.DefaultMinScore
	}

	queryEmbedding, err := e.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	snapshot, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("store snapshot failed: %w", err)
	}

	candidates := make([]*scoredContext, 0, len(snapshot))
	for _, entry := range snapshot {
		if !entry.Context.HasAnyTag(query.Tags) {
			continue
		}
		matches := make([]*models.ChunkMatch, 0, len(entry.Chunks))
		for _, chunk := range entry.Chunks {
			score, err := vector.CosineSimilarity(queryEmbedding, chunk.Embedding)
			if err != nil {
				// Dimension mismatch is an internal invariant violation, not
				// a recoverable condition; abort the whole search.
				return nil, fmt.Errorf("score chunk %d of context %s: %w", chunk.ChunkIndex, entry.Context.ID, err)
			}
			if score >= minScore {
				matches = append(matches, &models.ChunkMatch{
					ChunkIndex: chunk.ChunkIndex,
					Content:    chunk.Content,
					Score:      score,
				})
			}
		}
		if len(matches) == 0 {
			continue
		}
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].ChunkIndex < matches[j].ChunkIndex
		})
		candidates = append(candidates, &scoredContext{
			result: &models.SearchResult{
				ContextID: entry.Context.ID,
				Score:     matches[0].Score,
				Chunks:    matches,
			},
			createdAt: entry.Context.CreatedAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].result.Score != candidates[j].result.Score {
			return candidates[i].result.Score > candidates[j].result.Score
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.Before(candidates[j].createdAt)
		}
		return candidates[i].result.ContextID < candidates[j].result.ContextID
	})

	total := len(candidates)
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	response := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, len(candidates)),
		Total:     total,
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}
	for i, c := range candidates {
		c.result.Rank = i + 1
		response.Results = append(response.Results, c.result)
	}
	return response, nil
}

// GetByReferences fetches full records for externally supplied ids, preserving
// input order. Ids absent from the store are silently omitted.
func (e *Engine) GetByReferences(ctx context.Context, ids []string) ([]*models.Context, error) {
	out := make([]*models.Context, 0, len(ids))
	for _, id := range ids {
		record, err := e.store.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// KeywordSearch runs a BM25 match over context content and tags.
// Fails when no keyword index is attached.
func (e *Engine) KeywordSearch(ctx context.Context, query string, limit int) ([]*keyword.Result, error) {
	if e.keyword == nil {
		return nil, fmt.Errorf("keyword index not configured")
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	return e.keyword.Search(ctx, query, limit)
}
