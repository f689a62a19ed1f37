// Package ingest turns files into stored contexts.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/contextd/internal/extract"
	"github.com/hyperjump/contextd/internal/keyword"
	"github.com/hyperjump/contextd/internal/models"
	"github.com/hyperjump/contextd/internal/store"
	"go.uber.org/zap"
)

// TagFile marks contexts created from ingested files.
const TagFile = "file"

// Ingestor creates and maintains one context per ingested file. The first
// ingest of a path creates a context; re-ingesting the same path updates it;
// removing the file deletes it. The path to id mapping lives only in memory,
// like the store it feeds.
type Ingestor struct {
	store     store.ContextStore
	keyword   keyword.Index // optional; kept in step with store writes
	extractor *extract.Extractor
	logger    *zap.Logger // optional; when set, logs debug events

	mu     sync.Mutex
	byPath map[string]string // absolute path -> context id
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for debug output (file ingested, file removed, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// WithKeywordIndex keeps the given keyword index in step with ingested contexts.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(in *Ingestor) { in.keyword = idx }
}

// NewIngestor creates an ingestor writing into s.
// extractor may be nil; when nil, all files are treated as plain text.
func NewIngestor(s store.ContextStore, extractor *extract.Extractor, opts ...Option) *Ingestor {
	in := &Ingestor{
		store:     s,
		extractor: extractor,
		byPath:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// fileTags returns the tags for a context ingested from path.
func fileTags(path string) []string {
	tags := []string{TagFile}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
		tags = append(tags, ext)
	}
	return tags
}

// IngestFile extracts text from the file at path and stores it as a context.
// The same path always maps to the same context.
func (in *Ingestor) IngestFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	var content string
	if in.extractor != nil {
		content, err = in.extractor.Extract(abs)
	} else {
		var e extract.Extractor
		content, err = e.Extract(abs)
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", abs, err)
	}

	in.mu.Lock()
	id, known := in.byPath[abs]
	in.mu.Unlock()

	var record *models.Context
	if known {
		record, err = in.store.Update(ctx, id, &models.ContextUpdate{Content: &content})
		if err != nil {
			return fmt.Errorf("update context for %s: %w", abs, err)
		}
	} else {
		record, err = in.store.Create(ctx, content, fileTags(abs))
		if err != nil {
			return fmt.Errorf("create context for %s: %w", abs, err)
		}
		in.mu.Lock()
		in.byPath[abs] = record.ID
		in.mu.Unlock()
	}

	if in.keyword != nil {
		if kwErr := in.keyword.Index(ctx, record); kwErr != nil && in.logger != nil {
			in.logger.Warn("keyword index failed", zap.String("path", abs), zap.Error(kwErr))
		}
	}
	if in.logger != nil {
		in.logger.Debug("file ingested", zap.String("path", abs), zap.String("context_id", record.ID))
	}
	return nil
}

// RemoveFile deletes the context created for path, if any.
// Unknown paths are a no-op.
func (in *Ingestor) RemoveFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	in.mu.Lock()
	id, known := in.byPath[abs]
	if known {
		delete(in.byPath, abs)
	}
	in.mu.Unlock()
	if !known {
		return nil
	}
	if err := in.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete context for %s: %w", abs, err)
	}
	if in.keyword != nil {
		if kwErr := in.keyword.Delete(ctx, id); kwErr != nil && in.logger != nil {
			in.logger.Warn("keyword delete failed", zap.String("path", abs), zap.Error(kwErr))
		}
	}
	if in.logger != nil {
		in.logger.Debug("file removed", zap.String("path", abs), zap.String("context_id", id))
	}
	return nil
}

// ContextID returns the context id tracked for path, if any.
func (in *Ingestor) ContextID(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	id, ok := in.byPath[abs]
	return id, ok
}
