package keyword

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/hyperjump/contextd/internal/models"
)

// BleveIndex implements Index with an in-memory Bleve index. The index lives
// and dies with the process, matching the in-memory context store.
type BleveIndex struct {
	index bleve.Index
}

// keywordDoc is the shape indexed per context.
type keywordDoc struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// NewBleveIndex creates an in-memory Bleve index over context content and tags.
// Uses the standard analyzer (lowercase + tokenize, no stemming) so queries
// match exact words.
func NewBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("tags", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes (or re-indexes) a context by id.
func (b *BleveIndex) Index(ctx context.Context, c *models.Context) error {
	return b.index.Index(c.ID, keywordDoc{Content: c.Content, Tags: c.Tags})
}

// Delete removes a context from the index. Deleting an unknown id is a no-op.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search runs a match query over content and tags and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ContextID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed contexts.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
