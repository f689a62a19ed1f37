package models

import "fmt"

// SearchQuery represents a semantic search request with optional filters.
type SearchQuery struct {
	Query    string   `json:"query"`
	Tags     []string `json:"tags,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	MinScore float64  `json:"min_score,omitempty"` // chunk score floor; 0 means no floor
}

// Validate ensures the search query has valid fields.
// Returns an error if the query is empty or the score floor is out of range.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return fmt.Errorf("min_score must be in [0, 1], got %v", q.MinScore)
	}
	return nil
}

// ReferenceQuery is a reference-based retrieval request: fetch contexts by id,
// bypassing similarity scoring.
type ReferenceQuery struct {
	IDs []string `json:"ids"`
}
