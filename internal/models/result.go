package models

// ChunkMatch is a single matching chunk with its individual score.
type ChunkMatch struct {
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchResult is one ranked context hit. Score is the aggregate for the
// context: the highest individual score among its matching chunks.
type SearchResult struct {
	ContextID string        `json:"context_id"`
	Score     float64       `json:"score"`
	Chunks    []*ChunkMatch `json:"chunks"`
	Rank      int           `json:"rank"`
}

// SearchResponse is the response for a semantic search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
