// Package cli provides output formatting for the contextd CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/contextd/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Context: %s\n", result.Rank, result.Score, result.ContextID)
		for _, chunk := range result.Chunks {
			fmt.Fprintf(w, "  [chunk %d, %.4f] %s\n", chunk.ChunkIndex, chunk.Score, Truncate(chunk.Content, 120))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteContexts writes context records to w in the given format.
func WriteContexts(w io.Writer, contexts []*models.Context, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(contexts)
	}
	for _, c := range contexts {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "ID: %s\n", c.ID)
		if len(c.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(c.Tags, ", "))
		}
		fmt.Fprintf(w, "Created: %s | Updated: %s\n",
			c.CreatedAt.Format("2006-01-02 15:04:05"), c.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "\n%s\n\n", Truncate(c.Content, 200))
	}
	return nil
}

// WriteContext writes a single context record to w in the given format.
func WriteContext(w io.Writer, c *models.Context, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	return WriteContexts(w, []*models.Context{c}, format)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
