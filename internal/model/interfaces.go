package model

import "context"

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SearchHit is one web search result. Empty fields are rendered with
// placeholders by the formatter, not here.
type SearchHit struct {
	Title   string
	Link    string
	Snippet string
}

// Searcher runs a bounded free-text web search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}
