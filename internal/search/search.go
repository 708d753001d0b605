// Package search backs the web_search tool. The backend is chosen at
// startup; a disabled backend never touches the network.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lawmcp/internal/config"
	"lawmcp/internal/model"
)

const noResultsText = "No results found."

// Outcome is the result of one search call.
type Outcome struct {
	Query string
	Hits  []model.SearchHit
	Err   error
}

// String renders the outcome as the caller-visible text.
func (o Outcome) String() string {
	if o.Err != nil {
		if errors.Is(o.Err, model.ErrSearchUnavailable) {
			return "[Search unavailable] web search is disabled. Query was: " + o.Query
		}
		return fmt.Sprintf("Search error: %v", o.Err)
	}
	if len(o.Hits) == 0 {
		return noResultsText
	}
	blocks := make([]string, 0, len(o.Hits))
	for _, hit := range o.Hits {
		title := hit.Title
		if title == "" {
			title = "No title"
		}
		blocks = append(blocks, "- "+title+"\n  "+hit.Link+"\n  "+hit.Snippet)
	}
	return strings.Join(blocks, "\n\n")
}

// Degraded reports whether the caller got something other than results.
func (o Outcome) Degraded() bool {
	return o.Err != nil
}

// Run queries s for at most limit hits. Failures, including panics in the
// backend, are captured in the Outcome.
func Run(ctx context.Context, s model.Searcher, query string, limit int) (out Outcome) {
	out.Query = query
	defer func() {
		if rec := recover(); rec != nil {
			out.Hits = nil
			out.Err = &model.ProviderError{Code: model.CodeSearchFailed, Message: fmt.Sprintf("search backend panicked: %v", rec)}
		}
	}()
	hits, err := s.Search(ctx, query, limit)
	if err != nil {
		out.Err = err
		return out
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out.Hits = hits
	return out
}

// Disabled is the backend used when search is turned off.
type Disabled struct{}

func (Disabled) Search(context.Context, string, int) ([]model.SearchHit, error) {
	return nil, model.ErrSearchUnavailable
}

// New returns the configured backend and its name.
func New(cfg config.SearchConfig, logger *zap.Logger) (model.Searcher, string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Warn("web search disabled; web_search will report unavailable")
		return Disabled{}, "disabled"
	}
	logger.Info("web search backend selected", zap.String("backend", cfg.Backend))
	return NewDuckDuckGo(cfg.BaseURL, nil), config.SearchBackendDuckDuckGo
}
