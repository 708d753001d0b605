package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"lawmcp/internal/model"
)

const (
	DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	maxResponseBytes     = 1 << 20
	userAgent            = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) lawmcp"
)

// DuckDuckGo scrapes the keyless HTML endpoint.
type DuckDuckGo struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewDuckDuckGo(baseURL string, httpClient *http.Client) *DuckDuckGo {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DuckDuckGo{BaseURL: baseURL, HTTPClient: httpClient}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	reqURL, err := url.Parse(d.BaseURL)
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeSearchFailed, Message: "invalid search URL", Cause: err}
	}
	q := reqURL.Query()
	q.Set("q", query)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeSearchFailed, Message: "failed to build search request", Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeSearchFailed, Message: "search request failed", Retryable: true, Cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeSearchFailed, Message: "failed to read search response", Retryable: true, StatusCode: resp.StatusCode, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusAccepted:
		// DuckDuckGo answers 202 with a challenge page when throttling.
		return nil, &model.ProviderError{Code: model.CodeSearchRateLimit, Message: "duckduckgo rate limited the request", Retryable: true, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, &model.ProviderError{Code: model.CodeSearchFailed, Message: fmt.Sprintf("duckduckgo returned status %d", resp.StatusCode), StatusCode: resp.StatusCode}
	}

	return parseResults(string(body), limit)
}

// parseResults extracts result blocks from the DuckDuckGo HTML page.
func parseResults(htmlContent string, limit int) ([]model.SearchHit, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &model.ProviderError{Code: model.CodeSearchFailed, Message: "failed to parse search page", Cause: err}
	}

	hits := []model.SearchHit{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(hits) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if hit, ok := extractHit(n); ok {
				hits = append(hits, hit)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hits, nil
}

func extractHit(n *html.Node) (model.SearchHit, bool) {
	var (
		hit     model.SearchHit
		rawLink string
		found   bool
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				found = true
				hit.Title = textContent(n)
				rawLink = attr(n, "href")
			case hasClass(n, "result__snippet"):
				hit.Snippet = textContent(n)
			case n.Data == "a" && hasClass(n, "result__url") && rawLink == "":
				rawLink = attr(n, "href")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	hit.Link = resolveLink(rawLink)
	return hit, found
}

// resolveLink unwraps DuckDuckGo's /l/?uddg= redirect to the target URL.
func resolveLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme == "" && strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
