// Package web provides a retrieval source that pulls supporting context
// from a fixed set of HTTP pages. Pages are fetched on demand, reduced to
// text blocks, and ranked by term overlap with the query.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/convoflow-ai/convoflow/pkg/logging"
	"github.com/convoflow-ai/convoflow/retrieval"
)

const defaultMaxBodyBytes = 2 << 20

// Source fetches configured pages and extracts query-relevant snippets.
type Source struct {
	client  *http.Client
	pages   []string
	maxBody int64
	logger  *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// WithMaxBodyBytes caps how much of each response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates a web source over the given page URLs.
func New(pages []string, opts ...Option) (*Source, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("web source requires at least one page URL")
	}

	s := &Source{
		client:  &http.Client{Timeout: 15 * time.Second},
		pages:   pages,
		maxBody: defaultMaxBodyBytes,
		logger:  logging.WithComponent("web_source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind reports the source kind used for merge tie-breaking.
func (s *Source) Kind() retrieval.SourceKind {
	return retrieval.SourceWeb
}

// Search fetches every configured page, splits it into text blocks, and
// returns the topK blocks by term overlap with the query. A page that
// fails to fetch is skipped; Search only fails when no page yields text.
func (s *Source) Search(ctx context.Context, query string, topK int) ([]retrieval.Snippet, error) {
	if topK <= 0 {
		return nil, nil
	}

	terms := queryTerms(query)
	var snippets []retrieval.Snippet
	fetched := 0

	for _, page := range s.pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		blocks, err := s.fetchBlocks(ctx, page)
		if err != nil {
			s.logger.Warn("page fetch failed", "url", page, "error", err)
			continue
		}
		fetched++

		for i, block := range blocks {
			score := overlapScore(terms, block)
			if score <= 0 {
				continue
			}
			snippets = append(snippets, retrieval.Snippet{
				ID:    fmt.Sprintf("%s#%d", page, i),
				Text:  block,
				Kind:  retrieval.SourceWeb,
				Score: score,
			})
		}
	}

	if fetched == 0 {
		return nil, fmt.Errorf("all %d pages failed to fetch", len(s.pages))
	}

	sort.Slice(snippets, func(i, j int) bool {
		if snippets[i].Score != snippets[j].Score {
			return snippets[i].Score > snippets[j].Score
		}
		return snippets[i].ID < snippets[j].ID
	})
	if len(snippets) > topK {
		snippets = snippets[:topK]
	}
	return snippets, nil
}

func (s *Source) fetchBlocks(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return extractBlocks(doc), nil
}

// extractBlocks keeps headings, paragraphs, and list items as separate
// ranked units. Script and style content never reaches here because
// goquery's Text() on these selectors excludes it.
func extractBlocks(doc *goquery.Document) []string {
	var out []string
	doc.Find("h1,h2,h3,p,li").Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		out = append(out, text)
	})
	return out
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		// Short function words carry no ranking signal.
		if len(f) < 3 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// overlapScore is the fraction of query terms present in the block.
func overlapScore(terms []string, block string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(block)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
