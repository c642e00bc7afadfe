package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leonardcser/cachestorage/internal/expiry"
	"github.com/leonardcser/cachestorage/internal/logger"
	"github.com/leonardcser/cachestorage/internal/timedstore"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Searcher queries the DuckDuckGo HTML endpoint and caches result lists for
// ttlMinutes.
type Searcher struct {
	client     *http.Client
	endpoint   string
	cache      *timedstore.Store[[]SearchResult]
	ttlMinutes int
}

func NewSearcher(cache *timedstore.Store[[]SearchResult], ttlMinutes int) *Searcher {
	return &Searcher{
		client:     &http.Client{Timeout: 15 * time.Second},
		endpoint:   searchEndpoint,
		cache:      cache,
		ttlMinutes: ttlMinutes,
	}
}

func searchKey(q string) string { return "web-search:" + q }

// Search returns up to limit results for query. limit outside 1..20 means 10.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}

	key := searchKey(q)
	if cached, ok := s.cached(key); ok {
		return truncate(cached, limit), nil
	}
	results, err := s.query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, results, expiry.WithInterval(expiry.Minute), expiry.WithUnits(s.ttlMinutes)); err != nil {
		logger.Warnf("web-search cache write %s: %v", key, err)
	}
	return results, nil
}

// cached reports a hit only for a readable entry; read errors are logged and
// treated as a miss.
func (s *Searcher) cached(key string) ([]SearchResult, bool) {
	results, ok, err := s.cache.Get(key)
	if err != nil {
		logger.Warnf("web-search cache read %s: %v", key, err)
		return nil, false
	}
	return results, ok
}

// query performs one request against the endpoint.
func (s *Searcher) query(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = url.Values{"q": {q}, "kl": {"us-en"}}.Encode()
	for name, value := range browserHeaders() {
		req.Header.Set(name, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}
	return parseResults(resp.Body, limit)
}

func truncate(results []SearchResult, limit int) []SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

// parseResults reads the result blocks of a DuckDuckGo HTML page, falling
// back to bare result anchors when the block markup is missing.
func parseResults(r io.Reader, limit int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, limit)
	doc.Find("div.result.results_links.results_links_deep.web-result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s.Find("a.result__a").First()
		link := strings.TrimSpace(a.AttrOr("href", ""))
		title := singleLine(a.Text())
		if title != "" && link != "" {
			results = append(results, SearchResult{
				Title:       title,
				Description: singleLine(s.Find("a.result__snippet").First().Text()),
				Link:        unwrapRedirect(link),
			})
		}
		return len(results) < limit
	})
	if len(results) > 0 {
		return results, nil
	}

	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		results = append(results, SearchResult{
			Title:       singleLine(a.Text()),
			Description: singleLine(a.Parents().Find("a.result__snippet").First().Text()),
			Link:        unwrapRedirect(strings.TrimSpace(a.AttrOr("href", ""))),
		})
		return len(results) < limit
	})
	return results, nil
}

// unwrapRedirect extracts the target of a DuckDuckGo redirect link such as
// //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=... and returns any
// other link unchanged.
func unwrapRedirect(link string) string {
	raw := link
	if strings.HasPrefix(raw, "//duckduckgo.com/l/") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return link
	}
	// Query() has already unescaped the value.
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return link
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
