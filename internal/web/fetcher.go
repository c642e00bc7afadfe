package web

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/leonardcser/cachestorage/internal/expiry"
	"github.com/leonardcser/cachestorage/internal/logger"
	"github.com/leonardcser/cachestorage/internal/timedstore"
)

const RequestTimeout = 20 * time.Second

// Fetcher retrieves pages and keeps their summaries in a timed store for
// ttlMinutes.
type Fetcher struct {
	cache      *timedstore.Store[PageSummary]
	ttlMinutes int
}

func NewFetcher(cache *timedstore.Store[PageSummary], ttlMinutes int) *Fetcher {
	return &Fetcher{cache: cache, ttlMinutes: ttlMinutes}
}

func fetchKey(rawURL string) string { return "web-fetch:" + rawURL }

func newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(RequestTimeout)
	c.OnRequest(func(r *colly.Request) {
		for name, value := range browserHeaders() {
			r.Headers.Set(name, value)
		}
	})
	return c
}

// Fetch returns the summary of rawURL, from the cache while it is fresh.
// Cache failures are logged and never fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*PageSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}

	key := fetchKey(rawURL)
	cached, ok, err := f.cache.Get(key)
	if err != nil {
		logger.Warnf("web-fetch cache read %s: %v", key, err)
	} else if ok {
		return &cached, nil
	}

	var (
		body        []byte
		finalURL    string
		contentType string
	)
	c := newCollector(ctx)
	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})
	if err := c.Visit(rawURL); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ps, err := Summarize(body, contentType, finalURL)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(key, *ps, expiry.WithInterval(expiry.Minute), expiry.WithUnits(f.ttlMinutes)); err != nil {
		logger.Warnf("web-fetch cache write %s: %v", key, err)
	}
	return ps, nil
}
