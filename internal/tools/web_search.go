package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/leonardcser/cachestorage/internal/web"
)

// WebSearchHandler serves "web-search": the top ten results for "query".
func WebSearchHandler(searcher *web.Searcher) handler {
	return textTool("query", func(ctx context.Context, q string) (string, error) {
		results, err := searcher.Search(ctx, q, 10)
		if err != nil {
			return "", err
		}
		return formatSearchResults(results), nil
	})
}

func formatSearchResults(results []web.SearchResult) string {
	if len(results) == 0 {
		return "No results."
	}
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		block := fmt.Sprintf("%d. %s\n   %s", i+1, r.Title, r.Link)
		if r.Description != "" {
			block += "\n   " + r.Description
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}
