package tools

import (
	"context"
	"strings"

	"github.com/leonardcser/cachestorage/internal/web"
)

// WebFetchHandler serves "web-fetch": the summary of the page at "url".
func WebFetchHandler(fetcher *web.Fetcher) handler {
	return textTool("url", func(ctx context.Context, url string) (string, error) {
		ps, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return "", err
		}
		return formatPageSummary(ps), nil
	})
}

func formatPageSummary(ps *web.PageSummary) string {
	var sb strings.Builder
	if ps.Title != "" {
		sb.WriteString("# " + ps.Title + "\n\n")
	}
	if ps.Description != "" {
		sb.WriteString(ps.Description + "\n\n")
	}
	if len(ps.Links) > 0 {
		sb.WriteString("## Links\n")
		for _, l := range ps.Links {
			sb.WriteString("- " + l + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(ps.Text)
	return sb.String()
}
