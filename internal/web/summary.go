package web

import (
	"bytes"
	"errors"
	"net/url"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

const (
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	maxLinks        = 50
)

// invisible lists elements that never carry readable text.
const invisible = "script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet"

var ErrUnsupportedContent = errors.New("unsupported content type: binary files like images or PDFs are not supported")

// PageSummary is what web-fetch returns and caches for a URL.
type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

// Summarize turns a response body into a PageSummary. HTML is reduced to
// title, description, outbound links and a markdown body; other text types
// are returned verbatim.
func Summarize(body []byte, contentType, finalURL string) (*PageSummary, error) {
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	if len(body) > MaxResponseSize {
		body = append(body[:MaxResponseSize:MaxResponseSize], []byte("... [response trimmed due to size]")...)
	}

	ct := strings.ToLower(contentType)
	if !strings.HasPrefix(ct, "text/") {
		return nil, ErrUnsupportedContent
	}
	if !strings.Contains(ct, "text/html") {
		return &PageSummary{URL: finalURL, Text: string(body)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	doc.Find(invisible).Remove()

	ps := &PageSummary{
		URL:         finalURL,
		Title:       strings.TrimSpace(doc.Find("head > title").First().Text()),
		Description: strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", "")),
		Links:       collectLinks(doc, finalURL),
	}

	doc.Find("a").Remove()
	doc.Find("header, footer, aside").Remove()

	plain := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	markup, err := doc.Html()
	if err != nil {
		return nil, err
	}
	if md, err := htmltomarkdown.ConvertString(markup); err == nil {
		ps.Text = md
	} else {
		ps.Text = plain
	}
	return ps, nil
}

// collectLinks resolves every anchor against base, drops non-navigable
// schemes and fragments, dedupes, and keeps at most maxLinks sorted entries.
func collectLinks(doc *goquery.Document, base string) []string {
	baseURL, _ := url.Parse(base)
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() && baseURL != nil {
			u = baseURL.ResolveReference(u)
		}
		switch u.Scheme {
		case "", "javascript", "mailto", "tel":
			return
		}
		u.Fragment = ""
		seen[u.String()] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	sort.Strings(links)
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	return links
}
