package images

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shopfront/catalogimport/models"
)

// WebCatalog is a best-effort image source that scrapes a product search
// page for a candidate URL. Its heuristics are unreliable by nature, so
// it sits behind the same Catalog interface as the structured sources and
// is only consulted when explicitly enabled; a miss here is just a miss.
type WebCatalog struct {
	searchURL string // template with a single %s for the query
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper // test hook
}

// NewWebCatalog builds a scraping catalog against a search URL template
// containing one %s placeholder for the url-escaped query.
func NewWebCatalog(searchURL string, timeout time.Duration) (*WebCatalog, error) {
	if !strings.Contains(searchURL, "%s") {
		return nil, fmt.Errorf("search URL must contain a %%s query placeholder")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebCatalog{
		searchURL: searchURL,
		timeout:   timeout,
		userAgent: "catimport/1.0",
	}, nil
}

// Lookup scrapes the search page for name (falling back to the key) and
// returns the first plausible product image URL found.
func (w *WebCatalog) Lookup(key models.ProductKey, name string) (string, bool) {
	query := strings.TrimSpace(name)
	if query == "" {
		query = string(key)
	}
	if query == "" {
		return "", false
	}

	target := fmt.Sprintf(w.searchURL, url.QueryEscape(query))
	parsed, err := url.Parse(target)
	if err != nil {
		return "", false
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(w.userAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(w.timeout)
	if w.transport != nil {
		collector.WithTransport(w.transport)
	}

	found := ""
	collector.OnHTML("img[src]", func(e *colly.HTMLElement) {
		if found != "" {
			return
		}
		src := e.Request.AbsoluteURL(e.Attr("src"))
		if plausibleProductImage(src) {
			found = src
		}
	})

	if err := collector.Visit(target); err != nil {
		return "", false
	}
	collector.Wait()
	return found, found != ""
}

// plausibleProductImage filters out icons, sprites, and tracking pixels.
func plausibleProductImage(src string) bool {
	if src == "" {
		return false
	}
	lower := strings.ToLower(src)
	for _, noise := range []string{"logo", "icon", "sprite", "pixel", "placeholder", "banner"} {
		if strings.Contains(lower, noise) {
			return false
		}
	}
	if ext := strings.ToLower(urlExt(lower)); ext != "" {
		_, ok := imageExtensions[ext]
		return ok
	}
	return strings.Contains(lower, "/image") || strings.Contains(lower, "/img")
}

func urlExt(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := parsed.Path
	if idx := strings.LastIndexByte(p, '.'); idx >= 0 {
		return p[idx:]
	}
	return ""
}
