// Package images resolves product image candidates from source catalogs
// and downloads them under bounded concurrency with per-host pacing.
package images

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopfront/catalogimport/category"
	"github.com/shopfront/catalogimport/models"
	"github.com/shopfront/catalogimport/tabular"
)

// WebScheme reports whether raw is a fetchable http(s) URL. Candidates
// failing this are recorded as unresolved, never attempted.
func WebScheme(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// Catalog maps a product key or name to a candidate image URL.
// Implementations must be safe for concurrent lookups.
type Catalog interface {
	Lookup(key models.ProductKey, name string) (url string, ok bool)
}

// CSVCatalog resolves candidates from one tabular source mapping
// key/name to an image URL column.
type CSVCatalog struct {
	byKey      map[models.ProductKey]string
	byName     map[string]string
	nameTokens []nameEntry
}

type nameEntry struct {
	tokens []string
	url    string
}

// NewCSVCatalog builds a catalog from a parsed table. The key column is
// matched case-sensitively; name and image columns are detected from the
// header. A table without an image column is rejected up front.
func NewCSVCatalog(table *tabular.Table, keyColumn string) (*CSVCatalog, error) {
	classes := models.ClassifyHeader(table.Header, keyColumn)

	keyCol, nameCol, urlCol := -1, -1, -1
	for i, class := range classes {
		switch class.Role {
		case models.ColumnKey:
			keyCol = i
		case models.ColumnName:
			if nameCol < 0 {
				nameCol = i
			}
		case models.ColumnImageURL:
			if urlCol < 0 {
				urlCol = i
			}
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("image catalog has no image URL column")
	}

	c := &CSVCatalog{
		byKey:  make(map[models.ProductKey]string),
		byName: make(map[string]string),
	}
	for _, row := range table.Rows {
		url := strings.TrimSpace(table.Cell(row, urlCol))
		if url == "" {
			continue
		}
		if keyCol >= 0 {
			if key := strings.TrimSpace(table.Cell(row, keyCol)); key != "" {
				if _, seen := c.byKey[models.ProductKey(key)]; !seen {
					c.byKey[models.ProductKey(key)] = url
				}
			}
		}
		if nameCol >= 0 {
			if normalized := category.Normalize(table.Cell(row, nameCol)); normalized != "" {
				if _, seen := c.byName[normalized]; !seen {
					c.byName[normalized] = url
					c.nameTokens = append(c.nameTokens, nameEntry{
						tokens: strings.Fields(normalized),
						url:    url,
					})
				}
			}
		}
	}
	return c, nil
}

// Lookup picks a candidate: exact key match first, then normalized-name
// exact match, then a token-overlap match requiring at least
// min(2, tokenCount) shared tokens.
func (c *CSVCatalog) Lookup(key models.ProductKey, name string) (string, bool) {
	if url, ok := c.byKey[key]; ok {
		return url, true
	}

	normalized := category.Normalize(name)
	if normalized == "" {
		return "", false
	}
	if url, ok := c.byName[normalized]; ok {
		return url, true
	}

	query := strings.Fields(normalized)
	need := 2
	if len(query) < need {
		need = len(query)
	}
	for _, entry := range c.nameTokens {
		if tokenOverlap(query, entry.tokens) >= need {
			return entry.url, true
		}
	}
	return "", false
}

func tokenOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, token := range b {
		set[token] = struct{}{}
	}
	count := 0
	for _, token := range a {
		if _, ok := set[token]; ok {
			count++
		}
	}
	return count
}
