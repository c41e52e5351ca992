// Package merge deduplicates source rows sharing a product key into one
// canonical record per key.
package merge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopfront/catalogimport/category"
	"github.com/shopfront/catalogimport/models"
	"github.com/shopfront/catalogimport/tabular"
)

// labelValueRe re-emits "Label: value" idioms embedded in free text as
// standalone feature tokens.
var labelValueRe = regexp.MustCompile(`(\pL[\pL\pN /%-]*?)\s*:\s*([^;:]+)`)

// Merger accumulates canonical records across one or more source tables.
// Attribute ordering is first-seen-wins and deterministic for a fixed
// input row order.
type Merger struct {
	keyColumn string

	records map[models.ProductKey]*models.CanonicalProductRecord
	order   []models.ProductKey
	skipped int
}

// NewMerger builds a merger keyed on the named header column, matched
// case-sensitively.
func NewMerger(keyColumn string) *Merger {
	return &Merger{
		keyColumn: keyColumn,
		records:   make(map[models.ProductKey]*models.CanonicalProductRecord),
	}
}

// MergeTable folds every row of the table into the canonical records.
// Rows without a key are counted as skipped, never fatal; a header
// without the key column aborts the pass since no safe default exists.
func (m *Merger) MergeTable(table *tabular.Table) error {
	classes := models.ClassifyHeader(table.Header, m.keyColumn)

	keyCol := -1
	for i, class := range classes {
		if class.Role == models.ColumnKey {
			keyCol = i
			break
		}
	}
	if keyCol < 0 {
		return fmt.Errorf("header missing key column %q", m.keyColumn)
	}

	for _, row := range table.Rows {
		key := models.ProductKey(strings.TrimSpace(table.Cell(row, keyCol)))
		if key == "" {
			m.skipped++
			continue
		}
		m.mergeRow(key, table, row, classes)
	}
	return nil
}

func (m *Merger) mergeRow(key models.ProductKey, table *tabular.Table, row []string, classes []models.ColumnClass) {
	rec, ok := m.records[key]
	if !ok {
		rec = &models.CanonicalProductRecord{Key: key}
		m.records[key] = rec
		m.order = append(m.order, key)
	}
	rec.RawRowCount++

	levels := make([]string, 3)
	for i, class := range classes {
		value := strings.TrimSpace(table.Cell(row, i))
		if value == "" {
			continue
		}
		switch class.Role {
		case models.ColumnName:
			rec.Names.Add(value)
		case models.ColumnDescription:
			rec.Descriptions.Add(value)
		case models.ColumnShortDescription:
			rec.ShortDescriptions.Add(value)
		case models.ColumnImageURL:
			rec.ImageCandidateURLs.Add(value)
		case models.ColumnCategory:
			if class.CategoryLevel < len(levels) {
				levels[class.CategoryLevel] = value
			}
		case models.ColumnSpecLike:
			for _, token := range ExtractFeatureTokens(value) {
				rec.Features.Add(token)
			}
		}
	}

	if path := AssemblePath(levels[0], levels[1], levels[2]); path != "" {
		rec.Categories.Add(path)
	}
}

// Records returns the canonical records in first-seen key order.
func (m *Merger) Records() []*models.CanonicalProductRecord {
	out := make([]*models.CanonicalProductRecord, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.records[key])
	}
	return out
}

// Record returns the canonical record for key, or nil.
func (m *Merger) Record(key models.ProductKey) *models.CanonicalProductRecord {
	return m.records[key]
}

// Skipped returns how many key-less rows were dropped.
func (m *Merger) Skipped() int {
	return m.skipped
}

// AssemblePath joins the non-empty hierarchy levels with the fixed
// separator. A literal "0" child2 is a placeholder and treated empty.
func AssemblePath(top, child1, child2 string) string {
	if child2 == "0" {
		child2 = ""
	}
	levels := make([]string, 0, 3)
	for _, level := range []string{top, child1, child2} {
		if level = strings.TrimSpace(level); level != "" {
			levels = append(levels, level)
		}
	}
	return strings.Join(levels, category.PathSeparator)
}

// ExtractFeatureTokens splits a spec-like cell into individual feature
// tokens: the cell is split on semicolons, leading tag colons are
// dropped, and any embedded "Label: value" idiom is re-emitted in
// canonical "Label: value" form.
func ExtractFeatureTokens(cell string) []string {
	var tokens []string
	push := func(token string) {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}

	for _, part := range strings.Split(cell, ";") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, ":")
		push(part)
	}

	for _, pair := range labelValueRe.FindAllStringSubmatch(cell, -1) {
		push(fmt.Sprintf("%s: %s", strings.TrimSpace(pair[1]), strings.TrimSpace(pair[2])))
	}
	return tokens
}
