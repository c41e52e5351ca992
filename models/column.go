package models

import "strings"

// ColumnRole tags what a header column is used for during merging.
type ColumnRole int

const (
	// ColumnOther is any column the pipeline does not consume.
	ColumnOther ColumnRole = iota
	// ColumnKey holds the product key (SKU / product code).
	ColumnKey
	// ColumnName holds a product name.
	ColumnName
	// ColumnDescription holds a long description.
	ColumnDescription
	// ColumnShortDescription holds a short description.
	ColumnShortDescription
	// ColumnCategory holds one level of the category hierarchy.
	ColumnCategory
	// ColumnSpecLike holds free-text specification/feature tokens.
	ColumnSpecLike
	// ColumnImageURL holds a remote image URL.
	ColumnImageURL
)

// ColumnClass is the classification of one header column, computed once
// per table instead of re-testing string patterns throughout the pipeline.
type ColumnClass struct {
	Name          string
	Role          ColumnRole
	CategoryLevel int // 0-based hierarchy level, ColumnCategory only
}

var specLikeFragments = []string{"spec", "feature", "option", "attribute"}

// ClassifyHeader tags every header column. keyColumn is matched
// case-sensitively against the documented key column name; everything
// else uses case-insensitive substring detection on the header text.
// Category columns are assigned hierarchy levels in header order.
func ClassifyHeader(header []string, keyColumn string) []ColumnClass {
	classes := make([]ColumnClass, len(header))
	categoryLevel := 0
	for i, name := range header {
		classes[i] = ColumnClass{Name: name, Role: classifyColumn(name, keyColumn)}
		if classes[i].Role == ColumnCategory {
			classes[i].CategoryLevel = categoryLevel
			categoryLevel++
		}
	}
	return classes
}

func classifyColumn(name, keyColumn string) ColumnRole {
	if name == keyColumn {
		return ColumnKey
	}

	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.Contains(lower, "categor"):
		return ColumnCategory
	case strings.Contains(lower, "image") || strings.Contains(lower, "photo"):
		return ColumnImageURL
	case strings.Contains(lower, "description"):
		if strings.Contains(lower, "short") {
			return ColumnShortDescription
		}
		return ColumnDescription
	case lower == "name" || lower == "title" || strings.Contains(lower, "product name"):
		return ColumnName
	}

	for _, fragment := range specLikeFragments {
		if strings.Contains(lower, fragment) {
			return ColumnSpecLike
		}
	}
	return ColumnOther
}
