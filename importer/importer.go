// Package importer is the downstream persistence boundary: dry-run mode
// validates and reports without writing, apply mode persists all-or-nothing.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopfront/catalogimport/tabular"
)

// KeyColumn is the enriched-table column identifying a product row.
const KeyColumn = "sku"

// Target persists an enriched table. DryRun must perform no writes;
// Apply must be transactional, leaving the store untouched on failure.
type Target interface {
	DryRun(ctx context.Context, table *tabular.Table) (*Report, error)
	Apply(ctx context.Context, table *tabular.Table) (*Applied, error)
}

// RowProblem describes one row the target would reject.
type RowProblem struct {
	Row    int    `json:"row"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// Report is the outcome of a dry run: what the target would write.
type Report struct {
	Inserts  []string     `json:"inserts,omitempty"`
	Updates  []string     `json:"updates,omitempty"`
	Problems []RowProblem `json:"problems,omitempty"`
}

// Applied is the outcome of a successful transactional apply. Snapshot
// holds the pre-mutation state of every affected record, captured before
// the first write, for audit and manual reversal.
type Applied struct {
	Keys     []string `json:"keys"`
	Snapshot []Row    `json:"snapshot,omitempty"`
}

// Row is one validated enriched-table row keyed by product.
type Row struct {
	Key    string            `json:"key"`
	Values map[string]string `json:"values"`
}

// ValidateTable checks the enriched table against the minimal target
// contract: a key column must exist, every row needs a non-empty key,
// and duplicate keys within one table are rejected.
func ValidateTable(table *tabular.Table) ([]Row, []RowProblem, error) {
	keyCol := table.ColumnIndex(KeyColumn)
	if keyCol < 0 {
		return nil, nil, fmt.Errorf("enriched table missing %q column", KeyColumn)
	}

	var (
		rows     []Row
		problems []RowProblem
		seen     = make(map[string]struct{})
	)
	for i, raw := range table.Rows {
		key := strings.TrimSpace(table.Cell(raw, keyCol))
		if key == "" {
			problems = append(problems, RowProblem{Row: i + 1, Reason: "empty key"})
			continue
		}
		if _, dup := seen[key]; dup {
			problems = append(problems, RowProblem{Row: i + 1, Key: key, Reason: "duplicate key"})
			continue
		}
		seen[key] = struct{}{}

		values := make(map[string]string, len(table.Header))
		for col, name := range table.Header {
			values[name] = table.Cell(raw, col)
		}
		rows = append(rows, Row{Key: key, Values: values})
	}
	return rows, problems, nil
}
