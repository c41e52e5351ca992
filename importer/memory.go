package importer

import (
	"context"
	"fmt"

	"github.com/shopfront/catalogimport/tabular"
)

// MemoryTarget is an in-memory Target used in tests and offline runs.
// Apply stages every update on a copy and swaps it in only when the
// whole batch succeeds, mirroring the transactional contract.
type MemoryTarget struct {
	Store map[string]map[string]string

	// FailOnKey injects a mid-batch failure during Apply.
	FailOnKey string
}

// NewMemoryTarget returns an empty in-memory target.
func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{Store: make(map[string]map[string]string)}
}

// DryRun validates the table and reports which keys would be inserted
// versus updated. The store is never touched.
func (m *MemoryTarget) DryRun(ctx context.Context, table *tabular.Table) (*Report, error) {
	rows, problems, err := ValidateTable(table)
	if err != nil {
		return nil, err
	}

	report := &Report{Problems: problems}
	for _, row := range rows {
		if _, exists := m.Store[row.Key]; exists {
			report.Updates = append(report.Updates, row.Key)
		} else {
			report.Inserts = append(report.Inserts, row.Key)
		}
	}
	return report, nil
}

// Apply upserts every valid row, all-or-nothing.
func (m *MemoryTarget) Apply(ctx context.Context, table *tabular.Table) (*Applied, error) {
	rows, _, err := ValidateTable(table)
	if err != nil {
		return nil, err
	}

	staged := make(map[string]map[string]string, len(m.Store))
	for key, values := range m.Store {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		staged[key] = copied
	}

	applied := &Applied{}
	for _, row := range rows {
		if existing, ok := m.Store[row.Key]; ok {
			applied.Snapshot = append(applied.Snapshot, Row{Key: row.Key, Values: existing})
		}
	}
	for _, row := range rows {
		if row.Key == m.FailOnKey {
			return nil, fmt.Errorf("apply failed on key %q", row.Key)
		}
		staged[row.Key] = row.Values
		applied.Keys = append(applied.Keys, row.Key)
	}

	m.Store = staged
	return applied, nil
}
