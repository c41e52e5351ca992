package tabular

import (
	"fmt"
	"os"
)

// Table is a parsed header row plus data rows. Access through Cell pads
// or truncates ragged rows against the header, so a malformed row never
// aborts a pass.
type Table struct {
	Header []string
	Rows   [][]string
}

// Load reads and parses path, auto-detecting the delimiter from the
// header line. A file with no rows yields an empty table.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	return FromText(string(raw)), nil
}

// FromText parses text into a table, auto-detecting the delimiter.
func FromText(text string) *Table {
	rows := Parse(text, DetectDelimiter(text))
	if len(rows) == 0 {
		return &Table{}
	}
	return &Table{Header: rows[0], Rows: rows[1:]}
}

// Cell returns row[col], or "" when the row is shorter than the header.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ColumnIndex returns the index of the exact header name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}
