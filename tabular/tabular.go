// Package tabular reads and writes delimiter-separated tabular text.
//
// The reader is deliberately more tolerant than encoding/csv: source
// exports arrive with inconsistent quoting, mixed line endings, ragged
// rows, and a final line without a terminator, and none of that should
// abort a batch.
package tabular

import "strings"

// Parse splits text into rows of fields. Quoted fields may contain the
// delimiter, newlines, and doubled double quotes. Carriage returns are
// stripped, quoted CRLF line endings included, and a final unterminated
// row is still emitted. Empty input yields zero rows.
func Parse(text string, delim rune) [][]string {
	if text == "" {
		return nil
	}

	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	runes := []rune(text)
	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes {
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else if field.Len() == 0 {
				inQuotes = true
			} else {
				// Stray quote mid-field, keep it verbatim.
				field.WriteRune(c)
			}
		case c == delim && !inQuotes:
			endField()
		case c == '\n' && !inQuotes:
			endRow()
		case c == '\r' && (!inQuotes || (i+1 < len(runes) && runes[i+1] == '\n')):
			// dropped; a quoted CRLF folds to a bare newline
		default:
			field.WriteRune(c)
		}
	}

	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}
	return rows
}

// Serialize renders rows as comma-separated text. Any field containing a
// quote, comma, or newline is quoted with internal quotes doubled.
func Serialize(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			writeField(&b, field)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func writeField(b *strings.Builder, field string) {
	if !strings.ContainsAny(field, "\",\n\r") {
		b.WriteString(field)
		return
	}
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(field, `"`, `""`))
	b.WriteByte('"')
}

// DetectDelimiter inspects the first line of text and picks between
// semicolon and comma by counting occurrences outside quotes.
func DetectDelimiter(text string) rune {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	commas, semis := 0, 0
	inQuotes := false
	for _, c := range line {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				commas++
			}
		case ';':
			if !inQuotes {
				semis++
			}
		}
	}
	if semis > commas {
		return ';'
	}
	return ','
}
