package pipeline

import (
	"strings"

	"github.com/shopfront/catalogimport/models"
	"github.com/shopfront/catalogimport/tabular"
)

// EnrichedHeader is the column layout of the corrected, re-importable
// table. Multi-valued attributes are joined so the table round-trips
// through the downstream importer.
var EnrichedHeader = []string{
	"sku", "name", "description", "short_description",
	"categories", "specs", "features", "image",
}

const (
	categoryJoin = "|"
	tokenJoin    = "; "
)

// BuildEnrichedTable renders canonical records into the output table,
// one row per product key, in merge order.
func BuildEnrichedTable(records []*models.CanonicalProductRecord) *tabular.Table {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			string(rec.Key),
			rec.Name(),
			rec.Descriptions.First(),
			rec.ShortDescriptions.First(),
			strings.Join(rec.Categories.Values(), categoryJoin),
			strings.Join(rec.CategorySpecs.Values(), tokenJoin),
			strings.Join(rec.Features.Values(), tokenJoin),
			rec.ResolvedImagePath,
		})
	}
	return &tabular.Table{Header: EnrichedHeader, Rows: rows}
}

// SerializeTable renders a table, header first, as delimiter-separated text.
func SerializeTable(table *tabular.Table) string {
	all := make([][]string, 0, len(table.Rows)+1)
	all = append(all, table.Header)
	all = append(all, table.Rows...)
	return tabular.Serialize(all)
}
