package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopfront/catalogimport/tabular"
)

// productColumns are the enriched-table columns persisted to the
// products table, in insert order, key first.
var productColumns = []string{
	"sku", "name", "description", "short_description",
	"categories", "specs", "features", "image",
}

// PostgresTarget persists enriched rows into a products table over pgx.
type PostgresTarget struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresTarget connects a target to the given pool.
func NewPostgresTarget(pool *pgxpool.Pool) *PostgresTarget {
	return &PostgresTarget{pool: pool, table: "products"}
}

// DryRun validates the table and classifies each key as insert or update
// by probing existing rows. No writes are performed.
func (t *PostgresTarget) DryRun(ctx context.Context, table *tabular.Table) (*Report, error) {
	rows, problems, err := ValidateTable(table)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
	}
	existing, err := t.existingKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	report := &Report{Problems: problems}
	for _, row := range rows {
		if _, ok := existing[row.Key]; ok {
			report.Updates = append(report.Updates, row.Key)
		} else {
			report.Inserts = append(report.Inserts, row.Key)
		}
	}
	return report, nil
}

// Apply snapshots the affected rows, then upserts every valid row inside
// a single transaction. Any failure rolls the whole batch back.
func (t *PostgresTarget) Apply(ctx context.Context, table *tabular.Table) (*Applied, error) {
	rows, _, err := ValidateTable(table)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
	}

	applied := &Applied{}
	err = t.runInTx(ctx, func(tx pgx.Tx) error {
		snapshot, err := t.snapshotRows(ctx, tx, keys)
		if err != nil {
			return err
		}
		applied.Snapshot = snapshot

		for _, row := range rows {
			if err := t.upsertRow(ctx, tx, row); err != nil {
				return fmt.Errorf("upsert %s: %w", row.Key, err)
			}
			applied.Keys = append(applied.Keys, row.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (t *PostgresTarget) runInTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t *PostgresTarget) existingKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	query := fmt.Sprintf(`SELECT sku FROM %s WHERE sku = ANY($1)`, t.table)
	rows, err := t.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("probe existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan existing key: %w", err)
		}
		existing[sku] = struct{}{}
	}
	return existing, rows.Err()
}

func (t *PostgresTarget) snapshotRows(ctx context.Context, tx pgx.Tx, keys []string) ([]Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT sku, name, description, short_description, categories, specs, features, image
		 FROM %s WHERE sku = ANY($1) FOR UPDATE`, t.table)
	rows, err := tx.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("snapshot affected rows: %w", err)
	}
	defer rows.Close()

	var snapshot []Row
	for rows.Next() {
		values := make([]*string, len(productColumns))
		scan := make([]any, len(productColumns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		row := Row{Values: make(map[string]string, len(productColumns))}
		for i, col := range productColumns {
			if values[i] != nil {
				row.Values[col] = *values[i]
			}
		}
		row.Key = row.Values["sku"]
		snapshot = append(snapshot, row)
	}
	return snapshot, rows.Err()
}

func (t *PostgresTarget) upsertRow(ctx context.Context, tx pgx.Tx, row Row) error {
	args := make([]any, len(productColumns))
	placeholders := make([]string, len(productColumns))
	updates := make([]string, 0, len(productColumns)-1)
	for i, col := range productColumns {
		args[i] = row.Values[col]
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "sku" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)
		 ON CONFLICT (sku) DO UPDATE SET %s`,
		t.table,
		strings.Join(productColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	_, err := tx.Exec(ctx, query, args...)
	return err
}
