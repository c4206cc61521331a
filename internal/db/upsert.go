package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint; must appear in Columns
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// BulkUpsert stages rows in a temp table shaped like the target and merges
// them with a single INSERT ... ON CONFLICT. Rows that repeat a conflict key
// collapse to the last one, since Postgres refuses to update the same row
// twice in one statement. It returns the number of rows merged.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	rows, err := dedupe(cfg, rows)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := stagingTable(cfg.Table)
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		staging.Sanitize(), sanitizeTable(cfg.Table),
	)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", cfg.Table)
	}

	if _, err := CopyFrom(ctx, tx, staging[0], cfg.Columns, rows); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into staging table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, mergeSQL(cfg, staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// dedupe keeps one row per conflict key. A repeated key takes the values of
// its last occurrence and the position of its first.
func dedupe(cfg UpsertConfig, rows [][]any) ([][]any, error) {
	idx := make([]int, len(cfg.ConflictKeys))
	for i, k := range cfg.ConflictKeys {
		idx[i] = slices.Index(cfg.Columns, k)
		if idx[i] < 0 {
			return nil, eris.Errorf("db: upsert: conflict key %q is not an inserted column", k)
		}
	}

	seen := make(map[string]int, len(rows))
	out := make([][]any, 0, len(rows))
	var key strings.Builder
	for _, row := range rows {
		if len(row) != len(cfg.Columns) {
			return nil, eris.Errorf("db: upsert: row has %d values, want %d", len(row), len(cfg.Columns))
		}
		key.Reset()
		for _, i := range idx {
			fmt.Fprintf(&key, "%T:%v\x1f", row[i], row[i])
		}
		if at, ok := seen[key.String()]; ok {
			out[at] = row
			continue
		}
		seen[key.String()] = len(out)
		out = append(out, row)
	}
	return out, nil
}

func mergeSQL(cfg UpsertConfig, staging pgx.Identifier) string {
	cols := quoteAndJoin(cfg.Columns)
	action := "DO NOTHING"
	if set := setClauses(cfg); len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table), cols, cols, staging.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys), action)
}

// setClauses renders "col = EXCLUDED.col" for every column updated on
// conflict.
func setClauses(cfg UpsertConfig) []string {
	cols := cfg.UpdateCols
	if cols == nil {
		for _, c := range cfg.Columns {
			if !slices.Contains(cfg.ConflictKeys, c) {
				cols = append(cols, c)
			}
		}
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		q := pgx.Identifier{c}.Sanitize()
		out = append(out, q+" = EXCLUDED."+q)
	}
	return out
}

func stagingTable(table string) pgx.Identifier {
	return pgx.Identifier{"_tmp_upsert_" + strings.ReplaceAll(table, ".", "_")}
}

func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}

// sanitizeTable quotes a possibly schema-qualified table name.
func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
