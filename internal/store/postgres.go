package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Postgres persists tables in two relations: one for header schemas, one for
// positional rows. row_idx is kept dense so it doubles as the logical row
// index exposed through the Table interface.
type Postgres struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS catalog_tables (
	name    text  PRIMARY KEY,
	headers text[] NOT NULL
);
CREATE TABLE IF NOT EXISTS catalog_rows (
	table_name text   NOT NULL REFERENCES catalog_tables(name) ON DELETE CASCADE,
	row_idx    int    NOT NULL,
	cells      text[] NOT NULL
);
CREATE INDEX IF NOT EXISTS catalog_rows_table_idx ON catalog_rows (table_name, row_idx);
`

// NewPostgres constructs a PostgreSQL-backed store and ensures its schema.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) ListTables(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name FROM catalog_tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (p *Postgres) Table(ctx context.Context, name string) (Table, error) {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO catalog_tables (name, headers)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, name, pq.Array(DefaultHeaders(name)))
	if err != nil {
		return nil, fmt.Errorf("ensure table %q: %w", name, err)
	}
	return &postgresTable{db: p.db, name: name}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type postgresTable struct {
	db   *sql.DB
	name string
}

func (t *postgresTable) Name() string { return t.name }

func (t *postgresTable) Headers(ctx context.Context) ([]string, error) {
	var headers []string
	err := t.db.QueryRowContext(ctx,
		`SELECT headers FROM catalog_tables WHERE name = $1`, t.name,
	).Scan(pq.Array(&headers))
	if err != nil {
		return nil, fmt.Errorf("read headers for %q: %w", t.name, err)
	}
	return headers, nil
}

func (t *postgresTable) Rows(ctx context.Context) ([][]string, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT cells FROM catalog_rows
		WHERE table_name = $1
		ORDER BY row_idx
	`, t.name)
	if err != nil {
		return nil, fmt.Errorf("read rows for %q: %w", t.name, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cells []string
		if err := rows.Scan(pq.Array(&cells)); err != nil {
			return nil, fmt.Errorf("scan row for %q: %w", t.name, err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (t *postgresTable) Append(ctx context.Context, row []string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO catalog_rows (table_name, row_idx, cells)
		SELECT $1, COALESCE(MAX(row_idx) + 1, 0), $2
		FROM catalog_rows WHERE table_name = $1
	`, t.name, pq.Array(row))
	if err != nil {
		return fmt.Errorf("append row to %q: %w", t.name, err)
	}
	return nil
}

func (t *postgresTable) SetCell(ctx context.Context, rowIdx, colIdx int, value string) error {
	// text[] is 1-based in PostgreSQL.
	res, err := t.db.ExecContext(ctx, `
		UPDATE catalog_rows SET cells[$1] = $2
		WHERE table_name = $3 AND row_idx = $4
	`, colIdx+1, value, t.name, rowIdx)
	if err != nil {
		return fmt.Errorf("set cell in %q: %w", t.name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRowOutOfRange
	}
	return nil
}

func (t *postgresTable) DeleteRow(ctx context.Context, rowIdx int) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete row in %q: %w", t.name, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM catalog_rows WHERE table_name = $1 AND row_idx = $2`,
		t.name, rowIdx)
	if err != nil {
		return fmt.Errorf("delete row in %q: %w", t.name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRowOutOfRange
	}
	// Keep row_idx dense so logical indices stay valid.
	if _, err := tx.ExecContext(ctx,
		`UPDATE catalog_rows SET row_idx = row_idx - 1 WHERE table_name = $1 AND row_idx > $2`,
		t.name, rowIdx); err != nil {
		return fmt.Errorf("renumber rows in %q: %w", t.name, err)
	}
	return tx.Commit()
}
