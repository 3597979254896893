package sheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"academy/internal/apperr"
)

// Postgres keeps every table as ordered rows of a single generic table.
// Row order is insertion order (the serial id), matching a worksheet.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates the backing table if needed.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sheet_rows (
			id    BIGSERIAL PRIMARY KEY,
			tbl   TEXT NOT NULL,
			cells JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sheet_rows_tbl ON sheet_rows (tbl, id);
	`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Connection, "postgres migrate", err)
	}
	return &Postgres{db: db}, nil
}

type pgRow struct {
	id    int64
	cells []string
}

func (p *Postgres) load(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, t Table) ([]pgRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, cells FROM sheet_rows WHERE tbl = $1 ORDER BY id`, string(t))
	if err != nil {
		return nil, apperr.Wrap(apperr.Connection, "postgres read "+string(t), err)
	}
	defer rows.Close()
	var out []pgRow
	for rows.Next() {
		var r pgRow
		var raw []byte
		if err := rows.Scan(&r.id, &raw); err != nil {
			return nil, apperr.Wrap(apperr.Connection, "postgres read "+string(t), err)
		}
		if err := json.Unmarshal(raw, &r.cells); err != nil {
			return nil, apperr.Wrap(apperr.Parse, "postgres read "+string(t), err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Connection, "postgres read "+string(t), err)
	}
	return out, nil
}

func cellsOf(rows []pgRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.cells
	}
	return out
}

// Records returns every row of t in insertion order.
func (p *Postgres) Records(ctx context.Context, t Table) ([]Record, error) {
	if err := checkTable("postgres records", t); err != nil {
		return nil, err
	}
	rows, err := p.load(ctx, p.db, t)
	if err != nil {
		return nil, err
	}
	return toRecords(Schemas[t], cellsOf(rows)), nil
}

// Append inserts all rows in one transaction.
func (p *Postgres) Append(ctx context.Context, t Table, rows [][]string) error {
	if err := checkTable("postgres append", t); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Connection, "postgres append", err)
	}
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres append: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO sheet_rows (tbl, cells) VALUES ($1, $2)`, string(t), string(raw)); err != nil {
			_ = tx.Rollback()
			return apperr.Wrap(apperr.Connection, "postgres append "+string(t), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Connection, "postgres append "+string(t), err)
	}
	return nil
}

// Find returns the position of the first row whose column equals value.
func (p *Postgres) Find(ctx context.Context, t Table, column, value string) (int, error) {
	if err := checkTable("postgres find", t); err != nil {
		return 0, err
	}
	rows, err := p.load(ctx, p.db, t)
	if err != nil {
		return 0, err
	}
	idx := findIndex(Schemas[t], cellsOf(rows), column, value)
	if idx < 0 {
		return 0, apperr.New(apperr.NotFound, "postgres find", fmt.Sprintf("%s: no row with %s=%s", t, column, value))
	}
	return idx, nil
}

// Update rewrites a cell range of the row at position row.
func (p *Postgres) Update(ctx context.Context, t Table, row, startCol int, values []string) error {
	if err := checkTable("postgres update", t); err != nil {
		return err
	}
	width := len(Schemas[t])
	if startCol < 0 || startCol+len(values) > width {
		return fmt.Errorf("postgres update: %s: range %d+%d exceeds columns", t, startCol, len(values))
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Connection, "postgres update", err)
	}
	defer func() { _ = tx.Rollback() }()

	target, err := p.rowAt(ctx, tx, t, row)
	if err != nil {
		return err
	}
	cells := target.cells
	for len(cells) < startCol+len(values) {
		cells = append(cells, "")
	}
	copy(cells[startCol:], values)
	raw, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sheet_rows SET cells = $1 WHERE id = $2`, string(raw), target.id); err != nil {
		return apperr.Wrap(apperr.Connection, "postgres update "+string(t), err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Connection, "postgres update "+string(t), err)
	}
	return nil
}

// Delete removes the row at position row.
func (p *Postgres) Delete(ctx context.Context, t Table, row int) error {
	if err := checkTable("postgres delete", t); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Connection, "postgres delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	target, err := p.rowAt(ctx, tx, t, row)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE id = $1`, target.id); err != nil {
		return apperr.Wrap(apperr.Connection, "postgres delete "+string(t), err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Connection, "postgres delete "+string(t), err)
	}
	return nil
}

func (p *Postgres) rowAt(ctx context.Context, tx *sql.Tx, t Table, row int) (pgRow, error) {
	if row < 0 {
		return pgRow{}, apperr.New(apperr.NotFound, "postgres row", fmt.Sprintf("%s: row %d out of range", t, row))
	}
	var r pgRow
	var raw []byte
	err := tx.QueryRowContext(ctx, `
		SELECT id, cells FROM sheet_rows
		WHERE tbl = $1
		ORDER BY id
		OFFSET $2 LIMIT 1
	`, string(t), row).Scan(&r.id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return pgRow{}, apperr.New(apperr.NotFound, "postgres row", fmt.Sprintf("%s: row %d out of range", t, row))
	}
	if err != nil {
		return pgRow{}, apperr.Wrap(apperr.Connection, "postgres row", err)
	}
	if err := json.Unmarshal(raw, &r.cells); err != nil {
		return pgRow{}, apperr.Wrap(apperr.Parse, "postgres row", err)
	}
	return r, nil
}

// Count returns the number of rows in t.
func (p *Postgres) Count(ctx context.Context, t Table) (int, error) {
	if err := checkTable("postgres count", t); err != nil {
		return 0, err
	}
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows WHERE tbl = $1`, string(t)).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.Connection, "postgres count", err)
	}
	return n, nil
}
