package sqlexec

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-txcache/executor"
	"github.com/uptrace/bun"
)

// scanRow reads the current row into a column-keyed map using bun's map
// model. Byte slices left by the driver are copied into strings so rows stay
// valid after the cursor moves.
func scanRow(ctx context.Context, db *bun.DB, rows *sql.Rows) (executor.Row, error) {
	row := make(map[string]any)
	if err := db.ScanRow(ctx, rows, &row); err != nil {
		return nil, err
	}
	for column, value := range row {
		if b, ok := value.([]byte); ok {
			row[column] = string(b)
		}
	}
	return row, nil
}

// collect reads every row inside bounds. When handler is set rows are handed
// to it and nothing is accumulated.
func collect(ctx context.Context, db *bun.DB, rows *sql.Rows, bounds executor.RowBounds, handler executor.ResultHandler) ([]executor.Row, error) {
	var out []executor.Row
	skipped, taken := 0, 0
	for rows.Next() {
		if skipped < bounds.Offset {
			skipped++
			continue
		}
		if bounds.Limit > 0 && taken >= bounds.Limit {
			break
		}

		row, err := scanRow(ctx, db, rows)
		if err != nil {
			return nil, err
		}
		taken++

		if handler != nil {
			if err := handler(row); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if handler == nil && out == nil {
		out = []executor.Row{}
	}
	return out, nil
}

// rowCursor streams rows from an open result set.
type rowCursor struct {
	db      *bun.DB
	rows    *sql.Rows
	bounds  executor.RowBounds
	skipped bool
	taken   int
	current executor.Row
	err     error
}

var _ executor.Cursor = (*rowCursor)(nil)

func newRowCursor(db *bun.DB, rows *sql.Rows, bounds executor.RowBounds) *rowCursor {
	return &rowCursor{db: db, rows: rows, bounds: bounds}
}

func (c *rowCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}

	if !c.skipped {
		c.skipped = true
		for i := 0; i < c.bounds.Offset; i++ {
			if !c.rows.Next() {
				c.err = c.rows.Err()
				return false
			}
		}
	}
	if c.bounds.Limit > 0 && c.taken >= c.bounds.Limit {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}

	row, err := scanRow(ctx, c.db, c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.current = row
	c.taken++
	return true
}

func (c *rowCursor) Row() executor.Row {
	return c.current
}

func (c *rowCursor) Err() error {
	return c.err
}

func (c *rowCursor) Close() error {
	return c.rows.Close()
}
