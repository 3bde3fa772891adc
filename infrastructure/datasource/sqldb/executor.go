package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
)

// Executor runs read statements against a *sql.DB.
type Executor struct {
	db      *sql.DB
	maxRows int
}

// Option configures the executor.
type Option func(*Executor)

// WithMaxRows stops reading after n rows. Zero means no cap.
func WithMaxRows(n int) Option {
	return func(e *Executor) {
		e.maxRows = n
	}
}

// NewExecutor wraps db.
func NewExecutor(db *sql.DB, opts ...Option) *Executor {
	e := &Executor{db: db}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the underlying pool.
func (e *Executor) DB() *sql.DB {
	return e.db
}

// Query implements datasource.Executor.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (*datasource.ResultSet, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}
	columns := datasource.UniqueColumns(names)

	out := &datasource.ResultSet{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() {
		if e.maxRows > 0 && len(out.Rows) >= e.maxRows {
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = datasource.Normalize(values[i])
		}
		out.Rows = append(out.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

var _ datasource.Executor = (*Executor)(nil)
