package querylog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// DefaultTable is the table entries are written to.
const DefaultTable = "query_log"

// ErrMigrationFailed is returned when the log table cannot be created.
var ErrMigrationFailed = errors.New("query log migration failed")

// SQLiteStore persists entries in a SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	table  string
	closed atomic.Bool
}

// NewSQLiteStore creates the log table in db if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB, table string) (*SQLiteStore, error) {
	if table == "" {
		table = DefaultTable
	}
	s := &SQLiteStore{db: db, table: table}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	t := query.QuoteIdent(s.table)
	idx := query.QuoteIdent("idx_" + s.table + "_timestamp")
	schema := `
		CREATE TABLE IF NOT EXISTS ` + t + ` (
			id TEXT PRIMARY KEY,
			tool_name TEXT NOT NULL,
			query_text TEXT,
			table_name TEXT,
			execution_ms INTEGER NOT NULL,
			rows_returned INTEGER,
			success INTEGER NOT NULL,
			error_code TEXT,
			error_message TEXT,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS ` + idx + ` ON ` + t + `(timestamp);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Record implements querylog.Sink.
func (s *SQLiteStore) Record(ctx context.Context, e querylog.Entry) error {
	if s.closed.Load() {
		return querylog.ErrStoreClosed
	}
	if e.ToolName == "" {
		return querylog.ErrInvalidEntry
	}

	var rows sql.NullInt64
	if e.RowsReturned != nil {
		rows = sql.NullInt64{Int64: int64(*e.RowsReturned), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+query.QuoteIdent(s.table)+` (id, tool_name, query_text, table_name, execution_ms, rows_returned, success, error_code, error_message, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ToolName, e.QueryText, e.TableName, e.ExecutionTime.Milliseconds(), rows,
		e.Success, e.ErrorCode, e.ErrorMessage, e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert query log entry: %w", err)
	}
	return nil
}

// List implements querylog.Store.
func (s *SQLiteStore) List(ctx context.Context, filter querylog.ListFilter) ([]querylog.Entry, error) {
	if s.closed.Load() {
		return nil, querylog.ErrStoreClosed
	}

	var (
		where []string
		args  []any
	)
	if filter.ToolName != "" {
		where = append(where, "tool_name = ?")
		args = append(args, filter.ToolName)
	}
	if filter.FailedOnly {
		where = append(where, "success = 0")
	}

	q := `SELECT id, tool_name, query_text, table_name, execution_ms, rows_returned, success, error_code, error_message, timestamp FROM ` +
		query.QuoteIdent(s.table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC, rowid DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list query log: %w", err)
	}
	defer rows.Close()

	out := make([]querylog.Entry, 0)
	for rows.Next() {
		var (
			e                               querylog.Entry
			queryText, tableName, code, msg sql.NullString
			execMS, ts                      int64
			rowsReturned                    sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.ToolName, &queryText, &tableName, &execMS, &rowsReturned,
			&e.Success, &code, &msg, &ts); err != nil {
			return nil, fmt.Errorf("scan query log entry: %w", err)
		}
		e.QueryText = queryText.String
		e.TableName = tableName.String
		e.ErrorCode = code.String
		e.ErrorMessage = msg.String
		e.ExecutionTime = time.Duration(execMS) * time.Millisecond
		e.Timestamp = time.UnixMilli(ts).UTC()
		if rowsReturned.Valid {
			e.RowsReturned = querylog.Rows(int(rowsReturned.Int64))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close marks the store closed. The database handle is owned by the caller.
func (s *SQLiteStore) Close() error {
	s.closed.Store(true)
	return nil
}

var _ querylog.Store = (*SQLiteStore)(nil)
