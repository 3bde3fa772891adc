package querylog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// PostgresStore persists entries in a PostgreSQL table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

// NewPostgresStore returns a store writing to schema.table. Call Migrate
// before first use when the table may not exist.
func NewPostgresStore(pool *pgxpool.Pool, schema, table string) *PostgresStore {
	if schema == "" {
		schema = "public"
	}
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, schema: schema, table: table}
}

// tableName returns the fully qualified table name.
func (s *PostgresStore) tableName() string {
	return query.QuoteIdent(s.schema) + "." + query.QuoteIdent(s.table)
}

// Migrate creates the log table and its index.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			tool_name TEXT NOT NULL,
			query_text TEXT,
			table_name TEXT,
			execution_ms BIGINT NOT NULL,
			rows_returned INTEGER,
			success BOOLEAN NOT NULL,
			error_code TEXT,
			error_message TEXT,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %s ON %s (timestamp DESC);
	`, s.tableName(), query.QuoteIdent("idx_"+s.table+"_timestamp"), s.tableName())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Record implements querylog.Sink.
func (s *PostgresStore) Record(ctx context.Context, e querylog.Entry) error {
	if e.ToolName == "" {
		return querylog.ErrInvalidEntry
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, tool_name, query_text, table_name, execution_ms, rows_returned, success, error_code, error_message, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.tableName())

	_, err := s.pool.Exec(ctx, q,
		e.ID, e.ToolName, nullable(e.QueryText), nullable(e.TableName), e.ExecutionTime.Milliseconds(),
		e.RowsReturned, e.Success, nullable(e.ErrorCode), nullable(e.ErrorMessage), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert query log entry: %w", err)
	}
	return nil
}

// List implements querylog.Store.
func (s *PostgresStore) List(ctx context.Context, filter querylog.ListFilter) ([]querylog.Entry, error) {
	q, args := s.listQuery(filter)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list query log: %w", err)
	}
	defer rows.Close()

	out := make([]querylog.Entry, 0)
	for rows.Next() {
		var (
			e                               querylog.Entry
			queryText, tableName, code, msg *string
			execMS                          int64
		)
		if err := rows.Scan(&e.ID, &e.ToolName, &queryText, &tableName, &execMS, &e.RowsReturned,
			&e.Success, &code, &msg, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan query log entry: %w", err)
		}
		e.QueryText = deref(queryText)
		e.TableName = deref(tableName)
		e.ErrorCode = deref(code)
		e.ErrorMessage = deref(msg)
		e.ExecutionTime = time.Duration(execMS) * time.Millisecond
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) listQuery(filter querylog.ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.ToolName != "" {
		args = append(args, filter.ToolName)
		where = append(where, fmt.Sprintf("tool_name = $%d", len(args)))
	}
	if filter.FailedOnly {
		where = append(where, "NOT success")
	}

	q := `SELECT id::text, tool_name, query_text, table_name, execution_ms, rows_returned, success, error_code, error_message, timestamp FROM ` +
		s.tableName()
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return q, args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ querylog.Store = (*PostgresStore)(nil)
