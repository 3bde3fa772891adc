// Package postgres runs statements through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
)

// Config configures the pool.
type Config struct {
	// DSN is a postgres:// URL or key=value connection string.
	DSN string

	// MaxConns is the maximum pool size.
	MaxConns int32

	// MinConns is the number of connections kept open.
	MinConns int32

	// MaxConnLifetime is the maximum connection lifetime.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime closes connections idle for longer.
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns pool settings without a DSN.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// ErrConnectionFailed wraps pool creation and ping failures.
var ErrConnectionFailed = errors.New("postgres: connection failed")

// Open creates and pings a pool.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return pool, nil
}

// Executor runs read statements on a pool.
type Executor struct {
	pool    *pgxpool.Pool
	maxRows int
}

// NewExecutor wraps pool. maxRows of zero means no cap.
func NewExecutor(pool *pgxpool.Pool, maxRows int) *Executor {
	return &Executor{pool: pool, maxRows: maxRows}
}

// Query implements datasource.Executor.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (*datasource.ResultSet, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
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
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convert(values[i])
		}
		out.Rows = append(out.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// convert maps pgx value types onto plain Go values.
func convert(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if x.Exp >= 0 {
			if i, err := x.Int64Value(); err == nil && i.Valid {
				return i.Int64
			}
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return datasource.Normalize(v)
	}
}

var _ datasource.Executor = (*Executor)(nil)
