// Package catalog implements catalog.Catalog against live backends.
package catalog

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
)

// DefaultSchema returns the schema a dialect keeps user tables in.
func DefaultSchema(d query.Dialect) string {
	switch d {
	case query.DuckDB, query.SQLite:
		return "main"
	default:
		return "public"
	}
}

// InformationSchema reads metadata from the SQL-standard information_schema
// views. It serves Postgres and DuckDB.
type InformationSchema struct {
	exec    datasource.Executor
	dialect query.Dialect
	schema  string
}

// NewInformationSchema returns a catalog scoped to schema. An empty schema
// selects the dialect default.
func NewInformationSchema(exec datasource.Executor, d query.Dialect, schema string) *InformationSchema {
	if schema == "" {
		schema = DefaultSchema(d)
	}
	return &InformationSchema{exec: exec, dialect: d, schema: schema}
}

// Schema returns the schema the catalog is scoped to.
func (c *InformationSchema) Schema() string {
	return c.schema
}

// Tables implements catalog.Catalog.
func (c *InformationSchema) Tables(ctx context.Context) ([]catalog.Table, error) {
	q := `SELECT table_name, table_schema, table_type FROM information_schema.tables WHERE table_schema = ` +
		c.dialect.Placeholder(1) + ` ORDER BY table_name`

	rs, err := c.exec.Query(ctx, q, c.schema)
	if err != nil {
		return nil, err
	}

	tables := make([]catalog.Table, 0, rs.Len())
	for _, row := range rs.Rows {
		tables = append(tables, catalog.Table{
			Name:   text(row["table_name"]),
			Schema: text(row["table_schema"]),
			Type:   text(row["table_type"]),
		})
	}
	return tables, nil
}

// Columns implements catalog.Catalog.
func (c *InformationSchema) Columns(ctx context.Context, table string) ([]catalog.Column, error) {
	q := `SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = ` +
		c.dialect.Placeholder(1) + ` AND table_name = ` + c.dialect.Placeholder(2) + ` ORDER BY ordinal_position`

	rs, err := c.exec.Query(ctx, q, c.schema, table)
	if err != nil {
		return nil, err
	}

	cols := make([]catalog.Column, 0, rs.Len())
	for _, row := range rs.Rows {
		cols = append(cols, catalog.Column{
			Name:     text(row["column_name"]),
			Type:     text(row["data_type"]),
			Nullable: text(row["is_nullable"]) == "YES",
			Default:  text(row["column_default"]),
		})
	}
	return cols, nil
}

// RowEstimates implements catalog.Catalog using the planner statistics of
// the backend, which may lag behind the real counts.
func (c *InformationSchema) RowEstimates(ctx context.Context) ([]catalog.TableRows, error) {
	var q string
	switch c.dialect {
	case query.DuckDB:
		q = `SELECT table_name, estimated_size AS row_count FROM duckdb_tables() WHERE schema_name = ? ORDER BY estimated_size DESC, table_name`
	default:
		q = `SELECT relname AS table_name, n_live_tup AS row_count FROM pg_stat_user_tables WHERE schemaname = ` +
			c.dialect.Placeholder(1) + ` ORDER BY n_live_tup DESC, relname`
	}

	rs, err := c.exec.Query(ctx, q, c.schema)
	if err != nil {
		return nil, err
	}
	return tableRows(rs)
}

func tableRows(rs *datasource.ResultSet) ([]catalog.TableRows, error) {
	out := make([]catalog.TableRows, 0, rs.Len())
	for _, row := range rs.Rows {
		n, err := datasource.Float(row["row_count"])
		if err != nil {
			return nil, fmt.Errorf("row count of %s: %w", text(row["table_name"]), err)
		}
		out = append(out, catalog.TableRows{Name: text(row["table_name"]), Rows: int64(n)})
	}
	return out, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

var _ catalog.Catalog = (*InformationSchema)(nil)
