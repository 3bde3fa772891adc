package catalog

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
)

// SQLite reads metadata from sqlite_master and pragma_table_info.
type SQLite struct {
	exec datasource.Executor
}

// NewSQLite returns a catalog for a SQLite database.
func NewSQLite(exec datasource.Executor) *SQLite {
	return &SQLite{exec: exec}
}

// Tables implements catalog.Catalog.
func (c *SQLite) Tables(ctx context.Context) ([]catalog.Table, error) {
	rs, err := c.exec.Query(ctx, `SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}

	tables := make([]catalog.Table, 0, rs.Len())
	for _, row := range rs.Rows {
		kind := "BASE TABLE"
		if text(row["type"]) == "view" {
			kind = "VIEW"
		}
		tables = append(tables, catalog.Table{Name: text(row["name"]), Schema: "main", Type: kind})
	}
	return tables, nil
}

// Columns implements catalog.Catalog.
func (c *SQLite) Columns(ctx context.Context, table string) ([]catalog.Column, error) {
	rs, err := c.exec.Query(ctx, `SELECT name, type, "notnull" AS not_null, dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}

	cols := make([]catalog.Column, 0, rs.Len())
	for _, row := range rs.Rows {
		notNull, _ := datasource.Float(row["not_null"])
		pk, _ := datasource.Float(row["pk"])
		cols = append(cols, catalog.Column{
			Name:       text(row["name"]),
			Type:       text(row["type"]),
			Nullable:   notNull == 0 && pk == 0,
			Default:    text(row["dflt_value"]),
			PrimaryKey: pk > 0,
		})
	}
	return cols, nil
}

// RowEstimates implements catalog.Catalog. SQLite keeps no row statistics,
// so every table is counted.
func (c *SQLite) RowEstimates(ctx context.Context) ([]catalog.TableRows, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.TableRows, 0, len(tables))
	for _, t := range tables {
		rs, err := c.exec.Query(ctx, `SELECT COUNT(*) AS row_count FROM `+query.QuoteIdent(t.Name))
		if err != nil {
			return nil, err
		}
		v, err := rs.Scalar()
		if err != nil {
			return nil, err
		}
		n, err := datasource.Float(v)
		if err != nil {
			return nil, err
		}
		out = append(out, catalog.TableRows{Name: t.Name, Rows: int64(n)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rows > out[j].Rows })
	return out, nil
}

var _ catalog.Catalog = (*SQLite)(nil)
