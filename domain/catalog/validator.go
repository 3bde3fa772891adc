package catalog

import (
	"context"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// Validator answers existence questions about identifiers. Backend errors are
// returned as-is so the normalizer sees the driver's own message.
type Validator struct {
	catalog Catalog
}

// NewValidator returns a validator backed by c.
func NewValidator(c Catalog) *Validator {
	return &Validator{catalog: c}
}

// TableNames returns the set of table names.
func (v *Validator) TableNames(ctx context.Context) (map[string]struct{}, error) {
	tables, err := v.catalog.Tables(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t.Name] = struct{}{}
	}
	return set, nil
}

// ColumnNames returns the set of column names of table.
func (v *Validator) ColumnNames(ctx context.Context, table string) (map[string]struct{}, error) {
	cols, err := v.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c.Name] = struct{}{}
	}
	return set, nil
}

// RequireTable fails with INVALID_TABLE when table does not exist.
func (v *Validator) RequireTable(ctx context.Context, table string) error {
	names, err := v.TableNames(ctx)
	if err != nil {
		return err
	}
	if _, ok := names[table]; !ok {
		return fault.TableNotFound(table)
	}
	return nil
}

// RequireColumns fails with INVALID_COLUMN on the first column of cols that
// table does not have. The table itself is not checked.
func (v *Validator) RequireColumns(ctx context.Context, table string, cols ...string) error {
	if len(cols) == 0 {
		return nil
	}
	names, err := v.ColumnNames(ctx, table)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if _, ok := names[c]; !ok {
			return fault.ColumnNotFound(table, c)
		}
	}
	return nil
}

// Require checks table and then every column in cols.
func (v *Validator) Require(ctx context.Context, table string, cols ...string) error {
	if err := v.RequireTable(ctx, table); err != nil {
		return err
	}
	return v.RequireColumns(ctx, table, cols...)
}
