// Package catalog describes the tables and columns a backend exposes and
// checks caller-supplied identifiers against them.
package catalog

import "context"

// Table is one relation visible in the active schema.
type Table struct {
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Column describes one column of a table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    string `json:"default,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
}

// TableRows is a table with its (possibly estimated) row count.
type TableRows struct {
	Name string `json:"tableName"`
	Rows int64  `json:"rowCount"`
}

// Catalog reads backend metadata.
type Catalog interface {
	// Tables lists the tables of the active schema.
	Tables(ctx context.Context) ([]Table, error)
	// Columns lists the columns of table in ordinal order. An unknown table
	// yields an empty slice.
	Columns(ctx context.Context, table string) ([]Column, error)
	// RowEstimates returns a row count per table, largest first.
	RowEstimates(ctx context.Context) ([]TableRows, error)
}
