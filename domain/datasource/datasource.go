// Package datasource defines the boundary between the analytics core and a
// relational backend.
package datasource

import (
	"context"
	"errors"
	"strconv"
)

// ErrNoRows is returned by helpers that need at least one row.
var ErrNoRows = errors.New("query returned no rows")

// Executor runs one read-only statement with bound arguments.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (*ResultSet, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, sql string, args ...any) (*ResultSet, error)

// Query calls f.
func (f ExecutorFunc) Query(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	return f(ctx, sql, args...)
}

// ResultSet holds rows keyed by column name, with the columns in select order.
type ResultSet struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// UniqueColumns returns names with repeats suffixed _2, _3 and so on, so
// that `SELECT a.id, b.id` yields the keys id and id_2. Suffixes skip names
// already taken by another column.
func UniqueColumns(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		if !seen[n] {
			seen[n] = true
			out[i] = n
			continue
		}
		for k := 2; ; k++ {
			candidate := n + "_" + strconv.Itoa(k)
			if !taken[candidate] {
				taken[candidate] = true
				seen[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Scalar returns the first column of the first row.
func (r *ResultSet) Scalar() (any, error) {
	if r.Len() == 0 || len(r.Columns) == 0 {
		return nil, ErrNoRows
	}
	return r.Rows[0][r.Columns[0]], nil
}
