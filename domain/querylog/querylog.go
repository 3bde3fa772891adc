// Package querylog records one entry per analytics operation.
package querylog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Domain errors for query log stores.
var (
	// ErrInvalidEntry is returned when an entry has no tool name.
	ErrInvalidEntry = errors.New("invalid query log entry")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("query log store closed")
)

// Entry is the record of a single operation. It is never modified after
// construction.
type Entry struct {
	ID            string        `json:"id"`
	ToolName      string        `json:"toolName"`
	QueryText     string        `json:"queryText,omitempty"`
	TableName     string        `json:"tableName,omitempty"`
	ExecutionTime time.Duration `json:"executionTime"`
	RowsReturned  *int          `json:"rowsReturned,omitempty"`
	Success       bool          `json:"success"`
	ErrorCode     string        `json:"errorCode,omitempty"`
	ErrorMessage  string        `json:"errorMessage,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Outcome is what an operation reports when it finishes.
type Outcome struct {
	ToolName     string
	QueryText    string
	TableName    string
	Started      time.Time
	RowsReturned *int
	ErrorCode    string
	ErrorMessage string
}

// NewEntry stamps o with an id and the time elapsed since o.Started.
// An outcome without an error code is a success.
func NewEntry(o Outcome, now time.Time) Entry {
	return Entry{
		ID:            uuid.New().String(),
		ToolName:      o.ToolName,
		QueryText:     o.QueryText,
		TableName:     o.TableName,
		ExecutionTime: now.Sub(o.Started),
		RowsReturned:  o.RowsReturned,
		Success:       o.ErrorCode == "",
		ErrorCode:     o.ErrorCode,
		ErrorMessage:  o.ErrorMessage,
		Timestamp:     now.UTC(),
	}
}

// Rows is a convenience for filling RowsReturned.
func Rows(n int) *int {
	return &n
}

// Sink receives entries as they are produced.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Entry) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, e Entry) error {
	return f(ctx, e)
}

// ListFilter narrows Store.List.
type ListFilter struct {
	ToolName   string
	FailedOnly bool
	Limit      int
}

// Store is a sink that can also be read back.
type Store interface {
	Sink
	// List returns entries newest first.
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

// Multi fans an entry out to every sink. All sinks are called; their errors
// are joined.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, e Entry) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Nop discards entries.
var Nop Sink = SinkFunc(func(context.Context, Entry) error { return nil })
