// Package querylog provides sinks and stores for query log entries.
package querylog

import (
	"context"

	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
)

// LogSink writes each entry to the process logger. Successful entries are
// logged at info, failures at warn.
type LogSink struct{}

// NewLogSink returns a sink backed by the logging package.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Record implements querylog.Sink.
func (s *LogSink) Record(_ context.Context, e querylog.Entry) error {
	ev := logging.Info()
	if !e.Success {
		ev = logging.Warn()
	}

	ev = ev.Add(logging.Component("querylog")).
		Add(logging.Str("entry_id", e.ID)).
		Add(logging.ToolName(e.ToolName)).
		Add(logging.Table(e.TableName)).
		Add(logging.Query(e.QueryText)).
		Add(logging.Duration(e.ExecutionTime)).
		Add(logging.Success(e.Success))
	if e.RowsReturned != nil {
		ev = ev.Add(logging.Rows(*e.RowsReturned))
	}
	if !e.Success {
		ev = ev.Add(logging.ErrorCode(e.ErrorCode)).Add(logging.Str("error", e.ErrorMessage))
	}

	ev.Msg("query log")
	return nil
}

var _ querylog.Sink = (*LogSink)(nil)
