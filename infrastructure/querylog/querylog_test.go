package querylog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/sqldb"
)

func entry(tool string, ok bool, at time.Time) querylog.Entry {
	o := querylog.Outcome{
		ToolName:     tool,
		QueryText:    `SELECT COUNT(*) FROM "projects" LIMIT 100`,
		TableName:    "projects",
		Started:      at.Add(-15 * time.Millisecond),
		RowsReturned: querylog.Rows(1),
	}
	if !ok {
		o.ErrorCode = "INVALID_TABLE"
		o.ErrorMessage = "Table 'projects' does not exist."
		o.RowsReturned = nil
	}
	return querylog.NewEntry(o, at)
}

func TestMemoryStore_NewestFirstAndFilters(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(10)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.Record(ctx, entry("calculate-metrics", true, base))
	_ = s.Record(ctx, entry("rank-entities", false, base.Add(time.Second)))
	_ = s.Record(ctx, entry("calculate-metrics", false, base.Add(2*time.Second)))

	all, _ := s.List(ctx, querylog.ListFilter{})
	if len(all) != 3 || !all[0].Timestamp.Equal(base.Add(2*time.Second)) {
		t.Fatalf("List() = %+v", all)
	}

	tests := []struct {
		name   string
		filter querylog.ListFilter
		want   int
	}{
		{"by tool", querylog.ListFilter{ToolName: "calculate-metrics"}, 2},
		{"failed only", querylog.ListFilter{FailedOnly: true}, 2},
		{"both", querylog.ListFilter{ToolName: "calculate-metrics", FailedOnly: true}, 1},
		{"limit", querylog.ListFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		got, err := s.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: List() error = %v", tt.name, err)
		}
		if len(got) != tt.want {
			t.Errorf("%s: len = %d, want %d", tt.name, len(got), tt.want)
		}
	}
}

func TestMemoryStore_Wraps(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(2)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, entry("run-query", true, base.Add(time.Duration(i)*time.Second)))
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	got, _ := s.List(ctx, querylog.ListFilter{})
	if len(got) != 2 || !got[0].Timestamp.Equal(base.Add(4*time.Second)) || !got[1].Timestamp.Equal(base.Add(3*time.Second)) {
		t.Errorf("List() = %+v", got)
	}
}

func TestMemoryStore_RejectsInvalid(t *testing.T) {
	t.Parallel()

	err := NewMemoryStore(0).Record(context.Background(), querylog.Entry{})
	if !errors.Is(err, querylog.ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	t.Parallel()

	db, err := sqldb.Open(sqldb.Config{Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, db, "")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := entry("calculate-metrics", true, base)
	failed := entry("compare-data", false, base.Add(time.Second))
	if err := s.Record(ctx, ok); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(ctx, failed); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := s.List(ctx, querylog.ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() = %+v", got)
	}

	first := got[0]
	if first.ID != failed.ID || first.Success || first.ErrorCode != "INVALID_TABLE" || first.RowsReturned != nil {
		t.Errorf("newest entry = %+v", first)
	}
	second := got[1]
	if second.RowsReturned == nil || *second.RowsReturned != 1 || second.ExecutionTime != 15*time.Millisecond {
		t.Errorf("oldest entry = %+v", second)
	}
	if !second.Timestamp.Equal(base) || second.QueryText != ok.QueryText {
		t.Errorf("oldest entry = %+v", second)
	}

	failedOnly, _ := s.List(ctx, querylog.ListFilter{FailedOnly: true})
	if len(failedOnly) != 1 {
		t.Errorf("FailedOnly len = %d", len(failedOnly))
	}
	byTool, _ := s.List(ctx, querylog.ListFilter{ToolName: "calculate-metrics", Limit: 5})
	if len(byTool) != 1 || byTool[0].ID != ok.ID {
		t.Errorf("ToolName filter = %+v", byTool)
	}

	_ = s.Close()
	if err := s.Record(ctx, ok); !errors.Is(err, querylog.ErrStoreClosed) {
		t.Errorf("Record() after Close error = %v", err)
	}
}

func TestPostgresStore_ListQuery(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(nil, "audit", "")
	if got := s.tableName(); got != `"audit"."query_log"` {
		t.Errorf("tableName() = %s", got)
	}

	q, args := s.listQuery(querylog.ListFilter{ToolName: "rank-entities", FailedOnly: true, Limit: 20})
	if !strings.Contains(q, "WHERE tool_name = $1 AND NOT success") || !strings.HasSuffix(q, "LIMIT $2") {
		t.Errorf("listQuery() = %s", q)
	}
	if len(args) != 2 || args[0] != "rank-entities" || args[1] != 20 {
		t.Errorf("args = %v", args)
	}

	if err := s.Record(context.Background(), querylog.Entry{}); !errors.Is(err, querylog.ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}

func TestLogSink_Record(t *testing.T) {
	t.Parallel()

	if err := NewLogSink().Record(context.Background(), entry("run-query", false, time.Now())); err != nil {
		t.Errorf("Record() error = %v", err)
	}
}
