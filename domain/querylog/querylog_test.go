package querylog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewEntry(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(250 * time.Millisecond)

	ok := NewEntry(Outcome{ToolName: "calculate-metrics", TableName: "projects", Started: start, RowsReturned: Rows(1)}, now)
	if !ok.Success {
		t.Error("entry without error code should be a success")
	}
	if ok.ExecutionTime != 250*time.Millisecond {
		t.Errorf("ExecutionTime = %v", ok.ExecutionTime)
	}
	if ok.ID == "" {
		t.Error("ID should be set")
	}
	if ok.RowsReturned == nil || *ok.RowsReturned != 1 {
		t.Errorf("RowsReturned = %v", ok.RowsReturned)
	}

	failed := NewEntry(Outcome{ToolName: "rank-entities", Started: start, ErrorCode: "INVALID_TABLE"}, now)
	if failed.Success {
		t.Error("entry with error code should not be a success")
	}
	if failed.ID == ok.ID {
		t.Error("IDs should be unique")
	}
}

func TestMulti(t *testing.T) {
	t.Parallel()

	var got []string
	a := SinkFunc(func(_ context.Context, e Entry) error {
		got = append(got, "a:"+e.ToolName)
		return nil
	})
	boom := errors.New("boom")
	b := SinkFunc(func(_ context.Context, e Entry) error {
		got = append(got, "b:"+e.ToolName)
		return boom
	})

	err := Multi(a, nil, b, Nop).Record(context.Background(), Entry{ToolName: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if len(got) != 2 || got[0] != "a:x" || got[1] != "b:x" {
		t.Errorf("got = %v", got)
	}
}
