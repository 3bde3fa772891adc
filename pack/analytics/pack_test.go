package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/internal/testdb"
	"github.com/felixgeelhaar/sqlanalyst/pack/analytics"
)

func setup(t *testing.T) (map[string]tool.Tool, *testdb.Fixture) {
	t.Helper()

	fx := testdb.New(t)
	p, err := analytics.New(fx.Service)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tools := make(map[string]tool.Tool, len(p.Tools))
	for _, tl := range p.Tools {
		tools[tl.Name()] = tl
	}
	return tools, fx
}

func call(t *testing.T, tl tool.Tool, input string) map[string]any {
	t.Helper()

	result, err := tl.Execute(context.Background(), json.RawMessage(input))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(result.Output, &out); err != nil {
		t.Fatalf("output is not a JSON object: %v (%s)", err, result.Output)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := analytics.New(nil); !errors.Is(err, analytics.ErrNoService) {
		t.Errorf("New(nil) error = %v, want ErrNoService", err)
	}

	tools, _ := setup(t)
	if len(tools) != 3 {
		t.Fatalf("pack has %d tools, want 3", len(tools))
	}
	for _, name := range []string{"calculate-metrics", "compare-data", "rank-entities"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("pack is missing %s", name)
		}
	}
}

func TestCalculateMetrics(t *testing.T) {
	t.Parallel()

	t.Run("scalar count", func(t *testing.T) {
		t.Parallel()

		tools, fx := setup(t)
		out := call(t, tools["calculate-metrics"], `{"tableName": "projects", "metric": "count"}`)
		if out["success"] != true {
			t.Fatalf("output = %v", out)
		}
		summary := out["summary"].(map[string]any)
		if summary["aggregatedValue"] != float64(4) || summary["metricApplied"] != "count" {
			t.Errorf("summary = %v", summary)
		}
		if out["message"] != "Calculated count = 4 from projects" {
			t.Errorf("message = %v", out["message"])
		}

		entries, _ := fx.Log.List(context.Background(), querylog.ListFilter{})
		if len(entries) != 1 || entries[0].QueryText != `SELECT COUNT(*) FROM "projects" LIMIT 100` {
			t.Errorf("query log = %+v", entries)
		}
	})

	t.Run("grouped with filter", func(t *testing.T) {
		t.Parallel()

		tools, _ := setup(t)
		out := call(t, tools["calculate-metrics"], `{
			"tableName": "installs",
			"metric": "sum",
			"column": "fibre_meters",
			"groupBy": "contractor_id",
			"filters": [{"column": "fibre_meters", "operator": ">", "value": 40}],
			"orderBy": "desc"
		}`)
		if out["success"] != true {
			t.Fatalf("output = %v", out)
		}
		if results := out["results"].([]any); len(results) != 2 {
			t.Errorf("results = %v, want 2 groups", results)
		}
		if out["message"] != "Calculated sum across 2 groups from installs" {
			t.Errorf("message = %v", out["message"])
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		t.Parallel()

		tools, fx := setup(t)
		out := call(t, tools["calculate-metrics"], `{"tableName": "projects", "metric": "sum", "column": "revenue"}`)
		if out["success"] != false || out["code"] != "INVALID_COLUMN" {
			t.Fatalf("output = %v", out)
		}
		if results, ok := out["results"].([]any); !ok || len(results) != 0 {
			t.Errorf("results = %v, want empty list", out["results"])
		}

		entries, _ := fx.Log.List(context.Background(), querylog.ListFilter{FailedOnly: true})
		if len(entries) != 1 || entries[0].ErrorCode != "INVALID_COLUMN" {
			t.Errorf("failed entries = %+v", entries)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		t.Parallel()

		tools, _ := setup(t)
		out := call(t, tools["calculate-metrics"], `{"tableName": "projects", "metric": "avg"}`)
		if out["code"] != "MISSING_PARAMETER" {
			t.Errorf("output = %v", out)
		}
	})
}

func TestCompareData(t *testing.T) {
	t.Parallel()

	tools, _ := setup(t)
	out := call(t, tools["compare-data"], `{
		"tableName": "installs",
		"metric": "count",
		"compareBy": "contractor_id",
		"value1": 1,
		"value2": 2
	}`)
	if out["success"] != true {
		t.Fatalf("output = %v", out)
	}
	cmp := out["comparison"].(map[string]any)
	if cmp["value1Result"] != float64(3) || cmp["value2Result"] != float64(2) {
		t.Errorf("comparison = %v", cmp)
	}
	if cmp["percentChange"] != -33.33 || cmp["trend"] != "down" {
		t.Errorf("percentChange = %v, trend = %v", cmp["percentChange"], cmp["trend"])
	}
}

func TestRankEntities(t *testing.T) {
	t.Parallel()

	t.Run("top by sum", func(t *testing.T) {
		t.Parallel()

		tools, _ := setup(t)
		out := call(t, tools["rank-entities"], `{
			"tableName": "installs",
			"metric": "sum",
			"column": "fibre_meters",
			"rankBy": "contractor_id",
			"limit": 2
		}`)
		if out["success"] != true {
			t.Fatalf("output = %v", out)
		}
		rankings := out["rankings"].([]any)
		if len(rankings) != 2 {
			t.Fatalf("rankings = %v", rankings)
		}
		first := rankings[0].(map[string]any)
		if first["rank"] != float64(1) || first["entity"] != float64(1) || first["value"] != float64(300) {
			t.Errorf("first = %v", first)
		}
	})

	t.Run("unknown rank column", func(t *testing.T) {
		t.Parallel()

		tools, _ := setup(t)
		out := call(t, tools["rank-entities"], `{"tableName": "installs", "metric": "count", "rankBy": "crew"}`)
		if out["success"] != false || out["code"] != "INVALID_COLUMN" {
			t.Errorf("output = %v", out)
		}
		if rankings, ok := out["rankings"].([]any); !ok || len(rankings) != 0 {
			t.Errorf("rankings = %v, want empty list", out["rankings"])
		}
	})
}
