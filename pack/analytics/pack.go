// Package analytics provides the aggregation, comparison and ranking tools.
package analytics

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/sqlanalyst/application"
	"github.com/felixgeelhaar/sqlanalyst/domain/pack"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// ErrNoService is returned when the pack is built without a service.
var ErrNoService = errors.New("analytics service is required")

// New creates the analytics pack over svc.
func New(svc *application.Service) (*pack.Pack, error) {
	if svc == nil {
		return nil, ErrNoService
	}

	return pack.NewBuilder("analytics").
		WithDescription("Aggregations, comparisons and rankings built from structured parameters").
		WithVersion("1.0.0").
		AddTools(
			calculateMetricsTool(svc),
			compareDataTool(svc),
			rankEntitiesTool(svc),
		).
		Build(), nil
}

const (
	tableProp   = `{"type": "string", "description": "Name of the table to query"}`
	filtersProp = `{
		"type": "array",
		"description": "WHERE clause filters, combined with AND",
		"items": {
			"type": "object",
			"properties": {
				"column": {"type": "string"},
				"operator": {"type": "string", "enum": ["=", "!=", ">", "<", ">=", "<=", "LIKE"]},
				"value": {}
			},
			"required": ["column", "operator"]
		}
	}`
)

func metricProp(description string, metrics ...string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"type":        "string",
		"enum":        metrics,
		"description": description,
	})
	return raw
}

var comparableMetrics = []string{"count", "sum", "avg", "min", "max"}

func calculateMetricsTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolCalculateMetrics).
		WithDescription("Calculate aggregated metrics (count, sum, avg, min, max, distinct) on any table. Supports grouping and filtering.").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"tableName": json.RawMessage(tableProp),
			"metric":    metricProp("Type of aggregation to perform", "count", "sum", "avg", "min", "max", "distinct"),
			"column":    json.RawMessage(`{"type": "string", "description": "Column name (required for sum/avg/min/max/distinct)"}`),
			"groupBy":   json.RawMessage(`{"type": "string", "description": "Column to group results by"}`),
			"filters":   json.RawMessage(filtersProp),
			"orderBy":   json.RawMessage(`{"type": "string", "enum": ["asc", "desc"], "description": "Sort order for results"}`),
			"limit":     json.RawMessage(`{"type": "integer", "description": "Maximum number of results (default: 100)"}`),
		}, []string{"tableName", "metric"})).
		ReadOnly().
		Idempotent().
		WithTags("analytics", "aggregate").
		WithHandler(tool.Typed("Error calculating metrics", map[string]any{"results": []any{}},
			func(ctx context.Context, in query.AggregateParams) (any, error) {
				return svc.Aggregate(ctx, in)
			})).
		MustBuild()
}

func compareDataTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolCompareData).
		WithDescription("Compare data between two time periods or entities. Calculates differences, percentage changes, and trends.").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"tableName": json.RawMessage(tableProp),
			"metric":    metricProp("Metric to compare", comparableMetrics...),
			"column":    json.RawMessage(`{"type": "string", "description": "Column name (required for sum/avg/min/max)"}`),
			"compareBy": json.RawMessage(`{"type": "string", "description": "Column to compare by (e.g. 'created_at' for time, 'contractor_id' for entities)"}`),
			"value1":    json.RawMessage(`{"description": "First value to compare"}`),
			"value2":    json.RawMessage(`{"description": "Second value to compare"}`),
			"filters":   json.RawMessage(filtersProp),
		}, []string{"tableName", "metric", "compareBy", "value1", "value2"})).
		ReadOnly().
		Idempotent().
		WithTags("analytics", "compare").
		WithHandler(tool.Typed("Error comparing data", nil,
			func(ctx context.Context, in query.CompareParams) (any, error) {
				return svc.Compare(ctx, in)
			})).
		MustBuild()
}

func rankEntitiesTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolRankEntities).
		WithDescription("Rank and sort entities (contractors, staff, projects) by a metric. Returns top/bottom N results with rankings.").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"tableName": json.RawMessage(tableProp),
			"metric":    metricProp("Metric to rank by", comparableMetrics...),
			"rankBy":    json.RawMessage(`{"type": "string", "description": "Column to rank entities by (e.g. 'contractor_id')"}`),
			"column":    json.RawMessage(`{"type": "string", "description": "Column for metric calculation (required for sum/avg/min/max)"}`),
			"direction": json.RawMessage(`{"type": "string", "enum": ["top", "bottom"], "description": "Show top or bottom rankings (default: top)"}`),
			"limit":     json.RawMessage(`{"type": "integer", "description": "Number of results to return (default: 10)"}`),
			"filters":   json.RawMessage(filtersProp),
		}, []string{"tableName", "metric", "rankBy"})).
		ReadOnly().
		Idempotent().
		WithTags("analytics", "rank").
		WithHandler(tool.Typed("Error ranking entities", map[string]any{"rankings": []any{}},
			func(ctx context.Context, in query.RankParams) (any, error) {
				return svc.Rank(ctx, in)
			})).
		MustBuild()
}
