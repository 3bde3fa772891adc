// Package database provides the schema-inspection and ad-hoc query tools.
package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/sqlanalyst/application"
	"github.com/felixgeelhaar/sqlanalyst/domain/pack"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// ErrNoService is returned when the pack is built without a service.
var ErrNoService = errors.New("analytics service is required")

// New creates the database pack over svc.
func New(svc *application.Service) (*pack.Pack, error) {
	if svc == nil {
		return nil, ErrNoService
	}

	return pack.NewBuilder("database").
		WithDescription("Schema inspection and read-only queries").
		WithVersion("1.0.0").
		WithMetadata("dialect", string(svc.Dialect())).
		AddTools(
			listTablesTool(svc),
			tableSchemaTool(svc),
			runQueryTool(svc),
			tableStatsTool(svc),
			overviewTool(svc),
		).
		Build(), nil
}

var emptyObject = tool.NewSchema(json.RawMessage(`{"type": "object", "properties": {}}`))

type tableInput struct {
	TableName string `json:"tableName"`
}

type queryInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type statsInput struct {
	TableName  string `json:"tableName"`
	SampleSize int    `json:"sampleSize,omitempty"`
}

func listTablesTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolListTables).
		WithDescription("List all tables in the database").
		WithInputSchema(emptyObject).
		ReadOnly().
		Idempotent().
		WithTags("database", "schema").
		WithHandler(tool.Typed("Error listing tables", map[string]any{"tables": []any{}},
			func(ctx context.Context, _ struct{}) (any, error) {
				return svc.ListTables(ctx)
			})).
		MustBuild()
}

func tableSchemaTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolGetTableSchema).
		WithDescription("Get the schema (columns, types, constraints) for a specific table").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"tableName": json.RawMessage(`{"type": "string", "description": "The name of the table to get schema for"}`),
		}, []string{"tableName"})).
		ReadOnly().
		Idempotent().
		WithTags("database", "schema").
		WithHandler(tool.Typed("Error getting table schema", map[string]any{"columns": []any{}},
			func(ctx context.Context, in tableInput) (any, error) {
				return svc.DescribeTable(ctx, in.TableName)
			})).
		MustBuild()
}

func runQueryTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolRunQuery).
		WithDescription("Execute a read-only SQL query on the database. Use for data retrieval and analysis.").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"query": json.RawMessage(`{"type": "string", "description": "The SQL query to execute (SELECT only for safety)"}`),
			"limit": json.RawMessage(`{"type": "integer", "description": "Maximum number of rows to return (default: 100)"}`),
		}, []string{"query"})).
		ReadOnly().
		WithTags("database", "query").
		WithHandler(tool.Typed("Error executing query", map[string]any{"data": []any{}, "rowCount": 0},
			func(ctx context.Context, in queryInput) (any, error) {
				return svc.RunQuery(ctx, in.Query, in.Limit)
			})).
		MustBuild()
}

func tableStatsTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolGetTableStats).
		WithDescription("Get statistics and insights about a specific table (row count, sample data)").
		WithInputSchema(tool.ObjectSchema(map[string]json.RawMessage{
			"tableName":  json.RawMessage(`{"type": "string", "description": "The name of the table to analyze"}`),
			"sampleSize": json.RawMessage(`{"type": "integer", "description": "Number of sample rows to return (default: 5)"}`),
		}, []string{"tableName"})).
		ReadOnly().
		WithTags("database", "stats").
		WithHandler(tool.Typed("Error getting table statistics", nil,
			func(ctx context.Context, in statsInput) (any, error) {
				return svc.TableStats(ctx, in.TableName, in.SampleSize)
			})).
		MustBuild()
}

func overviewTool(svc *application.Service) tool.Tool {
	return tool.NewBuilder(application.ToolDatabaseOverview).
		WithDescription("Get a comprehensive overview of the entire database including all tables and their row counts").
		WithInputSchema(emptyObject).
		ReadOnly().
		WithTags("database", "stats").
		WithHandler(tool.Typed("Error getting database overview", nil,
			func(ctx context.Context, _ struct{}) (any, error) {
				return svc.Overview(ctx)
			})).
		MustBuild()
}
