package application

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// RunQuery executes caller-written SQL after the read-only check. A LIMIT is
// appended when the text has none; limit <= 0 selects the configured cap.
func (s *Service) RunQuery(ctx context.Context, text string, limit int) (*QueryResult, error) {
	op := s.begin(ctx, ToolRunQuery, "")
	ctx = op.ctx

	if strings.TrimSpace(text) == "" {
		return nil, op.finish(nil, fault.MissingParameter("query", ""))
	}
	if err := query.GuardReadOnly(text); err != nil {
		return nil, op.finish(nil, err)
	}
	if limit > query.MaxLimit {
		return nil, op.finish(nil, fault.InvalidInput("limit",
			fmt.Sprintf("Limit must be at most %d.", query.MaxLimit)))
	}
	if limit <= 0 {
		limit = s.rowLimit
	}

	sql := query.EnsureLimit(text, limit)
	op.statement(sql)

	rs, err := s.executor.Query(ctx, sql)
	if err != nil {
		return nil, op.finish(nil, err)
	}

	return &QueryResult{
		Data:     rs.Rows,
		Columns:  rs.Columns,
		RowCount: rs.Len(),
		Message:  fmt.Sprintf("Query executed successfully. Returned %d rows.", rs.Len()),
	}, op.finish(querylog.Rows(rs.Len()), nil)
}

// ListTables lists the tables of the active schema.
func (s *Service) ListTables(ctx context.Context) (*TablesResult, error) {
	op := s.begin(ctx, ToolListTables, "")

	tables, err := s.catalog.Tables(op.ctx)
	if err != nil {
		return nil, op.finish(nil, err)
	}

	return &TablesResult{
		Tables:  tables,
		Message: fmt.Sprintf("Found %d tables in the database", len(tables)),
	}, op.finish(querylog.Rows(len(tables)), nil)
}

// DescribeTable lists the columns of a table in ordinal order.
func (s *Service) DescribeTable(ctx context.Context, table string) (*SchemaResult, error) {
	op := s.begin(ctx, ToolGetTableSchema, table)
	ctx = op.ctx

	if strings.TrimSpace(table) == "" {
		return nil, op.finish(nil, fault.MissingParameter("tableName", ""))
	}
	if err := s.validator.RequireTable(ctx, table); err != nil {
		return nil, op.finish(nil, err)
	}

	cols, err := s.catalog.Columns(ctx, table)
	if err != nil {
		return nil, op.finish(nil, err)
	}

	return &SchemaResult{
		TableName: table,
		Columns:   cols,
		Message:   fmt.Sprintf("Found %d columns in table '%s'", len(cols), table),
	}, op.finish(querylog.Rows(len(cols)), nil)
}

// TableStats counts the rows of a table and returns a few of them.
// sampleSize <= 0 selects the configured default.
func (s *Service) TableStats(ctx context.Context, table string, sampleSize int) (*StatsResult, error) {
	op := s.begin(ctx, ToolGetTableStats, table)
	ctx = op.ctx

	if strings.TrimSpace(table) == "" {
		return nil, op.finish(nil, fault.MissingParameter("tableName", ""))
	}
	if sampleSize > MaxSampleSize {
		return nil, op.finish(nil, fault.InvalidInput("sampleSize",
			fmt.Sprintf("Sample size must be at most %d.", MaxSampleSize)))
	}
	if sampleSize <= 0 {
		sampleSize = s.sampleSize
	}
	if err := s.validator.RequireTable(ctx, table); err != nil {
		return nil, op.finish(nil, err)
	}

	quoted := query.QuoteIdent(table)
	countSQL := `SELECT COUNT(*) AS "count" FROM ` + quoted
	sampleSQL := `SELECT * FROM ` + quoted + ` LIMIT ` + fmt.Sprint(sampleSize)
	op.statement(countSQL + ";\n" + sampleSQL)

	var (
		count  int64
		sample *datasource.ResultSet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := s.executor.Query(gctx, countSQL)
		if err != nil {
			return err
		}
		raw, err := rs.Scalar()
		if err != nil {
			return nil
		}
		n, err := datasource.Float(raw)
		if err != nil {
			return fault.New(fault.CodeCalculation, err.Error(), fault.WithCause(err))
		}
		count = int64(n)
		return nil
	})
	g.Go(func() error {
		rs, err := s.executor.Query(gctx, sampleSQL)
		sample = rs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, op.finish(nil, err)
	}

	return &StatsResult{
		Stats: TableStats{
			TableName:  table,
			RowCount:   count,
			SampleData: sample.Rows,
		},
		Message: fmt.Sprintf("Retrieved statistics for table '%s': %d total rows", table, count),
	}, op.finish(querylog.Rows(sample.Len()), nil)
}

// Overview lists every table with its row count, largest first.
func (s *Service) Overview(ctx context.Context) (*OverviewResult, error) {
	op := s.begin(ctx, ToolDatabaseOverview, "")

	tables, err := s.catalog.RowEstimates(op.ctx)
	if err != nil {
		return nil, op.finish(nil, err)
	}

	var total int64
	for _, t := range tables {
		total += t.Rows
	}

	return &OverviewResult{
		Overview: Overview{
			TotalTables: len(tables),
			TotalRows:   total,
			Tables:      tables,
		},
		Message: fmt.Sprintf("Database contains %d tables with a total of %d rows", len(tables), total),
	}, op.finish(querylog.Rows(len(tables)), nil)
}
