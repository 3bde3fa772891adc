package application

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// Aggregate computes a metric over a table, optionally grouped and filtered.
func (s *Service) Aggregate(ctx context.Context, params query.AggregateParams) (*AggregateResult, error) {
	op := s.begin(ctx, ToolCalculateMetrics, params.Table)
	ctx = op.ctx

	req, err := query.NewAggregateRequest(params)
	if err != nil {
		return nil, op.finish(nil, err)
	}
	if err := s.validator.Require(ctx, req.Table(), req.Columns()...); err != nil {
		return nil, op.finish(nil, err)
	}

	stmt := s.builder.Aggregate(req)
	op.statement(stmt.Text)

	rs, err := s.executor.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, op.finish(nil, err)
	}

	result := &AggregateResult{
		Results: rs.Rows,
		Summary: AggregateSummary{
			TotalRecords:  rs.Len(),
			MetricApplied: req.Metric().String(),
		},
	}

	if rs.Len() == 1 && req.GroupBy() == "" {
		raw, _ := rs.Scalar()
		v, err := datasource.Float(raw)
		if err != nil {
			return nil, op.finish(nil, calculationError(req.Metric(), err))
		}
		result.Summary.AggregatedValue = &v
		result.Message = fmt.Sprintf("Calculated %s = %s from %s", req.Metric(), formatNumber(v), req.Table())
	} else {
		result.Message = fmt.Sprintf("Calculated %s across %d groups from %s", req.Metric(), rs.Len(), req.Table())
	}

	result.Summary.CalculationTime = op.elapsed().Milliseconds()
	return result, op.finish(querylog.Rows(rs.Len()), nil)
}

// Compare evaluates the same metric for two values of one column. Both
// statements run concurrently and both are awaited.
func (s *Service) Compare(ctx context.Context, params query.CompareParams) (*CompareResult, error) {
	op := s.begin(ctx, ToolCompareData, params.Table)
	ctx = op.ctx

	req, err := query.NewCompareRequest(params)
	if err != nil {
		return nil, op.finish(nil, err)
	}
	if err := s.validator.Require(ctx, req.Table(), req.Columns()...); err != nil {
		return nil, op.finish(nil, err)
	}

	first, second := s.builder.Compare(req)
	op.statement(first.Text + ";\n" + second.Text)

	var r1, r2 float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.scalar(gctx, first)
		r1 = v
		return err
	})
	g.Go(func() error {
		v, err := s.scalar(gctx, second)
		r2 = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, op.finish(nil, err)
	}

	cmp := compare(req.Metric(), r1, r2)
	return &CompareResult{Comparison: cmp, Message: cmp.Insight}, op.finish(querylog.Rows(2), nil)
}

// scalar runs stmt and converts its single value to a number. No rows and
// NULL both yield 0.
func (s *Service) scalar(ctx context.Context, stmt query.Statement) (float64, error) {
	rs, err := s.executor.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, err
	}
	raw, err := rs.Scalar()
	if err != nil {
		return 0, nil
	}
	v, err := datasource.Float(raw)
	if err != nil {
		return 0, fault.New(fault.CodeCalculation, err.Error(), fault.WithCause(err))
	}
	return v, nil
}

func compare(metric query.Metric, r1, r2 float64) Comparison {
	difference := r2 - r1

	var pct float64
	switch {
	case r1 != 0:
		pct = difference / r1 * 100
	case r2 > 0:
		pct = 100
	}

	trend := TrendStable
	switch {
	case math.Abs(pct) < 1:
	case pct > 0:
		trend = TrendUp
	default:
		trend = TrendDown
	}

	var insight string
	switch trend {
	case TrendStable:
		insight = fmt.Sprintf("%s remained stable between the two periods/entities (%.1f%% change)", metric, pct)
	case TrendUp:
		insight = fmt.Sprintf("%s increased by %s (%.1f%%) from %s to %s",
			metric, formatNumber(math.Abs(difference)), pct, formatNumber(r1), formatNumber(r2))
	default:
		insight = fmt.Sprintf("%s decreased by %s (%.1f%%) from %s to %s",
			metric, formatNumber(math.Abs(difference)), math.Abs(pct), formatNumber(r1), formatNumber(r2))
	}

	return Comparison{
		Value1Result:  r1,
		Value2Result:  r2,
		Difference:    difference,
		PercentChange: round2(pct),
		Trend:         trend,
		Insight:       insight,
	}
}

// Rank orders the groups of a column by a metric and reports each group's
// share of the returned total.
func (s *Service) Rank(ctx context.Context, params query.RankParams) (*RankResult, error) {
	op := s.begin(ctx, ToolRankEntities, params.Table)
	ctx = op.ctx

	req, err := query.NewRankRequest(params)
	if err != nil {
		return nil, op.finish(nil, err)
	}
	if err := s.validator.Require(ctx, req.Table(), req.Columns()...); err != nil {
		return nil, op.finish(nil, err)
	}

	stmt := s.builder.Rank(req)
	op.statement(stmt.Text)

	rs, err := s.executor.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, op.finish(nil, err)
	}

	rankings := make([]Ranking, 0, rs.Len())
	var total float64
	for i, row := range rs.Rows {
		v, err := datasource.Float(row["value"])
		if err != nil {
			return nil, op.finish(nil, calculationError(req.Metric(), err))
		}
		total += v
		rankings = append(rankings, Ranking{Rank: i + 1, Entity: row["entity"], Value: v})
	}
	for i := range rankings {
		if total != 0 {
			rankings[i].Percentage = round2(rankings[i].Value * 100 / total)
		}
	}

	summary := RankSummary{TotalEntities: len(rankings), TotalValue: round2(total)}
	if len(rankings) > 0 {
		summary.AvgValue = round2(total / float64(len(rankings)))
	}

	return &RankResult{
		Rankings: rankings,
		Summary:  summary,
		Message: fmt.Sprintf("Ranked %s %d entities by %s from %s",
			req.Direction(), len(rankings), req.Metric(), req.Table()),
	}, op.finish(querylog.Rows(len(rankings)), nil)
}

func calculationError(metric query.Metric, err error) error {
	return fault.New(fault.CodeCalculation,
		fmt.Sprintf("%s result is not numeric: %v", metric, err),
		fault.WithCause(err),
	)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// formatNumber renders f without trailing zeros.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
