package query

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// Limits applied when a request leaves them unset.
const (
	DefaultAggregateLimit = 100
	DefaultRankLimit      = 10
	MaxLimit              = 10000
)

// AggregateParams is the raw input for an aggregate request.
type AggregateParams struct {
	Table   string   `json:"tableName"`
	Metric  string   `json:"metric"`
	Column  string   `json:"column,omitempty"`
	GroupBy string   `json:"groupBy,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	OrderBy string   `json:"orderBy,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// AggregateRequest is a validated aggregate request.
type AggregateRequest struct {
	table   string
	metric  Metric
	column  string
	groupBy string
	filters []Filter
	order   Order
	limit   int
}

// NewAggregateRequest validates p. It checks shape only; whether the table and
// columns exist is the catalog's concern.
func NewAggregateRequest(p AggregateParams) (AggregateRequest, error) {
	table, err := requireTable(p.Table)
	if err != nil {
		return AggregateRequest{}, err
	}
	metric, ok := ParseMetric(p.Metric)
	if !ok {
		return AggregateRequest{}, fault.InvalidInput("metric",
			fmt.Sprintf("Metric '%s' is not supported. Use one of count, sum, avg, min, max, distinct.", p.Metric))
	}
	column := strings.TrimSpace(p.Column)
	if err := requireColumnFor(metric, column); err != nil {
		return AggregateRequest{}, err
	}
	if err := validateFilters(p.Filters); err != nil {
		return AggregateRequest{}, err
	}
	order := Order(strings.ToLower(strings.TrimSpace(p.OrderBy)))
	if !order.Valid() {
		return AggregateRequest{}, fault.InvalidInput("orderBy",
			fmt.Sprintf("Order '%s' is not supported. Use asc or desc.", p.OrderBy))
	}
	limit, err := normalizeLimit(p.Limit, DefaultAggregateLimit)
	if err != nil {
		return AggregateRequest{}, err
	}

	return AggregateRequest{
		table:   table,
		metric:  metric,
		column:  column,
		groupBy: strings.TrimSpace(p.GroupBy),
		filters: append([]Filter(nil), p.Filters...),
		order:   order,
		limit:   limit,
	}, nil
}

// Table returns the target table.
func (r AggregateRequest) Table() string { return r.table }

// Metric returns the aggregate function.
func (r AggregateRequest) Metric() Metric { return r.metric }

// Column returns the target column, or "".
func (r AggregateRequest) Column() string { return r.column }

// GroupBy returns the grouping column, or "".
func (r AggregateRequest) GroupBy() string { return r.groupBy }

// Filters returns a copy of the filters.
func (r AggregateRequest) Filters() []Filter { return append([]Filter(nil), r.filters...) }

// Order returns the sort direction, or OrderNone.
func (r AggregateRequest) Order() Order { return r.order }

// Limit returns the row cap.
func (r AggregateRequest) Limit() int { return r.limit }

// Columns returns every column the request references, in a stable order.
func (r AggregateRequest) Columns() []string {
	return uniqueNonEmpty(append([]string{r.column, r.groupBy}, filterColumns(r.filters)...))
}

// CompareParams is the raw input for a compare request.
type CompareParams struct {
	Table     string   `json:"tableName"`
	Metric    string   `json:"metric"`
	Column    string   `json:"column,omitempty"`
	CompareBy string   `json:"compareBy"`
	Value1    any      `json:"value1"`
	Value2    any      `json:"value2"`
	Filters   []Filter `json:"filters,omitempty"`
}

// CompareRequest is a validated compare request.
type CompareRequest struct {
	table     string
	metric    Metric
	column    string
	compareBy string
	value1    any
	value2    any
	filters   []Filter
}

// NewCompareRequest validates p.
func NewCompareRequest(p CompareParams) (CompareRequest, error) {
	table, err := requireTable(p.Table)
	if err != nil {
		return CompareRequest{}, err
	}
	metric, err := comparableMetric(p.Metric)
	if err != nil {
		return CompareRequest{}, err
	}
	column := strings.TrimSpace(p.Column)
	if err := requireColumnFor(metric, column); err != nil {
		return CompareRequest{}, err
	}
	compareBy := strings.TrimSpace(p.CompareBy)
	if compareBy == "" {
		return CompareRequest{}, fault.MissingParameter("compareBy",
			"Parameter 'compareBy' is required. Specify the column that distinguishes the two values.")
	}
	if err := validateFilters(p.Filters); err != nil {
		return CompareRequest{}, err
	}

	return CompareRequest{
		table:     table,
		metric:    metric,
		column:    column,
		compareBy: compareBy,
		value1:    p.Value1,
		value2:    p.Value2,
		filters:   append([]Filter(nil), p.Filters...),
	}, nil
}

// Table returns the target table.
func (r CompareRequest) Table() string { return r.table }

// Metric returns the aggregate function.
func (r CompareRequest) Metric() Metric { return r.metric }

// Column returns the target column, or "".
func (r CompareRequest) Column() string { return r.column }

// CompareBy returns the column the two values are matched against.
func (r CompareRequest) CompareBy() string { return r.compareBy }

// Values returns the two compared values.
func (r CompareRequest) Values() (any, any) { return r.value1, r.value2 }

// Filters returns a copy of the shared filters.
func (r CompareRequest) Filters() []Filter { return append([]Filter(nil), r.filters...) }

// Columns returns every column the request references.
func (r CompareRequest) Columns() []string {
	return uniqueNonEmpty(append([]string{r.column, r.compareBy}, filterColumns(r.filters)...))
}

// RankParams is the raw input for a rank request.
type RankParams struct {
	Table     string   `json:"tableName"`
	Metric    string   `json:"metric"`
	RankBy    string   `json:"rankBy"`
	Column    string   `json:"column,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Filters   []Filter `json:"filters,omitempty"`
}

// RankRequest is a validated rank request.
type RankRequest struct {
	table     string
	metric    Metric
	rankBy    string
	column    string
	direction Direction
	limit     int
	filters   []Filter
}

// NewRankRequest validates p.
func NewRankRequest(p RankParams) (RankRequest, error) {
	table, err := requireTable(p.Table)
	if err != nil {
		return RankRequest{}, err
	}
	metric, err := comparableMetric(p.Metric)
	if err != nil {
		return RankRequest{}, err
	}
	column := strings.TrimSpace(p.Column)
	if err := requireColumnFor(metric, column); err != nil {
		return RankRequest{}, err
	}
	rankBy := strings.TrimSpace(p.RankBy)
	if rankBy == "" {
		return RankRequest{}, fault.MissingParameter("rankBy",
			"Parameter 'rankBy' is required. Specify the column identifying the entities to rank.")
	}
	direction := DirectionTop
	if d := strings.ToLower(strings.TrimSpace(p.Direction)); d != "" {
		direction = Direction(d)
	}
	if !direction.Valid() {
		return RankRequest{}, fault.InvalidInput("direction",
			fmt.Sprintf("Direction '%s' is not supported. Use top or bottom.", p.Direction))
	}
	if err := validateFilters(p.Filters); err != nil {
		return RankRequest{}, err
	}
	limit, err := normalizeLimit(p.Limit, DefaultRankLimit)
	if err != nil {
		return RankRequest{}, err
	}

	return RankRequest{
		table:     table,
		metric:    metric,
		rankBy:    rankBy,
		column:    column,
		direction: direction,
		limit:     limit,
		filters:   append([]Filter(nil), p.Filters...),
	}, nil
}

// Table returns the target table.
func (r RankRequest) Table() string { return r.table }

// Metric returns the aggregate function.
func (r RankRequest) Metric() Metric { return r.metric }

// RankBy returns the entity column.
func (r RankRequest) RankBy() string { return r.rankBy }

// Column returns the target column, or "".
func (r RankRequest) Column() string { return r.column }

// Direction returns top or bottom.
func (r RankRequest) Direction() Direction { return r.direction }

// Limit returns the number of entities returned.
func (r RankRequest) Limit() int { return r.limit }

// Filters returns a copy of the filters.
func (r RankRequest) Filters() []Filter { return append([]Filter(nil), r.filters...) }

// Columns returns every column the request references.
func (r RankRequest) Columns() []string {
	return uniqueNonEmpty(append([]string{r.rankBy, r.column}, filterColumns(r.filters)...))
}

func requireTable(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fault.MissingParameter("tableName", "Parameter 'tableName' is required. Use list-tables to see available tables.")
	}
	return table, nil
}

func comparableMetric(s string) (Metric, error) {
	metric, ok := ParseMetric(s)
	if !ok || !metric.Comparable() {
		return "", fault.InvalidInput("metric",
			fmt.Sprintf("Metric '%s' is not supported here. Use one of count, sum, avg, min, max.", s))
	}
	return metric, nil
}

func requireColumnFor(metric Metric, column string) error {
	if metric.RequiresColumn() && column == "" {
		return fault.MissingParameter("column",
			fmt.Sprintf("Metric '%s' requires a column parameter. Please specify which column to calculate %s for.", metric, metric))
	}
	return nil
}

func normalizeLimit(limit, def int) (int, error) {
	switch {
	case limit == 0:
		return def, nil
	case limit < 0:
		return 0, fault.InvalidInput("limit", fmt.Sprintf("Limit must be positive, got %d.", limit))
	case limit > MaxLimit:
		return 0, fault.InvalidInput("limit", fmt.Sprintf("Limit must not exceed %d, got %d.", MaxLimit, limit))
	default:
		return limit, nil
	}
}

func uniqueNonEmpty(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
