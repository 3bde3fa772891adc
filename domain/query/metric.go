// Package query models analytics requests and renders them into SQL.
//
// Values always travel as bound arguments; identifiers are only ever spliced
// in after the catalog has confirmed they exist, and then inside double quotes.
package query

import "strings"

// Metric is an aggregate function over a column.
type Metric string

const (
	MetricCount    Metric = "count"
	MetricSum      Metric = "sum"
	MetricAvg      Metric = "avg"
	MetricMin      Metric = "min"
	MetricMax      Metric = "max"
	MetricDistinct Metric = "distinct"
)

// Metrics returns every metric in declaration order.
func Metrics() []Metric {
	return []Metric{MetricCount, MetricSum, MetricAvg, MetricMin, MetricMax, MetricDistinct}
}

// ParseMetric parses a metric name case-insensitively.
func ParseMetric(s string) (Metric, bool) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricCount, MetricSum, MetricAvg, MetricMin, MetricMax, MetricDistinct:
		return true
	default:
		return false
	}
}

// RequiresColumn reports whether the metric needs a target column.
func (m Metric) RequiresColumn() bool {
	return m != MetricCount
}

// Comparable reports whether the metric may be used by compare and rank.
func (m Metric) Comparable() bool {
	return m.Valid() && m != MetricDistinct
}

func (m Metric) String() string {
	return string(m)
}

// Order is a sort direction for aggregate results.
type Order string

const (
	OrderNone Order = ""
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Valid reports whether o is empty or a known direction.
func (o Order) Valid() bool {
	return o == OrderNone || o == OrderAsc || o == OrderDesc
}

func (o Order) sql() string {
	if o == OrderAsc {
		return "ASC"
	}
	return "DESC"
}

// Direction selects the highest-first or lowest-first end of a ranking.
type Direction string

const (
	DirectionTop    Direction = "top"
	DirectionBottom Direction = "bottom"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionTop || d == DirectionBottom
}

func (d Direction) order() Order {
	if d == DirectionBottom {
		return OrderAsc
	}
	return OrderDesc
}
