package application

import (
	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
)

// AggregateSummary describes an aggregate result.
type AggregateSummary struct {
	TotalRecords    int      `json:"totalRecords"`
	CalculationTime int64    `json:"calculationTime"`
	MetricApplied   string   `json:"metricApplied"`
	AggregatedValue *float64 `json:"aggregatedValue,omitempty"`
}

// AggregateResult is the outcome of Aggregate.
type AggregateResult struct {
	Results []map[string]any `json:"results"`
	Summary AggregateSummary `json:"summary"`
	Message string           `json:"message"`
}

// Trend is the direction of change between two compared values.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Comparison holds the metric for both sides and how they differ.
type Comparison struct {
	Value1Result  float64 `json:"value1Result"`
	Value2Result  float64 `json:"value2Result"`
	Difference    float64 `json:"difference"`
	PercentChange float64 `json:"percentChange"`
	Trend         Trend   `json:"trend"`
	Insight       string  `json:"insight"`
}

// CompareResult is the outcome of Compare.
type CompareResult struct {
	Comparison Comparison `json:"comparison"`
	Message    string     `json:"message"`
}

// Ranking is one ranked entity.
type Ranking struct {
	Rank       int     `json:"rank"`
	Entity     any     `json:"entity"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// RankSummary aggregates the returned rankings.
type RankSummary struct {
	TotalEntities int     `json:"totalEntities"`
	TotalValue    float64 `json:"totalValue"`
	AvgValue      float64 `json:"avgValue"`
}

// RankResult is the outcome of Rank.
type RankResult struct {
	Rankings []Ranking   `json:"rankings"`
	Summary  RankSummary `json:"summary"`
	Message  string      `json:"message"`
}

// QueryResult is the outcome of RunQuery.
type QueryResult struct {
	Data     []map[string]any `json:"data"`
	Columns  []string         `json:"columns"`
	RowCount int              `json:"rowCount"`
	Message  string           `json:"message"`
}

// TablesResult is the outcome of ListTables.
type TablesResult struct {
	Tables  []catalog.Table `json:"tables"`
	Message string          `json:"message"`
}

// SchemaResult is the outcome of DescribeTable.
type SchemaResult struct {
	TableName string           `json:"tableName"`
	Columns   []catalog.Column `json:"columns"`
	Message   string           `json:"message"`
}

// TableStats is a row count with a few sample rows.
type TableStats struct {
	TableName  string           `json:"tableName"`
	RowCount   int64            `json:"rowCount"`
	SampleData []map[string]any `json:"sampleData"`
}

// StatsResult is the outcome of TableStats.
type StatsResult struct {
	Stats   TableStats `json:"stats"`
	Message string     `json:"message"`
}

// Overview lists every table with its row count.
type Overview struct {
	TotalTables int                 `json:"totalTables"`
	TotalRows   int64               `json:"totalRows"`
	Tables      []catalog.TableRows `json:"tables"`
}

// OverviewResult is the outcome of Overview.
type OverviewResult struct {
	Overview Overview `json:"overview"`
	Message  string   `json:"message"`
}
