package query

import (
	"reflect"
	"strings"
	"testing"
)

func mustAggregate(t *testing.T, p AggregateParams) AggregateRequest {
	t.Helper()
	req, err := NewAggregateRequest(p)
	if err != nil {
		t.Fatalf("NewAggregateRequest() error = %v", err)
	}
	return req
}

func TestBuilder_Aggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		params  AggregateParams
		sql     string
		args    []any
		text    string
	}{
		{
			name:    "count all",
			dialect: Postgres,
			params:  AggregateParams{Table: "projects", Metric: "count"},
			sql:     `SELECT COUNT(*) FROM "projects" LIMIT 100`,
			text:    `SELECT COUNT(*) FROM "projects" LIMIT 100`,
		},
		{
			name:    "count column",
			dialect: SQLite,
			params:  AggregateParams{Table: "projects", Metric: "count", Column: "owner"},
			sql:     `SELECT COUNT("owner") FROM "projects" LIMIT 100`,
			text:    `SELECT COUNT("owner") FROM "projects" LIMIT 100`,
		},
		{
			name:    "avg postgres",
			dialect: Postgres,
			params:  AggregateParams{Table: "orders", Metric: "avg", Column: "amount"},
			sql:     `SELECT ROUND(AVG("amount")::numeric, 2) FROM "orders" LIMIT 100`,
			text:    `SELECT ROUND(AVG("amount")::numeric, 2) FROM "orders" LIMIT 100`,
		},
		{
			name:    "avg sqlite",
			dialect: SQLite,
			params:  AggregateParams{Table: "orders", Metric: "avg", Column: "amount"},
			sql:     `SELECT ROUND(AVG("amount"), 2) FROM "orders" LIMIT 100`,
			text:    `SELECT ROUND(AVG("amount"), 2) FROM "orders" LIMIT 100`,
		},
		{
			name:    "distinct",
			dialect: DuckDB,
			params:  AggregateParams{Table: "orders", Metric: "distinct", Column: "customer"},
			sql:     `SELECT COUNT(DISTINCT "customer") FROM "orders" LIMIT 100`,
			text:    `SELECT COUNT(DISTINCT "customer") FROM "orders" LIMIT 100`,
		},
		{
			name:    "grouped with filters and order",
			dialect: Postgres,
			params: AggregateParams{
				Table:   "orders",
				Metric:  "sum",
				Column:  "amount",
				GroupBy: "region",
				Filters: []Filter{
					{Column: "status", Operator: OpEq, Value: "paid"},
					{Column: "amount", Operator: OpGt, Value: 10},
				},
				OrderBy: "desc",
				Limit:   5,
			},
			sql:  `SELECT "region", SUM("amount") FROM "orders" WHERE "status" = $1 AND "amount" > $2 GROUP BY "region" ORDER BY "region" DESC LIMIT 5`,
			args: []any{"paid", 10},
			text: `SELECT "region", SUM("amount") FROM "orders" WHERE "status" = 'paid' AND "amount" > 10 GROUP BY "region" ORDER BY "region" DESC LIMIT 5`,
		},
		{
			name:    "ungrouped order uses metric",
			dialect: SQLite,
			params:  AggregateParams{Table: "orders", Metric: "max", Column: "amount", OrderBy: "ASC"},
			sql:     `SELECT MAX("amount") FROM "orders" ORDER BY MAX("amount") ASC LIMIT 100`,
			text:    `SELECT MAX("amount") FROM "orders" ORDER BY MAX("amount") ASC LIMIT 100`,
		},
		{
			name:    "like with quote",
			dialect: SQLite,
			params: AggregateParams{
				Table:   "people",
				Metric:  "count",
				Filters: []Filter{{Column: "name", Operator: OpLike, Value: "O'Brien%"}},
			},
			sql:  `SELECT COUNT(*) FROM "people" WHERE "name" LIKE ? LIMIT 100`,
			args: []any{"O'Brien%"},
			text: `SELECT COUNT(*) FROM "people" WHERE "name" LIKE 'O''Brien%' LIMIT 100`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stmt := NewBuilder(tt.dialect).Aggregate(mustAggregate(t, tt.params))
			if stmt.SQL != tt.sql {
				t.Errorf("SQL = %s\nwant  %s", stmt.SQL, tt.sql)
			}
			if stmt.Text != tt.text {
				t.Errorf("Text = %s\nwant   %s", stmt.Text, tt.text)
			}
			if !reflect.DeepEqual(stmt.Args, tt.args) {
				t.Errorf("Args = %#v, want %#v", stmt.Args, tt.args)
			}
		})
	}
}

func TestBuilder_FiltersKeepOrder(t *testing.T) {
	t.Parallel()

	filters := []Filter{
		{Column: "z", Operator: OpLte, Value: 3},
		{Column: "a", Operator: OpNe, Value: "x"},
		{Column: "m", Operator: OpGte, Value: 1.5},
		{Column: "b", Operator: OpEq, Value: true},
		{Column: "c", Operator: OpEq, Value: nil},
	}
	stmt := NewBuilder(SQLite).Aggregate(mustAggregate(t, AggregateParams{Table: "t", Metric: "count", Filters: filters}))

	want := `WHERE "z" <= 3 AND "a" != 'x' AND "m" >= 1.5 AND "b" = TRUE AND "c" = NULL LIMIT`
	if !strings.Contains(stmt.Text, want) {
		t.Errorf("Text = %s, want it to contain %s", stmt.Text, want)
	}
	if got := strings.Count(stmt.SQL, "?"); got != len(filters) {
		t.Errorf("placeholders = %d, want %d", got, len(filters))
	}
}

func TestBuilder_Compare(t *testing.T) {
	t.Parallel()

	req, err := NewCompareRequest(CompareParams{
		Table:     "installs",
		Metric:    "count",
		CompareBy: "region",
		Value1:    "north",
		Value2:    "south",
		Filters:   []Filter{{Column: "year", Operator: OpEq, Value: 2024}},
	})
	if err != nil {
		t.Fatalf("NewCompareRequest() error = %v", err)
	}

	first, second := NewBuilder(Postgres).Compare(req)
	if want := `SELECT COUNT(*) FROM "installs" WHERE "region" = $1 AND "year" = $2`; first.SQL != want {
		t.Errorf("first.SQL = %s, want %s", first.SQL, want)
	}
	if first.SQL != second.SQL {
		t.Errorf("statements differ: %s vs %s", first.SQL, second.SQL)
	}
	if !reflect.DeepEqual(first.Args, []any{"north", 2024}) {
		t.Errorf("first.Args = %#v", first.Args)
	}
	if !reflect.DeepEqual(second.Args, []any{"south", 2024}) {
		t.Errorf("second.Args = %#v", second.Args)
	}
	if want := `SELECT COUNT(*) FROM "installs" WHERE "region" = 'south' AND "year" = 2024`; second.Text != want {
		t.Errorf("second.Text = %s, want %s", second.Text, want)
	}
}

func TestBuilder_Rank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		direction string
		want      string
	}{
		{"top", "top", `SELECT "technician_id" AS "entity", COUNT(*) AS "value" FROM "installs" GROUP BY "technician_id" ORDER BY "value" DESC LIMIT 5`},
		{"bottom", "bottom", `SELECT "technician_id" AS "entity", COUNT(*) AS "value" FROM "installs" GROUP BY "technician_id" ORDER BY "value" ASC LIMIT 5`},
		{"default", "", `SELECT "technician_id" AS "entity", COUNT(*) AS "value" FROM "installs" GROUP BY "technician_id" ORDER BY "value" DESC LIMIT 5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := NewRankRequest(RankParams{
				Table:     "installs",
				Metric:    "count",
				RankBy:    "technician_id",
				Direction: tt.direction,
				Limit:     5,
			})
			if err != nil {
				t.Fatalf("NewRankRequest() error = %v", err)
			}
			if got := NewBuilder(SQLite).Rank(req).SQL; got != tt.want {
				t.Errorf("SQL = %s\nwant  %s", got, tt.want)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdent() = %s", got)
	}
}
