package query

import "strings"

// Statement is a rendered query. SQL and Args are what the executor runs;
// Text is the same statement with values inlined as literals, for logs.
type Statement struct {
	SQL  string
	Args []any
	Text string
}

// Builder renders validated requests for one dialect.
type Builder struct {
	dialect Dialect
}

// NewBuilder returns a builder for d.
func NewBuilder(d Dialect) *Builder {
	return &Builder{dialect: d}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// binder turns a value into the text that stands for it in a statement.
type binder interface {
	bind(v any) string
}

type placeholderBinder struct {
	dialect Dialect
	args    []any
}

func (p *placeholderBinder) bind(v any) string {
	p.args = append(p.args, NormalizeValue(v))
	return p.dialect.Placeholder(len(p.args))
}

type literalBinder struct{}

func (literalBinder) bind(v any) string {
	return Sanitize(v)
}

func (b *Builder) render(fn func(binder) string) Statement {
	pb := &placeholderBinder{dialect: b.dialect}
	sql := fn(pb)
	return Statement{SQL: sql, Args: pb.args, Text: fn(literalBinder{})}
}

// Aggregate renders
// SELECT ["g",] expr FROM "t" [WHERE ...] [GROUP BY "g"] [ORDER BY ...] LIMIT n.
func (b *Builder) Aggregate(req AggregateRequest) Statement {
	expr := b.metricExpr(req.metric, req.column)
	return b.render(func(bd binder) string {
		var sb strings.Builder
		sb.WriteString("SELECT ")
		if req.groupBy != "" {
			sb.WriteString(QuoteIdent(req.groupBy))
			sb.WriteString(", ")
		}
		sb.WriteString(expr)
		sb.WriteString(" FROM ")
		sb.WriteString(QuoteIdent(req.table))
		writeWhere(&sb, bd, nil, req.filters)
		if req.groupBy != "" {
			sb.WriteString(" GROUP BY ")
			sb.WriteString(QuoteIdent(req.groupBy))
		}
		if req.order != OrderNone {
			sb.WriteString(" ORDER BY ")
			if req.groupBy != "" {
				sb.WriteString(QuoteIdent(req.groupBy))
			} else {
				sb.WriteString(expr)
			}
			sb.WriteString(" ")
			sb.WriteString(req.order.sql())
		}
		sb.WriteString(" LIMIT ")
		sb.WriteString(itoa(req.limit))
		return sb.String()
	})
}

// Compare renders the two statements of a comparison: the metric restricted
// to compareBy = value1 and to compareBy = value2, each with the shared filters.
func (b *Builder) Compare(req CompareRequest) (Statement, Statement) {
	side := func(value any) Statement {
		expr := b.metricExpr(req.metric, req.column)
		lead := Filter{Column: req.compareBy, Operator: OpEq, Value: value}
		return b.render(func(bd binder) string {
			var sb strings.Builder
			sb.WriteString("SELECT ")
			sb.WriteString(expr)
			sb.WriteString(" FROM ")
			sb.WriteString(QuoteIdent(req.table))
			writeWhere(&sb, bd, &lead, req.filters)
			return sb.String()
		})
	}
	return side(req.value1), side(req.value2)
}

// Rank renders a grouped aggregate with columns "entity" and "value",
// ordered by value according to the direction.
func (b *Builder) Rank(req RankRequest) Statement {
	expr := b.metricExpr(req.metric, req.column)
	return b.render(func(bd binder) string {
		var sb strings.Builder
		sb.WriteString("SELECT ")
		sb.WriteString(QuoteIdent(req.rankBy))
		sb.WriteString(` AS "entity", `)
		sb.WriteString(expr)
		sb.WriteString(` AS "value" FROM `)
		sb.WriteString(QuoteIdent(req.table))
		writeWhere(&sb, bd, nil, req.filters)
		sb.WriteString(" GROUP BY ")
		sb.WriteString(QuoteIdent(req.rankBy))
		sb.WriteString(` ORDER BY "value" `)
		sb.WriteString(req.direction.order().sql())
		sb.WriteString(" LIMIT ")
		sb.WriteString(itoa(req.limit))
		return sb.String()
	})
}

func (b *Builder) metricExpr(m Metric, column string) string {
	col := ""
	if column != "" {
		col = QuoteIdent(column)
	}
	switch m {
	case MetricCount:
		if col == "" {
			return "COUNT(*)"
		}
		return "COUNT(" + col + ")"
	case MetricSum:
		return "SUM(" + col + ")"
	case MetricAvg:
		return b.dialect.avg(col)
	case MetricMin:
		return "MIN(" + col + ")"
	case MetricMax:
		return "MAX(" + col + ")"
	case MetricDistinct:
		return "COUNT(DISTINCT " + col + ")"
	default:
		return "COUNT(*)"
	}
}

func writeWhere(sb *strings.Builder, bd binder, lead *Filter, filters []Filter) {
	conds := make([]string, 0, len(filters)+1)
	if lead != nil {
		conds = append(conds, condition(bd, *lead))
	}
	for _, f := range filters {
		conds = append(conds, condition(bd, f))
	}
	if len(conds) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(conds, " AND "))
}

func condition(bd binder, f Filter) string {
	return QuoteIdent(f.Column) + " " + string(f.Operator) + " " + bd.bind(f.Value)
}
