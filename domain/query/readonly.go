package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// DefaultRowCap is appended to raw queries that carry no LIMIT.
const DefaultRowCap = 100

// GuardReadOnly rejects any text that does not start with SELECT.
func GuardReadOnly(text string) error {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(trimmed, "select") {
		return fault.InvalidInput("query", "Only SELECT queries are allowed. Rewrite the query as a read-only SELECT statement.")
	}
	return nil
}

// limitClause matches a LIMIT keyword followed by a count or a placeholder.
// Identifiers such as rate_limits or unlimited do not match.
var limitClause = regexp.MustCompile(`(?i)\blimit\s+(\d|\$|\?|:|all\b)`)

// EnsureLimit appends " LIMIT n" when text has no limiting clause.
// A non-positive n falls back to DefaultRowCap.
func EnsureLimit(text string, n int) string {
	trimmed := strings.TrimRight(strings.TrimSpace(text), "; \t\n")
	if limitClause.MatchString(trimmed) {
		return trimmed
	}
	if n <= 0 {
		n = DefaultRowCap
	}
	return trimmed + " LIMIT " + itoa(n)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
