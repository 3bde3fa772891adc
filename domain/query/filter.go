package query

import (
	"fmt"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// Operator is a comparison operator allowed in filters.
type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpGt   Operator = ">"
	OpLt   Operator = "<"
	OpGte  Operator = ">="
	OpLte  Operator = "<="
	OpLike Operator = "LIKE"
)

// Valid reports whether op is in the allowed set.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGte, OpLte, OpLike:
		return true
	default:
		return false
	}
}

// Filter is one condition of a WHERE clause. Filters are ANDed in order.
type Filter struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func validateFilters(filters []Filter) error {
	for i, f := range filters {
		if f.Column == "" {
			return fault.MissingParameter("filters", fmt.Sprintf("Filter %d is missing a column.", i+1))
		}
		if !f.Operator.Valid() {
			return fault.InvalidInput("filters",
				fmt.Sprintf("Filter on '%s' uses unsupported operator '%s'. Use one of =, !=, >, <, >=, <=, LIKE.", f.Column, f.Operator))
		}
	}
	return nil
}

func filterColumns(filters []Filter) []string {
	cols := make([]string, len(filters))
	for i, f := range filters {
		cols[i] = f.Column
	}
	return cols
}
