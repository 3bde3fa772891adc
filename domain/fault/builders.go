package fault

import (
	"fmt"
	"time"
)

// TableNotFound reports a table missing from the catalog.
func TableNotFound(table string) *Error {
	msg := fmt.Sprintf("Table '%s' does not exist. Use list-tables to see available tables.", table)
	return New(CodeInvalidTable, msg,
		WithUserMessage(msg),
		WithContext(map[string]any{"table": table}),
	)
}

// ColumnNotFound reports a column missing from a table.
func ColumnNotFound(table, column string) *Error {
	msg := fmt.Sprintf("Column '%s' does not exist in table '%s'. Use get-table-schema to see available columns.", column, table)
	return New(CodeInvalidColumn, msg,
		WithUserMessage(msg),
		WithContext(map[string]any{"table": table, "column": column}),
	)
}

// MissingParameter reports a required parameter that was not supplied.
func MissingParameter(param, detail string) *Error {
	msg := fmt.Sprintf("Missing required parameter '%s'.", param)
	if detail != "" {
		msg = detail
	}
	return New(CodeMissingParameter, msg,
		WithUserMessage(msg),
		WithContext(map[string]any{"parameter": param}),
	)
}

// InvalidInput reports a parameter with an unacceptable value.
func InvalidInput(param, detail string) *Error {
	return New(CodeInvalidInput, detail,
		WithUserMessage(detail),
		WithContext(map[string]any{"parameter": param}),
	)
}

// Timeout reports an attempt abandoned after d.
func Timeout(d time.Duration) *Error {
	return New(CodeTimeout, fmt.Sprintf("Operation timed out after %dms", d.Milliseconds()),
		WithUserMessage("The operation took too long to complete. Please try again with a more specific query."),
	)
}

// Unavailable reports a call rejected by an open circuit breaker. The caller
// must not retry it; the condition clears when the breaker cools down.
func Unavailable(resource string) *Error {
	return New(CodeRateLimit, fmt.Sprintf("circuit breaker for %s is open", resource),
		WithUserMessage("The service is temporarily unavailable due to repeated failures. Please try again in a moment."),
		WithRetryable(false),
		WithContext(map[string]any{"resource": resource}),
	)
}

// RateLimited reports a call rejected by a rate limiter.
func RateLimited(key string) *Error {
	return New(CodeRateLimit, fmt.Sprintf("rate limit exceeded for %s", key),
		WithContext(map[string]any{"key": key}),
	)
}
