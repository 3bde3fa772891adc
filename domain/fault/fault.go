// Package fault defines the closed error taxonomy shared by the query builder,
// the resilience layer and the tool packs.
package fault

import (
	"fmt"
	"maps"
	"time"
)

// Code identifies a class of failure.
type Code string

// Error codes. The set is closed; every handling site switches over all of them.
const (
	CodeDatabaseConnection Code = "DATABASE_CONNECTION_ERROR"
	CodeQueryExecution     Code = "QUERY_EXECUTION_ERROR"
	CodeInvalidTable       Code = "INVALID_TABLE"
	CodeInvalidColumn      Code = "INVALID_COLUMN"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeMissingParameter   Code = "MISSING_PARAMETER"
	CodeTimeout            Code = "TIMEOUT_ERROR"
	CodeRateLimit          Code = "RATE_LIMIT_ERROR"
	CodeCalculation        Code = "CALCULATION_ERROR"
	CodeExport             Code = "EXPORT_ERROR"
	CodeUnknown            Code = "UNKNOWN_ERROR"
)

// Codes returns every code in declaration order.
func Codes() []Code {
	return []Code{
		CodeDatabaseConnection,
		CodeQueryExecution,
		CodeInvalidTable,
		CodeInvalidColumn,
		CodeInvalidInput,
		CodeMissingParameter,
		CodeTimeout,
		CodeRateLimit,
		CodeCalculation,
		CodeExport,
		CodeUnknown,
	}
}

// Severity ranks how serious a failure is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// profile holds the defaults attached to a code.
type profile struct {
	severity    Severity
	retryable   bool
	userMessage string
}

func profileFor(code Code) profile {
	switch code {
	case CodeDatabaseConnection:
		return profile{SeverityCritical, true, "Unable to connect to the database. Please try again in a moment."}
	case CodeQueryExecution:
		return profile{SeverityError, false, "There was an error with the query. Please check your parameters and try again."}
	case CodeInvalidTable:
		return profile{SeverityError, false, "The requested table does not exist. Use list-tables to see available tables."}
	case CodeInvalidColumn:
		return profile{SeverityError, false, "The requested column does not exist. Use get-table-schema to see available columns."}
	case CodeInvalidInput:
		return profile{SeverityError, false, "The request parameters are invalid. Please check them and try again."}
	case CodeMissingParameter:
		return profile{SeverityError, false, "A required parameter is missing."}
	case CodeTimeout:
		return profile{SeverityError, true, "The query took too long to execute. Please try a more specific query or add filters."}
	case CodeRateLimit:
		return profile{SeverityWarning, true, "Too many requests. Please wait a moment before trying again."}
	case CodeCalculation:
		return profile{SeverityError, false, "The result could not be calculated from the returned data."}
	case CodeExport:
		return profile{SeverityError, false, "The results could not be exported."}
	case CodeUnknown:
		return profile{SeverityError, true, "An unexpected error occurred. Please try again."}
	default:
		return profile{SeverityError, true, "An unexpected error occurred. Please try again."}
	}
}

// Error is a classified failure. It is immutable once constructed.
type Error struct {
	code        Code
	raw         string
	userMessage string
	severity    Severity
	retryable   bool
	context     map[string]any
	timestamp   time.Time
	cause       error
}

// Option adjusts an Error during construction.
type Option func(*Error)

// WithUserMessage overrides the default user-facing message of the code.
func WithUserMessage(msg string) Option {
	return func(e *Error) {
		e.userMessage = msg
	}
}

// WithSeverity overrides the default severity of the code.
func WithSeverity(s Severity) Option {
	return func(e *Error) {
		e.severity = s
	}
}

// WithRetryable overrides the default retryability of the code.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = retryable
	}
}

// WithContext attaches diagnostic key/values.
func WithContext(ctx map[string]any) Option {
	return func(e *Error) {
		if len(ctx) == 0 {
			return
		}
		if e.context == nil {
			e.context = make(map[string]any, len(ctx))
		}
		maps.Copy(e.context, ctx)
	}
}

// WithCause records the underlying error for errors.Is / errors.As.
func WithCause(err error) Option {
	return func(e *Error) {
		e.cause = err
	}
}

// New creates an Error for code with the developer-facing raw message.
func New(code Code, raw string, opts ...Option) *Error {
	p := profileFor(code)
	e := &Error{
		code:        code,
		raw:         raw,
		userMessage: p.userMessage,
		severity:    p.severity,
		retryable:   p.retryable,
		timestamp:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf is New with a formatted raw message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Error implements error with the raw message.
func (e *Error) Error() string {
	return e.raw
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the error code.
func (e *Error) Code() Code { return e.code }

// RawMessage returns the developer-facing message.
func (e *Error) RawMessage() string { return e.raw }

// UserMessage returns the message suitable for end users.
func (e *Error) UserMessage() string { return e.userMessage }

// Severity returns the severity.
func (e *Error) Severity() Severity { return e.severity }

// Retryable reports whether retrying may succeed.
func (e *Error) Retryable() bool { return e.retryable }

// Timestamp returns when the error was classified.
func (e *Error) Timestamp() time.Time { return e.timestamp }

// Context returns a copy of the diagnostic context.
func (e *Error) Context() map[string]any {
	if e.context == nil {
		return nil
	}
	return maps.Clone(e.context)
}

// Is matches another *Error by code, so errors.Is(err, fault.New(CodeTimeout, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}
