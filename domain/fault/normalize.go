package fault

import (
	"context"
	"errors"
	"strings"
)

// Normalize classifies err. An error that already carries an *Error is
// returned as that *Error unchanged. A nil err yields nil.
func Normalize(err error, ctx map[string]any) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	raw := err.Error()
	opts := []Option{WithCause(err), WithContext(ctx)}

	code := classify(raw)
	if code == CodeUnknown && errors.Is(err, context.DeadlineExceeded) {
		code = CodeTimeout
	}

	return New(code, raw, opts...)
}

// classify maps a raw message to a code. Order matters: connection problems
// win over timeouts, which win over rate limits, which win over query errors.
func classify(raw string) Code {
	msg := strings.ToLower(raw)
	switch {
	case strings.Contains(msg, "connect") || strings.Contains(msg, "econnrefused"):
		return CodeDatabaseConnection
	case strings.Contains(msg, "timeout"):
		return CodeTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return CodeRateLimit
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "column") || strings.Contains(msg, "table"):
		return CodeQueryExecution
	default:
		return CodeUnknown
	}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Normalize(err, nil).Retryable()
}

// CodeOf returns the code err normalizes to, or "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return Normalize(err, nil).Code()
}
