package query

import "errors"

var (
	// ErrUnknownDialect is returned for an unsupported driver name.
	ErrUnknownDialect = errors.New("unknown sql dialect")
)
