package tool

import (
	"encoding/json"
	"time"
)

// Result contains the output of a tool execution.
type Result struct {
	// Output is the JSON envelope returned to the caller.
	Output json.RawMessage `json:"output"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`
}

// NewResult creates a result with the given output.
func NewResult(output json.RawMessage) Result {
	return Result{Output: output}
}

// NewResultWithDuration creates a result with timing information.
func NewResultWithDuration(output json.RawMessage, duration time.Duration) Result {
	return Result{
		Output:   output,
		Duration: duration,
	}
}

// OutputString returns the output as a string for convenience.
func (r Result) OutputString() string {
	return string(r.Output)
}
