package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// Envelope is the common header of every tool output. Payload fields sit
// next to it in the same JSON object.
type Envelope struct {
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Message   string `json:"message"`
}

// ParseEnvelope reads the envelope header from a tool output.
func ParseEnvelope(output json.RawMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(output, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	return env, nil
}

// Success renders payload, which must marshal to a JSON object, with
// "success": true prepended.
func Success(payload any) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal output: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return Result{}, fmt.Errorf("marshal output: payload is not an object")
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + 16)
	buf.WriteString(`{"success":true`)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return NewResult(buf.Bytes()), nil
}

// Failure renders err as a "success": false envelope. The message is the
// normalized user message prefixed with action. Fields in empty are added
// so the output keeps the shape of a successful call.
func Failure(action string, err error, empty map[string]any) Result {
	normalized := fault.Normalize(err, nil)

	out := make(map[string]any, len(empty)+4)
	for k, v := range empty {
		out[k] = v
	}
	out["success"] = false
	out["code"] = string(normalized.Code())
	out["retryable"] = normalized.Retryable()
	out["message"] = fmt.Sprintf("%s: %s", action, normalized.UserMessage())

	body, mErr := json.Marshal(out)
	if mErr != nil {
		body = []byte(`{"success":false,"code":"UNKNOWN_ERROR","message":"` + action + `"}`)
	}
	return NewResult(body)
}

// Decode unmarshals tool input into v. Numbers decode as json.Number and
// empty input decodes as an empty object.
func Decode(input json.RawMessage, v any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fault.InvalidInput("input", fmt.Sprintf("The tool input is not valid: %v.", err))
	}
	return nil
}

// Typed adapts fn into a Handler that decodes input into T and wraps the
// outcome in an envelope. Failures, including malformed input, become a
// "success": false result described by action; the returned error is only
// set when a successful payload cannot be encoded.
func Typed[T any](action string, empty map[string]any, fn func(ctx context.Context, in T) (any, error)) Handler {
	return func(ctx context.Context, input json.RawMessage) (Result, error) {
		var in T
		if err := Decode(input, &in); err != nil {
			return Failure(action, err, empty), nil
		}
		out, err := fn(ctx, in)
		if err != nil {
			return Failure(action, err, empty), nil
		}
		return Success(out)
	}
}
