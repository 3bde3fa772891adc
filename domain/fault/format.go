package fault

import (
	"encoding/json"
	"time"
)

// UserMessage renders err for an end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Normalize(err, nil).UserMessage()
}

// logRecord is the structured form written to logs.
type logRecord struct {
	Code        Code           `json:"code"`
	Message     string         `json:"message"`
	UserMessage string         `json:"user_message"`
	Severity    Severity       `json:"severity"`
	Retryable   bool           `json:"retryable"`
	Context     map[string]any `json:"context,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// LogMessage renders err as a JSON document for developer logs.
func LogMessage(err error) string {
	if err == nil {
		return ""
	}
	fe := Normalize(err, nil)
	data, mErr := json.Marshal(logRecord{
		Code:        fe.code,
		Message:     fe.raw,
		UserMessage: fe.userMessage,
		Severity:    fe.severity,
		Retryable:   fe.retryable,
		Context:     fe.context,
		Timestamp:   fe.timestamp.Format(time.RFC3339Nano),
	})
	if mErr != nil {
		return fe.raw
	}
	return string(data)
}

// MarshalJSON exposes the error to JSON encoders in its log form.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(logRecord{
		Code:        e.code,
		Message:     e.raw,
		UserMessage: e.userMessage,
		Severity:    e.severity,
		Retryable:   e.retryable,
		Context:     e.context,
		Timestamp:   e.timestamp.Format(time.RFC3339Nano),
	})
}
