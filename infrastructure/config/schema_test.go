package config

import (
	"encoding/json"
	"errors"
	"testing"

	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
)

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()

	if schema.Schema != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("Schema = %s, want draft/2020-12", schema.Schema)
	}
	if schema.Title != "Analyst Configuration" {
		t.Errorf("Title = %s", schema.Title)
	}
	for _, prop := range []string{"database", "resilience", "rate_limit", "query_log", "logging", "server", "telemetry"} {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("missing property: %s", prop)
		}
	}

	driver := schema.Properties["database"].Properties["driver"]
	if len(driver.Enum) != 3 {
		t.Errorf("driver enum = %v", driver.Enum)
	}
	sinks := schema.Properties["query_log"].Properties["sinks"]
	if sinks.Items == nil || len(sinks.Items.Enum) != 4 {
		t.Errorf("sinks items = %+v", sinks.Items)
	}
}

func TestSchemaJSON(t *testing.T) {
	out, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("SchemaJSON() is not JSON: %v", err)
	}
	if doc["$id"] != schemaID {
		t.Errorf("$id = %v", doc["$id"])
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		format  Format
		wantErr error
	}{
		{name: "empty", doc: "", format: FormatYAML},
		{name: "durations", doc: "database:\n  catalog_ttl: 1m30s\n  query_timeout: \"0\"\n", format: FormatYAML},
		{name: "json", doc: `{"server": {"transport": "http", "addr": ":80"}}`, format: FormatJSON},
		{name: "bad duration", doc: "resilience:\n  circuit_breaker:\n    cooldown: -5s\n", format: FormatYAML, wantErr: domainconfig.ErrValidationFailed},
		{name: "bad exporter", doc: `{"telemetry": {"tracing": {"exporter": "zipkin"}}}`, format: FormatJSON, wantErr: domainconfig.ErrValidationFailed},
		{name: "sample rate", doc: "telemetry:\n  tracing:\n    sample_rate: 2\n", format: FormatYAML, wantErr: domainconfig.ErrValidationFailed},
		{name: "unparseable", doc: "server: {", format: FormatYAML, wantErr: domainconfig.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument([]byte(tt.doc), tt.format)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
