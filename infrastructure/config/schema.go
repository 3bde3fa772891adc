package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema      string                 `json:"$schema,omitempty"`
	ID          string                 `json:"$id,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Default     any                    `json:"default,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
	MinLength   *int                   `json:"minLength,omitempty"`
	Pattern     string                 `json:"pattern,omitempty"`
}

const schemaID = "https://github.com/felixgeelhaar/sqlanalyst/analyst-config.schema.json"

// durationPattern accepts what time.ParseDuration accepts, minus the sign.
const durationPattern = `^(0|([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+)$`

// GenerateSchema generates a JSON Schema for AnalystConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          schemaID,
		Title:       "Analyst Configuration",
		Description: "Configuration schema for the sqlanalyst tool server",
		Type:        "object",
		Properties: map[string]*JSONSchema{
			"name":       {Type: "string", Description: "A human-readable name for this deployment"},
			"version":    {Type: "string", Description: "The configuration schema version", Default: "1.0"},
			"database":   databaseSchema(),
			"resilience": resilienceSchema(),
			"rate_limit": rateLimitSchema(),
			"query_log":  queryLogSchema(),
			"logging":    loggingSchema(),
			"server":     serverSchema(),
			"telemetry":  telemetrySchema(),
		},
	}
}

func databaseSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "The analyzed database",
		Properties: map[string]*JSONSchema{
			"driver": {
				Type:    "string",
				Enum:    []string{domainconfig.DriverPostgres, domainconfig.DriverSQLite, domainconfig.DriverDuckDB},
				Default: domainconfig.DriverSQLite,
			},
			"dsn":           {Type: "string", Description: "Connection string, falls back to DATABASE_URL"},
			"schema":        {Type: "string", Description: "Catalog schema to expose"},
			"max_rows":      {Type: "integer", Minimum: floatPtr(0), Default: 10000},
			"max_conns":     {Type: "integer", Minimum: floatPtr(0), Default: 10},
			"catalog_ttl":   duration("How long table metadata is cached", "5m"),
			"query_timeout": duration("Per-attempt statement timeout", "30s"),
		},
	}
}

func resilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Retry, circuit breaker and bulkhead around every statement",
		Properties: map[string]*JSONSchema{
			"retry": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"max_attempts":  {Type: "integer", Minimum: floatPtr(0), Default: 3},
					"initial_delay": duration("Wait before the second attempt", "1s"),
					"max_delay":     duration("Cap on any single wait", "10s"),
					"multiplier":    {Type: "number", Minimum: floatPtr(1), Default: 2},
				},
			},
			"circuit_breaker": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"threshold":         {Type: "integer", Minimum: floatPtr(0), Default: 5},
					"success_threshold": {Type: "integer", Minimum: floatPtr(0), Default: 2},
					"cooldown":          duration("How long the circuit stays open", "60s"),
				},
			},
			"bulkhead": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"max_concurrent": {Type: "integer", Minimum: floatPtr(0), Default: 10},
				},
			},
		},
	}
}

func rateLimitSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Token bucket over tool calls",
		Properties: map[string]*JSONSchema{
			"enabled":  {Type: "boolean", Default: false},
			"rate":     {Type: "integer", Minimum: floatPtr(0), Default: 100},
			"burst":    {Type: "integer", Minimum: floatPtr(0), Default: 100},
			"per_tool": {Type: "boolean", Default: false},
		},
	}
}

func queryLogSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Where executed queries are recorded",
		Properties: map[string]*JSONSchema{
			"sinks": {
				Type: "array",
				Items: &JSONSchema{
					Type: "string",
					Enum: []string{domainconfig.SinkLog, domainconfig.SinkMemory, domainconfig.SinkSQLite, domainconfig.SinkPostgres},
				},
			},
			"dsn":      {Type: "string", Description: "Store connection string for the sqlite and postgres sinks"},
			"table":    {Type: "string", Pattern: `^[A-Za-z_][A-Za-z0-9_]*$`, Default: "query_log"},
			"capacity": {Type: "integer", Minimum: floatPtr(0), Default: 1000},
		},
	}
}

func loggingSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"level":  {Type: "string", Enum: []string{"trace", "debug", "info", "warn", "error"}, Default: "info"},
			"format": {Type: "string", Enum: []string{"json", "console"}, Default: "console"},
		},
	}
}

func serverSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Tool transports",
		Properties: map[string]*JSONSchema{
			"transport": {
				Type:    "string",
				Enum:    []string{domainconfig.TransportStdio, domainconfig.TransportHTTP},
				Default: domainconfig.TransportStdio,
			},
			"addr":            {Type: "string", Default: ":8080"},
			"mcp_addr":        {Type: "string"},
			"allowed_origins": {Type: "array", Items: &JSONSchema{Type: "string"}},
			"request_timeout": duration("Per-request deadline of the REST API", "60s"),
		},
	}
}

func telemetrySchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"environment": {Type: "string", Default: "development"},
			"tracing": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"exporter":    {Type: "string", Enum: []string{"none", "stdout", "otlp"}, Default: "none"},
					"endpoint":    {Type: "string"},
					"insecure":    {Type: "boolean"},
					"sample_rate": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1), Default: 1},
				},
			},
			"metrics": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled": {Type: "boolean", Default: false},
				},
			},
		},
	}
}

func duration(description, def string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description, Pattern: durationPattern, Default: def}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as an indented JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(GenerateSchema())
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaID, doc); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile(schemaID)
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks raw configuration text against GenerateSchema
// before it is decoded into AnalystConfig.
func ValidateDocument(data []byte, format Format) error {
	sch, err := compiled()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// YAML is a superset of JSON, so one decoder covers both formats. The
	// result is re-encoded to get JSON-typed numbers and maps.
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("%w: %v", domainconfig.ErrInvalidFormat, err)
	}
	if tree == nil {
		return nil
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("%w: %s document is not JSON-compatible: %v", domainconfig.ErrInvalidFormat, format, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", domainconfig.ErrInvalidFormat, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", domainconfig.ErrValidationFailed, err)
	}
	return nil
}
