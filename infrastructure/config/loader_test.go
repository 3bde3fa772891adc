package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/domain/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoader_LoadFile_YAML(t *testing.T) {
	path := writeFile(t, "analyst.yaml", `
name: warehouse
database:
  driver: postgres
  dsn: postgres://analyst@localhost:5432/warehouse
  schema: reporting
  max_rows: 500
  catalog_ttl: 2m
  query_timeout: 15s
resilience:
  retry:
    max_attempts: 5
    initial_delay: 200ms
  circuit_breaker:
    threshold: 3
    cooldown: 30s
query_log:
  sinks: [log, postgres]
  dsn: postgres://analyst@localhost:5432/ops
server:
  transport: http
  addr: ":9090"
  mcp_addr: ":9091"
`)

	cfg, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Name != "warehouse" {
		t.Errorf("Name = %s, want warehouse", cfg.Name)
	}
	if cfg.Database.Driver != config.DriverPostgres || cfg.Database.Schema != "reporting" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.CatalogTTL.Duration() != 2*time.Minute {
		t.Errorf("CatalogTTL = %v, want 2m", cfg.Database.CatalogTTL.Duration())
	}
	if cfg.Resilience.Retry.MaxAttempts != 5 || cfg.Resilience.Retry.InitialDelay.Duration() != 200*time.Millisecond {
		t.Errorf("Retry = %+v", cfg.Resilience.Retry)
	}
	// Untouched keys keep their defaults.
	if cfg.Resilience.Retry.MaxDelay.Duration() != 10*time.Second {
		t.Errorf("MaxDelay = %v, want default 10s", cfg.Resilience.Retry.MaxDelay.Duration())
	}
	if cfg.Resilience.CircuitBreaker.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d, want default 2", cfg.Resilience.CircuitBreaker.SuccessThreshold)
	}
	if len(cfg.QueryLog.Sinks) != 2 || !cfg.QueryLog.Has(config.SinkPostgres) || cfg.QueryLog.Has(config.SinkMemory) {
		t.Errorf("Sinks = %v", cfg.QueryLog.Sinks)
	}
	if cfg.Server.Transport != config.TransportHTTP || cfg.Server.MCPAddr != ":9091" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoader_LoadFile_JSON(t *testing.T) {
	path := writeFile(t, "analyst.json", `{
  "database": {"driver": "duckdb", "dsn": "analytics.duckdb"},
  "rate_limit": {"enabled": true, "rate": 5, "burst": 10, "per_tool": true}
}`)

	cfg, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Database.Driver != config.DriverDuckDB {
		t.Errorf("Driver = %s, want duckdb", cfg.Database.Driver)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Burst != 10 || !cfg.RateLimit.PerTool {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	loader := NewLoader()

	if _, err := loader.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("missing file error = %v, want ErrConfigNotFound", err)
	}
	if _, err := loader.LoadFile(writeFile(t, "analyst.toml", "name = 'x'")); !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Errorf("toml error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := loader.LoadFile(t.TempDir()); !errors.Is(err, config.ErrInvalidFormat) {
		t.Errorf("directory error = %v, want ErrInvalidFormat", err)
	}
}

func TestLoader_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")

	cfg, err := NewLoader().LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile(\"\") error = %v", err)
	}
	if cfg.Database.Driver != config.DriverSQLite || cfg.Server.Transport != config.TransportStdio {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoader_DatabaseURLFallback(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "postgres://analyst@db:5432/app")

	cfg, err := NewLoader().LoadString("logging:\n  level: debug\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://analyst@db:5432/app" {
		t.Errorf("DSN = %s", cfg.Database.DSN)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		t.Errorf("Driver = %s, want postgres", cfg.Database.Driver)
	}

	// An explicit DSN wins.
	cfg, err = NewLoader().LoadString("database:\n  driver: sqlite\n  dsn: file:local.db\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Database.DSN != "file:local.db" || cfg.Database.Driver != config.DriverSQLite {
		t.Errorf("Database = %+v", cfg.Database)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("ANALYST_TEST_DSN", "postgres://ci@localhost/ci")

	content := `
database:
  driver: postgres
  dsn: ${ANALYST_TEST_DSN}
logging:
  level: ${ANALYST_TEST_LEVEL:-warn}
`
	cfg, err := NewLoader().LoadString(content, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://ci@localhost/ci" {
		t.Errorf("DSN = %s", cfg.Database.DSN)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s, want warn", cfg.Logging.Level)
	}

	_, err = NewLoaderWithOptions(WithStrictEnv(true)).LoadString("database:\n  dsn: ${ANALYST_TEST_UNSET}\n", FormatYAML)
	if !errors.Is(err, config.ErrMissingEnvVar) {
		t.Errorf("strict error = %v, want ErrMissingEnvVar", err)
	}

	cfg, err = NewLoaderWithOptions(WithEnvExpansion(false), WithValidation(false)).
		LoadString("name: ${ANALYST_TEST_DSN}\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "${ANALYST_TEST_DSN}" {
		t.Errorf("Name = %s, want the literal reference", cfg.Name)
	}
}

func TestLoader_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "schema enum", content: "database:\n  driver: oracle\n"},
		{name: "schema type", content: "database:\n  max_rows: many\n"},
		{name: "schema duration", content: "database:\n  query_timeout: forever\n"},
		{name: "schema sink", content: "query_log:\n  sinks: [kafka]\n"},
		{name: "semantic", content: "database:\n  driver: postgres\n  dsn: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DatabaseURLEnv, "")
			_, err := NewLoader().LoadString(tt.content, FormatYAML)
			if !errors.Is(err, config.ErrValidationFailed) {
				t.Errorf("error = %v, want ErrValidationFailed", err)
			}
		})
	}

	cfg, err := NewLoaderWithOptions(WithValidation(false)).LoadString("server:\n  transport: grpc\n", FormatYAML)
	if err != nil {
		t.Fatalf("validation disabled: %v", err)
	}
	if cfg.Server.Transport != "grpc" {
		t.Errorf("Transport = %s", cfg.Server.Transport)
	}
}

func TestLoader_MalformedInput(t *testing.T) {
	if _, err := NewLoader().LoadString("database: [unclosed", FormatYAML); !errors.Is(err, config.ErrInvalidFormat) {
		t.Errorf("yaml error = %v, want ErrInvalidFormat", err)
	}
	if _, err := NewLoader().LoadString(`{"database": `, FormatJSON); !errors.Is(err, config.ErrInvalidFormat) {
		t.Errorf("json error = %v, want ErrInvalidFormat", err)
	}
}
