package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/sqldb"
	"github.com/felixgeelhaar/sqlanalyst/internal/testdb"
)

// seededConfig writes a SQLite database file with the fixture tables and a
// config pointing at it. Extra YAML is appended verbatim.
func seededConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "analytics.db")
	db, err := sqldb.Open(sqldb.Config{Driver: "sqlite3", DSN: dbPath, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	if _, err := db.Exec(testdb.Schema); err != nil {
		t.Fatalf("seed fixture database: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture database: %v", err)
	}

	content := "name: cli-test\ndatabase:\n  driver: sqlite\n  dsn: " + dbPath + "\nlogging:\n  level: error\n" + extra
	cfgPath := filepath.Join(dir, "analyst.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithInput(strings.NewReader(stdin))
	err := app.ExecuteWithArgs(context.Background(), args)
	return stdout.String(), err
}

func TestApp_Version(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "analyst version "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestApp_Help(t *testing.T) {
	out, err := run(t, "", "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"analytics tools", "serve", "call", "history", "validate"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestApp_Validate(t *testing.T) {
	cfgPath := seededConfig(t, "rate_limit:\n  enabled: true\n  rate: 2\n  burst: 4\n")

	out, err := run(t, "", "validate", "-c", cfgPath)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	for _, want := range []string{"Configuration is valid", "Database: sqlite", "Rate limiting: enabled (rate=2, burst=4)"} {
		if !strings.Contains(out, want) {
			t.Errorf("validate output missing %q:\n%s", want, out)
		}
	}
}

func TestApp_ValidateErrors(t *testing.T) {
	if _, err := run(t, "", "validate"); err == nil || !strings.Contains(err.Error(), "-c flag") {
		t.Errorf("validate without -c error = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("database:\n  driver: oracle\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "", "validate", "-c", bad); err == nil {
		t.Error("validate accepted an unsupported driver")
	}
}

func TestApp_ValidateSchema(t *testing.T) {
	out, err := run(t, "", "validate", "--schema")
	if err != nil {
		t.Fatalf("validate --schema failed: %v", err)
	}
	if !strings.Contains(out, `"title": "Analyst Configuration"`) {
		t.Errorf("schema output missing title")
	}
}

func TestApp_Tools(t *testing.T) {
	cfgPath := seededConfig(t, "")

	out, err := run(t, "", "tools", "-c", cfgPath)
	if err != nil {
		t.Fatalf("tools failed: %v", err)
	}
	for _, name := range []string{"list-tables", "get-table-schema", "run-query", "get-table-stats",
		"get-database-overview", "calculate-metrics", "compare-data", "rank-entities"} {
		if !strings.Contains(out, name) {
			t.Errorf("tools output missing %s", name)
		}
	}
}

func TestApp_Call(t *testing.T) {
	cfgPath := seededConfig(t, "")

	out, err := run(t, "", "call", "-c", cfgPath, "--compact", "calculate-metrics",
		`{"tableName": "installs", "metric": "sum", "column": "fibre_meters"}`)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	env, err := tool.ParseEnvelope([]byte(out))
	if err != nil {
		t.Fatalf("ParseEnvelope(%q) error = %v", out, err)
	}
	if !env.Success {
		t.Errorf("envelope = %+v", env)
	}
	if !strings.Contains(out, `"aggregatedValue":400`) {
		t.Errorf("call output = %s", out)
	}
}

func TestApp_CallFromStdin(t *testing.T) {
	cfgPath := seededConfig(t, "")

	out, err := run(t, `{"query": "SELECT name FROM projects ORDER BY id"}`, "call", "-c", cfgPath, "run-query", "-")
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !strings.Contains(out, `"rowCount": 4`) {
		t.Errorf("call output = %s", out)
	}
}

func TestApp_CallFailures(t *testing.T) {
	cfgPath := seededConfig(t, "")

	out, err := run(t, "", "call", "-c", cfgPath, "rank-entities", `{"tableName": "crews", "metric": "count", "rankBy": "id"}`)
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("error = %v, want ErrToolFailed", err)
	}
	if !strings.Contains(out, `"code": "INVALID_TABLE"`) {
		t.Errorf("envelope should still be printed, got %s", out)
	}

	if _, err := run(t, "", "call", "-c", cfgPath, "drop-table"); !errors.Is(err, tool.ErrToolNotFound) {
		t.Errorf("unknown tool error = %v, want ErrToolNotFound", err)
	}
	if _, err := run(t, "", "call", "-c", cfgPath, "run-query", "{not json"); err == nil {
		t.Error("call accepted malformed JSON")
	}
}

func TestApp_History(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "log.db")
	cfgPath := seededConfig(t, "query_log:\n  sinks: [sqlite]\n  dsn: "+logPath+"\n")

	if _, err := run(t, "", "call", "-c", cfgPath, "list-tables"); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	_, _ = run(t, "", "call", "-c", cfgPath, "get-table-stats", `{"tableName": "ghosts"}`)

	out, err := run(t, "", "history", "-c", cfgPath, "--limit", "10")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "list-tables") || !strings.Contains(out, "INVALID_TABLE") {
		t.Errorf("history output = %s", out)
	}

	out, err = run(t, "", "history", "-c", cfgPath, "--failed")
	if err != nil {
		t.Fatalf("history --failed failed: %v", err)
	}
	if strings.Contains(out, "list-tables") {
		t.Errorf("--failed should hide successful calls:\n%s", out)
	}
}

func TestApp_HistoryWithoutStore(t *testing.T) {
	cfgPath := seededConfig(t, "query_log:\n  sinks: [log]\n")

	if _, err := run(t, "", "history", "-c", cfgPath); !errors.Is(err, ErrNoQueryStore) {
		t.Errorf("error = %v, want ErrNoQueryStore", err)
	}
}
