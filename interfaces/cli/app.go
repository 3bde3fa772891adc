// Package cli provides the analyst command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sqlanalyst "github.com/felixgeelhaar/sqlanalyst"
	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
	infraconfig "github.com/felixgeelhaar/sqlanalyst/infrastructure/config"
)

// Version information set at build time.
var (
	Version   = sqlanalyst.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "analyst",
		Short: "Natural-language analytics tools over SQL databases",
		Long: `analyst serves read-only analytics tools over a Postgres, SQLite or DuckDB
database. Tools validate every table and column against the live catalog,
build parameterized SQL and run it behind retry, timeout and circuit breaker
guards.

Tools are served over MCP (stdio or HTTP) and a REST API, or called directly
from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (defaults plus DATABASE_URL when omitted)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newServeCmd(),
		app.newCallCmd(),
		app.newToolsCmd(),
		app.newHistoryCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader used for "-" arguments.
func (a *App) WithInput(stdin io.Reader) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads the --config file, or the defaults when none is given.
func (a *App) loadConfig(opts ...infraconfig.LoaderOption) (*domainconfig.AnalystConfig, error) {
	cfg, err := infraconfig.NewLoaderWithOptions(opts...).LoadFile(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// withRuntime builds the runtime, runs fn and closes it.
func (a *App) withRuntime(ctx context.Context, cfg *domainconfig.AnalystConfig, fn func(*Runtime) error) error {
	rt, err := Build(ctx, cfg, Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			fmt.Fprintf(a.stderr, "warning: shutdown: %v\n", err)
		}
	}()
	return fn(rt)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "analyst version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
