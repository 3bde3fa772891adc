package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/sqlanalyst/infrastructure/config"
)

type validateOptions struct {
	strict     bool
	showSchema bool
}

func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate an analyst configuration file without connecting to anything.

This command checks:
  - File format (YAML or JSON)
  - Field types, enums and duration syntax against the JSON schema
  - Cross-field rules (dsn per driver and sink, transport addresses)
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  analyst validate -c analyst.yaml

  # Strict validation (fail on missing env vars)
  analyst validate -c analyst.yaml --strict

  # Show the JSON schema for configuration
  analyst validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on missing environment variables")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

func (a *App) validateConfig(opts *validateOptions) error {
	if a.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	config, err := a.loadConfig(infraconfig.WithValidation(true), infraconfig.WithStrictEnv(opts.strict))
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	b := infraconfig.NewBuilder(config)
	dialect, err := b.Dialect()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	if config.Name != "" {
		fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	}

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Database: %s", dialect)
	if config.Database.Schema != "" {
		fmt.Fprintf(a.stdout, " (schema %s)", config.Database.Schema)
	}
	fmt.Fprintf(a.stdout, "\n")

	ec := b.Executor()
	fmt.Fprintf(a.stdout, "  Retry: %d attempts, %s initial delay, %s per attempt\n",
		ec.Retry.MaxAttempts, ec.Retry.InitialDelay, ec.Retry.Timeout)
	fmt.Fprintf(a.stdout, "  Circuit breaker: opens after %d failures for %s\n",
		ec.Breaker.FailureThreshold, ec.Breaker.Cooldown)

	if config.RateLimit.Enabled {
		fmt.Fprintf(a.stdout, "  Rate limiting: enabled (rate=%d, burst=%d)\n",
			config.RateLimit.Rate, config.RateLimit.Burst)
	}
	if len(config.QueryLog.Sinks) > 0 {
		fmt.Fprintf(a.stdout, "  Query log: %s\n", strings.Join(config.QueryLog.Sinks, ", "))
	}

	fmt.Fprintf(a.stdout, "  Transport: %s", config.Server.Transport)
	if config.Server.Transport == "http" {
		fmt.Fprintf(a.stdout, " on %s", config.Server.Addr)
	}
	fmt.Fprintf(a.stdout, "\n")

	return nil
}

func (a *App) showConfigSchema() error {
	schemaJSON, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
