package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/mcp"
	"github.com/felixgeelhaar/sqlanalyst/interfaces/httpapi"
)

const mcpInstructions = `Analytics tools over a SQL database. Call list-tables and get-table-schema
first; every table and column passed to the other tools must exist. Tools
return a JSON envelope with "success" and, on failure, "code" and "retryable".`

type serveOptions struct {
	transport string
	addr      string
	mcpAddr   string
}

func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics tools",
		Long: `Serve the analytics tools until interrupted.

Transports:
  stdio  MCP over stdin/stdout, for desktop and IDE clients
  http   REST API (GET /healthz, GET /tools, POST /tools/{name}, GET /queries)
         plus MCP over HTTP when --mcp-addr is set

Examples:
  # MCP over stdio against DATABASE_URL
  analyst serve

  # REST and MCP over HTTP
  analyst serve -c analyst.yaml --transport http --addr :8080 --mcp-addr :8081`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "stdio or http (overrides config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "REST listen address (overrides config)")
	cmd.Flags().StringVar(&opts.mcpAddr, "mcp-addr", "", "MCP over HTTP listen address (overrides config)")

	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.mcpAddr != "" {
		cfg.Server.MCPAddr = opts.mcpAddr
	}
	if errs := domainconfig.NewValidator().Validate(cfg); errs.HasErrors() {
		return fmt.Errorf("%w: %v", domainconfig.ErrValidationFailed, errs)
	}

	return a.withRuntime(ctx, cfg, func(rt *Runtime) error {
		mcpServer := mcp.NewServer(mcp.ServerConfig{
			Name:         cfg.Name,
			Version:      Version,
			Description:  "Natural-language analytics over " + cfg.Database.Driver,
			Instructions: mcpInstructions,
			Invoker:      rt.Invoker,
		})
		mcpServer.Use(mcp.Recover(), mcp.RequestID())

		if cfg.Server.Transport != domainconfig.TransportHTTP {
			return mcpServer.ServeStdio(ctx)
		}

		api := httpapi.New(rt.Invoker,
			httpapi.WithBreaker(rt.Executor.Breaker()),
			httpapi.WithQueryLog(rt.Store),
			httpapi.WithConfig(httpapi.Config{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				RequestTimeout: cfg.Server.RequestTimeout.Duration(),
				Version:        Version,
			}),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return api.ListenAndServe(gctx, cfg.Server.Addr)
		})
		if cfg.Server.MCPAddr != "" {
			g.Go(func() error {
				return mcpServer.ServeHTTP(gctx, cfg.Server.MCPAddr)
			})
		}
		return g.Wait()
	})
}
