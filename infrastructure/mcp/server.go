package mcp

import (
	"context"
	"encoding/json"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	mcpserver "github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/sqlanalyst/application"
	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
)

// TransportName identifies MCP calls in logs, spans and the execution context.
const TransportName = "mcp"

// Server exposes every tool of an invoker's registry as an MCP tool.
type Server struct {
	srv     *mcpgo.Server
	invoker *application.Invoker
	info    mcpgo.ServerInfo
}

// ServerConfig configures an MCP server.
type ServerConfig struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string

	// Invoker runs tool calls (required).
	Invoker *application.Invoker
}

// NewServer creates an MCP server and registers the invoker's tools.
func NewServer(cfg ServerConfig) *Server {
	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &Server{
		srv:     mcpgo.NewServer(info, opts...),
		invoker: cfg.Invoker,
		info:    info,
	}
	if cfg.Invoker != nil {
		for _, t := range cfg.Invoker.Registry().List() {
			s.registerTool(t)
		}
	}
	return s
}

func (s *Server) registerTool(t tool.Tool) {
	name := t.Name()
	handler := func(ctx context.Context, input json.RawMessage) (string, error) {
		return s.Call(ctx, name, input)
	}

	s.srv.Tool(name).
		Description(t.Description()).
		Handler(handler)
}

// Call invokes the named tool the way an MCP client would and returns the
// envelope text. Only unknown tools produce an error.
func (s *Server) Call(ctx context.Context, name string, input json.RawMessage) (string, error) {
	ctx = middleware.WithTransport(ctx, TransportName)
	result, err := s.invoker.Invoke(ctx, name, input)
	if err != nil {
		logging.Warn().
			Add(logging.ToolName(name)).
			Add(logging.ErrorField(err)).
			Msg("mcp tool call rejected")
		return "", err
	}
	return result.OutputString(), nil
}

// Info returns the advertised server info.
func (s *Server) Info() mcpgo.ServerInfo {
	return s.info
}

// Server returns the underlying mcp-go server.
func (s *Server) Server() *mcpgo.Server {
	return s.srv
}

// Use adds middleware to the server.
func (s *Server) Use(middlewares ...mcpserver.Middleware) {
	s.srv.Use(middlewares...)
}

// ServeStdio runs the server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context, opts ...ServeOption) error {
	logging.Info().Add(logging.Component("mcp")).Add(logging.Str("transport", "stdio")).Msg("serving tools")
	return mcpgo.ServeStdio(ctx, s.srv, opts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (s *Server) ServeHTTP(ctx context.Context, addr string, opts ...HTTPOption) error {
	logging.Info().Add(logging.Component("mcp")).Add(logging.Str("addr", addr)).Msg("serving tools")
	return mcpgo.ServeHTTP(ctx, s.srv, addr, opts...)
}
