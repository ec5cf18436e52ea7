// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the tool registry over the Model Context
// Protocol on stdio.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jenkmcp/jenkmcp/internal/tool"
)

// Server wraps an MCP stdio server around a tool registry.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New builds an MCP server publishing every tool in reg. Calls are
// dispatched through the registry so tier gating applies regardless of
// transport.
func New(name, version string, reg *tool.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	for _, t := range reg.All() {
		s.AddTool(toMCPTool(t), dispatchHandler(reg, t.Name, logger))
	}

	return &Server{mcp: s, logger: logger}
}

// Serve runs the server on stdin/stdout until EOF.
func (s *Server) Serve() error {
	s.logger.Info("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

func toMCPTool(t *tool.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		var propOpts []mcp.PropertyOption
		if p.Description != "" {
			propOpts = append(propOpts, mcp.Description(p.Description))
		}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case "number":
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
		case "object":
			opts = append(opts, mcp.WithObject(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

func dispatchHandler(reg *tool.Registry, name string, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := reg.Dispatch(ctx, name, tool.Args(req.GetArguments()))
		if err != nil {
			var denied *tool.DeniedError
			if errors.As(err, &denied) {
				return mcp.NewToolResultError(denied.Error()), nil
			}
			logger.Error("tool call failed", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
