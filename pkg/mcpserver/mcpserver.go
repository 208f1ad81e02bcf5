// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mcpserver exposes the enabled tools over the Model Context
// Protocol on stdio. Each tool takes one string argument, "input", in the
// same format the reasoning loop passes as ACTION_INPUT.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

const serverName = "meton"

// New builds an MCP server with one MCP tool per enabled registry tool.
func New(registry *tools.ToolRegistry, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default().With("component", "mcp")
	}
	s := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range registry.EnabledTools() {
		s.AddTool(definition(t), handler(registry, t.Name(), logger))
	}
	logger.Debug("MCP tools registered", "count", len(registry.EnabledTools()))
	return s
}

// ServeStdio blocks serving s on stdin and stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func definition(t tools.Tool) mcp.Tool {
	inputDesc := "Tool input"
	if sp, ok := t.(tools.SchemaProvider); ok {
		if schema := sp.InputSchema(); schema != "" {
			inputDesc = "JSON object matching this schema: " + schema
		}
	}
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("input", mcp.Required(), mcp.Description(inputDesc)),
	)
}

func handler(registry *tools.ToolRegistry, name string, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res := registry.Execute(ctx, name, input)
		if !res.Success() {
			logger.Debug("MCP tool call failed", "tool", name, "error", res.Text())
			return mcp.NewToolResultError(res.Text()), nil
		}
		return mcp.NewToolResultText(res.Text()), nil
	}
}
