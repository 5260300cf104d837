// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Defectset MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Defectset Dataset Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: list_releases ---
	s.AddTool(mcp.NewTool("list_releases",
		mcp.WithDescription("List the dated releases of a tracker project in chronological order."),
		mcp.WithString("project", mcp.Description("Tracker project key (defaults to the configured project).")),
	), h.handleListReleases)

	// --- 2. Tool: list_tickets ---
	s.AddTool(mcp.NewTool("list_tickets",
		mcp.WithDescription("Resolve the fixed bugs of a project into injected, opening and fixed releases."),
		mcp.WithString("project", mcp.Description("Tracker project key (defaults to the configured project).")),
		mcp.WithString("repo_path", mcp.Description("Git repository used to associate fix commits. Leave empty to skip association.")),
	), h.handleListTickets)

	// --- 3. Tool: build_dataset ---
	s.AddTool(mcp.NewTool("build_dataset",
		mcp.WithDescription("Build the labeled release metrics and walk-forward training/testing files of a project."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository of the project."), mcp.Required()),
		mcp.WithString("project", mcp.Description("Tracker project key (defaults to the configured project).")),
		mcp.WithString("output_dir", mcp.Description("Directory receiving the dataset files.")),
		mcp.WithString("format", mcp.Description("Dataset file format. Defaults to 'csv'."), mcp.Enum("csv", "arff", "json", "parquet")),
		mcp.WithNumber("workers", mcp.Description("Number of concurrent workers.")),
	), h.handleBuildDataset)

	// --- 4. Tool: get_store_status ---
	s.AddTool(mcp.NewTool("get_store_status",
		mcp.WithDescription("Report the tracker cache and dataset store status."),
	), h.handleGetStoreStatus)

	return s
}

// StartMCPServer starts the Defectset MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
