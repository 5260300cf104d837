package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/defectset/core"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// projectConfig clones the base config and applies the project argument.
func (h *toolHandler) projectConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	if p := strings.TrimSpace(request.GetString("project", "")); p != "" {
		cfg.Project = p
	}
	if err := cfg.RequireProject(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *toolHandler) handleListReleases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.projectConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	releases, _, err := core.GetReleaseResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("release lookup failed: %v", err)), nil
	}
	return jsonResult(releases)
}

func (h *toolHandler) handleListTickets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.projectConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.RepoPath = request.GetString("repo_path", "")

	report, _, err := core.GetTicketResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ticket resolution failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleBuildDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.projectConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.RepoPath = request.GetString("repo_path", "")
	if cfg.RepoPath == "" {
		return mcp.NewToolResultError("repo_path is required"), nil
	}
	if d := request.GetString("output_dir", ""); d != "" {
		cfg.OutputDir = d
	}
	if f := request.GetString("format", ""); f != "" {
		format := schema.DatasetFormat(strings.ToLower(f))
		if _, ok := schema.ValidDatasetFormats[format]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid dataset format '%s'. must be csv, arff, json, parquet", f)), nil
		}
		cfg.Format = format
	}
	if w := request.GetInt("workers", 0); w > 0 {
		cfg.Workers = w
	}

	summary, _, err := core.GetBuildResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dataset build failed: %v", err)), nil
	}
	return jsonResult(summary)
}

func (h *toolHandler) handleGetStoreStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.mgr == nil {
		return mcp.NewToolResultError("no stores are configured"), nil
	}

	result := struct {
		Cache *schema.CacheStatus   `json:"cache,omitempty"`
		Store *schema.DatasetStatus `json:"store,omitempty"`
	}{}
	if cache := h.mgr.GetTrackerStore(); cache != nil {
		status, err := cache.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cache status failed: %v", err)), nil
		}
		result.Cache = &status
	}
	if store := h.mgr.GetDatasetStore(); store != nil {
		status, err := store.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("store status failed: %v", err)), nil
		}
		result.Store = &status
	}
	return jsonResult(result)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
