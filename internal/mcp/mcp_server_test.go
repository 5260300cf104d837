package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/iocache"
	mcp_internal "github.com/huangsam/defectset/internal/mcp"
	"github.com/huangsam/defectset/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, cfg *contract.Config, mgr contract.CacheManager, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(cfg, mgr)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	baseCfg := &contract.Config{Format: schema.CSVFormat, Workers: 1}

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		message string
	}{
		{"list_releases missing project", "list_releases", map[string]any{}, "a project key is required"},
		{"list_tickets missing project", "list_tickets", map[string]any{"repo_path": "."}, "a project key is required"},
		{"build_dataset missing repo", "build_dataset", map[string]any{"project": "PROJ"}, "repo_path is required"},
		{"build_dataset invalid format", "build_dataset", map[string]any{"project": "PROJ", "repo_path": ".", "format": "xlsx"}, "invalid dataset format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, baseCfg, nil, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(res), tt.message)
		})
	}
}

func TestMCPListReleases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/project/PROJ/versions" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1","name":"1.0","releaseDate":"2020-01-31","released":true},{"id":"2","name":"wip"}]`))
	}))
	defer srv.Close()

	baseCfg := &contract.Config{TrackerURL: srv.URL, Retries: 1}
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetTrackerStore").Return(nil)

	res := callTool(t, baseCfg, mgr, "list_releases", map[string]any{"project": "PROJ"})
	require.False(t, res.IsError, resultText(res))

	var releases []schema.Release
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &releases))
	require.Len(t, releases, 1)
	assert.Equal(t, "1.0", releases[0].Name)
	assert.Empty(t, baseCfg.Project, "base config must not be modified")

	t.Run("unknown project", func(t *testing.T) {
		res := callTool(t, baseCfg, mgr, "list_releases", map[string]any{"project": "NOPE"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "release lookup failed")
	})
}

func TestMCPGetStoreStatus(t *testing.T) {
	t.Run("no manager", func(t *testing.T) {
		res := callTool(t, &contract.Config{}, nil, "get_store_status", nil)
		assert.True(t, res.IsError)
	})

	t.Run("both stores", func(t *testing.T) {
		cache := &iocache.MockCacheStore{}
		cache.On("GetStatus").Return(schema.CacheStatus{Backend: "sqlite", Connected: true, TotalEntries: 4}, nil)
		store := &iocache.MockDatasetStore{}
		store.On("GetStatus").Return(schema.DatasetStatus{Backend: "sqlite", Connected: true, TotalRuns: 2}, nil)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetTrackerStore").Return(cache)
		mgr.On("GetDatasetStore").Return(store)

		res := callTool(t, &contract.Config{}, mgr, "get_store_status", nil)
		require.False(t, res.IsError)

		var got struct {
			Cache schema.CacheStatus   `json:"cache"`
			Store schema.DatasetStatus `json:"store"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
		assert.Equal(t, 4, got.Cache.TotalEntries)
		assert.Equal(t, 2, got.Store.TotalRuns)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &iocache.MockDatasetStore{}
		store.On("GetStatus").Return(schema.DatasetStatus{}, errors.New("locked"))
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetTrackerStore").Return(nil)
		mgr.On("GetDatasetStore").Return(store)

		res := callTool(t, &contract.Config{}, mgr, "get_store_status", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "locked")
	})
}
