package cmd

import (
	"github.com/huangsam/defectset/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Defectset MCP server",
	Long:  `Launch an MCP server that allows AI agents to list releases, resolve tickets and build datasets via standard tools.`,
	Args:  cobra.NoArgs,
	PreRunE: func(_ *cobra.Command, args []string) error {
		// Tool handlers suppress progress headers, keeping stdio free for the protocol.
		return sharedSetup(rootCtx, args, false)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
