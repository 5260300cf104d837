package cmd

import (
	"github.com/huangsam/defectset/core"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/spf13/cobra"
)

// ticketsCmd resolves the fixed bugs of a project.
var ticketsCmd = &cobra.Command{
	Use:   "tickets [repo-path]",
	Short: "Resolve the fixed bugs of a project into release ranges.",
	Long: `Fetch the fixed bugs of a JIRA project and resolve each into its injected,
opening and fixed releases. Missing or inconsistent injected releases are
estimated with the proportion method.

When a repository is given, each ticket is linked to the commits mentioning
its key and tickets without such commits are discarded.

Examples:
  # Resolve tickets from the tracker only
  defectset tickets -p BOOKKEEPER

  # Also link fix commits of a local clone
  defectset tickets ../bookkeeper -p BOOKKEEPER --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: trackerSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTickets(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot resolve tickets", err)
		}
	},
}
