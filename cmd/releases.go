package cmd

import (
	"github.com/huangsam/defectset/core"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/spf13/cobra"
)

// releasesCmd lists the release catalog of a project.
var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List the dated releases of a JIRA project in order.",
	Long: `Fetch the versions of a JIRA project and print those with a release date,
sorted chronologically and indexed from 0.

Examples:
  # List releases
  defectset releases -p BOOKKEEPER

  # Export the catalog as CSV
  defectset releases -p BOOKKEEPER --output csv --output-file releases.csv`,
	Args:    cobra.NoArgs,
	PreRunE: trackerSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReleases(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot list releases", err)
		}
	},
}
