package cmd

import (
	"github.com/huangsam/defectset/core"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/spf13/cobra"
)

// buildCmd runs the whole dataset pipeline.
var buildCmd = &cobra.Command{
	Use:   "build [repo-path]",
	Short: "Build the labeled dataset and walk-forward iterations of a project.",
	Long: `Combine the Git history of a repository with the fixed bugs of its JIRA project
to label every source file of every release as buggy or clean.

The build:
- Orders the dated releases of the project
- Resolves each fixed bug into injected, opening and fixed releases,
  estimating missing injected releases with the proportion method
- Snapshots the source tree at the end of every release window
- Computes size, churn and author metrics per file and release
- Writes the first half of the releases plus one as the metrics file
- Writes one training/testing pair per walk-forward iteration, labeling
  training data only with bugs known at the testing release

Examples:
  # Build the dataset of a local clone
  defectset build ../bookkeeper --project BOOKKEEPER

  # Use reference projects while local samples are scarce
  defectset build . -p OPENJPA --cold-start-projects AVRO,STORM,ZOOKEEPER

  # Write ARFF files and evaluate each iteration with an external tool
  defectset build . -p OPENJPA --format arff --evaluator-cmd "java -jar weka-runner.jar"

  # Keep run history in the dataset store
  defectset build . -p OPENJPA --store-backend sqlite`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: repoSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteBuild(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build dataset", err)
		}
	},
}
