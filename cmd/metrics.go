package cmd

import (
	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/spf13/cobra"
)

// metricsCmd displays the criteria of every category.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display the accessibility criteria and thresholds of every category",
	Long: `Show the criteria each category is scored against, in display order.

For each criterion:
- Metric key (used by --filters and --weights)
- Label from the station open data
- Kind: flag, count or ratio
- Required value; ratios require a fraction of the denominator

Threshold overrides from the thresholds: section of .barriernavi.yaml
are applied. No API call is made.

Examples:
  # Show the built-in criteria
  barriernavi metrics

  # View with overrides from a config file
  barriernavi metrics --config .barriernavi.yaml`,
	Args:    cobra.NoArgs,
	PreRunE: configSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMetrics(rootCtx, cfg); err != nil {
			contract.LogFatal("Cannot display metrics", err)
		}
	},
}
