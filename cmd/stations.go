package cmd

import (
	"fmt"
	"strconv"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/spf13/cobra"
)

// stationsCmd lists one scored page of stations.
var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List stations scored for one accessibility category.",
	Long: `Search stations and score each one against the criteria of a category.

Each station gets a tally of met criteria, a percentage and a band:
Excellent (80% and above), Adequate (50% and above) or Limited.

Narrow the search by prefecture, station name or line, require specific
criteria to be met, sort by score and page through the results.
When a logged-in user is configured and no --filters are given, the
user's preferred features are applied as filters.

Examples:
  # Best-equipped stations for wheelchair users in Tokyo
  barriernavi stations --category body --prefecture 東京都 --sort score-desc

  # Stations on the Yamanote line with tactile paving and accessible gates
  barriernavi stations -c vision --line 山手線 --filters has_tactile_paving,has_accessible_gate

  # Weight the criteria that matter most
  barriernavi stations -c hearing --weights has_guidance_system:3

  # Export a page to Parquet for analysis
  barriernavi stations --output parquet --output-file stations.parquet`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteStations(rootCtx, cfg, newStationAPI(), cacheManager); err != nil {
			contract.LogFatal("Cannot list stations", err)
		}
	},
}

// stationCmd shows the full metric breakdown of one station.
var stationCmd = &cobra.Command{
	Use:   "station <id>",
	Short: "Show the accessibility breakdown of one station.",
	Long: `Show every criterion of a category for one station, whether it is met,
and the resulting score. Ratio criteria show the counts behind them.

The breakdown is always re-scored locally. If the API reports a met flag
that disagrees with the local result, a warning is printed.

Examples:
  barriernavi station 1130101 --category vision
  barriernavi station 1130101 -c body --weights platform_ratio:2 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			contract.LogFatal("Cannot show station", fmt.Errorf("invalid station id %q", args[0]))
		}
		if err := core.ExecuteStation(rootCtx, cfg, newStationAPI(), cacheManager, id); err != nil {
			contract.LogFatal("Cannot show station", err)
		}
	},
}

// prefecturesCmd lists prefectures with their station counts.
var prefecturesCmd = &cobra.Command{
	Use:     "prefectures",
	Short:   "List prefectures with their station counts.",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePrefectures(rootCtx, cfg, newStationAPI(), cacheManager); err != nil {
			contract.LogFatal("Cannot list prefectures", err)
		}
	},
}

// linesCmd lists every distinct line name.
var linesCmd = &cobra.Command{
	Use:     "lines",
	Short:   "List the railway lines served by any station.",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteLines(rootCtx, cfg, newStationAPI(), cacheManager); err != nil {
			contract.LogFatal("Cannot list lines", err)
		}
	},
}

// statsCmd shows facility coverage across all stations.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many stations have each key facility.",
	Long: `Count the stations with tactile paving, guidance systems, accessible
restrooms, accessible gates and elevators.

Examples:
  barriernavi stats
  barriernavi stats --output yaml`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteStatistics(rootCtx, cfg, newStationAPI(), cacheManager); err != nil {
			contract.LogFatal("Cannot show statistics", err)
		}
	},
}
