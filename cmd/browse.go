package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/tui"
	"github.com/spf13/cobra"
)

// browseCmd opens the interactive station browser.
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stations interactively in the terminal",
	Long: `Open a full-screen station browser for one category.

Keys:
  n/p     next/previous page
  g/G     first/last page
  s       cycle sort order (none, score-desc, score-asc)
  /       search by station name
  r       reset search, filters and sort
  enter   show the metric breakdown of the selected station
  esc     back to the list
  q       quit

The search flags of the stations command set the initial state.

Examples:
  barriernavi browse --category vision --prefecture 大阪府
  barriernavi browse -c body --user-id 3 --username hanako`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := core.WithSuppressHeader(rootCtx)
		presenter, err := core.NewSearchPresenter(ctx, cfg, newStationAPI(), cacheManager)
		if err != nil {
			contract.LogFatal("Cannot start browser", err)
		}
		if _, err := tea.NewProgram(tui.NewModel(ctx, presenter), tea.WithAltScreen()).Run(); err != nil {
			contract.LogFatal("Browser exited with error", err)
		}
	},
}
