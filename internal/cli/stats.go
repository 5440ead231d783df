package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collector statistics",
	Long: `Show aggregate statistics from a running collector.

Examples:
  devwatch stats
  devwatch stats --api http://localhost:3000`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&apiBaseURL, "api", "http://localhost:8080", "Collector API base URL")
}

func runStats(cmd *cobra.Command, args []string) error {
	var stats engine.Stats
	if err := apiGet("/stats", &stats); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Sessions:\t%d\n", stats.TotalSessions)
	fmt.Fprintf(w, "Active sessions:\t%d\n", stats.ActiveSessions)
	fmt.Fprintf(w, "Interactions:\t%d\n", stats.TotalInteractions)
	fmt.Fprintf(w, "Tokens:\t%s\n", util.FormatTokens(stats.TotalTokens))
	fmt.Fprintf(w, "Events received:\t%d\n", stats.TotalEvents)
	return w.Flush()
}
