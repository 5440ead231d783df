package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect tracked sessions",
	Long:  `List and inspect sessions tracked by a running collector.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List sessions tracked by a running collector.

Examples:
  devwatch sessions list             # All sessions
  devwatch sessions list --active    # Active sessions only`,
	RunE: runSessionsList,
}

var sessionsActive bool

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)

	sessionsCmd.PersistentFlags().StringVar(&apiBaseURL, "api", "http://localhost:8080", "Collector API base URL")
	sessionsListCmd.Flags().BoolVar(&sessionsActive, "active", false, "Only show active sessions")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	path := "/sessions"
	if sessionsActive {
		path += "?active=true"
	}

	var resp struct {
		Count    int `json:"count"`
		Sessions []struct {
			SessionID         string     `json:"session_id"`
			StartTime         time.Time  `json:"start_time"`
			EndTime           *time.Time `json:"end_time"`
			Active            bool       `json:"active"`
			TotalInteractions int64      `json:"total_interactions"`
			TotalTokens       int64      `json:"total_tokens"`
			ModelsUsed        []string   `json:"models_used"`
		} `json:"sessions"`
	}
	if err := apiGet(path, &resp); err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Println("No sessions tracked yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tSTATUS\tTURNS\tTOKENS\tMODELS")
	for _, s := range resp.Sessions {
		status := "ended"
		if s.Active {
			status = "active"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.SessionID,
			util.FormatClock(s.StartTime),
			status,
			s.TotalInteractions,
			util.FormatTokens(s.TotalTokens),
			strings.Join(s.ModelsUsed, ","),
		)
	}
	return w.Flush()
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	sessionsCmd.AddCommand(sessionsShowCmd)
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	var summary engine.SessionSummary
	if err := apiGet("/sessions/"+args[0]+"/summary", &summary); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Session:\t%s\n", summary.SessionID)
	fmt.Fprintf(w, "Started:\t%s\n", summary.StartTime.Local().Format(time.RFC822))
	if summary.EndTime != nil {
		fmt.Fprintf(w, "Ended:\t%s\n", summary.EndTime.Local().Format(time.RFC822))
	} else {
		fmt.Fprintf(w, "Ended:\t(active)\n")
	}
	if summary.DurationMinutes != nil {
		fmt.Fprintf(w, "Duration:\t%.1f min\n", *summary.DurationMinutes)
	}
	fmt.Fprintf(w, "Interactions:\t%d\n", summary.TotalInteractions)
	fmt.Fprintf(w, "Tokens:\t%s\n", util.FormatTokens(summary.TotalTokens))
	fmt.Fprintf(w, "Avg tokens/turn:\t%.0f\n", summary.AvgTokensInteraction)
	fmt.Fprintf(w, "Models:\t%s\n", strings.Join(summary.ModelsUsed, ", "))
	return w.Flush()
}
