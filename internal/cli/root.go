package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devwatch",
	Short: "Telemetry collector and analytics for AI-assisted development",
	Long: `devwatch receives OTLP telemetry from AI coding assistants, reconstructs
development sessions in real time, and exposes them through a query API and
a live console dashboard.

It also polls LLM provider platforms for usage and cost data so local
session activity and billed usage can be compared side by side.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger writing to stderr, so log output
// never interleaves with tabwriter or TUI output on stdout.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
