package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/devwatch/internal/config"
	"github.com/emiliopalmerini/devwatch/internal/dashboard"
	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
	"github.com/emiliopalmerini/devwatch/internal/sample"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Explore the dashboard with synthetic data",
	Long: `Generate synthetic development sessions and open the dashboard on them.
No network listeners are started.

Examples:
  devwatch demo                # 8 synthetic sessions
  devwatch demo --sessions 20  # More data
  devwatch demo --seed 42      # Reproducible stream`,
	RunE: runDemo,
}

var (
	demoSessions int
	demoSeed     int64
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVarP(&demoSessions, "sessions", "n", 8, "Number of synthetic sessions")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 0, "Random seed (0 means time-based)")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	seed := demoSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	eng := engine.New(logger)
	gen := sample.New(seed)
	for _, session := range gen.Sessions(demoSessions) {
		for _, env := range session.Envelopes {
			eng.Ingest(env)
		}
		if session.Ended {
			eng.EndSession(session.SessionID)
		}
	}

	manager := providers.NewManager(logger, nil)
	app := dashboard.NewApp(eng, manager)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
