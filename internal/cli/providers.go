package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/devwatch/internal/config"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "LLM provider usage operations",
	Long:  `Inspect configured LLM providers and collect their usage data.`,
}

var providersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured providers",
	RunE:  runProvidersStatus,
}

var providersCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect provider usage now",
	Long: `Run one usage collection cycle for every configured provider and print
the period summary.

Examples:
  devwatch providers collect
  devwatch providers collect --days 30`,
	RunE: runProvidersCollect,
}

var providersDays int

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersStatusCmd)
	providersCmd.AddCommand(providersCollectCmd)

	providersCollectCmd.Flags().IntVar(&providersDays, "days", 7, "Lookback window in days")
}

func runProvidersStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)
	manager := newProviderManager(cfg, logger, nil)

	kinds := manager.Kinds()
	if len(kinds) == 0 {
		fmt.Println("No providers configured. Set ANTHROPIC_API_KEY or OPENAI_API_KEY.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODELS")
	for _, kind := range kinds {
		p, ok := manager.Provider(kind)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", kind, strings.Join(p.Models(), ", "))
	}
	return w.Flush()
}

func runProvidersCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)
	manager := newProviderManager(cfg, logger, nil)

	if len(manager.Kinds()) == 0 {
		fmt.Println("No providers configured. Set ANTHROPIC_API_KEY or OPENAI_API_KEY.")
		return nil
	}

	manager.CollectAll(context.Background(), providersDays)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tREQUESTS\tTOKENS\tCOST")
	for _, summary := range manager.Summaries(providersDays) {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			summary.Provider,
			summary.TotalRequests,
			util.FormatTokens(summary.TotalTokens),
			util.FormatCost(summary.TotalCostUSD),
		)
	}
	return w.Flush()
}
