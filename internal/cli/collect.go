package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/emiliopalmerini/devwatch/internal/api"
	"github.com/emiliopalmerini/devwatch/internal/config"
	"github.com/emiliopalmerini/devwatch/internal/dashboard"
	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
	"github.com/emiliopalmerini/devwatch/internal/sample"
	"github.com/emiliopalmerini/devwatch/internal/storage"
	"github.com/emiliopalmerini/devwatch/internal/telemetry"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the telemetry collector with the live dashboard",
	Long: `Start the OTLP receivers (gRPC and HTTP), the query API, provider usage
polling, and the live console dashboard.

Examples:
  devwatch collect                   # Collector + dashboard
  devwatch collect --headless        # Collector only, logs to stderr
  devwatch collect --demo            # Seed synthetic sessions on startup
  devwatch collect --db sessions.db  # Persist aggregates to libsql`,
	RunE: runCollect,
}

var (
	collectGRPCPort int
	collectHTTPPort int
	collectAPIPort  int
	collectHeadless bool
	collectNoAPI    bool
	collectDB       string
	collectLocal    bool
	collectDemo     bool
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVar(&collectGRPCPort, "grpc-port", 0, "OTLP gRPC port (default 4317)")
	collectCmd.Flags().IntVar(&collectHTTPPort, "http-port", 0, "OTLP HTTP port (default 4318)")
	collectCmd.Flags().IntVar(&collectAPIPort, "api-port", 0, "Query API port (default 8080)")
	collectCmd.Flags().BoolVar(&collectHeadless, "headless", false, "Run without the dashboard")
	collectCmd.Flags().BoolVar(&collectNoAPI, "no-api", false, "Disable the query API")
	collectCmd.Flags().StringVar(&collectDB, "db", "", "libsql database URL or file path for persistence")
	collectCmd.Flags().BoolVar(&collectLocal, "local", false, "Persist to the default database under the user data directory")
	collectCmd.Flags().BoolVar(&collectDemo, "demo", false, "Seed synthetic sessions on startup")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCollectFlags(cfg)

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
	}()

	var engineOpts []engine.Option
	var sink *storage.Sink
	if collectDB != "" {
		cfg.Database.URL = collectDB
	}
	if collectLocal && cfg.Database.URL == "" {
		path, err := util.DefaultDatabasePath()
		if err != nil {
			return fmt.Errorf("resolve local database path: %w", err)
		}
		cfg.Database.URL = path
	}
	if cfg.Database.URL != "" {
		db, err := storage.Open(cfg.Database.URL, cfg.Database.AuthToken)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := storage.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		sink = storage.NewSink(db, logger)
		engineOpts = append(engineOpts, engine.WithSink(sink))
		logger.Info("persistence enabled", "url", cfg.Database.URL)
	}

	eng := engine.New(logger, engineOpts...)
	receiver := telemetry.NewReceiver(func(env *telemetry.Envelope) {
		eng.Ingest(env)
	}, logger)

	manager := newProviderManager(cfg, logger, sink)

	if collectDemo {
		seedDemoSessions(eng, 8)
		logger.Info("demo sessions seeded")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telemetry.NewGRPCServer(receiver, cfg.Collector.GRPCPort, logger).Start(gctx)
	})
	g.Go(func() error {
		return telemetry.NewHTTPServer(receiver, cfg.Collector.HTTPPort, logger).Start(gctx)
	})
	if !collectNoAPI {
		g.Go(func() error {
			srv := api.NewServer(eng, manager, cfg.Providers.LookbackDays, logger)
			return srv.Run(gctx, fmt.Sprintf(":%d", cfg.API.Port))
		})
	}
	if len(manager.Kinds()) > 0 {
		g.Go(func() error {
			interval := time.Duration(cfg.Providers.CollectInterval) * time.Minute
			manager.Run(gctx, interval, cfg.Providers.LookbackDays)
			return nil
		})
	}

	if collectHeadless {
		logger.Info("collector running",
			"grpc_port", cfg.Collector.GRPCPort, "http_port", cfg.Collector.HTTPPort)
		return g.Wait()
	}

	app := dashboard.NewApp(eng, manager)
	program := tea.NewProgram(app, tea.WithAltScreen())
	go func() {
		<-gctx.Done()
		program.Quit()
	}()
	if _, err := program.Run(); err != nil {
		cancel()
		g.Wait()
		return fmt.Errorf("dashboard: %w", err)
	}
	cancel()
	return g.Wait()
}

func applyCollectFlags(cfg *config.Config) {
	if collectGRPCPort != 0 {
		cfg.Collector.GRPCPort = collectGRPCPort
	}
	if collectHTTPPort != 0 {
		cfg.Collector.HTTPPort = collectHTTPPort
	}
	if collectAPIPort != 0 {
		cfg.API.Port = collectAPIPort
	}
}

// newProviderManager registers a provider for every configured API key and
// wires collected usage through to the storage sink when one is active.
func newProviderManager(cfg *config.Config, logger *slog.Logger, sink *storage.Sink) *providers.Manager {
	var provs []providers.Provider
	if cfg.Providers.AnthropicAPIKey != "" {
		provs = append(provs, providers.NewAnthropic(
			cfg.Providers.AnthropicAPIKey, cfg.Providers.AnthropicOrgID, logger))
	}
	if cfg.Providers.OpenAIAPIKey != "" {
		provs = append(provs, providers.NewOpenAI(
			cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIOrgID, logger))
	}

	var opts []providers.ManagerOption
	if sink != nil {
		opts = append(opts, providers.WithStore(func(ctx context.Context, records []providers.UsageRecord) {
			rows := make([]storage.UsageRow, 0, len(records))
			for _, rec := range records {
				rows = append(rows, storage.UsageRow{
					Provider:       string(rec.Provider),
					UsageDate:      rec.Date.Format("2006-01-02"),
					Model:          rec.Model,
					Requests:       rec.Requests,
					InputTokens:    rec.InputTokens,
					OutputTokens:   rec.OutputTokens,
					TotalTokens:    rec.TotalTokens,
					CostUSD:        rec.CostUSD,
					OrganizationID: rec.OrganizationID,
				})
			}
			if err := sink.StoreUsage(ctx, rows); err != nil {
				logger.Warn("persist provider usage failed", "error", err)
			}
		}))
	}
	return providers.NewManager(logger, provs, opts...)
}

func seedDemoSessions(eng *engine.Engine, n int) {
	gen := sample.New(time.Now().UnixNano())
	for _, session := range gen.Sessions(n) {
		for _, env := range session.Envelopes {
			eng.Ingest(env)
		}
		if session.Ended {
			eng.EndSession(session.SessionID)
		}
	}
}
