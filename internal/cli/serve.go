package cli

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector headless",
	Long: `Start the OTLP receivers and query API without the dashboard. Equivalent
to "devwatch collect --headless".

Examples:
  devwatch serve                  # Receivers + API, logs to stderr
  devwatch serve --api-port 3000  # Query API on port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&collectGRPCPort, "grpc-port", 0, "OTLP gRPC port (default 4317)")
	serveCmd.Flags().IntVar(&collectHTTPPort, "http-port", 0, "OTLP HTTP port (default 4318)")
	serveCmd.Flags().IntVar(&collectAPIPort, "api-port", 0, "Query API port (default 8080)")
	serveCmd.Flags().StringVar(&collectDB, "db", "", "libsql database URL or file path for persistence")
	serveCmd.Flags().BoolVar(&collectLocal, "local", false, "Persist to the default database under the user data directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	collectHeadless = true
	return runCollect(cmd, args)
}
