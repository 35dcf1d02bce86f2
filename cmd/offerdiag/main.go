// Command offerdiag explains day-over-day profit swings across the offer
// portfolio and ranks today's follow-up work.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
)

// version is set at link time with -X main.version=...
var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "offerdiag",
	Short: "Offer and affiliate profit variance diagnostics",
	Long: `offerdiag compares the two most recent days of offer/affiliate flow,
attributes the profit change to offers, affiliates and drivers, and ranks the
follow-up actions for today.

Run it once over a workbook with 'offerdiag run', or serve the HTTP API with
'offerdiag serve'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
}

// loadConfig reads configuration and initialises logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
