package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "Market data warehouse ETL",
	Long: `ETL orchestration for the market data warehouse.

Runs independent source pipelines (price, macro, trend, news), validates
every batch against quality rules, and upserts accepted batches into the
Postgres star schema.

Examples:
  go run ./cmd/etl run
  go run ./cmd/etl run price macro --mode full-refresh
  go run ./cmd/etl scheduler start
  go run ./cmd/etl setup-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
