package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/internal/pipeline"
)

var (
	runMode    string
	runWorkers int
	runTimeout time.Duration
)

// runCmd executes one ETL invocation and exits
var runCmd = &cobra.Command{
	Use:   "run [sources...]",
	Short: "Run the ETL pipelines once",
	Long: `Runs the selected pipelines once and exits.

Without arguments all pipelines run (price, macro, trend, news).
The exit code is non-zero only when every pipeline failed; partial
results are normal operation for independent sources.

Examples:
  go run ./cmd/etl run
  go run ./cmd/etl run price news
  go run ./cmd/etl run --mode full-refresh --workers 4`,
	RunE: runETL,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMode, "mode", "incremental", "fetch mode (incremental|full-refresh)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent pipelines (0 = config default)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "invocation deadline (0 = config default)")
}

func runETL(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(runMode)
	if err != nil {
		return err
	}

	a, err := newApp(args, runWorkers)
	if err != nil {
		return err
	}
	defer a.Close()

	timeout := a.cfg.ETL.RunTimeout
	if runTimeout > 0 {
		timeout = runTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	summary := a.orchestrator.Run(ctx, mode)
	printSummary(summary)

	if summary.ExitCode() != 0 {
		return fmt.Errorf("all pipelines failed")
	}
	return nil
}

func parseMode(s string) (contracts.Mode, error) {
	switch contracts.Mode(s) {
	case contracts.ModeIncremental:
		return contracts.ModeIncremental, nil
	case contracts.ModeFullRefresh:
		return contracts.ModeFullRefresh, nil
	default:
		return "", fmt.Errorf("unknown mode %q (incremental|full-refresh)", s)
	}
}

func printSummary(summary pipeline.Summary) {
	fmt.Printf("\nInvocation: %s (%s)\n", summary.Status, summary.Duration.Round(time.Millisecond))
	fmt.Printf("Window: %s .. %s\n\n", summary.Window.From.Format("2006-01-02"), summary.Window.To.Format("2006-01-02"))

	for _, o := range summary.Outcomes {
		fmt.Printf("  %-8s %-8s fetched=%-6d written=%-6d rejected=%-4d %s\n",
			o.Pipeline, o.Status, o.Fetched, o.Written, o.Rejected, o.Error)
	}
	fmt.Println()
}
