package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marketdash/etl/internal/scheduler"
	"github.com/marketdash/etl/internal/scheduler/jobs"
)

// schedulerCmd manages the scheduled ETL invocations
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the ETL scheduler",
	Long: `Starts the scheduler daemon or inspects registered jobs.

Registered jobs:
  etl_incremental  - every 30 min during US market hours (weekdays)
  etl_daily        - every day at 06:00 UTC
  etl_full_refresh - Mondays at 08:00 UTC

Examples:
  go run ./cmd/etl scheduler start
  go run ./cmd/etl scheduler list
  go run ./cmd/etl scheduler run etl_daily
  go run ./cmd/etl scheduler status`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  startScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func startScheduler(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return err
	}
	defer a.Close()

	sched.Start()

	fmt.Println("Scheduler started. Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := sched.RunJob(args[0]); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; block until interrupted so the invocation
	// can finish before the process exits
	fmt.Printf("Job %s started, press Ctrl+C once it finishes\n", args[0])
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return err
	}
	defer a.Close()

	for jobName, stat := range sched.GetJobStats() {
		fmt.Printf("%s\n", jobName)
		fmt.Printf("  Schedule: %s\n", stat.Schedule)
		fmt.Printf("  Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("  Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("  Failures: %d\n", stat.FailureCount)
		if stat.LastRun != nil {
			fmt.Printf("  Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
	return nil
}

// initScheduler wires the app and registers the ETL jobs
func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp(nil, 0)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log, a.cfg.ETL.RunTimeout)

	for _, job := range []scheduler.Job{
		jobs.NewIncrementalJob(a.orchestrator),
		jobs.NewDailyJob(a.orchestrator),
		jobs.NewFullRefreshJob(a.orchestrator),
	} {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("register job: %w", err)
		}
	}

	return a, sched, nil
}
