package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pheld/f1load/internal/exitcode"
	"github.com/pheld/f1load/internal/ingest"
	"github.com/pheld/f1load/internal/logging"
	"github.com/pheld/f1load/internal/model"
	"github.com/pheld/f1load/internal/source"
	"github.com/pheld/f1load/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch telemetry and upsert it into the store",
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&cfg.SessionKey, "session-key", os.Getenv("SESSION_KEY"), "Session key for the built-in sessions/drivers/laps jobs (or set SESSION_KEY)")
	f.StringVar(&cfg.JobsFile, "jobs", "", "YAML jobs file (overrides the built-in job set)")
	f.IntVar(&cfg.PageSize, "page-size", 0, "Records per API page (0 = default)")
	f.IntVar(&cfg.BatchSize, "batch-size", 0, "Upsert operations per bulk write (0 = default)")
	f.IntVar(&cfg.Concurrency, "concurrency", 1, "Jobs run in parallel (1 = sequential)")
	f.DurationVar(&cfg.RequestTimeout, "timeout", 30*time.Second, "Per-request timeout for fetches and bulk writes")
	f.IntVar(&cfg.RetryAttempts, "retries", 1, "Total attempts per job, re-running failed jobs whole (1 = no retry)")
	f.DurationVar(&cfg.RetryDelay, "retry-delay", time.Second, "Delay between job retry attempts")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ResolveJobs(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.ValidateWithStore(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	client, err := store.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		os.Exit(exitcode.StoreConnError)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	src := source.NewClient(cfg.BaseURL, cfg.PageSize, cfg.RequestTimeout, log)
	gw := store.NewGateway(client.Database(cfg.Database), cfg.BatchSize, cfg.RequestTimeout, log)
	orch := ingest.NewOrchestrator(src, gw, log)
	runner := ingest.NewRetryRunner(orch, cfg.RetryAttempts, cfg.RetryDelay, log)

	report := runner.Run(ctx, cfg.Jobs, cfg.Concurrency)
	printReport(report)

	switch {
	case report.HasFailedJob():
		os.Exit(exitcode.JobFailure)
	case report.HasOpFailures():
		os.Exit(exitcode.PartialFailure)
	}
	return nil
}

func printReport(report *model.RunReport) {
	fmt.Printf("Run %s finished in %.1fs\n", report.RunID, report.Duration.Seconds())
	for _, j := range report.Jobs {
		fmt.Printf("  %-10s %-8s fetched=%d inserted=%d updated=%d failed=%d\n",
			j.Resource, j.State, j.Fetched, j.Inserted, j.Updated, j.Failed)
		if j.FatalError != "" {
			fmt.Printf("             fatal: %s\n", j.FatalError)
		}
		for _, f := range j.Failures {
			fmt.Printf("             [%s] %s\n", f.Identity, f.Reason)
		}
	}
}
