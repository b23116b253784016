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
	"github.com/pheld/f1load/internal/source"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run: fetch and resolve identities, no writes",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&cfg.SessionKey, "session-key", os.Getenv("SESSION_KEY"), "Session key for the built-in jobs (or set SESSION_KEY)")
	f.StringVar(&cfg.JobsFile, "jobs", "", "YAML jobs file (overrides the built-in job set)")
	f.IntVar(&cfg.PageSize, "page-size", 0, "Records per API page (0 = default)")
	f.DurationVar(&cfg.RequestTimeout, "timeout", 30*time.Second, "Per-request timeout for fetches")
	rootCmd.AddCommand(planCmd)
}

const planSampleIdentities = 5

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ResolveJobs(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	src := source.NewClient(cfg.BaseURL, cfg.PageSize, cfg.RequestTimeout, log)

	fmt.Println("=== f1load plan ===")
	fetchFailed := false

	for _, job := range cfg.Jobs {
		records, err := src.Fetch(ctx, job.Endpoint, job.Filter)
		if err != nil {
			fetchFailed = true
			fmt.Printf("%-10s fetch failed: %v\n", job.Resource, err)
			continue
		}

		ops, rejected := ingest.BuildBatch(records, job)
		fmt.Printf("%-10s fetched=%d upserts=%d rejected=%d key=%v\n",
			job.Resource, len(records), len(ops), len(rejected), job.KeyFields)

		for i, op := range ops {
			if i == planSampleIdentities {
				fmt.Printf("             … %d more\n", len(ops)-planSampleIdentities)
				break
			}
			fmt.Printf("             %s\n", op.Identity)
		}
		for _, r := range rejected {
			fmt.Printf("             rejected [%s]: %s\n", r.Identity, r.Reason)
		}
	}

	if fetchFailed {
		os.Exit(exitcode.SourceError)
	}
	fmt.Println("No writes performed.")
	return nil
}
