package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pheld/f1load/internal/exitcode"
	"github.com/pheld/f1load/internal/logging"
	"github.com/pheld/f1load/internal/store"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the unique composite-key indexes",
	RunE:  runIndexes,
}

func init() {
	f := indexesCmd.Flags()
	f.StringVar(&cfg.SessionKey, "session-key", os.Getenv("SESSION_KEY"), "Session key selecting the built-in job set (key fields only are used)")
	f.StringVar(&cfg.JobsFile, "jobs", "", "YAML jobs file (overrides the built-in job set)")
	rootCmd.AddCommand(indexesCmd)
}

func runIndexes(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.Verbose)
	ctx := context.Background()

	// The built-in job set's key fields don't depend on the session key, so
	// any value works here when no jobs file is given.
	if cfg.SessionKey == "" && cfg.JobsFile == "" {
		cfg.SessionKey = "0"
	}
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

	if err := store.EnsureIndexes(ctx, client.Database(cfg.Database), cfg.Jobs, log); err != nil {
		log.Error().Err(err).Msg("index creation failed")
		os.Exit(exitcode.StoreConnError)
	}

	log.Info().Msg("all indexes ensured")
	return nil
}
