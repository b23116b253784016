package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pheld/f1load/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "f1load",
	Short: "OpenF1 telemetry → MongoDB idempotent loader",
	Long:  "Fetches F1 session telemetry from the OpenF1 REST API and upserts it into MongoDB keyed by composite identity, so repeated runs never duplicate records.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.MongoURI, "mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection string (or set MONGO_URI)")
	pf.StringVar(&cfg.Database, "db", config.DefaultDatabase, "Target database name")
	pf.StringVar(&cfg.BaseURL, "base-url", config.DefaultBaseURL, "Base URL of the OpenF1 API")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
}
