package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pheld/f1load/internal/model"
)

// Defaults matching the OpenF1 public API.
const (
	DefaultBaseURL  = "https://api.openf1.org/v1"
	DefaultDatabase = "openf1_data"
)

// Config holds all runtime configuration for a f1load run. It is built from
// flags and an optional jobs file; nothing in the pipeline reads the
// environment directly.
type Config struct {
	MongoURI  string
	Database  string
	BaseURL   string
	LogFormat string // "text" or "json"
	Verbose   bool

	// Job selection: either an explicit jobs file, or the built-in
	// session/driver/lap jobs filtered by SessionKey.
	JobsFile   string
	SessionKey string
	Jobs       []model.ResourceDescriptor

	PageSize       int
	BatchSize      int
	Concurrency    int
	RequestTimeout time.Duration

	// Whole-job retry policy, layered outside the pipeline core.
	RetryAttempts int
	RetryDelay    time.Duration
}

// jobsFile is the on-disk YAML structure.
type jobsFile struct {
	BaseURL string                     `yaml:"base_url"`
	Jobs    []model.ResourceDescriptor `yaml:"jobs"`
}

// DefaultJobs returns the built-in OpenF1 job set for one session: sessions,
// drivers and laps, each with its composite key.
func DefaultJobs(sessionKey string) []model.ResourceDescriptor {
	filter := map[string]string{"session_key": sessionKey}
	return []model.ResourceDescriptor{
		{Resource: "sessions", Endpoint: "sessions", KeyFields: []string{"session_key"}, Filter: filter},
		{Resource: "drivers", Endpoint: "drivers", KeyFields: []string{"session_key", "driver_number"}, Filter: filter},
		{Resource: "laps", Endpoint: "laps", KeyFields: []string{"session_key", "driver_number", "lap_number"}, Filter: filter},
	}
}

// LoadJobsFile reads a YAML jobs file and merges its values into Config.
func (c *Config) LoadJobsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read jobs file: %w", err)
	}
	var jf jobsFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return fmt.Errorf("parse jobs file: %w", err)
	}
	if jf.BaseURL != "" {
		c.BaseURL = jf.BaseURL
	}
	c.Jobs = jf.Jobs
	return nil
}

// ResolveJobs populates Jobs from the jobs file when one is given, otherwise
// from the built-in OpenF1 set, which requires a session key.
func (c *Config) ResolveJobs() error {
	if c.JobsFile != "" {
		return c.LoadJobsFile(c.JobsFile)
	}
	if c.SessionKey == "" {
		return fmt.Errorf("--session-key or SESSION_KEY is required when no --jobs file is given")
	}
	c.Jobs = DefaultJobs(c.SessionKey)
	return nil
}

// Validate checks job descriptors and tuning knobs. It does not require a
// store URI; commands that never touch the store skip ValidateWithStore.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if len(c.Jobs) == 0 {
		return fmt.Errorf("no jobs configured")
	}
	seen := make(map[string]struct{}, len(c.Jobs))
	for _, j := range c.Jobs {
		if err := j.Validate(); err != nil {
			return err
		}
		if _, dup := seen[j.Resource]; dup {
			return fmt.Errorf("duplicate job for resource %q", j.Resource)
		}
		seen[j.Resource] = struct{}{}
	}
	if c.PageSize < 0 {
		return fmt.Errorf("--page-size must not be negative")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("--batch-size must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}
	return nil
}

// ValidateWithStore checks everything Validate does plus the store URI.
func (c *Config) ValidateWithStore() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.MongoURI == "" {
		return fmt.Errorf("--mongo-uri or MONGO_URI is required")
	}
	if c.Database == "" {
		return fmt.Errorf("--db is required")
	}
	return nil
}
