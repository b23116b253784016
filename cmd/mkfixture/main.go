// mkfixture fetches a small sample of records from the OpenF1 API and writes
// it as a JSON fixture for offline tests and demos.
// Usage: go run ./cmd/mkfixture --endpoint laps --param session_key=9161 --out testdata/laps.json --rows 50
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pheld/f1load/internal/config"
	"github.com/pheld/f1load/internal/source"
)

type paramList map[string]string

func (p paramList) String() string { return fmt.Sprintf("%v", map[string]string(p)) }

func (p paramList) Set(kv string) error {
	k, v, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", kv)
	}
	p[k] = v
	return nil
}

func main() {
	endpoint := flag.String("endpoint", "laps", "API endpoint to sample")
	out := flag.String("out", "testdata/fixture.json", "output JSON file")
	maxRows := flag.Int("rows", 50, "max records to output")
	baseURL := flag.String("base-url", config.DefaultBaseURL, "API base URL")
	params := paramList{}
	flag.Var(params, "param", "filter parameter key=value (repeatable)")
	flag.Parse()

	src := source.NewClient(*baseURL, *maxRows, 30*time.Second, zerolog.Nop())
	records, err := src.Fetch(context.Background(), *endpoint, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch %s: %v\n", *endpoint, err)
		os.Exit(1)
	}
	if len(records) > *maxRows {
		records = records[:*maxRows]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal records: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d records from %s to %s\n", len(records), *endpoint, *out)
}
