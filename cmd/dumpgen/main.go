package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/pdmimport/internal/dumpgen"
	"github.com/okian/pdmimport/pkg/logger"
	"github.com/spf13/pflag"
)

const (
	defaultNumRecords = 2000
	defaultInterval   = 5 * time.Minute
)

func main() {
	var (
		output   = pflag.String("output", "dump.jsonl", "Dump file to write (truncated)")
		records  = pflag.Int("records", defaultNumRecords, "Number of records to generate")
		start    = pflag.String("start", "", "RFC 3339 timestamp of the first record (default: records*interval ago)")
		interval = pflag.Duration("interval", defaultInterval, "Spacing between records")
		noise    = pflag.Bool("noise", true, "Mix in categories the importer ignores")
	)
	pflag.Parse()

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	first := time.Now().Add(-time.Duration(*records) * *interval)
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			os.Stderr.WriteString("invalid --start: " + err.Error() + "\n")
			os.Exit(1)
		}
		first = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := dumpgen.Generate(ctx, &dumpgen.Config{
		OutputFile: *output,
		NumRecords: *records,
		Start:      first,
		Interval:   *interval,
		Ignored:    *noise,
	})
	if err != nil {
		logger.Get().Error(ctx, "generation failed", logger.Error(err))
		stop()
		os.Exit(1)
	}

	fmt.Printf("wrote %d records to %s (%s .. %s)\n", stats.Records, *output,
		stats.First.Format(time.RFC3339), stats.Last.Format(time.RFC3339))
	for c, n := range stats.ByCategory {
		fmt.Printf("  %-16s %d\n", c, n)
	}
}
