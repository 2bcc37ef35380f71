// Command profile fits a chain on synthetic policyholders and scores batches
// against it for a fixed duration, writing pprof profiles of the run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"slices"
	"strings"
	"time"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/pipeline"
	"github.com/ajitpratap0/vehicleinsurance/pkg/predict"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/testutil"
)

func main() {
	var (
		duration     = flag.Duration("duration", 30*time.Second, "Profiling duration")
		outputDir    = flag.String("output", "./profiles", "Output directory for profiles")
		profileTypes = flag.String("types", "cpu,memory", "Profile types (cpu,memory,block,mutex,goroutine,all)")
		trainRows    = flag.Int("train-rows", 5000, "Synthetic rows to fit the chain on")
		batchSize    = flag.Int("batch", 256, "Records per prediction batch")
		trees        = flag.Int("trees", 0, "Override the number of trees (0 keeps the configured value)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -types cpu -duration 30s\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -types all -batch 1024 -trees 50\n", os.Args[0])
	}
	flag.Parse()

	types := parseProfileTypes(*profileTypes)
	if err := os.MkdirAll(*outputDir, 0o755); err != nil { //nolint:gosec
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if slices.Contains(types, "block") {
		runtime.SetBlockProfileRate(1)
	}
	if slices.Contains(types, "mutex") {
		runtime.SetMutexProfileFraction(1)
	}

	cfg := config.Default()
	if *trees > 0 {
		cfg.Model.NEstimators = *trees
	}

	if slices.Contains(types, "cpu") {
		path := filepath.Join(*outputDir, "cpu.prof")
		f, err := os.Create(path) //nolint:gosec
		if err != nil {
			log.Fatalf("Failed to create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Failed to start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		fmt.Printf("CPU profiling enabled, writing to: %s\n", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	stats, err := runWorkload(ctx, cfg, *trainRows, *batchSize)
	if err != nil {
		log.Fatalf("Workload failed: %v", err)
	}
	fmt.Printf("Fit %d rows in %v\n", *trainRows, stats.fit)
	fmt.Printf("Scored %d records in %d batches (%.0f records/second)\n",
		stats.records, stats.batches, float64(stats.records)/stats.scoring.Seconds())

	if slices.Contains(types, "memory") {
		path := filepath.Join(*outputDir, "mem.prof")
		f, err := os.Create(path) //nolint:gosec
		if err != nil {
			log.Fatalf("Failed to create memory profile: %v", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("Failed to write memory profile: %v", err)
		}
		fmt.Printf("Memory profile written to: %s\n", path)
	}

	for _, name := range []string{"block", "mutex", "goroutine"} {
		if slices.Contains(types, name) {
			writeProfile(name, filepath.Join(*outputDir, name+".prof"))
		}
	}
}

type workloadStats struct {
	fit     time.Duration
	scoring time.Duration
	records int
	batches int
}

// runWorkload fits once, then scores batches until ctx expires.
func runWorkload(ctx context.Context, cfg *config.Config, trainRows, batchSize int) (workloadStats, error) {
	var stats workloadStats

	records := testutil.SyntheticRecords(trainRows, cfg.Model.RandomState)
	chain := pipeline.NewFromConfig(cfg)
	start := time.Now()
	if err := chain.Fit(table.FromRecords(cfg.Model.Features, records), testutil.Labels(records, cfg.Model.Target)); err != nil {
		return stats, err
	}
	stats.fit = time.Since(start)

	p := predict.New(cfg, chain)
	seed := cfg.Model.RandomState
	start = time.Now()
	for ctx.Err() == nil {
		seed++
		batch := testutil.SyntheticRecords(batchSize, seed)
		res, err := p.Predict(ctx, batch)
		if err != nil {
			return stats, err
		}
		stats.records += len(res.Predictions)
		stats.batches++
	}
	stats.scoring = time.Since(start)
	return stats, nil
}

func writeProfile(name, path string) {
	profile := pprof.Lookup(name)
	if profile == nil {
		fmt.Printf("Profile %s not found\n", name)
		return
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		log.Printf("Failed to create %s profile: %v", name, err)
		return
	}
	defer f.Close()
	if err := profile.WriteTo(f, 0); err != nil {
		log.Printf("Failed to write %s profile: %v", name, err)
		return
	}
	fmt.Printf("%s profile written to: %s\n", name, path)
}

func parseProfileTypes(s string) []string {
	if s == "all" {
		return []string{"cpu", "memory", "block", "mutex", "goroutine"}
	}
	var types []string
	for _, part := range strings.Split(s, ",") {
		switch part = strings.TrimSpace(part); part {
		case "mem":
			types = append(types, "memory")
		case "cpu", "memory", "block", "mutex", "goroutine":
			types = append(types, part)
		}
	}
	return types
}
