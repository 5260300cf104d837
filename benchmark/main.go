// Package main benchmarks the defectset CLI against local clones of tracked projects.
// Each command runs several times without a cache and several times with the
// SQLite cache, treating the first cached run as cold and averaging the rest as warm.
// Results are written to a CSV file under /tmp.
//
// Prerequisites:
// - defectset binary installed and available in PATH
// - Project repositories cloned to the specified base directory
// - Network access to the issue tracker
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing one clone per project, named in lower case
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Project     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase    string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Projects    []string
	ColdStart   map[string]string
}

// commands lists the subcommands measured per project and whether they take the repository argument.
var commands = []struct {
	name     string
	withRepo bool
}{
	{"releases", false},
	{"tickets", true},
	{"build", true},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:    os.Args[1],
		Timeout:     15 * time.Minute,
		Workers:     8,
		NoCacheRuns: 2,
		CacheRuns:   3,
		Projects:    []string{"BOOKKEEPER", "SYNCOPE"},
		ColdStart: map[string]string{
			"BOOKKEEPER": "AVRO,OPENJPA,STORM,ZOOKEEPER,TAJO",
			"SYNCOPE":    "AVRO,OPENJPA,STORM,ZOOKEEPER,TAJO",
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	if output, err := exec.Command("defectset", "cache", "clear").CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

func repoDir(config BenchmarkConfig, project string) string {
	return filepath.Join(config.RepoBase, strings.ToLower(project))
}

// checkPrerequisites verifies that the defectset binary and project repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("defectset"); err != nil {
		return fmt.Errorf("defectset binary not found in PATH")
	}
	for _, project := range config.Projects {
		dir := repoDir(config, project)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("repository for %s not found at %s", project, dir)
		}
	}
	return nil
}

// runBenchmarks executes every command for every configured project
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d projects, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Projects), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, project := range config.Projects {
		fmt.Printf("Benchmarking %s\n", project)
		outDir, err := os.MkdirTemp("", "defectset-bench-"+strings.ToLower(project)+"-*")
		if err != nil {
			fmt.Printf("  Skipping %s: %v\n", project, err)
			continue
		}

		for _, c := range commands {
			args := []string{c.name, "-p", project, "--workers", fmt.Sprint(config.Workers)}
			if c.withRepo {
				args = append(args, repoDir(config, project))
			}
			if c.name == "build" {
				args = append(args, "--output-dir", outDir, "--cold-start-projects", config.ColdStart[project])
			}
			results = append(results, runBenchmarkSuite(config, project, c.name, args))
		}
		_ = os.RemoveAll(outDir)
	}
	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, project, command string, args []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, project)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "N/A"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Project:     project,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a defectset command multiple times with the given cache backend
// and returns the first successful time and the remaining ones.
func runBenchmark(config BenchmarkConfig, args []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args = append(append([]string{}, args...), "--cache-backend", cacheBackend, "--output", "text", "--emoji", "no")

	var times []float64
	for run := 1; run <= numRuns; run++ {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		err := exec.CommandContext(ctx, "defectset", args...).Run()
		elapsed := time.Since(start).Seconds()
		cancel()
		if err == nil {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/defectset_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"project", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Project, r.Command, r.NoCacheTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results per command
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, c := range commands {
		fmt.Printf("%s:\n", c.name)
		for _, r := range results {
			if r.Command == c.name {
				fmt.Printf("  %-12s: No-cache: %s, Cold: %s, Warm: %s\n", r.Project, r.NoCacheTime, r.ColdTime, r.WarmTime)
			}
		}
	}
}
