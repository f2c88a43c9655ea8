// Package main provides a performance benchmarking tool for the barriernavi CLI.
// It measures lookup times against a running station API for each category,
// running each command multiple times, treating the first successful cached run as cold
// and averaging the rest as warm, generating CSV output for performance analysis.
//
// Prerequisites:
// - barriernavi binary installed and available in PATH
// - A station API reachable at the given URL (e.g. barriernavi serve --import-file stations.csv)
//
// Usage: go run benchmark/main.go [api-url]
//
//	api-url: API root of the station API (e.g. http://localhost:5000/api)
package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Category    string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	APIURL      string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Categories  []string
	Commands    []BenchmarkCommand
}

// BenchmarkCommand names one barriernavi invocation to time.
type BenchmarkCommand struct {
	Name string
	Args []string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [api-url]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		APIURL:      strings.TrimRight(os.Args[1], "/"),
		Timeout:     time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Categories:  []string{"body", "hearing", "vision"},
		Commands: []BenchmarkCommand{
			{Name: "stations", Args: []string{"stations", "--page-size", "100"}},
			{Name: "stations-tokyo", Args: []string{"stations", "--prefecture", "東京都", "--sort", "score-desc"}},
			{Name: "prefectures", Args: []string{"prefectures"}},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the cache using barriernavi cache clear
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("barriernavi", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the barriernavi binary and the API are available
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("barriernavi"); err != nil {
		return fmt.Errorf("barriernavi binary not found in PATH")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(config.APIURL + "/stations/prefectures")
	if err != nil {
		return fmt.Errorf("station API not reachable at %s: %w", config.APIURL, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("station API at %s returned %s", config.APIURL, resp.Status)
	}
	return nil
}

// runBenchmarks executes every command for every category
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d categories, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Categories), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, category := range config.Categories {
		fmt.Printf("Benchmarking %s\n", category)
		for _, command := range config.Commands {
			results = append(results, runBenchmarkSuite(config, category, command))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, category string, command BenchmarkCommand) BenchmarkResult {
	fmt.Printf("Running %s for %s\n", command.Name, category)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, category, command, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Category:    category,
		Command:     command.Name,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a barriernavi command multiple times with the given cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, category string, command BenchmarkCommand, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{}, command.Args...)
	args = append(args, "--api-url", config.APIURL, "--category", category, "--cache-backend", cacheBackend, "--output", "json")

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("barriernavi", args...)

		done := make(chan bool)
		var cmdErr error

		go func() {
			_, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
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
	filename := fmt.Sprintf("/tmp/barriernavi_benchmark_%s.csv", timestamp)

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

	if err := writer.Write([]string{"category", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Category, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range config.Commands {
		fmt.Printf("%s:\n", command.Name)
		for _, result := range results {
			if result.Command == command.Name {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Category, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
