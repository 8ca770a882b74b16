package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dorea/cmd/util"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/client"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for Dorea servers",
		Long:    "Runs parallel benchmarks against a server. Every worker borrows a connection from a pool of --pool-size connections.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

// perfCase is one benchmark. When seed is set, all keys are written before
// the timer starts.
type perfCase struct {
	name string
	seed bool
	op   func(c *client.Client, key string, i int) error
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func perfCases() []perfCase {
	small := value.String("test")
	large := value.Binary(make([]byte, perfLargeValueSizeKB*1024))

	return []perfCase{
		{"set", false, func(c *client.Client, key string, _ int) error {
			return c.Set(key, small, 0)
		}},
		{"set-large", false, func(c *client.Client, key string, _ int) error {
			return c.Set(key, large, 0)
		}},
		{"get", true, func(c *client.Client, key string, _ int) error {
			_, _, err := c.Get(key)
			return err
		}},
		{"get-not", false, func(c *client.Client, key string, _ int) error {
			_, _, err := c.Get(key + "-missing")
			return err
		}},
		{"delete", true, func(c *client.Client, key string, _ int) error {
			return c.Delete(key)
		}},
		{"incr", false, func(c *client.Client, key string, _ int) error {
			// incr on a missing key fails, so the counter is created first
			if _, err := c.Edit(key, "incr"); err != nil {
				return c.Set(key, value.Integer(1), 0)
			}
			return nil
		}},
		{"mixed", true, func(c *client.Client, key string, i int) error {
			var err error
			switch i % 4 {
			case 0:
				err = c.Set(key, small, 0)
			case 1:
				_, _, err = c.Get(key)
			case 2:
				err = c.Delete(key)
			case 3:
				_, err = c.Search(key)
			}
			return err
		}},
	}
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for Dorea servers")

	config := util.GetClientConfig()
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	ctx := context.Background()
	pool := client.NewPool(ctx, *config, s)
	defer pool.Close(ctx)

	// fail early if the server is unreachable
	if err := pool.Do(ctx, func(c *client.Client) error { return c.Ping() }); err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, pc := range perfCases() {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(pc.name) {
				return
			}
			runPerfCase(ctx, b, pool, pc)
		})
		results[pc.name] = result
		printResult(pc.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

func runPerfCase(ctx context.Context, b *testing.B, pool *client.Pool, pc perfCase) {
	// prepare keys
	getKey, iter := getKeys(pc.name)

	if pc.seed {
		iter(func(k string) {
			err := pool.Do(ctx, func(c *client.Client) error { return c.Set(k, value.String("test"), 0) })
			if err != nil {
				log.Printf("(%s) - error setting key: %v\n", pc.name, err)
			}
		})
	}

	// cleanup
	b.Cleanup(func() {
		iter(func(k string) {
			err := pool.Do(ctx, func(c *client.Client) error { return c.Delete(k) })
			if err != nil {
				log.Printf("(%s) - error deleting key: %v\n", pc.name, err)
			}
		})
	})

	b.SetParallelism(perfNumThreads)

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := getKey(counter)
			err := pool.Do(ctx, func(c *client.Client) error { return pc.op(c, key, counter) })
			if err != nil {
				log.Printf("(%s) - error: %v\n", pc.name, err)
			}
			counter++
		}
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "TimeoutSec", "RetryCount", "PoolSize",
		"ValueStyle", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.PoolSize),
			viper.GetString("value-style"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
