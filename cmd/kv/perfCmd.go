package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batchkv/batchkv/cmd/util"
	"github.com/batchkv/batchkv/rpc/client"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for batchkv servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfBatchSize  = 1
	perfSkip       = make([]string, 0)
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "batch-size"
	perfTestCmd.Flags().Int(key, 1, util.WrapString("How many keys to batch into each request"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfBatchSize = viper.GetInt("batch-size")
	if perfBatchSize < 1 {
		perfBatchSize = 1
	}
	if skip := viper.GetString("skip"); skip != "" {
		perfSkip = strings.Split(skip, ",")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for batchkv servers")
	fmt.Println()
	fmt.Printf("Threads: %d, Batch Size: %d\n", perfNumThreads, perfBatchSize)
	fmt.Println()
	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)

	putResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("put") {
			return
		}
		keys, values := perfBatch("put")
		b.Cleanup(func() {
			if err := rpcClient.Erase(dbID, 0, keys); err != nil {
				log.Printf("(put) - error erasing keys: %v\n", err)
			}
		})
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := rpcClient.Put(dbID, 0, keys, values); err != nil {
					log.Printf("(put) - error: %v\n", err)
				}
			}
		})
	})
	results["put"] = putResult
	printResult("put", putResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}
		keys, values := perfBatch("get")
		if err := rpcClient.Put(dbID, 0, keys, values); err != nil {
			log.Printf("(get) - error seeding keys: %v\n", err)
		}
		b.Cleanup(func() {
			if err := rpcClient.Erase(dbID, 0, keys); err != nil {
				log.Printf("(get) - error erasing keys: %v\n", err)
			}
		})
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.Get(dbID, 0, keys, client.DefaultResultBufferSize); err != nil {
					log.Printf("(get) - error: %v\n", err)
				}
			}
		})
	})
	results["get"] = getResult
	printResult("get", getResult)

	existsResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("exists") {
			return
		}
		keys, values := perfBatch("exists")
		if err := rpcClient.Put(dbID, 0, keys, values); err != nil {
			log.Printf("(exists) - error seeding keys: %v\n", err)
		}
		b.Cleanup(func() {
			if err := rpcClient.Erase(dbID, 0, keys); err != nil {
				log.Printf("(exists) - error erasing keys: %v\n", err)
			}
		})
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.Exists(dbID, 0, keys); err != nil {
					log.Printf("(exists) - error: %v\n", err)
				}
			}
		})
	})
	results["exists"] = existsResult
	printResult("exists", existsResult)

	eraseResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("erase") {
			return
		}
		keys, values := perfBatch("erase")
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := rpcClient.Put(dbID, 0, keys, values); err != nil {
					log.Printf("(erase) - error re-seeding: %v\n", err)
				}
				if err := rpcClient.Erase(dbID, 0, keys); err != nil {
					log.Printf("(erase) - error: %v\n", err)
				}
			}
		})
	})
	results["erase"] = eraseResult
	printResult("erase", eraseResult)

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// perfBatch builds a batch of perfBatchSize distinct keys (drawn from a pool
// of perfKeySpread candidates, wrapping around) tagged with prefix, plus a
// matching slice of values.
func perfBatch(prefix string) (keys, values [][]byte) {
	keys = make([][]byte, perfBatchSize)
	values = make([][]byte, perfBatchSize)
	for i := 0; i < perfBatchSize; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i%perfKeySpread))
		values[i] = []byte("test")
	}
	return keys, values
}

func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}
	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "Threads", "BatchSize", "KeysCount"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "false"
		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfBatchSize),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
