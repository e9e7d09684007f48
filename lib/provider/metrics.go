package provider

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/batchkv/batchkv/lib/kv"
)

// recordDispatch updates the per-verb operation counter, error counter, and
// latency histogram for a single Dispatch call. Metric names are built from
// the verb and database name so a single process hosting many databases
// still exposes per-database breakdowns on its /metrics endpoint.
func recordDispatch(dbName string, verb Verb, status kv.Status, elapsed time.Duration) {
	labels := fmt.Sprintf(`db=%q,verb=%q`, dbName, verb.String())
	metrics.GetOrCreateCounter(fmt.Sprintf(`batchkv_requests_total{%s}`, labels)).Inc()
	if !status.IsOK() {
		metrics.GetOrCreateCounter(fmt.Sprintf(`batchkv_requests_failed_total{%s,status=%q}`, labels, status.String())).Inc()
	}
	metrics.GetOrCreateHistogram(fmt.Sprintf(`batchkv_request_duration_seconds{%s}`, labels)).Update(elapsed.Seconds())
}

// recordBatchSize tracks how many keys a single request carried, giving
// operators visibility into whether clients are actually batching.
func recordBatchSize(dbName string, verb Verb, n int) {
	labels := fmt.Sprintf(`db=%q,verb=%q`, dbName, verb.String())
	metrics.GetOrCreateHistogram(fmt.Sprintf(`batchkv_batch_size{%s}`, labels)).Update(float64(n))
}

// recordKeyCount publishes a database's current key count as a gauge,
// refreshed whenever Count() is dispatched against it.
func recordKeyCount(dbName string, n uint64) {
	metrics.GetOrCreateFloatCounter(fmt.Sprintf(`batchkv_keys{db=%q}`, dbName)).Set(float64(n))
}
