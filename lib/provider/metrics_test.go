package provider

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/batchkv/batchkv/lib/kv"
)

func TestRecordDispatchExposesCounterAndHistogram(t *testing.T) {
	recordDispatch("metrics-test-db", VerbPut, kv.StatusOK, 5*time.Millisecond)

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()

	if !strings.Contains(out, `batchkv_requests_total{db="metrics-test-db",verb="put"}`) {
		t.Errorf("expected a requests_total series for the dispatched verb, got:\n%s", out)
	}
	if !strings.Contains(out, `batchkv_request_duration_seconds`) {
		t.Errorf("expected a request duration histogram series, got:\n%s", out)
	}
}

func TestRecordDispatchTracksFailures(t *testing.T) {
	recordDispatch("metrics-test-db-failures", VerbGet, kv.StatusKeyNotFound, time.Millisecond)

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()

	if !strings.Contains(out, `batchkv_requests_failed_total{db="metrics-test-db-failures",verb="get",status="KEY_NOT_FOUND"}`) {
		t.Errorf("expected a failed-request counter for the non-OK status, got:\n%s", out)
	}
}

func TestRecordDispatchOmitsFailureCounterOnSuccess(t *testing.T) {
	dbName := "metrics-test-db-success-only"
	recordDispatch(dbName, VerbExists, kv.StatusOK, time.Millisecond)

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()

	if strings.Contains(out, `batchkv_requests_failed_total{db="`+dbName+`"`) {
		t.Errorf("did not expect a failed-request counter for a successful dispatch, got:\n%s", out)
	}
}

func TestRecordBatchSizeExposesHistogram(t *testing.T) {
	recordBatchSize("metrics-test-db", VerbPut, 42)

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()

	if !strings.Contains(out, `batchkv_batch_size{db="metrics-test-db",verb="put"}`) {
		t.Errorf("expected a batch size histogram series, got:\n%s", out)
	}
}

func TestRecordKeyCountExposesGauge(t *testing.T) {
	recordKeyCount("metrics-test-db", 7)

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()

	if !strings.Contains(out, `batchkv_keys{db="metrics-test-db"} 7`) {
		t.Errorf("expected the key count gauge to report 7, got:\n%s", out)
	}
}
