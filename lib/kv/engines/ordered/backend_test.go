package ordered

import (
	"testing"
	"time"

	"github.com/batchkv/batchkv/lib/kv"
	kvtesting "github.com/batchkv/batchkv/lib/kv/testing"
)

func TestOrderedBackend(t *testing.T) {
	kvtesting.RunBackendTests(t, "OrderedBackend", kvtesting.BackendFactory{
		ValueCapable: false,
		New: func() kv.Backend {
			b, status := New(nil)
			if !status.IsOK() {
				t.Fatalf("failed to construct backend: %v", status)
			}
			return b
		},
	})
}

func TestOrderedBackendUnknownComparator(t *testing.T) {
	_, status := New([]byte(`{"comparator": "does-not-exist"}`))
	if status != kv.StatusInvalidConfig {
		t.Fatalf("expected StatusInvalidConfig for an unknown comparator, got %v", status)
	}
}

func TestOrderedBackendName(t *testing.T) {
	b, status := New(nil)
	if !status.IsOK() {
		t.Fatalf("failed to construct backend: %v", status)
	}
	defer b.Close()
	if b.Name() != "ordered" {
		t.Errorf("expected name %q, got %q", "ordered", b.Name())
	}
	if !b.SupportsMode(kv.ModeWait | kv.ModeNotify) {
		t.Errorf("expected ordered backend to support WAIT/NOTIFY")
	}
}

// A WAIT on a key that never arrives must surface TIMEOUT rather than
// blocking forever.
func TestOrderedBackendWaitTimesOut(t *testing.T) {
	orig := kv.DefaultWaitTimeout
	kv.DefaultWaitTimeout = 20 * time.Millisecond
	defer func() { kv.DefaultWaitTimeout = orig }()

	b, status := New(nil)
	if !status.IsOK() {
		t.Fatalf("failed to construct backend: %v", status)
	}
	defer b.Close()

	key := [][]byte{[]byte("never-arrives")}
	var data []byte
	sizes := []uint64{uint64(len(key[0]))}
	for _, k := range key {
		data = append(data, k...)
	}
	keys := kv.Run{Data: data, Sizes: sizes}

	flags := kv.NewBitField(1)
	if status := b.Exists(kv.ModeWait, keys, flags); status != kv.StatusTimeout {
		t.Fatalf("expected Exists with ModeWait to time out, got %v", status)
	}

	vsizes := make([]uint64, 1)
	if status := b.Length(kv.ModeWait, keys, vsizes); status != kv.StatusTimeout {
		t.Fatalf("expected Length with ModeWait to time out, got %v", status)
	}

	sink := kv.UnpackedSink{Data: make([]byte, 64), Sizes: []uint64{64}}
	if status := b.Get(kv.ModeWait, keys, sink); status != kv.StatusTimeout {
		t.Fatalf("expected Get with ModeWait to time out, got %v", status)
	}
}
