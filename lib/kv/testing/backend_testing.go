// Package testing holds a shared conformance suite run against every
// concrete kv.Backend implementation, structured as one capability-gated
// subtest per behavior so a backend lacking a capability can skip cleanly
// instead of failing.
package testing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/batchkv/batchkv/lib/kv"
)

// BackendFactory creates a fresh, empty Backend instance. ValueCapable
// reports whether the backend stores arbitrary values (pebble) or is a
// pure key set that rejects non-empty values (ordered, unordered).
type BackendFactory struct {
	New          func() kv.Backend
	ValueCapable bool
}

func runAsRun(keys [][]byte) kv.Run {
	var data []byte
	sizes := make([]uint64, len(keys))
	for i, k := range keys {
		data = append(data, k...)
		sizes[i] = uint64(len(k))
	}
	return kv.Run{Data: data, Sizes: sizes}
}

// valsFor builds a Run of values matching keys: real bytes for a
// value-capable backend, all-empty for a key-set backend.
func valsFor(keys [][]byte, valueCapable bool) kv.Run {
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		if valueCapable {
			vals[i] = append([]byte("val-"), k...)
		} else {
			vals[i] = nil
		}
	}
	return runAsRun(vals)
}

func unpackedSink(n int, capPerSlot int) kv.UnpackedSink {
	sizes := make([]uint64, n)
	for i := range sizes {
		sizes[i] = uint64(capPerSlot)
	}
	return kv.UnpackedSink{Data: make([]byte, n*capPerSlot), Sizes: sizes}
}

// RunBackendTests runs the conformance suite for a Backend implementation.
func RunBackendTests(t *testing.T, name string, bf BackendFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("PutGetExists", func(t *testing.T) { testPutGetExists(t, bf) })
		t.Run("Length", func(t *testing.T) { testLength(t, bf) })
		t.Run("Erase", func(t *testing.T) { testErase(t, bf) })
		t.Run("ModeConsume", func(t *testing.T) { testModeConsume(t, bf) })
		t.Run("NewOnlyExistOnly", func(t *testing.T) { testNewOnlyExistOnly(t, bf) })
		t.Run("ListKeys", func(t *testing.T) { testListKeys(t, bf) })
		t.Run("Destroy", func(t *testing.T) { testDestroy(t, bf) })
		t.Run("ConcurrentUsage", func(t *testing.T) { testConcurrentUsage(t, bf) })
	})
}

func testPutGetExists(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	vals := valsFor(keys, bf.ValueCapable)

	if status := b.Put(0, runAsRun(keys), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	n, status := b.Count()
	if !status.IsOK() {
		t.Fatalf("Count failed: %v", status)
	}
	if n != uint64(len(keys)) {
		t.Errorf("expected count %d, got %d", len(keys), n)
	}

	allKeys := append(append([][]byte{}, keys...), []byte("missing"))
	flags := kv.NewBitField(len(allKeys))
	if status := b.Exists(0, runAsRun(allKeys), flags); !status.IsOK() {
		t.Fatalf("Exists failed: %v", status)
	}
	for i := range keys {
		if !flags.Get(i) {
			t.Errorf("expected key %s to exist", keys[i])
		}
	}
	if flags.Get(len(keys)) {
		t.Errorf("expected missing key to not exist")
	}

	sink := unpackedSink(len(keys), 64)
	if status := b.Get(0, runAsRun(keys), sink); !status.IsOK() {
		t.Fatalf("Get failed: %v", status)
	}
	var offset uint64
	for i, k := range keys {
		if sink.Sizes[i] == kv.KeyNotFound {
			t.Errorf("key %s unexpectedly not found", k)
			continue
		}
		if bf.ValueCapable {
			expected := fmt.Sprintf("val-%s", k)
			got := sink.Data[offset : offset+sink.Sizes[i]]
			if string(got) != expected {
				t.Errorf("key %s: expected value %q, got %q", k, expected, got)
			}
		}
		offset += sink.Sizes[i]
	}
}

func testLength(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	keys := [][]byte{[]byte("k1"), []byte("k2")}
	vals := valsFor(keys, bf.ValueCapable)
	if status := b.Put(0, runAsRun(keys), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	query := append(append([][]byte{}, keys...), []byte("absent"))
	sizes := make([]uint64, len(query))
	if status := b.Length(0, runAsRun(query), sizes); !status.IsOK() {
		t.Fatalf("Length failed: %v", status)
	}

	for i := range keys {
		if sizes[i] == kv.KeyNotFound {
			t.Errorf("expected key %s to have a length", keys[i])
		}
	}
	if sizes[len(keys)] != kv.KeyNotFound {
		t.Errorf("expected absent key to report KeyNotFound, got %d", sizes[len(keys)])
	}
}

func testErase(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	keys := [][]byte{[]byte("e1"), []byte("e2")}
	vals := valsFor(keys, bf.ValueCapable)
	if status := b.Put(0, runAsRun(keys), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	if status := b.Erase(0, runAsRun(keys[:1])); !status.IsOK() {
		t.Fatalf("Erase failed: %v", status)
	}

	flags := kv.NewBitField(len(keys))
	if status := b.Exists(0, runAsRun(keys), flags); !status.IsOK() {
		t.Fatalf("Exists failed: %v", status)
	}
	if flags.Get(0) {
		t.Errorf("expected %s to be erased", keys[0])
	}
	if !flags.Get(1) {
		t.Errorf("expected %s to still exist", keys[1])
	}

	// erasing an already-absent key is not an error
	if status := b.Erase(0, runAsRun(keys[:1])); !status.IsOK() {
		t.Errorf("expected re-erasing an absent key to succeed, got %v", status)
	}
}

func testModeConsume(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	keys := [][]byte{[]byte("c1")}
	vals := valsFor(keys, bf.ValueCapable)
	if status := b.Put(0, runAsRun(keys), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	sink := unpackedSink(1, 64)
	if status := b.Get(kv.ModeConsume, runAsRun(keys), sink); !status.IsOK() {
		t.Fatalf("Get with ModeConsume failed: %v", status)
	}

	flags := kv.NewBitField(1)
	if status := b.Exists(0, runAsRun(keys), flags); !status.IsOK() {
		t.Fatalf("Exists failed: %v", status)
	}
	if flags.Get(0) {
		t.Errorf("expected key to be consumed (erased) after ModeConsume Get")
	}
}

// testNewOnlyExistOnly exercises the documented single-key-only enforcement
// of ModeNewOnly/ModeExistOnly (SPEC_FULL.md §9): the check only applies
// when the batch carries exactly one key.
func testNewOnlyExistOnly(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	key := [][]byte{[]byte("single")}
	vals := valsFor(key, bf.ValueCapable)

	if status := b.Put(kv.ModeExistOnly, runAsRun(key), vals); status != kv.StatusKeyNotFound {
		t.Errorf("expected ModeExistOnly Put of an absent single key to fail with KeyNotFound, got %v", status)
	}

	if status := b.Put(0, runAsRun(key), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	if status := b.Put(kv.ModeNewOnly, runAsRun(key), vals); status != kv.StatusKeyExists {
		t.Errorf("expected ModeNewOnly Put of an existing single key to fail with KeyExists, got %v", status)
	}

	// multi-key batches bypass the check entirely (documented weakness).
	keys := [][]byte{[]byte("single"), []byte("other")}
	multiVals := valsFor(keys, bf.ValueCapable)
	if status := b.Put(kv.ModeNewOnly, runAsRun(keys), multiVals); !status.IsOK() {
		t.Errorf("expected ModeNewOnly to be bypassed for a multi-key batch, got %v", status)
	}
}

func testListKeys(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	keys := [][]byte{[]byte("m"), []byte("a"), []byte("z"), []byte("b")}
	vals := valsFor(keys, bf.ValueCapable)
	if status := b.Put(0, runAsRun(keys), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	sink := unpackedSink(10, 32)
	status := b.ListKeys(0, nil, kv.Filter{}, sink)
	if status == kv.StatusOpUnsupported {
		t.Skip("backend does not support ordered listing")
	}
	if !status.IsOK() {
		t.Fatalf("ListKeys failed: %v", status)
	}

	var got []string
	var offset uint64
	for i := 0; i < sink.Len(); i++ {
		if sink.Sizes[i] == kv.NoMoreKeys {
			break
		}
		got = append(got, string(sink.Data[offset:offset+sink.Sizes[i]]))
		offset += sink.Sizes[i]
	}
	if len(got) != len(keys) {
		t.Fatalf("expected %d keys listed, got %d (%v)", len(keys), len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Errorf("expected listing in ascending order, got %v", got)
			break
		}
	}
}

func testDestroy(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	keys := [][]byte{[]byte("d1"), []byte("d2")}
	vals := valsFor(keys, bf.ValueCapable)
	if status := b.Put(0, runAsRun(keys), vals); !status.IsOK() {
		t.Fatalf("Put failed: %v", status)
	}

	if status := b.Destroy(); !status.IsOK() {
		t.Fatalf("Destroy failed: %v", status)
	}

	n, status := b.Count()
	if !status.IsOK() {
		t.Fatalf("Count failed: %v", status)
	}
	if n != 0 {
		t.Errorf("expected 0 keys after Destroy, got %d", n)
	}
}

func testConcurrentUsage(t *testing.T, bf BackendFactory) {
	b := bf.New()
	defer b.Close()

	const numWorkers = 8
	const opsPerWorker = 200

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := [][]byte{[]byte(fmt.Sprintf("w%d-k%d", worker, i))}
				vals := valsFor(key, bf.ValueCapable)
				b.Put(0, runAsRun(key), vals)
				flags := kv.NewBitField(1)
				b.Exists(0, runAsRun(key), flags)
				b.Erase(0, runAsRun(key))
			}
		}(w)
	}
	wg.Wait()
}
