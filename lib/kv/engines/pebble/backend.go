// Package pebble implements kv.Backend as an embedded, on-disk key-value
// store backed by github.com/cockroachdb/pebble - a [NEW] backend beyond
// what the distilled specification names, added because the original
// reference implementation's "map" and "set" families both have an
// in-memory-only counterpart, and an LSM-backed engine is the natural third
// option the rest of the example corpus (eigerco-strawberry's PebbleStore)
// already wires up. Unlike the ordered/unordered backends it persists
// arbitrary non-empty values and survives a process restart; it supports
// ordered listing the same way the ordered backend does, using Pebble's
// native iterator instead of a btree.
package pebble

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/batchkv/batchkv/lib/kv"
)

const (
	typeName     = "pebble"
	supportedAll = kv.ModeInclusive | kv.ModeAppend | kv.ModeConsume | kv.ModeWait |
		kv.ModeNotify | kv.ModeNewOnly | kv.ModeExistOnly | kv.ModeNoPrefix |
		kv.ModeIgnoreKeys | kv.ModeKeepLast | kv.ModeSuffix | kv.ModeFilterValue |
		kv.ModeLibFilter | kv.ModeNoRDMA | kv.ModeIgnoreDocs
)

func init() {
	kv.RegisterBackend(typeName, New)
}

// Config is the JSON configuration schema for the pebble backend (§6.1).
type Config struct {
	Path         string `json:"path"`
	CacheSizeMB  int    `json:"cache_size_mb,omitempty"`
	MemTableMB   int    `json:"memtable_size_mb,omitempty"`
}

type backend struct {
	mu      sync.RWMutex
	db      *pebble.DB
	watcher *kv.KeyWatcher
	path    string
}

// New constructs a pebble-backed backend from its JSON config. Path is
// required: unlike the in-memory engines, this backend always persists to
// disk.
func New(raw []byte) (kv.Backend, kv.Status) {
	cfg := Config{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, kv.StatusInvalidConfig
		}
	}
	if cfg.Path == "" {
		return nil, kv.StatusInvalidConfig
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, kv.StatusIO
	}

	cacheMB := cfg.CacheSizeMB
	if cacheMB <= 0 {
		cacheMB = 64
	}
	memtableMB := cfg.MemTableMB
	if memtableMB <= 0 {
		memtableMB = 32
	}
	opts := &pebble.Options{
		Cache:        pebble.NewCache(int64(cacheMB) * 1024 * 1024),
		MemTableSize: memtableMB * 1024 * 1024,
	}
	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		return nil, kv.StatusIO
	}
	return &backend{db: db, watcher: kv.NewKeyWatcher(), path: cfg.Path}, kv.StatusOK
}

func (b *backend) Name() string { return typeName }

func (b *backend) SupportsMode(mode kv.Mode) bool {
	return mode.IsSubsetOf(supportedAll)
}

func (b *backend) Count() (uint64, kv.Status) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	iter := b.db.NewIter(nil)
	defer iter.Close()
	var n uint64
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, kv.StatusOK
}

func (b *backend) get(key []byte) ([]byte, bool) {
	val, closer, err := b.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	out := append([]byte(nil), val...)
	closer.Close()
	return out, true
}

func (b *backend) waitForKey(mode kv.Mode, key string, probe func() bool) (bool, kv.Status) {
	if probe() {
		return true, kv.StatusOK
	}
	if !mode.Has(kv.ModeWait) {
		return false, kv.StatusOK
	}
	deadline := time.Now().Add(kv.DefaultWaitTimeout)
	for {
		b.watcher.AddKey(key)
		b.mu.RUnlock()
		result := b.watcher.Wait(key, deadline, nil)
		b.mu.RLock()
		if probe() {
			return true, kv.StatusOK
		}
		if result == kv.TimedOut {
			return false, kv.StatusTimeout
		}
	}
}

func (b *backend) Exists(mode kv.Mode, keys kv.Run, flags kv.BitField) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if keys.Len() > flags.N {
		return kv.StatusInvalidArgs
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var toConsume [][]byte
	status := kv.StatusOK
	keys.Iter(func(i int, key []byte) bool {
		found, waitStatus := b.waitForKey(mode, string(key), func() bool {
			_, ok := b.get(key)
			return ok
		})
		if !waitStatus.IsOK() {
			status = waitStatus
			return false
		}
		flags.Set(i, found)
		if found && mode.Has(kv.ModeConsume) {
			toConsume = append(toConsume, append([]byte(nil), key...))
		}
		return true
	})
	b.eraseLocked(toConsume)
	return status
}

func (b *backend) Length(mode kv.Mode, keys kv.Run, vsizes []uint64) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if keys.Len() != len(vsizes) {
		return kv.StatusInvalidArgs
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var toConsume [][]byte
	status := kv.StatusOK
	keys.Iter(func(i int, key []byte) bool {
		var val []byte
		found, waitStatus := b.waitForKey(mode, string(key), func() bool {
			v, ok := b.get(key)
			val = v
			return ok
		})
		if !waitStatus.IsOK() {
			status = waitStatus
			return false
		}
		if !found {
			vsizes[i] = kv.KeyNotFound
			return true
		}
		vsizes[i] = uint64(len(val))
		if mode.Has(kv.ModeConsume) {
			toConsume = append(toConsume, append([]byte(nil), key...))
		}
		return true
	})
	b.eraseLocked(toConsume)
	return status
}

func (b *backend) Put(mode kv.Mode, keys kv.Run, vals kv.Run) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if status := vals.Validate(true); !status.IsOK() {
		return status
	}
	if keys.Len() != vals.Len() {
		return kv.StatusInvalidArgs
	}

	if keys.Len() == 1 {
		// NEW_ONLY/EXIST_ONLY are only enforced for single-key batches
		// (§4.3, a documented weakness we deliberately preserve).
		var offset uint64
		key := keys.At(offset, 0)
		b.mu.RLock()
		_, exists := b.get(key)
		b.mu.RUnlock()
		if mode.Has(kv.ModeNewOnly) && exists {
			return kv.StatusKeyExists
		}
		if mode.Has(kv.ModeExistOnly) && !exists {
			return kv.StatusKeyNotFound
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var keyOffset, valOffset uint64
	var notify [][]byte
	batch := b.db.NewBatch()
	for i := 0; i < keys.Len(); i++ {
		key := keys.At(keyOffset, i)
		keyOffset += keys.Sizes[i]
		val := vals.At(valOffset, i)
		valOffset += vals.Sizes[i]

		toWrite := val
		if mode.Has(kv.ModeAppend) {
			if existing, ok := b.get(key); ok {
				toWrite = append(append([]byte(nil), existing...), val...)
			}
		}
		if err := batch.Set(key, toWrite, nil); err != nil {
			batch.Close()
			return kv.StatusIO
		}
		if mode.Has(kv.ModeNotify) {
			notify = append(notify, append([]byte(nil), key...))
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return kv.StatusIO
	}
	for _, k := range notify {
		b.watcher.Notify(string(k))
	}
	return kv.StatusOK
}

func (b *backend) Get(mode kv.Mode, keys kv.Run, sink kv.ResultSink) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if keys.Len() != sink.Len() {
		return kv.StatusInvalidArgs
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var toConsume [][]byte
	status := kv.StatusOK
	keys.Iter(func(i int, key []byte) bool {
		var val []byte
		found, waitStatus := b.waitForKey(mode, string(key), func() bool {
			v, ok := b.get(key)
			val = v
			return ok
		})
		if !waitStatus.IsOK() {
			status = waitStatus
			return false
		}
		if !found {
			sink.MarkNotFound(i)
		} else {
			sink.Write(i, val)
			if mode.Has(kv.ModeConsume) {
				toConsume = append(toConsume, append([]byte(nil), key...))
			}
		}
		return true
	})
	b.eraseLocked(toConsume)
	return status
}

func (b *backend) Erase(mode kv.Mode, keys kv.Run) kv.Status {
	_ = mode
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eraseBatch(keys)
}

func (b *backend) eraseBatch(keys kv.Run) kv.Status {
	batch := b.db.NewBatch()
	keys.Iter(func(i int, key []byte) bool {
		batch.Delete(key, nil)
		return true
	})
	if err := batch.Commit(pebble.Sync); err != nil {
		return kv.StatusIO
	}
	return kv.StatusOK
}

// eraseLocked deletes the given keys, dropping and reacquiring the read
// lock held by the caller (the CONSUME-after-read pattern shared with the
// ordered/unordered backends).
func (b *backend) eraseLocked(keys [][]byte) {
	if len(keys) == 0 {
		return
	}
	b.mu.RUnlock()
	b.mu.Lock()
	batch := b.db.NewBatch()
	for _, k := range keys {
		batch.Delete(k, nil)
	}
	batch.Commit(pebble.Sync)
	b.mu.Unlock()
	b.mu.RLock()
}

func (b *backend) ListKeys(mode kv.Mode, fromKey []byte, filter kv.Filter, sink kv.ResultSink) kv.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	max := sink.Len()
	i := 0
	b.ascend(mode, fromKey, func(key, _ []byte) bool {
		if i >= max {
			return false
		}
		if !filter.Check(key, nil) {
			return !filter.ShouldStop(key, nil)
		}
		isLast := mode.Has(kv.ModeKeepLast) && i+1 == max
		out := kv.KeyCopyPolicy(mode, key, filter.Size(), isLast)
		sink.Write(i, out)
		i++
		return true
	})
	kv.FillRemaining(sink, i)
	return kv.StatusOK
}

func (b *backend) ListKeyValues(mode kv.Mode, fromKey []byte, filter kv.Filter, keySink kv.ResultSink, valSink kv.ResultSink) kv.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	max := keySink.Len()
	i := 0
	b.ascend(mode, fromKey, func(key, val []byte) bool {
		if i >= max {
			return false
		}
		if !filter.Check(key, val) {
			return !filter.ShouldStop(key, val)
		}
		isLast := mode.Has(kv.ModeKeepLast) && i+1 == max
		out := kv.KeyCopyPolicy(mode, key, filter.Size(), isLast)
		keySink.Write(i, out)
		if mode.Has(kv.ModeIgnoreDocs) {
			valSink.Write(i, nil)
		} else {
			valSink.Write(i, val)
		}
		i++
		return true
	})
	kv.FillRemaining(keySink, i)
	kv.FillRemaining(valSink, i)
	return kv.StatusOK
}

// ascend walks the store in key order starting at fromKey (or the
// beginning, if empty), calling visit(key, value) for each stored entry
// until visit returns false or the iterator is exhausted.
func (b *backend) ascend(mode kv.Mode, fromKey []byte, visit func(key, val []byte) bool) {
	iter := b.db.NewIter(nil)
	defer iter.Close()

	if len(fromKey) == 0 {
		if !iter.First() {
			return
		}
	} else {
		if !iter.SeekGE(fromKey) {
			return
		}
		if !mode.Has(kv.ModeInclusive) && bytes.Equal(iter.Key(), fromKey) {
			if !iter.Next() {
				return
			}
		}
	}
	for ; iter.Valid(); iter.Next() {
		if !visit(iter.Key(), iter.Value()) {
			return
		}
	}
}

func (b *backend) Destroy() kv.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	iter := b.db.NewIter(nil)
	batch := b.db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		batch.Delete(iter.Key(), nil)
	}
	iter.Close()
	if err := batch.Commit(pebble.Sync); err != nil {
		return kv.StatusIO
	}
	return kv.StatusOK
}

func (b *backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}
