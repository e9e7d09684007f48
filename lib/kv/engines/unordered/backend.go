// Package unordered implements kv.Backend as a hash-based set of keys with
// no intrinsic ordering - the "UnorderedSetBackend" of §4.5. It is grounded
// on unordered_set.cpp (a std::unordered_set guarded by a single
// reader/writer lock) and keeps that shape: the keys live in a single
// puzpuzpuz/xsync MapOf, and every verb takes the backend's one
// reader/writer lock unless the use_lock config option turns it off. This
// backend carries no TTL/GC machinery - keys never expire -
// and unlike the ordered backend it supports neither ListKeys/
// ListKeyValues (StatusOpUnsupported: a hash set has no useful iteration
// order) nor WAIT/NOTIFY.
package unordered

import (
	"encoding/json"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/batchkv/batchkv/lib/kv"
)

const (
	typeName            = "unordered"
	defaultBucketCount  = 23
	supportedAll        = kv.ModeInclusive | kv.ModeAppend | kv.ModeConsume |
		kv.ModeNewOnly | kv.ModeExistOnly | kv.ModeNoPrefix | kv.ModeIgnoreKeys |
		kv.ModeKeepLast | kv.ModeSuffix | kv.ModeFilterValue | kv.ModeLibFilter |
		kv.ModeNoRDMA | kv.ModeIgnoreDocs
)

func init() {
	kv.RegisterBackend(typeName, New)
}

// Config is the JSON configuration schema for the unordered backend (§6.1).
type Config struct {
	UseLock            *bool                  `json:"use_lock,omitempty"`
	InitialBucketCount int                    `json:"initial_bucket_count,omitempty"`
	Allocators         map[string]interface{} `json:"allocators,omitempty"`
}

type backend struct {
	mu      sync.RWMutex
	useLock bool
	data    *xsync.MapOf[string, struct{}]
	config  Config
}

// New constructs an unordered-set backend from its JSON config.
func New(raw []byte) (kv.Backend, kv.Status) {
	cfg := Config{InitialBucketCount: defaultBucketCount}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, kv.StatusInvalidConfig
		}
	}
	if cfg.InitialBucketCount <= 0 {
		cfg.InitialBucketCount = defaultBucketCount
	}
	useLock := true
	if cfg.UseLock != nil {
		useLock = *cfg.UseLock
	}
	return &backend{
		useLock: useLock,
		data:    xsync.NewMapOf[string, struct{}](),
		config:  cfg,
	}, kv.StatusOK
}

func (b *backend) Name() string { return typeName }

func (b *backend) SupportsMode(mode kv.Mode) bool {
	return mode.IsSubsetOf(supportedAll)
}

func (b *backend) rlock() {
	if b.useLock {
		b.mu.RLock()
	}
}
func (b *backend) runlock() {
	if b.useLock {
		b.mu.RUnlock()
	}
}
func (b *backend) lock() {
	if b.useLock {
		b.mu.Lock()
	}
}
func (b *backend) unlock() {
	if b.useLock {
		b.mu.Unlock()
	}
}

func (b *backend) Count() (uint64, kv.Status) {
	b.rlock()
	defer b.runlock()
	return uint64(b.data.Size()), kv.StatusOK
}

func (b *backend) Exists(mode kv.Mode, keys kv.Run, flags kv.BitField) kv.Status {
	_ = mode
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if keys.Len() > flags.N {
		return kv.StatusInvalidArgs
	}
	b.rlock()
	defer b.runlock()
	var toConsume [][]byte
	keys.Iter(func(i int, key []byte) bool {
		_, found := b.data.Load(string(key))
		flags.Set(i, found)
		if found && mode.Has(kv.ModeConsume) {
			toConsume = append(toConsume, key)
		}
		return true
	})
	b.consumeLocked(toConsume)
	return kv.StatusOK
}

func (b *backend) Length(mode kv.Mode, keys kv.Run, vsizes []uint64) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if keys.Len() != len(vsizes) {
		return kv.StatusInvalidArgs
	}
	b.rlock()
	defer b.runlock()
	var toConsume [][]byte
	keys.Iter(func(i int, key []byte) bool {
		if _, found := b.data.Load(string(key)); found {
			vsizes[i] = 0 // key-set backend: values are always empty
			if mode.Has(kv.ModeConsume) {
				toConsume = append(toConsume, key)
			}
		} else {
			vsizes[i] = kv.KeyNotFound
		}
		return true
	})
	b.consumeLocked(toConsume)
	return kv.StatusOK
}

func (b *backend) Put(mode kv.Mode, keys kv.Run, vals kv.Run) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if vals.Total() != 0 {
		// this is a key-set: values must be empty (mirrors
		// original_source/src/backends/unordered_set.cpp's total_vsizes check).
		return kv.StatusInvalidArgs
	}

	n := keys.Len()
	if n == 1 {
		// NEW_ONLY/EXIST_ONLY are only enforced for single-key batches
		// (§4.3, a documented weakness we deliberately preserve).
		var offset uint64
		key := keys.At(offset, 0)
		b.rlock()
		_, exists := b.data.Load(string(key))
		b.runlock()
		if mode.Has(kv.ModeNewOnly) && exists {
			return kv.StatusKeyExists
		}
		if mode.Has(kv.ModeExistOnly) && !exists {
			return kv.StatusKeyNotFound
		}
	}

	b.lock()
	defer b.unlock()
	keys.Iter(func(i int, key []byte) bool {
		b.data.Store(string(key), struct{}{})
		return true
	})
	return kv.StatusOK
}

func (b *backend) Get(mode kv.Mode, keys kv.Run, sink kv.ResultSink) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if keys.Len() != sink.Len() {
		return kv.StatusInvalidArgs
	}
	b.rlock()
	defer b.runlock()
	var toConsume [][]byte
	keys.Iter(func(i int, key []byte) bool {
		if _, found := b.data.Load(string(key)); found {
			sink.Write(i, nil) // key-set: value is always empty
			if mode.Has(kv.ModeConsume) {
				toConsume = append(toConsume, key)
			}
		} else {
			sink.MarkNotFound(i)
		}
		return true
	})
	b.consumeLocked(toConsume)
	return kv.StatusOK
}

func (b *backend) Erase(mode kv.Mode, keys kv.Run) kv.Status {
	_ = mode
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	b.lock()
	defer b.unlock()
	keys.Iter(func(i int, key []byte) bool {
		b.data.Delete(string(key))
		return true
	})
	return kv.StatusOK
}

// consumeLocked deletes the given keys (copying them out from under the
// caller's read lock first, then promoting to a write lock), mirroring the
// CONSUME-triggers-erase pattern of the reference get()/exists()/length().
func (b *backend) consumeLocked(keys [][]byte) {
	if len(keys) == 0 {
		return
	}
	copies := make([]string, len(keys))
	for i, k := range keys {
		copies[i] = string(k)
	}
	b.runlock()
	b.lock()
	for _, k := range copies {
		b.data.Delete(k)
	}
	b.unlock()
	b.rlock()
}

func (b *backend) ListKeys(mode kv.Mode, fromKey []byte, filter kv.Filter, sink kv.ResultSink) kv.Status {
	_, _, _ = mode, fromKey, filter
	_ = sink
	return kv.StatusOpUnsupported
}

func (b *backend) ListKeyValues(mode kv.Mode, fromKey []byte, filter kv.Filter, keySink kv.ResultSink, valSink kv.ResultSink) kv.Status {
	_, _, _ = mode, fromKey, filter
	_, _ = keySink, valSink
	return kv.StatusOpUnsupported
}

func (b *backend) Destroy() kv.Status {
	b.lock()
	defer b.unlock()
	b.data = xsync.NewMapOf[string, struct{}]()
	return kv.StatusOK
}

func (b *backend) Close() error {
	return nil
}
