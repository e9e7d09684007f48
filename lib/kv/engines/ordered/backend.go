// Package ordered implements kv.Backend as an in-memory, lexicographically
// ordered set of keys, supporting range listing - the "OrderedSetBackend"
// of §4.4. It is grounded on the set.cpp reference backend (a std::set
// keyed by a pluggable comparator) and stores its keys in a
// github.com/google/btree tree instead of a red-black tree, protected by
// the same reader/writer-lock-with-WAIT-retry discipline described in
// §4.4/§4.6.
package ordered

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/batchkv/batchkv/lib/kv"
)

const (
	typeName     = "ordered"
	defaultDeg   = 32
	supportedAll = kv.ModeInclusive | kv.ModeAppend | kv.ModeConsume | kv.ModeWait |
		kv.ModeNotify | kv.ModeNewOnly | kv.ModeExistOnly | kv.ModeNoPrefix |
		kv.ModeIgnoreKeys | kv.ModeKeepLast | kv.ModeSuffix | kv.ModeFilterValue |
		kv.ModeLibFilter | kv.ModeNoRDMA | kv.ModeIgnoreDocs
)

func init() {
	kv.RegisterBackend(typeName, New)
}

// Config is the JSON configuration schema for the ordered backend (§6.1).
type Config struct {
	UseLock    *bool                  `json:"use_lock,omitempty"`
	Comparator string                 `json:"comparator,omitempty"`
	Allocators map[string]interface{} `json:"allocators,omitempty"`
}

type entry struct {
	key   []byte
	value []byte
}

type item struct {
	entry *entry
	cmp   kv.Comparator
}

func (it item) Less(than btree.Item) bool {
	other := than.(item)
	return it.cmp(it.entry.key, other.entry.key) < 0
}

type backend struct {
	mu      sync.RWMutex
	useLock bool
	cmp     kv.Comparator
	tree    *btree.BTree
	watcher *kv.KeyWatcher
	config  Config
}

// New constructs an ordered-set backend from its JSON config, resolving
// the comparator by name through the kv comparator registry.
func New(raw []byte) (kv.Backend, kv.Status) {
	cfg := Config{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, kv.StatusInvalidConfig
		}
	}
	useLock := true
	if cfg.UseLock != nil {
		useLock = *cfg.UseLock
	}
	comparatorName := cfg.Comparator
	if comparatorName == "" {
		comparatorName = "default"
	}
	cmp, ok := kv.LookupComparator(comparatorName)
	if !ok {
		return nil, kv.StatusInvalidConfig
	}
	return &backend{
		useLock: useLock,
		cmp:     cmp,
		tree:    btree.New(defaultDeg),
		watcher: kv.NewKeyWatcher(),
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
	return uint64(b.tree.Len()), kv.StatusOK
}

func (b *backend) find(key []byte) (*entry, bool) {
	probe := item{entry: &entry{key: key}, cmp: b.cmp}
	found := b.tree.Get(probe)
	if found == nil {
		return nil, false
	}
	return found.(item).entry, true
}

// --------------------------------------------------------------------------
// WAIT retry helper (§4.6): probe, and on miss, register interest, drop
// the lock around Wait, then re-acquire and re-probe.
// --------------------------------------------------------------------------

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
		b.runlock()
		result := b.watcher.Wait(key, deadline, nil)
		b.rlock()
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
	b.rlock()
	defer b.runlock()
	var toConsume [][]byte
	status := kv.StatusOK
	keys.Iter(func(i int, key []byte) bool {
		found, waitStatus := b.waitForKey(mode, string(key), func() bool {
			_, ok := b.find(key)
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
	if len(toConsume) > 0 {
		b.runlock()
		b.lock()
		for _, k := range toConsume {
			b.tree.Delete(item{entry: &entry{key: k}, cmp: b.cmp})
		}
		b.unlock()
		b.rlock()
	}
	return status
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
	status := kv.StatusOK
	keys.Iter(func(i int, key []byte) bool {
		found, waitStatus := b.waitForKey(mode, string(key), func() bool {
			_, ok := b.find(key)
			return ok
		})
		if !waitStatus.IsOK() {
			status = waitStatus
			return false
		}
		if !found {
			vsizes[i] = kv.KeyNotFound
		} else {
			vsizes[i] = 0 // key-set backend: values are always empty
			if mode.Has(kv.ModeConsume) {
				toConsume = append(toConsume, append([]byte(nil), key...))
			}
		}
		return true
	})
	if len(toConsume) > 0 {
		b.runlock()
		b.lock()
		for _, k := range toConsume {
			b.tree.Delete(item{entry: &entry{key: k}, cmp: b.cmp})
		}
		b.unlock()
		b.rlock()
	}
	return status
}

func (b *backend) Put(mode kv.Mode, keys kv.Run, vals kv.Run) kv.Status {
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	if vals.Total() != 0 {
		// this is a key-set: values must be empty (§4.4/§4.5 mirror
		// original_source/src/backends/set.cpp's `if(vals.size != 0)`).
		return kv.StatusInvalidArgs
	}

	n := keys.Len()
	if n == 1 {
		// NEW_ONLY/EXIST_ONLY are only enforced for single-key batches
		// (§4.3, a documented weakness we deliberately preserve).
		var offset uint64
		key := keys.At(offset, 0)
		_, exists := b.peekExists(key)
		if mode.Has(kv.ModeNewOnly) && exists {
			return kv.StatusKeyExists
		}
		if mode.Has(kv.ModeExistOnly) && !exists {
			return kv.StatusKeyNotFound
		}
	}

	b.lock()
	defer b.unlock()
	var notify [][]byte
	keys.Iter(func(i int, key []byte) bool {
		cp := append([]byte(nil), key...)
		b.tree.ReplaceOrInsert(item{entry: &entry{key: cp}, cmp: b.cmp})
		if mode.Has(kv.ModeNotify) {
			notify = append(notify, cp)
		}
		return true
	})
	for _, k := range notify {
		b.watcher.Notify(string(k))
	}
	return kv.StatusOK
}

func (b *backend) peekExists(key []byte) (*entry, bool) {
	b.rlock()
	defer b.runlock()
	return b.find(key)
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
	status := kv.StatusOK
	keys.Iter(func(i int, key []byte) bool {
		found, waitStatus := b.waitForKey(mode, string(key), func() bool {
			_, ok := b.find(key)
			return ok
		})
		if !waitStatus.IsOK() {
			status = waitStatus
			return false
		}
		if !found {
			sink.MarkNotFound(i)
		} else {
			sink.Write(i, nil) // key-set: value is always empty
			if mode.Has(kv.ModeConsume) {
				toConsume = append(toConsume, append([]byte(nil), key...))
			}
		}
		return true
	})
	if len(toConsume) > 0 {
		b.runlock()
		b.lock()
		for _, k := range toConsume {
			b.tree.Delete(item{entry: &entry{key: k}, cmp: b.cmp})
		}
		b.unlock()
		b.rlock()
	}
	return status
}

func (b *backend) Erase(mode kv.Mode, keys kv.Run) kv.Status {
	_ = mode
	if status := keys.Validate(false); !status.IsOK() {
		return status
	}
	b.lock()
	defer b.unlock()
	keys.Iter(func(i int, key []byte) bool {
		b.tree.Delete(item{entry: &entry{key: key}, cmp: b.cmp})
		return true
	})
	return kv.StatusOK
}

func (b *backend) Destroy() kv.Status {
	b.lock()
	defer b.unlock()
	b.tree = btree.New(defaultDeg)
	return kv.StatusOK
}

func (b *backend) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Listing (§4.4)
// --------------------------------------------------------------------------

func (b *backend) ListKeys(mode kv.Mode, fromKey []byte, filter kv.Filter, sink kv.ResultSink) kv.Status {
	b.rlock()
	defer b.runlock()

	max := sink.Len()
	i := 0
	b.ascend(mode, fromKey, func(key []byte) bool {
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
	b.rlock()
	defer b.runlock()

	max := keySink.Len()
	i := 0
	b.ascend(mode, fromKey, func(key []byte) bool {
		if i >= max {
			return false
		}
		if !filter.Check(key, nil) {
			return !filter.ShouldStop(key, nil)
		}
		isLast := mode.Has(kv.ModeKeepLast) && i+1 == max
		out := kv.KeyCopyPolicy(mode, key, filter.Size(), isLast)
		keySink.Write(i, out)
		valSink.Write(i, nil) // key-set: value is always empty
		i++
		return true
	})
	kv.FillRemaining(keySink, i)
	kv.FillRemaining(valSink, i)
	return kv.StatusOK
}

// ascend walks the tree in comparator order starting at fromKey (or the
// beginning, if empty), calling visit(key) for each stored key until
// visit returns false or the tree is exhausted.
func (b *backend) ascend(mode kv.Mode, fromKey []byte, visit func(key []byte) bool) {
	wrap := func(i btree.Item) bool {
		return visit(i.(item).entry.key)
	}
	if len(fromKey) == 0 {
		b.tree.Ascend(wrap)
		return
	}
	pivot := item{entry: &entry{key: fromKey}, cmp: b.cmp}
	if mode.Has(kv.ModeInclusive) {
		b.tree.AscendGreaterOrEqual(pivot, wrap)
	} else {
		// AscendGreaterOrEqual includes an exact match; to get strictly
		// greater-than semantics we skip a leading exact match ourselves.
		skippedPivot := false
		b.tree.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
			it := i.(item)
			if !skippedPivot {
				skippedPivot = true
				if b.cmp(it.entry.key, fromKey) == 0 {
					return true
				}
			}
			return visit(it.entry.key)
		})
	}
}
