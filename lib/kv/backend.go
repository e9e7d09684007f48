package kv

import (
	"sync"
	"time"
)

// Backend is the capability set every storage engine implements (§4.3,
// §9). Rather than modeling variants through inheritance, a concrete
// engine is selected by a config "type" tag resolved through the
// package-level backend registry; any capability a particular engine
// doesn't support simply returns StatusOpUnsupported.
type Backend interface {
	// Name returns the registered type name of this backend instance.
	Name() string

	// SupportsMode reports whether every bit set in mode is honored by
	// this backend. The provider rejects requests whose modes are not a
	// subset of this mask before ever calling into the backend.
	SupportsMode(mode Mode) bool

	// Count returns the number of keys currently stored.
	Count() (uint64, Status)

	// Exists tests each key in keys/ksizes for presence, setting the
	// matching bit in flags. flags must have capacity for keys.Len().
	Exists(mode Mode, keys Run, flags BitField) Status

	// Length reports, for each key, the stored value's byte length, or
	// KeyNotFound if the key is absent. vsizes must have one slot per key.
	Length(mode Mode, keys Run, vsizes []uint64) Status

	// Put stores each (key_i, val_i) pair. ModeNewOnly/ModeExistOnly are
	// only enforced for single-key batches (§4.3, a documented weakness
	// carried over deliberately - see SPEC_FULL.md §9). ModeAppend
	// concatenates onto the existing value where supported.
	Put(mode Mode, keys Run, vals Run) Status

	// Get writes each key's value into the sink (packed or unpacked per
	// the caller's choice of sink type), which also records the actual or
	// sentinel length for each slot. ModeConsume additionally removes
	// matched keys once the read completes.
	Get(mode Mode, keys Run, sink ResultSink) Status

	// Erase removes each key; absence of a key is not an error.
	Erase(mode Mode, keys Run) Status

	// ListKeys lists stored keys in comparator order starting at the
	// first key greater than (or >= under ModeInclusive) fromKey, or at
	// the beginning when fromKey is empty. Unsupported on backends with
	// no intrinsic ordering (StatusOpUnsupported).
	ListKeys(mode Mode, fromKey []byte, filter Filter, sink ResultSink) Status

	// ListKeyValues behaves like ListKeys but additionally emits each
	// matched key's value.
	ListKeyValues(mode Mode, fromKey []byte, filter Filter, keySink ResultSink, valSink ResultSink) Status

	// Destroy clears all stored data, releasing backend-owned resources.
	Destroy() Status

	// Close releases any resources (file handles, background goroutines)
	// held by the backend without clearing its persisted data.
	Close() error
}

// ResultSink abstracts over PackedSink/UnpackedSink so Backend
// implementations can be written once and used with either output layout.
type ResultSink interface {
	Write(i int, elem []byte) uint64
	MarkNotFound(i int)
	MarkNoMoreKeys(i int)
	Len() int
}

// --------------------------------------------------------------------------
// Backend registry (§9: type tag -> constructor)
// --------------------------------------------------------------------------

// Factory constructs a Backend instance from its raw JSON configuration
// object (already validated to be a JSON object, but otherwise opaque to
// the registry).
type Factory func(config []byte) (Backend, Status)

var (
	backendRegistryMu sync.RWMutex
	backendRegistry   = map[string]Factory{}
)

// RegisterBackend makes a backend type available under name for use in a
// database's "type" config field. Intended to be called from package
// init() functions of engine sub-packages.
func RegisterBackend(name string, factory Factory) {
	backendRegistryMu.Lock()
	defer backendRegistryMu.Unlock()
	backendRegistry[name] = factory
}

// NewBackend constructs a backend of the named type from its config.
// Returns StatusInvalidBackend if no backend is registered under name.
func NewBackend(name string, config []byte) (Backend, Status) {
	backendRegistryMu.RLock()
	factory, ok := backendRegistry[name]
	backendRegistryMu.RUnlock()
	if !ok {
		return nil, StatusInvalidBackend
	}
	return factory(config)
}

// KnownBackends returns the names of every currently registered backend
// type, for diagnostics.
func KnownBackends() []string {
	backendRegistryMu.RLock()
	defer backendRegistryMu.RUnlock()
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	return names
}

// --------------------------------------------------------------------------
// Comparator registry (§9 "dlopen" replacement for ordered backends)
// --------------------------------------------------------------------------

// Comparator orders two keys the same way bytes.Compare does: negative if
// a < b, zero if equal, positive if a > b.
type Comparator func(a, b []byte) int

var (
	comparatorRegistryMu sync.RWMutex
	comparatorRegistry   = map[string]Comparator{}
)

// RegisterComparator makes a named key ordering available to the ordered
// backend's "comparator" config field.
func RegisterComparator(name string, cmp Comparator) {
	comparatorRegistryMu.Lock()
	defer comparatorRegistryMu.Unlock()
	comparatorRegistry[name] = cmp
}

// LookupComparator resolves a comparator previously registered under name.
func LookupComparator(name string) (Comparator, bool) {
	comparatorRegistryMu.RLock()
	defer comparatorRegistryMu.RUnlock()
	cmp, ok := comparatorRegistry[name]
	return cmp, ok
}

// --------------------------------------------------------------------------
// Wait-retry helper shared by backends that embed a *KeyWatcher (§4.6)
// --------------------------------------------------------------------------

// DefaultWaitTimeout bounds how long a ModeWait retry loop blocks when the
// caller supplies no explicit deadline, preventing a forgotten NOTIFY from
// hanging a connection forever. A var, not a const, so tests can shrink it.
var DefaultWaitTimeout = 30 * time.Second
