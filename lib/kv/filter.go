package kv

import (
	"bytes"
	"sync"
)

// Filter is a predicate over (key, value) pairs used while listing keys.
// With no filter bytes it accepts everything; otherwise it matches a
// literal prefix (default) or suffix (ModeSuffix) of the key, and
// optionally of the value too (ModeFilterValue). ModeLibFilter swaps in a
// named predicate resolved from the package-level filter registry instead
// of doing a literal byte comparison.
type Filter struct {
	mode   Mode
	bytes  []byte
	custom FilterFunc
}

// FilterFunc is the signature of a pluggable filter predicate registered
// with RegisterFilter. It replaces what would otherwise be a dlopen'd or
// embedded-Lua predicate with an in-process registry of named callbacks.
type FilterFunc func(key, value []byte) bool

// NewFilter builds a Filter for the given mode and filter byte string. If
// mode has ModeLibFilter set, filterBytes is interpreted as the name of a
// predicate previously registered with RegisterFilter; an unknown name
// falls back to "always true" (callers should reject unknown names earlier,
// at config-validation time, rather than at filter-construction time).
func NewFilter(mode Mode, filterBytes []byte) Filter {
	f := Filter{mode: mode, bytes: filterBytes}
	if mode.Has(ModeLibFilter) {
		if fn, ok := lookupFilter(string(filterBytes)); ok {
			f.custom = fn
		} else {
			f.custom = func(key, value []byte) bool { return true }
		}
	}
	return f
}

// Size returns the number of filter bytes in play, used by KeyCopyPolicy
// to know how much of a matched prefix/suffix to strip.
func (f Filter) Size() int {
	return len(f.bytes)
}

// Check reports whether (key, value) passes the filter.
func (f Filter) Check(key, value []byte) bool {
	if f.custom != nil {
		return f.custom(key, value)
	}
	if len(f.bytes) == 0 {
		return true
	}
	if len(f.bytes) > len(key) {
		return false
	}
	var ok bool
	if f.mode.Has(ModeSuffix) {
		ok = bytes.Equal(key[len(key)-len(f.bytes):], f.bytes)
	} else {
		ok = bytes.Equal(key[:len(f.bytes)], f.bytes)
	}
	if ok && f.mode.Has(ModeFilterValue) {
		if len(f.bytes) > len(value) {
			ok = false
		} else if f.mode.Has(ModeSuffix) {
			ok = bytes.Equal(value[len(value)-len(f.bytes):], f.bytes)
		} else {
			ok = bytes.Equal(value[:len(f.bytes)], f.bytes)
		}
	}
	return ok
}

// ShouldStop reports whether iteration should terminate immediately after
// a rejected (key, value) pair rather than continuing to scan. Literal
// prefix/suffix matching over a lexicographically ordered key set can stop
// as soon as the prefix no longer matches and the key has moved past it;
// a pluggable filter makes no such guarantee and must keep scanning.
func (f Filter) ShouldStop(key, value []byte) bool {
	if f.custom != nil {
		return false
	}
	if len(f.bytes) == 0 || f.mode.Has(ModeSuffix) {
		return false
	}
	return len(key) >= len(f.bytes) && bytes.Compare(key[:len(f.bytes)], f.bytes) > 0
}

// --------------------------------------------------------------------------
// Filter registry (§9 "dlopen" replacement)
// --------------------------------------------------------------------------

var (
	filterRegistryMu sync.RWMutex
	filterRegistry   = map[string]FilterFunc{}
)

// RegisterFilter makes a named predicate available to ModeLibFilter
// listings. Intended to be called from package init() functions, the same
// way comparator and backend factories are registered.
func RegisterFilter(name string, fn FilterFunc) {
	filterRegistryMu.Lock()
	defer filterRegistryMu.Unlock()
	filterRegistry[name] = fn
}

func lookupFilter(name string) (FilterFunc, bool) {
	filterRegistryMu.RLock()
	defer filterRegistryMu.RUnlock()
	fn, ok := filterRegistry[name]
	return fn, ok
}
