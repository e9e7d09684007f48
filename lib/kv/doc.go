// Package kv defines the database abstraction shared by every storage
// backend hosted by a provider: mode flags, the batch buffer protocol,
// the filter predicate, the key-watcher used for WAIT/NOTIFY, and the
// Backend capability interface itself.
//
// Concrete storage engines live in sub-packages under engines/ and
// register themselves with RegisterBackend so that a provider.Config's
// "type" field can select one by name without the core importing any
// engine-specific package directly.
package kv
