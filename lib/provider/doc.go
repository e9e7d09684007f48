// Package provider implements the database registry and batch request
// decoder (§2, §4.7 of the design document): the process-wide map from a
// database UUID to its backend instance, and the (header, body) -> kv.Run
// decoding that turns a flat wire buffer into the views a kv.Backend verb
// consumes.
//
// A Provider is constructed from a Config describing each database's name,
// backend type, and JSON configuration; Dispatch is the single entry point
// used by both the in-process call path and the TCP transport.
package provider
