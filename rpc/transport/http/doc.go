// Package http implements an HTTP-based transport layer for batchkv's RPC
// system. It provides concrete implementations of the transport interfaces
// defined in the parent package, enabling communication between clients and
// servers over plain HTTP/1.1.
//
// The package focuses on:
//   - Client-side HTTP transport for sending RPC requests to servers
//   - Server-side HTTP transport for receiving and handling RPC requests
//   - Round-robin load balancing across multiple server endpoints
//
// Every request frame carries its own database ID (see lib/provider's
// header format), so there is no shard-routed path: this transport serves
// all traffic from a single path.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport, managing
//     connections to server endpoints, request routing, and retries. Uses
//     round-robin selection for load balancing across multiple endpoints.
//
//   - httpServerTransport: Implements IRPCServerTransport, setting up an
//     HTTP server that hands every request body straight to the registered
//     handler.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It
//	uses atomic operations for the round-robin counter.
package http
