// Package transport defines the interfaces and abstractions for RPC
// communication between batchkv clients and a server process. It provides
// a common contract that all transport implementations must fulfill,
// enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Carrying opaque request/response frames without interpreting them
//   - Enabling multiple transport implementations (currently TCP, Unix
//     domain sockets, and HTTP)
//
// Key Components:
//
//   - IRPCClientTransport: interface for client-side transport
//     implementations that handle connection management and request
//     sending.
//
//   - IRPCServerTransport: interface for server-side transport
//     implementations that accept connections and route request frames to
//     a ServerHandleFunc.
//
//   - ServerHandleFunc: function type for request handling callbacks,
//     typically provider.Dispatch bound to a particular Provider.
package transport
