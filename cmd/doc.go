// Package cmd implements the command-line interface for batchkv, a batched
// networked key-value store. It provides a hierarchical command structure
// for running the server and for interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Batched key-value operations against a running server (put, get, erase, etc.)
//   - admin: Offline management of a provider's JSON configuration file
//   - serve: Starting and configuring the batchkv server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See batchkv -help for a list of all commands.
package cmd
