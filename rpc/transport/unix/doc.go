// Package unix implements a transport layer for batchkv's RPC system using
// Unix domain sockets. It provides optimized communication for processes
// running on the same machine.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting all core functionality like connection
// pooling, request routing, and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
//
// Unlike the tcp package, there is no socket tuning step here: Unix domain
// sockets have no TCP stack underneath, so UpgradeConnection is a no-op.
package unix
