// Package tcp implements TCP socket-based transport for batchkv's RPC
// system. It provides concrete implementations of the base package's
// connector interfaces for TCP connections, including socket tuning
// (Nagle, buffer sizes, keepalive, linger) from common.TCPTuning.
//
// This package builds on the base package's transport functionality,
// inheriting its connection pooling, buffer reuse, and request/response
// pipelining. See the base package documentation for details on the
// underlying transport mechanics.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector,
//     wrapping its net.Listener so every accepted connection gets the same
//     tuning a dialed client connection gets.
package tcp
