// Package common provides core data structures and utilities shared across
// the batchkv server and its transports: wire framing, configuration
// structures, and leveled logging.
//
// The package focuses on:
//   - Frame protocol definition (request ID + length-prefixed content) for
//     carrying opaque provider request/response bodies over any transport
//   - Configuration structures for client and server components
//   - A phuslu/log-based leveled logger shared by every package
//
// Key Components:
//
//   - WriteFrame / ReadFrame: the length-prefixed framing every transport
//     uses to carry a request or response payload, independent of what's
//     inside it.
//
//   - ServerConfig: configuration for a server process - listen endpoint,
//     provider config path, timeouts, and log level.
//
//   - ClientConfig: configuration for client components, controlling
//     connection parameters, timeouts, and retry behavior.
//
//   - CreateLogger / InitLoggers: per-package leveled logger factory built
//     on phuslu/log.
package common
