// Package server implements the RPC server side of batchkv: a thin wrapper
// that binds a lib/provider.Provider to an RPC transport.
//
// There is a single dispatch path, not a per-shard adapter layer: every
// request frame carries its own database ID (see lib/provider's wire
// format), so one provider.Dispatch call serves every database the
// provider has registered, local or otherwise.
//
// Key Components:
//
//   - rpcServer: binds a *provider.Provider to a transport.IRPCServerTransport,
//     registering provider.Dispatch as the transport's request handler.
//
//   - NewRPCServer: factory function creating a configured server.
//
// Usage Example:
//
//	p, status := provider.New(cfg)
//	if !status.IsOK() {
//		log.Fatalf("failed to create provider: %s", status)
//	}
//
//	s := server.NewRPCServer(config, p, tcp.NewTCPServerTransport())
//	if err := s.Serve(); err != nil {
//		log.Fatalf("server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server is safe for concurrent request handling: every request is
//	dispatched independently, and provider.Provider serializes its own
//	registry mutations internally. Serve is not safe to call more than
//	once.
package server
