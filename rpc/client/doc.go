// Package client implements a batched key-value RPC client for batchkv.
// It encodes requests per lib/provider's wire format and exchanges them
// with a remote server over any transport.IRPCClientTransport.
//
// The package focuses on:
//   - Encoding batched count/exists/length/put/get/erase/listKeys/
//     listKeyValues/destroy requests addressed by database UUID
//   - Decoding the matching response back into a provider.Result
//   - Transparent reuse of the transport layer's connection pooling,
//     retries, and pipelining
//
// Key Components:
//
//   - Client: the batched request/response client, one per remote
//     provider (not per database - a single Client can address any
//     database that provider has registered).
//
//   - NewClient: factory function connecting a transport and returning a
//     ready Client.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	c, err := client.NewClient(config, tcp.NewTCPClientTransport())
//	if err != nil {
//	  log.Fatalf("failed to connect: %v", err)
//	}
//
//	if err := c.Put(dbID, 0, keys, values); err != nil {
//	  log.Fatalf("put failed: %v", err)
//	}
//	result, err := c.Get(dbID, 0, keys, client.DefaultResultBufferSize)
//
// Thread Safety:
//
//	Client is safe for concurrent use: every call encodes its own request
//	frame independently, and the underlying transport multiplexes
//	concurrent Send calls over its connection pool.
package client
