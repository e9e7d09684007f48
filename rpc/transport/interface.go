package transport

import (
	"github.com/batchkv/batchkv/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one decoded request frame and returns the
// response frame to write back. It is called by a server transport layer
// once per request; the transport owns request/response framing, this
// function owns what's inside it (provider.Dispatch, typically).
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC server transport layer.
type IRPCServerTransport interface {
	// RegisterHandler registers the function called for every request
	// frame this transport receives.
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks, serving requests
	// until the listener is closed or an unrecoverable error occurs.
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration.
	Connect(config common.ClientConfig) error
	// Send sends a request frame and returns the response frame.
	Send(req []byte) (resp []byte, err error)
	// Close closes the transport connection.
	Close() error
}
