package tcp

import (
	"net"

	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/transport"
	"github.com/batchkv/batchkv/rpc/transport/base"
)

// clientConnector implements base.IClientConnector for TCP sockets.
type clientConnector struct{}

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return upgradeConnection(conn, config.Transport)
}

// NewTCPClientTransport creates a new TCP client transport.
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
