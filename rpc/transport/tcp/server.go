package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/transport"
	"github.com/batchkv/batchkv/rpc/transport/base"
)

// serverConnector implements base.IServerConnector for TCP sockets.
type serverConnector struct{}

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp socket: %v", err)
	}
	return &tuningListener{Listener: listener, tuning: config.Transport}, nil
}

// tuningListener wraps a net.Listener, applying the configured TCP tuning
// to every accepted connection before handing it back to the caller.
type tuningListener struct {
	net.Listener
	tuning common.TCPTuning
}

func (l *tuningListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if err := upgradeConnection(conn, l.tuning); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to tune accepted connection: %v", err)
	}
	return conn, nil
}

// upgradeConnection applies socket-level tuning from config.Transport to a
// TCP connection, used on both the accept path (tuningListener) and the
// dial path (clientConnector.UpgradeConnection).
func upgradeConnection(conn net.Conn, tuning common.TCPTuning) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(tuning.TCPNoDelay); err != nil {
		return err
	}
	if tuning.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(tuning.WriteBufferSize); err != nil {
			return err
		}
	}
	if tuning.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(tuning.ReadBufferSize); err != nil {
			return err
		}
	}
	if tuning.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(tuning.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	if tuning.TCPLingerSec > 0 {
		if err := tcpConn.SetLinger(tuning.TCPLingerSec); err != nil {
			return err
		}
	}
	return nil
}

// NewTCPServerTransport creates a new TCP server transport.
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
