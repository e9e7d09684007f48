package base

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/batchkv/batchkv/rpc/common"
)

// fakeConnector runs a base transport entirely over in-process net.Pipe
// connections, so its tests exercise the connection-pooling and
// request/response correlation logic without touching a real socket.
type fakeConnector struct {
	dial func(endpoint string) (net.Conn, error)
}

func (c *fakeConnector) GetName() string { return "fake" }

func (c *fakeConnector) Connect(endpoint string) (net.Conn, error) {
	return c.dial(endpoint)
}

func (c *fakeConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return nil
}

// pipeListener hands out one side of a net.Pipe() per Connect call, handing
// the other side to a background echo/dispatch loop.
func newLoopbackPair(t *testing.T, handle func(req []byte) []byte) IClientConnector {
	t.Helper()
	return &fakeConnector{
		dial: func(endpoint string) (net.Conn, error) {
			clientSide, serverSide := net.Pipe()
			go serveOneConnection(serverSide, handle)
			return clientSide, nil
		},
	}
}

func serveOneConnection(conn net.Conn, handle func(req []byte) []byte) {
	defer conn.Close()
	for {
		requestID, data, err := readFrame(conn, nil)
		if err != nil {
			return
		}
		if err := writeFrame(conn, requestID, handle(data)); err != nil {
			return
		}
	}
}

func TestBaseClientTransportRoundTrip(t *testing.T) {
	connector := newLoopbackPair(t, func(req []byte) []byte {
		resp := make([]byte, len(req))
		copy(resp, req)
		return resp
	})

	transport := NewBaseClientTransport(connector)
	if err := transport.Connect(common.ClientConfig{Endpoints: []string{"loopback"}, RetryCount: 1}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer transport.Close()

	resp, err := transport.Send([]byte("hello"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "hello" {
		t.Errorf("expected echoed payload, got %q", resp)
	}
}

func TestBaseClientTransportNoEndpoints(t *testing.T) {
	transport := NewBaseClientTransport(&fakeConnector{})
	if err := transport.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("expected Connect to fail with no endpoints")
	}
}

func TestBaseClientTransportAllConnectionsFail(t *testing.T) {
	connector := &fakeConnector{
		dial: func(endpoint string) (net.Conn, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	transport := NewBaseClientTransport(connector)
	if err := transport.Connect(common.ClientConfig{Endpoints: []string{"unreachable"}}); err == nil {
		t.Errorf("expected Connect to fail when every endpoint is unreachable")
	}
}

func TestBaseClientTransportSendTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	connector := newLoopbackPair(t, func(req []byte) []byte {
		<-block
		return req
	})

	transport := NewBaseClientTransport(connector)
	if err := transport.Connect(common.ClientConfig{Endpoints: []string{"loopback"}, TimeoutSecond: 1, RetryCount: 1}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer transport.Close()

	done := make(chan error, 1)
	go func() {
		_, err := transport.Send([]byte("slow"))
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Errorf("expected Send to time out while the handler is blocked")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Send did not return in time")
	}
}

func TestBaseServerTransportRoundTrip(t *testing.T) {
	clientSide, serverSide := net.Pipe()

	serverTransport := NewBaseServerTransport(&singleConnListener{conn: serverSide})
	serverTransport.RegisterHandler(func(req []byte) []byte {
		resp := make([]byte, len(req))
		copy(resp, req)
		return resp
	})

	go serverTransport.Listen(common.ServerConfig{})

	if err := writeFrame(clientSide, 1, []byte("ping")); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	id, data, err := readFrame(clientSide, nil)
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if id != 1 || string(data) != "ping" {
		t.Errorf("expected echoed frame id=1 data=\"ping\", got id=%d data=%q", id, data)
	}
}

// singleConnListener is an IServerConnector whose Listen hands back a
// net.Listener that yields exactly one pre-established connection, then
// blocks forever — enough to drive one request/response cycle in a test.
type singleConnListener struct {
	conn net.Conn
}

func (s *singleConnListener) GetName() string { return "fake" }

func (s *singleConnListener) Listen(config common.ServerConfig) (net.Listener, error) {
	return &oneShotListener{conn: s.conn}, nil
}

type oneShotListener struct {
	conn   net.Conn
	served bool
	closed chan struct{}
}

func (l *oneShotListener) Accept() (net.Conn, error) {
	if !l.served {
		l.served = true
		return l.conn, nil
	}
	if l.closed == nil {
		l.closed = make(chan struct{})
	}
	<-l.closed
	return nil, fmt.Errorf("listener closed")
}

func (l *oneShotListener) Close() error {
	if l.closed != nil {
		close(l.closed)
	}
	return nil
}

func (l *oneShotListener) Addr() net.Addr { return l.conn.LocalAddr() }
