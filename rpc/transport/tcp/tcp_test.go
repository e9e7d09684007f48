package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/batchkv/batchkv/rpc/common"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestTCPClientServerRoundTrip(t *testing.T) {
	endpoint := freePort(t)

	serverTransport := NewTCPServerTransport()
	serverTransport.RegisterHandler(func(req []byte) []byte {
		echoed := make([]byte, len(req))
		copy(echoed, req)
		return echoed
	})

	go func() {
		if err := serverTransport.Listen(common.ServerConfig{Endpoint: endpoint}); err != nil {
			t.Logf("server transport exited: %v", err)
		}
	}()

	waitForListener(t, endpoint)

	clientTransport := NewTCPClientTransport()
	if err := clientTransport.Connect(common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 2, RetryCount: 1}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer clientTransport.Close()

	resp, err := clientTransport.Send([]byte("ping"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "ping" {
		t.Errorf("expected echoed payload %q, got %q", "ping", resp)
	}
}

func TestTCPClientConnectFailsWithNoEndpoints(t *testing.T) {
	clientTransport := NewTCPClientTransport()
	if err := clientTransport.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("expected Connect to fail with no endpoints configured")
	}
}

func TestTCPClientConnectFailsUnreachable(t *testing.T) {
	clientTransport := NewTCPClientTransport()
	err := clientTransport.Connect(common.ClientConfig{Endpoints: []string{"127.0.0.1:1"}})
	if err == nil {
		t.Errorf("expected Connect to fail against an unreachable endpoint")
	}
}

// waitForListener polls until endpoint accepts connections, bounding the
// race between starting Listen in a goroutine and dialing it.
func waitForListener(t *testing.T, endpoint string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", endpoint)
}
