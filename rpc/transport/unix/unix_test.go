package unix

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchkv/batchkv/rpc/common"
)

func TestUnixClientServerRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "batchkv.sock")

	serverTransport := NewUnixServerTransport()
	serverTransport.RegisterHandler(func(req []byte) []byte {
		echoed := make([]byte, len(req))
		copy(echoed, req)
		return echoed
	})

	go func() {
		if err := serverTransport.Listen(common.ServerConfig{Endpoint: socketPath}); err != nil {
			t.Logf("server transport exited: %v", err)
		}
	}()

	waitForSocket(t, socketPath)

	clientTransport := NewUnixClientTransport()
	if err := clientTransport.Connect(common.ClientConfig{Endpoints: []string{socketPath}, TimeoutSecond: 2, RetryCount: 1}); err != nil {
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

func TestUnixServerRemovesStaleSocketFile(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "stale.sock")
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("failed to create a stale socket: %v", err)
	}
	l.Close()

	serverTransport := NewUnixServerTransport()
	serverTransport.RegisterHandler(func(req []byte) []byte { return req })

	go func() {
		if err := serverTransport.Listen(common.ServerConfig{Endpoint: socketPath}); err != nil {
			t.Logf("server transport exited: %v", err)
		}
	}()

	waitForSocket(t, socketPath)
}

func waitForSocket(t *testing.T, socketPath string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", socketPath, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", socketPath)
}
