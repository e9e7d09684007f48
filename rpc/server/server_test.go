package server_test

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/batchkv/batchkv/lib/kv"
	_ "github.com/batchkv/batchkv/lib/kv/engines/pebble"
	"github.com/batchkv/batchkv/lib/provider"
	"github.com/batchkv/batchkv/rpc/client"
	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/server"
	"github.com/batchkv/batchkv/rpc/transport/tcp"
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

func TestServerClientEndToEndOverTCP(t *testing.T) {
	pebbleCfg := json.RawMessage(fmt.Sprintf(`{"path":%q}`, t.TempDir()))
	p, status := provider.New(provider.Config{Databases: []provider.DatabaseConfig{{Name: "d", Type: "pebble", Config: pebbleCfg}}})
	if !status.IsOK() {
		t.Fatalf("failed to construct provider: %v", status)
	}
	defer p.Close()

	db, status := p.LookupByName("d")
	if !status.IsOK() {
		t.Fatalf("LookupByName failed: %v", status)
	}

	endpoint := freePort(t)
	s := server.NewRPCServer(common.ServerConfig{Endpoint: endpoint, LogLevel: "error"}, p, tcp.NewTCPServerTransport())
	go s.Serve()

	waitForListener(t, endpoint)

	c, err := client.NewClient(
		common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 2, RetryCount: 1},
		tcp.NewTCPClientTransport(),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer c.Close()

	keys := [][]byte{[]byte("k1"), []byte("k2")}
	vals := [][]byte{[]byte("v1"), []byte("v2")}
	if err := c.Put(db.ID, 0, keys, vals); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	run, err := c.Get(db.ID, 0, keys, client.DefaultResultBufferSize)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var got []string
	run.Iter(func(_ int, elem []byte) bool {
		got = append(got, string(elem))
		return true
	})
	if len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Fatalf("unexpected Get result over the wire: %v", got)
	}

	count, err := c.Count(db.ID, 0)
	if err != nil || count != 2 {
		t.Fatalf("expected count 2 over the wire, got %d err=%v", count, err)
	}

	if err := c.Erase(db.ID, 0, keys); err != nil {
		t.Fatalf("Erase failed: %v", err)
	}

	run, err = c.Get(db.ID, 0, keys, client.DefaultResultBufferSize)
	if err != nil {
		t.Fatalf("Get after erase failed: %v", err)
	}
	if run.Sizes[0] != kv.KeyNotFound || run.Sizes[1] != kv.KeyNotFound {
		t.Errorf("expected both keys to be gone after erase, got sizes %v", run.Sizes)
	}
}
