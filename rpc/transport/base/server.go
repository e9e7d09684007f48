package base

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/transport"
)

var Logger = common.CreateLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server
// operations.
type IServerConnector interface {
	// Listen creates a listener and returns it.
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "tcp").
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality,
// independent of the specific network protocol.
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	listener   net.Listener
	bufferPool *sync.Pool
	bufferSize int
	connSem    chan struct{} // limits concurrent connections (config.MaxConnections)
}

const defaultBufferSize = 64 * 1024

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport.
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector:  connector,
		bufferSize: defaultBufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, defaultBufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	t.config = config

	if config.MaxConnections > 0 {
		t.connSem = make(chan struct{}, config.MaxConnections)
	}

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	t.listener = listener

	Logger.Info().Str("proto", t.connector.GetName()).Str("endpoint", config.Endpoint).
		Int("max_workers_per_conn", maxWorkers(config)).Msg("listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			Logger.Error().Err(err).Msg("accept error")
			continue
		}

		if t.connSem != nil {
			select {
			case t.connSem <- struct{}{}:
			default:
				Logger.Warn().Msg("max connections reached, rejecting")
				conn.Close()
				continue
			}
		}

		go t.handleConnection(conn)
	}
}

func maxWorkers(config common.ServerConfig) int {
	if config.MaxWorkersPerConn < 1 {
		return 1
	}
	return config.MaxWorkersPerConn
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection reads request frames off conn and dispatches each to a
// worker goroutine, bounded by a per-connection semaphore so one noisy
// connection can't monopolize the server.
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()
	if t.connSem != nil {
		defer func() { <-t.connSem }()
	}

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	workerSemaphore := make(chan struct{}, maxWorkers(t.config))

	var wg sync.WaitGroup
	var connMutex sync.Mutex

	handleResponse := func(requestID uint64, data []byte) {
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		start := time.Now()
		resp := t.handler(data)
		Logger.Debug().Uint64("request_id", requestID).Dur("took", time.Since(start)).Msg("processed request")

		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
		}

		if err := writeFrame(conn, requestID, resp); err != nil {
			Logger.Error().Err(err).Msg("failed to write response")
		}
	}

	handleRequest := func() error {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return fmt.Errorf("failed to set read deadline: %v", err)
			}
		}

		buf := t.bufferPool.Get().([]byte)
		requestID, data, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			return err
		}

		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer t.bufferPool.Put(buf)
			handleResponse(requestID, data)
		}()

		return nil
	}

	for {
		err := handleRequest()
		if err == io.EOF {
			Logger.Debug().Msg("connection closed by client")
			break
		}
		if err != nil {
			Logger.Error().Err(err).Msg("error handling request")
			break
		}
	}

	wg.Wait()
}
