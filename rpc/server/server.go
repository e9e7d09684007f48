package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/batchkv/batchkv/lib/provider"
	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/transport"
)

var Logger = common.CreateLogger("rpc")

// NewRPCServer creates a new RPC server wrapping a Provider with the given
// transport.
//
// Usage:
//
//	p, status := provider.New(cfg)
//	s := server.NewRPCServer(config, p, tcp.NewTCPServerTransport())
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	p *provider.Provider,
	transport transport.IRPCServerTransport,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	common.InitLoggers(config, Logger)
	Logger.Info().Msg("created rpc server")
	Logger.Info().Str("config", config.String()).Msg("")

	return &rpcServer{
		config:    config,
		provider:  p,
		transport: transport,
	}
}

type rpcServer struct {
	config    common.ServerConfig
	provider  *provider.Provider
	transport transport.IRPCServerTransport
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		return provider.Dispatch(s.provider, req)
	})
}

// Serve starts the RPC server: it wires the dispatch handler into the
// transport and blocks serving connections until the transport's Listen
// returns.
func (s *rpcServer) Serve() error {
	s.registerTransportHandler()
	Logger.Info().Str("endpoint", s.config.Endpoint).Msg("listening")
	if err := s.transport.Listen(s.config); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return nil
}

// Close tears down every database the server's provider owns.
func (s *rpcServer) Close() {
	s.provider.Close()
}
