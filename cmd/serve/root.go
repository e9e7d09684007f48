package serve

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/batchkv/batchkv/cmd/util"
	"github.com/batchkv/batchkv/lib/provider"
	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/server"
	"github.com/batchkv/batchkv/rpc/transport"
	"github.com/batchkv/batchkv/rpc/transport/http"
	"github.com/batchkv/batchkv/rpc/transport/tcp"
	"github.com/batchkv/batchkv/rpc/transport/unix"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the batchkv server",
		Long:    `Start the batchkv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is BATCHKV_<flag> (e.g. BATCHKV_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	key := "config"
	ServeCmd.PersistentFlags().String(key, "provider.json", cmdUtil.WrapString("Path to the JSON file describing the databases to register at startup"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Idle connection timeout in seconds"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum number of simultaneous client connections (0 = unlimited)"))

	key = "max-workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum number of requests dispatched concurrently per connection (0 = 1)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080, /tmp/batchkv.sock, ...)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "transport"
	ServeCmd.PersistentFlags().String(key, "tcp", cmdUtil.WrapString("transport to use (http, tcp, unix)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for accepted connections (only for tcp)"))

	key = "transport-tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval for accepted connections (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time for accepted connections (in seconds, only for tcp)"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the write buffer for accepted connections (in KB, only for tcp)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the read buffer for accepted connections (in KB, only for tcp)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables into serveCmdConfig.
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.ProviderConfigPath = viper.GetString("config")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxConnections = viper.GetInt("max-connections")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("max-workers-per-conn")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.TCPTuning{
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
	}

	return nil
}

// run loads the provider config, constructs the provider and transport, and
// blocks serving requests.
func run(_ *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(serveCmdConfig.ProviderConfigPath)
	if err != nil {
		return fmt.Errorf("failed to read provider config: %w", err)
	}
	cfg, err := provider.ParseConfig(raw)
	if err != nil {
		return fmt.Errorf("invalid provider config: %w", err)
	}

	p, status := provider.New(cfg)
	if !status.IsOK() {
		return fmt.Errorf("failed to create provider: %s", status)
	}

	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	s := server.NewRPCServer(*serveCmdConfig, p, t)
	return s.Serve()
}

// initConfig reads env files and environment variables into viper.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("batchkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
