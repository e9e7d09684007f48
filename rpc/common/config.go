package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds every startup parameter of a batchkv server process:
// where it listens, where its provider config lives, and how it logs.
type ServerConfig struct {
	// Endpoint is the "host:port" the TCP transport listens on.
	Endpoint string

	// ProviderConfigPath is the path to the JSON file describing the
	// databases to register at startup (§6.1).
	ProviderConfigPath string

	// TimeoutSecond bounds how long a connection may sit idle between
	// requests before the server closes it.
	TimeoutSecond int64

	// MaxConnections caps the number of simultaneous client connections
	// the TCP transport will accept.
	MaxConnections int

	// MaxWorkersPerConn bounds how many requests on one connection are
	// dispatched concurrently.
	MaxWorkersPerConn int

	// Transport holds socket-level tuning knobs applied to every accepted
	// connection.
	Transport TCPTuning

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
}

// TCPTuning holds the socket options applied to accepted/dialed TCP
// connections. A zero value for a size/duration field leaves the OS
// default in place.
type TCPTuning struct {
	TCPNoDelay      bool
	WriteBufferSize int
	ReadBufferSize  int
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// String returns a formatted string representation of the configuration,
// used by the `serve` command to print its resolved settings on startup.
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Provider Config", c.ProviderConfigPath)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Connections", strconv.Itoa(c.MaxConnections))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures a batchkv client connecting to one or more
// server endpoints.
type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
	Transport              TCPTuning
}

// String returns a formatted string representation of the client
// configuration.
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	connsPerEndpoint := c.ConnectionsPerEndpoint
	if connsPerEndpoint < 1 {
		connsPerEndpoint = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connsPerEndpoint))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
