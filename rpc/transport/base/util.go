package base

import (
	"net"

	"github.com/batchkv/batchkv/rpc/common"
)

// writeFrame writes a response frame to conn using the shared request-ID +
// length-prefixed framing (common.WriteFrame).
func writeFrame(conn net.Conn, requestID uint64, data []byte) error {
	return common.WriteFrame(conn, requestID, data)
}

// readFrame reads one frame from conn, reusing buf as scratch space when
// it's large enough for the payload.
func readFrame(conn net.Conn, buf []byte) (requestID uint64, data []byte, err error) {
	return common.ReadFrame(conn, buf)
}
