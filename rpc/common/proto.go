package common

import (
	"encoding/binary"
	"io"
	"net"
)

// --------------------------------------------------------------------------
// Wire framing
// --------------------------------------------------------------------------
//
// Every request/response on the wire is a frame: an 8-byte request ID (so a
// client may pipeline several in-flight batches on one connection), a
// 4-byte big-endian content length, and the content itself - a
// provider.Header followed by its body (§6.4). The frame layer knows
// nothing about what's inside the content; decoding it is lib/provider's
// job.

const frameHeaderSize = 8 + 4

// WriteFrame writes requestID and data as a single framed message.
func WriteFrame(w io.Writer, requestID uint64, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	if conn, ok := w.(net.Conn); ok {
		buffers := net.Buffers{header, data}
		_, err := buffers.WriteTo(conn)
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadFrame reads one framed message from r, reusing buf as scratch space
// when it's large enough for the payload and allocating a fresh buffer
// otherwise.
func ReadFrame(r io.Reader, buf []byte) (requestID uint64, data []byte, err error) {
	var header [frameHeaderSize]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	requestID = binary.BigEndian.Uint64(header[:8])
	contentLength := binary.BigEndian.Uint32(header[8:12])

	if contentLength == 0 {
		return requestID, []byte{}, nil
	}
	if uint32(cap(buf)) < contentLength {
		buf = make([]byte, contentLength)
	}
	buf = buf[:contentLength]
	if _, err = io.ReadFull(r, buf); err != nil {
		return 0, nil, err
	}
	return requestID, buf, nil
}
