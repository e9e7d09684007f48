package client

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/batchkv/batchkv/lib/kv"
	"github.com/batchkv/batchkv/lib/provider"
	"github.com/batchkv/batchkv/rpc/common"
	"github.com/batchkv/batchkv/rpc/transport"
)

var Logger = common.CreateLogger("rpc/client")

// Client is a thin batched key-value client: it encodes a request per
// lib/provider's wire format, sends it over a transport.IRPCClientTransport,
// and decodes the response back into a provider.Result. One Client can
// address any database a remote provider has registered, addressed by its
// UUID (§3/§6.4: "a request carries: database UUID, mode, count n, ...").
type Client struct {
	transport transport.IRPCClientTransport
}

// NewClient connects transport with config and returns a Client ready to
// issue requests.
//
// Usage:
//
//	c, err := client.NewClient(config, tcp.NewTCPClientTransport())
//	err = c.Put(dbID, 0, keys, values)
func NewClient(config common.ClientConfig, transport transport.IRPCClientTransport) (*Client, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}
	return &Client{transport: transport}, nil
}

// Close tears down the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) invoke(h provider.Header, body []byte) (provider.Result, error) {
	frame := append(provider.EncodeHeader(h), body...)
	resp, err := c.transport.Send(frame)
	if err != nil {
		return provider.Result{}, err
	}
	result, status := provider.DecodeResult(h.Verb, h.Count, resp)
	if !status.IsOK() {
		return result, fmt.Errorf("batchkv: %s", status)
	}
	return result, nil
}

// Count returns the number of keys in the database.
func (c *Client) Count(dbID uuid.UUID, mode kv.Mode) (uint64, error) {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbCount, Mode: mode}
	result, err := c.invoke(h, nil)
	return result.Count, err
}

// Exists checks, for every key, whether it is present.
func (c *Client) Exists(dbID uuid.UUID, mode kv.Mode, keys [][]byte) (kv.BitField, error) {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbExists, Mode: mode, Count: uint32(len(keys))}
	result, err := c.invoke(h, encodeRun(keys))
	return result.Flags, err
}

// Length returns the value length for every key (kv.KeyNotFound for
// missing keys).
func (c *Client) Length(dbID uuid.UUID, mode kv.Mode, keys [][]byte) ([]uint64, error) {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbLength, Mode: mode, Count: uint32(len(keys))}
	result, err := c.invoke(h, encodeRun(keys))
	return result.VSizes, err
}

// Put writes len(keys) key/value pairs; keys and values must have the same
// length.
func (c *Client) Put(dbID uuid.UUID, mode kv.Mode, keys, values [][]byte) error {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbPut, Mode: mode, Count: uint32(len(keys))}
	body := append(encodeRun(keys), encodeRun(values)...)
	_, err := c.invoke(h, body)
	return err
}

// DefaultResultBufferSize is the response buffer capacity Get/ListKeys/
// ListKeyValues request when no caller-supplied capacity fits their need
// better; values or keys that don't fit come back with the SizeTooSmall
// sentinel rather than growing the buffer automatically, since a client
// over a real network transport can't extend a reply after the fact.
const DefaultResultBufferSize = 1 << 20 // 1 MiB

// Get fetches the value for every key, returned as a kv.Run where missing
// keys carry the kv.KeyNotFound sentinel size. maxValueBytes bounds the
// packed response buffer the server writes values into; a value that
// would overflow it (and everything requested after it) comes back with
// the SizeTooSmall sentinel instead.
func (c *Client) Get(dbID uuid.UUID, mode kv.Mode, keys [][]byte, maxValueBytes int) (kv.Run, error) {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbGet, Mode: mode, Packed: true, Count: uint32(len(keys))}
	body := append(encodeRun(keys), packedResultBuffer(len(keys), maxValueBytes)...)
	result, err := c.invoke(h, body)
	return result.KeyRun, err
}

// Erase deletes every given key, where present.
func (c *Client) Erase(dbID uuid.UUID, mode kv.Mode, keys [][]byte) error {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbErase, Mode: mode, Count: uint32(len(keys))}
	_, err := c.invoke(h, encodeRun(keys))
	return err
}

// ListKeys lists up to limit keys in iteration order starting at fromKey
// (exclusive), passing filterBytes through as the listing filter (a
// literal key prefix unless mode selects suffix, value or named-predicate
// matching; see kv.NewFilter). maxKeyBytes bounds the packed response
// buffer the keys are written into.
func (c *Client) ListKeys(dbID uuid.UUID, mode kv.Mode, fromKey []byte, filterBytes []byte, limit int, maxKeyBytes int) (kv.Run, error) {
	h := provider.Header{
		DatabaseID: dbID, Verb: provider.VerbListKeys, Mode: mode, Packed: true,
		Count: uint32(limit), FromKeyLen: uint32(len(fromKey)), FilterLen: uint32(len(filterBytes)),
	}
	body := append(append([]byte{}, fromKey...), filterBytes...)
	body = append(body, packedResultBuffer(limit, maxKeyBytes)...)
	result, err := c.invoke(h, body)
	return result.KeyRun, err
}

// ListKeyValues lists up to limit key/value pairs in iteration order
// starting at fromKey (exclusive). maxBytes bounds the packed response
// buffer reserved for each of the keys and values streams; the two
// streams share a single request region split evenly in half, so both
// get the same capacity.
func (c *Client) ListKeyValues(dbID uuid.UUID, mode kv.Mode, fromKey []byte, filterBytes []byte, limit int, maxBytes int) (keys, values kv.Run, err error) {
	h := provider.Header{
		DatabaseID: dbID, Verb: provider.VerbListKeyValues, Mode: mode, Packed: true,
		Count: uint32(limit), FromKeyLen: uint32(len(fromKey)), FilterLen: uint32(len(filterBytes)),
	}
	body := append(append([]byte{}, fromKey...), filterBytes...)
	body = append(body, packedResultBuffer(limit, maxBytes)...)
	body = append(body, packedResultBuffer(limit, maxBytes)...)
	result, invokeErr := c.invoke(h, body)
	return result.KeyRun, result.ValRun, invokeErr
}

// packedResultBuffer builds the request-side region a packed sink expects:
// n placeholder size slots (ignored as input, overwritten as output)
// followed by totalBytes of zeroed space the server writes result bytes
// into.
func packedResultBuffer(n, totalBytes int) []byte {
	return make([]byte, n*8+totalBytes)
}

// Destroy runs the backend's destroy verb on the remote database, clearing
// all of its stored data; the database stays registered with the provider
// and keeps answering requests.
func (c *Client) Destroy(dbID uuid.UUID, mode kv.Mode) error {
	h := provider.Header{DatabaseID: dbID, Verb: provider.VerbDestroy, Mode: mode}
	_, err := c.invoke(h, nil)
	return err
}

// encodeRun serializes elems the way lib/provider's decodeRun expects: a
// flat array of n uint64 sizes followed by the concatenated element bytes.
func encodeRun(elems [][]byte) []byte {
	out := make([]byte, len(elems)*8)
	for i, e := range elems {
		binary.BigEndian.PutUint64(out[i*8:i*8+8], uint64(len(e)))
	}
	for _, e := range elems {
		out = append(out, e...)
	}
	return out
}
