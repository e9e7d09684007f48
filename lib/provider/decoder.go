package provider

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/batchkv/batchkv/lib/kv"
)

// Verb identifies which kv.Backend method a batched request invokes (§6.4).
type Verb uint8

const (
	VerbCount Verb = iota
	VerbExists
	VerbLength
	VerbPut
	VerbGet
	VerbErase
	VerbListKeys
	VerbListKeyValues
	VerbDestroy
)

func (v Verb) String() string {
	switch v {
	case VerbCount:
		return "count"
	case VerbExists:
		return "exists"
	case VerbLength:
		return "length"
	case VerbPut:
		return "put"
	case VerbGet:
		return "get"
	case VerbErase:
		return "erase"
	case VerbListKeys:
		return "list_keys"
	case VerbListKeyValues:
		return "list_keyvals"
	case VerbDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// headerSize is the fixed-size preamble of every request: database UUID
// (16 bytes) + verb (1 byte) + mode (4 bytes) + packed flag (1 byte) + key
// count (4 bytes) + from_key length (4 bytes) + filter length (4 bytes).
const headerSize = 16 + 1 + 4 + 1 + 4 + 4 + 4

// Header is the fixed preamble decoded from every request frame (§6.4: "A
// request carries: database UUID, mode, count n, and a bulk-handle
// describing a single contiguous region").
type Header struct {
	DatabaseID uuid.UUID
	Verb       Verb
	Mode       kv.Mode
	Packed     bool // output layout: packed vs. unpacked sink (§4.1)
	Count      uint32
	FromKeyLen uint32 // ListKeys/ListKeyValues only
	FilterLen  uint32 // ListKeys/ListKeyValues only
}

// DecodeHeader parses the fixed preamble from the front of a request frame,
// returning the remaining body bytes.
func DecodeHeader(frame []byte) (Header, []byte, kv.Status) {
	if len(frame) < headerSize {
		return Header{}, nil, kv.StatusInvalidArgs
	}
	var h Header
	copy(h.DatabaseID[:], frame[0:16])
	h.Verb = Verb(frame[16])
	h.Mode = kv.Mode(binary.BigEndian.Uint32(frame[17:21]))
	h.Packed = frame[21] != 0
	h.Count = binary.BigEndian.Uint32(frame[22:26])
	h.FromKeyLen = binary.BigEndian.Uint32(frame[26:30])
	h.FilterLen = binary.BigEndian.Uint32(frame[30:34])
	return h, frame[headerSize:], kv.StatusOK
}

// EncodeHeader serializes h as the fixed preamble of a request frame.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:16], h.DatabaseID[:])
	buf[16] = byte(h.Verb)
	binary.BigEndian.PutUint32(buf[17:21], uint32(h.Mode))
	if h.Packed {
		buf[21] = 1
	}
	binary.BigEndian.PutUint32(buf[22:26], h.Count)
	binary.BigEndian.PutUint32(buf[26:30], h.FromKeyLen)
	binary.BigEndian.PutUint32(buf[30:34], h.FilterLen)
	return buf
}

// decodeSizes reads n consecutive uint64 size slots from buf, returning the
// remainder of buf after them.
func decodeSizes(buf []byte, n uint32) ([]uint64, []byte, kv.Status) {
	need := int(n) * 8
	if len(buf) < need {
		return nil, nil, kv.StatusInvalidArgs
	}
	sizes := make([]uint64, n)
	for i := range sizes {
		sizes[i] = binary.BigEndian.Uint64(buf[i*8 : i*8+8])
	}
	return sizes, buf[need:], kv.StatusOK
}

func encodeSizes(sizes []uint64) []byte {
	buf := make([]byte, len(sizes)*8)
	for i, s := range sizes {
		binary.BigEndian.PutUint64(buf[i*8:i*8+8], s)
	}
	return buf
}

// decodeRun reads a kv.Run (sizes array + flat data region) from buf,
// returning the remainder of buf after the data region. Sentinel sizes
// take no bytes of the data region.
func decodeRun(buf []byte, n uint32) (kv.Run, []byte, kv.Status) {
	sizes, rest, status := decodeSizes(buf, n)
	if !status.IsOK() {
		return kv.Run{}, nil, status
	}
	var total uint64
	for _, s := range sizes {
		if !kv.IsSentinel(s) {
			total += s
		}
	}
	if uint64(len(rest)) < total {
		return kv.Run{}, nil, kv.StatusInvalidArgs
	}
	return kv.Run{Data: rest[:total], Sizes: sizes}, rest[total:], kv.StatusOK
}

// Result carries a decoded response's status plus whatever output payload
// the verb produced, ready for EncodeResult.
type Result struct {
	Status  kv.Status
	Count   uint64 // VerbCount
	Flags   kv.BitField
	VSizes  []uint64 // VerbLength/VerbListKeyValues
	KeyRun  kv.Run   // VerbGet: values output; VerbListKeys/VerbListKeyValues: keys output
	ValRun  kv.Run   // VerbListKeyValues: values output
	KSizes  []uint64
}

// EncodeResult serializes a dispatch result the way a transport would push
// it back to the client: a one-byte status followed by the verb-specific
// result region described in §6.4 ("bit-field for exists, size array for
// length, byte region for get").
func EncodeResult(verb Verb, r Result) []byte {
	out := []byte{byte(r.Status)}
	if !r.Status.IsOK() {
		return out
	}
	switch verb {
	case VerbCount:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, r.Count)
		out = append(out, buf...)
	case VerbExists:
		out = append(out, r.Flags.Data...)
	case VerbLength:
		out = append(out, encodeSizes(r.VSizes)...)
	case VerbGet:
		out = append(out, encodeSizes(r.KeyRun.Sizes)...)
		out = append(out, r.KeyRun.Data...)
	case VerbListKeys:
		out = append(out, encodeSizes(r.KSizes)...)
		out = append(out, r.KeyRun.Data...)
	case VerbListKeyValues:
		out = append(out, encodeSizes(r.KSizes)...)
		out = append(out, r.KeyRun.Data...)
		out = append(out, encodeSizes(r.VSizes)...)
		out = append(out, r.ValRun.Data...)
	}
	return out
}

// DecodeResult parses a response frame produced by EncodeResult. count must
// be the same key count the originating request carried: the wire format
// always reserves count size slots for a listing verb's sink, regardless of
// how many entries the backend actually returned (short returns are marked
// with the NoMoreKeys sentinel, not a shorter slice).
func DecodeResult(verb Verb, count uint32, resp []byte) (Result, kv.Status) {
	if len(resp) < 1 {
		return Result{}, kv.StatusInvalidArgs
	}
	status := kv.Status(resp[0])
	if !status.IsOK() {
		return Result{Status: status}, status
	}
	body := resp[1:]
	switch verb {
	case VerbCount:
		if len(body) < 8 {
			return Result{Status: kv.StatusInvalidArgs}, kv.StatusInvalidArgs
		}
		return Result{Status: status, Count: binary.BigEndian.Uint64(body)}, status

	case VerbExists:
		return Result{Status: status, Flags: kv.BitField{Data: body, N: int(count)}}, status

	case VerbLength:
		vsizes, _, s := decodeSizes(body, count)
		if !s.IsOK() {
			return Result{Status: s}, s
		}
		return Result{Status: status, VSizes: vsizes}, status

	case VerbGet:
		keyRun, _, s := decodeRun(body, count)
		if !s.IsOK() {
			return Result{Status: s}, s
		}
		return Result{Status: status, KeyRun: keyRun}, status

	case VerbListKeys:
		ksizes, rest, s := decodeSizes(body, count)
		if !s.IsOK() {
			return Result{Status: s}, s
		}
		return Result{Status: status, KSizes: ksizes, KeyRun: kv.Run{Data: rest, Sizes: ksizes}}, status

	case VerbListKeyValues:
		ksizes, rest, s := decodeSizes(body, count)
		if !s.IsOK() {
			return Result{Status: s}, s
		}
		var ktotal uint64
		for _, sz := range ksizes {
			if !kv.IsSentinel(sz) {
				ktotal += sz
			}
		}
		if uint64(len(rest)) < ktotal {
			return Result{Status: kv.StatusInvalidArgs}, kv.StatusInvalidArgs
		}
		keyData, rest := rest[:ktotal], rest[ktotal:]
		vsizes, rest, s := decodeSizes(rest, count)
		if !s.IsOK() {
			return Result{Status: s}, s
		}
		return Result{
			Status: status,
			KSizes: ksizes, KeyRun: kv.Run{Data: keyData, Sizes: ksizes},
			VSizes: vsizes, ValRun: kv.Run{Data: rest, Sizes: vsizes},
		}, status

	default:
		return Result{Status: status}, status
	}
}

// Dispatch decodes a request frame, resolves its database from p, invokes
// the matching backend verb, and returns the encoded response frame. This
// is the single entry point both the in-process call path and the TCP
// transport use (§2: "provider looks up Database by UUID, checks
// supports_mode(mode), forwards to backend verb").
func Dispatch(p *Provider, frame []byte) []byte {
	start := time.Now()
	h, body, status := DecodeHeader(frame)
	if !status.IsOK() {
		return EncodeResult(h.Verb, Result{Status: status})
	}
	db, status := p.Lookup(h.DatabaseID)
	if !status.IsOK() {
		return EncodeResult(h.Verb, Result{Status: status})
	}
	if !h.Mode.IsSubsetOf(db.ModeMask) {
		recordDispatch(db.Name, h.Verb, kv.StatusOpUnsupported, time.Since(start))
		return EncodeResult(h.Verb, Result{Status: kv.StatusOpUnsupported})
	}
	recordBatchSize(db.Name, h.Verb, int(h.Count))

	result, status := dispatchVerb(db, h, body)
	result.Status = status
	recordDispatch(db.Name, h.Verb, status, time.Since(start))
	if h.Verb == VerbCount && status.IsOK() {
		recordKeyCount(db.Name, result.Count)
	}
	return EncodeResult(h.Verb, result)
}

func dispatchVerb(db *Database, h Header, body []byte) (Result, kv.Status) {
	b := db.backend
	switch h.Verb {
	case VerbCount:
		n, status := b.Count()
		return Result{Count: n}, status

	case VerbExists:
		keys, _, status := decodeRun(body, h.Count)
		if !status.IsOK() {
			return Result{}, status
		}
		flags := kv.NewBitField(int(h.Count))
		status = b.Exists(h.Mode, keys, flags)
		return Result{Flags: flags}, status

	case VerbLength:
		keys, _, status := decodeRun(body, h.Count)
		if !status.IsOK() {
			return Result{}, status
		}
		vsizes := make([]uint64, h.Count)
		status = b.Length(h.Mode, keys, vsizes)
		return Result{VSizes: vsizes}, status

	case VerbPut:
		keys, rest, status := decodeRun(body, h.Count)
		if !status.IsOK() {
			return Result{}, status
		}
		vals, _, status := decodeRun(rest, h.Count)
		if !status.IsOK() {
			return Result{}, status
		}
		status = b.Put(h.Mode, keys, vals)
		if status.IsOK() {
			vals.Iter(func(_ int, elem []byte) bool {
				db.sizes.addSample(len(elem))
				return true
			})
		}
		return Result{}, status

	case VerbGet:
		keys, rest, status := decodeRun(body, h.Count)
		if !status.IsOK() {
			return Result{}, status
		}
		sink, status := newSink(h, rest)
		if !status.IsOK() {
			return Result{}, status
		}
		status = b.Get(h.Mode, keys, sink)
		return Result{KeyRun: sinkRun(sink)}, status

	case VerbErase:
		keys, _, status := decodeRun(body, h.Count)
		if !status.IsOK() {
			return Result{}, status
		}
		status = b.Erase(h.Mode, keys)
		return Result{}, status

	case VerbListKeys:
		fromKey, filterBytes, rest, status := decodeListingPrefix(h, body)
		if !status.IsOK() {
			return Result{}, status
		}
		filter := kv.NewFilter(h.Mode, filterBytes)
		sink, status := newSink(h, rest)
		if !status.IsOK() {
			return Result{}, status
		}
		status = b.ListKeys(h.Mode, fromKey, filter, sink)
		return Result{KSizes: sinkSizes(sink), KeyRun: sinkRun(sink)}, status

	case VerbListKeyValues:
		fromKey, filterBytes, rest, status := decodeListingPrefix(h, body)
		if !status.IsOK() {
			return Result{}, status
		}
		filter := kv.NewFilter(h.Mode, filterBytes)
		half := len(rest) / 2
		keySink, status := newSink(h, rest[:half])
		if !status.IsOK() {
			return Result{}, status
		}
		valSink, status := newSink(h, rest[half:])
		if !status.IsOK() {
			return Result{}, status
		}
		status = b.ListKeyValues(h.Mode, fromKey, filter, keySink, valSink)
		return Result{
			KSizes: sinkSizes(keySink), KeyRun: sinkRun(keySink),
			VSizes: sinkSizes(valSink), ValRun: sinkRun(valSink),
		}, status

	case VerbDestroy:
		return Result{}, b.Destroy()

	default:
		return Result{}, kv.StatusInvalidArgs
	}
}

func decodeListingPrefix(h Header, body []byte) (fromKey, filterBytes []byte, rest []byte, status kv.Status) {
	if uint32(len(body)) < h.FromKeyLen+h.FilterLen {
		return nil, nil, nil, kv.StatusInvalidArgs
	}
	fromKey = body[:h.FromKeyLen]
	filterBytes = body[h.FromKeyLen : h.FromKeyLen+h.FilterLen]
	rest = body[h.FromKeyLen+h.FilterLen:]
	return fromKey, filterBytes, rest, kv.StatusOK
}

// newSink builds a PackedSink or UnpackedSink over buf per h.Packed: an
// unpacked sink reads its per-slot capacities out of buf's leading
// n*8-byte size prefix, the same region a packed sink ignores as input and
// overwrites as output.
func newSink(h Header, buf []byte) (kv.ResultSink, kv.Status) {
	sizes, data, status := decodeSizes(buf, h.Count)
	if !status.IsOK() {
		return nil, status
	}
	if h.Packed {
		return &kv.PackedSink{Data: data, Sizes: sizes}, kv.StatusOK
	}
	return kv.UnpackedSink{Data: data, Sizes: sizes}, kv.StatusOK
}

func sinkSizes(sink kv.ResultSink) []uint64 {
	switch s := sink.(type) {
	case kv.UnpackedSink:
		return s.Sizes
	case *kv.PackedSink:
		return s.Sizes
	default:
		panic(fmt.Sprintf("unknown sink type %T", sink))
	}
}

func sinkRun(sink kv.ResultSink) kv.Run {
	switch s := sink.(type) {
	case kv.UnpackedSink:
		return kv.Run{Data: s.Data, Sizes: s.Sizes}
	case *kv.PackedSink:
		return kv.Run{Data: s.Data[:s.Offset], Sizes: s.Sizes}
	default:
		panic(fmt.Sprintf("unknown sink type %T", sink))
	}
}
