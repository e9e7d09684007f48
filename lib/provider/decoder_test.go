package provider

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/batchkv/batchkv/lib/kv"
	_ "github.com/batchkv/batchkv/lib/kv/engines/ordered"
	_ "github.com/batchkv/batchkv/lib/kv/engines/pebble"
	_ "github.com/batchkv/batchkv/lib/kv/engines/unordered"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		DatabaseID: uuid.New(),
		Verb:       VerbGet,
		Mode:       kv.ModeConsume,
		Packed:     true,
		Count:      3,
		FromKeyLen: 5,
		FilterLen:  2,
	}

	encoded := EncodeHeader(h)
	decoded, rest, status := DecodeHeader(encoded)
	if !status.IsOK() {
		t.Fatalf("DecodeHeader failed: %v", status)
	}
	if len(rest) != 0 {
		t.Errorf("expected no leftover bytes, got %d", len(rest))
	}
	if decoded != h {
		t.Errorf("expected round-tripped header %+v, got %+v", h, decoded)
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	if _, _, status := DecodeHeader(make([]byte, 5)); status != kv.StatusInvalidArgs {
		t.Errorf("expected StatusInvalidArgs for a truncated frame, got %v", status)
	}
}

func buildRequestFrame(t *testing.T, dbID uuid.UUID, verb Verb, mode kv.Mode, keys, vals [][]byte) []byte {
	t.Helper()
	h := Header{DatabaseID: dbID, Verb: verb, Mode: mode, Count: uint32(len(keys))}
	frame := EncodeHeader(h)
	frame = append(frame, encodeSizes(runSizes(keys))...)
	for _, k := range keys {
		frame = append(frame, k...)
	}
	if vals != nil {
		frame = append(frame, encodeSizes(runSizes(vals))...)
		for _, v := range vals {
			frame = append(frame, v...)
		}
	}
	return frame
}

func runSizes(elems [][]byte) []uint64 {
	sizes := make([]uint64, len(elems))
	for i, e := range elems {
		sizes[i] = uint64(len(e))
	}
	return sizes
}

func TestDispatchPutThenGet(t *testing.T) {
	pebbleCfg := json.RawMessage(fmt.Sprintf(`{"path":%q}`, t.TempDir()))
	p, status := New(Config{Databases: []DatabaseConfig{{Name: "d", Type: "pebble", Config: pebbleCfg}}})
	if !status.IsOK() {
		t.Fatalf("failed to construct provider: %v", status)
	}
	defer p.Close()

	db, status := p.LookupByName("d")
	if !status.IsOK() {
		t.Fatalf("LookupByName failed: %v", status)
	}

	keys := [][]byte{[]byte("k1"), []byte("k2")}
	vals := [][]byte{[]byte("v1"), []byte("v2")}

	putFrame := buildRequestFrame(t, db.ID, VerbPut, 0, keys, vals)
	putResp := Dispatch(p, putFrame)
	if putResp[0] != byte(kv.StatusOK) {
		t.Fatalf("expected put to succeed, status byte=%d", putResp[0])
	}

	getFrame := buildRequestFrame(t, db.ID, VerbGet, 0, keys, nil)
	// append an unpacked sink's per-slot capacities, followed by the
	// pre-allocated response buffer space the backend writes values into.
	capacities := []uint64{16, 16}
	getFrame = append(getFrame, encodeSizes(capacities)...)
	getFrame = append(getFrame, make([]byte, 32)...)

	getResp := Dispatch(p, getFrame)
	result, status := DecodeResult(VerbGet, uint32(len(keys)), getResp)
	if !status.IsOK() {
		t.Fatalf("DecodeResult failed: %v", status)
	}

	var got []string
	result.KeyRun.Iter(func(_ int, elem []byte) bool {
		got = append(got, string(elem))
		return true
	})
	if len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Fatalf("unexpected Get result: %v", got)
	}
}

func TestDispatchUnknownDatabase(t *testing.T) {
	p, status := New(Config{})
	if !status.IsOK() {
		t.Fatalf("failed to construct provider: %v", status)
	}
	defer p.Close()

	frame := buildRequestFrame(t, uuid.New(), VerbCount, 0, nil, nil)
	resp := Dispatch(p, frame)
	if resp[0] != byte(kv.StatusInvalidDatabase) {
		t.Errorf("expected StatusInvalidDatabase, got status byte %d", resp[0])
	}
}

func TestDispatchRejectsUnsupportedVerb(t *testing.T) {
	p, status := New(Config{Databases: []DatabaseConfig{{Name: "d", Type: "unordered"}}})
	if !status.IsOK() {
		t.Fatalf("failed to construct provider: %v", status)
	}
	defer p.Close()

	db, _ := p.LookupByName("d")
	frame := EncodeHeader(Header{DatabaseID: db.ID, Verb: VerbListKeys, Mode: 0})
	resp := Dispatch(p, frame)
	if resp[0] != byte(kv.StatusOpUnsupported) {
		t.Errorf("expected StatusOpUnsupported: the unordered backend has no ordering to list, got %d", resp[0])
	}
}
