package common

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello batchkv")

	if err := WriteFrame(&buf, 42, payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	id, data, err := ReadFrame(&buf, nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if id != 42 {
		t.Errorf("expected request ID 42, got %d", id)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("expected payload %q, got %q", payload, data)
	}
}

func TestReadFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, 7, nil); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	id, data, err := ReadFrame(&buf, nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if id != 7 {
		t.Errorf("expected request ID 7, got %d", id)
	}
	if len(data) != 0 {
		t.Errorf("expected an empty payload, got %d bytes", len(data))
	}
}

func TestReadFrameReusesScratchBuffer(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("0123456789")
	if err := WriteFrame(&buf, 1, payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	scratch := make([]byte, 0, 64)
	_, data, err := ReadFrame(&buf, scratch)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("expected payload %q, got %q", payload, data)
	}
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 1})
	if _, _, err := ReadFrame(buf, nil); err == nil {
		t.Errorf("expected an error reading a truncated frame header")
	}
}

func TestReadFrameTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, 1, []byte("full payload")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])

	if _, _, err := ReadFrame(truncated, nil); err == nil {
		t.Errorf("expected an error reading a truncated frame body")
	}
}

func TestWriteFrameMultipleMessagesSequentially(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, 1, []byte("first")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := WriteFrame(&buf, 2, []byte("second")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	id, data, err := ReadFrame(&buf, nil)
	if err != nil || id != 1 || string(data) != "first" {
		t.Fatalf("unexpected first frame: id=%d data=%q err=%v", id, data, err)
	}
	id, data, err = ReadFrame(&buf, nil)
	if err != nil || id != 2 || string(data) != "second" {
		t.Fatalf("unexpected second frame: id=%d data=%q err=%v", id, data, err)
	}
}
