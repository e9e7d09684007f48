package kv

import (
	"bytes"
	"testing"
)

func TestRunIterAndValidate(t *testing.T) {
	r := Run{Data: []byte("abc"), Sizes: []uint64{1, 2}}

	if r.Len() != 2 {
		t.Fatalf("expected Len 2, got %d", r.Len())
	}
	if r.Total() != 3 {
		t.Fatalf("expected Total 3, got %d", r.Total())
	}

	var got []string
	r.Iter(func(i int, elem []byte) bool {
		got = append(got, string(elem))
		return true
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "bc" {
		t.Fatalf("unexpected Iter result: %v", got)
	}

	if status := r.Validate(false); !status.IsOK() {
		t.Errorf("expected a valid run to pass Validate, got %v", status)
	}

	empty := Run{Data: []byte("a"), Sizes: []uint64{0, 1}}
	if status := empty.Validate(false); status != StatusInvalidArgs {
		t.Errorf("expected a zero-length element to be rejected when allowEmpty is false")
	}
	if status := empty.Validate(true); !status.IsOK() {
		t.Errorf("expected a zero-length element to be accepted when allowEmpty is true")
	}

	overflow := Run{Data: []byte("a"), Sizes: []uint64{5}}
	if status := overflow.Validate(true); status != StatusInvalidArgs {
		t.Errorf("expected an oversized run to be rejected")
	}
}

func TestBitField(t *testing.T) {
	bf := NewBitField(10)
	bf.Set(0, true)
	bf.Set(9, true)
	bf.Set(5, false)

	if !bf.Get(0) || !bf.Get(9) {
		t.Errorf("expected bits 0 and 9 to be set")
	}
	if bf.Get(5) || bf.Get(1) {
		t.Errorf("expected unset bits to read false")
	}
}

func TestUnpackedSinkWriteAndOverflow(t *testing.T) {
	sizes := []uint64{5, 5}
	sink := UnpackedSink{Data: make([]byte, 10), Sizes: sizes}

	n := sink.Write(0, []byte("ab"))
	if n != 2 || sink.Sizes[0] != 2 {
		t.Errorf("expected write of 2 bytes, got n=%d sizes[0]=%d", n, sink.Sizes[0])
	}

	n = sink.Write(1, []byte("toolong!!"))
	if n != SizeTooSmall || sink.Sizes[1] != SizeTooSmall {
		t.Errorf("expected SizeTooSmall for an oversized write, got n=%d", n)
	}

	sink.MarkNotFound(1)
	if sink.Sizes[1] != KeyNotFound {
		t.Errorf("expected KeyNotFound after MarkNotFound")
	}

	if sink.Len() != 2 {
		t.Errorf("expected Len 2, got %d", sink.Len())
	}
}

func TestPackedSinkOverflowMonotonicity(t *testing.T) {
	sizes := make([]uint64, 3)
	sink := &PackedSink{Data: make([]byte, 4), Sizes: sizes}

	n := sink.Write(0, []byte("ab"))
	if n != 2 {
		t.Fatalf("expected first write to succeed with n=2, got %d", n)
	}

	n = sink.Write(1, []byte("abc"))
	if n != SizeTooSmall {
		t.Fatalf("expected second write to overflow, got n=%d", n)
	}

	// once overflowed, every subsequent slot is stamped SizeTooSmall too,
	// even one that would otherwise fit.
	n = sink.Write(2, []byte("a"))
	if n != SizeTooSmall {
		t.Fatalf("expected overflow to be sticky, got n=%d", n)
	}

	if !bytes.Equal(sink.Data[:2], []byte("ab")) {
		t.Errorf("expected the first write's bytes to be preserved, got %q", sink.Data[:2])
	}
}

func TestFillRemaining(t *testing.T) {
	sizes := make([]uint64, 4)
	sink := UnpackedSink{Data: make([]byte, 10), Sizes: sizes}
	sink.Write(0, []byte("a"))

	FillRemaining(sink, 1)

	if sink.Sizes[0] == NoMoreKeys {
		t.Errorf("did not expect slot 0 to be overwritten")
	}
	for i := 1; i < 4; i++ {
		if sink.Sizes[i] != NoMoreKeys {
			t.Errorf("expected slot %d to be stamped NoMoreKeys, got %d", i, sink.Sizes[i])
		}
	}
}

func TestKeyCopyPolicy(t *testing.T) {
	key := []byte("prefix-key")

	if got := KeyCopyPolicy(0, key, 0, false); !bytes.Equal(got, key) {
		t.Errorf("expected the key unchanged with no mode bits, got %q", got)
	}

	if got := KeyCopyPolicy(ModeIgnoreKeys, key, 0, false); got != nil {
		t.Errorf("expected nil under ModeIgnoreKeys, got %q", got)
	}

	if got := KeyCopyPolicy(ModeIgnoreKeys|ModeKeepLast, key, 0, true); !bytes.Equal(got, key) {
		t.Errorf("expected ModeKeepLast to override ModeIgnoreKeys on the last element, got %q", got)
	}

	if got := KeyCopyPolicy(ModeNoPrefix, key, 7, false); !bytes.Equal(got, []byte("key")) {
		t.Errorf("expected the prefix stripped, got %q", got)
	}

	if got := KeyCopyPolicy(ModeNoPrefix|ModeSuffix, key, 4, false); !bytes.Equal(got, []byte("prefix")) {
		t.Errorf("expected the suffix stripped, got %q", got)
	}
}
