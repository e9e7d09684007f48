package kv

import "testing"

func TestModeHasAndIsSubsetOf(t *testing.T) {
	m := ModeInclusive | ModeNotify

	if !m.Has(ModeInclusive) {
		t.Errorf("expected m to have ModeInclusive")
	}
	if m.Has(ModeAppend) {
		t.Errorf("did not expect m to have ModeAppend")
	}
	if !m.Has(ModeInclusive | ModeNotify) {
		t.Errorf("expected m to have both of its own bits at once")
	}

	if !m.IsSubsetOf(ModeInclusive | ModeNotify | ModeAppend) {
		t.Errorf("expected m to be a subset of a superset mask")
	}
	if m.IsSubsetOf(ModeInclusive) {
		t.Errorf("did not expect m to be a subset of a smaller mask")
	}
}

func TestModeString(t *testing.T) {
	if got := Mode(0).String(); got != "NONE" {
		t.Errorf("expected NONE for the zero mode, got %q", got)
	}

	got := (ModeInclusive | ModeNotify).String()
	if got != "INCLUSIVE|NOTIFY" {
		t.Errorf("expected %q, got %q", "INCLUSIVE|NOTIFY", got)
	}
}

func TestAllModeBits(t *testing.T) {
	bits := AllModeBits()
	if len(bits) == 0 {
		t.Fatal("expected at least one known mode bit")
	}
	var union Mode
	for _, b := range bits {
		union |= b
	}
	if union != modeAll {
		t.Errorf("expected AllModeBits to union to modeAll")
	}
}
