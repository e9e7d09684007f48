package kv

import "testing"

func TestDefaultComparatorRegistered(t *testing.T) {
	cmp, ok := LookupComparator("default")
	if !ok {
		t.Fatal("expected the default comparator to be registered by init()")
	}

	if cmp([]byte("a"), []byte("b")) >= 0 {
		t.Errorf("expected a < b")
	}
	if cmp([]byte("ab"), []byte("a")) <= 0 {
		t.Errorf("expected a longer key sharing a prefix to sort after the shorter one")
	}
	if cmp([]byte("x"), []byte("x")) != 0 {
		t.Errorf("expected equal keys to compare equal")
	}
}

func TestBackendRegistry(t *testing.T) {
	RegisterBackend("test-only-backend", func(config []byte) (Backend, Status) {
		return nil, StatusOK
	})

	found := false
	for _, name := range KnownBackends() {
		if name == "test-only-backend" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected test-only-backend to be registered")
	}

	if _, status := NewBackend("no-such-backend", nil); status != StatusInvalidBackend {
		t.Errorf("expected StatusInvalidBackend for an unregistered type, got %v", status)
	}
}
