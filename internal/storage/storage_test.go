package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := New(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStorage(t)

	key := []byte("test-key")
	value := []byte("test-value")

	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}
}

func TestGetNonExistent(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.Get([]byte("non-existent"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q, want nil", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)

	key := []byte("to-delete")

	if err := s.Set(key, []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get after Delete returned %q, want nil", got)
	}
}

func TestSetBatch(t *testing.T) {
	s := newTestStorage(t)

	pairs := []KeyValue{
		{Key: []byte("batch-1"), Value: []byte("value-1")},
		{Key: []byte("batch-2"), Value: []byte("value-2")},
	}

	if err := s.SetBatch(pairs); err != nil {
		t.Fatalf("SetBatch failed: %v", err)
	}

	for _, kv := range pairs {
		got, err := s.Get(kv.Key)
		if err != nil {
			t.Fatalf("Get failed for %q: %v", kv.Key, err)
		}

		if !bytes.Equal(got, kv.Value) {
			t.Errorf("Get(%q) = %q, want %q", kv.Key, got, kv.Value)
		}
	}
}

func TestIteratePrefix(t *testing.T) {
	s := newTestStorage(t)

	_ = s.Set([]byte("a:2"), []byte("two"))
	_ = s.Set([]byte("a:1"), []byte("one"))
	_ = s.Set([]byte("b:1"), []byte("other"))

	var keys []string
	err := s.IteratePrefix([]byte("a:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	if len(keys) != 2 || keys[0] != "a:1" || keys[1] != "a:2" {
		t.Errorf("keys = %v, want [a:1 a:2]", keys)
	}
}

func TestTxnCommit(t *testing.T) {
	s := newTestStorage(t)

	txn := s.NewTxn()
	if err := txn.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Staged writes are visible through the txn only
	got, _ := txn.Get([]byte("k"))
	if !bytes.Equal(got, []byte("v")) {
		t.Errorf("txn Get = %q, want %q", got, "v")
	}

	if got, _ := s.Get([]byte("k")); got != nil {
		t.Errorf("store Get before commit = %q, want nil", got)
	}

	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, _ = s.Get([]byte("k"))
	if !bytes.Equal(got, []byte("v")) {
		t.Errorf("store Get after commit = %q, want %q", got, "v")
	}
}

func TestTxnDiscard(t *testing.T) {
	s := newTestStorage(t)

	_ = s.Set([]byte("k"), []byte("before"))

	txn := s.NewTxn()
	_ = txn.Set([]byte("k"), []byte("after"))
	_ = txn.Delete([]byte("other"))
	txn.Discard()

	got, _ := s.Get([]byte("k"))
	if !bytes.Equal(got, []byte("before")) {
		t.Errorf("Get after discard = %q, want %q", got, "before")
	}

	if err := txn.Set([]byte("k"), nil); !errors.Is(err, ErrTxnClosed) {
		t.Errorf("Set after discard: got %v, want ErrTxnClosed", err)
	}

	if err := txn.Commit(); !errors.Is(err, ErrTxnClosed) {
		t.Errorf("Commit after discard: got %v, want ErrTxnClosed", err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	if got := prefixUpperBound([]byte("a:")); !bytes.Equal(got, []byte("a;")) {
		t.Errorf("upper bound of a: = %q", got)
	}

	if got := prefixUpperBound([]byte{0x01, 0xFF}); !bytes.Equal(got, []byte{0x02}) {
		t.Errorf("upper bound of 01ff = %x, want 02", got)
	}

	if got := prefixUpperBound([]byte{0xFF, 0xFF}); got != nil {
		t.Errorf("upper bound of ffff = %x, want nil", got)
	}
}
