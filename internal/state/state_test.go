package state

import (
	"bytes"
	"os"
	"testing"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/storage"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "state_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestAccountStore(t *testing.T) {
	st := New(newTestStorage(t))

	key := solana.PublicKey{0x01, 0x02, 0x03}
	acc := &Account{Owner: solana.TokenProgramID, Data: []byte("token data")}

	if err := st.Set(key, acc); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := st.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Owner != solana.TokenProgramID || !bytes.Equal(got.Data, acc.Data) {
		t.Errorf("got %+v, want %+v", got, acc)
	}

	// Missing account
	missing, err := st.Get(solana.PublicKey{0xff})
	if err != nil || missing != nil {
		t.Errorf("expected nil account, got %+v (err %v)", missing, err)
	}

	if err := st.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if ok, _ := st.Exists(key); ok {
		t.Error("expected account to be gone after delete")
	}
}

func TestStateOverTxn(t *testing.T) {
	db := newTestStorage(t)
	key := solana.PublicKey{0x07}

	txn := db.NewTxn()
	staged := New(txn)

	if err := staged.Set(key, &Account{Owner: solana.SystemProgramID, Data: []byte{1}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if ok, _ := staged.Exists(key); !ok {
		t.Error("staged write should be visible through the txn")
	}

	if ok, _ := New(db).Exists(key); ok {
		t.Error("staged write must not be visible before commit")
	}

	txn.Discard()

	if ok, _ := New(db).Exists(key); ok {
		t.Error("discarded write must never land")
	}
}

func TestDecodeAccountTooShort(t *testing.T) {
	if _, err := DecodeAccount(make([]byte, 31)); err == nil {
		t.Error("expected error for short account")
	}
}
