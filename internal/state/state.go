package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/storage"
)

// AccountKeyPrefix is the storage key prefix for accounts.
var AccountKeyPrefix = []byte("a:")

// Account is a stored account: the owning program and its raw data.
type Account struct {
	Owner solana.PublicKey // Owner is the only program allowed to write Data
	Data  []byte           // Data is the program-defined payload
}

// State stores accounts by address over a storage KV.
// Bind it to a storage.Txn to stage writes for one transaction.
type State struct {
	kv storage.KV
}

// New creates a State over kv.
func New(kv storage.KV) *State {
	return &State{kv: kv}
}

// Get returns the account at key, or nil if it does not exist.
func (s *State) Get(key solana.PublicKey) (*Account, error) {
	data, err := s.kv.Get(AccountKey(key))
	if err != nil {
		return nil, fmt.Errorf("read account %s:\n%w", key, err)
	}

	if data == nil {
		return nil, nil
	}

	return DecodeAccount(data)
}

// Exists reports whether an account is stored at key.
func (s *State) Exists(key solana.PublicKey) (bool, error) {
	acc, err := s.Get(key)
	return acc != nil, err
}

// Set stores the account at key.
func (s *State) Set(key solana.PublicKey, acc *Account) error {
	if err := s.kv.Set(AccountKey(key), acc.Encode()); err != nil {
		return fmt.Errorf("write account %s:\n%w", key, err)
	}

	return nil
}

// Delete removes the account at key.
func (s *State) Delete(key solana.PublicKey) error {
	return s.kv.Delete(AccountKey(key))
}

// AccountKey builds the storage key for an account: "a:" + 32-byte address.
func AccountKey(key solana.PublicKey) []byte {
	buf := make([]byte, 0, len(AccountKeyPrefix)+len(key))
	buf = append(buf, AccountKeyPrefix...)
	return append(buf, key[:]...)
}

// Encode serializes the account as owner (32 bytes) + data.
func (a *Account) Encode() []byte {
	buf := make([]byte, 0, 32+len(a.Data))
	buf = append(buf, a.Owner[:]...)
	return append(buf, a.Data...)
}

// DecodeAccount parses a stored account.
func DecodeAccount(data []byte) (*Account, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("stored account too short: %d bytes", len(data))
	}

	acc := &Account{Owner: solana.PublicKeyFromBytes(data[:32])}
	acc.Data = make([]byte, len(data)-32)
	copy(acc.Data, data[32:])

	return acc, nil
}
