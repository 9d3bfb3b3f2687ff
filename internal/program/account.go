// Package program defines the calling convention shared by the runtime and
// the programs it hosts: account views, instructions and coded errors.
package program

import (
	"github.com/gagliardetto/solana-go"
)

// AccountInfo is the view of one account passed to a program.
// Data is a copy; programs never mutate it in place.
type AccountInfo struct {
	Key        solana.PublicKey // Key is the account address
	IsSigner   bool             // IsSigner is true if the transaction carries its signature
	IsWritable bool             // IsWritable is true if the transaction may modify it
	Owner      solana.PublicKey // Owner is the program that owns the account data
	Data       []byte           // Data is the raw account data (nil if the account is empty)
}

// AccountMeta describes how an instruction references an account.
type AccountMeta struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta returns a writable account reference.
func Meta(key solana.PublicKey) AccountMeta {
	return AccountMeta{Key: key, IsWritable: true}
}

// ReadOnly returns a read-only account reference.
func ReadOnly(key solana.PublicKey) AccountMeta {
	return AccountMeta{Key: key}
}

// Signer marks the reference as requiring a signature.
func (m AccountMeta) Signer() AccountMeta {
	m.IsSigner = true
	return m
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Accounts walks a positional account list.
type Accounts struct {
	list []AccountInfo
	pos  int
}

// NewAccounts wraps a positional account list.
func NewAccounts(list []AccountInfo) *Accounts {
	return &Accounts{list: list}
}

// Next returns the next account or ErrNotEnoughAccountKeys.
func (a *Accounts) Next() (*AccountInfo, error) {
	if a.pos >= len(a.list) {
		return nil, ErrNotEnoughAccountKeys
	}

	acc := &a.list[a.pos]
	a.pos++

	return acc, nil
}

// Signers returns the keys of every account that signed.
func Signers(list []AccountInfo) []solana.PublicKey {
	var keys []solana.PublicKey
	for i := range list {
		if list[i].IsSigner {
			keys = append(keys, list[i].Key)
		}
	}

	return keys
}

// Processor executes instructions addressed to one program.
type Processor interface {
	ProgramID() solana.PublicKey
	Process(accounts []AccountInfo, data []byte) error
}
