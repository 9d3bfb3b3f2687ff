package address

import (
	"github.com/gagliardetto/solana-go"
)

// Signer is the capability to act as a PDA: the seeds and bump that reproduce
// the address under the invoking program. It stands in for a signature the
// address can never produce.
type Signer struct {
	Program solana.PublicKey // Program is the invoking program that owns the derivation
	Seeds   [][]byte         // Seeds is the seed path without the bump
	Bump    uint8            // Bump is the canonical bump returned by Verify
}

// NewSigner builds the capability for seeds under programID.
func NewSigner(programID solana.PublicKey, seeds [][]byte, bump uint8) Signer {
	return Signer{Program: programID, Seeds: seeds, Bump: bump}
}

// Address recomputes the PDA this capability stands for.
func (s Signer) Address() (solana.PublicKey, bool) {
	path := make([][]byte, 0, len(s.Seeds)+1)
	path = append(path, s.Seeds...)
	path = append(path, []byte{s.Bump})

	key, err := solana.CreateProgramAddress(path, s.Program)
	if err != nil {
		return solana.PublicKey{}, false
	}

	return key, true
}

// Authority is the set of identities that approved an operation: keys that
// signed the transaction plus PDAs proven by capability.
type Authority struct {
	Signers []solana.PublicKey // Signers signed the enclosing transaction
	Derived []Signer           // Derived are PDA capabilities presented by the caller
}

// Signed returns an Authority backed only by transaction signatures.
func Signed(keys ...solana.PublicKey) Authority {
	return Authority{Signers: keys}
}

// Authorizes reports whether key approved the operation.
func (a Authority) Authorizes(key solana.PublicKey) bool {
	for _, s := range a.Signers {
		if s == key {
			return true
		}
	}

	for _, d := range a.Derived {
		if addr, ok := d.Address(); ok && addr == key {
			return true
		}
	}

	return false
}
