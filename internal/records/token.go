package records

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Pack layout sizes.
const (
	MintSize         = 82
	TokenAccountSize = 165
)

// Mint is a token mint in the ledger's Pack layout.
type Mint struct {
	MintAuthority   *solana.PublicKey // MintAuthority may mint new tokens; nil fixes the supply
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// Encode serializes the mint into its 82-byte layout.
func (m *Mint) Encode() []byte {
	w := &writer{buf: make([]byte, 0, MintSize)}

	w.coptionKey(m.MintAuthority)
	w.u64(m.Supply)
	w.u8(m.Decimals)
	w.bool(m.IsInitialized)
	w.coptionKey(m.FreezeAuthority)

	return w.buf
}

// DecodeMint parses a mint.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("mint: size %d, want %d:\n%w", len(data), MintSize, ErrShortData)
	}

	r := &reader{data: data}
	m := &Mint{
		MintAuthority:   r.coptionKey(),
		Supply:          r.u64(),
		Decimals:        r.u8(),
		IsInitialized:   r.bool(),
		FreezeAuthority: r.coptionKey(),
	}

	if r.err != nil {
		return nil, fmt.Errorf("mint:\n%w", r.err)
	}

	return m, nil
}

// AccountState is the lifecycle state of a token account.
type AccountState uint8

// Token account states.
const (
	AccountUninitialized AccountState = 0
	AccountInitialized   AccountState = 1
	AccountFrozen        AccountState = 2
)

// TokenAccount holds a balance of one mint for one owner.
type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey // Owner is the authority allowed to move or reassign the balance
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

// Encode serializes the account into its 165-byte layout.
func (a *TokenAccount) Encode() []byte {
	w := &writer{buf: make([]byte, 0, TokenAccountSize)}

	w.key(a.Mint)
	w.key(a.Owner)
	w.u64(a.Amount)
	w.coptionKey(a.Delegate)
	w.u8(uint8(a.State))
	w.coptionU64(a.IsNative)
	w.u64(a.DelegatedAmount)
	w.coptionKey(a.CloseAuthority)

	return w.buf
}

// DecodeTokenAccount parses a token account.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return nil, fmt.Errorf("token account: size %d, want %d:\n%w", len(data), TokenAccountSize, ErrShortData)
	}

	r := &reader{data: data}
	a := &TokenAccount{
		Mint:            r.key(),
		Owner:           r.key(),
		Amount:          r.u64(),
		Delegate:        r.coptionKey(),
		State:           AccountState(r.u8()),
		IsNative:        r.coptionU64(),
		DelegatedAmount: r.u64(),
		CloseAuthority:  r.coptionKey(),
	}

	if r.err != nil {
		return nil, fmt.Errorf("token account:\n%w", r.err)
	}

	return a, nil
}
