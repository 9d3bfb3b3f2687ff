// Package ledger is an in-process Token Ledger Service. It keeps mints and
// token accounts in the SPL Token Pack layout and authorizes every authority
// change against the current authority on file.
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
	"Satellite/internal/records"
	"Satellite/internal/services"
	"Satellite/internal/state"
)

// Token errors. Codes follow the token program's error enum.
var (
	ErrInsufficientFunds         = program.Custom(1, "insufficient funds")
	ErrInvalidMint               = program.Custom(2, "invalid mint")
	ErrMintMismatch              = program.Custom(3, "account not associated with this mint")
	ErrOwnerMismatch             = program.Custom(4, "owner does not match")
	ErrFixedSupply               = program.Custom(5, "fixed supply")
	ErrAlreadyInUse              = program.Custom(6, "already in use")
	ErrUninitializedState        = program.Custom(9, "state is uninitialized")
	ErrOverflow                  = program.Custom(14, "operation overflowed")
	ErrAuthorityTypeNotSupported = program.Custom(15, "account does not support specified authority type")
	ErrMintCannotFreeze          = program.Custom(16, "this token mint cannot freeze accounts")
	ErrAccountFrozen             = program.Custom(17, "account is frozen")
)

// Ledger implements services.TokenLedger over an account State.
type Ledger struct {
	st *state.State
}

var _ services.TokenLedger = (*Ledger)(nil)

// New creates a ledger over st.
func New(st *state.State) *Ledger {
	return &Ledger{st: st}
}

// ProgramID returns the ledger's program identity.
func (l *Ledger) ProgramID() solana.PublicKey {
	return address.TokenProgramID
}

// InitializeMint creates a mint at key.
func (l *Ledger) InitializeMint(key solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) error {
	if ok, err := l.st.Exists(key); err != nil {
		return err
	} else if ok {
		return program.Wrap(ErrAlreadyInUse, "initialize mint %s", key)
	}

	mint := &records.Mint{
		MintAuthority:   &mintAuthority,
		Decimals:        decimals,
		IsInitialized:   true,
		FreezeAuthority: freezeAuthority,
	}

	return l.st.Set(key, &state.Account{Owner: l.ProgramID(), Data: mint.Encode()})
}

// CreateAssociatedAccount creates the canonical token account of (wallet, mint)
// and returns its address. Creating an existing associated account fails.
func (l *Ledger) CreateAssociatedAccount(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	if _, err := l.Mint(mint); err != nil {
		return solana.PublicKey{}, err
	}

	key, err := address.AssociatedTokenAccount(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if ok, err := l.st.Exists(key); err != nil {
		return solana.PublicKey{}, err
	} else if ok {
		return solana.PublicKey{}, program.Wrap(ErrAlreadyInUse, "associated account %s", key)
	}

	acc := &records.TokenAccount{
		Mint:  mint,
		Owner: wallet,
		State: records.AccountInitialized,
	}

	if err := l.st.Set(key, &state.Account{Owner: l.ProgramID(), Data: acc.Encode()}); err != nil {
		return solana.PublicKey{}, err
	}

	return key, nil
}

// MintTo mints amount new tokens of mint into dest.
// The mint authority must approve.
func (l *Ledger) MintTo(mintKey, dest solana.PublicKey, amount uint64, auth address.Authority) error {
	mint, err := l.Mint(mintKey)
	if err != nil {
		return err
	}

	acc, err := l.TokenAccount(dest)
	if err != nil {
		return err
	}

	if acc.Mint != mintKey {
		return program.Wrap(ErrMintMismatch, "mint to %s", dest)
	}

	if acc.State == records.AccountFrozen {
		return program.Wrap(ErrAccountFrozen, "mint to %s", dest)
	}

	if mint.MintAuthority == nil {
		return program.Wrap(ErrFixedSupply, "mint %s", mintKey)
	}

	if !auth.Authorizes(*mint.MintAuthority) {
		return program.Wrap(program.ErrMissingRequiredSignature, "mint authority %s", *mint.MintAuthority)
	}

	if mint.Supply+amount < mint.Supply || acc.Amount+amount < acc.Amount {
		return ErrOverflow
	}

	mint.Supply += amount
	acc.Amount += amount

	if err := l.putMint(mintKey, mint); err != nil {
		return err
	}

	return l.putTokenAccount(dest, acc)
}

// Transfer moves amount tokens between two accounts of the same mint.
// The source owner must approve.
func (l *Ledger) Transfer(source, dest solana.PublicKey, amount uint64, auth address.Authority) error {
	from, err := l.TokenAccount(source)
	if err != nil {
		return err
	}

	to, err := l.TokenAccount(dest)
	if err != nil {
		return err
	}

	if from.Mint != to.Mint {
		return program.Wrap(ErrMintMismatch, "transfer %s to %s", source, dest)
	}

	if from.State == records.AccountFrozen || to.State == records.AccountFrozen {
		return program.Wrap(ErrAccountFrozen, "transfer %s to %s", source, dest)
	}

	if !auth.Authorizes(from.Owner) {
		return program.Wrap(program.ErrMissingRequiredSignature, "owner %s of %s", from.Owner, source)
	}

	if from.Amount < amount {
		return program.Wrap(ErrInsufficientFunds, "%s holds %d, need %d", source, from.Amount, amount)
	}

	if source == dest {
		return nil
	}

	if to.Amount+amount < to.Amount {
		return ErrOverflow
	}

	from.Amount -= amount
	to.Amount += amount

	if err := l.putTokenAccount(source, from); err != nil {
		return err
	}

	return l.putTokenAccount(dest, to)
}

// SetAuthority reassigns an authority of a mint or token account.
// req.Current must be the authority on file and must be approved by auth.
func (l *Ledger) SetAuthority(req services.SetAuthorityRequest, auth address.Authority) error {
	acc, err := l.owned(req.Target)
	if err != nil {
		return err
	}

	switch len(acc.Data) {
	case records.TokenAccountSize:
		return l.setAccountAuthority(req, acc.Data, auth)
	case records.MintSize:
		return l.setMintAuthority(req, acc.Data, auth)
	default:
		return program.Wrap(program.ErrInvalidAccountData, "set authority on %s", req.Target)
	}
}

// setAccountAuthority handles SetAuthority on a token account.
func (l *Ledger) setAccountAuthority(req services.SetAuthorityRequest, data []byte, auth address.Authority) error {
	acc, err := records.DecodeTokenAccount(data)
	if err != nil {
		return program.Wrap(program.ErrInvalidAccountData, "%v", err)
	}

	if acc.State == records.AccountUninitialized {
		return ErrUninitializedState
	}

	if acc.State == records.AccountFrozen {
		return program.Wrap(ErrAccountFrozen, "set authority on %s", req.Target)
	}

	switch req.Kind {
	case services.AccountOwner:
		if acc.Owner != req.Current {
			return program.Wrap(ErrOwnerMismatch, "account %s owned by %s, not %s", req.Target, acc.Owner, req.Current)
		}

		if req.NewAuthority == nil {
			return program.Wrap(program.ErrInvalidArgument, "account owner cannot be cleared")
		}

		if !auth.Authorizes(req.Current) {
			return program.Wrap(program.ErrMissingRequiredSignature, "account owner %s", req.Current)
		}

		acc.Owner = *req.NewAuthority
		acc.Delegate = nil
		acc.DelegatedAmount = 0

	case services.CloseAccount:
		current := acc.Owner
		if acc.CloseAuthority != nil {
			current = *acc.CloseAuthority
		}

		if current != req.Current {
			return program.Wrap(ErrOwnerMismatch, "close authority of %s", req.Target)
		}

		if !auth.Authorizes(req.Current) {
			return program.Wrap(program.ErrMissingRequiredSignature, "close authority %s", req.Current)
		}

		acc.CloseAuthority = req.NewAuthority

	default:
		return ErrAuthorityTypeNotSupported
	}

	return l.putTokenAccount(req.Target, acc)
}

// setMintAuthority handles SetAuthority on a mint.
func (l *Ledger) setMintAuthority(req services.SetAuthorityRequest, data []byte, auth address.Authority) error {
	mint, err := records.DecodeMint(data)
	if err != nil {
		return program.Wrap(program.ErrInvalidAccountData, "%v", err)
	}

	if !mint.IsInitialized {
		return ErrUninitializedState
	}

	var slot **solana.PublicKey
	switch req.Kind {
	case services.MintTokens:
		if mint.MintAuthority == nil {
			return ErrFixedSupply
		}
		slot = &mint.MintAuthority
	case services.FreezeAccount:
		if mint.FreezeAuthority == nil {
			return ErrMintCannotFreeze
		}
		slot = &mint.FreezeAuthority
	default:
		return ErrAuthorityTypeNotSupported
	}

	if **slot != req.Current {
		return program.Wrap(ErrOwnerMismatch, "mint %s authority is %s, not %s", req.Target, **slot, req.Current)
	}

	if !auth.Authorizes(req.Current) {
		return program.Wrap(program.ErrMissingRequiredSignature, "mint authority %s", req.Current)
	}

	*slot = req.NewAuthority

	return l.putMint(req.Target, mint)
}

// Mint loads a mint.
func (l *Ledger) Mint(key solana.PublicKey) (*records.Mint, error) {
	acc, err := l.owned(key)
	if err != nil {
		return nil, err
	}

	mint, err := records.DecodeMint(acc.Data)
	if err != nil {
		return nil, program.Wrap(ErrInvalidMint, "%s: %v", key, err)
	}

	if !mint.IsInitialized {
		return nil, program.Wrap(ErrUninitializedState, "mint %s", key)
	}

	return mint, nil
}

// TokenAccount loads a token account.
func (l *Ledger) TokenAccount(key solana.PublicKey) (*records.TokenAccount, error) {
	acc, err := l.owned(key)
	if err != nil {
		return nil, err
	}

	tok, err := records.DecodeTokenAccount(acc.Data)
	if err != nil {
		return nil, program.Wrap(program.ErrInvalidAccountData, "%s: %v", key, err)
	}

	if tok.State == records.AccountUninitialized {
		return nil, program.Wrap(ErrUninitializedState, "token account %s", key)
	}

	return tok, nil
}

// owned loads an account and checks the ledger owns it.
func (l *Ledger) owned(key solana.PublicKey) (*state.Account, error) {
	acc, err := l.st.Get(key)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		return nil, program.Wrap(program.ErrUninitializedAccount, "account %s", key)
	}

	if acc.Owner != l.ProgramID() {
		return nil, program.Wrap(program.ErrIncorrectProgramID, "account %s owned by %s", key, acc.Owner)
	}

	return acc, nil
}

// putMint stores a mint.
func (l *Ledger) putMint(key solana.PublicKey, mint *records.Mint) error {
	if err := l.st.Set(key, &state.Account{Owner: l.ProgramID(), Data: mint.Encode()}); err != nil {
		return fmt.Errorf("store mint:\n%w", err)
	}
	return nil
}

// putTokenAccount stores a token account.
func (l *Ledger) putTokenAccount(key solana.PublicKey, acc *records.TokenAccount) error {
	if err := l.st.Set(key, &state.Account{Owner: l.ProgramID(), Data: acc.Encode()}); err != nil {
		return fmt.Errorf("store token account:\n%w", err)
	}
	return nil
}
