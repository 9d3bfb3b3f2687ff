package ledger

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
	"Satellite/internal/services"
)

// Token instruction tags, numbered like the token program's instruction enum.
const (
	TagInitializeMint uint8 = 0
	TagTransfer       uint8 = 3
	TagSetAuthority   uint8 = 6
	TagMintTo         uint8 = 7
)

// Process executes one token instruction.
func (l *Ledger) Process(accounts []program.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return program.ErrInvalidInstructionData
	}

	it := program.NewAccounts(accounts)
	auth := address.Signed(program.Signers(accounts)...)

	switch data[0] {
	case TagInitializeMint:
		return l.processInitializeMint(it, data[1:])

	case TagTransfer:
		amount, err := decodeAmount(data[1:])
		if err != nil {
			return err
		}

		keys, err := nextKeys(it, 2)
		if err != nil {
			return err
		}

		return l.Transfer(keys[0], keys[1], amount, auth)

	case TagSetAuthority:
		if len(data) < 2 || data[1] > uint8(services.CloseAccount) {
			return program.ErrInvalidInstructionData
		}

		newAuthority, rest, err := decodeOptionKey(data[2:])
		if err != nil || len(rest) != 0 {
			return program.ErrInvalidInstructionData
		}

		keys, err := nextKeys(it, 2)
		if err != nil {
			return err
		}

		return l.SetAuthority(services.SetAuthorityRequest{
			Target:       keys[0],
			Kind:         services.AuthorityType(data[1]),
			NewAuthority: newAuthority,
			Current:      keys[1],
		}, auth)

	case TagMintTo:
		amount, err := decodeAmount(data[1:])
		if err != nil {
			return err
		}

		keys, err := nextKeys(it, 2)
		if err != nil {
			return err
		}

		return l.MintTo(keys[0], keys[1], amount, auth)

	default:
		return program.Wrap(program.ErrInvalidInstructionData, "unknown token instruction %d", data[0])
	}
}

// processInitializeMint requires the mint account itself to sign so nobody
// can initialize a mint at an address they do not control.
func (l *Ledger) processInitializeMint(it *program.Accounts, data []byte) error {
	if len(data) < 33 {
		return program.ErrInvalidInstructionData
	}

	decimals := data[0]
	mintAuthority := solana.PublicKeyFromBytes(data[1:33])

	freeze, rest, err := decodeOptionKey(data[33:])
	if err != nil || len(rest) != 0 {
		return program.ErrInvalidInstructionData
	}

	mint, err := it.Next()
	if err != nil {
		return err
	}

	if !mint.IsSigner {
		return program.Wrap(program.ErrMissingRequiredSignature, "mint %s", mint.Key)
	}

	return l.InitializeMint(mint.Key, decimals, mintAuthority, freeze)
}

// Associated is the associated-account program: it creates the canonical
// token account of a (wallet, mint) pair.
type Associated struct {
	ledger *Ledger
}

// NewAssociated creates the associated-account program over l.
func NewAssociated(l *Ledger) *Associated {
	return &Associated{ledger: l}
}

// ProgramID returns the associated-account program identity.
func (a *Associated) ProgramID() solana.PublicKey {
	return address.AssociatedTokenProgramID
}

// Process creates the associated account named in accounts.
// Accounts: payer (signer), associated account, wallet, mint.
func (a *Associated) Process(accounts []program.AccountInfo, data []byte) error {
	if len(data) != 0 {
		return program.ErrInvalidInstructionData
	}

	it := program.NewAccounts(accounts)

	payer, err := it.Next()
	if err != nil {
		return err
	}

	if !payer.IsSigner {
		return program.Wrap(program.ErrMissingRequiredSignature, "payer %s", payer.Key)
	}

	keys, err := nextKeys(it, 3)
	if err != nil {
		return err
	}

	want, err := address.AssociatedTokenAccount(keys[1], keys[2])
	if err != nil {
		return err
	}

	if want != keys[0] {
		return program.Wrap(program.ErrInvalidSeeds, "associated account %s", keys[0])
	}

	_, err = a.ledger.CreateAssociatedAccount(keys[1], keys[2])
	return err
}

// InitializeMintInstruction builds an InitializeMint instruction.
func InitializeMintInstruction(mint solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) program.Instruction {
	data := []byte{TagInitializeMint, decimals}
	data = append(data, mintAuthority.Bytes()...)
	data = appendOptionKey(data, freezeAuthority)

	return program.Instruction{
		ProgramID: address.TokenProgramID,
		Accounts:  []program.AccountMeta{program.Meta(mint).Signer()},
		Data:      data,
	}
}

// TransferInstruction builds a Transfer instruction.
func TransferInstruction(source, dest, owner solana.PublicKey, amount uint64) program.Instruction {
	return program.Instruction{
		ProgramID: address.TokenProgramID,
		Accounts: []program.AccountMeta{
			program.Meta(source),
			program.Meta(dest),
			program.ReadOnly(owner).Signer(),
		},
		Data: amountData(TagTransfer, amount),
	}
}

// SetAuthorityInstruction builds a SetAuthority instruction.
func SetAuthorityInstruction(target solana.PublicKey, kind services.AuthorityType, newAuthority *solana.PublicKey, current solana.PublicKey) program.Instruction {
	return program.Instruction{
		ProgramID: address.TokenProgramID,
		Accounts: []program.AccountMeta{
			program.Meta(target),
			program.ReadOnly(current).Signer(),
		},
		Data: appendOptionKey([]byte{TagSetAuthority, uint8(kind)}, newAuthority),
	}
}

// MintToInstruction builds a MintTo instruction.
func MintToInstruction(mint, dest, authority solana.PublicKey, amount uint64) program.Instruction {
	return program.Instruction{
		ProgramID: address.TokenProgramID,
		Accounts: []program.AccountMeta{
			program.Meta(mint),
			program.Meta(dest),
			program.ReadOnly(authority).Signer(),
		},
		Data: amountData(TagMintTo, amount),
	}
}

// CreateAssociatedInstruction builds the instruction creating the associated
// account of (wallet, mint), returning it with the account address.
func CreateAssociatedInstruction(payer, wallet, mint solana.PublicKey) (program.Instruction, solana.PublicKey, error) {
	account, err := address.AssociatedTokenAccount(wallet, mint)
	if err != nil {
		return program.Instruction{}, solana.PublicKey{}, err
	}

	return program.Instruction{
		ProgramID: address.AssociatedTokenProgramID,
		Accounts: []program.AccountMeta{
			program.Meta(payer).Signer(),
			program.Meta(account),
			program.ReadOnly(wallet),
			program.ReadOnly(mint),
		},
	}, account, nil
}

// nextKeys reads the keys of the next n accounts.
func nextKeys(it *program.Accounts, n int) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, n)
	for i := range keys {
		acc, err := it.Next()
		if err != nil {
			return nil, err
		}
		keys[i] = acc.Key
	}

	return keys, nil
}

// amountData encodes a tag followed by a u64 amount.
func amountData(tag uint8, amount uint64) []byte {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	// Writes into a bytes.Buffer cannot fail.
	_ = enc.WriteUint8(tag)
	_ = enc.WriteUint64(amount, bin.LE)

	return buf.Bytes()
}

// decodeAmount reads an exact u64 payload.
func decodeAmount(data []byte) (uint64, error) {
	dec := bin.NewBorshDecoder(data)

	amount, err := dec.ReadUint64(bin.LE)
	if err != nil || dec.HasRemaining() {
		return 0, program.ErrInvalidInstructionData
	}

	return amount, nil
}

// decodeOptionKey reads a 0/1 tagged optional key and returns the remainder.
func decodeOptionKey(data []byte) (*solana.PublicKey, []byte, error) {
	dec := bin.NewBorshDecoder(data)

	tag, err := dec.ReadUint8()
	if err != nil || tag > 1 {
		return nil, nil, program.ErrInvalidInstructionData
	}

	if tag == 0 {
		return nil, data[dec.Position():], nil
	}

	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, nil, program.ErrInvalidInstructionData
	}

	key := solana.PublicKeyFromBytes(raw)
	return &key, data[dec.Position():], nil
}

// appendOptionKey writes a 0/1 tagged optional key.
func appendOptionKey(data []byte, key *solana.PublicKey) []byte {
	if key == nil {
		return append(data, 0)
	}

	data = append(data, 1)
	return append(data, key.Bytes()...)
}
