package registry

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
	"Satellite/internal/records"
)

// Registry instruction tags, numbered like the metadata program's instruction enum.
const (
	TagCreateMetadata      uint8 = 0
	TagCreateMasterEdition uint8 = 10
)

// createMetadataArgs is the Borsh payload of CreateMetadata.
type createMetadataArgs struct {
	Data      records.Data
	IsMutable bool
}

// createMasterEditionArgs is the Borsh payload of CreateMasterEdition.
type createMasterEditionArgs struct {
	MaxSupply *uint64 `bin:"optional"`
}

// Process executes one registry instruction. Printing is not exposed here:
// copies are only issued through a program holding the master token.
func (r *Registry) Process(accounts []program.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return program.ErrInvalidInstructionData
	}

	it := program.NewAccounts(accounts)
	auth := address.Signed(program.Signers(accounts)...)

	switch data[0] {
	case TagCreateMetadata:
		var args createMetadataArgs
		if err := decodeArgs(data[1:], &args); err != nil {
			return err
		}

		// Accounts: metadata, mint, mint authority (signer), update authority
		keys, err := nextKeys(it, 4)
		if err != nil {
			return err
		}

		if err := r.expect(keys[0], address.MetadataSeeds(r.ProgramID(), keys[1]), ErrInvalidMetadataKey); err != nil {
			return err
		}

		if args.Data.Creators != nil {
			for _, c := range *args.Data.Creators {
				if c.Verified && !auth.Authorizes(c.Address) {
					return program.Wrap(program.ErrMissingRequiredSignature, "verified creator %s", c.Address)
				}
			}
		}

		_, err = r.CreateMetadata(keys[1], keys[3], args.Data, args.IsMutable, auth)
		return err

	case TagCreateMasterEdition:
		var args createMasterEditionArgs
		if err := decodeArgs(data[1:], &args); err != nil {
			return err
		}

		// Accounts: edition, mint, update authority (signer), mint authority (signer), metadata
		keys, err := nextKeys(it, 5)
		if err != nil {
			return err
		}

		if err := r.expect(keys[0], address.EditionSeeds(r.ProgramID(), keys[1]), ErrInvalidEditionKey); err != nil {
			return err
		}

		if err := r.expect(keys[4], address.MetadataSeeds(r.ProgramID(), keys[1]), ErrInvalidMetadataKey); err != nil {
			return err
		}

		_, err = r.CreateMasterEdition(keys[1], keys[2], keys[3], args.MaxSupply, auth)
		return err

	default:
		return program.Wrap(program.ErrInvalidInstructionData, "unknown registry instruction %d", data[0])
	}
}

// expect fails with code unless key is the registry address derived from seeds.
func (r *Registry) expect(key solana.PublicKey, seeds [][]byte, code *program.Error) error {
	if _, err := address.Verify(r.ProgramID(), key, seeds); err != nil {
		return program.Wrap(code, "%s", key)
	}

	return nil
}

// CreateMetadataInstruction builds a CreateMetadata instruction for mint.
func CreateMetadataInstruction(mint, mintAuthority, updateAuthority solana.PublicKey, data records.Data, isMutable bool) (program.Instruction, error) {
	metadata, _, err := address.Metadata(address.RegistryProgramID, mint)
	if err != nil {
		return program.Instruction{}, err
	}

	payload, err := encodeArgs(TagCreateMetadata, createMetadataArgs{Data: data, IsMutable: isMutable})
	if err != nil {
		return program.Instruction{}, err
	}

	return program.Instruction{
		ProgramID: address.RegistryProgramID,
		Accounts: []program.AccountMeta{
			program.Meta(metadata),
			program.ReadOnly(mint),
			program.ReadOnly(mintAuthority).Signer(),
			program.ReadOnly(updateAuthority),
		},
		Data: payload,
	}, nil
}

// CreateMasterEditionInstruction builds a CreateMasterEdition instruction
// for mint. A nil maxSupply allows unbounded printing.
func CreateMasterEditionInstruction(mint, updateAuthority, mintAuthority solana.PublicKey, maxSupply *uint64) (program.Instruction, error) {
	edition, _, err := address.Edition(address.RegistryProgramID, mint)
	if err != nil {
		return program.Instruction{}, err
	}

	metadata, _, err := address.Metadata(address.RegistryProgramID, mint)
	if err != nil {
		return program.Instruction{}, err
	}

	payload, err := encodeArgs(TagCreateMasterEdition, createMasterEditionArgs{MaxSupply: maxSupply})
	if err != nil {
		return program.Instruction{}, err
	}

	return program.Instruction{
		ProgramID: address.RegistryProgramID,
		Accounts: []program.AccountMeta{
			program.Meta(edition),
			program.Meta(mint),
			program.ReadOnly(updateAuthority).Signer(),
			program.ReadOnly(mintAuthority).Signer(),
			program.ReadOnly(metadata),
		},
		Data: payload,
	}, nil
}

// encodeArgs prefixes the Borsh encoding of args with tag.
func encodeArgs(tag uint8, args any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tag)

	if err := bin.NewBorshEncoder(&buf).Encode(args); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeArgs reads a Borsh payload that must span all of data.
func decodeArgs(data []byte, args any) error {
	dec := bin.NewBorshDecoder(data)
	if err := dec.Decode(args); err != nil {
		return program.Wrap(program.ErrInvalidInstructionData, "%v", err)
	}

	if dec.HasRemaining() {
		return program.Wrap(program.ErrInvalidInstructionData, "%d trailing bytes", dec.Remaining())
	}

	return nil
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
