package instruction

import (
	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
)

// CustodyKeys names the seven accounts of Stake and Unstake, in order.
type CustodyKeys struct {
	Mint          solana.PublicKey // Mint is the master mint
	TokenAccount  solana.PublicKey // TokenAccount is the holder's associated account
	Custody       solana.PublicKey // Custody is the relayer address
	Authority     solana.PublicKey // Authority is the holder and metadata update authority
	Metadata      solana.PublicKey
	MasterEdition solana.PublicKey
	TokenProgram  solana.PublicKey
}

// NewCustodyKeys derives every Stake/Unstake account from the holder and mint.
func NewCustodyKeys(programID, authority, mint solana.PublicKey) (CustodyKeys, error) {
	account, err := address.AssociatedTokenAccount(authority, mint)
	if err != nil {
		return CustodyKeys{}, err
	}

	custody, _, err := address.Custody(programID)
	if err != nil {
		return CustodyKeys{}, err
	}

	metadata, _, err := address.Metadata(address.RegistryProgramID, mint)
	if err != nil {
		return CustodyKeys{}, err
	}

	master, _, err := address.Edition(address.RegistryProgramID, mint)
	if err != nil {
		return CustodyKeys{}, err
	}

	return CustodyKeys{
		Mint:          mint,
		TokenAccount:  account,
		Custody:       custody,
		Authority:     authority,
		Metadata:      metadata,
		MasterEdition: master,
		TokenProgram:  address.TokenProgramID,
	}, nil
}

func (k CustodyKeys) metas() []program.AccountMeta {
	return []program.AccountMeta{
		program.ReadOnly(k.Mint),
		program.Meta(k.TokenAccount),
		program.ReadOnly(k.Custody),
		program.ReadOnly(k.Authority).Signer(),
		program.ReadOnly(k.Metadata),
		program.ReadOnly(k.MasterEdition),
		program.ReadOnly(k.TokenProgram),
	}
}

// Stake builds a StakeMasterEdition instruction.
func Stake(programID solana.PublicKey, k CustodyKeys) program.Instruction {
	return program.Instruction{
		ProgramID: programID,
		Accounts:  k.metas(),
		Data:      Op{Kind: StakeMasterEdition}.Encode(),
	}
}

// Unstake builds an UnstakeMasterEdition instruction.
func Unstake(programID solana.PublicKey, k CustodyKeys) program.Instruction {
	return program.Instruction{
		ProgramID: programID,
		Accounts:  k.metas(),
		Data:      Op{Kind: UnstakeMasterEdition}.Encode(),
	}
}

// EditionKeys names the thirteen accounts of MintNewEdition, in order.
type EditionKeys struct {
	NewMetadata         solana.PublicKey
	NewEdition          solana.PublicKey
	MasterEdition       solana.PublicKey
	NewMint             solana.PublicKey
	NewUpdateAuthority  solana.PublicKey // NewUpdateAuthority pays, owns NewMint and administers the copy
	Custody             solana.PublicKey
	CustodyTokenAccount solana.PublicKey // CustodyTokenAccount holds the staked master token
	MasterMetadata      solana.PublicKey
	MasterMint          solana.PublicKey
	TokenProgram        solana.PublicKey
	SystemProgram       solana.PublicKey
	RegistryProgram     solana.PublicKey
	Rent                solana.PublicKey
}

// NewEditionKeys derives every MintNewEdition account. holder is the wallet
// whose associated account was staked; newMint must already hold one token
// minted by newUpdateAuthority.
func NewEditionKeys(programID, holder, masterMint, newMint, newUpdateAuthority solana.PublicKey) (EditionKeys, error) {
	registry := address.RegistryProgramID

	custody, err := NewCustodyKeys(programID, holder, masterMint)
	if err != nil {
		return EditionKeys{}, err
	}

	newMetadata, _, err := address.Metadata(registry, newMint)
	if err != nil {
		return EditionKeys{}, err
	}

	newEdition, _, err := address.Edition(registry, newMint)
	if err != nil {
		return EditionKeys{}, err
	}

	return EditionKeys{
		NewMetadata:         newMetadata,
		NewEdition:          newEdition,
		MasterEdition:       custody.MasterEdition,
		NewMint:             newMint,
		NewUpdateAuthority:  newUpdateAuthority,
		Custody:             custody.Custody,
		CustodyTokenAccount: custody.TokenAccount,
		MasterMetadata:      custody.Metadata,
		MasterMint:          masterMint,
		TokenProgram:        address.TokenProgramID,
		SystemProgram:       address.SystemProgramID,
		RegistryProgram:     registry,
		Rent:                address.RentSysvarID,
	}, nil
}

// MintNewEditionInstruction builds a MintNewEdition instruction for copy edition.
func MintNewEditionInstruction(programID solana.PublicKey, k EditionKeys, edition uint64) program.Instruction {
	return program.Instruction{
		ProgramID: programID,
		Accounts: []program.AccountMeta{
			program.Meta(k.NewMetadata),
			program.Meta(k.NewEdition),
			program.Meta(k.MasterEdition),
			program.Meta(k.NewMint),
			program.Meta(k.NewUpdateAuthority).Signer(),
			program.ReadOnly(k.Custody),
			program.ReadOnly(k.CustodyTokenAccount),
			program.ReadOnly(k.MasterMetadata),
			program.ReadOnly(k.MasterMint),
			program.ReadOnly(k.TokenProgram),
			program.ReadOnly(k.SystemProgram),
			program.ReadOnly(k.RegistryProgram),
			program.ReadOnly(k.Rent),
		},
		Data: Op{Kind: MintNewEdition, Edition: edition}.Encode(),
	}
}
