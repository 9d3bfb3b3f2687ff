// Package custody is the custody program. Stake moves a master collectible's
// token account under the program's relayer address, MintNewEdition prints
// numbered copies while it is held there, and Unstake hands it back once every
// permitted copy is issued.
//
// The program keeps no state of its own: whether a master is staked is read
// from the token account and master record on every call.
package custody

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/instruction"
	"Satellite/internal/program"
	"Satellite/internal/services"
)

// Processor executes custody instructions against the token ledger and the
// collectible registry.
type Processor struct {
	programID solana.PublicKey
	ledger    services.TokenLedger
	registry  services.CollectibleRegistry
}

var _ program.Processor = (*Processor)(nil)

// NewProcessor creates the custody program identified by programID.
func NewProcessor(programID solana.PublicKey, ledger services.TokenLedger, registry services.CollectibleRegistry) *Processor {
	return &Processor{
		programID: programID,
		ledger:    ledger,
		registry:  registry,
	}
}

// ProgramID returns the custody program identity.
func (p *Processor) ProgramID() solana.PublicKey {
	return p.programID
}

// Process decodes data and dispatches to the selected operation.
func (p *Processor) Process(accounts []program.AccountInfo, data []byte) error {
	op, err := instruction.Decode(data)
	if err != nil {
		return err
	}

	switch op.Kind {
	case instruction.StakeMasterEdition:
		return p.Stake(accounts)
	case instruction.UnstakeMasterEdition:
		return p.Unstake(accounts)
	default:
		return p.MintNewEdition(accounts, op.Edition)
	}
}

// Stake reassigns the holder's token account to the custody address.
// The holder's own signature authorizes the change.
func (p *Processor) Stake(accounts []program.AccountInfo) error {
	a, err := parseCustodyAccounts(accounts)
	if err != nil {
		return err
	}

	if err := p.checkProgram(a.tokenProgram, p.ledger.ProgramID()); err != nil {
		return err
	}

	if _, err := p.validateForStake(a); err != nil {
		return err
	}

	custody := a.custody.Key

	err = p.ledger.SetAuthority(services.SetAuthorityRequest{
		Target:       a.tokenAccount.Key,
		Kind:         services.AccountOwner,
		NewAuthority: &custody,
		Current:      a.authority.Key,
	}, address.Signed(a.authority.Key))
	if err != nil {
		return fmt.Errorf("stake %s:\n%w", a.mint.Key, err)
	}

	return nil
}

// Unstake reassigns the token account back to the holder, authorizing the
// change as the custody address.
func (p *Processor) Unstake(accounts []program.AccountInfo) error {
	a, err := parseCustodyAccounts(accounts)
	if err != nil {
		return err
	}

	if err := p.checkProgram(a.tokenProgram, p.ledger.ProgramID()); err != nil {
		return err
	}

	bump, err := p.validateForUnstake(a)
	if err != nil {
		return err
	}

	holder := a.authority.Key

	err = p.ledger.SetAuthority(services.SetAuthorityRequest{
		Target:       a.tokenAccount.Key,
		Kind:         services.AccountOwner,
		NewAuthority: &holder,
		Current:      a.custody.Key,
	}, address.Authority{Derived: []address.Signer{p.custodySigner(bump)}})
	if err != nil {
		return fmt.Errorf("unstake %s:\n%w", a.mint.Key, err)
	}

	return nil
}

// MintNewEdition asks the registry to print copy edition of the staked
// master, co-authorized as the custody address. Relationship checks are left
// to the registry, which requires the custody address to hold the master token.
func (p *Processor) MintNewEdition(accounts []program.AccountInfo, edition uint64) error {
	it := program.NewAccounts(accounts)

	list := make([]*program.AccountInfo, 13)
	for i := range list {
		acc, err := it.Next()
		if err != nil {
			return err
		}
		list[i] = acc
	}

	newMetadata, newEdition, masterEdition, newMint := list[0], list[1], list[2], list[3]
	updateAuthority, custody, tokenAccount := list[4], list[5], list[6]
	masterMetadata, masterMint, tokenProgram, registryProgram := list[7], list[8], list[9], list[11]

	if err := p.checkProgram(tokenProgram, p.ledger.ProgramID()); err != nil {
		return err
	}

	if err := p.checkProgram(registryProgram, p.registry.ProgramID()); err != nil {
		return err
	}

	bump, err := p.verifyCustody(custody.Key)
	if err != nil {
		return err
	}

	auth := address.Authority{
		Signers: program.Signers(accounts),
		Derived: []address.Signer{p.custodySigner(bump)},
	}

	err = p.registry.MintNewEditionFromMasterEditionViaToken(services.MintEditionRequest{
		NewMetadata:                newMetadata.Key,
		NewEdition:                 newEdition.Key,
		MasterEdition:              masterEdition.Key,
		NewMint:                    newMint.Key,
		NewMintAuthority:           updateAuthority.Key,
		Payer:                      updateAuthority.Key,
		TokenAccountOwner:          custody.Key,
		TokenAccount:               tokenAccount.Key,
		NewMetadataUpdateAuthority: updateAuthority.Key,
		Metadata:                   masterMetadata.Key,
		MetadataMint:               masterMint.Key,
		Edition:                    edition,
	}, auth)
	if err != nil {
		return fmt.Errorf("mint edition %d of %s:\n%w", edition, masterMint.Key, err)
	}

	return nil
}

// custodySigner is the capability to act as the custody address.
func (p *Processor) custodySigner(bump uint8) address.Signer {
	return address.NewSigner(p.programID, address.CustodySeeds(p.programID), bump)
}

// checkProgram rejects a program account that is not the expected service.
func (p *Processor) checkProgram(acc *program.AccountInfo, want solana.PublicKey) error {
	if acc.Key != want {
		return program.Wrap(program.ErrIncorrectProgramID, "got program %s, want %s", acc.Key, want)
	}

	return nil
}
