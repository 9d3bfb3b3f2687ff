package custody

import (
	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
	"Satellite/internal/records"
)

// custodyAccounts are the positional accounts of Stake and Unstake.
type custodyAccounts struct {
	mint          *program.AccountInfo
	tokenAccount  *program.AccountInfo
	custody       *program.AccountInfo
	authority     *program.AccountInfo
	metadata      *program.AccountInfo
	masterEdition *program.AccountInfo
	tokenProgram  *program.AccountInfo
}

// parseCustodyAccounts reads the seven Stake/Unstake accounts in order.
func parseCustodyAccounts(list []program.AccountInfo) (*custodyAccounts, error) {
	it := program.NewAccounts(list)
	a := &custodyAccounts{}

	for _, slot := range []**program.AccountInfo{
		&a.mint,
		&a.tokenAccount,
		&a.custody,
		&a.authority,
		&a.metadata,
		&a.masterEdition,
		&a.tokenProgram,
	} {
		acc, err := it.Next()
		if err != nil {
			return nil, err
		}
		*slot = acc
	}

	return a, nil
}

// validateForStake checks that the accounts describe a fresh master edition
// held by a signing authority, and returns the custody bump.
func (p *Processor) validateForStake(a *custodyAccounts) (uint8, error) {
	md, master, err := p.validateRecords(a)
	if err != nil {
		return 0, err
	}

	if master.Supply > 0 {
		return 0, program.Wrap(ErrWrongEdition, "%d copies already issued", master.Supply)
	}

	if md.Data.Creators != nil && !md.HasCreator(a.custody.Key) {
		return 0, program.Wrap(ErrSatelliteMustListAmongCreators, "custody %s", a.custody.Key)
	}

	tok, err := p.validateTokenAccount(a)
	if err != nil {
		return 0, err
	}

	if tok.Amount < 1 || tok.Owner != a.authority.Key {
		return 0, program.Wrap(ErrNotOwned, "balance %d held by %s", tok.Amount, tok.Owner)
	}

	return p.verifyCustody(a.custody.Key)
}

// validateForUnstake checks that every permitted copy was issued and the
// master token sits in custody, and returns the custody bump.
func (p *Processor) validateForUnstake(a *custodyAccounts) (uint8, error) {
	_, master, err := p.validateRecords(a)
	if err != nil {
		return 0, err
	}

	if master.MaxSupply != nil && master.Supply != *master.MaxSupply {
		return 0, program.Wrap(ErrOngoingSales, "%d of %d copies issued", master.Supply, *master.MaxSupply)
	}

	tok, err := p.validateTokenAccount(a)
	if err != nil {
		return 0, err
	}

	if tok.Amount != 1 || tok.Owner != a.custody.Key {
		return 0, program.Wrap(ErrNotOwned, "balance %d held by %s", tok.Amount, tok.Owner)
	}

	return p.verifyCustody(a.custody.Key)
}

// validateRecords runs the checks shared by Stake and Unstake: the signer
// administers the metadata, the metadata and master record belong to the
// mint, and the master record is a V2 master edition.
func (p *Processor) validateRecords(a *custodyAccounts) (*records.Metadata, *records.MasterEdition, error) {
	registry := p.registry.ProgramID()

	data, err := ownedData(a.metadata, registry)
	if err != nil {
		return nil, nil, err
	}

	md, err := records.DecodeMetadata(data)
	if err != nil {
		return nil, nil, program.Wrap(program.ErrInvalidAccountData, "metadata %s: %v", a.metadata.Key, err)
	}

	if !a.authority.IsSigner || md.UpdateAuthority != a.authority.Key {
		return nil, nil, program.Wrap(program.ErrMissingRequiredSignature, "update authority %s", a.authority.Key)
	}

	if md.Mint != a.mint.Key {
		return nil, nil, program.Wrap(ErrMetadataMismatch, "metadata describes %s, not %s", md.Mint, a.mint.Key)
	}

	if _, err := address.Verify(registry, a.metadata.Key, address.MetadataSeeds(registry, a.mint.Key)); err != nil {
		return nil, nil, program.Wrap(program.ErrInvalidSeeds, "metadata %s", a.metadata.Key)
	}

	if _, err := address.Verify(registry, a.masterEdition.Key, address.EditionSeeds(registry, a.mint.Key)); err != nil {
		return nil, nil, program.Wrap(program.ErrInvalidSeeds, "master edition %s", a.masterEdition.Key)
	}

	data, err = ownedData(a.masterEdition, registry)
	if err != nil {
		return nil, nil, err
	}

	master, err := records.DecodeMasterEdition(data)
	if err != nil {
		return nil, nil, program.Wrap(ErrWrongEdition, "master edition %s: %v", a.masterEdition.Key, err)
	}

	if master.Key != records.KeyMasterEditionV2 {
		return nil, nil, program.Wrap(ErrWrongEdition, "record kind %d", master.Key)
	}

	return md, master, nil
}

// validateTokenAccount checks the token account is the authority's
// associated account for the mint and decodes it.
func (p *Processor) validateTokenAccount(a *custodyAccounts) (*records.TokenAccount, error) {
	want, err := address.AssociatedTokenAccount(a.authority.Key, a.mint.Key)
	if err != nil {
		return nil, err
	}

	if want != a.tokenAccount.Key {
		return nil, program.Wrap(program.ErrInvalidSeeds, "token account %s", a.tokenAccount.Key)
	}

	data, err := ownedData(a.tokenAccount, p.ledger.ProgramID())
	if err != nil {
		return nil, err
	}

	tok, err := records.DecodeTokenAccount(data)
	if err != nil {
		return nil, program.Wrap(program.ErrInvalidAccountData, "token account %s: %v", a.tokenAccount.Key, err)
	}

	return tok, nil
}

// verifyCustody proves key is this program's custody address.
func (p *Processor) verifyCustody(key solana.PublicKey) (uint8, error) {
	bump, err := address.Verify(p.programID, key, address.CustodySeeds(p.programID))
	if err != nil {
		return 0, program.Wrap(program.ErrInvalidSeeds, "custody %s", key)
	}

	return bump, nil
}

// ownedData returns the data of an account owned by owner.
func ownedData(acc *program.AccountInfo, owner solana.PublicKey) ([]byte, error) {
	if len(acc.Data) == 0 {
		return nil, program.Wrap(program.ErrUninitializedAccount, "account %s", acc.Key)
	}

	if acc.Owner != owner {
		return nil, program.Wrap(program.ErrIncorrectProgramID, "account %s owned by %s", acc.Key, acc.Owner)
	}

	return acc.Data, nil
}
