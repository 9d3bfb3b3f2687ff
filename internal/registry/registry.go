// Package registry is an in-process Collectible Registry Service: collection
// metadata, master editions and numbered edition printing. Every record lives
// at a derived address, so relationships are proven by derivation rather than
// stored pointers.
package registry

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/ledger"
	"Satellite/internal/program"
	"Satellite/internal/records"
	"Satellite/internal/services"
	"Satellite/internal/state"
)

// Registry errors.
var (
	ErrInvalidMetadataKey       = program.Custom(0, "metadata key does not match the mint")
	ErrInvalidEditionKey        = program.Custom(1, "edition key does not match the mint")
	ErrUpdateAuthorityIncorrect = program.Custom(2, "update authority is incorrect")
	ErrAlreadyInitialized       = program.Custom(3, "record already initialized")
	ErrEditionsMustHaveExactly1 = program.Custom(4, "printing mints must have exactly one token")
	ErrMaxEditionsReached       = program.Custom(5, "maximum editions printed already")
	ErrEditionOverflow          = program.Custom(6, "edition number is out of range")
	ErrAlreadyPrinted           = program.Custom(7, "edition number already printed")
	ErrNotEnoughTokens          = program.Custom(8, "token account must hold the master token")
	ErrInvalidOwner             = program.Custom(9, "token account owner does not match")
	ErrMintMismatch             = program.Custom(10, "token account mint does not match")
	ErrNotMasterEdition         = program.Custom(11, "record is not a master edition")
	ErrShareTotal               = program.Custom(12, "creator shares must total 100")
	ErrInvalidMintAuthority     = program.Custom(13, "mint authority does not match")
)

// Registry implements services.CollectibleRegistry over an account State,
// using the token ledger for mint and token account state.
type Registry struct {
	st     *state.State
	tokens *ledger.Ledger
}

var _ services.CollectibleRegistry = (*Registry)(nil)

// New creates a registry over st backed by tokens.
func New(st *state.State, tokens *ledger.Ledger) *Registry {
	return &Registry{st: st, tokens: tokens}
}

// ProgramID returns the registry's program identity.
func (r *Registry) ProgramID() solana.PublicKey {
	return address.RegistryProgramID
}

// CreateMetadata creates the metadata record of mint at its derived address.
// The mint authority must approve; updateAuthority administers the record.
func (r *Registry) CreateMetadata(mintKey, updateAuthority solana.PublicKey, data records.Data, isMutable bool, auth address.Authority) (solana.PublicKey, error) {
	mint, err := r.tokens.Mint(mintKey)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if mint.MintAuthority == nil || !auth.Authorizes(*mint.MintAuthority) {
		return solana.PublicKey{}, program.Wrap(program.ErrMissingRequiredSignature, "mint authority of %s", mintKey)
	}

	if data.Creators != nil {
		total := 0
		for _, c := range *data.Creators {
			total += int(c.Share)
		}
		if total != 100 {
			return solana.PublicKey{}, program.Wrap(ErrShareTotal, "got %d", total)
		}
	}

	key, _, err := address.Metadata(r.ProgramID(), mintKey)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if ok, err := r.st.Exists(key); err != nil {
		return solana.PublicKey{}, err
	} else if ok {
		return solana.PublicKey{}, program.Wrap(ErrAlreadyInitialized, "metadata %s", key)
	}

	md := &records.Metadata{
		Key:             records.KeyMetadataV1,
		UpdateAuthority: updateAuthority,
		Mint:            mintKey,
		Data:            data,
		IsMutable:       isMutable,
	}

	if err := r.put(key, md); err != nil {
		return solana.PublicKey{}, err
	}

	return key, nil
}

// CreateMasterEdition turns a one-token mint into a master edition. The
// mint's mint and freeze authorities move to the master record so no further
// master tokens can ever be minted. maxSupply nil means unbounded printing.
func (r *Registry) CreateMasterEdition(mintKey, updateAuthority, mintAuthority solana.PublicKey, maxSupply *uint64, auth address.Authority) (solana.PublicKey, error) {
	md, err := r.Metadata(mintKey)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if md.UpdateAuthority != updateAuthority || !auth.Authorizes(updateAuthority) {
		return solana.PublicKey{}, program.Wrap(ErrUpdateAuthorityIncorrect, "metadata of %s", mintKey)
	}

	mint, err := r.tokens.Mint(mintKey)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if mint.Supply != 1 {
		return solana.PublicKey{}, program.Wrap(ErrEditionsMustHaveExactly1, "mint %s has supply %d", mintKey, mint.Supply)
	}

	key, _, err := address.Edition(r.ProgramID(), mintKey)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if ok, err := r.st.Exists(key); err != nil {
		return solana.PublicKey{}, err
	} else if ok {
		return solana.PublicKey{}, program.Wrap(ErrAlreadyInitialized, "master edition %s", key)
	}

	if err := r.handOverMint(mintKey, mint, mintAuthority, key, auth); err != nil {
		return solana.PublicKey{}, err
	}

	master := &records.MasterEdition{Key: records.KeyMasterEditionV2, MaxSupply: maxSupply}
	if err := r.put(key, master); err != nil {
		return solana.PublicKey{}, err
	}

	return key, nil
}

// MintNewEditionFromMasterEditionViaToken prints copy req.Edition of the
// master edition of req.MetadataMint into req.NewMint. The holder of the
// master token (req.TokenAccountOwner) must approve, either by signature or by
// presenting a derived-address capability.
func (r *Registry) MintNewEditionFromMasterEditionViaToken(req services.MintEditionRequest, auth address.Authority) error {
	if !auth.Authorizes(req.NewMintAuthority) || !auth.Authorizes(req.Payer) {
		return program.Wrap(program.ErrMissingRequiredSignature, "new mint authority or payer")
	}

	if !auth.Authorizes(req.TokenAccountOwner) {
		return program.Wrap(program.ErrMissingRequiredSignature, "token account owner %s", req.TokenAccountOwner)
	}

	if err := r.checkDerivations(req); err != nil {
		return err
	}

	master, err := r.MasterEdition(req.MetadataMint)
	if err != nil {
		return err
	}

	if err := r.checkHolding(req); err != nil {
		return err
	}

	if err := checkEditionNumber(master, req.Edition); err != nil {
		return err
	}

	markerKey, _, err := address.EditionMarker(r.ProgramID(), req.MetadataMint, req.Edition)
	if err != nil {
		return err
	}

	marker, err := r.marker(markerKey)
	if err != nil {
		return err
	}

	if marker.IsSet(req.Edition) {
		return program.Wrap(ErrAlreadyPrinted, "edition %d of %s", req.Edition, req.MetadataMint)
	}

	newMint, err := r.tokens.Mint(req.NewMint)
	if err != nil {
		return err
	}

	if newMint.Supply != 1 {
		return program.Wrap(ErrEditionsMustHaveExactly1, "new mint %s has supply %d", req.NewMint, newMint.Supply)
	}

	for _, key := range []solana.PublicKey{req.NewMetadata, req.NewEdition} {
		if ok, err := r.st.Exists(key); err != nil {
			return err
		} else if ok {
			return program.Wrap(ErrAlreadyInitialized, "record %s", key)
		}
	}

	masterMeta, err := r.Metadata(req.MetadataMint)
	if err != nil {
		return err
	}

	// Every check passed; from here on only writes.
	if err := r.handOverMint(req.NewMint, newMint, req.NewMintAuthority, req.NewEdition, auth); err != nil {
		return err
	}

	printed := &records.Metadata{
		Key:             records.KeyMetadataV1,
		UpdateAuthority: req.NewMetadataUpdateAuthority,
		Mint:            req.NewMint,
		Data:            masterMeta.Data,
		IsMutable:       masterMeta.IsMutable,
	}
	if err := r.put(req.NewMetadata, printed); err != nil {
		return err
	}

	edition := &records.Edition{Key: records.KeyEditionV1, Parent: req.MasterEdition, Edition: req.Edition}
	if err := r.put(req.NewEdition, edition); err != nil {
		return err
	}

	marker.Set(req.Edition)
	if err := r.put(markerKey, marker); err != nil {
		return err
	}

	master.Supply++

	return r.put(req.MasterEdition, master)
}

// checkDerivations proves every record in req sits at its derived address.
func (r *Registry) checkDerivations(req services.MintEditionRequest) error {
	pid := r.ProgramID()

	if _, err := address.Verify(pid, req.Metadata, address.MetadataSeeds(pid, req.MetadataMint)); err != nil {
		return program.Wrap(ErrInvalidMetadataKey, "master metadata %s", req.Metadata)
	}

	if _, err := address.Verify(pid, req.MasterEdition, address.EditionSeeds(pid, req.MetadataMint)); err != nil {
		return program.Wrap(ErrInvalidEditionKey, "master edition %s", req.MasterEdition)
	}

	if _, err := address.Verify(pid, req.NewMetadata, address.MetadataSeeds(pid, req.NewMint)); err != nil {
		return program.Wrap(ErrInvalidMetadataKey, "new metadata %s", req.NewMetadata)
	}

	if _, err := address.Verify(pid, req.NewEdition, address.EditionSeeds(pid, req.NewMint)); err != nil {
		return program.Wrap(ErrInvalidEditionKey, "new edition %s", req.NewEdition)
	}

	return nil
}

// checkHolding proves the approving owner holds the master token.
func (r *Registry) checkHolding(req services.MintEditionRequest) error {
	acc, err := r.tokens.TokenAccount(req.TokenAccount)
	if err != nil {
		return err
	}

	if acc.Mint != req.MetadataMint {
		return program.Wrap(ErrMintMismatch, "token account %s", req.TokenAccount)
	}

	if acc.Owner != req.TokenAccountOwner {
		return program.Wrap(ErrInvalidOwner, "token account %s owned by %s", req.TokenAccount, acc.Owner)
	}

	if acc.Amount != 1 {
		return program.Wrap(ErrNotEnoughTokens, "token account %s holds %d", req.TokenAccount, acc.Amount)
	}

	return nil
}

// checkEditionNumber validates n against the master's bounds.
func checkEditionNumber(master *records.MasterEdition, n uint64) error {
	if master.Exhausted() {
		return program.Wrap(ErrMaxEditionsReached, "supply %d", master.Supply)
	}

	if n == 0 || (master.MaxSupply != nil && n > *master.MaxSupply) {
		return program.Wrap(ErrEditionOverflow, "edition %d", n)
	}

	return nil
}

// handOverMint moves a mint's mint and freeze authorities to a record address.
func (r *Registry) handOverMint(mintKey solana.PublicKey, mint *records.Mint, mintAuthority, record solana.PublicKey, auth address.Authority) error {
	if mint.MintAuthority == nil || *mint.MintAuthority != mintAuthority {
		return program.Wrap(ErrInvalidMintAuthority, "mint %s", mintKey)
	}

	err := r.tokens.SetAuthority(services.SetAuthorityRequest{
		Target:       mintKey,
		Kind:         services.MintTokens,
		NewAuthority: &record,
		Current:      mintAuthority,
	}, auth)
	if err != nil {
		return fmt.Errorf("hand over mint authority:\n%w", err)
	}

	if mint.FreezeAuthority == nil {
		return nil
	}

	err = r.tokens.SetAuthority(services.SetAuthorityRequest{
		Target:       mintKey,
		Kind:         services.FreezeAccount,
		NewAuthority: &record,
		Current:      *mint.FreezeAuthority,
	}, auth)
	if err != nil {
		return fmt.Errorf("hand over freeze authority:\n%w", err)
	}

	return nil
}
