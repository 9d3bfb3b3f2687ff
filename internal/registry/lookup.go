package registry

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
	"Satellite/internal/records"
	"Satellite/internal/state"
)

// Metadata loads the metadata record of a mint.
func (r *Registry) Metadata(mint solana.PublicKey) (*records.Metadata, error) {
	key, _, err := address.Metadata(r.ProgramID(), mint)
	if err != nil {
		return nil, err
	}

	data, err := r.load(key)
	if err != nil {
		return nil, err
	}

	md, err := records.DecodeMetadata(data)
	if err != nil {
		return nil, program.Wrap(program.ErrInvalidAccountData, "%v", err)
	}

	return md, nil
}

// MasterEdition loads the master record of a mint.
func (r *Registry) MasterEdition(mint solana.PublicKey) (*records.MasterEdition, error) {
	key, _, err := address.Edition(r.ProgramID(), mint)
	if err != nil {
		return nil, err
	}

	data, err := r.load(key)
	if err != nil {
		return nil, err
	}

	master, err := records.DecodeMasterEdition(data)
	if err != nil {
		return nil, program.Wrap(ErrNotMasterEdition, "%v", err)
	}

	return master, nil
}

// Edition loads the edition record of a printed mint.
func (r *Registry) Edition(mint solana.PublicKey) (*records.Edition, error) {
	key, _, err := address.Edition(r.ProgramID(), mint)
	if err != nil {
		return nil, err
	}

	data, err := r.load(key)
	if err != nil {
		return nil, err
	}

	edition, err := records.DecodeEdition(data)
	if err != nil {
		return nil, program.Wrap(program.ErrInvalidAccountData, "%v", err)
	}

	return edition, nil
}

// marker loads an edition marker, or returns an empty one if none exists yet.
func (r *Registry) marker(key solana.PublicKey) (*records.EditionMarker, error) {
	acc, err := r.st.Get(key)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		return &records.EditionMarker{Key: records.KeyEditionMarker}, nil
	}

	if acc.Owner != r.ProgramID() {
		return nil, program.Wrap(program.ErrIncorrectProgramID, "marker %s", key)
	}

	marker, err := records.DecodeEditionMarker(acc.Data)
	if err != nil {
		return nil, program.Wrap(program.ErrInvalidAccountData, "%v", err)
	}

	return marker, nil
}

// load reads the data of a registry-owned account.
func (r *Registry) load(key solana.PublicKey) ([]byte, error) {
	acc, err := r.st.Get(key)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		return nil, program.Wrap(program.ErrUninitializedAccount, "record %s", key)
	}

	if acc.Owner != r.ProgramID() {
		return nil, program.Wrap(program.ErrIncorrectProgramID, "record %s owned by %s", key, acc.Owner)
	}

	return acc.Data, nil
}

// record is a Borsh-encoded registry record.
type record interface {
	Encode() ([]byte, error)
}

// put stores a registry-owned record.
func (r *Registry) put(key solana.PublicKey, rec record) error {
	data, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encode record %s:\n%w", key, err)
	}

	return r.st.Set(key, &state.Account{Owner: r.ProgramID(), Data: data})
}
