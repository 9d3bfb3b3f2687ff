package genesis

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/ledger"
	"Satellite/internal/logger"
	"Satellite/internal/records"
	"Satellite/internal/registry"
	"Satellite/internal/state"
	"Satellite/internal/storage"
)

// appliedKey marks a database that already holds the genesis state.
var appliedKey = []byte("m:genesis")

// Seeded describes the accounts created for one collectible.
type Seeded struct {
	Seed          string
	Mint          solana.PublicKey
	TokenAccount  solana.PublicKey // TokenAccount is the holder's associated account with the master token
	Metadata      solana.PublicKey
	MasterEdition solana.PublicKey
}

// Apply creates every collectible of g as a master edition held by its
// holder. It runs once per database: later calls return nil, nil.
func Apply(db *storage.Storage, programID solana.PublicKey, g *Genesis) ([]Seeded, error) {
	custody, _, err := address.Custody(programID)
	if err != nil {
		return nil, fmt.Errorf("derive custody address:\n%w", err)
	}

	txn := db.NewTxn()
	defer txn.Discard()

	done, err := txn.Get(appliedKey)
	if err != nil {
		return nil, fmt.Errorf("check genesis marker:\n%w", err)
	}

	if done != nil {
		logger.Debug("genesis already applied")
		return nil, nil
	}

	st := state.New(txn)
	tokens := ledger.New(st)
	reg := registry.New(st, tokens)

	seeded := make([]Seeded, 0, len(g.Collectibles))

	for _, c := range g.Collectibles {
		s, err := seed(tokens, reg, custody, c)
		if err != nil {
			return nil, fmt.Errorf("collectible %q:\n%w", c.Seed, err)
		}

		seeded = append(seeded, *s)
	}

	if err := txn.Set(appliedKey, []byte{1}); err != nil {
		return nil, fmt.Errorf("mark genesis:\n%w", err)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("commit genesis:\n%w", err)
	}

	for _, s := range seeded {
		logger.Info("master collectible created", "seed", s.Seed, "mint", s.Mint, "edition", s.MasterEdition)
	}

	return seeded, nil
}

// seed creates the mint, the master token and its registry records.
func seed(tokens *ledger.Ledger, reg *registry.Registry, custody solana.PublicKey, c Collectible) (*Seeded, error) {
	holder, err := solana.PublicKeyFromBase58(c.Holder)
	if err != nil {
		return nil, fmt.Errorf("holder:\n%w", err)
	}

	auth := address.Signed(holder)
	s := &Seeded{Seed: c.Seed, Mint: MintAddress(c.Seed)}

	if err := tokens.InitializeMint(s.Mint, 0, holder, &holder); err != nil {
		return nil, fmt.Errorf("initialize mint:\n%w", err)
	}

	if s.TokenAccount, err = tokens.CreateAssociatedAccount(holder, s.Mint); err != nil {
		return nil, fmt.Errorf("create token account:\n%w", err)
	}

	if err := tokens.MintTo(s.Mint, s.TokenAccount, 1, auth); err != nil {
		return nil, fmt.Errorf("mint master token:\n%w", err)
	}

	creators, err := creatorList(c, holder, custody)
	if err != nil {
		return nil, err
	}

	data := records.Data{
		Name:                 c.Name,
		Symbol:               c.Symbol,
		URI:                  c.URI,
		SellerFeeBasisPoints: c.SellerFeeBasisPoints,
		Creators:             creators,
	}

	if s.Metadata, err = reg.CreateMetadata(s.Mint, holder, data, true, auth); err != nil {
		return nil, fmt.Errorf("create metadata:\n%w", err)
	}

	if s.MasterEdition, err = reg.CreateMasterEdition(s.Mint, holder, holder, c.MaxSupply, auth); err != nil {
		return nil, fmt.Errorf("create master edition:\n%w", err)
	}

	return s, nil
}

// creatorList converts the fixture creators. With ListCustody the custody
// address joins the list with a zero share, and the holder takes the full
// share when no creators were given.
func creatorList(c Collectible, holder, custody solana.PublicKey) (*[]records.Creator, error) {
	if len(c.Creators) == 0 && !c.ListCustody {
		return nil, nil
	}

	list := make([]records.Creator, 0, len(c.Creators)+1)
	for _, cr := range c.Creators {
		key, err := solana.PublicKeyFromBase58(cr.Address)
		if err != nil {
			return nil, fmt.Errorf("creator:\n%w", err)
		}
		list = append(list, records.Creator{Address: key, Share: cr.Share, Verified: cr.Verified})
	}

	if len(list) == 0 {
		list = append(list, records.Creator{Address: holder, Share: 100, Verified: true})
	}

	if c.ListCustody {
		list = append(list, records.Creator{Address: custody})
	}

	return &list, nil
}
