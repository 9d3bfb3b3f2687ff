package api

import (
	"encoding/hex"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/records"
	"Satellite/internal/state"
)

// accountView is the JSON form of an account.
type accountView struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Kind    string `json:"kind"`
	Data    any    `json:"data,omitempty"`
	Raw     string `json:"raw,omitempty"` // Raw is the hex data of an undecodable account
}

type mintView struct {
	MintAuthority   *string `json:"mintAuthority"`
	Supply          uint64  `json:"supply"`
	Decimals        uint8   `json:"decimals"`
	FreezeAuthority *string `json:"freezeAuthority"`
}

type tokenAccountView struct {
	Mint   string `json:"mint"`
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
	Frozen bool   `json:"frozen"`
}

type creatorView struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Share    uint8  `json:"share"`
}

type metadataView struct {
	UpdateAuthority      string        `json:"updateAuthority"`
	Mint                 string        `json:"mint"`
	Name                 string        `json:"name"`
	Symbol               string        `json:"symbol"`
	URI                  string        `json:"uri"`
	SellerFeeBasisPoints uint16        `json:"sellerFeeBasisPoints"`
	Creators             []creatorView `json:"creators,omitempty"`
	PrimarySaleHappened  bool          `json:"primarySaleHappened"`
	IsMutable            bool          `json:"isMutable"`
}

type masterEditionView struct {
	Supply    uint64  `json:"supply"`
	MaxSupply *uint64 `json:"maxSupply"`
}

type editionView struct {
	Parent  string `json:"parent"`
	Edition uint64 `json:"edition"`
}

// viewAccount decodes acc by its owner and record kind.
// Accounts that decode as nothing known are returned raw.
func viewAccount(key solana.PublicKey, acc *state.Account) accountView {
	v := accountView{Address: key.String(), Owner: acc.Owner.String()}

	switch acc.Owner {
	case address.TokenProgramID:
		v.Kind, v.Data = viewTokenRecord(acc.Data)
	case address.RegistryProgramID:
		v.Kind, v.Data = viewRegistryRecord(acc.Data)
	}

	if v.Data == nil {
		v.Kind = "unknown"
		v.Raw = hex.EncodeToString(acc.Data)
	}

	return v
}

func viewTokenRecord(data []byte) (string, any) {
	switch len(data) {
	case records.MintSize:
		m, err := records.DecodeMint(data)
		if err != nil {
			return "", nil
		}
		return "mint", mintView{
			MintAuthority:   optionalKey(m.MintAuthority),
			Supply:          m.Supply,
			Decimals:        m.Decimals,
			FreezeAuthority: optionalKey(m.FreezeAuthority),
		}
	case records.TokenAccountSize:
		a, err := records.DecodeTokenAccount(data)
		if err != nil {
			return "", nil
		}
		return "tokenAccount", tokenAccountView{
			Mint:   a.Mint.String(),
			Owner:  a.Owner.String(),
			Amount: a.Amount,
			Frozen: a.State == records.AccountFrozen,
		}
	}

	return "", nil
}

func viewRegistryRecord(data []byte) (string, any) {
	if len(data) == 0 {
		return "", nil
	}

	switch records.Key(data[0]) {
	case records.KeyMetadataV1:
		md, err := records.DecodeMetadata(data)
		if err != nil {
			return "", nil
		}

		view := metadataView{
			UpdateAuthority:      md.UpdateAuthority.String(),
			Mint:                 md.Mint.String(),
			Name:                 md.Data.Name,
			Symbol:               md.Data.Symbol,
			URI:                  md.Data.URI,
			SellerFeeBasisPoints: md.Data.SellerFeeBasisPoints,
			PrimarySaleHappened:  md.PrimarySaleHappened,
			IsMutable:            md.IsMutable,
		}

		if md.Data.Creators != nil {
			for _, c := range *md.Data.Creators {
				view.Creators = append(view.Creators, creatorView{Address: c.Address.String(), Verified: c.Verified, Share: c.Share})
			}
		}

		return "metadata", view
	case records.KeyMasterEditionV1, records.KeyMasterEditionV2:
		m, err := records.DecodeMasterEdition(data)
		if err != nil {
			return "", nil
		}
		return "masterEdition", masterEditionView{Supply: m.Supply, MaxSupply: m.MaxSupply}
	case records.KeyEditionV1:
		e, err := records.DecodeEdition(data)
		if err != nil {
			return "", nil
		}
		return "edition", editionView{Parent: e.Parent.String(), Edition: e.Edition}
	case records.KeyEditionMarker:
		m, err := records.DecodeEditionMarker(data)
		if err != nil {
			return "", nil
		}
		return "editionMarker", map[string]string{"ledger": hex.EncodeToString(m.Ledger[:])}
	}

	return "", nil
}

func optionalKey(k *solana.PublicKey) *string {
	if k == nil {
		return nil
	}

	s := k.String()
	return &s
}
