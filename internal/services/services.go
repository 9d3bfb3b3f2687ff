// Package services defines the call contracts of the Token Ledger Service and
// the Collectible Registry Service. The custody program depends only on these
// interfaces; internal/ledger and internal/registry implement them.
package services

import (
	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
)

// AuthorityType selects which authority of a mint or token account changes.
type AuthorityType uint8

const (
	MintTokens    AuthorityType = 0 // MintTokens authorizes minting new supply
	FreezeAccount AuthorityType = 1 // FreezeAccount authorizes freezing accounts of a mint
	AccountOwner  AuthorityType = 2 // AccountOwner authorizes moving or reassigning a balance
	CloseAccount  AuthorityType = 3 // CloseAccount authorizes closing a token account
)

// SetAuthorityRequest reassigns one authority of a mint or token account.
type SetAuthorityRequest struct {
	Target       solana.PublicKey  // Target is the mint or token account
	Kind         AuthorityType     // Kind selects the authority to change
	NewAuthority *solana.PublicKey // NewAuthority is nil to clear the authority
	Current      solana.PublicKey  // Current is the authority on file; it must approve
}

// TokenLedger is the Token Ledger Service.
type TokenLedger interface {
	ProgramID() solana.PublicKey
	SetAuthority(req SetAuthorityRequest, auth address.Authority) error
}

// MintEditionRequest prints one numbered copy of a master edition, proven by
// possession of the master token.
type MintEditionRequest struct {
	NewMetadata                solana.PublicKey // NewMetadata is the metadata PDA of NewMint
	NewEdition                 solana.PublicKey // NewEdition is the edition PDA of NewMint
	MasterEdition              solana.PublicKey // MasterEdition is the master record PDA of MetadataMint
	NewMint                    solana.PublicKey // NewMint holds the single printed token
	NewMintAuthority           solana.PublicKey // NewMintAuthority must approve
	Payer                      solana.PublicKey // Payer must approve
	TokenAccountOwner          solana.PublicKey // TokenAccountOwner owns TokenAccount and must approve
	TokenAccount               solana.PublicKey // TokenAccount holds the master token
	NewMetadataUpdateAuthority solana.PublicKey // NewMetadataUpdateAuthority administers the new metadata
	Metadata                   solana.PublicKey // Metadata is the master metadata record
	MetadataMint               solana.PublicKey // MetadataMint is the master mint
	Edition                    uint64           // Edition is the copy number to print
}

// CollectibleRegistry is the Collectible Registry Service.
type CollectibleRegistry interface {
	ProgramID() solana.PublicKey
	MintNewEditionFromMasterEditionViaToken(req MintEditionRequest, auth address.Authority) error
}
