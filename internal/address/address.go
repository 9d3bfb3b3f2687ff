// Package address derives and verifies program-derived addresses (PDAs).
//
// A PDA is sha256(seeds || bump || program || "ProgramDerivedAddress") forced
// off the ed25519 curve, so no private key exists for it. The canonical bump is
// found by searching from 255 down to 1 and taking the first off-curve result.
// Addresses are recomputed on every use and never cached.
package address

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/program"
)

// Seed labels. These must match byte-for-byte across every client.
const (
	RelayerSeed    = "relayer"  // RelayerSeed prefixes the custody address
	MetadataPrefix = "metadata" // MetadataPrefix prefixes every registry PDA
	EditionSeed    = "edition"  // EditionSeed suffixes master/edition record PDAs
)

var (
	// TokenProgramID is the Token Ledger Service program identity.
	TokenProgramID = solana.TokenProgramID

	// RegistryProgramID is the Collectible Registry Service program identity.
	RegistryProgramID = solana.TokenMetadataProgramID

	// AssociatedTokenProgramID owns associated token account derivations.
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID

	// SystemProgramID is passed through to registry calls.
	SystemProgramID = solana.SystemProgramID

	// RentSysvarID is passed through to registry calls.
	RentSysvarID = solana.SysVarRentPubkey
)

// Find computes the canonical PDA and bump for seeds under owner.
func Find(seeds [][]byte, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	// FindProgramAddress appends the bump to the slice it is given
	path := make([][]byte, len(seeds), len(seeds)+1)
	copy(path, seeds)

	key, bump, err := solana.FindProgramAddress(path, owner)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("find program address:\n%w", program.ErrInvalidSeeds)
	}

	return key, bump, nil
}

// Verify recomputes the PDA for seeds under owner and checks it equals claimed.
// Returns the canonical bump, or ErrInvalidSeeds on mismatch.
func Verify(owner, claimed solana.PublicKey, seeds [][]byte) (uint8, error) {
	key, bump, err := Find(seeds, owner)
	if err != nil {
		return 0, err
	}

	if key != claimed {
		return 0, program.ErrInvalidSeeds
	}

	return bump, nil
}

// CustodySeeds returns the seed path of the custody (relayer) address.
func CustodySeeds(programID solana.PublicKey) [][]byte {
	return [][]byte{[]byte(RelayerSeed), programID.Bytes()}
}

// Custody derives the custody address of a custody program.
func Custody(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Find(CustodySeeds(programID), programID)
}

// MetadataSeeds returns the seed path of a mint's collection metadata record.
func MetadataSeeds(registry, mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(MetadataPrefix), registry.Bytes(), mint.Bytes()}
}

// Metadata derives the metadata record address of a mint.
func Metadata(registry, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Find(MetadataSeeds(registry, mint), registry)
}

// EditionSeeds returns the seed path of a mint's master or edition record.
func EditionSeeds(registry, mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(MetadataPrefix), registry.Bytes(), mint.Bytes(), []byte(EditionSeed)}
}

// Edition derives the master/edition record address of a mint.
func Edition(registry, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Find(EditionSeeds(registry, mint), registry)
}

// EditionMarkerSeeds returns the seed path of the marker covering edition n.
func EditionMarkerSeeds(registry, masterMint solana.PublicKey, n uint64) [][]byte {
	return [][]byte{
		[]byte(MetadataPrefix),
		registry.Bytes(),
		masterMint.Bytes(),
		[]byte(EditionSeed),
		[]byte(strconv.FormatUint(n/EditionMarkerBits, 10)),
	}
}

// EditionMarkerBits is the number of editions tracked by one marker account.
const EditionMarkerBits = 248

// EditionMarker derives the marker account covering edition n of a master mint.
func EditionMarker(registry, masterMint solana.PublicKey, n uint64) (solana.PublicKey, uint8, error) {
	return Find(EditionMarkerSeeds(registry, masterMint, n), registry)
}

// AssociatedTokenAccount is the ledger's deterministic account for (wallet, mint).
func AssociatedTokenAccount(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{wallet.Bytes(), TokenProgramID.Bytes(), mint.Bytes()}

	key, _, err := Find(seeds, AssociatedTokenProgramID)
	return key, err
}
