// Package records holds the account layouts of the token ledger and the
// collectible registry. Registry records are Borsh-encoded through
// gagliardetto/binary and start with a Key discriminator; ledger records use
// the fixed-size Pack layout.
package records

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Key discriminates registry record kinds.
type Key uint8

// Registry record kinds. Values are part of the on-account format.
const (
	KeyUninitialized     Key = 0
	KeyEditionV1         Key = 1
	KeyMasterEditionV1   Key = 2
	KeyReservationListV1 Key = 3
	KeyMetadataV1        Key = 4
	KeyReservationListV2 Key = 5
	KeyMasterEditionV2   Key = 6
	KeyEditionMarker     Key = 7
)

// ErrWrongKind is returned when account data holds a different record kind.
var ErrWrongKind = errors.New("unexpected record kind")

// Creator is a beneficiary listed on collection metadata.
type Creator struct {
	Address  solana.PublicKey // Address is matched by exact identity
	Verified bool             // Verified is set once the creator signed
	Share    uint8            // Share is the percentage of royalties
}

// Data is the descriptive part of collection metadata.
type Data struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator `bin:"optional"` // Creators is nil when no beneficiary list is set
}

// Metadata is the collection record attached to a mint.
type Metadata struct {
	Key                 Key
	UpdateAuthority     solana.PublicKey // UpdateAuthority administers the record
	Mint                solana.PublicKey // Mint is the mint this record describes
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
}

// HasCreator reports whether key is listed among the creators.
func (m *Metadata) HasCreator(key solana.PublicKey) bool {
	if m.Data.Creators == nil {
		return false
	}

	for _, c := range *m.Data.Creators {
		if c.Address == key {
			return true
		}
	}

	return false
}

// Encode serializes the metadata record.
func (m *Metadata) Encode() ([]byte, error) {
	return encodeBorsh("metadata", m)
}

// DecodeMetadata parses a metadata record.
func DecodeMetadata(data []byte) (*Metadata, error) {
	m := new(Metadata)
	if err := decodeBorsh("metadata", data, m, KeyMetadataV1); err != nil {
		return nil, err
	}

	return m, nil
}

// MasterEdition is the master record tracking issued copies of a mint.
type MasterEdition struct {
	Key       Key
	Supply    uint64  // Supply is the number of copies issued so far
	MaxSupply *uint64 `bin:"optional"` // MaxSupply bounds Supply when set
}

// Exhausted reports whether every permitted copy has been issued.
// Always false for an unbounded master.
func (m *MasterEdition) Exhausted() bool {
	return m.MaxSupply != nil && m.Supply >= *m.MaxSupply
}

// Encode serializes the master record.
func (m *MasterEdition) Encode() ([]byte, error) {
	return encodeBorsh("master edition", m)
}

// DecodeMasterEdition parses a master record. Both master kinds share the
// leading layout; callers check Key for the kind they require.
func DecodeMasterEdition(data []byte) (*MasterEdition, error) {
	m := new(MasterEdition)
	if err := decodeBorsh("master edition", data, m, KeyMasterEditionV1, KeyMasterEditionV2); err != nil {
		return nil, err
	}

	return m, nil
}

// Edition is one numbered copy printed from a master record.
type Edition struct {
	Key     Key
	Parent  solana.PublicKey // Parent is the master record address
	Edition uint64           // Edition is the copy number
}

// Encode serializes the edition record.
func (e *Edition) Encode() ([]byte, error) {
	return encodeBorsh("edition", e)
}

// DecodeEdition parses an edition record.
func DecodeEdition(data []byte) (*Edition, error) {
	e := new(Edition)
	if err := decodeBorsh("edition", data, e, KeyEditionV1); err != nil {
		return nil, err
	}

	return e, nil
}

// EditionMarker records which copy numbers of a master have been printed.
// Each marker covers 248 consecutive copy numbers.
type EditionMarker struct {
	Key    Key
	Ledger [31]byte
}

// markerPosition maps a copy number to its byte index and bit mask.
func markerPosition(edition uint64) (int, byte) {
	bit := edition % (31 * 8)
	return int(bit / 8), byte(1) << (7 - bit%8)
}

// IsSet reports whether a copy number is already printed.
func (m *EditionMarker) IsSet(edition uint64) bool {
	idx, mask := markerPosition(edition)
	return m.Ledger[idx]&mask != 0
}

// Set marks a copy number as printed.
func (m *EditionMarker) Set(edition uint64) {
	idx, mask := markerPosition(edition)
	m.Ledger[idx] |= mask
}

// Encode serializes the marker.
func (m *EditionMarker) Encode() ([]byte, error) {
	return encodeBorsh("edition marker", m)
}

// DecodeEditionMarker parses a marker.
func DecodeEditionMarker(data []byte) (*EditionMarker, error) {
	m := new(EditionMarker)
	if err := decodeBorsh("edition marker", data, m, KeyEditionMarker); err != nil {
		return nil, err
	}

	return m, nil
}
