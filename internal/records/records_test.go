package records

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
)

// encode serializes a registry record or fails the test.
func encode(t *testing.T, rec interface{ Encode() ([]byte, error) }) []byte {
	t.Helper()

	data, err := rec.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	return data
}

func TestPackSizes(t *testing.T) {
	authority := solana.PublicKey{0x01}

	mint := &Mint{MintAuthority: &authority, Supply: 1, IsInitialized: true}
	if n := len(mint.Encode()); n != MintSize {
		t.Errorf("mint size = %d, want %d", n, MintSize)
	}

	acc := &TokenAccount{Mint: solana.PublicKey{0x02}, Owner: authority, Amount: 1, State: AccountInitialized}
	if n := len(acc.Encode()); n != TokenAccountSize {
		t.Errorf("token account size = %d, want %d", n, TokenAccountSize)
	}
}

func TestTokenAccountLayoutOffsets(t *testing.T) {
	acc := &TokenAccount{
		Mint:   solana.PublicKey{0xAA},
		Owner:  solana.PublicKey{0xBB},
		Amount: 7,
		State:  AccountInitialized,
	}
	data := acc.Encode()

	// mint at 0, owner at 32, amount at 64, state at 108
	if data[0] != 0xAA || data[32] != 0xBB {
		t.Error("mint/owner not at their fixed offsets")
	}

	if binary.LittleEndian.Uint64(data[64:72]) != 7 {
		t.Error("amount not at offset 64")
	}

	if data[108] != byte(AccountInitialized) {
		t.Errorf("state byte = %d, want %d", data[108], AccountInitialized)
	}

	got, err := DecodeTokenAccount(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.Delegate != nil || got.CloseAuthority != nil || got.IsNative != nil {
		t.Error("empty options should decode as nil")
	}
}

func TestDecodeTokenAccountRejectsWrongSize(t *testing.T) {
	if _, err := DecodeTokenAccount(make([]byte, 100)); !errors.Is(err, ErrShortData) {
		t.Errorf("got %v, want ErrShortData", err)
	}
}

func TestMetadataCreators(t *testing.T) {
	custody := solana.PublicKey{0x10}
	creators := []Creator{
		{Address: solana.PublicKey{0x20}, Verified: true, Share: 60},
		{Address: custody, Share: 40},
	}

	m := &Metadata{
		Key:             KeyMetadataV1,
		UpdateAuthority: solana.PublicKey{0x30},
		Mint:            solana.PublicKey{0x40},
		Data:            Data{Name: "Master", Symbol: "SAT", URI: "https://example.org/1.json", Creators: &creators},
		IsMutable:       true,
	}

	got, err := DecodeMetadata(encode(t, m))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !got.HasCreator(custody) {
		t.Error("custody should be listed")
	}

	if got.HasCreator(solana.PublicKey{0x99}) {
		t.Error("unknown key must not be listed")
	}

	if got.Data.Name != "Master" || got.Mint != m.Mint || !got.IsMutable {
		t.Errorf("decoded metadata mismatch: %+v", got)
	}
}

func TestMetadataWithoutCreators(t *testing.T) {
	m := &Metadata{Key: KeyMetadataV1, Mint: solana.PublicKey{0x01}}

	got, err := DecodeMetadata(encode(t, m))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.Data.Creators != nil {
		t.Error("absent creator list should decode as nil")
	}

	if got.HasCreator(solana.PublicKey{}) {
		t.Error("no creator list means no match")
	}
}

func TestDecodeWrongKind(t *testing.T) {
	edition := encode(t, &Edition{Key: KeyEditionV1, Edition: 1})

	if _, err := DecodeMasterEdition(edition); !errors.Is(err, ErrWrongKind) {
		t.Errorf("master from edition data: got %v, want ErrWrongKind", err)
	}

	if _, err := DecodeMetadata(edition); !errors.Is(err, ErrWrongKind) {
		t.Errorf("metadata from edition data: got %v, want ErrWrongKind", err)
	}
}

func TestRegistryRecordLayout(t *testing.T) {
	max := uint64(3)
	master := encode(t, &MasterEdition{Key: KeyMasterEditionV2, Supply: 2, MaxSupply: &max})

	// key, supply u64, option tag u8, max supply u64
	if len(master) != 18 || master[0] != byte(KeyMasterEditionV2) || master[9] != 1 {
		t.Fatalf("master edition bytes = %x", master)
	}

	if binary.LittleEndian.Uint64(master[1:9]) != 2 || binary.LittleEndian.Uint64(master[10:18]) != 3 {
		t.Errorf("master edition bytes = %x", master)
	}

	if unbounded := encode(t, &MasterEdition{Key: KeyMasterEditionV2}); len(unbounded) != 10 || unbounded[9] != 0 {
		t.Errorf("unbounded master bytes = %x", unbounded)
	}

	md := encode(t, &Metadata{Key: KeyMetadataV1, Data: Data{Name: "Sat"}})

	// name follows key, update authority and mint as a u32-prefixed string
	if md[0] != byte(KeyMetadataV1) || binary.LittleEndian.Uint32(md[65:69]) != 3 || string(md[69:72]) != "Sat" {
		t.Errorf("metadata bytes = %x", md)
	}

	if edition := encode(t, &Edition{Key: KeyEditionV1, Edition: 1}); len(edition) != 41 {
		t.Errorf("edition size = %d, want 41", len(edition))
	}

	if marker := encode(t, &EditionMarker{Key: KeyEditionMarker}); len(marker) != 32 {
		t.Errorf("marker size = %d, want 32", len(marker))
	}
}

func TestDecodeTruncatedRecord(t *testing.T) {
	m := &Metadata{Key: KeyMetadataV1, Data: Data{Name: "Master", Creators: &[]Creator{{Share: 100}}}}
	data := encode(t, m)

	if _, err := DecodeMetadata(data[:len(data)-20]); !errors.Is(err, ErrShortData) {
		t.Errorf("truncated metadata: got %v, want ErrShortData", err)
	}

	if _, err := DecodeEditionMarker([]byte{byte(KeyEditionMarker), 0xFF}); !errors.Is(err, ErrShortData) {
		t.Errorf("truncated marker: got %v, want ErrShortData", err)
	}

	if _, err := DecodeEdition(nil); !errors.Is(err, ErrShortData) {
		t.Errorf("empty edition: got %v, want ErrShortData", err)
	}
}

func TestMasterEditionMaxSupply(t *testing.T) {
	max := uint64(3)
	m := &MasterEdition{Key: KeyMasterEditionV2, Supply: 2, MaxSupply: &max}

	got, err := DecodeMasterEdition(encode(t, m))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.MaxSupply == nil || *got.MaxSupply != 3 || got.Supply != 2 {
		t.Errorf("decoded = %+v", got)
	}

	if got.Exhausted() {
		t.Error("2 of 3 is not exhausted")
	}

	got.Supply = 3
	if !got.Exhausted() {
		t.Error("3 of 3 is exhausted")
	}

	unbounded := &MasterEdition{Key: KeyMasterEditionV2, Supply: 1000}
	if unbounded.Exhausted() {
		t.Error("unbounded master is never exhausted")
	}
}

func TestEditionMarkerBits(t *testing.T) {
	m := &EditionMarker{Key: KeyEditionMarker}

	m.Set(1)
	m.Set(249) // same bit position in the next marker

	if !m.IsSet(1) || m.IsSet(2) {
		t.Error("only edition 1 should be set")
	}

	if m.Ledger[0] != 0x40 {
		t.Errorf("ledger[0] = %#x, want 0x40", m.Ledger[0])
	}

	got, err := DecodeEditionMarker(encode(t, m))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !got.IsSet(1) {
		t.Error("decoded marker lost edition 1")
	}
}
