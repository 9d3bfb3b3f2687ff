package instruction

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/program"
)

func TestEncodeMatchesBorshLayout(t *testing.T) {
	if got := (Op{Kind: StakeMasterEdition}).Encode(); !bytes.Equal(got, []byte{0}) {
		t.Errorf("stake = %x", got)
	}

	if got := (Op{Kind: UnstakeMasterEdition}).Encode(); !bytes.Equal(got, []byte{1}) {
		t.Errorf("unstake = %x", got)
	}

	want := []byte{2, 0x2a, 0, 0, 0, 0, 0, 0, 0}
	if got := (Op{Kind: MintNewEdition, Edition: 42}).Encode(); !bytes.Equal(got, want) {
		t.Errorf("mint = %x, want %x", got, want)
	}
}

func TestDecode(t *testing.T) {
	op, err := Decode([]byte{2, 3, 0, 0, 0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if op.Kind != MintNewEdition || op.Edition != 3 {
		t.Errorf("op = %+v", op)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{3},
		{0, 0},
		{1, 1},
		{2, 1, 2, 3},
		{2, 1, 0, 0, 0, 0, 0, 0, 0, 0},
	} {
		if _, err := Decode(data); !errors.Is(err, program.ErrInvalidInstructionData) {
			t.Errorf("Decode(%x) = %v, want ErrInvalidInstructionData", data, err)
		}
	}
}

func TestUnstakeUsesUnstakeSelector(t *testing.T) {
	programID := solana.PublicKey{9}

	keys, err := NewCustodyKeys(programID, solana.PublicKey{1}, solana.PublicKey{2})
	if err != nil {
		t.Fatalf("NewCustodyKeys failed: %v", err)
	}

	ix := Unstake(programID, keys)

	op, err := Decode(ix.Data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if op.Kind != UnstakeMasterEdition {
		t.Errorf("kind = %s, want UnstakeMasterEdition", op.Kind)
	}
}

func TestCustodyAccountOrder(t *testing.T) {
	programID := solana.PublicKey{9}
	authority := solana.PublicKey{1}
	mint := solana.PublicKey{2}

	keys, err := NewCustodyKeys(programID, authority, mint)
	if err != nil {
		t.Fatalf("NewCustodyKeys failed: %v", err)
	}

	ix := Stake(programID, keys)
	if len(ix.Accounts) != 7 {
		t.Fatalf("accounts = %d, want 7", len(ix.Accounts))
	}

	custody, _, _ := address.Custody(programID)
	ata, _ := address.AssociatedTokenAccount(authority, mint)

	want := []solana.PublicKey{mint, ata, custody, authority, keys.Metadata, keys.MasterEdition, address.TokenProgramID}
	for i, k := range want {
		if ix.Accounts[i].Key != k {
			t.Errorf("account %d = %s, want %s", i, ix.Accounts[i].Key, k)
		}
	}

	if !ix.Accounts[3].IsSigner {
		t.Error("authority must sign")
	}
}

func TestEditionAccountOrder(t *testing.T) {
	programID := solana.PublicKey{9}

	keys, err := NewEditionKeys(programID, solana.PublicKey{1}, solana.PublicKey{2}, solana.PublicKey{3}, solana.PublicKey{4})
	if err != nil {
		t.Fatalf("NewEditionKeys failed: %v", err)
	}

	ix := MintNewEditionInstruction(programID, keys, 5)
	if len(ix.Accounts) != 13 {
		t.Fatalf("accounts = %d, want 13", len(ix.Accounts))
	}

	if ix.Accounts[5].Key != keys.Custody || ix.Accounts[11].Key != address.RegistryProgramID {
		t.Error("custody or registry program out of place")
	}

	if !ix.Accounts[4].IsSigner {
		t.Error("new update authority must sign")
	}
}
