package registry

import (
	"errors"
	"testing"

	"Satellite/internal/program"
	"Satellite/internal/records"
)

// infos turns instruction metas into account views, signing as listed.
func infos(ix program.Instruction) []program.AccountInfo {
	list := make([]program.AccountInfo, len(ix.Accounts))
	for i, m := range ix.Accounts {
		list[i] = program.AccountInfo{Key: m.Key, IsSigner: m.IsSigner, IsWritable: m.IsWritable}
	}
	return list
}

func TestProcessCreatesMaster(t *testing.T) {
	f := newFixture(t)
	holder := newKey(t)
	mint, _ := f.holding(t, holder)

	creators := []records.Creator{{Address: holder, Verified: true, Share: 100}}
	data := records.Data{Name: "Orbit", Symbol: "SAT", URI: "https://example.com/orbit.json", Creators: &creators}

	create, err := CreateMetadataInstruction(mint, holder, holder, data, true)
	if err != nil {
		t.Fatalf("CreateMetadataInstruction failed: %v", err)
	}

	if err := f.reg.Process(infos(create), create.Data); err != nil {
		t.Fatalf("CreateMetadata failed: %v", err)
	}

	master, err := CreateMasterEditionInstruction(mint, holder, holder, u64(2))
	if err != nil {
		t.Fatalf("CreateMasterEditionInstruction failed: %v", err)
	}

	if err := f.reg.Process(infos(master), master.Data); err != nil {
		t.Fatalf("CreateMasterEdition failed: %v", err)
	}

	md, err := f.reg.Metadata(mint)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}

	if md.Data.Name != "Orbit" || md.UpdateAuthority != holder || !md.HasCreator(holder) || !md.IsMutable {
		t.Errorf("metadata = %+v", md)
	}

	edition, err := f.reg.MasterEdition(mint)
	if err != nil {
		t.Fatalf("MasterEdition failed: %v", err)
	}

	if edition.MaxSupply == nil || *edition.MaxSupply != 2 || edition.Supply != 0 {
		t.Errorf("master edition = %+v", edition)
	}
}

func TestProcessCreateMetadataChecks(t *testing.T) {
	f := newFixture(t)
	holder := newKey(t)
	stranger := newKey(t)
	mint, _ := f.holding(t, holder)

	ix, _ := CreateMetadataInstruction(mint, holder, holder, records.Data{Name: "x"}, true)

	unsigned := infos(ix)
	unsigned[2].IsSigner = false
	if err := f.reg.Process(unsigned, ix.Data); !errors.Is(err, program.ErrMissingRequiredSignature) {
		t.Errorf("unsigned mint authority: got %v, want ErrMissingRequiredSignature", err)
	}

	misplaced := infos(ix)
	misplaced[0].Key = newKey(t)
	if err := f.reg.Process(misplaced, ix.Data); !errors.Is(err, ErrInvalidMetadataKey) {
		t.Errorf("misplaced metadata: got %v, want ErrInvalidMetadataKey", err)
	}

	// A creator cannot be marked verified without signing
	creators := []records.Creator{{Address: stranger, Verified: true, Share: 100}}
	forged, _ := CreateMetadataInstruction(mint, holder, holder, records.Data{Name: "x", Creators: &creators}, true)
	if err := f.reg.Process(infos(forged), forged.Data); !errors.Is(err, program.ErrMissingRequiredSignature) {
		t.Errorf("unsigned verified creator: got %v, want ErrMissingRequiredSignature", err)
	}

	if _, err := f.reg.Metadata(mint); !errors.Is(err, program.ErrUninitializedAccount) {
		t.Errorf("rejected instructions left a record: %v", err)
	}
}

func TestProcessCreateMasterEditionChecks(t *testing.T) {
	f := newFixture(t)
	holder := newKey(t)
	mint, _ := f.holding(t, holder)

	create, _ := CreateMetadataInstruction(mint, holder, holder, records.Data{Name: "x"}, true)
	if err := f.reg.Process(infos(create), create.Data); err != nil {
		t.Fatalf("CreateMetadata failed: %v", err)
	}

	ix, _ := CreateMasterEditionInstruction(mint, holder, holder, nil)

	misplaced := infos(ix)
	misplaced[0].Key = newKey(t)
	if err := f.reg.Process(misplaced, ix.Data); !errors.Is(err, ErrInvalidEditionKey) {
		t.Errorf("misplaced edition: got %v, want ErrInvalidEditionKey", err)
	}

	stranger := newKey(t)
	foreign, _ := CreateMasterEditionInstruction(mint, stranger, holder, nil)
	if err := f.reg.Process(infos(foreign), foreign.Data); !errors.Is(err, ErrUpdateAuthorityIncorrect) {
		t.Errorf("foreign update authority: got %v, want ErrUpdateAuthorityIncorrect", err)
	}

	if err := f.reg.Process(infos(ix), ix.Data); err != nil {
		t.Fatalf("CreateMasterEdition failed: %v", err)
	}

	if err := f.reg.Process(infos(ix), ix.Data); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second master: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestProcessRejectsBadData(t *testing.T) {
	f := newFixture(t)
	holder := newKey(t)
	mint, _ := f.holding(t, holder)

	ix, _ := CreateMasterEditionInstruction(mint, holder, holder, u64(1))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown tag", []byte{42}},
		{"truncated", ix.Data[:len(ix.Data)-1]},
		{"trailing bytes", append(append([]byte{}, ix.Data...), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.reg.Process(infos(ix), tt.data); !errors.Is(err, program.ErrInvalidInstructionData) {
				t.Errorf("got %v, want ErrInvalidInstructionData", err)
			}
		})
	}

	if err := f.reg.Process(infos(ix)[:3], ix.Data); !errors.Is(err, program.ErrNotEnoughAccountKeys) {
		t.Errorf("three accounts: got %v, want ErrNotEnoughAccountKeys", err)
	}
}
