// Package instruction encodes the custody program's operations and builds
// their positional account lists.
package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"Satellite/internal/program"
)

// Kind selects a custody operation. Values are the Borsh enum variant index.
type Kind uint8

const (
	StakeMasterEdition   Kind = 0 // StakeMasterEdition moves the master token into custody
	UnstakeMasterEdition Kind = 1 // UnstakeMasterEdition returns it to the holder
	MintNewEdition       Kind = 2 // MintNewEdition prints one numbered copy
)

// String returns the operation name.
func (k Kind) String() string {
	switch k {
	case StakeMasterEdition:
		return "StakeMasterEdition"
	case UnstakeMasterEdition:
		return "UnstakeMasterEdition"
	case MintNewEdition:
		return "MintNewEdition"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Op is a decoded custody instruction.
type Op struct {
	Kind    Kind
	Edition uint64 // Edition is the copy number, set only for MintNewEdition
}

// Encode serializes the operation.
func (o Op) Encode() []byte {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	// Writes into a bytes.Buffer cannot fail.
	_ = enc.WriteUint8(uint8(o.Kind))
	if o.Kind == MintNewEdition {
		_ = enc.WriteUint64(o.Edition, bin.LE)
	}

	return buf.Bytes()
}

// Decode parses instruction data. Trailing bytes are rejected.
func Decode(data []byte) (Op, error) {
	dec := bin.NewBorshDecoder(data)

	selector, err := dec.ReadUint8()
	if err != nil {
		return Op{}, program.Wrap(program.ErrInvalidInstructionData, "empty instruction")
	}

	op := Op{Kind: Kind(selector)}

	switch op.Kind {
	case StakeMasterEdition, UnstakeMasterEdition:
	case MintNewEdition:
		if op.Edition, err = dec.ReadUint64(bin.LE); err != nil {
			return Op{}, program.Wrap(program.ErrInvalidInstructionData, "%s payload: %v", op.Kind, err)
		}
	default:
		return Op{}, program.Wrap(program.ErrInvalidInstructionData, "unknown selector %d", selector)
	}

	if dec.HasRemaining() {
		return Op{}, program.Wrap(program.ErrInvalidInstructionData, "%s: %d trailing bytes", op.Kind, dec.Remaining())
	}

	return op, nil
}
