package records

import (
	"fmt"
	"slices"

	bin "github.com/gagliardetto/binary"
)

// encodeBorsh serializes a registry record.
func encodeBorsh(name string, v any) ([]byte, error) {
	data, err := bin.MarshalBorsh(v)
	if err != nil {
		return nil, fmt.Errorf("%s:\n%w", name, err)
	}

	return data, nil
}

// decodeBorsh parses a registry record into v once its leading Key is one of kinds.
func decodeBorsh(name string, data []byte, v any, kinds ...Key) error {
	if len(data) == 0 {
		return fmt.Errorf("%s:\n%w", name, ErrShortData)
	}

	if !slices.Contains(kinds, Key(data[0])) {
		return fmt.Errorf("%s: %w (key %d)", name, ErrWrongKind, data[0])
	}

	if err := bin.NewBorshDecoder(data).Decode(v); err != nil {
		return fmt.Errorf("%s: %v:\n%w", name, err, ErrShortData)
	}

	return nil
}
