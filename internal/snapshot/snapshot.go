// Package snapshot exports and restores the node state as a single
// compressed, checksummed blob.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"Satellite/internal/storage"
)

// version is the current snapshot format version.
const version = 1

// prefixes lists the key spaces carried by a snapshot, in key order.
var prefixes = [][]byte{
	[]byte("a:"), // accounts
	[]byte("m:"), // node metadata
	[]byte("t:"), // executed transactions
}

var (
	// ErrChecksum is returned when snapshot contents do not match their checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")

	// ErrNotEmpty is returned when restoring into a database that holds state.
	ErrNotEmpty = errors.New("database is not empty")

	// ErrFormat is returned for undecodable snapshot bytes.
	ErrFormat = errors.New("invalid snapshot format")
)

// entry is one stored key-value pair.
type entry struct {
	key   []byte
	value []byte
}

// Export returns the zstd-compressed snapshot of db.
// Layout before compression: u32 version, u32 count, count entries of
// (u32 key len, key, u32 value len, value) in key order, 32-byte blake3 checksum
// of everything before it.
func Export(db *storage.Storage) ([]byte, error) {
	entries, err := collect(db)
	if err != nil {
		return nil, fmt.Errorf("collect entries:\n%w", err)
	}

	return Compress(encode(entries))
}

// Import verifies a snapshot produced by Export and writes it into db in a
// single batch. It returns the number of restored entries.
func Import(db *storage.Storage, data []byte) (int, error) {
	raw, err := Decompress(data)
	if err != nil {
		return 0, fmt.Errorf("decompress:\n%w", err)
	}

	entries, err := decode(raw)
	if err != nil {
		return 0, err
	}

	empty, err := isEmpty(db)
	if err != nil {
		return 0, fmt.Errorf("check database:\n%w", err)
	}

	if !empty {
		return 0, ErrNotEmpty
	}

	pairs := make([]storage.KeyValue, len(entries))
	for i, e := range entries {
		pairs[i] = storage.KeyValue{Key: e.key, Value: e.value}
	}

	if err := db.SetBatch(pairs); err != nil {
		return 0, fmt.Errorf("write entries:\n%w", err)
	}

	return len(entries), nil
}

// collect reads every snapshotted key. Prefixes are visited in sorted
// order so the result is sorted by key.
func collect(db *storage.Storage) ([]entry, error) {
	var entries []entry

	for _, prefix := range prefixes {
		err := db.IteratePrefix(prefix, func(key, value []byte) error {
			entries = append(entries, entry{
				key:   bytes.Clone(key),
				value: bytes.Clone(value),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

func isEmpty(db *storage.Storage) (bool, error) {
	empty := true
	stop := errors.New("stop")

	for _, prefix := range prefixes {
		err := db.IteratePrefix(prefix, func(_, _ []byte) error {
			empty = false
			return stop
		})
		if err != nil && !errors.Is(err, stop) {
			return false, err
		}
		if !empty {
			break
		}
	}

	return empty, nil
}

func encode(entries []entry) []byte {
	buf := binary.BigEndian.AppendUint32(nil, version)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))

	for _, e := range entries {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.key)))
		buf = append(buf, e.key...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.value)))
		buf = append(buf, e.value...)
	}

	sum := blake3.Sum256(buf)

	return append(buf, sum[:]...)
}

func decode(raw []byte) ([]entry, error) {
	if len(raw) < 8+32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFormat, len(raw))
	}

	body, stored := raw[:len(raw)-32], raw[len(raw)-32:]
	if sum := blake3.Sum256(body); !bytes.Equal(sum[:], stored) {
		return nil, ErrChecksum
	}

	if v := binary.BigEndian.Uint32(body); v != version {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, v)
	}

	count := binary.BigEndian.Uint32(body[4:])
	body = body[8:]

	entries := make([]entry, 0, min(count, 1<<16))

	for i := uint32(0); i < count; i++ {
		key, rest, ok := field(body)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d key", ErrFormat, i)
		}

		value, rest, ok := field(rest)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d value", ErrFormat, i)
		}

		entries = append(entries, entry{key: key, value: value})
		body = rest
	}

	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, len(body))
	}

	return entries, nil
}

// field reads one length-prefixed byte string.
func field(data []byte) ([]byte, []byte, bool) {
	if len(data) < 4 {
		return nil, nil, false
	}

	n := binary.BigEndian.Uint32(data)
	data = data[4:]

	if uint64(len(data)) < uint64(n) {
		return nil, nil, false
	}

	return data[:n], data[n:], true
}

// Compress compresses snapshot data using zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd-compressed snapshot data.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
