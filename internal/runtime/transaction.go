package runtime

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/zeebo/blake3"

	"Satellite/internal/program"
)

const (
	maxSigners      = 16
	maxInstructions = 16
	maxAccounts     = 32
	maxData         = 1 << 12
)

// ErrMalformed is returned when transaction bytes cannot be decoded.
var ErrMalformed = errors.New("malformed transaction")

// Transaction is a signed batch of instructions executed atomically.
type Transaction struct {
	Nonce        uint64                // Nonce makes otherwise identical transactions distinct
	Signers      []solana.PublicKey    // Signers are the keys whose signatures the transaction carries
	Instructions []program.Instruction // Instructions run in order; any failure aborts all
	Signatures   []solana.Signature    // Signatures[i] is by Signers[i] over Message()
}

// NewTransaction creates an unsigned transaction. Signers are collected from
// the instructions' signer metas in first-seen order.
func NewTransaction(nonce uint64, instructions ...program.Instruction) *Transaction {
	tx := &Transaction{Nonce: nonce, Instructions: instructions}

	seen := make(map[solana.PublicKey]bool)
	for _, ix := range instructions {
		for _, m := range ix.Accounts {
			if m.IsSigner && !seen[m.Key] {
				seen[m.Key] = true
				tx.Signers = append(tx.Signers, m.Key)
			}
		}
	}

	return tx
}

// Sign signs the message with every key. Each key must be a listed signer.
func (tx *Transaction) Sign(keys ...solana.PrivateKey) error {
	msg := tx.Message()

	if len(tx.Signatures) != len(tx.Signers) {
		tx.Signatures = make([]solana.Signature, len(tx.Signers))
	}

	for _, key := range keys {
		idx := tx.signerIndex(key.PublicKey())
		if idx < 0 {
			return fmt.Errorf("key %s is not a signer", key.PublicKey())
		}

		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign:\n%w", err)
		}

		tx.Signatures[idx] = sig
	}

	return nil
}

// Verify checks every signature and that each signer meta is covered.
func (tx *Transaction) Verify() error {
	if len(tx.Signatures) != len(tx.Signers) {
		return fmt.Errorf("%w: %d signatures for %d signers", ErrBadSignature, len(tx.Signatures), len(tx.Signers))
	}

	msg := tx.Message()

	for i, key := range tx.Signers {
		if !tx.Signatures[i].Verify(key, msg) {
			return fmt.Errorf("%w: signer %s", ErrBadSignature, key)
		}
	}

	for _, ix := range tx.Instructions {
		for _, m := range ix.Accounts {
			if m.IsSigner && tx.signerIndex(m.Key) < 0 {
				return fmt.Errorf("%w: %s must sign", ErrBadSignature, m.Key)
			}
		}
	}

	return nil
}

// Hash identifies the transaction for replay protection.
func (tx *Transaction) Hash() [32]byte {
	return blake3.Sum256(tx.Message())
}

// Message returns the signed part of the transaction.
// Format: u64 nonce, u8 n + n signer keys, u8 m + m instructions where each
// instruction is program key, u8 k + k (key, flags) accounts, u32 len + data.
func (tx *Transaction) Message() []byte {
	buf := make([]byte, 0, 256)

	buf = binary.LittleEndian.AppendUint64(buf, tx.Nonce)

	buf = append(buf, byte(len(tx.Signers)))
	for _, s := range tx.Signers {
		buf = append(buf, s.Bytes()...)
	}

	buf = append(buf, byte(len(tx.Instructions)))
	for _, ix := range tx.Instructions {
		buf = append(buf, ix.ProgramID.Bytes()...)

		buf = append(buf, byte(len(ix.Accounts)))
		for _, m := range ix.Accounts {
			buf = append(buf, m.Key.Bytes()...)
			buf = append(buf, metaFlags(m))
		}

		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ix.Data)))
		buf = append(buf, ix.Data...)
	}

	return buf
}

// Encode serializes the message followed by one signature per signer.
func (tx *Transaction) Encode() []byte {
	buf := tx.Message()
	for _, sig := range tx.Signatures {
		buf = append(buf, sig[:]...)
	}

	return buf
}

// DecodeTransaction parses an encoded transaction. Trailing bytes are rejected.
func DecodeTransaction(data []byte) (*Transaction, error) {
	r := &reader{data: data}
	tx := &Transaction{Nonce: r.u64()}

	n := int(r.u8())
	if n > maxSigners {
		return nil, fmt.Errorf("%w: %d signers", ErrMalformed, n)
	}

	for i := 0; i < n && r.err == nil; i++ {
		tx.Signers = append(tx.Signers, r.key())
	}

	m := int(r.u8())
	if m > maxInstructions {
		return nil, fmt.Errorf("%w: %d instructions", ErrMalformed, m)
	}

	for i := 0; i < m && r.err == nil; i++ {
		ix, err := r.instruction()
		if err != nil {
			return nil, err
		}
		tx.Instructions = append(tx.Instructions, ix)
	}

	for i := 0; i < n && r.err == nil; i++ {
		var sig solana.Signature
		copy(sig[:], r.take(64))
		tx.Signatures = append(tx.Signatures, sig)
	}

	if r.err != nil {
		return nil, r.err
	}

	if len(r.data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.data))
	}

	return tx, nil
}

func (tx *Transaction) signerIndex(key solana.PublicKey) int {
	for i, s := range tx.Signers {
		if s == key {
			return i
		}
	}

	return -1
}

// metaFlags packs the signer (bit 0) and writable (bit 1) flags.
func metaFlags(m program.AccountMeta) byte {
	var f byte
	if m.IsSigner {
		f |= 1
	}
	if m.IsWritable {
		f |= 2
	}
	return f
}

// reader consumes transaction bytes, remembering the first error.
type reader struct {
	data []byte
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}

	if len(r.data) < n {
		r.err = fmt.Errorf("%w: truncated", ErrMalformed)
		return make([]byte, n)
	}

	out := r.data[:n]
	r.data = r.data[n:]

	return out
}

func (r *reader) u8() uint8 {
	return r.take(1)[0]
}

func (r *reader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.take(4))
}

func (r *reader) u64() uint64 {
	return binary.LittleEndian.Uint64(r.take(8))
}

func (r *reader) key() solana.PublicKey {
	return solana.PublicKeyFromBytes(r.take(32))
}

func (r *reader) instruction() (program.Instruction, error) {
	ix := program.Instruction{ProgramID: r.key()}

	k := int(r.u8())
	if k > maxAccounts {
		return ix, fmt.Errorf("%w: %d accounts", ErrMalformed, k)
	}

	for i := 0; i < k && r.err == nil; i++ {
		key := r.key()
		flags := r.u8()
		if flags > 3 {
			return ix, fmt.Errorf("%w: account flags %#x", ErrMalformed, flags)
		}

		ix.Accounts = append(ix.Accounts, program.AccountMeta{
			Key:        key,
			IsSigner:   flags&1 != 0,
			IsWritable: flags&2 != 0,
		})
	}

	size := r.u32()
	if size > maxData {
		return ix, fmt.Errorf("%w: %d bytes of data", ErrMalformed, size)
	}

	ix.Data = append([]byte(nil), r.take(int(size))...)

	return ix, r.err
}
