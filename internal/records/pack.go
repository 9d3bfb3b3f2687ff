package records

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrShortData is returned when account data ends before a field.
var ErrShortData = errors.New("account data too short")

// writer appends the little-endian fields of a Pack layout to a buffer.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) key(k solana.PublicKey) {
	w.buf = append(w.buf, k[:]...)
}

// coptionKey writes a Pack COption<Pubkey>: u32 tag + 32 bytes, always 36 bytes.
func (w *writer) coptionKey(k *solana.PublicKey) {
	if k == nil {
		w.u32(0)
		w.buf = append(w.buf, make([]byte, 32)...)
		return
	}
	w.u32(1)
	w.key(*k)
}

// coptionU64 writes a Pack COption<u64>: u32 tag + 8 bytes.
func (w *writer) coptionU64(v *uint64) {
	if v == nil {
		w.u32(0)
		w.u64(0)
		return
	}
	w.u32(1)
	w.u64(*v)
}

// reader consumes the fields of a Pack layout; the first failure sticks.
type reader struct {
	data []byte
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data) < n {
		r.err = ErrShortData
		return nil
	}

	b := r.data[:n]
	r.data = r.data[n:]

	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool {
	return r.u8() != 0
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) key() solana.PublicKey {
	b := r.take(32)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *reader) coptionKey() *solana.PublicKey {
	tag := r.u32()
	k := r.key()
	if tag == 0 || r.err != nil {
		return nil
	}
	return &k
}

func (r *reader) coptionU64() *uint64 {
	tag := r.u32()
	v := r.u64()
	if tag == 0 || r.err != nil {
		return nil
	}
	return &v
}
