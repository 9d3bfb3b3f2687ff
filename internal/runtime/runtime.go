// Package runtime executes signed transactions against the account state.
// Each transaction runs inside one storage transaction: every instruction
// sees the writes of the previous ones, and nothing is committed unless all
// of them succeed.
package runtime

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/address"
	"Satellite/internal/custody"
	"Satellite/internal/instruction"
	"Satellite/internal/ledger"
	"Satellite/internal/logger"
	"Satellite/internal/program"
	"Satellite/internal/registry"
	"Satellite/internal/snapshot"
	"Satellite/internal/state"
	"Satellite/internal/storage"
)

// Key prefixes for storage.
var (
	prefixTx   = []byte("t:") // t:<hash> -> u64 sequence number
	prefixMeta = []byte("m:") // m:executed -> u64
)

var (
	// ErrReplay is returned for a transaction that already executed.
	ErrReplay = errors.New("transaction already executed")

	// ErrBadSignature is returned when signatures do not cover the transaction.
	ErrBadSignature = errors.New("invalid transaction signature")
)

// Receipt describes an executed transaction.
type Receipt struct {
	Hash     [32]byte // Hash identifies the transaction
	Sequence uint64   // Sequence is the number of transactions executed before it
}

// Runtime hosts the custody program and the token and registry programs it calls.
type Runtime struct {
	db        *storage.Storage
	programID solana.PublicKey
	custody   solana.PublicKey
	bump      uint8

	mu       sync.Mutex // mu serializes execution
	executed uint64     // executed counts committed transactions
}

// New creates a runtime hosting the custody program programID over db.
func New(db *storage.Storage, programID solana.PublicKey) (*Runtime, error) {
	custody, bump, err := address.Custody(programID)
	if err != nil {
		return nil, fmt.Errorf("derive custody address:\n%w", err)
	}

	r := &Runtime{
		db:        db,
		programID: programID,
		custody:   custody,
		bump:      bump,
	}

	if err := r.loadExecuted(); err != nil {
		return nil, err
	}

	return r, nil
}

// ProgramID returns the custody program identity.
func (r *Runtime) ProgramID() solana.PublicKey {
	return r.programID
}

// Custody returns the custody address and its bump.
func (r *Runtime) Custody() (solana.PublicKey, uint8) {
	return r.custody, r.bump
}

// Executed returns the number of committed transactions.
func (r *Runtime) Executed() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.executed
}

// Account returns the committed state of key, or nil if it does not exist.
func (r *Runtime) Account(key solana.PublicKey) (*state.Account, error) {
	return state.New(r.db).Get(key)
}

// Snapshot exports the committed state between two transactions.
func (r *Runtime) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return snapshot.Export(r.db)
}

// Execute verifies and runs tx. Program failures are returned wrapped so
// program.CodeOf recovers their code; state is then left untouched.
func (r *Runtime) Execute(tx *Transaction) (*Receipt, error) {
	if err := tx.Verify(); err != nil {
		return nil, err
	}

	hash := tx.Hash()
	start := time.Now()
	log := logger.With("tx", fmt.Sprintf("%x", hash[:8]))

	r.mu.Lock()
	defer r.mu.Unlock()

	txn := r.db.NewTxn()
	defer txn.Discard()

	seen, err := txn.Get(txKey(hash))
	if err != nil {
		return nil, fmt.Errorf("check replay:\n%w", err)
	}

	if seen != nil {
		return nil, fmt.Errorf("%w: %x", ErrReplay, hash[:8])
	}

	st := state.New(txn)
	programs := hostedPrograms(st, r.programID)
	signed := make(map[solana.PublicKey]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signed[s] = true
	}

	for i, ix := range tx.Instructions {
		if err := r.run(st, programs, signed, ix); err != nil {
			log.Info("transaction failed",
				"instruction", i,
				"op", describe(r.programID, ix),
				"code", codeOf(err),
				"error", firstLine(err),
			)
			return nil, fmt.Errorf("instruction %d:\n%w", i, err)
		}

		log.Debug("instruction executed", "op", describe(r.programID, ix))
	}

	receipt := &Receipt{Hash: hash, Sequence: r.executed}

	if err := txn.Set(txKey(hash), binary.BigEndian.AppendUint64(nil, receipt.Sequence)); err != nil {
		return nil, fmt.Errorf("record transaction:\n%w", err)
	}

	if err := txn.Set(executedKey(), binary.BigEndian.AppendUint64(nil, r.executed+1)); err != nil {
		return nil, fmt.Errorf("record count:\n%w", err)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("commit:\n%w", err)
	}

	r.executed++

	log.Info("transaction executed",
		"instructions", len(tx.Instructions),
		logger.Timed(start),
	)

	return receipt, nil
}

// run executes one instruction against st.
func (r *Runtime) run(st *state.State, programs map[solana.PublicKey]program.Processor, signed map[solana.PublicKey]bool, ix program.Instruction) error {
	proc, ok := programs[ix.ProgramID]
	if !ok {
		return program.Wrap(program.ErrIncorrectProgramID, "unknown program %s", ix.ProgramID)
	}

	accounts := make([]program.AccountInfo, len(ix.Accounts))
	for i, m := range ix.Accounts {
		acc, err := st.Get(m.Key)
		if err != nil {
			return fmt.Errorf("load %s:\n%w", m.Key, err)
		}

		accounts[i] = program.AccountInfo{
			Key:        m.Key,
			IsSigner:   m.IsSigner && signed[m.Key],
			IsWritable: m.IsWritable,
		}

		if acc != nil {
			accounts[i].Owner = acc.Owner
			accounts[i].Data = acc.Data
		}
	}

	return proc.Process(accounts, ix.Data)
}

// hostedPrograms binds every hosted program to st.
func hostedPrograms(st *state.State, programID solana.PublicKey) map[solana.PublicKey]program.Processor {
	tokens := ledger.New(st)
	reg := registry.New(st, tokens)

	list := []program.Processor{
		tokens,
		ledger.NewAssociated(tokens),
		reg,
		custody.NewProcessor(programID, tokens, reg),
	}

	programs := make(map[solana.PublicKey]program.Processor, len(list))
	for _, p := range list {
		programs[p.ProgramID()] = p
	}

	return programs
}

// describe names an instruction for logs.
func describe(programID solana.PublicKey, ix program.Instruction) string {
	switch ix.ProgramID {
	case programID:
		op, err := instruction.Decode(ix.Data)
		if err != nil {
			return "custody:invalid"
		}
		if op.Kind == instruction.MintNewEdition {
			return fmt.Sprintf("custody:%s(%d)", op.Kind, op.Edition)
		}
		return "custody:" + op.Kind.String()
	case address.TokenProgramID:
		if len(ix.Data) > 0 {
			return fmt.Sprintf("token:%d", ix.Data[0])
		}
		return "token:invalid"
	case address.AssociatedTokenProgramID:
		return "associated:create"
	case address.RegistryProgramID:
		if len(ix.Data) > 0 {
			return fmt.Sprintf("registry:%d", ix.Data[0])
		}
		return "registry:invalid"
	default:
		return ix.ProgramID.String()
	}
}

// firstLine returns the outermost context of a wrapped error.
func firstLine(err error) string {
	line, _, _ := strings.Cut(err.Error(), "\n")
	return line
}

// codeOf returns the program error code of err, or 0 if it carries none.
func codeOf(err error) uint64 {
	code, _ := program.CodeOf(err)
	return code
}

// loadExecuted restores the transaction count from storage.
func (r *Runtime) loadExecuted() error {
	data, err := r.db.Get(executedKey())
	if err != nil {
		return fmt.Errorf("load executed count:\n%w", err)
	}

	if len(data) == 8 {
		r.executed = binary.BigEndian.Uint64(data)
	}

	return nil
}

// txKey creates a storage key for an executed transaction.
func txKey(hash [32]byte) []byte {
	key := make([]byte, len(prefixTx)+32)
	copy(key, prefixTx)
	copy(key[len(prefixTx):], hash[:])
	return key
}

func executedKey() []byte {
	return append(append([]byte{}, prefixMeta...), "executed"...)
}
