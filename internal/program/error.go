package program

import (
	"errors"
	"fmt"
)

// builtinShift places builtin error indexes in the upper 32 bits of a code,
// keeping the lower range free for program-specific errors.
const builtinShift = 32

// customZero is the code of Custom(0); a zero code would read as success.
const customZero = 1 << builtinShift

// Error is a terminal program error with a stable numeric code.
// Custom codes overlap between programs, so errors.Is matches the sentinel
// itself; use CodeOf for the code on the wire.
type Error struct {
	Code  uint64 // Code is stable across releases
	Label string // Label is the human-readable description
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Label
}

// Custom creates a program-specific error.
func Custom(n uint32, label string) *Error {
	code := uint64(n)
	if n == 0 {
		code = customZero
	}

	return &Error{Code: code, Label: label}
}

// builtin creates a runtime-defined error.
func builtin(index uint64, label string) *Error {
	return &Error{Code: index << builtinShift, Label: label}
}

// Builtin errors shared by every program.
var (
	ErrInvalidArgument          = builtin(2, "invalid program argument")
	ErrInvalidInstructionData   = builtin(3, "invalid instruction data")
	ErrInvalidAccountData       = builtin(4, "invalid account data for instruction")
	ErrInsufficientFunds        = builtin(6, "insufficient funds for instruction")
	ErrIncorrectProgramID       = builtin(7, "incorrect program id for instruction")
	ErrMissingRequiredSignature = builtin(8, "missing required signature for instruction")
	ErrAccountAlreadyInUse      = builtin(9, "account already initialized")
	ErrUninitializedAccount     = builtin(10, "account is not initialized")
	ErrNotEnoughAccountKeys     = builtin(11, "insufficient account keys for instruction")
	ErrMaxSeedLengthExceeded    = builtin(13, "length of the seed is too long for address generation")
	ErrInvalidSeeds             = builtin(14, "provided seeds do not result in a valid address")
)

// CodeOf extracts the program error code from err.
// Returns ok=false when err carries no program error.
func CodeOf(err error) (code uint64, ok bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}

	return 0, false
}

// Wrap annotates a program error with context while keeping its code.
func Wrap(err *Error, format string, args ...any) error {
	return fmt.Errorf("%s:\n%w", fmt.Sprintf(format, args...), err)
}
