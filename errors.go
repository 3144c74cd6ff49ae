package lzblock

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// Error is the type for the error kind constants reported by this package.
type Error byte

const (
	// ErrOverflow is returned when the engine processes more bytes than
	// the declared input size.
	ErrOverflow Error = iota

	// ErrInvalidSize is returned when the byte totals at the end of a job
	// disagree with the declared input size.
	ErrInvalidSize

	// ErrMemoryAccess is returned for an address request outside the
	// job's window bound.
	ErrMemoryAccess

	// ErrTimeout is returned when one chunk exceeds the cycle budget.
	ErrTimeout

	// ErrInvalidState is returned when the coordinator observes an
	// illegal state transition or an out-of-order result stream.
	ErrInvalidState

	// ErrStall is reported when the stall-cycle budget is exceeded.
	ErrStall

	// ErrCrcMismatch is returned when the verify step's checksum
	// disagrees with the one computed at job start.
	ErrCrcMismatch
)

var errorData = [...]enumhelper.EnumData{
	{GoName: "ErrOverflow"},
	{GoName: "ErrInvalidSize"},
	{GoName: "ErrMemoryAccess"},
	{GoName: "ErrTimeout"},
	{GoName: "ErrInvalidState"},
	{GoName: "ErrStall"},
	{GoName: "ErrCrcMismatch"},
}

var errorText = [...]string{
	"more bytes processed than the declared input size",
	"declared byte count disagrees with the running total",
	"address request outside the window bound",
	"chunk processing exceeded the cycle budget",
	"illegal coordinator state transition",
	"stall-cycle budget exceeded",
	"checksum verification failed",
}

// GoString returns the name of the Go constant.
func (err Error) GoString() string {
	return enumhelper.DereferenceEnumData("Error", errorData[:], uint(err)).GoName
}

// Error returns the error message for this error.
func (err Error) Error() string {
	return errorText[err]
}

// Recoverable reports whether a caller may retry the job after seeing this
// error. Timeouts and stalls are transient; everything else indicates a
// broken job.
func (err Error) Recoverable() bool {
	switch err {
	case ErrTimeout, ErrStall:
		return true
	default:
		return false
	}
}

var _ fmt.GoStringer = Error(0)
var _ error = Error(0)
