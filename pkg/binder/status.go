package binder

import (
	"fmt"
	"math"
	"syscall"
)

// Status mirrors binder_status_t. The values are fixed by libbinder_ndk;
// this package never invents new ones. Negative values are Linux errnos.
type Status int32

const (
	StatusOK                 Status = 0
	StatusUnknownError       Status = math.MinInt32
	StatusNoMemory           Status = -12
	StatusInvalidOperation   Status = -38
	StatusBadValue           Status = -22
	StatusBadType            Status = StatusUnknownError + 1
	StatusNameNotFound       Status = -2
	StatusPermissionDenied   Status = -1
	StatusNoInit             Status = -19
	StatusAlreadyExists      Status = -17
	StatusDeadObject         Status = -32
	StatusFailedTransaction  Status = StatusUnknownError + 2
	StatusBadIndex           Status = -75
	StatusNotEnoughData      Status = -61
	StatusWouldBlock         Status = -11
	StatusTimedOut           Status = -110
	StatusUnknownTransaction Status = -74
	StatusFdsNotAllowed      Status = StatusUnknownError + 7
	StatusUnexpectedNull     Status = StatusUnknownError + 8
)

var statusNames = map[Status]string{
	StatusOK:                 "STATUS_OK",
	StatusUnknownError:       "STATUS_UNKNOWN_ERROR",
	StatusNoMemory:           "STATUS_NO_MEMORY",
	StatusInvalidOperation:   "STATUS_INVALID_OPERATION",
	StatusBadValue:           "STATUS_BAD_VALUE",
	StatusBadType:            "STATUS_BAD_TYPE",
	StatusNameNotFound:       "STATUS_NAME_NOT_FOUND",
	StatusPermissionDenied:   "STATUS_PERMISSION_DENIED",
	StatusNoInit:             "STATUS_NO_INIT",
	StatusAlreadyExists:      "STATUS_ALREADY_EXISTS",
	StatusDeadObject:         "STATUS_DEAD_OBJECT",
	StatusFailedTransaction:  "STATUS_FAILED_TRANSACTION",
	StatusBadIndex:           "STATUS_BAD_INDEX",
	StatusNotEnoughData:      "STATUS_NOT_ENOUGH_DATA",
	StatusWouldBlock:         "STATUS_WOULD_BLOCK",
	StatusTimedOut:           "STATUS_TIMED_OUT",
	StatusUnknownTransaction: "STATUS_UNKNOWN_TRANSACTION",
	StatusFdsNotAllowed:      "STATUS_FDS_NOT_ALLOWED",
	StatusUnexpectedNull:     "STATUS_UNEXPECTED_NULL",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}

// Error lets a non-OK Status travel as an error on the client side.
func (s Status) Error() string { return "binder: " + s.String() }

// Err returns nil for StatusOK and s otherwise.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return s
}

// Known reports whether s is one of the libbinder_ndk status values.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// StatusFromErrno maps an errno onto the status set. Unknown errnos collapse
// to StatusUnknownError rather than producing a new value.
func StatusFromErrno(errno syscall.Errno) Status {
	if errno == 0 {
		return StatusOK
	}
	s := -Status(errno)
	if s.Known() {
		return s
	}
	return StatusUnknownError
}

// TransactionCode selects the operation of one transaction.
type TransactionCode uint32

const (
	FirstCallTransaction TransactionCode = 0x00000001
	LastCallTransaction  TransactionCode = 0x00ffffff
)

// UserCode reports whether c lies in the range reserved for user-defined
// transactions.
func (c TransactionCode) UserCode() bool {
	return c >= FirstCallTransaction && c <= LastCallTransaction
}

// Flags modify how a transaction is delivered.
type Flags uint32

const (
	FlagNone   Flags = 0
	FlagOneway Flags = 0x01
)
