// Package mdbmerr defines the error kinds returned across the mdbmgo storage
// engine. Every public operation returns one of these instead of logging and
// swallowing the failure; the core never calls os.Exit and never writes to
// stderr on its own.
package mdbmerr

import "fmt"

// Kind identifies the category of a storage-engine error.
type Kind int

const (
	// KindIO covers failed file or mapping operations: NoSpace, MapFailed,
	// OutOfRange.
	KindIO Kind = iota
	// KindCorrupt marks a detected on-disk invariant violation.
	KindCorrupt
	// KindInvalid marks caller misuse (bad flag combination, zero-length
	// key, hash change on a non-empty database, windowed mode without
	// RDWR, ...).
	KindInvalid
	// KindNotFound marks a fetch/delete on an absent key.
	KindNotFound
	// KindExists marks an INSERT on a key that is already present.
	KindExists
	// KindFull covers DbFull and DirectoryFull.
	KindFull
	// KindWouldBlock marks a non-blocking lock call that would have
	// blocked.
	KindWouldBlock
	// KindLockModeConflict marks open flags that disagree with the
	// locking mode already established on the file.
	KindLockModeConflict
	// KindOwnerDied marks a lock recovery path triggered by a dead
	// holder.
	KindOwnerDied
	// KindUnsupported marks an operation incompatible with the
	// database's current configuration.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "Io"
	case KindCorrupt:
		return "Corrupt"
	case KindInvalid:
		return "Invalid"
	case KindNotFound:
		return "NotFound"
	case KindExists:
		return "Exists"
	case KindFull:
		return "Full"
	case KindWouldBlock:
		return "WouldBlock"
	case KindLockModeConflict:
		return "LockModeConflict"
	case KindOwnerDied:
		return "OwnerDied"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned by every public mdbmgo
// operation.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "store", "grow_to"
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mdbm: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("mdbm: %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	me, ok := err.(*Error)
	return ok && me.Kind == kind
}

// New builds a *Error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a *Error around an underlying cause.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Named sentinel-style constructors for each well-known failure mode.

func NoSpace(op string, err error) *Error {
	return Wrap(KindIO, op, "no space left to grow the file", err)
}

func MapFailed(op string, err error) *Error {
	return Wrap(KindIO, op, "address space exhausted while mapping", err)
}

func OutOfRange(op string, page uint32) *Error {
	return New(KindIO, op, fmt.Sprintf("page %d is out of range", page))
}

func DbFull(op string) *Error {
	return New(KindFull, op, "size limit reached and eviction/shake could not free space")
}

func DirectoryFull(op string) *Error {
	return New(KindFull, op, "page size cannot hold the widened directory")
}

func AllocFailed(op string, err error) *Error {
	return Wrap(KindFull, op, "chunk allocator exhausted", err)
}

func KeyExists(op string) *Error {
	return New(KindExists, op, "key already present")
}

func KeyNotFound(op string) *Error {
	return New(KindNotFound, op, "key not present")
}

func WouldBlock(op string) *Error {
	return New(KindWouldBlock, op, "lock is held and the call was non-blocking")
}

func LockModeConflict(op string, established, requested string) *Error {
	return New(KindLockModeConflict, op, fmt.Sprintf("file was created with %s locking, cannot open with %s", established, requested))
}

func OwnerDied(op, path string) *Error {
	return New(KindOwnerDied, op, fmt.Sprintf("lock holder on %s died, recovery path invoked, database needs_check", path))
}

func Unsupported(op, reason string) *Error {
	return New(KindUnsupported, op, reason)
}

func Invalid(op, reason string) *Error {
	return New(KindInvalid, op, reason)
}

func Corrupt(op, reason string) *Error {
	return New(KindCorrupt, op, reason)
}
