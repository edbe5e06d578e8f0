// Package lock implements the multi-mode locking subsystem: exclusive,
// partitioned, shared and none, chosen once by the first process to open a
// database and enforced on every later opener via a sidecar ".lock" file.
// It is grounded on the bbolt-style flock pattern present in the example
// pack (syscall.Flock(fd, LOCK_EX) around the whole file, held for the
// process's lifetime), generalized to byte-range locks via
// golang.org/x/sys/unix's FcntlFlock so that partitioned mode can lock a
// single partition's byte range instead of the whole file, and to recursive
// per-handle acquisition so nested Lock calls from the same handle don't
// block on themselves.
package lock

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nainya/mdbmgo/pkg/mdbmerr"
)

// Mode selects the locking discipline for a database. Mutually exclusive
// per file: the first process to create the lock sidecar decides, and every
// later opener must request the same mode or fail with LockModeConflict.
type Mode uint8

const (
	Exclusive Mode = iota
	Partitioned
	Shared
	None
)

func (m Mode) String() string {
	switch m {
	case Exclusive:
		return "exclusive"
	case Partitioned:
		return "partitioned"
	case Shared:
		return "shared"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// headerLen is the sidecar file's fixed prefix: {mode:1, numPartitions:4,
// ownerPid:4}. Every byte past headerLen is one lock-range byte per
// partition, so Partitioned mode never contends with the header itself.
const headerLen = 9

// Handle is one process's view of a database's lock sidecar. A Handle is
// not safe for concurrent use by multiple goroutines without External
// synchronization on Lock/Unlock for the SAME partition; separate
// partitions may be locked concurrently by design.
type Handle struct {
	mu sync.Mutex

	fd            int
	mode          Mode
	numPartitions int

	// depth counts recursive acquisitions per partition (or the single
	// whole-file range -1, for Exclusive/Shared) made by THIS handle, so
	// that a goroutine already holding partition P's lock can re-enter
	// without deadlocking on its own fcntl range lock.
	depth map[int]int
}

// Open opens (creating if needed) path's lock sidecar and establishes or
// validates the locking mode. create must be true exactly when the caller
// is creating a brand new database; the first creator's mode choice is
// persisted and binds every later opener.
func Open(path string, mode Mode, numPartitions int, create bool) (*Handle, error) {
	if mode == Partitioned && numPartitions < 1 {
		numPartitions = 1
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, mdbmerr.Wrap(mdbmerr.KindIO, "lock_open", "open lock sidecar", err)
	}
	fd := int(f.Fd())

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mdbmerr.Wrap(mdbmerr.KindIO, "lock_open", "stat lock sidecar", err)
	}

	h := &Handle{fd: fd, mode: mode, numPartitions: numPartitions, depth: make(map[int]int)}

	if info.Size() < headerLen {
		if !create {
			f.Close()
			return nil, mdbmerr.Invalid("lock_open", "lock sidecar missing and database is not being created")
		}
		if err := h.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
		return h, nil
	}

	established, establishedPartitions, err := h.readHeader()
	if err != nil {
		f.Close()
		return nil, err
	}
	if established != mode {
		f.Close()
		return nil, mdbmerr.LockModeConflict("lock_open", established.String(), mode.String())
	}
	if mode == Partitioned {
		h.numPartitions = establishedPartitions
	}
	return h, nil
}

func (h *Handle) writeHeader() error {
	buf := make([]byte, headerLen)
	buf[0] = byte(h.mode)
	putUint32(buf[1:], uint32(h.numPartitions))
	putUint32(buf[5:], uint32(os.Getpid()))
	_, err := unix.Pwrite(h.fd, buf, 0)
	if err != nil {
		return mdbmerr.Wrap(mdbmerr.KindIO, "lock_open", "write lock sidecar header", err)
	}
	return nil
}

func (h *Handle) readHeader() (Mode, int, error) {
	buf := make([]byte, headerLen)
	if _, err := unix.Pread(h.fd, buf, 0); err != nil {
		return 0, 0, mdbmerr.Wrap(mdbmerr.KindIO, "lock_open", "read lock sidecar header", err)
	}
	return Mode(buf[0]), int(getUint32(buf[1:])), nil
}

func putUint32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// partitionOf maps a key's hash to a partition number: hash mod
// num_partitions.
func (h *Handle) partitionOf(keyHash uint32) int {
	if h.numPartitions <= 1 {
		return 0
	}
	return int(keyHash % uint32(h.numPartitions))
}

// rangeFor returns the byte-range lock descriptors for a partition (or the
// whole-file range, when mode is not Partitioned).
func (h *Handle) rangeFor(partition int) (start int64, length int64) {
	if h.mode != Partitioned {
		return 0, 0 // 0-length = whole file, per fcntl semantics
	}
	return int64(headerLen + partition), 1
}

// Lock acquires the lock for keyHash's partition (whole-file for
// Exclusive/Shared, a no-op for None), blocking until available. shared
// requests a read lock; mdbm's Shared mode and fetch-path locking under
// Exclusive/Partitioned both pass shared=true, store-path callers pass
// false.
func (h *Handle) Lock(keyHash uint32, shared bool) error {
	return h.lock(keyHash, shared, true)
}

// TryLock is Lock's non-blocking counterpart; it returns a KindWouldBlock
// error instead of blocking when the range is already held elsewhere.
func (h *Handle) TryLock(keyHash uint32, shared bool) error {
	return h.lock(keyHash, shared, false)
}

func (h *Handle) lock(keyHash uint32, shared, block bool) error {
	if h.mode == None {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	partition := h.partitionOf(keyHash)
	if h.depth[partition] > 0 {
		h.depth[partition]++
		return nil
	}

	start, length := h.rangeFor(partition)
	typ := int16(unix.F_WRLCK)
	if shared {
		typ = unix.F_RDLCK
	}

	flockT := unix.Flock_t{
		Type:   typ,
		Whence: int16(io.SeekStart),
		Start:  start,
		Len:    length,
	}

	cmd := unix.F_SETLKW
	if !block {
		cmd = unix.F_SETLK
	}

	if err := unix.FcntlFlock(uintptr(h.fd), cmd, &flockT); err != nil {
		if !block && (err == unix.EAGAIN || err == unix.EACCES) {
			return mdbmerr.WouldBlock("lock")
		}
		return mdbmerr.Wrap(mdbmerr.KindIO, "lock", "fcntl lock", err)
	}

	h.depth[partition] = 1
	return nil
}

// Unlock releases one level of recursion on keyHash's partition lock,
// actually releasing the OS-level lock only when the handle's recursion
// depth reaches zero.
func (h *Handle) Unlock(keyHash uint32) error {
	if h.mode == None {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	partition := h.partitionOf(keyHash)
	if h.depth[partition] == 0 {
		return mdbmerr.Invalid("unlock", "partition not locked by this handle")
	}
	h.depth[partition]--
	if h.depth[partition] > 0 {
		return nil
	}
	delete(h.depth, partition)

	start, length := h.rangeFor(partition)
	flockT := unix.Flock_t{
		Type:   unix.F_UNLCK,
		Whence: int16(io.SeekStart),
		Start:  start,
		Len:    length,
	}
	if err := unix.FcntlFlock(uintptr(h.fd), unix.F_SETLK, &flockT); err != nil {
		return mdbmerr.Wrap(mdbmerr.KindIO, "unlock", "fcntl unlock", err)
	}
	return nil
}

// Depth reports this handle's current recursion depth for keyHash's
// partition; used by tests and by `check` diagnostics.
func (h *Handle) Depth(keyHash uint32) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth[h.partitionOf(keyHash)]
}

// IsLocked reports whether keyHash's partition is currently held, probing
// via fcntl(F_GETLK) rather than acquiring the lock itself. A recursive
// hold by this handle counts as locked without the probe. fcntl record
// locks belong to the process, so the probe does not report a hold by
// another handle in this same process; such a hold reads as unlocked.
func (h *Handle) IsLocked(keyHash uint32) (bool, error) {
	if h.mode == None {
		return false, nil
	}

	h.mu.Lock()
	partition := h.partitionOf(keyHash)
	heldByUs := h.depth[partition] > 0
	h.mu.Unlock()
	if heldByUs {
		return true, nil
	}

	start, length := h.rangeFor(partition)
	flockT := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: int16(io.SeekStart),
		Start:  start,
		Len:    length,
	}
	if err := unix.FcntlFlock(uintptr(h.fd), unix.F_GETLK, &flockT); err != nil {
		return false, mdbmerr.Wrap(mdbmerr.KindIO, "islocked", "fcntl getlk", err)
	}
	return flockT.Type != unix.F_UNLCK, nil
}

// Reset clears a lock believed stuck because its holder died mid-operation,
// mirroring lock_reset: it forces the byte range unlocked regardless of
// this handle's own recursion bookkeeping and reports KindOwnerDied so the
// caller can mark the database needs_check. fcntl locks are released
// automatically by the kernel when the holding process exits, so in
// practice Reset only needs to clear OUR stale bookkeeping after a crash
// recovery reopen; it still issues the unlock for defense in depth.
func (h *Handle) Reset(keyHash uint32, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	partition := h.partitionOf(keyHash)
	delete(h.depth, partition)

	start, length := h.rangeFor(partition)
	flockT := unix.Flock_t{Type: unix.F_UNLCK, Whence: int16(io.SeekStart), Start: start, Len: length}
	_ = unix.FcntlFlock(uintptr(h.fd), unix.F_SETLK, &flockT)

	return mdbmerr.OwnerDied("lock_reset", path)
}

// Mode reports the mode this handle's database was opened with.
func (h *Handle) Mode() Mode { return h.mode }

// NumPartitions reports the partition count (1 for non-Partitioned modes).
func (h *Handle) NumPartitions() int { return h.numPartitions }

// Close releases the sidecar file descriptor. Outstanding fcntl locks are
// released by the kernel as soon as the last descriptor referencing them is
// closed.
func (h *Handle) Close() error {
	return unix.Close(h.fd)
}
