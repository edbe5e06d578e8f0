// Package backingstore implements the backing-store coupling: an optional
// external delegate a database can sit in front of as a write-through or
// write-back cache. There is no direct precedent for this exact shape; the
// Store interface and StoreFlag dispatch are expressed as a small
// interface + strategy-table pattern in the same register as the pluggable
// encoders in pkg/storage/encoding.go's Encoder interface, even though that
// package itself was dropped as out of scope for raw-byte keys.
package backingstore

import "github.com/nainya/mdbmgo/pkg/mdbmerr"

// Store is the external delegate a database is coupled to. Fetch/Store/
// Delete mirror the three operations a cache miss, a dirty eviction and an
// explicit delete need to forward; Lock lets the backing store coordinate
// its own concurrency with the overlay's partition locking.
type Store interface {
	Fetch(key []byte) (val []byte, found bool, err error)
	Store(key, val []byte) error
	Delete(key []byte) error
	Lock(key []byte) (unlock func(), err error)
}

// StoreFlag selects the write semantics of a store call. The bits compose:
// CacheOnly can be or'd onto Insert or Modify to suppress the backing-store
// forward while keeping that flag's presence check, e.g. Insert|CacheOnly
// inserts into the cache only, still failing on a duplicate key.
type StoreFlag uint8

const (
	// Replace overwrites an existing key or inserts if absent.
	Replace StoreFlag = 1 << iota
	// Insert fails with KindExists if the key is already present.
	Insert
	// InsertDup appends a new duplicate entry even when the key already
	// exists, never failing on presence; FetchDup walks the resulting
	// chain of same-key entries.
	InsertDup
	// Modify overwrites an existing key's value in place but fails with
	// KindNotFound if the key is absent -- the mirror image of Insert.
	Modify
	// CacheOnly writes the cache copy without forwarding to the backing
	// store at all, even when one is attached. Composes with Insert,
	// InsertDup or Modify to restrict their effect to the cache.
	CacheOnly
	// CacheModify updates the cached copy only if the key is already
	// resident, deferring to the backing store's existing value
	// otherwise; it falls back to Insert semantics when no backing store
	// is attached, since there is no external copy to defer to.
	CacheModify
)

// Coupling binds an optional Store to a database; a nil Store makes every
// method a pass-through that defers entirely to the in-page cache.
type Coupling struct {
	store Store
}

func New(store Store) *Coupling { return &Coupling{store: store} }

func (c *Coupling) Attached() bool { return c.store != nil }

// ResolveFlag applies the flag-semantics table below and reports whether
// the caller should (a) proceed with the in-page write, (b) also forward
// the write to the backing store, and (c) append a duplicate entry rather
// than overwrite the key's existing slot.
//
//	flag bit set  | no backing store        | with backing store
//	InsertDup     | always append           | always append + forward
//	Insert        | fail if key present     | fail if key present (checked
//	              |                         |   against the page only)
//	Modify        | fail if key absent      | fail if key absent
//	CacheModify   | falls back to Insert    | upsert cache only if key
//	              |                         |   already cached; else defer
//	Replace       | plain upsert            | upsert + forward
//
// CacheOnly suppresses the forward return value regardless of which of the
// above applies; it never participates in the presence check on its own.
// InsertDup, Insert, Modify and CacheModify are checked in that precedence
// order, so e.g. InsertDup|CacheModify behaves as InsertDup.
func (c *Coupling) ResolveFlag(flag StoreFlag, keyPresentInCache bool) (writeCache bool, forward bool, dup bool, err error) {
	fwd := c.Attached() && flag&CacheOnly == 0

	switch {
	case flag&InsertDup != 0:
		return true, fwd, true, nil
	case flag&Insert != 0:
		if keyPresentInCache {
			return false, false, false, mdbmerr.KeyExists("store")
		}
		return true, fwd, false, nil
	case flag&Modify != 0:
		if !keyPresentInCache {
			return false, false, false, mdbmerr.KeyNotFound("store")
		}
		return true, fwd, false, nil
	case flag&CacheModify != 0:
		if !c.Attached() {
			// No external copy to defer to; behaves like Insert.
			if keyPresentInCache {
				return false, false, false, mdbmerr.KeyExists("store")
			}
			return true, false, false, nil
		}
		if !keyPresentInCache {
			return false, false, false, nil
		}
		return true, false, false, nil
	case flag&Replace != 0, flag == 0:
		return true, fwd, false, nil
	default:
		return false, false, false, mdbmerr.Invalid("store", "unrecognized store flag")
	}
}

// Fetch consults the backing store on a cache miss.
func (c *Coupling) Fetch(key []byte) ([]byte, bool, error) {
	if !c.Attached() {
		return nil, false, nil
	}
	return c.store.Fetch(key)
}

// Forward pushes a cache write through to the backing store, used when
// ResolveFlag reports forward=true.
func (c *Coupling) Forward(key, val []byte) error {
	if !c.Attached() {
		return nil
	}
	return c.store.Store(key, val)
}

// ForwardDelete pushes a cache delete through to the backing store.
func (c *Coupling) ForwardDelete(key []byte) error {
	if !c.Attached() {
		return nil
	}
	return c.store.Delete(key)
}

// LockKey asks the backing store to coordinate its own concurrency around
// key, returning a no-op unlock when no store is attached.
func (c *Coupling) LockKey(key []byte) (func(), error) {
	if !c.Attached() {
		return func() {}, nil
	}
	return c.store.Lock(key)
}
