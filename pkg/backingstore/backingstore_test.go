package backingstore

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nainya/mdbmgo/pkg/mdbmerr"
)

// memStore is a trivial in-memory Store used to exercise Coupling without a
// real external system.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Fetch(key []byte) ([]byte, bool, error) {
	v, ok := m.data[string(key)]
	return v, ok, nil
}

func (m *memStore) Store(key, val []byte) error {
	m.data[string(key)] = append([]byte(nil), val...)
	return nil
}

func (m *memStore) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *memStore) Lock(key []byte) (func(), error) {
	return func() {}, nil
}

func TestAttachedReflectsWhetherAStoreIsBound(t *testing.T) {
	if New(nil).Attached() {
		t.Errorf("Attached() should be false with a nil store")
	}
	if !New(newMemStore()).Attached() {
		t.Errorf("Attached() should be true with a store bound")
	}
}

func TestResolveFlagReplaceAlwaysWritesAndForwardsWhenAttached(t *testing.T) {
	c := New(newMemStore())
	writeCache, forward, dup, err := c.ResolveFlag(Replace, true)
	if err != nil || !writeCache || !forward || dup {
		t.Errorf("Replace with a store attached: got (%v,%v,%v,%v), want (true,true,false,nil)", writeCache, forward, dup, err)
	}

	c2 := New(nil)
	writeCache, forward, dup, err = c2.ResolveFlag(Replace, true)
	if err != nil || !writeCache || forward || dup {
		t.Errorf("Replace without a store: got (%v,%v,%v,%v), want (true,false,false,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagInsertFailsWhenKeyPresent(t *testing.T) {
	c := New(newMemStore())
	_, _, _, err := c.ResolveFlag(Insert, true)
	if !mdbmerr.Is(err, mdbmerr.KindExists) {
		t.Fatalf("expected KindExists inserting over a present key, got %v", err)
	}

	writeCache, forward, dup, err := c.ResolveFlag(Insert, false)
	if err != nil || !writeCache || !forward || dup {
		t.Errorf("Insert on an absent key: got (%v,%v,%v,%v), want (true,true,false,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagInsertDupAlwaysAppendsEvenWhenKeyPresent(t *testing.T) {
	c := New(newMemStore())
	writeCache, forward, dup, err := c.ResolveFlag(InsertDup, true)
	if err != nil || !writeCache || !forward || !dup {
		t.Errorf("InsertDup over a present key: got (%v,%v,%v,%v), want (true,true,true,nil)", writeCache, forward, dup, err)
	}

	writeCache, forward, dup, err = c.ResolveFlag(InsertDup, false)
	if err != nil || !writeCache || !forward || !dup {
		t.Errorf("InsertDup over an absent key: got (%v,%v,%v,%v), want (true,true,true,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagModifyFailsWhenKeyAbsent(t *testing.T) {
	c := New(newMemStore())
	_, _, _, err := c.ResolveFlag(Modify, false)
	if !mdbmerr.Is(err, mdbmerr.KindNotFound) {
		t.Fatalf("expected KindNotFound modifying an absent key, got %v", err)
	}

	writeCache, forward, dup, err := c.ResolveFlag(Modify, true)
	if err != nil || !writeCache || !forward || dup {
		t.Errorf("Modify on a present key: got (%v,%v,%v,%v), want (true,true,false,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagModifyComposesWithCacheOnly(t *testing.T) {
	c := New(newMemStore())
	writeCache, forward, dup, err := c.ResolveFlag(Modify|CacheOnly, true)
	if err != nil || !writeCache || forward || dup {
		t.Errorf("Modify|CacheOnly on a present key: got (%v,%v,%v,%v), want (true,false,false,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagCacheModifyFallsBackToInsertWithoutBackingStore(t *testing.T) {
	c := New(nil)

	_, _, _, err := c.ResolveFlag(CacheModify, true)
	if !mdbmerr.Is(err, mdbmerr.KindExists) {
		t.Fatalf("CacheModify over a present key with no backing store should behave like Insert, got %v", err)
	}

	writeCache, forward, dup, err := c.ResolveFlag(CacheModify, false)
	if err != nil || !writeCache || forward || dup {
		t.Errorf("CacheModify on an absent key with no backing store: got (%v,%v,%v,%v), want (true,false,false,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagCacheModifyDefersWhenNotCachedAndStoreAttached(t *testing.T) {
	c := New(newMemStore())

	writeCache, forward, dup, err := c.ResolveFlag(CacheModify, false)
	if err != nil || writeCache || forward || dup {
		t.Errorf("CacheModify on a key not yet cached, with a store attached: got (%v,%v,%v,%v), want (false,false,false,nil)", writeCache, forward, dup, err)
	}

	writeCache, forward, dup, err = c.ResolveFlag(CacheModify, true)
	if err != nil || !writeCache || forward || dup {
		t.Errorf("CacheModify on an already-cached key: got (%v,%v,%v,%v), want (true,false,false,nil)", writeCache, forward, dup, err)
	}
}

func TestResolveFlagCacheOnlyNeverForwards(t *testing.T) {
	c := New(newMemStore())
	writeCache, forward, dup, err := c.ResolveFlag(Insert|CacheOnly, false)
	if err != nil || !writeCache || forward || dup {
		t.Errorf("Insert|CacheOnly: got (%v,%v,%v,%v), want (true,false,false,nil)", writeCache, forward, dup, err)
	}
}

func TestFetchForwardAndForwardDeleteNoOpWithoutAStore(t *testing.T) {
	c := New(nil)
	val, found, err := c.Fetch([]byte("k"))
	if err != nil || found || val != nil {
		t.Errorf("Fetch with no store: got (%v,%v,%v), want (nil,false,nil)", val, found, err)
	}
	if err := c.Forward([]byte("k"), []byte("v")); err != nil {
		t.Errorf("Forward with no store should be a no-op, got %v", err)
	}
	if err := c.ForwardDelete([]byte("k")); err != nil {
		t.Errorf("ForwardDelete with no store should be a no-op, got %v", err)
	}
}

func TestFetchForwardAndForwardDeleteReachTheBackingStore(t *testing.T) {
	store := newMemStore()
	c := New(store)

	if err := c.Forward([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	val, found, err := c.Fetch([]byte("k"))
	if err != nil || !found || !bytes.Equal(val, []byte("v1")) {
		t.Fatalf("Fetch after Forward: got (%q,%v,%v), want (v1,true,nil)", val, found, err)
	}

	if err := c.ForwardDelete([]byte("k")); err != nil {
		t.Fatalf("ForwardDelete: %v", err)
	}
	_, found, err = c.Fetch([]byte("k"))
	if err != nil || found {
		t.Fatalf("Fetch after ForwardDelete: got found=%v, want false", found)
	}
}

func TestLockKeyNoOpWithoutAStore(t *testing.T) {
	c := New(nil)
	unlock, err := c.LockKey([]byte("k"))
	if err != nil {
		t.Fatalf("LockKey: %v", err)
	}
	unlock() // must not panic
}

type errorLockStore struct{ memStore }

func (e *errorLockStore) Lock(key []byte) (func(), error) {
	return nil, errors.New("lock unavailable")
}

func TestLockKeyPropagatesStoreError(t *testing.T) {
	c := New(&errorLockStore{memStore: *newMemStore()})
	_, err := c.LockKey([]byte("k"))
	if err == nil {
		t.Fatalf("expected LockKey to propagate the backing store's error")
	}
}
