package cache

import (
	"testing"

	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
	"github.com/nainya/mdbmgo/pkg/page"
)

func TestNameRendersCombinedPolicies(t *testing.T) {
	if got := Name(0); got != "NONE" {
		t.Errorf("Name(0) = %q, want NONE", got)
	}
	if got := Name(LRU); got != "LRU" {
		t.Errorf("Name(LRU) = %q, want LRU", got)
	}
	if got := Name(LRU | EvictCleanFirst); got != "LRU|EVICT_CLEAN_FIRST" {
		t.Errorf("Name(LRU|EvictCleanFirst) = %q, want LRU|EVICT_CLEAN_FIRST", got)
	}
}

func TestSetModeRejectsChangeOncePopulated(t *testing.T) {
	o := New(LRU, false, nil)
	if err := o.SetMode(LFU, true); err == nil {
		t.Fatalf("expected SetMode to fail on a populated database")
	}
	if o.Policy() != LRU {
		t.Errorf("Policy should be unchanged after a rejected SetMode, got %v", o.Policy())
	}
	if err := o.SetMode(LFU, false); err != nil {
		t.Fatalf("SetMode on an empty database: %v", err)
	}
	if o.Policy() != LFU {
		t.Errorf("Policy = %v, want LFU", o.Policy())
	}
}

func TestTouchBumpsAccessCountAndTime(t *testing.T) {
	buf := make([]byte, 256)
	pg := page.Init(buf, true, mdbmfmt.ChunkData, 1)
	idx, err := pg.Insert([]byte("k"), []byte("v"), false)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := New(LRU, false, nil)
	o.Touch(pg, idx, 100)
	o.Touch(pg, idx, 200)

	m := pg.CacheMeta(idx)
	if m.NumAccesses != 2 {
		t.Errorf("NumAccesses = %d, want 2", m.NumAccesses)
	}
	if m.AccessTime != 200 {
		t.Errorf("AccessTime = %d, want 200", m.AccessTime)
	}
}

func TestSetPriorityRoundTrips(t *testing.T) {
	buf := make([]byte, 256)
	pg := page.Init(buf, true, mdbmfmt.ChunkData, 1)
	idx, err := pg.Insert([]byte("k"), []byte("v"), false)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	o := New(GDSF, false, nil)
	o.SetPriority(pg, idx, 2.5)

	m := pg.CacheMeta(idx)
	if m.PriorityBits == 0 {
		t.Errorf("expected a nonzero priority bit pattern after SetPriority")
	}
}

// fillPage inserts n small live key/value pairs "k0".."k(n-1)" into a fresh
// cache-enabled page and returns their slot indices in insertion order.
func fillPage(t *testing.T, pg *page.Page, n int) []uint16 {
	t.Helper()
	idxs := make([]uint16, n)
	for i := 0; i < n; i++ {
		key := []byte{'k', byte('0' + i)}
		idx, err := pg.Insert(key, []byte("v"), false)
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		idxs[i] = idx
	}
	return idxs
}

func TestShakeEvictsLeastRecentlyUsedFirstUnderLRU(t *testing.T) {
	buf := make([]byte, 88)
	pg := page.Init(buf, true, mdbmfmt.ChunkData, 1)
	idxs := fillPage(t, pg, 3)

	o := New(LRU, false, nil)
	// idxs[0] is the stalest (touched at time 1), idxs[2] the freshest.
	o.Touch(pg, idxs[0], 1)
	o.Touch(pg, idxs[1], 50)
	o.Touch(pg, idxs[2], 100)

	needKey := []byte{'k', 'X'}
	if pg.CanInsert(needKey, 1, false) {
		t.Fatalf("test setup: page should already be full before Shake")
	}

	ok := o.Shake(pg, needKey, 1, false, 200)
	if !ok {
		t.Fatalf("Shake should have freed enough room")
	}

	if _, found := pg.Find([]byte{'k', '0'}, -1); found {
		t.Errorf("stalest entry k0 should have been evicted first under LRU")
	}
	if _, found := pg.Find([]byte{'k', '2'}, -1); !found {
		t.Errorf("freshest entry k2 should have survived under LRU")
	}
}

func TestShakeEvictsLeastFrequentlyUsedFirstUnderLFU(t *testing.T) {
	buf := make([]byte, 88)
	pg := page.Init(buf, true, mdbmfmt.ChunkData, 1)
	idxs := fillPage(t, pg, 3)

	o := New(LFU, false, nil)
	o.Touch(pg, idxs[0], 10) // accessed once: least frequent
	for i := 0; i < 5; i++ {
		o.Touch(pg, idxs[1], 10)
	}
	for i := 0; i < 10; i++ {
		o.Touch(pg, idxs[2], 10)
	}

	needKey := []byte{'k', 'X'}
	ok := o.Shake(pg, needKey, 1, false, 20)
	if !ok {
		t.Fatalf("Shake should have freed enough room")
	}

	if _, found := pg.Find([]byte{'k', '0'}, -1); found {
		t.Errorf("least-frequently-used entry k0 should have been evicted first under LFU")
	}
	if _, found := pg.Find([]byte{'k', '2'}, -1); !found {
		t.Errorf("most-frequently-used entry k2 should have survived under LFU")
	}
}

func TestShakeHonorsCleanFuncVeto(t *testing.T) {
	buf := make([]byte, 88)
	pg := page.Init(buf, true, mdbmfmt.ChunkData, 1)
	idxs := fillPage(t, pg, 3)

	o := New(LRU, false, func(key, val []byte, dirty bool) bool {
		// Refuse to evict k0 no matter its score.
		return string(key) != "k0"
	})
	o.Touch(pg, idxs[0], 1)
	o.Touch(pg, idxs[1], 50)
	o.Touch(pg, idxs[2], 100)

	needKey := []byte{'k', 'X'}
	o.Shake(pg, needKey, 1, false, 200)

	if _, found := pg.Find([]byte{'k', '0'}, -1); !found {
		t.Errorf("k0 should have survived: clean func vetoed its eviction")
	}
}

func TestEvictCleanFirstExhaustsCleanBeforeDirty(t *testing.T) {
	buf := make([]byte, 64)
	pg := page.Init(buf, true, mdbmfmt.ChunkData, 1)
	idxs := fillPage(t, pg, 2)

	// k1 is dirty and was accessed long before k0, so a plain LRU score
	// would pick k1 first; k0 is the fresher entry, which proves
	// EVICT_CLEAN_FIRST overrides the score-based order.
	o := New(LRU|EvictCleanFirst, false, nil)
	o.Touch(pg, idxs[0], 100) // clean, fresh
	o.Touch(pg, idxs[1], 1)   // dirty, stale
	o.MarkDirty(pg, idxs[1], true)

	needKey := []byte{'k', 'X'}
	o.Shake(pg, needKey, 1, false, 200)

	if _, found := pg.Find([]byte{'k', '1'}, -1); !found {
		t.Errorf("dirty entry k1 should survive while a clean candidate remains, even though it scores worse under LRU")
	}
}
