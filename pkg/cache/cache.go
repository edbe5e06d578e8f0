// Package cache implements the cache-eviction overlay: per-entry access
// bookkeeping (num_accesses, access_time, priority) layered on top of the
// page engine's slot table, and the policies (LRU, LFU, GDSF,
// EVICT_CLEAN_FIRST, freely combinable by bitwise-or) that decide which
// entries a full page sheds to make room for a new one.
//
// Candidate scoring and ordering follows the sort-then-take-lowest shape
// used by the example pack's tenant eviction sweep (tenant/evict.go: gather
// candidates, sort by a recency/size score, remove from the front until
// enough space is freed); this package replaces that sweep's directory scan
// with a single page's live slots and its size-based score with the page
// engine's num_accesses/access_time/priority triple, scored by whichever
// Policy bits are set. golang.org/x/exp/slices.SortFunc does the ordering,
// matching the pack's use of the same package for its own eviction sort.
package cache

import (
	"math"

	"golang.org/x/exp/slices"

	"github.com/nainya/mdbmgo/pkg/mdbmerr"
	"github.com/nainya/mdbmgo/pkg/page"
)

// Policy selects one or more eviction strategies; combinable with bitwise-or.
type Policy uint8

const (
	LRU Policy = 1 << iota
	LFU
	GDSF
	EvictCleanFirst
)

// Name renders a (possibly combined) policy value the way `check`/config
// dump output does, e.g. "LRU|EVICT_CLEAN_FIRST".
func Name(p Policy) string {
	if p == 0 {
		return "NONE"
	}
	var parts []string
	if p&LRU != 0 {
		parts = append(parts, "LRU")
	}
	if p&LFU != 0 {
		parts = append(parts, "LFU")
	}
	if p&GDSF != 0 {
		parts = append(parts, "GDSF")
	}
	if p&EvictCleanFirst != 0 {
		parts = append(parts, "EVICT_CLEAN_FIRST")
	}
	out := parts[0]
	for _, s := range parts[1:] {
		out += "|" + s
	}
	return out
}

// CleanFunc is invoked once per entry the overlay decides to evict, before
// the slot is actually dropped from the page. Returning false vetoes the
// eviction (the entry is skipped and scoring moves to the next candidate),
// matching mdbm_set_cleanfunc's "clean function can refuse" semantics.
// dirty reports whether the entry was modified since its last clean pass;
// under EVICT_CLEAN_FIRST, dirty entries are only considered once every
// clean entry has been exhausted.
type CleanFunc func(key, val []byte, dirty bool) bool

// Overlay is the cache-eviction policy bound to one open database.
type Overlay struct {
	policy  Policy
	noDirty bool
	clean   CleanFunc
	onEvict func(dirty bool)
}

// SetEvictObserver installs a callback invoked once per entry Shake or
// Clean actually evicts (after the clean callback has had a chance to
// veto it); pkg mdbm uses this to drive eviction metrics without cache
// itself knowing anything about a metrics sink.
func (o *Overlay) SetEvictObserver(fn func(dirty bool)) {
	o.onEvict = fn
}

func New(policy Policy, noDirty bool, clean CleanFunc) *Overlay {
	return &Overlay{policy: policy, noDirty: noDirty, clean: clean}
}

// SetMode changes the active policy. It must fail with KindInvalid once
// the database holds any entries, since a policy change can't retroactively
// apply to already-written slots; populated
// is supplied by the caller (pkg mdbm), which alone knows the aggregate
// entry count across all pages.
func (o *Overlay) SetMode(policy Policy, populated bool) error {
	if populated {
		return mdbmerr.Invalid("set_cachemode", "cache mode cannot change once the database holds entries")
	}
	o.policy = policy
	return nil
}

func (o *Overlay) Policy() Policy { return o.policy }

// Touch records an access against slot i, bumping num_accesses and
// access_time; pkg mdbm calls it on every successful fetch while a cache
// policy is active.
func (o *Overlay) Touch(pg *page.Page, i uint16, now uint32) {
	m := pg.CacheMeta(i)
	m.NumAccesses++
	m.AccessTime = now
	pg.SetCacheMeta(i, m)
}

// SetPriority stores an explicit per-entry priority (mdbm_set_priority),
// encoded as a float32 bit pattern in the entry's cache metadata word.
func (o *Overlay) SetPriority(pg *page.Page, i uint16, priority float32) {
	m := pg.CacheMeta(i)
	m.PriorityBits = math.Float32bits(priority)
	pg.SetCacheMeta(i, m)
}

type candidate struct {
	slot  uint16
	score float64
	dirty bool
}

// score ranks a slot for eviction under the active policy: lower scores are
// evicted first. LRU favors stale access_time, LFU favors low
// num_accesses, GDSF (greedy dual size frequency) scores access_time plus
// frequency/size, so the access_time term ages out entries that were
// popular long ago, and any combination sums the raw components so the
// caller doesn't need a separate path per policy set.
func (o *Overlay) score(pg *page.Page, i uint16, now uint32, valLen int) float64 {
	m := pg.CacheMeta(i)
	var s float64

	if o.policy&LRU != 0 {
		// Staler entries (larger age) must sort first under "lower score
		// evicted first", so age counts negative.
		age := float64(now) - float64(m.AccessTime)
		s -= age
	}
	if o.policy&LFU != 0 {
		// Rarely-accessed entries must sort first; raw access count
		// already increases with use, so it needs no inversion.
		s += float64(m.NumAccesses)
	}
	if o.policy&GDSF != 0 {
		freq := float64(m.NumAccesses + 1)
		size := float64(valLen + 1)
		s += float64(m.AccessTime) + freq/size
	}
	if s == 0 {
		// A zero total (no policy bit set, or components that cancel out)
		// still needs a deterministic order; fall back to raw access_time,
		// so entries touched longest ago go first and Shake is well defined.
		s = float64(m.AccessTime)
	}
	return s
}

// Clean walks every live, non-large-object slot on pg, invoking the
// installed clean callback and evicting whichever entries it marks
// evictable (returns true). A nil callback makes this a no-op, matching
// mdbm_clean on a database with no clean callback registered.
func (o *Overlay) Clean(pg *page.Page) {
	if o.clean == nil {
		return
	}
	n := pg.NumSlots()
	evicted := false
	for i := uint16(0); i < n; i++ {
		if pg.SlotFlags(i)&page.FlagDeleted != 0 || pg.SlotFlags(i)&page.FlagLargeObject != 0 {
			continue
		}
		dirty := !o.noDirty && IsDirty(pg.SlotFlags(i))
		if o.clean(pg.KeyAt(i), pg.ValAt(i), dirty) {
			pg.Delete(i)
			if o.onEvict != nil {
				o.onEvict(dirty)
			}
			evicted = true
		}
	}
	if evicted {
		pg.Compact()
	}
}

// Dirty tracking lives in the flag byte's top bit, reusing the slot flags
// byte page.Page already exposes rather than adding a second metadata word;
// pkg mdbm toggles it via MarkDirty after any in-place value mutation.
const flagDirty = 0x80

func IsDirty(flags uint8) bool { return flags&flagDirty != 0 }

// MarkDirty sets or clears slot i's dirty bit; pkg mdbm calls this after any
// in-place value mutation so Shake's EVICT_CLEAN_FIRST ordering and the
// clean callback's dirty flag stay accurate.
func (o *Overlay) MarkDirty(pg *page.Page, i uint16, dirty bool) {
	pg.SetFlagBit(i, flagDirty, dirty)
}

// candidates gathers and orders every live, non-large-object slot on pg
// eligible for eviction: lowest score first, with EVICT_CLEAN_FIRST
// reordering clean entries ahead of dirty ones regardless of score.
func (o *Overlay) candidates(pg *page.Page, now uint32) []candidate {
	n := pg.NumSlots()
	cands := make([]candidate, 0, n)
	for i := uint16(0); i < n; i++ {
		if pg.SlotFlags(i)&page.FlagDeleted != 0 || pg.SlotFlags(i)&page.FlagLargeObject != 0 {
			continue
		}
		dirty := !o.noDirty && IsDirty(pg.SlotFlags(i))
		cands = append(cands, candidate{
			slot:  i,
			score: o.score(pg, i, now, len(pg.ValAt(i))),
			dirty: dirty,
		})
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		if o.policy&EvictCleanFirst != 0 && a.dirty != b.dirty {
			if a.dirty {
				return 1
			}
			return -1
		}
		switch {
		case a.score < b.score:
			return -1
		case a.score > b.score:
			return 1
		default:
			return 0
		}
	})
	return cands
}

// Shake implements splitgrow.ShakeFunc: it evicts live, non-large-object
// entries from pg, lowest score first, until CanInsert reports enough room
// for the pending insert (needKey, needValLen) or every evictable candidate
// has been exhausted. It never evicts entries the clean callback vetoes,
// and under EVICT_CLEAN_FIRST it exhausts clean candidates before touching
// any dirty one. With MDBM_NO_DIRTY set, every entry is treated as clean
// (there is nothing to flush, so nothing blocks eviction).
//
// Delete only tombstones a slot; the page doesn't actually reclaim the
// space until Compact runs. So each eviction is followed immediately by a
// Compact, and candidates are re-gathered afterward -- Compact renumbers
// every surviving slot, which would otherwise invalidate the rest of a
// precomputed candidate list.
func (o *Overlay) Shake(pg *page.Page, needKey []byte, needValLen int, isLOB bool, now uint32) bool {
	for {
		if pg.CanInsert(needKey, needValLen, isLOB) {
			return true
		}

		cands := o.candidates(pg, now)
		evicted := false
		for _, c := range cands {
			key := pg.KeyAt(c.slot)
			val := pg.ValAt(c.slot)
			if o.clean != nil && !o.clean(key, val, c.dirty) {
				continue
			}
			pg.Delete(c.slot)
			pg.Compact()
			if o.onEvict != nil {
				o.onEvict(c.dirty)
			}
			evicted = true
			break
		}
		if !evicted {
			return pg.CanInsert(needKey, needValLen, isLOB)
		}
	}
}
