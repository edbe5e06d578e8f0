// Package splitgrow implements the split/grow engine: the page-full
// recovery path. Run the shake callback if one is set, else split (double
// dir_shift, allocate a sibling page, rehash by the next bit), then retry.
// It sits between the directory (which resolves a hash to a page number)
// and the page engine (which knows only about one page's slot table),
// owning the decision of when a page must be split and how the directory
// grows to accommodate it.
//
// There is no direct precedent for extendible hashing; the retry-with-
// callback shape mirrors the pkg/storage free-list/compaction retry loops
// (try the cheap path, fall back to a more expensive one, give up with a
// typed error after a bounded number of attempts).
package splitgrow

import (
	"github.com/nainya/mdbmgo/pkg/chunk"
	"github.com/nainya/mdbmgo/pkg/directory"
	"github.com/nainya/mdbmgo/pkg/mdbmerr"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
	"github.com/nainya/mdbmgo/pkg/page"
)

// Source is the mapping surface the engine needs beyond what the allocator
// already requires.
type Source interface {
	ChunkAt(page uint32, numPages int) ([]byte, error)
	GrowTo(pageCount uint32) error
	PageCount() uint32
}

// maxSplitAttempts bounds the split-then-retry loop; a database that cannot
// make room after this many splits is reported DirectoryFull or Full rather
// than looping forever (e.g. every live key in a page hashing identically
// under the configured family, which only a pathological input achieves).
const maxSplitAttempts = 32

// ShakeFunc is invoked with the full page when an insert finds it full; it
// should evict or compact entries in place and report whether it freed
// enough room to retry the insert. Cache eviction (pkg cache) is the
// primary user; a nil ShakeFunc skips straight to splitting.
type ShakeFunc func(pg *page.Page, needKey []byte, needValLen int, isLOB bool) bool

// Engine owns one open database's directory growth and page splitting.
type Engine struct {
	src          Source
	hdr          mdbmfmt.Header
	alloc        *chunk.Allocator
	dir          *directory.Dir
	cacheEnabled bool
	hashFn       func([]byte) uint32

	// growDir reallocates the directory's backing storage to at least
	// capacity entries and returns a Dir over the new storage; pkg mdbm
	// supplies this because only it knows whether the directory lives
	// inline after the header or in a directory-extension chunk chain.
	growDir func(capacity uint32) (*directory.Dir, error)

	// onSplit is invoked once after each successful split; pkg mdbm uses
	// this to drive split-count metrics without the engine knowing
	// anything about a metrics sink.
	onSplit func()
}

// SetSplitObserver installs a callback invoked once per successful split.
func (e *Engine) SetSplitObserver(fn func()) {
	e.onSplit = fn
}

func New(src Source, hdr mdbmfmt.Header, alloc *chunk.Allocator, dir *directory.Dir, cacheEnabled bool, growDir func(uint32) (*directory.Dir, error)) *Engine {
	return &Engine{src: src, hdr: hdr, alloc: alloc, dir: dir, cacheEnabled: cacheEnabled, growDir: growDir}
}

// Dir returns the engine's current directory view (it may be swapped out by
// Insert when a split forces directory growth).
func (e *Engine) Dir() *directory.Dir { return e.dir }

// Resolve finds the data page serving hash, allocating and publishing the
// very first root page if the directory has never been populated.
func (e *Engine) Resolve(hashVal uint32) (uint32, error) {
	pageNum := directory.Lookup(e.dir, hashVal, e.hdr.DirShift())
	if pageNum != 0 {
		return pageNum, nil
	}

	root, err := e.alloc.Alloc(1, mdbmfmt.ChunkData)
	if err != nil {
		return 0, err
	}
	buf, err := e.src.ChunkAt(root, 1)
	if err != nil {
		return 0, err
	}
	page.Init(buf, e.cacheEnabled, mdbmfmt.ChunkData, 1)
	e.dir.SetSlot(0, root)
	return root, nil
}

// Insert resolves hashVal to a page, attempts the insert, and on PageFull
// runs shake (if supplied) then splits the page and retries. It returns the
// page and slot the record finally landed in.
func (e *Engine) Insert(hashVal uint32, key, val []byte, isLOB bool, shake ShakeFunc) (uint32, uint16, error) {
	pageNum, err := e.Resolve(hashVal)
	if err != nil {
		return 0, 0, err
	}

	for attempt := 0; ; attempt++ {
		buf, err := e.src.ChunkAt(pageNum, 1)
		if err != nil {
			return 0, 0, err
		}
		pg := page.Open(buf, e.cacheEnabled)

		if pg.CanInsert(key, len(val), isLOB) {
			slot, err := pg.Insert(key, val, isLOB)
			return pageNum, slot, err
		}

		pg.Compact()
		if pg.CanInsert(key, len(val), isLOB) {
			slot, err := pg.Insert(key, val, isLOB)
			return pageNum, slot, err
		}

		if shake != nil && shake(pg, key, len(val), isLOB) {
			if pg.CanInsert(key, len(val), isLOB) {
				slot, err := pg.Insert(key, val, isLOB)
				return pageNum, slot, err
			}
		}

		if attempt >= maxSplitAttempts {
			return 0, 0, mdbmerr.New(mdbmerr.KindFull, "insert", "page would not drain after repeated splits")
		}

		if limit := e.hdr.LimitPages(); limit != 0 && e.src.PageCount() >= limit {
			return 0, 0, mdbmerr.DbFull("insert")
		}

		sibling, err := e.split(pageNum, hashVal)
		if err != nil {
			return 0, 0, err
		}
		if e.onSplit != nil {
			e.onSplit()
		}
		// The record may now belong to either half; re-resolve rather than
		// assume pageNum still serves hashVal.
		pageNum = directory.Lookup(e.dir, hashVal, e.hdr.DirShift())
		_ = sibling
	}
}

// split splits the page currently serving hashVal at the directory's current
// depth: directory depth grows by one bit, a sibling page is allocated, and
// every live entry in the original page is rehashed by the new bit and
// moved to whichever half it now belongs to.
func (e *Engine) split(pageNum uint32, hashVal uint32) (uint32, error) {
	oldShift := e.hdr.DirShift()
	newShift := oldShift + 1
	oldSlot := directory.SlotFor(hashVal, oldShift)

	needCapacity := uint32(1) << newShift
	if needCapacity > uint32(e.dir.Capacity()) {
		if e.growDir == nil {
			return 0, mdbmerr.DirectoryFull("split")
		}
		newDir, err := e.growDir(needCapacity)
		if err != nil {
			return 0, mdbmerr.AllocFailed("split", err)
		}
		e.dir = newDir
	}

	sibling, err := e.alloc.Alloc(1, mdbmfmt.ChunkData)
	if err != nil {
		return 0, mdbmerr.AllocFailed("split", err)
	}
	sibBuf, err := e.src.ChunkAt(sibling, 1)
	if err != nil {
		return 0, err
	}
	page.Init(sibBuf, e.cacheEnabled, mdbmfmt.ChunkData, 1)

	lowSlot := oldSlot * 2
	highSlot := oldSlot*2 + 1

	e.hdr.SetDirShift(newShift)
	e.dir.SetSlot(lowSlot, pageNum)
	e.dir.SetSlot(highSlot, sibling)

	if err := e.redistribute(pageNum, sibling, newShift, highSlot); err != nil {
		return 0, err
	}

	return sibling, nil
}

// redistribute walks every live entry of the original page and moves those
// whose hash now resolves to highSlot at newShift into the sibling page.
// It needs each entry's hash; since the page stores only keys, it rehashes
// them with the function installed by BindHash. A database only ever uses
// one hash family for its lifetime, so pkg mdbm binds the Engine to one
// Func at open time.
func (e *Engine) redistribute(oldPageNum, sibPageNum uint32, newShift uint16, highSlot uint32) error {
	if e.hashFn == nil {
		return mdbmerr.Invalid("split", "engine has no hash function bound")
	}

	oldBuf, err := e.src.ChunkAt(oldPageNum, 1)
	if err != nil {
		return err
	}
	oldPg := page.Open(oldBuf, e.cacheEnabled)

	sibBuf, err := e.src.ChunkAt(sibPageNum, 1)
	if err != nil {
		return err
	}
	sibPg := page.Open(sibBuf, e.cacheEnabled)

	n := oldPg.NumSlots()
	type moved struct {
		key, val []byte
		isLOB    bool
	}
	var toMove []moved

	for i := uint16(0); i < n; i++ {
		if oldPg.SlotFlags(i)&page.FlagDeleted != 0 {
			continue
		}
		key := oldPg.KeyAt(i)
		h := e.hashFn(key)
		slot := directory.SlotFor(h, newShift)
		if slot == highSlot {
			toMove = append(toMove, moved{
				key:   append([]byte(nil), key...),
				val:   append([]byte(nil), oldPg.ValAt(i)...),
				isLOB: oldPg.IsLargeObject(i),
			})
		}
	}

	for i := uint16(0); i < n; i++ {
		if oldPg.SlotFlags(i)&page.FlagDeleted != 0 {
			continue
		}
		key := oldPg.KeyAt(i)
		h := e.hashFn(key)
		slot := directory.SlotFor(h, newShift)
		if slot == highSlot {
			oldPg.Delete(i)
		}
	}
	oldPg.Compact()

	for _, m := range toMove {
		if !sibPg.CanInsert(m.key, len(m.val), m.isLOB) {
			return mdbmerr.New(mdbmerr.KindFull, "split", "sibling page could not absorb redistributed entries")
		}
		if _, err := sibPg.Insert(m.key, m.val, m.isLOB); err != nil {
			return err
		}
	}
	return nil
}

// BindHash sets the hash function used to redistribute entries on split.
// pkg mdbm calls this once at open time with the family selected by the
// header's persisted hash_id.
func (e *Engine) BindHash(fn func([]byte) uint32) {
	e.hashFn = fn
}
