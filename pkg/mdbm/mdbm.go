// Package mdbm is the top-level façade: it composes the mapping layer,
// header/directory, chunk allocator, page engine, split/grow engine,
// locking, cache overlay and backing-store coupling into the single Handle
// type applications open a database through.
//
// Store/Delete durability follows pkg/storage/kv.go's updateOrRevert shape
// -- write the mutation, fsync, and only then consider it committed --
// collapsed to a single fsync, since durability here is mmap + fsync only:
// because mmapfile.File maps MAP_SHARED, a page write and a header write
// land in the same file and need only one fsync between them, not the
// separate data-phase/meta-phase pair kv.go uses (that separation exists
// there to keep a B+Tree root swap atomic under copy-on-write, which this
// format doesn't use).
package mdbm

import (
	"time"

	"github.com/nainya/mdbmgo/internal/metrics"
	"github.com/nainya/mdbmgo/pkg/backingstore"
	"github.com/nainya/mdbmgo/pkg/cache"
	"github.com/nainya/mdbmgo/pkg/chunk"
	"github.com/nainya/mdbmgo/pkg/directory"
	"github.com/nainya/mdbmgo/pkg/hash"
	"github.com/nainya/mdbmgo/pkg/lob"
	"github.com/nainya/mdbmgo/pkg/lock"
	"github.com/nainya/mdbmgo/pkg/mdbmerr"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
	"github.com/nainya/mdbmgo/pkg/mmapfile"
	"github.com/nainya/mdbmgo/pkg/page"
	"github.com/nainya/mdbmgo/pkg/splitgrow"
)

// OpenFlag mirrors the historical mdbm_open flag vocabulary: creation,
// read-only, and the windowed-map opt-in.
type OpenFlag uint8

const (
	FlagReadOnly OpenFlag = 1 << iota
	FlagCreate
	FlagWindowed
	FlagLargeObjects
	FlagNoDirty
)

// Options configures Create; Open re-derives everything from the header of
// an existing file instead.
type Options struct {
	PageSize      int
	HashID        hash.ID
	LockMode      lock.Mode
	NumPartitions int
	CachePolicy   cache.Policy
	LargeObjects  bool
	NoDirty       bool
	LimitPages    uint32 // 0 == unbounded
	WindowPages   int    // 0 == map the whole file, no window
}

// Handle is one process's open view of a database.
type Handle struct {
	path string

	file *mmapfile.File
	hdr  mdbmfmt.Header
	dir  *directory.Dir
	alloc *chunk.Allocator
	engine *splitgrow.Engine
	lockH *lock.Handle
	cacheOv *cache.Overlay
	coupling *backingstore.Coupling

	hashFn hash.Func
	readOnly bool

	// metrics is nil unless the caller opts in via SetMetrics; every
	// instrumentation call site below checks it for nilness so a database
	// opened without a metrics sink pays no instrumentation cost beyond one
	// nil check per call.
	metrics *metrics.Metrics
}

// inlineDirCapacity is the number of 4-byte entries page 0 can hold for an
// inline directory before it must relocate into a directory-extension chunk.
func inlineDirCapacity(pageSize int) int {
	return (pageSize - mdbmfmt.HeaderSize) / 4
}

// Create initializes a brand-new database file at path.
func Create(path string, opts Options) (*Handle, error) {
	mode := mmapfile.FullMap
	if opts.WindowPages > 0 {
		mode = mmapfile.WindowedMap
	}
	file, err := mmapfile.Open(path, true, false, opts.PageSize, mode)
	if err != nil {
		return nil, err
	}
	if opts.WindowPages > 0 {
		file.SetWindowSize(opts.WindowPages)
	}

	if err := file.GrowTo(2); err != nil { // page 0 (header+dir), page 1 (first data page)
		file.Close()
		return nil, err
	}

	buf, err := file.ChunkAt(0, 1)
	if err != nil {
		file.Close()
		return nil, err
	}
	hdr := mdbmfmt.Header(buf[:mdbmfmt.HeaderSize])
	hdr.SetMagic()
	hdr.SetVersion(mdbmfmt.FormatVersion)
	hdr.SetPageSize(uint32(opts.PageSize))
	hdr.SetPageCount(2)
	hdr.SetDirShift(0)
	hdr.SetHashID(uint16(opts.HashID))
	hdr.SetAlignment(0)
	hdr.SetCachePolicy(uint8(opts.CachePolicy))
	hdr.SetSpillSize(lob.DefaultSpillSize(uint32(opts.PageSize)))
	hdr.SetLimitPages(opts.LimitPages)
	hdr.SetDirChunkPage(0)
	hdr.SetFreeListHead(0)

	var flags uint16
	if opts.LargeObjects {
		flags |= mdbmfmt.FlagLargeObjects
	}
	cacheEnabled := opts.CachePolicy != 0
	if cacheEnabled {
		flags |= mdbmfmt.FlagCacheEnabled
	}
	if opts.NoDirty {
		flags |= mdbmfmt.FlagNoDirty
	}
	hdr.SetFlags(flags)

	dirBuf := buf[mdbmfmt.HeaderSize:]
	dir := directory.New(dirBuf[:4]) // dirShift 0 needs exactly one entry

	alloc := chunk.New(file, hdr)

	rootBuf, err := file.ChunkAt(1, 1)
	if err != nil {
		file.Close()
		return nil, err
	}
	page.Init(rootBuf, cacheEnabled, mdbmfmt.ChunkData, 1)
	dir.SetSlot(0, 1)

	lockMode := opts.LockMode
	lockH, err := lock.Open(path+".lock", lockMode, opts.NumPartitions, true)
	if err != nil {
		file.Close()
		return nil, err
	}

	h := &Handle{
		path:   path,
		file:   file,
		hdr:    hdr,
		dir:    dir,
		alloc:  alloc,
		lockH:  lockH,
		hashFn: hash.Lookup(opts.HashID),
	}
	h.cacheOv = cache.New(opts.CachePolicy, opts.NoDirty, nil)
	h.coupling = backingstore.New(nil)
	h.engine = splitgrow.New(file, hdr, alloc, dir, cacheEnabled, h.growDirectory)
	h.engine.BindHash(h.hashFn)

	if err := file.Sync(); err != nil {
		return nil, err
	}
	return h, nil
}

// Open opens an existing database file, re-deriving every subsystem from
// its persisted header.
func Open(path string, readOnly bool, lockMode lock.Mode, numPartitions int, windowPages int) (*Handle, error) {
	mode := mmapfile.FullMap
	if windowPages > 0 {
		mode = mmapfile.WindowedMap
	}

	probe, err := mmapfile.Open(path, false, true, int(mdbmfmt.HeaderSize), mmapfile.FullMap)
	if err != nil {
		return nil, err
	}
	probeBuf, err := probe.ChunkAt(0, 1)
	if err != nil {
		probe.Close()
		return nil, err
	}
	probeHdr := mdbmfmt.Header(probeBuf[:mdbmfmt.HeaderSize])
	if !probeHdr.MagicOK() {
		probe.Close()
		return nil, mdbmerr.Corrupt("open", "bad magic")
	}
	pageSize := int(probeHdr.PageSize())
	probe.Close()

	file, err := mmapfile.Open(path, false, readOnly, pageSize, mode)
	if err != nil {
		return nil, err
	}
	if windowPages > 0 {
		file.SetWindowSize(windowPages)
	}

	buf, err := file.ChunkAt(0, 1)
	if err != nil {
		file.Close()
		return nil, err
	}
	hdr := mdbmfmt.Header(buf[:mdbmfmt.HeaderSize])
	if !hdr.MagicOK() {
		file.Close()
		return nil, mdbmerr.Corrupt("open", "bad magic")
	}

	cacheEnabled := hdr.HasFlag(mdbmfmt.FlagCacheEnabled)
	noDirty := hdr.HasFlag(mdbmfmt.FlagNoDirty)

	var dir *directory.Dir
	if hdr.DirChunkPage() == 0 {
		capEntries := inlineDirCapacity(pageSize)
		dir = directory.New(buf[mdbmfmt.HeaderSize : mdbmfmt.HeaderSize+capEntries*4])
	} else {
		extPage := hdr.DirChunkPage()
		// The extension chunk's own header records its page span; read one
		// page first to learn how many to map.
		headBuf, err := file.ChunkAt(extPage, 1)
		if err != nil {
			file.Close()
			return nil, err
		}
		ch := mdbmfmt.ChunkHeader(headBuf[:mdbmfmt.ChunkHeaderSize])
		extBuf, err := file.ChunkAt(extPage, int(ch.NumPages()))
		if err != nil {
			file.Close()
			return nil, err
		}
		dir = directory.New(extBuf[mdbmfmt.ChunkHeaderSize:])
	}

	alloc := chunk.New(file, hdr)

	lockH, err := lock.Open(path+".lock", lockMode, numPartitions, false)
	if err != nil {
		file.Close()
		return nil, err
	}

	hashFn := hash.Lookup(hash.ID(hdr.HashID()))

	h := &Handle{
		path:     path,
		file:     file,
		hdr:      hdr,
		dir:      dir,
		alloc:    alloc,
		lockH:    lockH,
		hashFn:   hashFn,
		readOnly: readOnly,
	}
	h.cacheOv = cache.New(cache.Policy(hdr.CachePolicy()), noDirty, nil)
	h.coupling = backingstore.New(nil)
	h.engine = splitgrow.New(file, hdr, alloc, dir, cacheEnabled, h.growDirectory)
	h.engine.BindHash(hashFn)

	return h, nil
}

// growDirectory is the Engine's directory-relocation callback: it grows the
// directory in place while it still fits after page 0's header, and spills
// into (or extends) a directory-extension chunk once it doesn't.
func (h *Handle) growDirectory(newCapacity uint32) (*directory.Dir, error) {
	pageSize := h.file.PageSize()
	bytesNeeded := int(newCapacity) * 4

	if h.hdr.DirChunkPage() == 0 && bytesNeeded <= inlineDirCapacity(pageSize)*4 {
		buf, err := h.file.ChunkAt(0, 1)
		if err != nil {
			return nil, err
		}
		newBuf := buf[mdbmfmt.HeaderSize : mdbmfmt.HeaderSize+bytesNeeded]
		return h.dir.Grow(newBuf), nil
	}

	numPages := (bytesNeeded + mdbmfmt.ChunkHeaderSize + pageSize - 1) / pageSize
	newExtPage, err := h.alloc.Alloc(uint32(numPages), mdbmfmt.ChunkDirectoryExtension)
	if err != nil {
		return nil, err
	}
	extBuf, err := h.file.ChunkAt(newExtPage, numPages)
	if err != nil {
		return nil, err
	}
	ch := mdbmfmt.ChunkHeader(extBuf[:mdbmfmt.ChunkHeaderSize])
	ch.SetTypeAndPages(mdbmfmt.ChunkDirectoryExtension, uint32(numPages))
	ch.SetDirPageNum(newExtPage)

	newDir := h.dir.Grow(extBuf[mdbmfmt.ChunkHeaderSize : mdbmfmt.ChunkHeaderSize+bytesNeeded])

	oldExt := h.hdr.DirChunkPage()
	h.hdr.SetDirChunkPage(newExtPage)
	if oldExt != 0 {
		_ = h.alloc.Free(oldExt)
	}
	return newDir, nil
}

func (h *Handle) shake(pg *page.Page, needKey []byte, needValLen int, isLOB bool) bool {
	if h.cacheOv.Policy() == 0 {
		return false
	}
	if h.metrics != nil {
		h.metrics.ShakesTotal.Inc()
	}
	return h.cacheOv.Shake(pg, needKey, needValLen, isLOB, uint32(time.Now().Unix()))
}

// Store writes key/val under the given StoreFlag, resolving cache/backing
// store semantics via pkg backingstore, honoring the spill threshold by
// routing oversized values through pkg lob, and handing page-full handling
// to the split/grow engine (with the cache overlay's Shake as first resort).
func (h *Handle) Store(key, val []byte, flag backingstore.StoreFlag) (err error) {
	if h.metrics != nil {
		start := time.Now()
		defer func() {
			status := "ok"
			if err != nil {
				status = "error"
				if mdbmerr.Is(err, mdbmerr.KindFull) {
					h.metrics.DbFullTotal.Inc()
				}
			}
			h.metrics.RecordOp("store", status, time.Since(start))
		}()
	}

	if h.readOnly {
		return mdbmerr.Invalid("store", "database opened read-only")
	}
	if !h.largeObjectsEnabled() && len(val) > page.MaxPayload(h.file.PageSize(), h.cacheEnabled(), len(key)) {
		return mdbmerr.New(mdbmerr.KindFull, "store", "value too large to fit any page and large objects are disabled")
	}

	hv := h.hashFn(key)
	unlock, err := h.coupling.LockKey(key)
	if err != nil {
		return err
	}
	defer unlock()

	if err := h.lockH.Lock(hv, false); err != nil {
		return err
	}
	defer h.lockH.Unlock(hv)

	pageNum, err := h.engine.Resolve(hv)
	if err != nil {
		return err
	}
	buf, err := h.file.ChunkAt(pageNum, 1)
	if err != nil {
		return err
	}
	pg := page.Open(buf, h.cacheEnabled())
	_, present := pg.Find(key, -1)

	writeCache, forward, dup, err := h.coupling.ResolveFlag(flag, present)
	if err != nil {
		return err
	}
	if !writeCache {
		return nil
	}

	storedVal := val
	isLOB := h.largeObjectsEnabled() && uint32(len(val)) >= h.hdr.SpillSize()
	if isLOB {
		lobPage, err := lob.Store(h.file, h.alloc, val)
		if err != nil {
			return err
		}
		storedVal = lob.EncodePointer(lobPage, uint32(len(val)))
		if h.metrics != nil {
			h.metrics.LargeObjectsTotal.Inc()
			h.metrics.LargeObjectBytes.Add(float64(len(val)))
		}
	}

	if present && !dup {
		if idx, ok := pg.Find(key, -1); ok {
			pg.Delete(idx)
		}
	}

	_, slot, err := h.engine.Insert(hv, key, storedVal, isLOB, h.shake)
	if err != nil {
		return err
	}
	if h.cacheOv.Policy() != 0 {
		newPageNum := directory.Lookup(h.dir, hv, h.hdr.DirShift())
		if newBuf, err := h.file.ChunkAt(newPageNum, 1); err == nil {
			h.cacheOv.MarkDirty(page.Open(newBuf, h.cacheEnabled()), slot, true)
		}
	}

	if forward {
		if err := h.coupling.Forward(key, val); err != nil {
			return err
		}
	}

	return h.file.Sync()
}

// Fetch retrieves key's value, dereferencing a large-object pointer if the
// entry spilled out of page, and falling back to the backing store on a
// cache miss.
func (h *Handle) Fetch(key []byte) (val []byte, found bool, err error) {
	if h.metrics != nil {
		start := time.Now()
		defer func() {
			status := "ok"
			if err != nil {
				status = "error"
			}
			h.metrics.RecordOp("fetch", status, time.Since(start))
		}()
	}

	hv := h.hashFn(key)
	if err := h.lockH.Lock(hv, true); err != nil {
		return nil, false, err
	}
	defer h.lockH.Unlock(hv)

	pageNum := directory.Lookup(h.dir, hv, h.hdr.DirShift())
	if pageNum == 0 {
		if h.metrics != nil {
			h.metrics.CacheMissesTotal.Inc()
		}
		return h.coupling.Fetch(key)
	}
	buf, err := h.file.ChunkAt(pageNum, 1)
	if err != nil {
		return nil, false, err
	}
	pg := page.Open(buf, h.cacheEnabled())
	idx, ok := pg.Find(key, -1)
	if !ok {
		if h.metrics != nil {
			h.metrics.CacheMissesTotal.Inc()
		}
		return h.coupling.Fetch(key)
	}
	if h.metrics != nil {
		h.metrics.CacheHitsTotal.Inc()
	}

	if h.cacheOv.Policy() != 0 {
		h.cacheOv.Touch(pg, idx, uint32(time.Now().Unix()))
	}

	if pg.IsLargeObject(idx) {
		lobPage, _ := lob.DecodePointer(pg.ValAt(idx))
		lobVal, err := lob.Load(h.file, lobPage)
		if err != nil {
			return nil, false, err
		}
		return lobVal, true, nil
	}
	raw := pg.ValAt(idx)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

// FetchDup resumes a multi-value scan for key past the slot index returned
// by a previous call (after, -1 on the first call), mirroring the historical
// fetch_dup/fetch_dup_next pair for databases storing duplicate keys.
func (h *Handle) FetchDup(key []byte, after int) ([]byte, int, bool, error) {
	hv := h.hashFn(key)
	if err := h.lockH.Lock(hv, true); err != nil {
		return nil, after, false, err
	}
	defer h.lockH.Unlock(hv)

	pageNum := directory.Lookup(h.dir, hv, h.hdr.DirShift())
	if pageNum == 0 {
		return nil, after, false, nil
	}
	buf, err := h.file.ChunkAt(pageNum, 1)
	if err != nil {
		return nil, after, false, err
	}
	pg := page.Open(buf, h.cacheEnabled())
	idx, ok := pg.Find(key, after)
	if !ok {
		return nil, after, false, nil
	}
	val := pg.ValAt(idx)
	out := make([]byte, len(val))
	copy(out, val)
	return out, int(idx), true, nil
}

// Delete removes key, freeing its large-object chunk if it spilled, and
// forwarding the delete to the backing store when one is attached.
func (h *Handle) Delete(key []byte) (err error) {
	if h.metrics != nil {
		start := time.Now()
		defer func() {
			status := "ok"
			if err != nil {
				status = "error"
			}
			h.metrics.RecordOp("delete", status, time.Since(start))
		}()
	}

	if h.readOnly {
		return mdbmerr.Invalid("delete", "database opened read-only")
	}
	hv := h.hashFn(key)
	if err := h.lockH.Lock(hv, false); err != nil {
		return err
	}
	defer h.lockH.Unlock(hv)

	pageNum := directory.Lookup(h.dir, hv, h.hdr.DirShift())
	if pageNum == 0 {
		return mdbmerr.KeyNotFound("delete")
	}
	buf, err := h.file.ChunkAt(pageNum, 1)
	if err != nil {
		return err
	}
	pg := page.Open(buf, h.cacheEnabled())
	idx, ok := pg.Find(key, -1)
	if !ok {
		return mdbmerr.KeyNotFound("delete")
	}

	if pg.IsLargeObject(idx) {
		lp := pg.ValAt(idx)
		lobPage, _ := lob.DecodePointer(lp)
		if err := lob.Free(h.alloc, lobPage); err != nil {
			return err
		}
	}
	pg.Delete(idx)

	if err := h.coupling.ForwardDelete(key); err != nil {
		return err
	}
	return h.file.Sync()
}

func (h *Handle) cacheEnabled() bool { return h.hdr.HasFlag(mdbmfmt.FlagCacheEnabled) }
func (h *Handle) largeObjectsEnabled() bool { return h.hdr.HasFlag(mdbmfmt.FlagLargeObjects) }

// SetCacheMode changes the active eviction policy; rejected once the
// database already holds any entries, since a policy change can't be
// applied retroactively to slots already written.
func (h *Handle) SetCacheMode(policy cache.Policy) error {
	populated := h.hdr.PageCount() > 2 || h.anyEntries()
	if err := h.cacheOv.SetMode(policy, populated); err != nil {
		return err
	}
	h.hdr.SetCachePolicy(uint8(policy))
	return nil
}

func (h *Handle) anyEntries() bool {
	root, err := h.file.ChunkAt(1, 1)
	if err != nil {
		return false
	}
	pg := page.Open(root, h.cacheEnabled())
	return pg.ActiveEntries() > 0
}

// SetCleanFunc installs the cache overlay's clean callback.
func (h *Handle) SetCleanFunc(fn cache.CleanFunc) {
	h.cacheOv = cache.New(h.cacheOv.Policy(), h.hdr.HasFlag(mdbmfmt.FlagNoDirty), fn)
	h.wireCacheObserver()
}

// SetMetrics attaches a Prometheus metrics sink (cmd/mdbmgo-admind wires this
// at startup); Store/Fetch/split/evict paths below report through it. A
// Handle with no metrics attached runs exactly as before.
func (h *Handle) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
	h.wireCacheObserver()
	h.wireSplitObserver()
}

// wireCacheObserver re-installs the cache overlay's eviction observer; it
// must be called again after every h.cacheOv reassignment (Create, Open,
// SetCleanFunc) since cache.New returns a fresh Overlay with no observer set.
func (h *Handle) wireCacheObserver() {
	if h.metrics == nil {
		return
	}
	h.cacheOv.SetEvictObserver(func(dirty bool) {
		h.metrics.CacheEvictionsTotal.WithLabelValues(cache.Name(h.cacheOv.Policy())).Inc()
	})
}

func (h *Handle) wireSplitObserver() {
	if h.metrics == nil {
		return
	}
	h.engine.SetSplitObserver(func() {
		h.metrics.SplitsTotal.Inc()
	})
}

// RecordCount reports the database's live entry count via a full scan;
// admin's periodic stats updater calls this, same as GetDBStats.
func (h *Handle) RecordCount() int {
	return h.GetDBStats().RecordCount
}

// AttachBackingStore couples an external Store; REPLACE/INSERT/
// CACHE_MODIFY/CACHE_ONLY semantics take effect on the next Store call.
func (h *Handle) AttachBackingStore(store backingstore.Store) {
	h.coupling = backingstore.New(store)
}

// Lock exposes the locking subsystem directly for mdbm_lock/mdbm_plock
// style explicit locking independent of a Store/Fetch call.
func (h *Handle) Lock(key []byte, shared bool) error {
	return h.lockH.Lock(h.hashFn(key), shared)
}

func (h *Handle) TryLock(key []byte, shared bool) error {
	return h.lockH.TryLock(h.hashFn(key), shared)
}

func (h *Handle) Unlock(key []byte) error {
	return h.lockH.Unlock(h.hashFn(key))
}

// Clean applies the cache overlay's clean callback to pageNum (or every
// data page when pageNum == -1), evicting whichever entries the callback
// marks evictable. With MDBM_NO_DIRTY set there is nothing for it to act
// on, so it reports Unsupported instead of silently no-oping.
func (h *Handle) Clean(pageNum int) error {
	if h.hdr.HasFlag(mdbmfmt.FlagNoDirty) {
		return mdbmerr.Unsupported("clean", "database opened with NO_DIRTY")
	}
	if pageNum >= 0 {
		return h.cleanPage(uint32(pageNum))
	}
	return h.ChunkIterate(func(p uint32, kind uint32, _ uint32) bool {
		if kind == mdbmfmt.ChunkData || kind == mdbmfmt.ChunkOversizedData {
			_ = h.cleanPage(p)
		}
		return true
	})
}

func (h *Handle) cleanPage(pageNum uint32) error {
	headBuf, err := h.file.ChunkAt(pageNum, 1)
	if err != nil {
		return err
	}
	ch := mdbmfmt.ChunkHeader(headBuf[:mdbmfmt.ChunkHeaderSize])
	numPages := ch.NumPages()
	if numPages == 0 {
		numPages = 1
	}
	if ch.Type() != mdbmfmt.ChunkData && ch.Type() != mdbmfmt.ChunkOversizedData {
		return nil
	}
	buf, err := h.file.ChunkAt(pageNum, int(numPages))
	if err != nil {
		return err
	}
	h.cacheOv.Clean(page.Open(buf, h.cacheEnabled()))
	return nil
}

// IsLocked reports whether the database's lock sidecar is currently held
// for key's partition, by this handle or by another process; a hold by
// another handle in this same process is not reported (see
// lock.Handle.IsLocked).
func (h *Handle) IsLocked(key []byte) (bool, error) {
	return h.lockH.IsLocked(h.hashFn(key))
}

// IsOwned reports whether THIS handle currently holds the lock for key's
// partition.
func (h *Handle) IsOwned(key []byte) bool {
	return h.lockH.Depth(h.hashFn(key)) > 0
}

// Sync flushes every pending write to disk.
func (h *Handle) Sync() error { return h.file.Sync() }

// Close releases the mapping and lock sidecar.
func (h *Handle) Close() error {
	if err := h.lockH.Close(); err != nil {
		return err
	}
	return h.file.Close()
}

// Path returns the path the handle was opened against.
func (h *Handle) Path() string { return h.path }

// PageSize, PageCount and DirShift expose header fields for inspection
// (mdbm_get_page_size / mdbm_get_size / `check`).
func (h *Handle) PageSize() int      { return h.file.PageSize() }
func (h *Handle) PageCount() uint32  { return h.hdr.PageCount() }
func (h *Handle) DirShift() uint16   { return h.hdr.DirShift() }
func (h *Handle) HashID() hash.ID    { return hash.ID(h.hdr.HashID()) }
