// Package chunk implements the chunk allocator: it tracks every contiguous
// run of pages, maintains a free-chunk list, and services allocation
// requests for normal pages, oversized pages and large-object chains.
//
// The free list is grounded on pkg/storage/freelist.go
// (callback-based page get/set/new plumbing over the mapping layer,
// pop-from-head/push-to-tail), but generalized from a fixed array of
// 8-byte page pointers per free-list node into a leaner representation:
// each free chunk's own payload word (mdbmfmt.ChunkHeader)
// IS the next-free pointer, so no separate free-list node pages are ever
// allocated. Free chunks are singly linked off header.FreeListHead() and
// scanned first-fit; coalescing walks to the arithmetic successor and,
// via prev_num_pages, to the predecessor.
package chunk

import (
	"github.com/nainya/mdbmgo/pkg/mdbmerr"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
	"github.com/nainya/mdbmgo/pkg/mmapfile"
)

// Source is the subset of the mapping layer the allocator needs.
type Source interface {
	ChunkAt(page uint32, numPages int) ([]byte, error)
	GrowTo(pageCount uint32) error
	PageCount() uint32
}

var _ Source = (*mmapfile.File)(nil)

// Allocator is the chunk allocator, operating over one open database's
// mapping and header.
type Allocator struct {
	src Source
	hdr mdbmfmt.Header
}

func New(src Source, hdr mdbmfmt.Header) *Allocator {
	return &Allocator{src: src, hdr: hdr}
}

func (a *Allocator) chunkHeader(page uint32) (mdbmfmt.ChunkHeader, error) {
	b, err := a.src.ChunkAt(page, 1)
	if err != nil {
		return nil, err
	}
	return mdbmfmt.ChunkHeader(b[:mdbmfmt.ChunkHeaderSize]), nil
}

// Alloc finds or creates a chunk of exactly numPages pages tagged kind, and
// returns its starting page number. It first walks the free list for a
// first-fit chunk (splitting off any remainder back onto the free list),
// falling back to appending at PageCount via GrowTo.
func (a *Allocator) Alloc(numPages uint32, kind uint32) (uint32, error) {
	if page, ok, err := a.allocFromFreeList(numPages, kind); err != nil {
		return 0, err
	} else if ok {
		return page, nil
	}
	return a.allocFresh(numPages, kind)
}

func (a *Allocator) allocFromFreeList(numPages uint32, kind uint32) (uint32, bool, error) {
	var prevPage uint32 // 0 == "list head"
	page := a.hdr.FreeListHead()

	for page != 0 {
		ch, err := a.chunkHeader(page)
		if err != nil {
			return 0, false, err
		}
		size := ch.NumPages()
		next := ch.NextFree()

		if size >= numPages {
			a.unlinkFree(prevPage, page, next)

			if size > numPages {
				remainderPage := page + numPages
				a.pushFree(remainderPage, size-numPages)
				// remainder's predecessor back-link points at the
				// allocated front half.
				remCh, err := a.chunkHeader(remainderPage)
				if err != nil {
					return 0, false, err
				}
				remCh.SetPrevNumPages(numPages)
			}

			allocCh, err := a.chunkHeader(page)
			if err != nil {
				return 0, false, err
			}
			allocCh.SetTypeAndPages(kind, numPages)
			return page, true, nil
		}

		prevPage = page
		page = next
	}

	return 0, false, nil
}

func (a *Allocator) allocFresh(numPages uint32, kind uint32) (uint32, error) {
	page := a.src.PageCount()
	if page == 0 {
		page = 1 // page 0 is reserved for the header
	}
	if err := a.src.GrowTo(page + numPages); err != nil {
		return 0, mdbmerr.Wrap(mdbmerr.KindFull, "alloc", "chunk allocator could not grow file", err)
	}
	ch, err := a.chunkHeader(page)
	if err != nil {
		return 0, mdbmerr.Wrap(mdbmerr.KindFull, "alloc", "read fresh chunk header", err)
	}
	ch.SetTypeAndPages(kind, numPages)
	// The back-link to whatever chunk precedes this one at the new tail
	// isn't derivable here without a scan; pkg mdbm tracks the tail
	// chunk's size across an insert sequence and fixes this up via
	// Relink immediately after a fresh append.
	ch.SetPrevNumPages(0)
	return page, nil
}

// Relink lets the caller (which tracks the tail chunk across an insert
// sequence) fix up prev_num_pages explicitly after Alloc appends a fresh
// chunk.
func (a *Allocator) Relink(page uint32, prevNumPages uint32) error {
	ch, err := a.chunkHeader(page)
	if err != nil {
		return err
	}
	ch.SetPrevNumPages(prevNumPages)
	return nil
}

func (a *Allocator) unlinkFree(prevPage, page, next uint32) {
	if prevPage == 0 {
		a.hdr.SetFreeListHead(next)
		return
	}
	prevCh, err := a.chunkHeader(prevPage)
	if err != nil {
		return
	}
	prevCh.SetNextFree(next)
}

func (a *Allocator) pushFree(page uint32, numPages uint32) {
	head := a.hdr.FreeListHead()
	ch, err := a.chunkHeader(page)
	if err != nil {
		return
	}
	ch.SetTypeAndPages(mdbmfmt.ChunkFree, numPages)
	ch.SetNextFree(head)
	a.hdr.SetFreeListHead(page)
}

// Free tags the chunk at page as free, coalesces it with an adjacent free
// predecessor or successor if one exists (using prev_num_pages to find the
// predecessor and page+numPages arithmetic to find the successor), and
// pushes the (possibly merged) result onto the free list.
func (a *Allocator) Free(page uint32) error {
	ch, err := a.chunkHeader(page)
	if err != nil {
		return err
	}
	numPages := ch.NumPages()
	prevNumPages := ch.PrevNumPages()

	// Try to coalesce with the predecessor.
	if prevNumPages > 0 && prevNumPages <= page {
		predPage := page - prevNumPages
		predCh, err := a.chunkHeader(predPage)
		if err == nil && predCh.Type() == mdbmfmt.ChunkFree {
			a.removeFree(predPage)
			numPages += predCh.NumPages()
			page = predPage
			ch = predCh
		}
	}

	// Try to coalesce with the successor.
	succPage := page + numPages
	if succPage < a.src.PageCount() {
		succCh, err := a.chunkHeader(succPage)
		if err == nil && succCh.Type() == mdbmfmt.ChunkFree {
			a.removeFree(succPage)
			numPages += succCh.NumPages()
			if next := succPage + succCh.NumPages(); next < a.src.PageCount() {
				if nextCh, err := a.chunkHeader(next); err == nil {
					nextCh.SetPrevNumPages(numPages)
				}
			}
		}
	}

	ch.SetTypeAndPages(mdbmfmt.ChunkFree, numPages)
	a.pushFree(page, numPages)
	return nil
}

// removeFree splices page out of the free list wherever it is (used by
// Free's coalescing, since the chunk being merged away may not be at the
// head).
func (a *Allocator) removeFree(target uint32) {
	var prevPage uint32
	page := a.hdr.FreeListHead()
	for page != 0 {
		ch, err := a.chunkHeader(page)
		if err != nil {
			return
		}
		next := ch.NextFree()
		if page == target {
			a.unlinkFree(prevPage, page, next)
			return
		}
		prevPage = page
		page = next
	}
}

// CoalesceAdjacent merges the free chunk at page with a free predecessor
// or successor, if either exists, and re-lists the (possibly merged)
// result on the free list. It is a no-op when the chunk at page is not
// free.
func (a *Allocator) CoalesceAdjacent(page uint32) error {
	ch, err := a.chunkHeader(page)
	if err != nil {
		return err
	}
	if ch.Type() != mdbmfmt.ChunkFree {
		return nil
	}
	// Free pushes the chunk onto the free list again, so take it off first.
	a.removeFree(page)
	return a.Free(page)
}
