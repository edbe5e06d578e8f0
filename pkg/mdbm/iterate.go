package mdbm

import (
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
	"github.com/nainya/mdbmgo/pkg/page"
)

// Cursor is the restartable iteration position firstkey/nextkey (and their
// _r variants) thread through the caller: a page number plus a slot index
// within it. It carries no reference into the mapping, so it survives
// across Store/Delete calls the way a plain integer pair would.
type Cursor struct {
	Page uint32
	Slot uint16
}

// First returns the first entry in directory-walk order (increasing page
// number, insertion order within a page). With includeDeleted, tombstoned
// slots are surfaced too (used by tooling);
// without it, only live entries are visited.
func (h *Handle) First(includeDeleted bool) (Cursor, []byte, []byte, bool) {
	return h.scanFrom(1, 0, includeDeleted)
}

// Next resumes the scan just past cur, which must have come from a prior
// First/Next call on this handle.
func (h *Handle) Next(cur Cursor, includeDeleted bool) (Cursor, []byte, []byte, bool) {
	return h.scanFrom(cur.Page, cur.Slot+1, includeDeleted)
}

// scanFrom walks pages starting at startPage (resuming within startPage at
// startSlot, and at slot 0 for every later page) until it finds a qualifying
// slot or exhausts PageCount. Non-data chunks (free, large-object,
// directory-extension) are skipped entirely; their page span is read from
// the chunk header so the walk advances past every page they occupy.
func (h *Handle) scanFrom(startPage uint32, startSlot uint16, includeDeleted bool) (Cursor, []byte, []byte, bool) {
	pageNum := startPage
	slot := startSlot
	for pageNum < h.hdr.PageCount() {
		headBuf, err := h.file.ChunkAt(pageNum, 1)
		if err != nil {
			return Cursor{}, nil, nil, false
		}
		ch := mdbmfmt.ChunkHeader(headBuf[:mdbmfmt.ChunkHeaderSize])
		numPages := ch.NumPages()
		if numPages == 0 {
			numPages = 1
		}
		kind := ch.Type()

		if kind == mdbmfmt.ChunkData || kind == mdbmfmt.ChunkOversizedData {
			buf, err := h.file.ChunkAt(pageNum, int(numPages))
			if err != nil {
				return Cursor{}, nil, nil, false
			}
			pg := page.Open(buf, h.cacheEnabled())
			n := pg.NumSlots()
			for ; slot < n; slot++ {
				flags := pg.SlotFlags(slot)
				if flags&page.FlagDeleted != 0 && !includeDeleted {
					continue
				}
				key := append([]byte(nil), pg.KeyAt(slot)...)
				val := append([]byte(nil), pg.ValAt(slot)...)
				return Cursor{Page: pageNum, Slot: slot}, key, val, true
			}
		}

		pageNum += numPages
		slot = 0
	}
	return Cursor{}, nil, nil, false
}

// ChunkVisitor is called once per chunk during ChunkIterate; returning false
// stops the walk early, the same `quit_flag` behavior the clean callback and
// chunk_iterate share.
type ChunkVisitor func(pageNum uint32, kind uint32, numPages uint32) bool

// ChunkIterate walks every chunk in the file once, in page order, reporting
// its type and page span -- the primitive `chunk_iterate` and `check`'s
// chunk-accounting pass are both built from.
func (h *Handle) ChunkIterate(visit ChunkVisitor) error {
	pageNum := uint32(1)
	for pageNum < h.hdr.PageCount() {
		headBuf, err := h.file.ChunkAt(pageNum, 1)
		if err != nil {
			return err
		}
		ch := mdbmfmt.ChunkHeader(headBuf[:mdbmfmt.ChunkHeaderSize])
		numPages := ch.NumPages()
		if numPages == 0 {
			numPages = 1
		}
		if !visit(pageNum, ch.Type(), numPages) {
			return nil
		}
		pageNum += numPages
	}
	return nil
}
