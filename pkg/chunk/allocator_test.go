package chunk

import (
	"testing"

	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
)

// fakeSource is an in-memory Source backing the allocator tests; it grows a
// flat byte slice the same way mmapfile.File grows a mapped file.
type fakeSource struct {
	pageSize  int
	pageCount uint32
	buf       []byte
}

func newFakeSource(pageSize int, initialPages uint32) *fakeSource {
	return &fakeSource{pageSize: pageSize, pageCount: initialPages, buf: make([]byte, int(initialPages)*pageSize)}
}

func (f *fakeSource) ChunkAt(page uint32, numPages int) ([]byte, error) {
	start := int(page) * f.pageSize
	end := start + numPages*f.pageSize
	return f.buf[start:end], nil
}

func (f *fakeSource) GrowTo(pageCount uint32) error {
	if pageCount <= f.pageCount {
		return nil
	}
	newBuf := make([]byte, int(pageCount)*f.pageSize)
	copy(newBuf, f.buf)
	f.buf = newBuf
	f.pageCount = pageCount
	return nil
}

func (f *fakeSource) PageCount() uint32 { return f.pageCount }

func newTestAllocator(t *testing.T) (*Allocator, *fakeSource, mdbmfmt.Header) {
	t.Helper()
	src := newFakeSource(256, 1)
	hdrBuf := make([]byte, mdbmfmt.HeaderSize)
	hdr := mdbmfmt.Header(hdrBuf)
	return New(src, hdr), src, hdr
}

func TestAllocFreshAppendsPastHeaderPage(t *testing.T) {
	a, src, _ := newTestAllocator(t)

	page, err := a.Alloc(1, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if page != 1 {
		t.Errorf("first data chunk should land at page 1 (page 0 is reserved), got %d", page)
	}
	if src.PageCount() < 2 {
		t.Errorf("source should have grown to at least 2 pages, got %d", src.PageCount())
	}
}

func TestFreeThenAllocReusesFromFreeList(t *testing.T) {
	a, _, _ := newTestAllocator(t)

	page, err := a.Alloc(2, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Free(page); err != nil {
		t.Fatalf("Free: %v", err)
	}

	reused, err := a.Alloc(2, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc (reuse): %v", err)
	}
	if reused != page {
		t.Errorf("expected the freed chunk to be reused at page %d, got %d", page, reused)
	}
}

func TestFreeListSplitsRemainder(t *testing.T) {
	a, _, _ := newTestAllocator(t)

	big, err := a.Alloc(4, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Free(big); err != nil {
		t.Fatalf("Free: %v", err)
	}

	small, err := a.Alloc(1, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc small: %v", err)
	}
	if small != big {
		t.Fatalf("small alloc should first-fit into the freed 4-page run at %d, got %d", big, small)
	}

	remainder, err := a.Alloc(3, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc remainder: %v", err)
	}
	if remainder != big+1 {
		t.Errorf("remainder should be the 3 leftover pages starting at %d, got %d", big+1, remainder)
	}
}

func TestCoalesceAdjacentMergesFreeNeighbors(t *testing.T) {
	a, _, _ := newTestAllocator(t)

	p1, err := a.Alloc(2, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc p1: %v", err)
	}
	p2, err := a.Alloc(2, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc p2: %v", err)
	}
	if p2 != p1+2 {
		t.Fatalf("expected contiguous allocation, got p1=%d p2=%d", p1, p2)
	}

	if err := a.Relink(p2, 2); err != nil {
		t.Fatalf("Relink: %v", err)
	}

	if err := a.Free(p1); err != nil {
		t.Fatalf("Free p1: %v", err)
	}
	if err := a.Free(p2); err != nil {
		t.Fatalf("Free p2: %v", err)
	}

	merged, err := a.Alloc(4, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc merged: %v", err)
	}
	if merged != p1 {
		t.Errorf("expected the two adjacent free chunks to have coalesced into one 4-page run at %d, got %d", p1, merged)
	}
}
