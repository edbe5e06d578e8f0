package lob

import (
	"bytes"
	"testing"

	"github.com/nainya/mdbmgo/pkg/chunk"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
)

// fakeSource backs both chunk.Source (for the allocator) and lob.Source (for
// Store/Load) with a flat growable byte slice.
type fakeSource struct {
	pageSize  int
	pageCount uint32
	buf       []byte
}

func newFakeSource(pageSize int) *fakeSource {
	return &fakeSource{pageSize: pageSize, pageCount: 1, buf: make([]byte, pageSize)}
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
func (f *fakeSource) PageSize() int     { return f.pageSize }

func newTestAllocator(src *fakeSource) *chunk.Allocator {
	hdrBuf := make([]byte, mdbmfmt.HeaderSize)
	return chunk.New(src, mdbmfmt.Header(hdrBuf))
}

func TestEncodeDecodePointerRoundTrip(t *testing.T) {
	buf := EncodePointer(7, 12345)
	page, length := DecodePointer(buf)
	if page != 7 || length != 12345 {
		t.Errorf("round trip = (%d,%d), want (7,12345)", page, length)
	}
}

func TestDefaultSpillSize(t *testing.T) {
	if got := DefaultSpillSize(4096); got != 3072 {
		t.Errorf("DefaultSpillSize(4096) = %d, want 3072", got)
	}
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	src := newFakeSource(256)
	alloc := newTestAllocator(src)

	value := bytes.Repeat([]byte("x"), 500)
	page, err := Store(src, alloc, value)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := Load(src, page)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Load returned %d bytes, want %d matching bytes", len(got), len(value))
	}
}

func TestStoreSpansMultiplePages(t *testing.T) {
	src := newFakeSource(64)
	alloc := newTestAllocator(src)

	value := bytes.Repeat([]byte("y"), 200)
	page, err := Store(src, alloc, value)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	head, err := src.ChunkAt(page, 1)
	if err != nil {
		t.Fatalf("ChunkAt: %v", err)
	}
	ch := mdbmfmt.ChunkHeader(head[:mdbmfmt.ChunkHeaderSize])
	if ch.NumPages() < 2 {
		t.Errorf("expected a multi-page large-object chunk, got NumPages=%d", ch.NumPages())
	}
	if ch.Type() != mdbmfmt.ChunkLargeObject {
		t.Errorf("chunk type = %d, want ChunkLargeObject", ch.Type())
	}
}

func TestFreeReleasesChunkForReuse(t *testing.T) {
	src := newFakeSource(256)
	alloc := newTestAllocator(src)

	value := bytes.Repeat([]byte("z"), 100)
	page, err := Store(src, alloc, value)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := Free(alloc, page); err != nil {
		t.Fatalf("Free: %v", err)
	}

	reused, err := alloc.Alloc(1, mdbmfmt.ChunkData)
	if err != nil {
		t.Fatalf("Alloc after free: %v", err)
	}
	if reused != page {
		t.Errorf("expected the freed large-object chunk to be reused at %d, got %d", page, reused)
	}
}
