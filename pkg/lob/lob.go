// Package lob implements the large-object subsystem: values at or above the
// spill threshold are stored as an out-of-page chunk sized to exactly fit
// the value plus the 12-byte chunk header, whose payload word records the
// value's byte length, and the in-page entry holds a pointer record
// {lob_page_num, lob_byte_len} instead of the value bytes.
package lob

import (
	"encoding/binary"

	"github.com/nainya/mdbmgo/pkg/chunk"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
)

// PointerSize is the encoded size of the in-page pointer record.
const PointerSize = 8

// EncodePointer packs {page, length} into an 8-byte in-page value record.
func EncodePointer(page uint32, length uint32) []byte {
	buf := make([]byte, PointerSize)
	binary.LittleEndian.PutUint32(buf[0:], page)
	binary.LittleEndian.PutUint32(buf[4:], length)
	return buf
}

// DecodePointer unpacks an in-page large-object pointer record.
func DecodePointer(rec []byte) (page uint32, length uint32) {
	return binary.LittleEndian.Uint32(rec[0:]), binary.LittleEndian.Uint32(rec[4:])
}

// DefaultSpillFraction is applied when large objects are enabled without an
// explicit setspillsize call: page_size * 3/4, exposed via get_db_stats
// rather than hidden behind a fixed constant.
const DefaultSpillFraction = 0.75

// DefaultSpillSize computes the default spill threshold for a page size.
func DefaultSpillSize(pageSize uint32) uint32 {
	return uint32(float64(pageSize) * DefaultSpillFraction)
}

// Source is the allocator/mapping surface the large-object subsystem needs.
type Source interface {
	ChunkAt(page uint32, numPages int) ([]byte, error)
	PageSize() int
}

// Store allocates a large-object chunk sized to exactly fit value, writes
// the length header and bytes, and returns the chunk's page number.
func Store(src Source, alloc *chunk.Allocator, value []byte) (uint32, error) {
	pageSize := src.PageSize()
	totalBytes := mdbmfmt.ChunkHeaderSize + len(value)
	numPages := uint32((totalBytes + pageSize - 1) / pageSize)
	if numPages == 0 {
		numPages = 1
	}

	page, err := alloc.Alloc(numPages, mdbmfmt.ChunkLargeObject)
	if err != nil {
		return 0, err
	}

	buf, err := src.ChunkAt(page, int(numPages))
	if err != nil {
		return 0, err
	}

	ch := mdbmfmt.ChunkHeader(buf[:mdbmfmt.ChunkHeaderSize])
	ch.SetTypeAndPages(mdbmfmt.ChunkLargeObject, numPages)
	ch.SetLobLength(uint32(len(value)))
	copy(buf[mdbmfmt.ChunkHeaderSize:], value)

	return page, nil
}

// Load reads the value bytes back out of a large-object chunk at page.
func Load(src Source, page uint32) ([]byte, error) {
	// First peek just the header to learn how many pages the chunk
	// spans and how long the value is.
	head, err := src.ChunkAt(page, 1)
	if err != nil {
		return nil, err
	}
	ch := mdbmfmt.ChunkHeader(head[:mdbmfmt.ChunkHeaderSize])
	numPages := ch.NumPages()
	length := ch.LobLength()

	buf, err := src.ChunkAt(page, int(numPages))
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, buf[mdbmfmt.ChunkHeaderSize:mdbmfmt.ChunkHeaderSize+int(length)])
	return out, nil
}

// Free releases a large-object chunk.
func Free(alloc *chunk.Allocator, page uint32) error {
	return alloc.Free(page)
}
