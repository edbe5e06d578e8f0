// Package mdbmfmt defines the stable, bit-exact on-disk layout: the page-0
// header, the chunk header at the front of every chunk, and the constants
// shared by the directory, chunk allocator and page engine. Every type here
// is a thin accessor over a byte slice, in the same spirit as
// pkg/btree/node.go's BNode type: a []byte with binary.LittleEndian-based
// getters/setters rather than a parsed struct, so the bytes returned by the
// mapping layer can be read and written in place.
package mdbmfmt

import "encoding/binary"

// Magic identifies an mdbmgo database file.
var Magic = [4]byte{'M', 'D', 'B', 'M'}

// FormatVersion is the on-disk format version written by this package.
const FormatVersion uint16 = 1

// Header flag bits.
const (
	FlagLargeObjects uint16 = 1 << 0
	FlagCacheEnabled uint16 = 1 << 1
	FlagNoDirty      uint16 = 1 << 2
)

// HeaderSize is the fixed size, in bytes, of the page-0 header. It must fit
// in the smallest legal page size (256 bytes).
const HeaderSize = 104

// Header is an accessor over the first HeaderSize bytes of page 0.
//
// Layout (little-endian on the host's native endianness; the format is not
// portable across endianness):
//
//	magic[4] version[2] flags[2]
//	page_size[4] page_count[4] dir_shift[2] hash_id[2]
//	alignment[1] cache_policy[1] reserved[2]
//	spill_size[4] limit_pages[4]
//	dir_chunk_page[4] free_list_head[4]
//	policy_counters[8]uint64 (64 bytes)
type Header []byte

const (
	offMagic         = 0
	offVersion       = 4
	offFlags         = 6
	offPageSize      = 8
	offPageCount     = 12
	offDirShift      = 16
	offHashID        = 18
	offAlignment     = 20
	offCachePolicy   = 21
	offReserved      = 22
	offSpillSize     = 24
	offLimitPages    = 28
	offDirChunkPage  = 32
	offFreeListHead  = 36
	offPolicyCounter = 40
)

// NumPolicyCounters is the number of uint64 per-policy counters carried in
// the header (hits/misses/evictions/etc., consumed by get_db_stats).
const NumPolicyCounters = 8

func (h Header) MagicOK() bool {
	return h[offMagic] == Magic[0] && h[offMagic+1] == Magic[1] &&
		h[offMagic+2] == Magic[2] && h[offMagic+3] == Magic[3]
}

func (h Header) SetMagic() {
	copy(h[offMagic:offMagic+4], Magic[:])
}

func (h Header) Version() uint16 { return binary.LittleEndian.Uint16(h[offVersion:]) }
func (h Header) SetVersion(v uint16) {
	binary.LittleEndian.PutUint16(h[offVersion:], v)
}

func (h Header) Flags() uint16 { return binary.LittleEndian.Uint16(h[offFlags:]) }
func (h Header) SetFlags(f uint16) {
	binary.LittleEndian.PutUint16(h[offFlags:], f)
}
func (h Header) HasFlag(bit uint16) bool { return h.Flags()&bit != 0 }

func (h Header) PageSize() uint32 { return binary.LittleEndian.Uint32(h[offPageSize:]) }
func (h Header) SetPageSize(v uint32) {
	binary.LittleEndian.PutUint32(h[offPageSize:], v)
}

func (h Header) PageCount() uint32 { return binary.LittleEndian.Uint32(h[offPageCount:]) }
func (h Header) SetPageCount(v uint32) {
	binary.LittleEndian.PutUint32(h[offPageCount:], v)
}

func (h Header) DirShift() uint16 { return binary.LittleEndian.Uint16(h[offDirShift:]) }
func (h Header) SetDirShift(v uint16) {
	binary.LittleEndian.PutUint16(h[offDirShift:], v)
}

func (h Header) HashID() uint16 { return binary.LittleEndian.Uint16(h[offHashID:]) }
func (h Header) SetHashID(v uint16) {
	binary.LittleEndian.PutUint16(h[offHashID:], v)
}

func (h Header) Alignment() uint8 { return h[offAlignment] }
func (h Header) SetAlignment(v uint8) {
	h[offAlignment] = v
}

func (h Header) CachePolicy() uint8 { return h[offCachePolicy] }
func (h Header) SetCachePolicy(v uint8) {
	h[offCachePolicy] = v
}

func (h Header) SpillSize() uint32 { return binary.LittleEndian.Uint32(h[offSpillSize:]) }
func (h Header) SetSpillSize(v uint32) {
	binary.LittleEndian.PutUint32(h[offSpillSize:], v)
}

func (h Header) LimitPages() uint32 { return binary.LittleEndian.Uint32(h[offLimitPages:]) }
func (h Header) SetLimitPages(v uint32) {
	binary.LittleEndian.PutUint32(h[offLimitPages:], v)
}

func (h Header) DirChunkPage() uint32 { return binary.LittleEndian.Uint32(h[offDirChunkPage:]) }
func (h Header) SetDirChunkPage(v uint32) {
	binary.LittleEndian.PutUint32(h[offDirChunkPage:], v)
}

func (h Header) FreeListHead() uint32 { return binary.LittleEndian.Uint32(h[offFreeListHead:]) }
func (h Header) SetFreeListHead(v uint32) {
	binary.LittleEndian.PutUint32(h[offFreeListHead:], v)
}

func (h Header) PolicyCounter(i int) uint64 {
	return binary.LittleEndian.Uint64(h[offPolicyCounter+8*i:])
}
func (h Header) SetPolicyCounter(i int, v uint64) {
	binary.LittleEndian.PutUint64(h[offPolicyCounter+8*i:], v)
}
func (h Header) AddPolicyCounter(i int, delta uint64) {
	h.SetPolicyCounter(i, h.PolicyCounter(i)+delta)
}
