package mdbmfmt

import "encoding/binary"

// Chunk type tags, packed into the low 4 bits of the first chunk word.
const (
	ChunkFree               uint32 = 0
	ChunkData                uint32 = 1
	ChunkOversizedData       uint32 = 2
	ChunkLargeObject         uint32 = 3
	ChunkDirectoryExtension  uint32 = 4
)

// ChunkHeaderSize is the fixed size, in bytes, of the chunk header that
// begins every chunk: {type:4|num_pages:28}[4] prev_num_pages[4] payload[4].
const ChunkHeaderSize = 12

// ChunkHeader is an accessor over the first ChunkHeaderSize bytes of a
// chunk. The payload word's meaning depends on Type(): free-list next
// pointer for free chunks, active-entry count for data chunks, byte length
// for large-object chunks, directory page number for directory-extension
// chunks.
type ChunkHeader []byte

func (c ChunkHeader) typeAndPages() uint32 { return binary.LittleEndian.Uint32(c[0:4]) }

func (c ChunkHeader) Type() uint32 { return c.typeAndPages() & 0xF }

func (c ChunkHeader) NumPages() uint32 { return c.typeAndPages() >> 4 }

func (c ChunkHeader) SetTypeAndPages(typ uint32, numPages uint32) {
	binary.LittleEndian.PutUint32(c[0:4], (numPages<<4)|(typ&0xF))
}

func (c ChunkHeader) PrevNumPages() uint32 { return binary.LittleEndian.Uint32(c[4:8]) }
func (c ChunkHeader) SetPrevNumPages(v uint32) {
	binary.LittleEndian.PutUint32(c[4:8], v)
}

func (c ChunkHeader) Payload() uint32 { return binary.LittleEndian.Uint32(c[8:12]) }
func (c ChunkHeader) SetPayload(v uint32) {
	binary.LittleEndian.PutUint32(c[8:12], v)
}

// Free-chunk payload accessors (next free chunk's page number).
func (c ChunkHeader) NextFree() uint32      { return c.Payload() }
func (c ChunkHeader) SetNextFree(p uint32)  { c.SetPayload(p) }

// Data-chunk payload accessors (count of active/live slot-table entries).
func (c ChunkHeader) ActiveEntries() uint32     { return c.Payload() }
func (c ChunkHeader) SetActiveEntries(n uint32) { c.SetPayload(n) }

// Large-object chunk payload accessors (byte length of the stored value).
func (c ChunkHeader) LobLength() uint32     { return c.Payload() }
func (c ChunkHeader) SetLobLength(n uint32) { c.SetPayload(n) }

// Directory-extension chunk payload is unused; the header's dir_chunk_page
// field is authoritative, but we mirror it here for self-description under
// `check`.
func (c ChunkHeader) DirPageNum() uint32     { return c.Payload() }
func (c ChunkHeader) SetDirPageNum(n uint32) { c.SetPayload(n) }

// TypeName returns a human-readable name for `check`/`dump` diagnostics.
func TypeName(t uint32) string {
	switch t {
	case ChunkFree:
		return "free"
	case ChunkData:
		return "data"
	case ChunkOversizedData:
		return "oversized-data"
	case ChunkLargeObject:
		return "large-object"
	case ChunkDirectoryExtension:
		return "directory-extension"
	default:
		return "unknown"
	}
}
