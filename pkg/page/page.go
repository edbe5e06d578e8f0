// Package page implements the page engine: the per-page slot directory and
// the payload region of a data (or oversized-data) chunk, plus insert,
// fetch, delete, compaction and iteration over it.
//
// The accessor-over-a-[]byte idiom (binary.LittleEndian reads through typed
// getters/setters, panics on out-of-range access rather than silent
// corruption) is carried over from pkg/btree/node.go's BNode type. The
// layout itself differs from that B+Tree node layout: a descending slot
// table at the top of the page and a payload region growing up from the
// bottom, rather than a single ascending table of fixed-width
// pointer+offset+KV records.
package page

import (
	"bytes"
	"encoding/binary"

	"github.com/nainya/mdbmgo/pkg/mdbmerr"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
)

// Slot flag bits.
const (
	FlagLive uint8 = 1 << iota
	FlagDeleted
	FlagLargeObject
)

// pageHeaderSize is the chunk header (12 bytes) plus two page-local fields:
// numSlots (total slots including tombstones) and payloadEnd (the next
// free payload byte, relative to the start of the chunk).
const pageHeaderSize = mdbmfmt.ChunkHeaderSize + 4

const (
	offNumSlots   = mdbmfmt.ChunkHeaderSize
	offPayloadEnd = mdbmfmt.ChunkHeaderSize + 2
)

// slotFixedSize is the {key_off:16, val_off:16, flags:8} triple.
const slotFixedSize = 5

// cacheMetaSize is {num_accesses:32, access_time:32, priority:32}, present
// only when the database's cache overlay is active.
const cacheMetaSize = 12

// CacheMeta is decoded/encoded per entry by pkg cache; page only knows its
// byte width.
type CacheMeta struct {
	NumAccesses uint32
	AccessTime  uint32
	PriorityBits uint32 // float32 bit pattern
}

// Page is an accessor over one data (or oversized-data) chunk's bytes.
type Page struct {
	buf          []byte
	cacheEnabled bool
}

// Open wraps an already chunk-tagged buffer. Init must be called once, on
// first allocation, before Open is meaningful.
func Open(buf []byte, cacheEnabled bool) *Page {
	return &Page{buf: buf, cacheEnabled: cacheEnabled}
}

// Init zero-initializes a freshly allocated chunk as an empty data page.
func Init(buf []byte, cacheEnabled bool, kind uint32, numPages uint32) *Page {
	p := &Page{buf: buf, cacheEnabled: cacheEnabled}
	ch := p.chunkHeader()
	ch.SetTypeAndPages(kind, numPages)
	ch.SetActiveEntries(0)
	binary.LittleEndian.PutUint16(p.buf[offNumSlots:], 0)
	binary.LittleEndian.PutUint16(p.buf[offPayloadEnd:], pageHeaderSize)
	return p
}

func (p *Page) chunkHeader() mdbmfmt.ChunkHeader {
	return mdbmfmt.ChunkHeader(p.buf[:mdbmfmt.ChunkHeaderSize])
}

func (p *Page) slotSize() int {
	if p.cacheEnabled {
		return slotFixedSize + cacheMetaSize
	}
	return slotFixedSize
}

func (p *Page) numSlots() uint16 { return binary.LittleEndian.Uint16(p.buf[offNumSlots:]) }
func (p *Page) setNumSlots(n uint16) {
	binary.LittleEndian.PutUint16(p.buf[offNumSlots:], n)
}

func (p *Page) payloadEnd() uint16 { return binary.LittleEndian.Uint16(p.buf[offPayloadEnd:]) }
func (p *Page) setPayloadEnd(v uint16) {
	binary.LittleEndian.PutUint16(p.buf[offPayloadEnd:], v)
}

// ActiveEntries returns the chunk header's live-entry counter.
func (p *Page) ActiveEntries() uint32 { return p.chunkHeader().ActiveEntries() }

// slotOffset returns the byte offset, from the start of the buffer, of
// slot i's fixed fields. Slots descend from the end of the buffer.
func (p *Page) slotOffset(i uint16) int {
	return len(p.buf) - (int(i)+1)*p.slotSize()
}

func (p *Page) slotFlags(i uint16) uint8 {
	return p.buf[p.slotOffset(i)+4]
}

func (p *Page) setSlotFlags(i uint16, f uint8) {
	p.buf[p.slotOffset(i)+4] = f
}

func (p *Page) slotKeyOff(i uint16) uint16 {
	return binary.LittleEndian.Uint16(p.buf[p.slotOffset(i):])
}

func (p *Page) slotValOff(i uint16) uint16 {
	return binary.LittleEndian.Uint16(p.buf[p.slotOffset(i)+2:])
}

func (p *Page) setSlot(i uint16, keyOff, valOff uint16, flags uint8) {
	off := p.slotOffset(i)
	binary.LittleEndian.PutUint16(p.buf[off:], keyOff)
	binary.LittleEndian.PutUint16(p.buf[off+2:], valOff)
	p.buf[off+4] = flags
}

// CacheMeta returns slot i's cache metadata; only meaningful when the
// cache overlay is enabled.
func (p *Page) CacheMeta(i uint16) CacheMeta {
	off := p.slotOffset(i) + slotFixedSize
	return CacheMeta{
		NumAccesses:  binary.LittleEndian.Uint32(p.buf[off:]),
		AccessTime:   binary.LittleEndian.Uint32(p.buf[off+4:]),
		PriorityBits: binary.LittleEndian.Uint32(p.buf[off+8:]),
	}
}

// SetCacheMeta writes slot i's cache metadata.
func (p *Page) SetCacheMeta(i uint16, m CacheMeta) {
	off := p.slotOffset(i) + slotFixedSize
	binary.LittleEndian.PutUint32(p.buf[off:], m.NumAccesses)
	binary.LittleEndian.PutUint32(p.buf[off+4:], m.AccessTime)
	binary.LittleEndian.PutUint32(p.buf[off+8:], m.PriorityBits)
}

// key/value are stored in the payload region as:
//
//	[keyLen:16][key bytes][valLen:16][val bytes]
//
// with key_off pointing at the first key byte and val_off at the first
// value byte; key_off always precedes val_off.

func (p *Page) keyAt(keyOff uint16) []byte {
	klen := binary.LittleEndian.Uint16(p.buf[keyOff-2:])
	return p.buf[keyOff : keyOff+klen]
}

func (p *Page) valAt(valOff uint16) []byte {
	vlen := binary.LittleEndian.Uint16(p.buf[valOff-2:])
	return p.buf[valOff : valOff+vlen]
}

// NumSlots returns the total slot count, including tombstones.
func (p *Page) NumSlots() uint16 { return p.numSlots() }

// SlotFlags exposes a slot's flag byte for iteration/tooling.
func (p *Page) SlotFlags(i uint16) uint8 { return p.slotFlags(i) }

// KeyAt and ValAt return slot i's key/value bytes regardless of liveness,
// used by iteration with include_deleted and by `dump`.
func (p *Page) KeyAt(i uint16) []byte { return p.keyAt(p.slotKeyOff(i)) }
func (p *Page) ValAt(i uint16) []byte { return p.valAt(p.slotValOff(i)) }

// freeSpace returns how many contiguous bytes are available between the
// payload's high-water mark and the bottom of the slot table.
func (p *Page) freeSpace() int {
	slotTableStart := len(p.buf) - int(p.numSlots())*p.slotSize()
	return slotTableStart - int(p.payloadEnd())
}

// spaceNeeded computes the payload bytes an insert of key and a
// valLen-byte value requires. Callers add the new slot's size themselves,
// and pass LobPointerSize as valLen for a large-object pointer record.
func spaceNeeded(key []byte, valLen int) int {
	// 2-byte length prefix + bytes, for both key and value.
	return 2 + len(key) + 2 + valLen
}

// LobPointerSize is the encoded size of {lob_page_num, lob_byte_len}.
const LobPointerSize = 8

// MaxPayload returns the largest non-large-object value length that could
// ever fit alongside a keyLen-byte key on a freshly allocated, empty page
// of pageSize bytes. Callers use this to reject a value up front when
// large objects are disabled, rather than discovering it only after
// splitting repeatedly finds no page that can hold it.
func MaxPayload(pageSize int, cacheEnabled bool, keyLen int) int {
	slotSize := slotFixedSize
	if cacheEnabled {
		slotSize += cacheMetaSize
	}
	avail := pageSize - pageHeaderSize - slotSize - 2 - keyLen - 2
	if avail < 0 {
		return 0
	}
	return avail
}

// Find scans live slots for key, returning the slot index and true on a
// match. after, if non-negative, resumes the scan past that slot index
// (used by fetch_dup).
func (p *Page) Find(key []byte, after int) (uint16, bool) {
	start := uint16(0)
	if after >= 0 {
		start = uint16(after) + 1
	}
	for i := start; i < p.numSlots(); i++ {
		if p.slotFlags(i)&FlagDeleted != 0 {
			continue
		}
		if bytes.Equal(p.KeyAt(i), key) {
			return i, true
		}
	}
	return 0, false
}

// CanInsert reports whether key/val (valLen bytes, or LobPointerSize if
// isLOB) fit in the page's current free space without compaction.
func (p *Page) CanInsert(key []byte, valLen int, isLOB bool) bool {
	need := spaceNeeded(key, valLen)
	if isLOB {
		need = spaceNeeded(key, LobPointerSize)
	}
	need += p.slotSize()
	return p.freeSpace() >= need
}

// Insert appends a new slot and payload record. Callers must have already
// verified CanInsert (after a Compact attempt if necessary); Insert itself
// never compacts or fails softly -- a KindFull error indicates the caller should
// hand off to the split/grow engine.
func (p *Page) Insert(key, val []byte, isLOB bool) (uint16, error) {
	storedVal := val
	if isLOB {
		// val is already the encoded {lob_page_num,lob_byte_len} record.
	}
	need := spaceNeeded(key, len(storedVal)) + p.slotSize()
	if p.freeSpace() < need {
		return 0, mdbmerr.New(mdbmerr.KindFull, "insert", "page full")
	}

	keyOff := p.writeRecord(key)
	valOff := p.writeRecord(storedVal)

	idx := p.numSlots()
	flags := FlagLive
	if isLOB {
		flags |= FlagLargeObject
	}
	p.setNumSlots(idx + 1)
	p.setSlot(idx, keyOff, valOff, flags)
	p.chunkHeader().SetActiveEntries(p.chunkHeader().ActiveEntries() + 1)
	return idx, nil
}

func (p *Page) writeRecord(b []byte) uint16 {
	pos := p.payloadEnd()
	binary.LittleEndian.PutUint16(p.buf[pos:], uint16(len(b)))
	copy(p.buf[pos+2:], b)
	p.setPayloadEnd(pos + 2 + uint16(len(b)))
	return pos + 2
}

// Delete marks slot i deleted. It does not reclaim space; callers reclaim
// via Compact.
func (p *Page) Delete(i uint16) {
	if p.slotFlags(i)&FlagDeleted != 0 {
		return
	}
	p.setSlotFlags(i, p.slotFlags(i)|FlagDeleted)
	ch := p.chunkHeader()
	if n := ch.ActiveEntries(); n > 0 {
		ch.SetActiveEntries(n - 1)
	}
}

// IsLargeObject reports whether slot i's value is a large-object pointer
// record rather than inline bytes.
func (p *Page) IsLargeObject(i uint16) bool {
	return p.slotFlags(i)&FlagLargeObject != 0
}

// SetFlagBit sets or clears an arbitrary bit in slot i's flag byte. It
// exists for higher layers (pkg cache's dirty bit) that overlay their own
// meaning onto flag bits the page engine itself never interprets.
func (p *Page) SetFlagBit(i uint16, bit uint8, set bool) {
	f := p.slotFlags(i)
	if set {
		f |= bit
	} else {
		f &^= bit
	}
	p.setSlotFlags(i, f)
}

// Compact rewrites the page in place, dropping tombstones and repacking
// live payload from the bottom, preserving insertion order. It rewrites
// offsets for every live slot and renumbers the slots, so slot indices
// taken before a Compact call are not valid after it.
func (p *Page) Compact() {
	type liveSlot struct {
		key, val []byte
		flags    uint8
		meta     CacheMeta
	}

	n := p.numSlots()
	live := make([]liveSlot, 0, n)
	for i := uint16(0); i < n; i++ {
		if p.slotFlags(i)&FlagDeleted != 0 {
			continue
		}
		ls := liveSlot{
			key:   append([]byte(nil), p.KeyAt(i)...),
			val:   append([]byte(nil), p.ValAt(i)...),
			flags: p.slotFlags(i),
		}
		if p.cacheEnabled {
			ls.meta = p.CacheMeta(i)
		}
		live = append(live, ls)
	}

	ch := p.chunkHeader()
	kind, numPages := ch.Type(), ch.NumPages()
	prevNumPages := ch.PrevNumPages()

	p.setNumSlots(0)
	p.setPayloadEnd(pageHeaderSize)
	ch.SetTypeAndPages(kind, numPages)
	ch.SetPrevNumPages(prevNumPages)
	ch.SetActiveEntries(0)

	for _, ls := range live {
		keyOff := p.writeRecord(ls.key)
		valOff := p.writeRecord(ls.val)
		idx := p.numSlots()
		p.setNumSlots(idx + 1)
		p.setSlot(idx, keyOff, valOff, ls.flags)
		if p.cacheEnabled {
			p.SetCacheMeta(idx, ls.meta)
		}
	}
	ch.SetActiveEntries(uint32(len(live)))
}
