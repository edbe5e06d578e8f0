// Package directory implements the header & directory component: the
// bit-trie that maps a key's hash prefix to a data-page number. Directory
// storage is a dense array of page_number entries (mdbmfmt uses 4 bytes per
// entry) living either inline after the page-0 header or, once it outgrows
// that space, in a directory-extension chunk. This package only knows how
// to read and write a slice of entries and walk the trie; the caller (pkg
// mdbm) is responsible for locating that slice and for invoking the
// split/grow engine when Lookup needs a slot that does not exist yet.
//
// There is no direct precedent for a bit-trie directory in the codebase
// this was adapted from; the accessor-over-a-byte-slice style is carried
// over from its node.go idiom used throughout this package's neighbors.
package directory

import (
	"encoding/binary"
)

const entrySize = 4

// Dir is an accessor over a directory's backing bytes. Capacity is the
// number of 4-byte entries the slice can hold (NOT 1<<dirShift -- callers
// size the slice to the eventual maximum before use, since the directory
// lives at a fixed header-relative offset until it outgrows that space, and
// pkg mdbm is responsible for relocating to a larger extension chunk when
// Capacity() is exceeded).
type Dir struct {
	buf []byte
}

// New wraps an existing backing buffer. len(buf) must be a multiple of 4.
func New(buf []byte) *Dir {
	return &Dir{buf: buf}
}

// Capacity returns how many directory entries fit in the backing buffer.
func (d *Dir) Capacity() int { return len(d.buf) / entrySize }

func (d *Dir) get(slot uint32) uint32 {
	return binary.LittleEndian.Uint32(d.buf[slot*entrySize:])
}

func (d *Dir) set(slot uint32, page uint32) {
	binary.LittleEndian.PutUint32(d.buf[slot*entrySize:], page)
}

// Lookup resolves hash to a page number given the current directory depth
// dirShift:
//
//  1. slot = hash >> (32 - dirShift)
//  2. while dir[slot] == 0 && slot != 0: clear the top set bit of slot
//  3. return dir[slot]
//
// Entry 0 (the root) is expected to be non-zero once the first page has
// been allocated; a zero return before that point means the directory is
// entirely unpopulated.
func Lookup(d *Dir, hash uint32, dirShift uint16) uint32 {
	slot := slotFor(hash, dirShift)
	for slot != 0 && d.get(slot) == 0 {
		slot = clearTopBit(slot)
	}
	return d.get(slot)
}

// SlotFor returns the raw directory slot a hash resolves to at the given
// depth, without walking up the trie. Used by the split engine to decide
// where a newly split sibling's pointer belongs.
func SlotFor(hash uint32, dirShift uint16) uint32 { return slotFor(hash, dirShift) }

func slotFor(hash uint32, dirShift uint16) uint32 {
	if dirShift == 0 {
		return 0
	}
	return hash >> (32 - dirShift)
}

// clearTopBit clears the highest set bit of slot, walking one level up the
// trie toward the root.
func clearTopBit(slot uint32) uint32 {
	if slot == 0 {
		return 0
	}
	top := uint32(1)
	for top<<1 <= slot {
		top <<= 1
	}
	return slot &^ top
}

// SetSlot writes a directory entry directly; used when a split publishes
// the sibling's page number, and when the root is first created.
func (d *Dir) SetSlot(slot uint32, page uint32) {
	d.set(slot, page)
}

// Slot returns the raw entry at slot (0 if never split out).
func (d *Dir) Slot(slot uint32) uint32 {
	return d.get(slot)
}

// Grow copies the entries of d into a larger backing buffer newBuf (already
// sized to the new capacity and zero-filled) and returns a Dir over it. The
// bit-trie representation needs no rewriting on growth: every existing
// entry remains valid at its old slot index, since widening dirShift only
// ever subdivides slots that were previously implicit (zero).
func (d *Dir) Grow(newBuf []byte) *Dir {
	copy(newBuf, d.buf)
	return New(newBuf)
}

// Bytes exposes the backing buffer, e.g. for persisting a directory chunk.
func (d *Dir) Bytes() []byte { return d.buf }
