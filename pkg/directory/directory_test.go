package directory

import "testing"

func TestLookupBeforeAnySplit(t *testing.T) {
	buf := make([]byte, 4) // one entry
	d := New(buf)
	d.SetSlot(0, 1)

	// At dirShift 0 every hash resolves to slot 0.
	if got := Lookup(d, 0xABCDEF01, 0); got != 1 {
		t.Errorf("Lookup = %d, want 1", got)
	}
	if got := Lookup(d, 0x00000000, 0); got != 1 {
		t.Errorf("Lookup = %d, want 1", got)
	}
}

func TestLookupWalksUpUnsplitSlots(t *testing.T) {
	// dirShift 3 => 8 slots. Only slot 0 (the root) has ever been split
	// out; every other slot must walk back down to 0.
	buf := make([]byte, 8*4)
	d := New(buf)
	d.SetSlot(0, 42)

	for hash := uint32(0); hash < 8; hash++ {
		slot := hash << (32 - 3)
		got := Lookup(d, slot, 3)
		if got != 42 {
			t.Errorf("hash bucket %d: Lookup = %d, want 42 (walk up to root)", hash, got)
		}
	}
}

func TestLookupRespectsASplitSibling(t *testing.T) {
	// dirShift 1 => 2 slots; slot 0 and slot 1 point at distinct pages.
	buf := make([]byte, 2*4)
	d := New(buf)
	d.SetSlot(0, 10)
	d.SetSlot(1, 20)

	lowHash := uint32(0)               // top bit 0 -> slot 0
	highHash := uint32(1) << 31        // top bit 1 -> slot 1

	if got := Lookup(d, lowHash, 1); got != 10 {
		t.Errorf("low hash resolved to %d, want 10", got)
	}
	if got := Lookup(d, highHash, 1); got != 20 {
		t.Errorf("high hash resolved to %d, want 20", got)
	}
}

func TestClearTopBit(t *testing.T) {
	cases := map[uint32]uint32{
		0:  0,
		1:  0,
		2:  0,
		3:  1,
		4:  0,
		5:  1,
		6:  2,
		7:  3,
	}
	for in, want := range cases {
		if got := clearTopBit(in); got != want {
			t.Errorf("clearTopBit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSlotForZeroShift(t *testing.T) {
	if got := SlotFor(0xFFFFFFFF, 0); got != 0 {
		t.Errorf("SlotFor with dirShift 0 = %d, want 0", got)
	}
}

func TestGrowPreservesEntries(t *testing.T) {
	buf := make([]byte, 2*4)
	d := New(buf)
	d.SetSlot(0, 5)
	d.SetSlot(1, 6)

	newBuf := make([]byte, 4*4)
	grown := d.Grow(newBuf)

	if got := grown.Slot(0); got != 5 {
		t.Errorf("after grow, slot 0 = %d, want 5", got)
	}
	if got := grown.Slot(1); got != 6 {
		t.Errorf("after grow, slot 1 = %d, want 6", got)
	}
	if got := grown.Capacity(); got != 4 {
		t.Errorf("grown capacity = %d, want 4", got)
	}
}
