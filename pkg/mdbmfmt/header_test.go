package mdbmfmt

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := Header(buf)

	h.SetMagic()
	if !h.MagicOK() {
		t.Fatalf("expected magic to validate after SetMagic")
	}

	h.SetVersion(FormatVersion)
	if got := h.Version(); got != FormatVersion {
		t.Fatalf("version = %d, want %d", got, FormatVersion)
	}

	h.SetFlags(FlagLargeObjects | FlagCacheEnabled)
	if !h.HasFlag(FlagLargeObjects) {
		t.Fatalf("expected FlagLargeObjects set")
	}
	if h.HasFlag(FlagNoDirty) {
		t.Fatalf("did not expect FlagNoDirty set")
	}

	h.SetPageSize(4096)
	h.SetPageCount(10)
	h.SetDirShift(3)
	h.SetHashID(uint16(2))
	h.SetSpillSize(3072)
	h.SetLimitPages(1000)
	h.SetDirChunkPage(7)
	h.SetFreeListHead(9)

	if h.PageSize() != 4096 {
		t.Errorf("page size = %d, want 4096", h.PageSize())
	}
	if h.PageCount() != 10 {
		t.Errorf("page count = %d, want 10", h.PageCount())
	}
	if h.DirShift() != 3 {
		t.Errorf("dir shift = %d, want 3", h.DirShift())
	}
	if h.HashID() != 2 {
		t.Errorf("hash id = %d, want 2", h.HashID())
	}
	if h.SpillSize() != 3072 {
		t.Errorf("spill size = %d, want 3072", h.SpillSize())
	}
	if h.LimitPages() != 1000 {
		t.Errorf("limit pages = %d, want 1000", h.LimitPages())
	}
	if h.DirChunkPage() != 7 {
		t.Errorf("dir chunk page = %d, want 7", h.DirChunkPage())
	}
	if h.FreeListHead() != 9 {
		t.Errorf("free list head = %d, want 9", h.FreeListHead())
	}
}

func TestHeaderPolicyCounters(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := Header(buf)

	for i := 0; i < NumPolicyCounters; i++ {
		h.SetPolicyCounter(i, uint64(i*100))
	}
	for i := 0; i < NumPolicyCounters; i++ {
		if got := h.PolicyCounter(i); got != uint64(i*100) {
			t.Errorf("counter %d = %d, want %d", i, got, i*100)
		}
	}

	h.AddPolicyCounter(0, 5)
	if got := h.PolicyCounter(0); got != 5 {
		t.Errorf("counter 0 after add = %d, want 5", got)
	}
}

func TestHeaderMagicRejectsGarbage(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := Header(buf)
	if h.MagicOK() {
		t.Fatalf("zeroed header should not report a valid magic")
	}
}
