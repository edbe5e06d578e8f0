package mdbm

import (
	"fmt"

	"github.com/nainya/mdbmgo/pkg/cache"
	"github.com/nainya/mdbmgo/pkg/hash"
	"github.com/nainya/mdbmgo/pkg/mdbmfmt"
)

// Stats mirrors get_db_stats: the header fields and per-policy counters a
// caller inspects without parsing the file directly.
type Stats struct {
	PageSize       int
	PageCount      uint32
	DirShift       uint16
	HashFamily     string
	CachePolicy    string
	RecordCount    int
	PolicyCounters [mdbmfmt.NumPolicyCounters]uint64
}

// GetDBStats reports the live shape of the database, mirroring
// get_db_stats: header fields plus the eight persisted policy counters, and
// a live record count obtained by a full iteration pass.
func (h *Handle) GetDBStats() Stats {
	var s Stats
	s.PageSize = h.file.PageSize()
	s.PageCount = h.hdr.PageCount()
	s.DirShift = h.hdr.DirShift()
	s.HashFamily = hash.Name(hash.ID(h.hdr.HashID()))
	s.CachePolicy = cache.Name(cache.Policy(h.hdr.CachePolicy()))
	for i := 0; i < mdbmfmt.NumPolicyCounters; i++ {
		s.PolicyCounters[i] = h.hdr.PolicyCounter(i)
	}

	cur, _, _, ok := h.First(false)
	for ok {
		s.RecordCount++
		cur, _, _, ok = h.Next(cur, false)
	}
	return s
}

// CheckLevel selects how thorough Check is, mirroring `check(level, verbose)`.
type CheckLevel int

const (
	// CheckQuick verifies only the header and the chunk chain's internal
	// consistency (type tags, page spans summing to page_count).
	CheckQuick CheckLevel = iota
	// CheckFull additionally re-derives every directory slot's target
	// page and confirms it is tagged as a data chunk.
	CheckFull
)

// CheckReport collects every invariant violation Check found; Errors is
// empty iff the database passed.
type CheckReport struct {
	Level  CheckLevel
	Errors []string
}

func (r *CheckReport) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// OK reports whether the check found no invariant violations.
func (r *CheckReport) OK() bool { return len(r.Errors) == 0 }

// Check walks the file verifying its core invariants:
// the chunk chain tiles page 1..page_count exactly once, every chunk
// carries a recognized type tag and a non-zero page span, and (at
// CheckFull) every non-empty directory slot resolves, below page_count, to
// a chunk actually tagged as data or oversized data. Slot offsets inside
// data pages are not checked.
func (h *Handle) Check(level CheckLevel) *CheckReport {
	report := &CheckReport{Level: level}

	var coveredPages uint32 = 1
	err := h.ChunkIterate(func(pageNum uint32, kind uint32, numPages uint32) bool {
		if pageNum != coveredPages {
			report.fail("chunk at page %d does not continue the chain (expected page %d)", pageNum, coveredPages)
		}
		if kind > mdbmfmt.ChunkDirectoryExtension {
			report.fail("page %d carries an unrecognized chunk type tag %d", pageNum, kind)
		}
		if numPages == 0 {
			report.fail("page %d reports a zero-page chunk span", pageNum)
		}
		coveredPages = pageNum + numPages
		return true
	})
	if err != nil {
		report.fail("chunk walk aborted: %v", err)
		return report
	}
	if coveredPages != h.hdr.PageCount() {
		report.fail("chunk chain covers %d pages, header reports page_count %d", coveredPages, h.hdr.PageCount())
	}

	if level < CheckFull {
		return report
	}

	dirCap := h.dir.Capacity()
	for slot := 0; slot < dirCap; slot++ {
		pageNum := h.dir.Slot(uint32(slot))
		if pageNum == 0 {
			continue
		}
		if pageNum >= h.hdr.PageCount() {
			report.fail("directory slot %d points at page %d, past page_count %d", slot, pageNum, h.hdr.PageCount())
			continue
		}
		headBuf, err := h.file.ChunkAt(pageNum, 1)
		if err != nil {
			report.fail("directory slot %d: %v", slot, err)
			continue
		}
		ch := mdbmfmt.ChunkHeader(headBuf[:mdbmfmt.ChunkHeaderSize])
		if ch.Type() != mdbmfmt.ChunkData && ch.Type() != mdbmfmt.ChunkOversizedData {
			report.fail("directory slot %d points at page %d, tagged %s instead of data", slot, pageNum, mdbmfmt.TypeName(ch.Type()))
		}
	}
	return report
}
