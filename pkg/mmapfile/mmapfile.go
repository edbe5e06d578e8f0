// Package mmapfile implements the mapping layer: it opens the backing file,
// maps it into the process, grows it in place, and serves byte-range access
// to pages by page number. It is grounded on the
// syscall-based mmap handling in pkg/storage/kv.go (createFileSync,
// extendMmap, pageRead/pageAppend via syscall.Mmap/Pwrite/Fsync), generalized
// from a single B+Tree page size into an arbitrary page-size, multi-chunk
// store, and extended with a windowed mapping mode for files too large to
// map in full.
package mmapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/nainya/mdbmgo/pkg/mdbmerr"
)

// initial full-map mmap reservation; grown geometrically like the
// extendMmap helper it's grounded on.
const initialMapSize = 64 << 20

// defaultWindowPages is the sliding-window size, in pages, used when no
// explicit window is requested via SetWindowSize.
const defaultWindowPages = 4096

// Mode selects the mapping strategy.
type Mode int

const (
	// FullMap maps the entire file; growth truncates the file and
	// extends the mmap.
	FullMap Mode = iota
	// WindowedMap keeps only a caller-sized sliding window mapped;
	// accesses outside the window trigger a remap. Requires read-write
	// access, since remapping mutates per-handle state.
	WindowedMap
)

// File is the mapping layer over one backing file.
type File struct {
	mu sync.Mutex

	path     string
	fd       int
	readOnly bool
	pageSize int

	mode Mode

	// full-map state
	total  int      // bytes currently reserved by mmap
	chunks [][]byte // mmap'd regions, concatenated logically

	// windowed-map state
	windowPages  int
	windowStart  int64 // page number the window begins at
	windowBytes  []byte
	sysPageSize  int

	pageCount uint32 // logical page count (grows independently of mmap reservation)
}

// Open opens or creates path and prepares the mapping layer. create controls
// whether O_CREATE is passed; readOnly maps with PROT_READ only.
func Open(path string, create, readOnly bool, pageSize int, mode Mode) (*File, error) {
	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}
	if create {
		flags |= os.O_CREATE
	}

	fd, err := createFileSync(path, flags)
	if err != nil {
		return nil, mdbmerr.Wrap(mdbmerr.KindIO, "open", "open backing file", err)
	}

	var stat syscall.Stat_t
	if err := syscall.Fstat(fd, &stat); err != nil {
		syscall.Close(fd)
		return nil, mdbmerr.Wrap(mdbmerr.KindIO, "open", "fstat backing file", err)
	}

	f := &File{
		path:        path,
		fd:          fd,
		readOnly:    readOnly,
		pageSize:    pageSize,
		mode:        mode,
		windowPages: defaultWindowPages,
		sysPageSize: os.Getpagesize(),
	}

	if mode == WindowedMap && readOnly {
		syscall.Close(fd)
		return nil, mdbmerr.Invalid("open", "windowed mode requires read-write access")
	}

	if stat.Size > 0 {
		f.pageCount = uint32(stat.Size / int64(pageSize))
		if mode == FullMap {
			if err := f.mapFull(int(stat.Size)); err != nil {
				syscall.Close(fd)
				return nil, err
			}
		}
	}

	return f, nil
}

// PageSize returns the configured page size.
func (f *File) PageSize() int { return f.pageSize }

// PageCount returns the current logical page count.
func (f *File) PageCount() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCount
}

// SetWindowSize sets the sliding-window size, in pages, for windowed mode.
func (f *File) SetWindowSize(pages int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windowPages = pages
}

// ChunkAt returns a byte slice covering numPages pages starting at page,
// faulting in mapped memory as needed. The slice aliases the mapping; writes
// through it are visible to the file only after Sync/SyncRange.
func (f *File) ChunkAt(page uint32, numPages int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	end := uint64(page) + uint64(numPages)
	if end > uint64(f.pageCount) {
		return nil, mdbmerr.OutOfRange("chunk_at", page)
	}

	switch f.mode {
	case FullMap:
		return f.chunkAtFull(page, numPages)
	default:
		return f.chunkAtWindowed(page, numPages)
	}
}

func (f *File) chunkAtFull(page uint32, numPages int) ([]byte, error) {
	start := uint64(0)
	for _, chunk := range f.chunks {
		pagesInChunk := uint64(len(chunk)) / uint64(f.pageSize)
		chunkEnd := start + pagesInChunk
		if uint64(page) >= start && uint64(page)+uint64(numPages) <= chunkEnd {
			offset := uint64(f.pageSize) * (uint64(page) - start)
			length := uint64(f.pageSize) * uint64(numPages)
			return chunk[offset : offset+length], nil
		}
		start = chunkEnd
	}
	return nil, mdbmerr.OutOfRange("chunk_at", page)
}

func (f *File) chunkAtWindowed(page uint32, numPages int) ([]byte, error) {
	needEnd := int64(page) + int64(numPages)
	haveWindow := f.windowBytes != nil &&
		int64(page) >= f.windowStart &&
		needEnd <= f.windowStart+int64(len(f.windowBytes))/int64(f.pageSize)

	if !haveWindow {
		if err := f.remapWindow(int64(page), numPages); err != nil {
			return nil, err
		}
	}

	offset := (int64(page) - f.windowStart) * int64(f.pageSize)
	length := int64(numPages) * int64(f.pageSize)
	return f.windowBytes[offset : offset+length], nil
}

// remapWindow aligns a window of at least windowPages pages, covering
// [page, page+numPages), on a system-page-size boundary and maps it.
func (f *File) remapWindow(page int64, numPages int) error {
	if f.windowBytes != nil {
		syscall.Munmap(f.windowBytes)
		f.windowBytes = nil
	}

	win := f.windowPages
	if numPages > win {
		win = numPages
	}

	// Start the window at the requested page, aligned down to the host
	// page size so the mmap offset is legal, and stretch it when that
	// alignment would otherwise leave part of the requested range uncovered.
	bytesPerSysPage := int64(f.sysPageSize)
	startByte := page * int64(f.pageSize)
	startByte -= startByte % bytesPerSysPage

	length := int64(win) * int64(f.pageSize)
	if need := (page+int64(numPages))*int64(f.pageSize) - startByte; need > length {
		length = need
	}
	maxByte := int64(f.pageCount) * int64(f.pageSize)
	if startByte+length > maxByte {
		length = maxByte - startByte
	}

	prot := syscall.PROT_READ | syscall.PROT_WRITE
	chunk, err := syscall.Mmap(f.fd, startByte, int(length), prot, syscall.MAP_SHARED)
	if err != nil {
		return mdbmerr.MapFailed("chunk_at", err)
	}

	f.windowBytes = chunk
	f.windowStart = startByte / int64(f.pageSize)
	return nil
}

// GrowTo extends the file (and, for full-map mode, the mapping) so that at
// least pageCount pages are addressable. Growth only ever happens under the
// caller's exclusive header lock.
func (f *File) GrowTo(pageCount uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pageCount <= f.pageCount {
		return nil
	}

	newSize := int64(pageCount) * int64(f.pageSize)
	if err := syscall.Ftruncate(f.fd, newSize); err != nil {
		return mdbmerr.NoSpace("grow_to", err)
	}

	f.pageCount = pageCount

	if f.mode == FullMap {
		return f.mapFull(int(newSize))
	}
	return nil
}

func (f *File) mapFull(size int) error {
	if size <= f.total {
		return nil
	}

	alloc := f.total
	if alloc == 0 {
		alloc = initialMapSize
	}
	for f.total+alloc < size {
		alloc *= 2
	}

	prot := syscall.PROT_READ
	if !f.readOnly {
		prot |= syscall.PROT_WRITE
	}

	chunk, err := syscall.Mmap(f.fd, int64(f.total), alloc, prot, syscall.MAP_SHARED)
	if err != nil {
		return mdbmerr.MapFailed("grow_to", err)
	}

	f.total += alloc
	f.chunks = append(f.chunks, chunk)
	return nil
}

// Sync flushes all dirty pages to disk (fsync).
func (f *File) Sync() error {
	if err := syscall.Fsync(f.fd); err != nil {
		return mdbmerr.Wrap(mdbmerr.KindIO, "sync", "fsync", err)
	}
	return nil
}

// SyncRange flushes just a byte range; on platforms without a ranged flush
// primitive this degrades to a full fsync.
func (f *File) SyncRange(offset, length int64) error {
	return f.Sync()
}

// Preload walks every page to fault it into memory, used by replace --preload
// to make a newly built image resident before an atomic swap.
func (f *File) Preload() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sum byte
	for _, chunk := range f.chunks {
		for off := 0; off < len(chunk); off += f.sysPageSize {
			sum += chunk[off]
		}
	}
	_ = sum
	return nil
}

// WriteAt writes raw bytes at a byte offset, bypassing the mmap (used for
// meta-page / header writes that must be durable independent of the mapped
// view).
func (f *File) WriteAt(data []byte, offset int64) error {
	if _, err := syscall.Pwrite(f.fd, data, offset); err != nil {
		return mdbmerr.Wrap(mdbmerr.KindIO, "write_at", "pwrite", err)
	}
	return nil
}

// Close unmaps every region and closes the file descriptor.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, chunk := range f.chunks {
		syscall.Munmap(chunk)
	}
	if f.windowBytes != nil {
		syscall.Munmap(f.windowBytes)
	}
	return syscall.Close(f.fd)
}

// Path returns the canonical path this mapping was opened against.
func (f *File) Path() string { return f.path }

func createFileSync(file string, flags int) (int, error) {
	fd, err := syscall.Open(file, flags, 0o644)
	if err != nil {
		return -1, fmt.Errorf("open file: %w", err)
	}

	dirfd, err := syscall.Open(filepath.Dir(file), os.O_RDONLY, 0)
	if err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("open directory: %w", err)
	}
	defer syscall.Close(dirfd)

	if err := syscall.Fsync(dirfd); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("fsync directory: %w", err)
	}

	return fd, nil
}
