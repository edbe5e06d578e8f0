// Dump/restore implements the serialization group
// (dbdump_export_header/dbdump_to_file/dbdump_add_record/
// dbdump_trailer_and_close and the import-side mirror). The textual
// dbdump/cdbdump wire conventions themselves are formats specified by
// external tools that the core only needs to feed a visitor; this package
// implements that visitor mechanics plus the optional save/restore
// compression the `save(path, flags, mode, compression)` call names, using
// a length-prefixed binary record instead of the textual hex-escape format
// since that format's exact escaping rules belong to the dump/restore
// command-line tool, out of scope here.
package mdbm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/nainya/mdbmgo/pkg/backingstore"
)

// DumpWriter streams {key,val} records through a zstd encoder, grounded on
// the example pack's zstd.NewWriter usage for on-the-wire compression.
type DumpWriter struct {
	enc *zstd.Encoder
}

// NewDumpWriter wraps w; Close must be called to flush the zstd frame.
func NewDumpWriter(w io.Writer) (*DumpWriter, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("dump: open compressor: %w", err)
	}
	return &DumpWriter{enc: enc}, nil
}

// WriteRecord appends one {key,val} record: a uint32 length prefix for each
// of key and val, per dbdump_add_record.
func (dw *DumpWriter) WriteRecord(key, val []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(key)))
	if _, err := dw.enc.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := dw.enc.Write(key); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(val)))
	if _, err := dw.enc.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := dw.enc.Write(val)
	return err
}

// Close flushes and closes the underlying zstd frame (dbdump_trailer_and_close).
func (dw *DumpWriter) Close() error { return dw.enc.Close() }

// DumpReader is the import-side mirror of DumpWriter.
type DumpReader struct {
	dec *zstd.Decoder
}

// NewDumpReader wraps r; the returned reader must eventually have its
// decoder released via Close.
func NewDumpReader(r io.Reader) (*DumpReader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("restore: open decompressor: %w", err)
	}
	return &DumpReader{dec: dec}, nil
}

// ReadRecord returns the next {key,val} pair, or io.EOF once the stream is
// exhausted.
func (dr *DumpReader) ReadRecord() (key, val []byte, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(dr.dec, lenBuf[:]); err != nil {
		return nil, nil, err
	}
	klen := binary.LittleEndian.Uint32(lenBuf[:])
	key = make([]byte, klen)
	if _, err := io.ReadFull(dr.dec, key); err != nil {
		return nil, nil, fmt.Errorf("restore: truncated key: %w", err)
	}

	if _, err := io.ReadFull(dr.dec, lenBuf[:]); err != nil {
		return nil, nil, fmt.Errorf("restore: truncated value length: %w", err)
	}
	vlen := binary.LittleEndian.Uint32(lenBuf[:])
	val = make([]byte, vlen)
	if _, err := io.ReadFull(dr.dec, val); err != nil {
		return nil, nil, fmt.Errorf("restore: truncated value: %w", err)
	}
	return key, val, nil
}

// Close releases the decoder's resources.
func (dr *DumpReader) Close() error {
	dr.dec.Close()
	return nil
}

// Save writes every live entry to w in dump order; restore(save(D))
// preserves the entry multiset.
func (h *Handle) Save(w io.Writer) error {
	dw, err := NewDumpWriter(w)
	if err != nil {
		return err
	}

	cur, key, val, ok := h.First(false)
	for ok {
		if err := dw.WriteRecord(key, val); err != nil {
			dw.Close()
			return fmt.Errorf("save: write record: %w", err)
		}
		cur, key, val, ok = h.Next(cur, false)
	}
	return dw.Close()
}

// Restore reads a stream produced by Save into h, using StoreFlag Replace
// so a restore into a non-empty database behaves like a bulk upsert.
func (h *Handle) Restore(r io.Reader) error {
	dr, err := NewDumpReader(r)
	if err != nil {
		return err
	}
	defer dr.Close()

	for {
		key, val, err := dr.ReadRecord()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := h.Store(key, val, backingstore.Replace); err != nil {
			return fmt.Errorf("restore: store %q: %w", key, err)
		}
	}
}
