package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Writer is the byte sink records save to. The first write error is sticky:
// later writes are skipped and Err/Flush report it.
type Writer struct {
	bw         *bufio.Writer
	variant    Variant
	offset     int64
	err        error
	compressor Compressor

	scratch [8]byte
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressor sets the collaborator used to save typed records that carry
// the Compressed flag.
func WithCompressor(c Compressor) WriterOption {
	return func(w *Writer) { w.compressor = c }
}

// NewWriter wraps dst with a buffered writer.
func NewWriter(dst io.Writer, v Variant, opts ...WriterOption) *Writer {
	w := &Writer{bw: bufio.NewWriter(dst), variant: v}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Variant() Variant       { return w.variant }
func (w *Writer) Offset() int64          { return w.offset }
func (w *Writer) Err() error             { return w.err }
func (w *Writer) Compressor() Compressor { return w.compressor }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.bw.Write(p)
	w.offset += int64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}

func (w *Writer) WriteUint8(v uint8) {
	w.scratch[0] = v
	w.Write(w.scratch[:1])
}

func (w *Writer) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	w.Write(w.scratch[:2])
}

func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.Write(w.scratch[:4])
}

func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.scratch[:8], v)
	w.Write(w.scratch[:8])
}

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

func (w *Writer) WriteTag(t Tag) { w.WriteUint32(uint32(t)) }

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = err
	}
	return w.err
}

// FileWriter writes to a temporary file next to its target and only replaces
// the target on Commit.
type FileWriter struct {
	*Writer
	file      *os.File
	path      string
	committed bool
	closed    bool
}

// CreateFile opens an atomic writer for path.
func CreateFile(path string, v Variant, opts ...WriterOption) (*FileWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &FileWriter{
		Writer: NewWriter(f, v, opts...),
		file:   f,
		path:   path,
	}, nil
}

// Path returns the target path.
func (f *FileWriter) Path() string { return f.path }

// Commit flushes, syncs and renames the temporary file over the target.
func (f *FileWriter) Commit() error {
	if f.closed {
		return errors.New("file writer already closed")
	}
	if err := f.Flush(); err != nil {
		f.abort()
		return fmt.Errorf("failed to flush %s: %w", f.path, err)
	}
	if err := f.file.Sync(); err != nil {
		f.abort()
		return fmt.Errorf("failed to sync %s: %w", f.path, err)
	}
	if err := f.file.Close(); err != nil {
		f.closed = true
		os.Remove(f.file.Name())
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	f.closed = true
	if err := os.Rename(f.file.Name(), f.path); err != nil {
		os.Remove(f.file.Name())
		return fmt.Errorf("failed to rename into %s: %w", f.path, err)
	}
	f.committed = true
	return nil
}

// Close discards the temporary file unless Commit succeeded. It is safe to
// defer Close after a successful Commit.
func (f *FileWriter) Close() error {
	if f.closed {
		return nil
	}
	f.abort()
	return nil
}

func (f *FileWriter) abort() {
	f.closed = true
	f.file.Close()
	os.Remove(f.file.Name())
}
