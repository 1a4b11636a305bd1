package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Reader is the byte source every record reads from. It tracks the absolute
// offset and turns short reads into ErrTruncatedInput.
type Reader struct {
	src     io.Reader
	seeker  io.Seeker
	br      *bufio.Reader
	offset  int64
	variant Variant

	maxRecordSize uint32
	decompressor  Decompressor
	strings       StringTable
	localized     bool

	scratch [8]byte
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxRecordSize overrides DefaultMaxRecordSize. Zero keeps the default.
func WithMaxRecordSize(n uint32) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxRecordSize = n
		}
	}
}

// WithDecompressor sets the collaborator used for compressed payloads.
func WithDecompressor(d Decompressor) ReaderOption {
	return func(r *Reader) { r.decompressor = d }
}

// WithStringTable sets the table used to resolve localized string IDs.
func WithStringTable(st StringTable) ReaderOption {
	return func(r *Reader) { r.strings = st }
}

// WithStartOffset sets the offset reported for the first byte read from a
// non-seekable source.
func WithStartOffset(off int64) ReaderOption {
	return func(r *Reader) { r.offset = off }
}

// NewReader wraps src. When src is also an io.Seeker, Skip seeks instead of
// discarding and offsets are taken from the source's current position.
func NewReader(src io.Reader, v Variant, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:           src,
		br:            bufio.NewReader(src),
		variant:       v,
		maxRecordSize: DefaultMaxRecordSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if s, ok := src.(io.Seeker); ok {
		if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
			r.seeker = s
			r.offset = pos
		}
	}
	return r
}

// Variant returns the layout the reader decodes.
func (r *Reader) Variant() Variant { return r.variant }

// Offset returns the absolute position of the next byte to be read.
func (r *Reader) Offset() int64 { return r.offset }

// MaxRecordSize returns the declared size cap.
func (r *Reader) MaxRecordSize() uint32 { return r.maxRecordSize }

// Decompressor returns the configured decompressor, or nil.
func (r *Reader) Decompressor() Decompressor { return r.decompressor }

// StringTable returns the configured string table, or nil.
func (r *Reader) StringTable() StringTable { return r.strings }

// Localized reports whether text subrecords hold string table IDs. The file
// walker sets it from the file header.
func (r *Reader) Localized() bool { return r.localized }

func (r *Reader) SetLocalized(on bool) { r.localized = on }

// Fields returns a payload scanner configured with the reader's variant and
// localization settings.
func (r *Reader) Fields(record Tag, payload []byte) *Fields {
	f := NewFields(record, r.variant, payload)
	f.Localized = r.localized
	f.Strings = r.strings
	return f
}

// AtEOF reports whether the source is exhausted.
func (r *Reader) AtEOF() (bool, error) {
	_, err := r.br.Peek(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// ReadFull fills p or fails with ErrTruncatedInput.
func (r *Reader) ReadFull(p []byte) error {
	n, err := io.ReadFull(r.br, p)
	r.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: wanted %d bytes, got %d", ErrTruncatedInput, len(p), n)
		}
		return err
	}
	return nil
}

// ReadBytes reads exactly n bytes into a new buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadStream reads n bytes, growing the buffer as data arrives, so a
// corrupt length fails on the short read rather than on allocation.
func (r *Reader) ReadStream(n int64) ([]byte, error) {
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.br, n)
	r.offset += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes, got %d", ErrTruncatedInput, n, copied)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.ReadFull(r.scratch[:1]); err != nil {
		return 0, err
	}
	return r.scratch[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.ReadFull(r.scratch[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.scratch[:2]), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.ReadFull(r.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.scratch[:4]), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.ReadFull(r.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.scratch[:8]), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	u, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// ReadTag reads a four character tag.
func (r *Reader) ReadTag() (Tag, error) {
	u, err := r.ReadUint32()
	return Tag(u), err
}

// Skip advances n bytes. Seekable sources are seeked, so skipped bytes are
// never read; other sources are drained.
func (r *Reader) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("skip: negative length %d", n)
	}
	if r.seeker != nil {
		end, err := r.seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		target := r.offset + n
		if target > end {
			target = end
		}
		if _, err := r.seeker.Seek(target, io.SeekStart); err != nil {
			return err
		}
		r.br.Reset(r.src)
		skipped := target - r.offset
		r.offset = target
		if skipped < n {
			return fmt.Errorf("%w: skip wanted %d bytes, got %d", ErrTruncatedInput, n, skipped)
		}
		return nil
	}

	skipped, err := io.CopyN(io.Discard, r.br, n)
	r.offset += skipped
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: skip wanted %d bytes, got %d", ErrTruncatedInput, n, skipped)
		}
		return err
	}
	return nil
}
