// Package records defines the closed set of record kinds a data file can
// contain: typed records for the tags this module understands and Generic
// for everything else.
package records

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ssargent/esmkit/pkg/codec"
)

// Record is implemented by every record kind. The set is sealed: a type can
// only satisfy Record by embedding Base.
type Record interface {
	// Tag is the four character record type.
	Tag() codec.Tag
	// ID is the record's identity string (NAME or EDID). Records without
	// one return "".
	ID() string
	Variant() codec.Variant
	Envelope() *codec.Envelope
	// Load reads the record from r. The tag has already been consumed.
	Load(r *codec.Reader) error
	Save(w *codec.Writer) error
	Clone() Record

	base() *Base
}

// Base carries the envelope every record has and seals Record. Typed
// records also keep the payload they were read from so that Save can write
// it back unchanged.
type Base struct {
	Header codec.Envelope

	loaded     bool
	compressed bool   // Compressed flag at load time
	stored     []byte // payload as read, compressed when flagged
	plain      []byte // stored after decompression
	canon      []byte // field encoding right after load
	canonOK    bool
}

func (b *Base) Envelope() *codec.Envelope { return &b.Header }

func (b *Base) base() *Base { return b }

func (b *Base) forget() {
	*b = Base{Header: b.Header}
}

// original reports whether the current field encoding still matches the
// one taken at load time, so the stored payload can be written instead.
// ok is false when encoding failed.
func (b *Base) original(encoded []byte, ok bool) bool {
	if !b.loaded || b.compressed != b.Header.IsCompressed() {
		return false
	}
	if !ok || !b.canonOK {
		return ok == b.canonOK
	}
	return bytes.Equal(encoded, b.canon)
}

// FileHeader is implemented by the TES3 and TES4 file header records.
type FileHeader interface {
	Record
	MasterFiles() []string
	IsMasterFile() bool
	IsLocalized() bool
	RecordCount() int
	SetRecordCount(n int)
}

// Payload returns the uncompressed payload bytes Save writes for rec.
// Generic records and unmodified typed records return the bytes they were
// read from.
func Payload(rec Record) ([]byte, error) {
	switch r := rec.(type) {
	case *Generic:
		return r.Data(), nil
	case Typed:
		payload, err := encodeFields(r)
		if b := r.base(); b.original(payload, err == nil) {
			return b.plain, nil
		}
		return payload, err
	}
	return nil, fmt.Errorf("unsupported record type %T", rec)
}

// Equal reports whether a and b have the same tag, the same envelope and
// byte-identical payloads.
func Equal(a, b Record) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag() != b.Tag() || a.Variant() != b.Variant() || *a.Envelope() != *b.Envelope() {
		return false
	}
	ga, aGeneric := a.(*Generic)
	gb, bGeneric := b.(*Generic)
	if aGeneric != bGeneric {
		return false
	}
	if aGeneric {
		return ga.Equal(gb)
	}
	pa, err := Payload(a)
	if err != nil {
		return false
	}
	pb, err := Payload(b)
	if err != nil {
		return false
	}
	return bytes.Equal(pa, pb)
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// TotalWrittenSize returns the number of bytes Save writes for rec,
// header included.
func TotalWrittenSize(rec Record) (int, error) {
	if g, ok := rec.(*Generic); ok {
		return codec.TotalWrittenSize(g.Variant(), g.Size()), nil
	}
	var c countingWriter
	w := codec.NewWriter(&c, rec.Variant(), codec.WithCompressor(codec.ZlibCodec{}))
	if err := rec.Save(w); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return int(c.n), nil
}

// Encode saves rec to a byte slice.
func Encode(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo saves rec to dst using a zlib compressor for compressed typed
// records.
func WriteTo(dst io.Writer, rec Record) error {
	w := codec.NewWriter(dst, rec.Variant(), codec.WithCompressor(codec.ZlibCodec{}))
	if err := rec.Save(w); err != nil {
		return err
	}
	return w.Flush()
}
