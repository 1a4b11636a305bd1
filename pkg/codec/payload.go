package codec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// PayloadWriter builds a record payload one subrecord at a time using the
// variant's subrecord framing.
type PayloadWriter struct {
	buf bytes.Buffer
	w   *Writer
	err error
}

// NewPayloadWriter returns an empty payload builder for v.
func NewPayloadWriter(v Variant) *PayloadWriter {
	p := &PayloadWriter{}
	p.w = NewWriter(&p.buf, v)
	return p
}

// Bytes appends a raw subrecord.
func (p *PayloadWriter) Bytes(t Tag, data []byte) {
	if p.err != nil {
		return
	}
	writeSubrecord(p.w, t, data)
}

// SubRecord appends a container's payload; absent containers are skipped.
func (p *PayloadWriter) SubRecord(t Tag, s *SubRecord) {
	if s == nil || !s.IsPresent() {
		return
	}
	p.Bytes(t, s.Data())
}

// String appends s encoded as Windows-1252 with a NUL terminator.
func (p *PayloadWriter) String(t Tag, s string) {
	if p.err != nil {
		return
	}
	enc, err := EncodeString(s)
	if err != nil {
		p.err = err
		return
	}
	p.Bytes(t, append(enc, 0))
}

func (p *PayloadWriter) Uint8(t Tag, v uint8) { p.Bytes(t, []byte{v}) }

func (p *PayloadWriter) Uint16(t Tag, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	p.Bytes(t, b[:])
}

func (p *PayloadWriter) Uint32(t Tag, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	p.Bytes(t, b[:])
}

func (p *PayloadWriter) Int32(t Tag, v int32) { p.Uint32(t, uint32(v)) }

func (p *PayloadWriter) Float32(t Tag, v float32) { p.Uint32(t, math.Float32bits(v)) }

func (p *PayloadWriter) Uint64(t Tag, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	p.Bytes(t, b[:])
}

// LocalizedString appends either the string table ID or the inline string.
func (p *PayloadWriter) LocalizedString(t Tag, localized bool, id uint32, s string) {
	if localized {
		p.Uint32(t, id)
		return
	}
	p.String(t, s)
}

// Payload returns the accumulated bytes or the first error.
func (p *PayloadWriter) Payload() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.w.Flush(); err != nil {
		return nil, err
	}
	return p.buf.Bytes(), nil
}
