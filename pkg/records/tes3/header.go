package tes3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

const (
	hedrSize        = 300
	companySize     = 32
	descriptionSize = 256

	// MinHeaderSize is the smallest valid TES3 payload: HEDR plus its
	// subrecord header.
	MinHeaderSize = hedrSize + 8
)

// Master names a file this file depends on, with the size it had when the
// dependency was recorded.
type Master struct {
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// Header is the TES3 file header record.
type Header struct {
	records.Base
	Version     float32
	FileFlag    uint32
	Company     string
	Description string
	NumRecords  uint32
	Masters     []Master
}

// NewHeader returns a header for a new plugin.
func NewHeader() *Header {
	return &Header{Version: 1.3}
}

func (h *Header) Tag() codec.Tag         { return codec.TagTES3 }
func (h *Header) ID() string             { return "" }
func (h *Header) Variant() codec.Variant { return codec.TES3 }

func (h *Header) Load(r *codec.Reader) error { return records.LoadTyped(r, h) }
func (h *Header) Save(w *codec.Writer) error { return records.SaveTyped(w, h) }

func (h *Header) Clone() records.Record {
	c := *h
	c.Masters = append([]Master(nil), h.Masters...)
	return &c
}

func (h *Header) MasterFiles() []string {
	names := make([]string, len(h.Masters))
	for i, m := range h.Masters {
		names[i] = m.Name
	}
	return names
}

func (h *Header) IsMasterFile() bool   { return h.FileFlag&codec.FlagMaster != 0 }
func (h *Header) IsLocalized() bool    { return false }
func (h *Header) RecordCount() int     { return int(h.NumRecords) }
func (h *Header) SetRecordCount(n int) { h.NumRecords = uint32(n) }

func (h *Header) DecodeFields(f *codec.Fields) error {
	*h = Header{Base: h.Base}
	if f.Remaining() < MinHeaderSize {
		return fmt.Errorf("%s: %w: payload of %d bytes is shorter than %d", h.Tag(), codec.ErrTruncatedInput, f.Remaining(), MinHeaderSize)
	}
	hedr, err := f.Expect(codec.TagHEDR)
	if err != nil {
		return err
	}
	if len(hedr.Data) != hedrSize {
		return &codec.FieldSizeError{Record: h.Tag(), Sub: codec.TagHEDR, Want: hedrSize, Got: len(hedr.Data)}
	}
	d := hedr.Data
	h.Version = math.Float32frombits(binary.LittleEndian.Uint32(d[0:]))
	h.FileFlag = binary.LittleEndian.Uint32(d[4:])
	if h.Company, err = fixedString(d[8 : 8+companySize]); err != nil {
		return err
	}
	if h.Description, err = fixedString(d[8+companySize : 8+companySize+descriptionSize]); err != nil {
		return err
	}
	h.NumRecords = binary.LittleEndian.Uint32(d[296:])

	for {
		mast, ok, err := f.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if mast.Tag != codec.TagMAST {
			return f.Unexpected(mast)
		}
		var m Master
		if m.Name, err = mast.Text(); err != nil {
			return err
		}
		data, err := f.Expect(codec.TagDATA)
		if err != nil {
			return err
		}
		if m.Size, err = data.Uint64(); err != nil {
			return err
		}
		h.Masters = append(h.Masters, m)
	}
}

func (h *Header) EncodeFields(p *codec.PayloadWriter) error {
	hedr := make([]byte, hedrSize)
	binary.LittleEndian.PutUint32(hedr[0:], math.Float32bits(h.Version))
	binary.LittleEndian.PutUint32(hedr[4:], h.FileFlag)
	if err := putFixedString(hedr[8:8+companySize], h.Company); err != nil {
		return err
	}
	if err := putFixedString(hedr[8+companySize:8+companySize+descriptionSize], h.Description); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(hedr[296:], h.NumRecords)
	p.Bytes(codec.TagHEDR, hedr)

	for _, m := range h.Masters {
		p.String(codec.TagMAST, m.Name)
		p.Uint64(codec.TagDATA, m.Size)
	}
	return nil
}

func fixedString(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return codec.DecodeString(b)
}

func putFixedString(dst []byte, s string) error {
	enc, err := codec.EncodeString(s)
	if err != nil {
		return err
	}
	if len(enc) > len(dst) {
		return fmt.Errorf("%q is longer than %d bytes", s, len(dst))
	}
	copy(dst, enc)
	return nil
}
