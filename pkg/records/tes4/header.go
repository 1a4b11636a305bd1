package tes4

import (
	"encoding/binary"
	"math"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

const hedrSize = 12

// Master names a file this file depends on. Size is kept for
// compatibility and is usually zero. NoData is set when the MAST was not
// followed by a DATA subrecord.
type Master struct {
	Name   string `json:"name"`
	Size   uint64 `json:"size"`
	NoData bool   `json:"no_data,omitempty"`
}

// Header is the TES4 file header record.
type Header struct {
	records.Base
	Version             float32
	NumRecordsAndGroups uint32
	NextObjectID        uint32
	Author              string
	Description         string
	HasDescription      bool // SNAM present, possibly empty
	Masters             []Master
	Overrides           codec.SubRecord // ONAM
	InternalVersion     uint32
	HasInternalVersion  bool
	IncompleteCount     uint32
	HasIncompleteCount  bool
}

// NewHeader returns a header for a new plugin.
func NewHeader() *Header {
	return &Header{Version: 1.7, NextObjectID: 0x800, InternalVersion: 44, HasInternalVersion: true}
}

func (h *Header) Tag() codec.Tag         { return codec.TagTES4 }
func (h *Header) ID() string             { return "" }
func (h *Header) Variant() codec.Variant { return codec.TES4 }

func (h *Header) Load(r *codec.Reader) error { return records.LoadTyped(r, h) }
func (h *Header) Save(w *codec.Writer) error { return records.SaveTyped(w, h) }

func (h *Header) Clone() records.Record {
	c := *h
	c.Masters = append([]Master(nil), h.Masters...)
	c.Overrides = *h.Overrides.Clone()
	return &c
}

func (h *Header) MasterFiles() []string {
	names := make([]string, len(h.Masters))
	for i, m := range h.Masters {
		names[i] = m.Name
	}
	return names
}

func (h *Header) IsMasterFile() bool   { return h.Header.Flags&codec.FlagMaster != 0 }
func (h *Header) IsLocalized() bool    { return h.Header.Flags&codec.FlagLocalized != 0 }
func (h *Header) RecordCount() int     { return int(h.NumRecordsAndGroups) }
func (h *Header) SetRecordCount(n int) { h.NumRecordsAndGroups = uint32(n) }

func (h *Header) DecodeFields(f *codec.Fields) error {
	*h = Header{Base: h.Base}
	hedr, err := f.Expect(codec.TagHEDR)
	if err != nil {
		return err
	}
	if len(hedr.Data) != hedrSize {
		return &codec.FieldSizeError{Record: h.Tag(), Sub: codec.TagHEDR, Want: hedrSize, Got: len(hedr.Data)}
	}
	h.Version = math.Float32frombits(binary.LittleEndian.Uint32(hedr.Data[0:]))
	h.NumRecordsAndGroups = binary.LittleEndian.Uint32(hedr.Data[4:])
	h.NextObjectID = binary.LittleEndian.Uint32(hedr.Data[8:])

	for {
		fld, ok, err := f.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch fld.Tag {
		case codec.TagCNAM:
			if err = f.Once(fld.Tag); err == nil {
				h.Author, err = fld.Text()
			}
		case codec.TagSNAM:
			if err = f.Once(fld.Tag); err == nil {
				h.Description, err = fld.Text()
				h.HasDescription = true
			}
		case codec.TagMAST:
			var m Master
			if m.Name, err = fld.Text(); err != nil {
				return err
			}
			// DATA after MAST is optional in some tools' output
			m.NoData = true
			if next, ok := f.Peek(); ok && next == codec.TagDATA {
				m.NoData = false
				data, err := f.Expect(codec.TagDATA)
				if err != nil {
					return err
				}
				if m.Size, err = data.Uint64(); err != nil {
					return err
				}
			}
			h.Masters = append(h.Masters, m)
		case codec.TagONAM:
			if err = f.Once(fld.Tag); err == nil {
				h.Overrides.SetData(fld.Data)
			}
		case codec.TagINTV:
			if err = f.Once(fld.Tag); err == nil {
				h.InternalVersion, err = fld.Uint32()
				h.HasInternalVersion = true
			}
		case codec.TagINCC:
			if err = f.Once(fld.Tag); err == nil {
				h.IncompleteCount, err = fld.Uint32()
				h.HasIncompleteCount = true
			}
		default:
			err = f.Unexpected(fld)
		}
		if err != nil {
			return err
		}
	}
	return f.Require(codec.TagCNAM)
}

func (h *Header) EncodeFields(p *codec.PayloadWriter) error {
	hedr := make([]byte, hedrSize)
	binary.LittleEndian.PutUint32(hedr[0:], math.Float32bits(h.Version))
	binary.LittleEndian.PutUint32(hedr[4:], h.NumRecordsAndGroups)
	binary.LittleEndian.PutUint32(hedr[8:], h.NextObjectID)
	p.Bytes(codec.TagHEDR, hedr)

	p.String(codec.TagCNAM, h.Author)
	if h.HasDescription || h.Description != "" {
		p.String(codec.TagSNAM, h.Description)
	}
	for _, m := range h.Masters {
		p.String(codec.TagMAST, m.Name)
		if !m.NoData {
			p.Uint64(codec.TagDATA, m.Size)
		}
	}
	p.SubRecord(codec.TagONAM, &h.Overrides)
	if h.HasInternalVersion {
		p.Uint32(codec.TagINTV, h.InternalVersion)
	}
	if h.HasIncompleteCount {
		p.Uint32(codec.TagINCC, h.IncompleteCount)
	}
	return nil
}
