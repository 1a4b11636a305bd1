package tes4

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Registry returns the typed records of the TES4 layout.
func Registry() *records.Registry {
	reg := records.NewRegistry(codec.TES4)
	reg.Register(codec.TagTES4, func() records.Record { return NewHeader() })
	reg.Register(codec.TagGLOB, func() records.Record { return &Global{} })
	reg.Register(codec.TagKYWD, func() records.Record { return &Keyword{} })
	reg.Register(codec.TagAACT, func() records.Record { return &Action{} })
	reg.Register(codec.TagMISC, func() records.Record { return &MiscObject{} })
	return reg
}

// Global is a GLOB record. FNAM holds the type character ('s', 'l' or
// 'f'); the value is always stored as a float.
type Global struct {
	records.Base
	EditorID string
	Type     byte
	Value    float32
}

func (g *Global) Tag() codec.Tag         { return codec.TagGLOB }
func (g *Global) ID() string             { return g.EditorID }
func (g *Global) Variant() codec.Variant { return codec.TES4 }

func (g *Global) Load(r *codec.Reader) error { return records.LoadTyped(r, g) }
func (g *Global) Save(w *codec.Writer) error { return records.SaveTyped(w, g) }

func (g *Global) Clone() records.Record {
	c := *g
	return &c
}

func (g *Global) DecodeFields(f *codec.Fields) error {
	*g = Global{Base: g.Base}
	edid, err := f.Expect(codec.TagEDID)
	if err != nil {
		return err
	}
	if g.EditorID, err = edid.Text(); err != nil {
		return err
	}
	fnam, err := f.Expect(codec.TagFNAM)
	if err != nil {
		return err
	}
	if g.Type, err = fnam.Uint8(); err != nil {
		return err
	}
	switch g.Type {
	case 's', 'l', 'f':
	default:
		return fmt.Errorf("%s: %w: FNAM %q", g.Tag(), codec.ErrInvalidValue, g.Type)
	}
	fltv, err := f.Expect(codec.TagFLTV)
	if err != nil {
		return err
	}
	if g.Value, err = fltv.Float32(); err != nil {
		return err
	}
	if fld, ok, err := f.Next(); err != nil {
		return err
	} else if ok {
		return f.Unexpected(fld)
	}
	return nil
}

func (g *Global) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagEDID, g.EditorID)
	p.Uint8(codec.TagFNAM, g.Type)
	p.Float32(codec.TagFLTV, g.Value)
	return nil
}

// colored is the shared layout of KYWD and AACT: EDID plus an optional
// CNAM RGBA color.
type colored struct {
	EditorID string
	Color    uint32
	HasColor bool
}

func (c *colored) decode(f *codec.Fields) error {
	*c = colored{}
	edid, err := f.Expect(codec.TagEDID)
	if err != nil {
		return err
	}
	if c.EditorID, err = edid.Text(); err != nil {
		return err
	}
	for {
		fld, ok, err := f.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if fld.Tag != codec.TagCNAM {
			return f.Unexpected(fld)
		}
		if err := f.Once(fld.Tag); err != nil {
			return err
		}
		if c.Color, err = fld.Uint32(); err != nil {
			return err
		}
		c.HasColor = true
	}
}

func (c *colored) encode(p *codec.PayloadWriter) {
	p.String(codec.TagEDID, c.EditorID)
	if c.HasColor {
		p.Uint32(codec.TagCNAM, c.Color)
	}
}

// Keyword is a KYWD record.
type Keyword struct {
	records.Base
	colored
}

func (k *Keyword) Tag() codec.Tag         { return codec.TagKYWD }
func (k *Keyword) ID() string             { return k.EditorID }
func (k *Keyword) Variant() codec.Variant { return codec.TES4 }

func (k *Keyword) Load(r *codec.Reader) error { return records.LoadTyped(r, k) }
func (k *Keyword) Save(w *codec.Writer) error { return records.SaveTyped(w, k) }

func (k *Keyword) Clone() records.Record {
	c := *k
	return &c
}

func (k *Keyword) DecodeFields(f *codec.Fields) error { return k.decode(f) }

func (k *Keyword) EncodeFields(p *codec.PayloadWriter) error {
	k.encode(p)
	return nil
}

// Action is an AACT record.
type Action struct {
	records.Base
	colored
}

func (a *Action) Tag() codec.Tag         { return codec.TagAACT }
func (a *Action) ID() string             { return a.EditorID }
func (a *Action) Variant() codec.Variant { return codec.TES4 }

func (a *Action) Load(r *codec.Reader) error { return records.LoadTyped(r, a) }
func (a *Action) Save(w *codec.Writer) error { return records.SaveTyped(w, a) }

func (a *Action) Clone() records.Record {
	c := *a
	return &c
}

func (a *Action) DecodeFields(f *codec.Fields) error { return a.decode(f) }

func (a *Action) EncodeFields(p *codec.PayloadWriter) error {
	a.encode(p)
	return nil
}

// Bounds is an OBND object bounds box.
type Bounds struct {
	X1, Y1, Z1 int16
	X2, Y2, Z2 int16
}

func (b *Bounds) decode(fld codec.Field) error {
	if len(fld.Data) != 12 {
		return &codec.FieldSizeError{Record: codec.TagMISC, Sub: fld.Tag, Want: 12, Got: len(fld.Data)}
	}
	v := func(i int) int16 { return int16(binary.LittleEndian.Uint16(fld.Data[2*i:])) }
	*b = Bounds{v(0), v(1), v(2), v(3), v(4), v(5)}
	return nil
}

func (b Bounds) encode() []byte {
	out := make([]byte, 12)
	for i, v := range []int16{b.X1, b.Y1, b.Z1, b.X2, b.Y2, b.Z2} {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

// MiscObject is a MISC record.
type MiscObject struct {
	records.Base
	EditorID string
	Scripts  codec.SubRecord // VMAD, kept opaque
	Bounds   Bounds

	// Localized is copied from the owning file's header. When set, the name
	// is stored as NameID and Name is resolved through the string table.
	Localized bool
	Name      string
	NameID    uint32
	HasName   bool

	Model       string
	ModelData   codec.SubRecord // MODT
	ModelSwaps  codec.SubRecord // MODS
	Icon        string
	PickUpSound uint32          // YNAM form ID, zero when absent
	DropSound   uint32          // ZNAM form ID, zero when absent
	Keywords    []uint32
	Value       uint32
	Weight      float32
}

func (m *MiscObject) Tag() codec.Tag         { return codec.TagMISC }
func (m *MiscObject) ID() string             { return m.EditorID }
func (m *MiscObject) Variant() codec.Variant { return codec.TES4 }

func (m *MiscObject) Load(r *codec.Reader) error { return records.LoadTyped(r, m) }
func (m *MiscObject) Save(w *codec.Writer) error { return records.SaveTyped(w, m) }

func (m *MiscObject) Clone() records.Record {
	c := *m
	c.Scripts = *m.Scripts.Clone()
	c.ModelData = *m.ModelData.Clone()
	c.ModelSwaps = *m.ModelSwaps.Clone()
	c.Keywords = append([]uint32(nil), m.Keywords...)
	return &c
}

var (
	tagVMAD = codec.MustParseTag("VMAD")
	tagMODT = codec.MustParseTag("MODT")
	tagMODS = codec.MustParseTag("MODS")
	tagICON = codec.MustParseTag("ICON")
	tagYNAM = codec.MustParseTag("YNAM")
	tagZNAM = codec.MustParseTag("ZNAM")
	tagKSIZ = codec.MustParseTag("KSIZ")
	tagKWDA = codec.MustParseTag("KWDA")
)

func (m *MiscObject) DecodeFields(f *codec.Fields) error {
	*m = MiscObject{Base: m.Base, Localized: f.Localized}
	edid, err := f.Expect(codec.TagEDID)
	if err != nil {
		return err
	}
	if m.EditorID, err = edid.Text(); err != nil {
		return err
	}
	keywordCount := -1
	for {
		fld, ok, err := f.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if fld.Tag != tagKWDA {
			if err := f.Once(fld.Tag); err != nil {
				return err
			}
		}
		switch fld.Tag {
		case tagVMAD:
			m.Scripts.SetData(fld.Data)
		case codec.TagOBND:
			err = m.Bounds.decode(fld)
		case codec.TagFULL:
			m.Name, m.NameID, err = f.LocalizedString(fld)
			m.HasName = true
		case codec.TagMODL:
			m.Model, err = fld.Text()
		case tagMODT:
			m.ModelData.SetData(fld.Data)
		case tagMODS:
			m.ModelSwaps.SetData(fld.Data)
		case tagICON:
			m.Icon, err = fld.Text()
		case tagYNAM:
			m.PickUpSound, err = fld.Uint32()
		case tagZNAM:
			m.DropSound, err = fld.Uint32()
		case tagKSIZ:
			var n uint32
			n, err = fld.Uint32()
			keywordCount = int(n)
		case tagKWDA:
			if keywordCount < 0 {
				return &codec.MissingError{Record: m.Tag(), Sub: tagKSIZ}
			}
			if err = f.Once(fld.Tag); err != nil {
				break
			}
			if len(fld.Data) != 4*keywordCount {
				err = &codec.FieldSizeError{Record: m.Tag(), Sub: fld.Tag, Want: 4 * keywordCount, Got: len(fld.Data)}
				break
			}
			m.Keywords = make([]uint32, keywordCount)
			for i := range m.Keywords {
				m.Keywords[i] = binary.LittleEndian.Uint32(fld.Data[4*i:])
			}
		case codec.TagDATA:
			if len(fld.Data) != 8 {
				err = &codec.FieldSizeError{Record: m.Tag(), Sub: fld.Tag, Want: 8, Got: len(fld.Data)}
				break
			}
			m.Value = binary.LittleEndian.Uint32(fld.Data)
			m.Weight = math.Float32frombits(binary.LittleEndian.Uint32(fld.Data[4:]))
		default:
			err = f.Unexpected(fld)
		}
		if err != nil {
			return err
		}
	}
	if keywordCount > 0 && !f.Seen(tagKWDA) {
		return &codec.MissingError{Record: m.Tag(), Sub: tagKWDA}
	}
	return f.Require(codec.TagOBND, codec.TagDATA)
}

func (m *MiscObject) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagEDID, m.EditorID)
	p.SubRecord(tagVMAD, &m.Scripts)
	p.Bytes(codec.TagOBND, m.Bounds.encode())
	if m.HasName {
		p.LocalizedString(codec.TagFULL, m.Localized, m.NameID, m.Name)
	}
	if m.Model != "" {
		p.String(codec.TagMODL, m.Model)
	}
	p.SubRecord(tagMODT, &m.ModelData)
	p.SubRecord(tagMODS, &m.ModelSwaps)
	if m.Icon != "" {
		p.String(tagICON, m.Icon)
	}
	if len(m.Keywords) > 0 {
		p.Uint32(tagKSIZ, uint32(len(m.Keywords)))
		kwda := make([]byte, 4*len(m.Keywords))
		for i, k := range m.Keywords {
			binary.LittleEndian.PutUint32(kwda[4*i:], k)
		}
		p.Bytes(tagKWDA, kwda)
	}
	if m.PickUpSound != 0 {
		p.Uint32(tagYNAM, m.PickUpSound)
	}
	if m.DropSound != 0 {
		p.Uint32(tagZNAM, m.DropSound)
	}
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, m.Value)
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(m.Weight))
	p.Bytes(codec.TagDATA, data)
	return nil
}
