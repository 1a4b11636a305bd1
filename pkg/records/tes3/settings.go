package tes3

import (
	"math"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Global variable types stored in a GLOB record's FNAM.
const (
	GlobalShort byte = 's'
	GlobalLong  byte = 'l'
	GlobalFloat byte = 'f'
)

// Global is a GLOB record. The value is always stored as a float; Int
// applies the type's truncation.
type Global struct {
	records.Base
	Deletion
	Name  string
	Type  byte
	Value float32
}

func (g *Global) Tag() codec.Tag         { return codec.TagGLOB }
func (g *Global) ID() string             { return g.Name }
func (g *Global) Variant() codec.Variant { return codec.TES3 }

func (g *Global) Load(r *codec.Reader) error { return records.LoadTyped(r, g) }
func (g *Global) Save(w *codec.Writer) error { return records.SaveTyped(w, g) }

func (g *Global) Clone() records.Record {
	c := *g
	c.Deletion = g.Deletion.clone()
	return &c
}

// Int returns the value converted to the global's integer type.
func (g *Global) Int() int64 {
	switch g.Type {
	case GlobalShort:
		return int64(int16(g.Value))
	case GlobalLong:
		return int64(int32(g.Value))
	}
	return int64(math.Trunc(float64(g.Value)))
}

func (g *Global) DecodeFields(f *codec.Fields) error {
	*g = Global{Base: g.Base}
	name, err := f.Expect(codec.TagNAME)
	if err != nil {
		return err
	}
	if g.Name, err = name.Text(); err != nil {
		return err
	}
	for {
		fld, ok, err := f.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch fld.Tag {
		case codec.TagDELE:
			err = g.decode(f, fld)
		case codec.TagFNAM:
			if err = f.Once(fld.Tag); err != nil {
				break
			}
			if g.Type, err = fld.Uint8(); err != nil {
				break
			}
			if g.Type != GlobalShort && g.Type != GlobalLong && g.Type != GlobalFloat {
				err = invalidValue(g.Tag(), fld.Tag, string(rune(g.Type)))
			}
		case codec.TagFLTV:
			if err = f.Once(fld.Tag); err == nil {
				g.Value, err = fld.Float32()
			}
		default:
			err = f.Unexpected(fld)
		}
		if err != nil {
			return err
		}
	}
	if g.Deleted() {
		return nil
	}
	return f.Require(codec.TagFNAM, codec.TagFLTV)
}

func (g *Global) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagNAME, g.Name)
	g.encode(p)
	if g.Deleted() {
		return nil
	}
	p.Uint8(codec.TagFNAM, g.Type)
	p.Float32(codec.TagFLTV, g.Value)
	return nil
}

// SettingKind tells which value a GameSetting holds.
type SettingKind int

const (
	SettingNone SettingKind = iota
	SettingString
	SettingInt
	SettingFloat
)

// GameSetting is a GMST record. A setting holds at most one of a string
// (STRV, stored without terminator), an integer (INTV) or a float (FLTV).
type GameSetting struct {
	records.Base
	Deletion
	Name        string
	Kind        SettingKind
	StringValue string
	IntValue    int32
	FloatValue  float32
}

func (s *GameSetting) Tag() codec.Tag         { return codec.TagGMST }
func (s *GameSetting) ID() string             { return s.Name }
func (s *GameSetting) Variant() codec.Variant { return codec.TES3 }

func (s *GameSetting) Load(r *codec.Reader) error { return records.LoadTyped(r, s) }
func (s *GameSetting) Save(w *codec.Writer) error { return records.SaveTyped(w, s) }

func (s *GameSetting) Clone() records.Record {
	c := *s
	c.Deletion = s.Deletion.clone()
	return &c
}

func (s *GameSetting) DecodeFields(f *codec.Fields) error {
	*s = GameSetting{Base: s.Base}
	name, err := f.Expect(codec.TagNAME)
	if err != nil {
		return err
	}
	if s.Name, err = name.Text(); err != nil {
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
		switch fld.Tag {
		case codec.TagDELE:
			err = s.decode(f, fld)
		case codec.TagSTRV, codec.TagINTV, codec.TagFLTV:
			if s.Kind != SettingNone {
				return &codec.DuplicateError{Record: s.Tag(), Sub: fld.Tag}
			}
			switch fld.Tag {
			case codec.TagSTRV:
				s.Kind = SettingString
				s.StringValue, err = codec.DecodeString(fld.Data)
			case codec.TagINTV:
				s.Kind = SettingInt
				s.IntValue, err = fld.Int32()
			default:
				s.Kind = SettingFloat
				s.FloatValue, err = fld.Float32()
			}
		default:
			err = f.Unexpected(fld)
		}
		if err != nil {
			return err
		}
	}
}

func (s *GameSetting) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagNAME, s.Name)
	s.encode(p)
	switch s.Kind {
	case SettingString:
		enc, err := codec.EncodeString(s.StringValue)
		if err != nil {
			return err
		}
		p.Bytes(codec.TagSTRV, enc)
	case SettingInt:
		p.Int32(codec.TagINTV, s.IntValue)
	case SettingFloat:
		p.Float32(codec.TagFLTV, s.FloatValue)
	}
	return nil
}
