package tes3

import (
	"fmt"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Registry returns the typed records of the TES3 layout.
func Registry() *records.Registry {
	reg := records.NewRegistry(codec.TES3)
	reg.Register(codec.TagTES3, func() records.Record { return NewHeader() })
	reg.Register(codec.TagGLOB, func() records.Record { return &Global{} })
	reg.Register(codec.TagGMST, func() records.Record { return &GameSetting{} })
	reg.Register(codec.TagSTAT, func() records.Record { return &Static{} })
	reg.Register(codec.TagDOOR, func() records.Record { return &Door{} })
	reg.Register(codec.TagSOUN, func() records.Record { return &Sound{} })
	return reg
}

// Deletion is the DELE marker that deleted TES3 records carry after NAME.
type Deletion struct {
	DELE codec.SubRecord
}

// Deleted reports whether the marker is present.
func (d *Deletion) Deleted() bool { return d.DELE.IsPresent() }

func (d *Deletion) decode(f *codec.Fields, fld codec.Field) error {
	if err := f.Once(codec.TagDELE); err != nil {
		return err
	}
	d.DELE.SetData(fld.Data)
	return nil
}

func (d *Deletion) encode(p *codec.PayloadWriter) {
	p.SubRecord(codec.TagDELE, &d.DELE)
}

func (d Deletion) clone() Deletion {
	return Deletion{DELE: *d.DELE.Clone()}
}

// Static is a STAT record: a mesh placed in the world.
type Static struct {
	records.Base
	Deletion
	Name  string
	Model string
}

func (s *Static) Tag() codec.Tag         { return codec.TagSTAT }
func (s *Static) ID() string             { return s.Name }
func (s *Static) Variant() codec.Variant { return codec.TES3 }

func (s *Static) Load(r *codec.Reader) error { return records.LoadTyped(r, s) }
func (s *Static) Save(w *codec.Writer) error { return records.SaveTyped(w, s) }

func (s *Static) Clone() records.Record {
	c := *s
	c.Deletion = s.Deletion.clone()
	return &c
}

func (s *Static) DecodeFields(f *codec.Fields) error {
	*s = Static{Base: s.Base}
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
			break
		}
		switch fld.Tag {
		case codec.TagDELE:
			err = s.decode(f, fld)
		case codec.TagMODL:
			if err = f.Once(fld.Tag); err == nil {
				s.Model, err = fld.Text()
			}
		default:
			err = f.Unexpected(fld)
		}
		if err != nil {
			return err
		}
	}
	if s.Deleted() {
		return nil
	}
	return f.Require(codec.TagMODL)
}

func (s *Static) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagNAME, s.Name)
	s.encode(p)
	if !s.Deleted() || s.Model != "" {
		p.String(codec.TagMODL, s.Model)
	}
	return nil
}

// Door is a DOOR record.
type Door struct {
	records.Base
	Deletion
	Name       string
	Model      string
	FullName   string
	Script     string
	OpenSound  string
	CloseSound string
}

func (d *Door) Tag() codec.Tag         { return codec.TagDOOR }
func (d *Door) ID() string             { return d.Name }
func (d *Door) Variant() codec.Variant { return codec.TES3 }

func (d *Door) Load(r *codec.Reader) error { return records.LoadTyped(r, d) }
func (d *Door) Save(w *codec.Writer) error { return records.SaveTyped(w, d) }

func (d *Door) Clone() records.Record {
	c := *d
	c.Deletion = d.Deletion.clone()
	return &c
}

func (d *Door) DecodeFields(f *codec.Fields) error {
	*d = Door{Base: d.Base}
	name, err := f.Expect(codec.TagNAME)
	if err != nil {
		return err
	}
	if d.Name, err = name.Text(); err != nil {
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
		var dst *string
		switch fld.Tag {
		case codec.TagDELE:
			if err := d.decode(f, fld); err != nil {
				return err
			}
			continue
		case codec.TagMODL:
			dst = &d.Model
		case codec.TagFNAM:
			dst = &d.FullName
		case codec.TagSCRI:
			dst = &d.Script
		case codec.TagSNAM:
			dst = &d.OpenSound
		case codec.TagANAM:
			dst = &d.CloseSound
		default:
			return f.Unexpected(fld)
		}
		if err := f.Once(fld.Tag); err != nil {
			return err
		}
		if *dst, err = fld.Text(); err != nil {
			return err
		}
	}
	if d.Deleted() {
		return nil
	}
	return f.Require(codec.TagMODL)
}

func (d *Door) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagNAME, d.Name)
	d.encode(p)
	if !d.Deleted() || d.Model != "" {
		p.String(codec.TagMODL, d.Model)
	}
	optional := []struct {
		tag codec.Tag
		val string
	}{
		{codec.TagFNAM, d.FullName},
		{codec.TagSCRI, d.Script},
		{codec.TagSNAM, d.OpenSound},
		{codec.TagANAM, d.CloseSound},
	}
	for _, o := range optional {
		if o.val != "" {
			p.String(o.tag, o.val)
		}
	}
	return nil
}

// Sound is a SOUN record.
type Sound struct {
	records.Base
	Deletion
	Name     string
	FileName string
	Volume   uint8
	MinRange uint8
	MaxRange uint8
}

func (s *Sound) Tag() codec.Tag         { return codec.TagSOUN }
func (s *Sound) ID() string             { return s.Name }
func (s *Sound) Variant() codec.Variant { return codec.TES3 }

func (s *Sound) Load(r *codec.Reader) error { return records.LoadTyped(r, s) }
func (s *Sound) Save(w *codec.Writer) error { return records.SaveTyped(w, s) }

func (s *Sound) Clone() records.Record {
	c := *s
	c.Deletion = s.Deletion.clone()
	return &c
}

func (s *Sound) DecodeFields(f *codec.Fields) error {
	*s = Sound{Base: s.Base}
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
			break
		}
		switch fld.Tag {
		case codec.TagDELE:
			err = s.decode(f, fld)
		case codec.TagFNAM:
			if err = f.Once(fld.Tag); err == nil {
				s.FileName, err = fld.Text()
			}
		case codec.TagDATA:
			if err = f.Once(fld.Tag); err != nil {
				break
			}
			if len(fld.Data) != 3 {
				err = &codec.FieldSizeError{Record: s.Tag(), Sub: fld.Tag, Want: 3, Got: len(fld.Data)}
				break
			}
			s.Volume, s.MinRange, s.MaxRange = fld.Data[0], fld.Data[1], fld.Data[2]
		default:
			err = f.Unexpected(fld)
		}
		if err != nil {
			return err
		}
	}
	if s.Deleted() {
		return nil
	}
	return f.Require(codec.TagFNAM, codec.TagDATA)
}

func (s *Sound) EncodeFields(p *codec.PayloadWriter) error {
	p.String(codec.TagNAME, s.Name)
	s.encode(p)
	if s.Deleted() {
		return nil
	}
	p.String(codec.TagFNAM, s.FileName)
	p.Bytes(codec.TagDATA, []byte{s.Volume, s.MinRange, s.MaxRange})
	return nil
}

func invalidValue(rec codec.Tag, sub codec.Tag, v any) error {
	return fmt.Errorf("%s: %w: %s %v", rec, codec.ErrInvalidValue, sub, v)
}
