package records

import (
	"bytes"

	"github.com/ssargent/esmkit/pkg/codec"
)

// Generic holds any record verbatim. It is used for every tag without a
// typed implementation and reproduces its input byte for byte.
type Generic struct {
	Base
	tag     codec.Tag
	variant codec.Variant
	data    []byte
	id      string
}

// NewGeneric returns an empty record of type t.
func NewGeneric(t codec.Tag, v codec.Variant) *Generic {
	return &Generic{tag: t, variant: v}
}

func (g *Generic) Tag() codec.Tag         { return g.tag }
func (g *Generic) Variant() codec.Variant { return g.variant }

// SetTag changes the tag written by Save.
func (g *Generic) SetTag(t codec.Tag) { g.tag = t }

// ID returns the first NAME (TES3) or EDID (TES4) string when the payload
// parses as uncompressed subrecords, and "" otherwise.
func (g *Generic) ID() string { return g.id }

// Size is the payload size. Zero means no buffer is held.
func (g *Generic) Size() int { return len(g.data) }

// Data returns the raw payload. Callers must not modify it.
func (g *Generic) Data() []byte { return g.data }

// SetData replaces the payload with a copy of data.
func (g *Generic) SetData(data []byte) {
	if len(data) == 0 {
		g.data = nil
	} else {
		g.data = append([]byte(nil), data...)
	}
	g.id = g.scanID()
}

// Load reads declared size, envelope and exactly size payload bytes. On
// failure the record holds no payload.
func (g *Generic) Load(r *codec.Reader) error {
	g.data, g.id = nil, ""
	size, env, err := codec.ReadRecordHeader(r, g.tag)
	if err != nil {
		return err
	}
	var data []byte
	if size > 0 {
		if data, err = r.ReadBytes(int(size)); err != nil {
			return err
		}
	}
	g.Header = env
	g.data = data
	g.id = g.scanID()
	return nil
}

// Save writes the tag, the payload size, the envelope and the payload.
func (g *Generic) Save(w *codec.Writer) error {
	if err := codec.WriteRecordHeader(w, g.tag, uint32(len(g.data)), g.Header); err != nil {
		return err
	}
	w.Write(g.data)
	return w.Err()
}

func (g *Generic) Clone() Record {
	c := *g
	if g.data != nil {
		c.data = append([]byte(nil), g.data...)
	}
	return &c
}

// Equal compares tag, envelope and payload bytes.
func (g *Generic) Equal(other *Generic) bool {
	if other == nil {
		return false
	}
	return g.tag == other.tag && g.Header == other.Header && bytes.Equal(g.data, other.data)
}

func (g *Generic) scanID() string {
	if g.Header.IsCompressed() {
		return ""
	}
	return scanID(g.tag, g.variant, g.data)
}

// scanID returns the first identity subrecord of an uncompressed payload,
// or "" when there is none or the payload does not parse.
func scanID(t codec.Tag, v codec.Variant, payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	f := codec.NewFields(t, v, payload)
	want := v.IDTag()
	for {
		fld, ok, err := f.Next()
		if err != nil || !ok {
			return ""
		}
		if fld.Tag == want {
			s, err := fld.Text()
			if err != nil {
				return ""
			}
			return s
		}
	}
}
