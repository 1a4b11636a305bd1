package tes4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

type table map[uint32]string

func (t table) Lookup(id uint32) (string, bool) {
	s, ok := t[id]
	return s, ok
}

func encode(t *testing.T, rec records.Record) []byte {
	t.Helper()
	out, err := records.Encode(rec)
	require.NoError(t, err)
	return out
}

func decode(t *testing.T, raw []byte, localized bool, opts ...codec.ReaderOption) (records.Record, error) {
	t.Helper()
	r := codec.NewReader(bytes.NewReader(raw), codec.TES4, opts...)
	r.SetLocalized(localized)
	tag, err := r.ReadTag()
	require.NoError(t, err)
	return Registry().Load(r, tag)
}

func TestHeader_RoundTrip(t *testing.T) {
	h := NewHeader()
	h.Header.Flags = codec.FlagMaster | codec.FlagLocalized
	h.Author = "mcarofano"
	h.Masters = []Master{{Name: "Skyrim.esm"}, {Name: "Update.esm"}}
	h.NumRecordsAndGroups = 920

	raw := encode(t, h)
	rec, err := decode(t, raw, false)
	require.NoError(t, err)
	back := rec.(*Header)

	assert.Equal(t, "mcarofano", back.Author)
	assert.Equal(t, []string{"Skyrim.esm", "Update.esm"}, back.MasterFiles())
	assert.True(t, back.IsMasterFile())
	assert.True(t, back.IsLocalized())
	assert.Equal(t, 920, back.RecordCount())
	assert.True(t, back.HasInternalVersion)
	assert.Equal(t, uint32(44), back.InternalVersion)
	assert.False(t, back.Overrides.IsPresent())
	assert.Equal(t, raw, encode(t, back))
}

func TestHeader_MissingAuthor(t *testing.T) {
	p := codec.NewPayloadWriter(codec.TES4)
	p.Bytes(codec.TagHEDR, make([]byte, 12))
	payload, err := p.Payload()
	require.NoError(t, err)

	g := records.NewGeneric(codec.TagTES4, codec.TES4)
	g.SetData(payload)
	_, err = decode(t, encode(t, g), false)
	assert.ErrorIs(t, err, codec.ErrMissingSubrecord)
}

func TestAction(t *testing.T) {
	a := &Action{}
	a.EditorID = "ActionShieldChange"
	a.Header.FormID = 0x000D6AA1

	raw := encode(t, a)
	// EDID\x13\x00ActionShieldChange\x00 after the 24-byte header
	assert.Equal(t, "EDID\x13\x00ActionShieldChange\x00", string(raw[24:]))

	rec, err := decode(t, raw, false)
	require.NoError(t, err)
	back := rec.(*Action)
	assert.Equal(t, "ActionShieldChange", back.ID())
	assert.False(t, back.HasColor)
	assert.True(t, records.Equal(a, back))
}

func TestKeyword_Color(t *testing.T) {
	k := &Keyword{}
	k.EditorID = "VendorItemMisc"
	k.Color, k.HasColor = 0x00FF8800, true

	rec, err := decode(t, encode(t, k), false)
	require.NoError(t, err)
	back := rec.(*Keyword)
	assert.Equal(t, uint32(0x00FF8800), back.Color)

	dup := records.NewGeneric(codec.TagKYWD, codec.TES4)
	p := codec.NewPayloadWriter(codec.TES4)
	p.String(codec.TagEDID, "X")
	p.Uint32(codec.TagCNAM, 1)
	p.Uint32(codec.TagCNAM, 2)
	payload, err := p.Payload()
	require.NoError(t, err)
	dup.SetData(payload)
	_, err = decode(t, encode(t, dup), false)
	assert.ErrorIs(t, err, codec.ErrDuplicateSubrecord)
}

func TestGlobal(t *testing.T) {
	g := &Global{EditorID: "GameDaysPassed", Type: 'f', Value: 12.25}
	rec, err := decode(t, encode(t, g), false)
	require.NoError(t, err)
	assert.True(t, records.Equal(g, rec))

	g.Type = 'x'
	_, err = decode(t, encode(t, g), false)
	assert.ErrorIs(t, err, codec.ErrInvalidValue)
}

func newMisc() *MiscObject {
	m := &MiscObject{
		EditorID:    "Gold001",
		Bounds:      Bounds{-2, -2, 0, 2, 2, 1},
		Name:        "Gold",
		HasName:     true,
		Model:       "Clutter\\Coin01.nif",
		PickUpSound: 0x000C7A54,
		Keywords:    []uint32{0x000914E9},
		Value:       1,
		Weight:      0,
	}
	m.ModelData.SetData([]byte{1, 2, 3, 4})
	return m
}

func TestMiscObject_RoundTrip(t *testing.T) {
	m := newMisc()
	raw := encode(t, m)

	rec, err := decode(t, raw, false)
	require.NoError(t, err)
	back := rec.(*MiscObject)
	assert.Equal(t, "Gold", back.Name)
	assert.Equal(t, int16(-2), back.Bounds.X1)
	assert.Equal(t, []uint32{0x000914E9}, back.Keywords)
	assert.Equal(t, []byte{1, 2, 3, 4}, back.ModelData.Data())
	assert.Equal(t, raw, encode(t, back))

	clone := back.Clone().(*MiscObject)
	clone.Keywords[0] = 7
	assert.Equal(t, uint32(0x000914E9), back.Keywords[0])
}

func TestMiscObject_Localized(t *testing.T) {
	m := newMisc()
	m.Localized = true
	m.NameID = 0x1234
	raw := encode(t, m)

	rec, err := decode(t, raw, true, codec.WithStringTable(table{0x1234: "Gold"}))
	require.NoError(t, err)
	back := rec.(*MiscObject)
	assert.True(t, back.Localized)
	assert.Equal(t, uint32(0x1234), back.NameID)
	assert.Equal(t, "Gold", back.Name)
	assert.Equal(t, raw, encode(t, back))
}

func TestMiscObject_Compressed(t *testing.T) {
	m := newMisc()
	m.Header.SetFlag(codec.FlagCompressed, true)
	raw := encode(t, m)

	_, err := decode(t, raw, false)
	assert.ErrorIs(t, err, codec.ErrCompressed)

	rec, err := decode(t, raw, false, codec.WithDecompressor(codec.ZlibCodec{}))
	require.NoError(t, err)
	back := rec.(*MiscObject)
	assert.Equal(t, "Gold001", back.ID())
	assert.True(t, back.Header.IsCompressed())
	assert.True(t, records.Equal(m, back))

	// unchanged records write the stored bytes and need no compressor
	var buf bytes.Buffer
	w := codec.NewWriter(&buf, codec.TES4)
	require.NoError(t, back.Save(w))
	require.NoError(t, w.Flush())
	assert.Equal(t, raw, buf.Bytes())

	back.Value = 25
	buf.Reset()
	w = codec.NewWriter(&buf, codec.TES4)
	assert.ErrorIs(t, back.Save(w), codec.ErrCompressed)
}

func TestMiscObject_Errors(t *testing.T) {
	m := newMisc()
	m.Keywords = nil
	p := codec.NewPayloadWriter(codec.TES4)
	require.NoError(t, m.EncodeFields(p))
	p.Uint32(codec.MustParseTag("KWDA"), 1)
	payload, err := p.Payload()
	require.NoError(t, err)

	g := records.NewGeneric(codec.TagMISC, codec.TES4)
	g.SetData(payload)
	_, err = decode(t, encode(t, g), false)
	assert.ErrorIs(t, err, codec.ErrMissingSubrecord)
}

func TestDeletedEmptyPayload(t *testing.T) {
	g := records.NewGeneric(codec.TagMISC, codec.TES4)
	g.Envelope().SetFlag(codec.FlagDeleted, true)

	rec, err := decode(t, encode(t, g), false)
	require.NoError(t, err)
	assert.True(t, rec.Envelope().IsDeleted())
	assert.Empty(t, rec.ID())
}

func rawTES4(t *testing.T, tag codec.Tag, build func(p *codec.PayloadWriter)) []byte {
	t.Helper()
	p := codec.NewPayloadWriter(codec.TES4)
	build(p)
	payload, err := p.Payload()
	require.NoError(t, err)
	g := records.NewGeneric(tag, codec.TES4)
	g.SetData(payload)
	return encode(t, g)
}

func TestHeader_KeepsOptionalLayout(t *testing.T) {
	raw := rawTES4(t, codec.TagTES4, func(p *codec.PayloadWriter) {
		p.Bytes(codec.TagHEDR, make([]byte, hedrSize))
		p.String(codec.TagCNAM, "esmkit")
		p.String(codec.TagSNAM, "")
		p.String(codec.TagMAST, "Skyrim.esm")
		p.String(codec.TagMAST, "Update.esm")
		p.Uint64(codec.TagDATA, 0)
		p.Uint32(codec.TagINTV, 44)
	})

	rec, err := decode(t, raw, false)
	require.NoError(t, err)
	h := rec.(*Header)
	assert.True(t, h.HasDescription)
	assert.Empty(t, h.Description)
	require.Len(t, h.Masters, 2)
	assert.True(t, h.Masters[0].NoData)
	assert.False(t, h.Masters[1].NoData)
	assert.Equal(t, raw, encode(t, h))

	// an edited header is re-encoded with the same subrecords
	h.SetRecordCount(12)
	out := encode(t, h)
	assert.Len(t, out, len(raw))
	rec, err = decode(t, out, false)
	require.NoError(t, err)
	back := rec.(*Header)
	assert.Equal(t, 12, back.RecordCount())
	assert.True(t, back.HasDescription)
	assert.Equal(t, h.Masters, back.Masters)
}

func TestKeyword_TrailingBytesAfterTerminator(t *testing.T) {
	raw := rawTES4(t, codec.TagKYWD, func(p *codec.PayloadWriter) {
		p.Bytes(codec.TagEDID, []byte("Key\x00junk\x00"))
	})

	rec, err := decode(t, raw, false)
	require.NoError(t, err)
	k := rec.(*Keyword)
	assert.Equal(t, "Key", k.ID())
	assert.Equal(t, raw, encode(t, k))

	payload, err := records.Payload(k)
	require.NoError(t, err)
	assert.Equal(t, raw[24:], payload)

	// once edited the string is written in canonical form
	k.Color, k.HasColor = 0xFF00FF00, true
	rec, err = decode(t, encode(t, k), false)
	require.NoError(t, err)
	assert.Equal(t, "Key", rec.ID())
	assert.True(t, rec.(*Keyword).HasColor)
}

func TestRegistry_DecodeErrorFallback(t *testing.T) {
	raw := rawTES4(t, codec.TagKYWD, func(p *codec.PayloadWriter) {
		p.String(codec.TagEDID, "VendorItemGem")
		p.Bytes(codec.MustParseTag("DNAM"), []byte{1})
	})

	_, err := decode(t, raw, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrUnexpectedTag)

	g, ok := records.AsFallback(err)
	require.True(t, ok)
	assert.Equal(t, codec.TagKYWD, g.Tag())
	assert.Equal(t, "VendorItemGem", g.ID())
	assert.Equal(t, raw, encode(t, g))

	_, ok = records.AsFallback(codec.ErrTruncatedInput)
	assert.False(t, ok)
}
