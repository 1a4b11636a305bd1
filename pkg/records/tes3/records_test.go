package tes3

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// rawRecord assembles a TES3 record from its parts.
func rawRecord(tag string, flags uint32, payload []byte) []byte {
	buf := make([]byte, 16, 16+len(payload))
	copy(buf, tag)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[12:], flags)
	return append(buf, payload...)
}

func payload(t *testing.T, build func(p *codec.PayloadWriter)) []byte {
	t.Helper()
	p := codec.NewPayloadWriter(codec.TES3)
	build(p)
	out, err := p.Payload()
	require.NoError(t, err)
	return out
}

// load decodes raw through the registry, the same way the file walker does.
func load(t *testing.T, raw []byte) (records.Record, error) {
	t.Helper()
	r := codec.NewReader(bytes.NewReader(raw), codec.TES3)
	tag, err := r.ReadTag()
	require.NoError(t, err)
	return Registry().Load(r, tag)
}

func save(t *testing.T, rec records.Record) []byte {
	t.Helper()
	out, err := records.Encode(rec)
	require.NoError(t, err)
	return out
}

func TestGlobal(t *testing.T) {
	raw := rawRecord("GLOB", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "GameHour")
		p.Uint8(codec.TagFNAM, 'f')
		p.Float32(codec.TagFLTV, 13.5)
	}))

	rec, err := load(t, raw)
	require.NoError(t, err)
	g, ok := rec.(*Global)
	require.True(t, ok)

	assert.Equal(t, "GameHour", g.ID())
	assert.Equal(t, GlobalFloat, g.Type)
	assert.Equal(t, float32(13.5), g.Value)
	assert.Equal(t, int64(13), g.Int())
	assert.Equal(t, raw, save(t, g))

	size, err := records.TotalWrittenSize(g)
	require.NoError(t, err)
	assert.Equal(t, len(raw), size)

	short := &Global{Name: "x", Type: GlobalShort, Value: 70000}
	wide := 70000
	assert.Equal(t, int64(int16(wide)), short.Int())
}

func TestGlobal_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *codec.PayloadWriter)
		is    error
	}{
		{
			name: "invalid type",
			build: func(p *codec.PayloadWriter) {
				p.String(codec.TagNAME, "X")
				p.Uint8(codec.TagFNAM, 'q')
				p.Float32(codec.TagFLTV, 1)
			},
			is: codec.ErrInvalidValue,
		},
		{
			name: "duplicate value",
			build: func(p *codec.PayloadWriter) {
				p.String(codec.TagNAME, "X")
				p.Uint8(codec.TagFNAM, 'l')
				p.Float32(codec.TagFLTV, 1)
				p.Float32(codec.TagFLTV, 2)
			},
			is: codec.ErrDuplicateSubrecord,
		},
		{
			name: "missing value",
			build: func(p *codec.PayloadWriter) {
				p.String(codec.TagNAME, "X")
				p.Uint8(codec.TagFNAM, 'l')
			},
			is: codec.ErrMissingSubrecord,
		},
		{
			name: "name not first",
			build: func(p *codec.PayloadWriter) {
				p.Uint8(codec.TagFNAM, 'l')
				p.String(codec.TagNAME, "X")
			},
			is: codec.ErrUnexpectedTag,
		},
		{
			name: "unknown subrecord",
			build: func(p *codec.PayloadWriter) {
				p.String(codec.TagNAME, "X")
				p.String(codec.TagMODL, "y.nif")
			},
			is: codec.ErrUnexpectedTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, rawRecord("GLOB", 0, payload(t, tt.build)))
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestGameSetting(t *testing.T) {
	raw := rawRecord("GMST", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "sWerewolfPopup")
		p.Bytes(codec.TagSTRV, []byte("Werwolf"))
	}))

	rec, err := load(t, raw)
	require.NoError(t, err)
	s := rec.(*GameSetting)
	assert.Equal(t, SettingString, s.Kind)
	assert.Equal(t, "Werwolf", s.StringValue)
	assert.Equal(t, raw, save(t, s))

	both := rawRecord("GMST", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "iLevelUp")
		p.Int32(codec.TagINTV, 5)
		p.Float32(codec.TagFLTV, 5)
	}))
	_, err = load(t, both)
	assert.ErrorIs(t, err, codec.ErrDuplicateSubrecord)

	empty := rawRecord("GMST", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "sEmpty")
	}))
	rec, err = load(t, empty)
	require.NoError(t, err)
	assert.Equal(t, SettingNone, rec.(*GameSetting).Kind)
}

func TestStaticAndDoor(t *testing.T) {
	staticRaw := rawRecord("STAT", codec.FlagPersistent, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "ex_common_house")
		p.String(codec.TagMODL, "x\\ex_common_house.nif")
	}))
	rec, err := load(t, staticRaw)
	require.NoError(t, err)
	st := rec.(*Static)
	assert.Equal(t, "ex_common_house", st.ID())
	assert.True(t, st.Envelope().IsPersistent())
	assert.Equal(t, staticRaw, save(t, st))

	noModel := rawRecord("STAT", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "broken")
	}))
	_, err = load(t, noModel)
	var me *codec.MissingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, codec.TagMODL, me.Sub)

	deleted := rawRecord("STAT", codec.FlagDeleted, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "gone")
		p.Uint32(codec.TagDELE, 0)
	}))
	rec, err = load(t, deleted)
	require.NoError(t, err)
	assert.True(t, rec.(*Static).Deleted())
	assert.Equal(t, deleted, save(t, rec))

	doorRaw := rawRecord("DOOR", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "in_door_01")
		p.String(codec.TagMODL, "d\\door.nif")
		p.String(codec.TagFNAM, "Tür")
		p.String(codec.TagSNAM, "Door Open")
		p.String(codec.TagANAM, "Door Close")
	}))
	rec, err = load(t, doorRaw)
	require.NoError(t, err)
	door := rec.(*Door)
	assert.Equal(t, "Tür", door.FullName)
	assert.Empty(t, door.Script)
	assert.Equal(t, "Door Close", door.CloseSound)
	assert.Equal(t, doorRaw, save(t, door))

	clone := door.Clone().(*Door)
	clone.FullName = "Door"
	assert.False(t, records.Equal(door, clone))
	assert.True(t, records.Equal(door, door.Clone()))
}

func TestSound(t *testing.T) {
	raw := rawRecord("SOUN", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "Fire")
		p.String(codec.TagFNAM, "Fx\\envrn\\fire.wav")
		p.Bytes(codec.TagDATA, []byte{200, 0, 30})
	}))
	rec, err := load(t, raw)
	require.NoError(t, err)
	s := rec.(*Sound)
	assert.Equal(t, uint8(200), s.Volume)
	assert.Equal(t, uint8(30), s.MaxRange)
	assert.Equal(t, raw, save(t, s))

	bad := rawRecord("SOUN", 0, payload(t, func(p *codec.PayloadWriter) {
		p.String(codec.TagNAME, "Fire")
		p.String(codec.TagFNAM, "fire.wav")
		p.Bytes(codec.TagDATA, []byte{1, 2})
	}))
	_, err = load(t, bad)
	assert.ErrorIs(t, err, codec.ErrInvalidFieldSize)
}

func TestHeader(t *testing.T) {
	h := NewHeader()
	h.FileFlag = 1
	h.Company = "Bethesda Softworks"
	h.Description = "The main data file for Morrowind"
	h.NumRecords = 48
	h.Masters = []Master{{Name: "Morrowind.esm", Size: 79837557}}

	raw := save(t, h)
	assert.Equal(t, "TES3", string(raw[:4]))

	rec, err := load(t, raw)
	require.NoError(t, err)
	back := rec.(*Header)
	assert.Equal(t, h.Company, back.Company)
	assert.Equal(t, h.Description, back.Description)
	assert.Equal(t, float32(1.3), back.Version)
	assert.Equal(t, []string{"Morrowind.esm"}, back.MasterFiles())
	assert.True(t, back.IsMasterFile())
	assert.Equal(t, 48, back.RecordCount())
	assert.Equal(t, raw, save(t, back))

	var fh records.FileHeader = back
	fh.SetRecordCount(3)
	assert.Equal(t, uint32(3), back.NumRecords)
}

func TestHeader_TooShort(t *testing.T) {
	raw := rawRecord("TES3", 0, payload(t, func(p *codec.PayloadWriter) {
		p.Bytes(codec.TagHEDR, make([]byte, 100))
	}))
	_, err := load(t, raw)
	assert.ErrorIs(t, err, codec.ErrTruncatedInput)
}

func TestRegistry_Fallback(t *testing.T) {
	raw := []byte("ACTI\x53\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00" +
		"NAME\x14\x00\x00\x00active_akula_shield\x00" +
		"MODL\x1A\x00\x00\x00i\\active_akula_shield.NIF\x00" +
		"FNAM\x0D\x00\x00\x00Akula-Schild\x00")

	rec, err := load(t, raw)
	require.NoError(t, err)
	g, ok := rec.(*records.Generic)
	require.True(t, ok)
	assert.Equal(t, "active_akula_shield", g.ID())
	assert.Equal(t, 83, g.Size())
	assert.Equal(t, raw, save(t, g))
}
