package esm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
	"github.com/ssargent/esmkit/pkg/records/tes4"
	"github.com/ssargent/esmkit/pkg/store"
)

// rawRecord builds a record from hand-written subrecords so the payload can
// hold layouts the typed records would never produce.
func rawRecord(t *testing.T, tag codec.Tag, flags uint32, build func(p *codec.PayloadWriter)) *records.Generic {
	t.Helper()
	p := codec.NewPayloadWriter(codec.TES4)
	build(p)
	payload, err := p.Payload()
	require.NoError(t, err)
	g := records.NewGeneric(tag, codec.TES4)
	g.Header.Flags = flags
	g.SetData(payload)
	return g
}

func miscPayload(id string, extra func(p *codec.PayloadWriter)) func(p *codec.PayloadWriter) {
	return func(p *codec.PayloadWriter) {
		p.String(codec.TagEDID, id)
		extra(p)
		p.Bytes(codec.TagOBND, make([]byte, 12))
		p.Bytes(codec.TagDATA, []byte{5, 0, 0, 0, 0, 0, 0x80, 0x3F})
	}
}

func fileOf(t *testing.T, groups ...Entry) []byte {
	t.Helper()
	hdr := tes4.NewHeader()
	hdr.Author = "esmkit"
	f := NewFile(codec.TES4, hdr)
	f.Entries = groups
	f.UpdateHeaderCounts()
	return encodeFile(t, f)
}

func TestWalker_MiscWithScriptsAndSwaps(t *testing.T) {
	misc := rawRecord(t, codec.TagMISC, 0, miscPayload("Gold002", func(p *codec.PayloadWriter) {
		p.Bytes(codec.MustParseTag("VMAD"), []byte{5, 0, 2, 0, 0, 0})
		p.Bytes(codec.MustParseTag("MODS"), []byte{0, 0, 0, 0})
	}))
	raw := fileOf(t, topGroup(codec.TagMISC, misc))

	f, _, err := NewWalker().Read(bytes.NewReader(raw))
	require.NoError(t, err)
	recs := f.Records()
	require.Len(t, recs, 1)
	m, ok := recs[0].(*tes4.MiscObject)
	require.True(t, ok, "got %T", recs[0])
	assert.Equal(t, "Gold002", m.ID())
	assert.Equal(t, []byte{5, 0, 2, 0, 0, 0}, m.Scripts.Data())
	assert.Equal(t, []byte{0, 0, 0, 0}, m.ModelSwaps.Data())
	assert.Equal(t, uint32(5), m.Value)
	assert.Equal(t, raw, encodeFile(t, f))

	m.Value = 6
	out := encodeFile(t, f)
	back, _, err := NewWalker().Read(bytes.NewReader(out))
	require.NoError(t, err)
	m2 := back.Records()[0].(*tes4.MiscObject)
	assert.Equal(t, uint32(6), m2.Value)
	assert.True(t, m.Scripts.Equal(&m2.Scripts))
	assert.True(t, m.ModelSwaps.Equal(&m2.ModelSwaps))
}

func TestWalker_UnknownSubrecordKeptVerbatim(t *testing.T) {
	tagDEST := codec.MustParseTag("DEST")
	odd := rawRecord(t, codec.TagMISC, 0, miscPayload("Gold003", func(p *codec.PayloadWriter) {
		p.Bytes(tagDEST, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	}))
	raw := fileOf(t,
		topGroup(codec.TagGLOB, tes4Global("GameHour", 8)),
		topGroup(codec.TagMISC, odd),
	)

	t.Run("typed store", func(t *testing.T) {
		set := store.NewSet()
		miscs := store.NewFor[tes4.MiscObject]()
		set.Register(codec.TagMISC, miscs)

		f, stats, err := NewWalker(WithSink(set)).Read(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Records)

		recs := f.Records()
		require.Len(t, recs, 2)
		g, ok := recs[1].(*records.Generic)
		require.True(t, ok, "got %T", recs[1])
		assert.Equal(t, codec.TagMISC, g.Tag())
		assert.Equal(t, "Gold003", g.ID())
		assert.False(t, miscs.HasRecord("Gold003"))
		assert.Equal(t, raw, encodeFile(t, f))
	})

	t.Run("auto set", func(t *testing.T) {
		set := store.NewAutoSet(tes4.Registry())
		_, _, err := NewWalker(WithSink(set)).Read(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, []codec.Tag{codec.TagMISC}, set.Find("gold003"))
	})

	t.Run("corrupt subrecord length", func(t *testing.T) {
		cut := append([]byte(nil), raw...)
		at := bytes.Index(cut, []byte("DEST"))
		require.Positive(t, at)
		// DEST claims more bytes than the record holds; the record itself
		// is still framed by its declared size
		binary.LittleEndian.PutUint16(cut[at+4:], 0xFFFF)

		f, _, err := NewWalker().Read(bytes.NewReader(cut))
		require.NoError(t, err)
		assert.IsType(t, &records.Generic{}, f.Records()[1])
		assert.Equal(t, cut, encodeFile(t, f))
	})
}

// deflate compresses payload at level with the size prefix records use.
func deflate(t *testing.T, payload []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	buf.Write(prefix[:])
	zw, err := zlib.NewWriterLevel(&buf, level)
	require.NoError(t, err)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWalker_CompressedRecordsCopyUnchanged(t *testing.T) {
	plain := rawRecord(t, codec.TagGLOB, 0, func(p *codec.PayloadWriter) {
		p.String(codec.TagEDID, "GameHour")
		p.Uint8(codec.TagFNAM, 'f')
		p.Float32(codec.TagFLTV, 8)
	})

	for name, level := range map[string]int{
		"stored":  zlib.NoCompression,
		"fastest": zlib.BestSpeed,
		"best":    zlib.BestCompression,
	} {
		t.Run(name, func(t *testing.T) {
			glob := records.NewGeneric(codec.TagGLOB, codec.TES4)
			glob.Header.Flags = codec.FlagCompressed
			glob.SetData(deflate(t, plain.Data(), level))
			raw := fileOf(t, topGroup(codec.TagGLOB, glob))

			f, _, err := NewWalker().Read(bytes.NewReader(raw))
			require.NoError(t, err)
			g, ok := f.Records()[0].(*tes4.Global)
			require.True(t, ok)
			assert.Equal(t, float32(8), g.Value)

			assert.Equal(t, raw, encodeFile(t, f))

			// edited records are compressed again
			g.Value = 9
			back, _, err := NewWalker().Read(bytes.NewReader(encodeFile(t, f)))
			require.NoError(t, err)
			g2 := back.Records()[0].(*tes4.Global)
			assert.True(t, g2.Header.IsCompressed())
			assert.Equal(t, float32(9), g2.Value)
		})
	}
}
