package strtable

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/codec"
)

func TestRead_Strings(t *testing.T) {
	// two entries sharing the data block, NUL-terminated
	raw := []byte{
		2, 0, 0, 0, // count
		11, 0, 0, 0, // data size
		0x10, 0, 0, 0, 0, 0, 0, 0, // id 0x10 at 0
		0x20, 0, 0, 0, 5, 0, 0, 0, // id 0x20 at 5
		'G', 'o', 'l', 'd', 0,
		'K', 0xE4, 's', 'e', 'n', 0,
	}
	tbl, err := Read(bytes.NewReader(raw), Strings)
	require.NoError(t, err)

	s, ok := tbl.Lookup(0x10)
	assert.True(t, ok)
	assert.Equal(t, "Gold", s)

	s, ok = tbl.Lookup(0x20)
	assert.True(t, ok)
	assert.Equal(t, "Käsen", s)

	_, ok = tbl.Lookup(0x30)
	assert.False(t, ok)

	var _ codec.StringTable = tbl
}

func TestReadWrite_RoundTrip(t *testing.T) {
	for _, k := range []Kind{Strings, DLStrings, ILStrings} {
		t.Run(k.Extension(), func(t *testing.T) {
			tbl := New()
			tbl.Set(1, "Iron Dagger")
			tbl.Set(7, "")
			tbl.Set(3, "Ein Schwert für dich")

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tbl, k))

			back, err := Read(bytes.NewReader(buf.Bytes()), k)
			require.NoError(t, err)
			assert.Equal(t, []uint32{1, 3, 7}, back.IDs())
			for _, id := range tbl.IDs() {
				want, _ := tbl.Lookup(id)
				got, ok := back.Lookup(id)
				assert.True(t, ok)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestRead_Malformed(t *testing.T) {
	tests := map[string][]byte{
		"short header":   {1, 0, 0},
		"short dir":      {1, 0, 0, 0, 4, 0, 0, 0, 1, 0},
		"offset outside": {1, 0, 0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 9, 0, 0, 0, 'a', 0},
		"unterminated":   {1, 0, 0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 'a', 'b'},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(raw), Strings)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}

	overrun := []byte{1, 0, 0, 0, 6, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 9, 0, 0, 0, 'a', 0}
	_, err := Read(bytes.NewReader(overrun), DLStrings)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAssociatedFiles(t *testing.T) {
	files := AssociatedFiles(filepath.Join("Data", "Skyrim.esm"), "English")
	assert.Equal(t, []string{
		filepath.Join("Data", "Strings", "Skyrim_english.STRINGS"),
		filepath.Join("Data", "Strings", "Skyrim_english.DLSTRINGS"),
		filepath.Join("Data", "Strings", "Skyrim_english.ILSTRINGS"),
	}, files)

	k, err := KindFromPath(files[1])
	require.NoError(t, err)
	assert.Equal(t, DLStrings, k)

	_, err = KindFromPath("x.txt")
	assert.Error(t, err)
}

func TestLoadForPlugin(t *testing.T) {
	dir := t.TempDir()
	plugin := filepath.Join(dir, "Mod.esp")
	files := AssociatedFiles(plugin, "english")
	require.NoError(t, os.MkdirAll(filepath.Dir(files[0]), 0750))

	names := New()
	names.Set(1, "Gold")
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, names, Strings))
	require.NoError(t, os.WriteFile(files[0], buf.Bytes(), 0644))

	descriptions := New()
	descriptions.Set(2, "Shiny coins.")
	buf.Reset()
	require.NoError(t, Write(&buf, descriptions, DLStrings))
	require.NoError(t, os.WriteFile(files[1], buf.Bytes(), 0644))

	tbl, err := LoadForPlugin(plugin, "english")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	s, ok := tbl.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, "Shiny coins.", s)
}
