package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/esm"
)

func TestShellCommand_TES3(t *testing.T) {
	configPath, dir := testEnv(t)
	path := filepath.Join(dir, "Morrowind.esm")
	saved := filepath.Join(dir, "Edited.esm")
	writeMorrowindFile(t, path)

	script := `tags
count GLOB
has TIMESCALE
has nothing
get GLOB "Timescale"
remove STAT rock_01
remove STAT rock_01
frobnicate
save ` + saved + `
quit
`
	out, err := executeCommand(t, script, "--config", configPath, "shell", path)
	require.NoError(t, err)

	assert.Contains(t, out, "3 records in 2 tags")
	assert.Contains(t, out, "GLOB  1")
	assert.Contains(t, out, "STAT  2")
	assert.Contains(t, out, "yes: GLOB")
	assert.Contains(t, out, "no\n")
	assert.Contains(t, out, `"Name": "Timescale"`)
	assert.Contains(t, out, "removed")
	assert.Contains(t, out, `error: record "rock_01" not found`)
	assert.Contains(t, out, `unknown command "frobnicate"`)
	assert.Contains(t, out, "wrote 2 records")

	f, _, err := esm.ReadFile(saved)
	require.NoError(t, err)
	assert.Len(t, f.Records(), 2)
	assert.Equal(t, 2, f.Header.RecordCount())
}

func TestShellCommand_TES4Save(t *testing.T) {
	configPath, dir := testEnv(t)
	path := filepath.Join(dir, "Skyrim.esm")
	saved := filepath.Join(dir, "Edited.esm")
	writeSkyrimFile(t, path, true)

	script := "remove kywd VendorItemGem\nsave '" + saved + "'\n"
	out, err := executeCommand(t, script, "--config", configPath, "shell", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 records")

	f, stats, err := esm.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 3, f.Header.RecordCount())
}

func TestShellCommand_QuoteError(t *testing.T) {
	configPath, dir := testEnv(t)
	path := filepath.Join(dir, "Morrowind.esm")
	writeMorrowindFile(t, path)

	out, err := executeCommand(t, "get GLOB \"unterminated\n", "--config", configPath, "shell", path)
	require.NoError(t, err)
	assert.Contains(t, out, "error: ")
}
