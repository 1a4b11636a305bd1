package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/config"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/records/tes3"
	"github.com/ssargent/esmkit/pkg/records/tes4"
)

// testEnv writes a config whose data dir lives in a temp dir.
func testEnv(t *testing.T) (configPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	require.NoError(t, config.SaveConfig(cfg, configPath))
	return configPath, dir
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeMorrowindFile(t *testing.T, path string) {
	t.Helper()
	hdr := tes3.NewHeader()
	hdr.Company = "esmkit"

	deleted := &tes3.Static{Name: "old_rock"}
	deleted.DELE.SetData([]byte{0, 0, 0, 0})

	f := esm.NewFile(codec.TES3, hdr)
	f.Entries = []esm.Entry{
		&tes3.Global{Name: "Timescale", Type: 'f', Value: 30},
		&tes3.Static{Name: "rock_01", Model: "r\\rock_01.nif"},
		deleted,
	}
	f.UpdateHeaderCounts()
	require.NoError(t, f.WriteFile(path))
}

func writeSkyrimFile(t *testing.T, path string, master bool, masters ...string) {
	t.Helper()
	hdr := tes4.NewHeader()
	hdr.Author = "esmkit"
	hdr.Header.SetFlag(codec.FlagMaster, master)
	for _, m := range masters {
		hdr.Masters = append(hdr.Masters, tes4.Master{Name: m})
	}

	kw := &tes4.Keyword{}
	kw.EditorID = "VendorItemGem"

	f := esm.NewFile(codec.TES4, hdr)
	f.Entries = []esm.Entry{
		&esm.Group{
			Header: esm.GroupHeader{Label: uint32(codec.TagGLOB), Type: esm.GroupTop},
			Entries: []esm.Entry{
				&tes4.Global{EditorID: "GameHour", Type: 'f', Value: 8},
				&tes4.Global{EditorID: "GameDay", Type: 's', Value: 17},
			},
		},
		&esm.Group{
			Header:  esm.GroupHeader{Label: uint32(codec.TagKYWD), Type: esm.GroupTop},
			Entries: []esm.Entry{kw},
		},
	}
	f.UpdateHeaderCounts()
	require.NoError(t, f.WriteFile(path))
}
