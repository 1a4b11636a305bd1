package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/pkg/api"
	"github.com/ssargent/esmkit/pkg/catalog"
	"github.com/ssargent/esmkit/pkg/config"
	"github.com/ssargent/esmkit/pkg/di"
	"github.com/ssargent/esmkit/pkg/esm"
)

func TestInfoCommand(t *testing.T) {
	configPath, dir := testEnv(t)
	path := filepath.Join(dir, "Morrowind.esm")
	writeMorrowindFile(t, path)

	out, err := executeCommand(t, "", "--config", configPath, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Variant:   tes3")
	assert.Contains(t, out, "Records:   3 (header says 3)")
	assert.Contains(t, out, "STAT  2")
}

func TestListCommand(t *testing.T) {
	configPath, dir := testEnv(t)
	path := filepath.Join(dir, "Skyrim.esm")
	writeSkyrimFile(t, path, true)

	out, err := executeCommand(t, "", "--config", configPath, "list", path, "--tag", "GLOB")
	require.NoError(t, err)
	assert.Contains(t, out, "GameHour")
	assert.Contains(t, out, "GameDay")
	assert.NotContains(t, out, "VendorItemGem")

	_, err = executeCommand(t, "", "--config", configPath, "list", path, "--tag", "TOOLONG")
	assert.Error(t, err)
}

func TestCopyCommand(t *testing.T) {
	configPath, dir := testEnv(t)
	in := filepath.Join(dir, "Skyrim.esm")
	out := filepath.Join(dir, "copy", "Skyrim.esm")
	writeSkyrimFile(t, in, true)

	_, err := executeCommand(t, "", "--config", configPath, "copy", in, out)
	require.NoError(t, err)

	want, err := os.ReadFile(in)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCleanCommand(t *testing.T) {
	configPath, dir := testEnv(t)
	in := filepath.Join(dir, "Morrowind.esm")
	out := filepath.Join(dir, "Clean.esm")
	writeMorrowindFile(t, in)

	t.Run("deleted records", func(t *testing.T) {
		stdout, err := executeCommand(t, "", "--config", configPath, "clean", in, out, "--deleted")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Removed 1 records")

		f, _, err := esm.ReadFile(out)
		require.NoError(t, err)
		assert.Len(t, f.Records(), 2)
		assert.Equal(t, 2, f.Header.RecordCount())
	})

	t.Run("by tag", func(t *testing.T) {
		_, err := executeCommand(t, "", "--config", configPath, "clean", in, out, "--tag", "STAT")
		require.NoError(t, err)

		f, _, err := esm.ReadFile(out)
		require.NoError(t, err)
		require.Len(t, f.Records(), 1)
		assert.Equal(t, "Timescale", f.Records()[0].ID())
	})

	t.Run("nothing to do", func(t *testing.T) {
		_, err := executeCommand(t, "", "--config", configPath, "clean", in, out)
		assert.Error(t, err)
	})
}

func TestResolveCommand(t *testing.T) {
	configPath, dir := testEnv(t)
	base := filepath.Join(dir, "Base.esm")
	mod := filepath.Join(dir, "Mod.esp")
	writeSkyrimFile(t, base, true)
	writeSkyrimFile(t, mod, false, "Base.esm")

	out, err := executeCommand(t, "", "--config", configPath, "resolve", mod, base)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Base.esm"), strings.Index(out, "Mod.esp"))

	_, err = executeCommand(t, "", "--config", configPath, "resolve", mod)
	assert.Error(t, err)
}

func TestIndexAndFindCommands(t *testing.T) {
	configPath, dir := testEnv(t)
	skyrim := filepath.Join(dir, "Skyrim.esm")
	morrowind := filepath.Join(dir, "Morrowind.esm")
	writeSkyrimFile(t, skyrim, true)
	writeMorrowindFile(t, morrowind)

	out, err := executeCommand(t, "", "--config", configPath, "index", skyrim, morrowind)
	require.NoError(t, err)
	assert.Contains(t, out, "Skyrim.esm: 3 records indexed")
	assert.Contains(t, out, "Morrowind.esm: 3 records indexed")

	out, err = executeCommand(t, "", "--config", configPath, "find", "gamehour")
	require.NoError(t, err)
	assert.Contains(t, out, "Skyrim.esm")
	assert.Contains(t, out, "GameHour")

	_, err = executeCommand(t, "", "--config", configPath, "find", "Nothing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = os.Stat(filepath.Join(dir, "data", "catalog"))
	assert.NoError(t, err)
}

type fakeStarter struct {
	config api.ServerConfig
	called bool
}

func (s *fakeStarter) StartServer(_ context.Context, cat api.RecordCatalog, config api.ServerConfig) error {
	s.called = true
	s.config = config
	_, err := cat.Runs()
	return err
}

type fakeFactory struct{ starter *fakeStarter }

func (f fakeFactory) CreateServerStarter() api.ServerStarter { return f.starter }

func TestServeCommand(t *testing.T) {
	configPath, _ := testEnv(t)

	starter := &fakeStarter{}
	c := di.NewContainer()
	c.SetServerFactory(fakeFactory{starter: starter})
	SetContainer(c)
	t.Cleanup(func() { SetContainer(nil) })

	_, err := executeCommand(t, "", "--config", configPath, "serve", "--port", "9300", "--api-key", "k")
	require.NoError(t, err)
	assert.True(t, starter.called)
	assert.Equal(t, 9300, starter.config.Port)
	assert.Equal(t, "127.0.0.1", starter.config.Bind)
	assert.Equal(t, "k", starter.config.APIKey)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "esmkit.yaml")

	out, err := executeCommand(t, "", "--config", configPath, "--data-dir", filepath.Join(dir, "data"), "init", "--print-key")
	require.NoError(t, err)
	assert.Contains(t, out, "API key: ")

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Len(t, cfg.Server.APIKey, 64)

	_, err = executeCommand(t, "", "--config", configPath, "init")
	assert.Error(t, err)

	_, err = executeCommand(t, "", "--config", configPath, "init", "--force")
	assert.NoError(t, err)
}

func TestRootCommand_Config(t *testing.T) {
	t.Run("missing explicit config", func(t *testing.T) {
		_, err := executeCommand(t, "", "--config", filepath.Join(t.TempDir(), "none.yaml"), "find", "x")
		assert.Error(t, err)
	})

	t.Run("invalid variant flag", func(t *testing.T) {
		configPath, _ := testEnv(t)
		_, err := executeCommand(t, "", "--config", configPath, "--variant", "tes9", "find", "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "codec.variant")
	})

	t.Run("variant mismatch", func(t *testing.T) {
		configPath, dir := testEnv(t)
		path := filepath.Join(dir, "Morrowind.esm")
		writeMorrowindFile(t, path)

		_, err := executeCommand(t, "", "--config", configPath, "--variant", "tes4", "info", path)
		assert.Error(t, err)
	})
}
