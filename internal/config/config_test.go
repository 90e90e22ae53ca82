package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PAGEBUILDER_DATA_DIR", dir)

	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1280.0, cfg.Editor.ViewportWidth)
	assert.Equal(t, 800.0, cfg.Editor.ViewportHeight)
	assert.Equal(t, 40, cfg.History.MaxNodes)
	assert.Equal(t, filepath.Join(dir, "pagebuilder.db"), cfg.Database.Path)
	assert.Equal(t, "home", cfg.Editor.StartPage)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
data_dir: /srv/pb
editor:
  viewport_width: 1920
  viewport_height: 1080
media:
  max_assets: 12
autosave:
  schedule: "@every 1m"
publish:
  sinks:
    - name: archive
      driver: sqlite
      database: /srv/pb/archive.db
      table: builds
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/pb", cfg.DataDir)
	assert.Equal(t, 1920.0, cfg.Editor.ViewportWidth)
	assert.Equal(t, 12.0, cfg.Editor.HandleSize)
	assert.Equal(t, 12, cfg.Media.MaxAssets)
	assert.Equal(t, "@every 1m", cfg.Autosave.Schedule)
	require.Len(t, cfg.Publish.Sinks, 1)
	assert.Equal(t, "builds", cfg.Publish.Sinks[0].Table)
	assert.Equal(t, "/srv/pb/pagebuilder.db", cfg.Database.Path)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	t.Run("unknown sink driver", func(t *testing.T) {
		path := filepath.Join(dir, "sink.yaml")
		require.NoError(t, os.WriteFile(path, []byte("publish:\n  sinks:\n    - driver: redis\n"), 0644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported driver")
	})

	t.Run("zero viewport", func(t *testing.T) {
		path := filepath.Join(dir, "viewport.yaml")
		require.NoError(t, os.WriteFile(path, []byte("editor:\n  viewport_width: -1\n"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("editor: [\n"), 0644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to parse config")
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Run("strings and ints", func(t *testing.T) {
		t.Setenv("PAGEBUILDER_ADDR", ":9999")
		t.Setenv("PAGEBUILDER_MAX_ASSETS", "7")
		t.Setenv("PAGEBUILDER_CHECKOUT_URL", "https://shop.test/pay")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, ":9999", cfg.Server.Addr)
		assert.Equal(t, 7, cfg.Media.MaxAssets)
		assert.Equal(t, "https://shop.test/pay", cfg.Checkout.BaseURL)
	})

	t.Run("unparsable int keeps current value", func(t *testing.T) {
		t.Setenv("PAGEBUILDER_MAX_ASSETS", "many")

		cfg := &Config{Media: MediaConfig{MaxAssets: 3}}
		cfg.applyEnvOverrides()

		assert.Equal(t, 3, cfg.Media.MaxAssets)
	})
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("PAGEBUILDER_TEST_FROM_ENV_FILE=yes\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PAGEBUILDER_TEST_FROM_ENV_FILE") })

	require.NoError(t, LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "yes", os.Getenv("PAGEBUILDER_TEST_FROM_ENV_FILE"))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/pb"
	cfg.Checkout.BaseURL = "https://shop.test/buy"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/buy", loaded.Checkout.BaseURL)
	assert.Equal(t, "/tmp/pb", loaded.DataDir)
}
