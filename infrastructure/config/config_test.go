package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("KAKU_CONFIG_FILE", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 0.3, cfg.Search.MinSimilarity)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaku.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: 9000
store_backend: sqlite
sqlite_path: /tmp/file.db
search:
  min_similarity: 0.5
  max_limit: 40
`), 0o600))
	t.Setenv("KAKU_CONFIG_FILE", path)
	t.Setenv("SQLITE_PATH", "/tmp/env.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/env.db", cfg.SQLitePath, "environment wins over the file")
	assert.Equal(t, SearchConfig{MinSimilarity: 0.5, MaxLimit: 40}, cfg.Search)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.StoreBackend = "postgres" }},
		{"unknown lock", func(c *Config) { c.LockBackend = "zookeeper" }},
		{"port", func(c *Config) { c.ServerPort = 0 }},
		{"eventbridge without bus", func(c *Config) { c.EventBackend = EventsEventBridge }},
		{"auth without secret", func(c *Config) { c.AuthEnabled = true }},
		{"tracing without endpoint", func(c *Config) { c.EnableTracing = true }},
		{"similarity above one", func(c *Config) { c.Search.MinSimilarity = 1.5 }},
		{"zero max limit", func(c *Config) { c.Search.MaxLimit = 0 }},
	}
	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSearchSettings_Update(t *testing.T) {
	s := NewSearchSettings(SearchConfig{MinSimilarity: 0.3, MaxLimit: 100})
	assert.Equal(t, 0.3, s.DefaultMinSimilarity())

	s.Update(SearchConfig{MinSimilarity: 0.8, MaxLimit: 5})
	assert.Equal(t, 0.8, s.DefaultMinSimilarity())
	assert.Equal(t, 5, s.MaxLimit())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaku.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  min_similarity: 0.3\n  max_limit: 10\n"), 0o600))
	t.Setenv("KAKU_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	settings := NewSearchSettings(cfg.Search)
	w.OnChange(func(c *Config) { settings.Update(c.Search) })

	require.NoError(t, os.WriteFile(path, []byte("search:\n  min_similarity: 0.6\n  max_limit: 10\n"), 0o600))

	assert.Eventually(t, func() bool {
		return settings.DefaultMinSimilarity() == 0.6
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0.6, w.Current().Search.MinSimilarity)
}

func TestWatcher_KeepsConfigOnInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaku.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o600))
	t.Setenv("KAKU_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	w.reload()
	before := w.Current()

	require.NoError(t, os.WriteFile(path, []byte("store_backend: tape\n"), 0o600))
	w.reload()
	assert.Same(t, before, w.Current())
}
