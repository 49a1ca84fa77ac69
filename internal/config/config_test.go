package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, cache.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.IsConfigured())

	_, ok := cfg.Settings().GetSettings()
	assert.False(t, ok, "no server section means settings are absent")
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  type: jellyfin
  url: http://jf.local:8096/
  api_key: secret
cache:
  backend: bolt
  ttl:
    watch_history: 1m
transport:
  max_retries: 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsConfigured())
	assert.Equal(t, domain.ServerTypeJellyfin, cfg.Server.Type)
	assert.Equal(t, "bolt", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL["watch_history"])
	assert.Equal(t, uint(4), cfg.Transport.MaxRetries)

	s, ok := cfg.Settings().GetSettings()
	require.True(t, ok)
	assert.Equal(t, "http://jf.local:8096", s.URL, "trailing slash trimmed")
	assert.Equal(t, "secret", s.APIKey)
}

func TestSettingsPresentButEmpty(t *testing.T) {
	path := writeConfig(t, `
server:
  type: plex
  url: ""
  api_key: ""
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	s, ok := cfg.Settings().GetSettings()
	require.True(t, ok, "saved but empty settings are present")
	assert.Empty(t, s.URL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  type: plex
  url: http://file.local
  api_key: from-file
`)
	t.Setenv("MEDIARR_SERVER_API_KEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	s, ok := cfg.Settings().GetSettings()
	require.True(t, ok)
	assert.Equal(t, "from-env", s.APIKey)
}

func TestSettingsReadOnEveryCall(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	provider := cfg.Settings()
	_, ok := provider.GetSettings()
	require.False(t, ok)

	require.NoError(t, cfg.SaveServer(ServerConfig{Type: domain.ServerTypePlex, URL: "http://plex.local:32400", APIKey: "tok"}))

	s, ok := provider.GetSettings()
	require.True(t, ok)
	assert.Equal(t, domain.ServerTypePlex, s.Type)
	assert.Equal(t, "tok", s.APIKey)
}

func TestCacheOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = map[string]time.Duration{"users": time.Hour}
	opts, err := cfg.CacheOptions()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cache.New(nil, opts...).TTL(cache.KindUsers))

	cfg.Cache.TTL = map[string]time.Duration{"bogus": time.Hour}
	_, err = cfg.CacheOptions()
	assert.Error(t, err)
}
