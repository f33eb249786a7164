package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "http", cfg.Backend.Mode)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 1500*time.Millisecond, cfg.Voice.AutoSendDelay)
	assert.Equal(t, "English", cfg.I18n.DefaultLanguage)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: standalone
  base_url: http://collab:5000/
voice:
  auto_send_delay: 0s
storage:
  type: redis
  redis:
    addr: redis:6379
bot:
  token: abc
rate_limit:
  trusted_proxies: ["10.0.0.0/8"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "standalone", cfg.Backend.Mode)
	assert.Equal(t, "http://collab:5000", cfg.Backend.BaseURL)
	assert.Zero(t, cfg.Voice.AutoSendDelay)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.RateLimit.TrustedProxies)
	assert.NoError(t, cfg.ValidateBot())
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("STUDYSPARK_SERVER_PORT", "6000")
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Bot.Token)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Error(t, cfg.ValidateBot(), "token required")

	cfg.Bot.Token = "t"
	cfg.Backend.Mode = "grpc"
	assert.Error(t, cfg.ValidateBot())

	cfg.Backend.Mode = "http"
	cfg.Voice.AutoSendDelay = -time.Second
	assert.Error(t, cfg.ValidateBot())

	cfg.Storage.Type = "etcd"
	assert.Error(t, cfg.ValidateServer())

	cfg.Storage.Type = "redis"
	cfg.Storage.Redis.Addr = ""
	assert.Error(t, cfg.ValidateServer())
}
