package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "allowance.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
port: "9000"
db_path: /var/lib/allowance/family.db
log_level: debug
rate_limit: 2.5
rate_burst: 4
`)
	t.Setenv("ALLOWANCE_PORT", "9100")
	t.Setenv("ALLOWANCE_RATE_BURST", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port, "env beats file")
	assert.Equal(t, "/var/lib/allowance/family.db", cfg.DBPath, "file beats default")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 8, cfg.RateBurst)
}

func TestLoadAddrOverridesPort(t *testing.T) {
	path := writeConfig(t, "addr: 127.0.0.1:7000\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "port: [1, 2\n"))
		assert.Error(t, err)
	})
	t.Run("bad rate env", func(t *testing.T) {
		t.Setenv("ALLOWANCE_RATE_LIMIT", "fast")
		_, err := Load("")
		assert.ErrorContains(t, err, "ALLOWANCE_RATE_LIMIT")
	})
	t.Run("zero burst with limiting on", func(t *testing.T) {
		t.Setenv("ALLOWANCE_RATE_BURST", "0")
		_, err := Load("")
		assert.ErrorContains(t, err, "rate_burst")
	})
}
