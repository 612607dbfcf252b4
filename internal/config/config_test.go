package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "account_1", cfg.Mock.FeaturedAccount)
	assert.Equal(t, 30, cfg.Mock.DefaultRangeDays)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout.Duration)
	assert.Equal(t, "png", cfg.Chart.Format)
	assert.False(t, cfg.Email.Enabled())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("XDASH_ADDR", "")
	t.Setenv("XDASH_DB_PATH", "")
	t.Setenv("XDASH_SMTP_PASS", "")

	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Addr = "0.0.0.0:9000"
	cfg.Probe.Timeout = Duration{1500 * time.Millisecond}
	cfg.Email.SMTPHost = "smtp.example.com"
	cfg.Email.ToAddr = "me@example.com"
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", loaded.Server.Addr)
	assert.Equal(t, 1500*time.Millisecond, loaded.Probe.Timeout.Duration)
	assert.True(t, loaded.Email.Enabled())
}

func TestConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Default().SaveFile(path))

	t.Setenv("XDASH_ADDR", "127.0.0.1:1")
	t.Setenv("XDASH_DB_PATH", "/tmp/x.db")
	t.Setenv("XDASH_SMTP_PASS", "secret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1", cfg.Server.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DBPath)
	assert.Equal(t, "secret", cfg.Email.SMTPPass)

	db, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", db)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
