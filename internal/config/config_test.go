package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "poll", cfg.Transport)
	assert.Equal(t, 2*time.Second, cfg.PollInterval.Std())
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err, "a path that was given but does not exist is a typo, not a default")
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://jupyter:9999
token: secret
transport: stream
poll_interval: 500ms
max_polls: 10
history_path: /tmp/history.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://jupyter:9999", cfg.BaseURL)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "stream", cfg.Transport)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval.Std())
	assert.Equal(t, 10, cfg.MaxPolls)
	assert.Equal(t, "/tmp/history.db", cfg.HistoryPath)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: 500"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Defaults()
	cfg.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Transport = "smoke-signal"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.PollInterval = Duration(-time.Second)
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.MaxPolls = -1
	assert.Error(t, cfg.Validate())
}
