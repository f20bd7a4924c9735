package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().HistoryLimit, cfg.HistoryLimit)
	assert.NotEmpty(t, cfg.NodeID)
}

func TestLoadParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_directory: /tmp/connwatch
node_id: probe-1
history_limit: 64
debounce_ms: 250
peers:
  - id: probe-2
    base_url: http://probe-2:8080
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/connwatch", cfg.DataDirectory)
	assert.Equal(t, "probe-1", cfg.NodeID)
	assert.Equal(t, "probe-1", cfg.NodeName, "node_name falls back to node_id")
	assert.Equal(t, 64, cfg.HistoryLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.PlatformOptions().Debounce)
	require.Len(t, cfg.Peers, 1)
	assert.True(t, cfg.Peers[0].Enabled)
}

func TestLoadRejectsEnabledPeerWithoutBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
peers:
  - id: probe-2
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadIgnoresDisabledPeerValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
peers:
  - name: paused
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.NoError(t, err)
}
