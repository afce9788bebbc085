package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Server.CORSOrigins)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.Download.Tick)
	assert.Equal(t, 30*24*time.Hour, cfg.Download.Expiry)
	assert.Equal(t, 5*time.Minute, cfg.Client.RefreshInterval)
	assert.Equal(t, 30*time.Second, cfg.Client.ReconcileDelay)
	assert.Equal(t, 15*time.Second, cfg.Client.RequestTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fermata.yaml")
	content := `
server:
  port: 9090
store:
  path: /tmp/fermata.db
download:
  tick: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/fermata.db", cfg.Store.Path)
	assert.Equal(t, 2*time.Second, cfg.Download.Tick)

	// Untouched keys fall back to defaults
	assert.Equal(t, 30*24*time.Hour, cfg.Download.Expiry)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FERMATA_SERVER_PORT", "7070")
	t.Setenv("FERMATA_DOWNLOAD_TICK", "1s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Download.Tick)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
