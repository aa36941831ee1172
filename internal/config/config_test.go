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

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.NotEmpty(t, cfg.IPFS.Gateways)
	assert.Equal(t, 10, cfg.Recovery.BatchSize)
	assert.Equal(t, time.Second, cfg.Recovery.ItemDelay)
}

func TestLoadFileOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"server": {"port": "9090"},
		"ipfs": {"gateways": ["https://example.org/ipfs"]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://example.org/ipfs"}, cfg.IPFS.Gateways)
	// Unset fields fall back to defaults.
	assert.Equal(t, 15*time.Second, cfg.IPFS.GatewayTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PORT", "7777")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.json")
	assert.Error(t, err)
}
