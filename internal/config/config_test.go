package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "stacks-dao-reader", cfg.App.Name)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, time.Second, cfg.API.GetRetryBaseDelay())
	assert.Equal(t, 15*time.Second, cfg.API.GetRequestTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Cache.GetBlockTTL())
	assert.Equal(t, 6, cfg.Dao.HistoryPoints)
	assert.Equal(t, []string{"mainnet"}, cfg.Watcher.Networks)
	assert.False(t, cfg.Watcher.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: "9090"
api:
  rate_limit_rps: 5
networks:
  testnet_url: http://localhost:3999
dao:
  max_proposals: 5
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))
	t.Setenv("DAO_READER_LOGGER_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.InDelta(t, 5.0, cfg.API.RateLimitRPS, 0.0001)
	assert.Equal(t, "http://localhost:3999", cfg.Networks.TestnetURL)
	assert.Equal(t, 5, cfg.Dao.MaxProposals)
	assert.Equal(t, "debug", cfg.Logger.Level)
}
