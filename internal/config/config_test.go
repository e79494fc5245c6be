package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGlobalMailConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailservice.yaml")
	content := `host: smtp.globalmail.example
enabled: true
auth:
  user: org@globalmail.example
  pass: orgsecret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadGlobalMailConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "smtp.globalmail.example", cfg.Host)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "org@globalmail.example", cfg.Auth.User)
	assert.Equal(t, "orgsecret", cfg.Auth.Pass)
}

func TestLoadGlobalMailConfig_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadGlobalMailConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MAILROOM_DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/data/mailroom.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Positive(t, cfg.PollInterval)
}
