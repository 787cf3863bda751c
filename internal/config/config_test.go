package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "medcheck.db", cfg.Store.SQLitePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Validator.BatchSize)
	assert.Equal(t, 3, cfg.Validator.MaxAttempts)
	assert.Equal(t, 1000, cfg.Validator.InitialDelayMS)
	assert.Equal(t, 2.0, cfg.Validator.RequestsPerSec)
	assert.Equal(t, int64(4096), cfg.Oracle.MaxTokens)
	assert.NotEmpty(t, cfg.Oracle.Model)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDCHECK_VALIDATOR_BATCH_SIZE", "25")
	t.Setenv("MEDCHECK_STORE_DRIVER", "postgres")
	t.Setenv("MEDCHECK_ORACLE_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Validator.BatchSize)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Oracle.Key)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store:
  driver: sqlite
  sqlite_path: /tmp/custom.db
validator:
  batch_size: 5
notify:
  channel: "#data-quality"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Store.SQLitePath)
	assert.Equal(t, 5, cfg.Validator.BatchSize)
	assert.Equal(t, "#data-quality", cfg.Notify.Channel)
	assert.Equal(t, 3, cfg.Validator.MaxAttempts, "unset keys keep their defaults")
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: ["), 0o644))
	t.Chdir(dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
