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
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, "sessions", c.SessionsDir)
	assert.Equal(t, "files", c.FilesDir)
	assert.Equal(t, 30*24*time.Hour, c.CookieTTL)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, time.Hour, c.ArtifactTTL)
	assert.Equal(t, 5*time.Minute, c.JanitorInterval)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Empty(t, c.SecretKey)
	assert.Empty(t, c.S3Bucket)
	assert.Empty(t, c.AMQPURL)
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_API_ID")
	assert.Contains(t, err.Error(), "TELEGRAM_API_HASH")
	assert.Contains(t, err.Error(), "secret")

	c.APIID, c.APIHash, c.SecretKey = 1, "hash", "secret"
	assert.NoError(t, c.Validate())

	c.JanitorInterval = 0
	assert.Error(t, c.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()

	dotEnv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotEnv, []byte("TELEGRAM_API_ID=11\nTELEGRAM_API_HASH=fromdotenv\nGOPHGRAM_ADDR=:1\n"), 0o600))
	t.Setenv("TELEGRAM_API_HASH", "fromenv")
	t.Setenv("TELEGRAM_API_ID", "")
	t.Setenv("GOPHGRAM_ADDR", "")
	t.Setenv("GOPHGRAM_SECRET", "envsecret")
	t.Setenv("GOPHGRAM_FILES_DIR", "envfiles")
	os.Unsetenv("TELEGRAM_API_ID")
	os.Unsetenv("GOPHGRAM_ADDR")

	cfgFile := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("listen_addr = \":2\"\nfiles_dir = \"tomlfiles\"\n"), 0o600))

	cfg, err := Load([]string{"-c", cfgFile, "-a", ":3"}, dotEnv)
	require.NoError(t, err)

	assert.Equal(t, 11, cfg.APIID)
	// an exported variable wins over .env
	assert.Equal(t, "fromenv", cfg.APIHash)
	assert.Equal(t, "envsecret", cfg.SecretKey)
	// the file wins over the environment
	assert.Equal(t, "tomlfiles", cfg.FilesDir)
	// flags win over everything
	assert.Equal(t, ":3", cfg.ListenAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_BadConfigFile(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

	_, err := Load([]string{"-config", bad}, "")
	assert.Error(t, err)

	_, err = Load([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}, "")
	assert.Error(t, err)
}
