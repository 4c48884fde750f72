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
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, "data/videotube.db", cfg.Database.Path)
	assert.Equal(t, "users", cfg.Storage.KeyPrefix)
	assert.Equal(t, "public/temp", cfg.Upload.TempDir)
	assert.Equal(t, 30*time.Second, cfg.Upload.Timeout)
	assert.Equal(t, int64(8<<20), cfg.Upload.MaxMemory)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.EqualError(t, cfg.Validate(), "storage bucket is required")
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDEOTUBE_STORAGE_BUCKET", "media")
	t.Setenv("VIDEOTUBE_STORAGE_PUBLICURL", "https://cdn.example.com")
	t.Setenv("VIDEOTUBE_UPLOAD_TIMEOUT", "5s")
	t.Setenv("VIDEOTUBE_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "media", cfg.Storage.Bucket)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicURL)
	assert.Equal(t, 5*time.Second, cfg.Upload.Timeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"VIDEOTUBE_STORAGE_BUCKET=from-dotenv\nVIDEOTUBE_STORAGE_REGION=eu-west-1\n",
	), 0o644))
	t.Setenv("VIDEOTUBE_STORAGE_BUCKET", "from-env")
	// godotenv sets the region for the rest of the process; restore it afterwards.
	t.Setenv("VIDEOTUBE_STORAGE_REGION", "")
	os.Unsetenv("VIDEOTUBE_STORAGE_REGION")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Storage.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
}

func TestLoad_MalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"BAD-KEY=1\n",
	), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load .env")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.Storage.Bucket = "media"
		cfg.Upload.TempDir = "tmp"
		cfg.Upload.Timeout = time.Second
		cfg.Upload.MaxMemory = 1024
		return cfg
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Upload.TempDir = " "
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Upload.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Upload.MaxMemory = 0
	assert.Error(t, cfg.Validate())
}
