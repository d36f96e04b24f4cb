package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khota/quizrunner/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Banks struct {
		Dir string
	}

	Log struct {
		Level  string
		Format string
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http:\n  port: 8080\nbanks:\n  dir: ./banks\n"), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=debug\nBANKS_DIR=/from-dotenv\n"), 0o600))

	t.Setenv("BANKS_DIR", "/from-env")
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	var c testConfig
	c.Log.Format = "json"

	require.NoError(t, config.Load(file, &c, envFile, filepath.Join(dir, "missing.env")))

	assert.Equal(t, int32(8080), c.HTTP.Port)
	assert.Equal(t, "/from-env", c.Banks.Dir, "env overrides the file and the env file")
	assert.Equal(t, "debug", c.Log.Level, "env file fills unset variables")
	assert.Equal(t, "json", c.Log.Format, "preset values are defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}
