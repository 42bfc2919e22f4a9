package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9999\nindex_dir: /data/idx\n"), 0o644))

	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/data/idx", cfg.IndexDir)
	assert.Equal(t, Default().MaxInFlight, cfg.MaxInFlight)
}

func TestApplyEnvOverridesPort(t *testing.T) {
	t.Setenv("SEARCHCORE_PORT", "7000")
	t.Setenv("SEARCHCORE_INDEX_DIR", "/env/idx")

	cfg := ApplyEnv(Default())
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "/env/idx", cfg.IndexDir)
}

func TestApplyEnvHonorsBareVariableNames(t *testing.T) {
	t.Setenv("PORT", "6100")
	t.Setenv("ADMIN_TOKEN", "s3cret")

	cfg := ApplyEnv(Default())
	assert.Equal(t, 6100, cfg.Port)
	assert.Equal(t, "s3cret", cfg.AdminToken)
}

func TestApplyEnvPrefixedWinsOverBare(t *testing.T) {
	t.Setenv("PORT", "6100")
	t.Setenv("SEARCHCORE_PORT", "6200")

	cfg := ApplyEnv(Default())
	assert.Equal(t, 6200, cfg.Port)
}

func TestApplyEnvParsesMetricsStdout(t *testing.T) {
	t.Setenv("SEARCHCORE_METRICS_STDOUT", "true")

	cfg := ApplyEnv(Default())
	assert.True(t, cfg.MetricsStdout)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyIndexDir(t *testing.T) {
	cfg := Default()
	cfg.IndexDir = ""
	assert.Error(t, cfg.Validate())
}
