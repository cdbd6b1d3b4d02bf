package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineConfigValidates(t *testing.T) {
	cfg, err := DefaultEngineConfig().Validate()
	require.NoError(t, err)
	assert.Equal(t, 4*1024*1024, cfg.MaxRowBytes)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icydb.toml")
	contents := "MAX_ROW_BYTES = 1024\nmax_groups = 50\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.MaxRowBytes)
	assert.Equal(t, 50, cfg.MaxGroups)
	// Unset fields keep their documented default.
	assert.Equal(t, 64*1024, cfg.MaxIndexEntryBytes)
}

func TestValidateRejectsNonPositiveBudget(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MaxRowBytes = 0
	_, err := cfg.Validate()
	require.Error(t, err)
}
