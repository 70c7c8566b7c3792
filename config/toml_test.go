package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	EnsureRoot(tmpDir)

	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[light]")
	assert.Contains(t, string(data), `trust-level = "2/3"`)

	ensureFiles(t, tmpDir, "data", "config")

	// an existing file is left alone
	cfg := DefaultConfig()
	cfg.ChainID = "kept"
	require.NoError(t, WriteConfigFile(tmpDir, cfg))
	EnsureRoot(tmpDir)
	data, err = os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)
	assert.Contains(t, string(data), `chain-id = "kept"`)
}

func TestTemplateIsValidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ChainID = "test-chain"
	cfg.Instrumentation.Prometheus = true
	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, cfg.WriteToTemplate(path))

	var parsed map[string]interface{}
	_, err := toml.DecodeFile(path, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "test-chain", parsed["chain-id"])
	assert.Equal(t, "goleveldb", parsed["db-backend"])
	light, ok := parsed["light"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "168h0m0s", light["trusting-period"])
	assert.Equal(t, "2/3", light["trust-level"])
	inst, ok := parsed["instrumentation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, inst["prometheus"])
}

func TestTemplateRoundTripsThroughViper(t *testing.T) {
	tmpDir := t.TempDir()
	want := DefaultConfig()
	want.ChainID = "round-trip"
	want.Light.TrustingPeriod = 2 * time.Hour
	want.Light.TrustLevel = "1/2"
	want.Instrumentation.Namespace = "rt"
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, defaultConfigDir), defaultDirPerm))
	require.NoError(t, WriteConfigFile(tmpDir, want))

	v := viper.New()
	v.SetConfigFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, v.ReadInConfig())

	got := DefaultConfig()
	require.NoError(t, v.Unmarshal(got))
	assert.Equal(t, want, got)
	assert.NoError(t, got.ValidateBasic())
}
