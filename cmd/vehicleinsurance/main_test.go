package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/version"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(flagName(keyConfig), "", "")
	fs.String(flagName(keyLogLevel), "", "")
	fs.String(flagName(keyAddr), "", "")
	fs.String(flagName(keyArtifactDir), "", "")
	fs.Bool(flagName(keyTracing), false, "")
	return fs
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	v, err := newViper(testFlags())
	require.NoError(t, err)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, ":8001", cfg.Server.Addr)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("VI_LOG_LEVEL", "debug")
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--server-addr", ":9000", "--artifact-dir", "models", "--tracing-enabled"}))

	v, err := newViper(fs)
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "models", cfg.Artifact.Dir)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "absent.yml")}))
	v, err := newViper(fs)
	require.NoError(t, err)

	_, err = loadConfig(v)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestReadRecords(t *testing.T) {
	dir := t.TempDir()
	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"inputs": [{"Age": 44}, {"Age": 21}]}`), 0o600))

	records, err := readRecords(nil, wrapped)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, json.Number("44"), records[0]["Age"])

	records, err = readRecords(strings.NewReader(` [{"Age": 30}]`), "-")
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = readRecords(strings.NewReader(`{"inputs": [`), "-")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = readRecords(nil, filepath.Join(dir, "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "v"+version.Version)
}
