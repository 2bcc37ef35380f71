package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yml"))
	require.NoError(t, err)

	assert.Equal(t, "vehicleinsurance_model", cfg.App.PackageName)
	assert.Equal(t, "Response", cfg.Model.Target)
	assert.Len(t, cfg.Model.Features, 11)
	assert.Equal(t, "id", cfg.Model.Features[0])
	assert.Equal(t, map[string]int{"Male": 1, "Female": 0}, cfg.Model.GenderMappings)
	assert.Equal(t, 100, cfg.Model.NEstimators)
	assert.InDelta(t, 0.2, cfg.Model.TestSize, 1e-12)
	assert.Equal(t, "gini", cfg.Model.Criterion)
	// empty ${VI_ARTIFACT_BACKEND} falls back to the default backend
	assert.Equal(t, BackendLocal, cfg.Artifact.Backend)
	assert.Equal(t, ".gitkeep", cfg.Artifact.Sentinel)
}

func TestParseSubstitutesEnvironment(t *testing.T) {
	t.Setenv("VI_TEST_SAVE_FILE", "model_v")

	cfg, err := Parse([]byte(minimalYAML("${VI_TEST_SAVE_FILE}")))
	require.NoError(t, err)
	assert.Equal(t, "model_v", cfg.App.PipelineSaveFile)
	assert.Equal(t, "model_v1.2.3", cfg.ArtifactName("1.2.3"))
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML("model_v")))
	require.NoError(t, err)

	assert.Equal(t, UnknownCategoryError, cfg.Model.UnknownCategoryPolicy)
	assert.Equal(t, DegenerateZero, cfg.Model.DegenerateScalePolicy)
	assert.Equal(t, "trained_models", cfg.Artifact.Dir)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("features: [unterminated"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"missing save file", func(c *Config) { c.App.PipelineSaveFile = "" }, "pipeline_save_file"},
		{"no features", func(c *Config) { c.Model.Features = nil }, "features"},
		{"duplicate feature", func(c *Config) { c.Model.Features = append(c.Model.Features, "Age") }, "features"},
		{"target in features", func(c *Config) { c.Model.Target = "Age" }, "target"},
		{"var outside features", func(c *Config) { c.Model.VintageVar = "Tenure" }, "Vintage_var"},
		{"empty mappings", func(c *Config) { c.Model.GenderMappings = nil }, "Gender_mappings"},
		{"test size", func(c *Config) { c.Model.TestSize = 1 }, "TEST_SIZE"},
		{"estimators", func(c *Config) { c.Model.NEstimators = 0 }, "N_ESTIMATORS"},
		{"min split", func(c *Config) { c.Model.MinSamplesSplit = 1 }, "MIN_SAMPLES_SPLIT"},
		{"min leaf", func(c *Config) { c.Model.MinSamplesLeaf = 0 }, "MIN_SAMPLES_LEAF"},
		{"criterion", func(c *Config) { c.Model.Criterion = "log_loss" }, "CRITERION"},
		{"unknown policy", func(c *Config) { c.Model.UnknownCategoryPolicy = "drop" }, "unknown_category_policy"},
		{"degenerate policy", func(c *Config) { c.Model.DegenerateScalePolicy = "one" }, "degenerate_scale_policy"},
		{"backend", func(c *Config) { c.Artifact.Backend = "ftp" }, "artifact.backend"},
		{"bucket", func(c *Config) { c.Artifact.Backend = BackendS3 }, "artifact.bucket"},
		{"compression", func(c *Config) { c.Artifact.Compression = "brotli" }, "artifact.compression"},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			key, ok := errors.Detail(err, "key")
			require.True(t, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, Save(path, Default()))

	_, err := os.Stat(path)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Model.Features, cfg.Model.Features)
	assert.Equal(t, Default().Server.ReadTimeout, cfg.Server.ReadTimeout)
}

func minimalYAML(saveFile string) string {
	return `package_name: vehicleinsurance_model
pipeline_save_file: ` + saveFile + `
target: Response
features: [id, Gender, Age, Vehicle_Age, Vehicle_Damage, Annual_Premium, Vintage]
id_var: id
Gender_var: Gender
Age_var: Age
Vehicle_Age_var: Vehicle_Age
Vehicle_Damage_var: Vehicle_Damage
Annual_Premium_var: Annual_Premium
Vintage_var: Vintage
Gender_mappings: {Male: 1, Female: 0}
TEST_SIZE: 0.2
RANDOM_STATE: 42
N_ESTIMATORS: 10
MAX_DEPTH: 5
MIN_SAMPLES_SPLIT: 2
MIN_SAMPLES_LEAF: 1
`
}
