// Package config defines the configuration model for training and serving.
//
// The YAML file keeps the application and model keys flat at the top level
// (package_name, features, Gender_mappings, N_ESTIMATORS, ...); runtime
// settings live in nested sections:
//
//	package_name: vehicleinsurance_model
//	pipeline_save_file: vehicle_insurance_model_output_v
//	target: Response
//	features: [id, Gender, Age, ...]
//	artifact:
//	  backend: local
//	  dir: trained_models
//
// A Config is loaded once and then treated as read-only.
package config

import (
	"math"
	"time"

	"github.com/ajitpratap0/vehicleinsurance/pkg/compression"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
)

// Config is the root configuration.
type Config struct {
	App   AppConfig   `yaml:",inline"`
	Model ModelConfig `yaml:",inline"`

	Paths    PathsConfig    `yaml:"paths"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Logging  logger.Config  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// AppConfig holds package-level settings.
type AppConfig struct {
	PackageName      string `yaml:"package_name"`
	TrainingDataFile string `yaml:"training_data_file"`
	PipelineName     string `yaml:"pipeline_name"`
	PipelineSaveFile string `yaml:"pipeline_save_file"`
}

// ModelConfig holds feature names, mappings and estimator hyperparameters.
type ModelConfig struct {
	Target       string   `yaml:"target"`
	Features     []string `yaml:"features"`
	UnusedFields []string `yaml:"unused_fields"`

	IDVar                 string `yaml:"id_var"`
	GenderVar             string `yaml:"Gender_var"`
	AgeVar                string `yaml:"Age_var"`
	DrivingLicenseVar     string `yaml:"Driving_License_var"`
	RegionCodeVar         string `yaml:"Region_Code_var"`
	PreviouslyInsuredVar  string `yaml:"Previously_Insured_var"`
	VehicleAgeVar         string `yaml:"Vehicle_Age_var"`
	VehicleDamageVar      string `yaml:"Vehicle_Damage_var"`
	AnnualPremiumVar      string `yaml:"Annual_Premium_var"`
	PolicySalesChannelVar string `yaml:"Policy_Sales_Channel_var"`
	VintageVar            string `yaml:"Vintage_var"`

	GenderMappings map[string]int `yaml:"Gender_mappings"`

	TestSize        float64 `yaml:"TEST_SIZE"`
	RandomState     int64   `yaml:"RANDOM_STATE"`
	NEstimators     int     `yaml:"N_ESTIMATORS"`
	MaxDepth        int     `yaml:"MAX_DEPTH"`
	MinSamplesSplit int     `yaml:"MIN_SAMPLES_SPLIT"`
	MinSamplesLeaf  int     `yaml:"MIN_SAMPLES_LEAF"`
	Criterion       string  `yaml:"CRITERION"`
	// MaxFeatures is the number of features tried per split; 0 means sqrt(n).
	MaxFeatures int `yaml:"MAX_FEATURES"`

	// UnknownCategoryPolicy is "error" or "ignore".
	UnknownCategoryPolicy string `yaml:"unknown_category_policy"`
	// DegenerateScalePolicy is "zero" or "error".
	DegenerateScalePolicy string `yaml:"degenerate_scale_policy"`
}

// PathsConfig locates the dataset directory.
type PathsConfig struct {
	DatasetDir string `yaml:"dataset_dir"`
}

// ArtifactConfig selects where trained chains are persisted.
type ArtifactConfig struct {
	// Backend is one of "local", "s3" or "gcs".
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// CredentialsFile is a GCS service account key file.
	CredentialsFile string `yaml:"credentials_file"`
	Sentinel        string `yaml:"sentinel"`
	Compression     string `yaml:"compression"`
	// Version overrides the artifact version to load when serving.
	Version string `yaml:"version"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ProjectName     string        `yaml:"project_name"`
	APIPrefix       string        `yaml:"api_prefix"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// TracingConfig toggles OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	SamplingRate float64 `yaml:"sampling_rate"`
	PrettyPrint  bool    `yaml:"pretty_print"`
}

const (
	UnknownCategoryError  = "error"
	UnknownCategoryIgnore = "ignore"

	DegenerateZero  = "zero"
	DegenerateError = "error"

	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Default returns the configuration shipped with the package.
func Default() *Config {
	return &Config{
		App: AppConfig{
			PackageName:      "vehicleinsurance_model",
			TrainingDataFile: "train.csv",
			PipelineName:     "vehicleinsurance_model",
			PipelineSaveFile: "vehicleinsurance__model_output_v",
		},
		Model: ModelConfig{
			Target: "Response",
			Features: []string{
				"id", "Gender", "Age", "Driving_License", "Region_Code",
				"Previously_Insured", "Vehicle_Age", "Vehicle_Damage",
				"Annual_Premium", "Policy_Sales_Channel", "Vintage",
			},
			UnusedFields:          []string{"id"},
			IDVar:                 "id",
			GenderVar:             "Gender",
			AgeVar:                "Age",
			DrivingLicenseVar:     "Driving_License",
			RegionCodeVar:         "Region_Code",
			PreviouslyInsuredVar:  "Previously_Insured",
			VehicleAgeVar:         "Vehicle_Age",
			VehicleDamageVar:      "Vehicle_Damage",
			AnnualPremiumVar:      "Annual_Premium",
			PolicySalesChannelVar: "Policy_Sales_Channel",
			VintageVar:            "Vintage",
			GenderMappings:        map[string]int{"Male": 1, "Female": 0},
			TestSize:              0.2,
			RandomState:           42,
			NEstimators:           100,
			MaxDepth:              10,
			MinSamplesSplit:       2,
			MinSamplesLeaf:        1,
			Criterion:             "gini",
			UnknownCategoryPolicy: UnknownCategoryError,
			DegenerateScalePolicy: DegenerateZero,
		},
		Paths: PathsConfig{DatasetDir: "datasets"},
		Artifact: ArtifactConfig{
			Backend:     BackendLocal,
			Dir:         "trained_models",
			Sentinel:    ".gitkeep",
			Compression: "zstd",
		},
		Logging: logger.Config{Level: "info", Encoding: "json"},
		Server: ServerConfig{
			Addr:        ":8001",
			ProjectName: "Vehicle Insurance Prediction API",
			APIPrefix:   "/api/v1",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:8000",
				"https://localhost:3000",
				"https://localhost:8000",
			},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Tracing: TracingConfig{SamplingRate: 1.0},
	}
}

// applyDefaults fills optional settings left empty in a loaded file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Model.UnknownCategoryPolicy == "" {
		c.Model.UnknownCategoryPolicy = d.Model.UnknownCategoryPolicy
	}
	if c.Model.DegenerateScalePolicy == "" {
		c.Model.DegenerateScalePolicy = d.Model.DegenerateScalePolicy
	}
	if c.Model.Criterion == "" {
		c.Model.Criterion = d.Model.Criterion
	}
	if c.Paths.DatasetDir == "" {
		c.Paths.DatasetDir = d.Paths.DatasetDir
	}
	if c.Artifact.Backend == "" {
		c.Artifact.Backend = d.Artifact.Backend
	}
	if c.Artifact.Dir == "" {
		c.Artifact.Dir = d.Artifact.Dir
	}
	if c.Artifact.Sentinel == "" {
		c.Artifact.Sentinel = d.Artifact.Sentinel
	}
	if c.Artifact.Compression == "" {
		c.Artifact.Compression = d.Artifact.Compression
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = d.Logging.Encoding
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ProjectName == "" {
		c.Server.ProjectName = d.Server.ProjectName
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = d.Server.APIPrefix
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = d.Server.CORSOrigins
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = d.Tracing.SamplingRate
	}
}

// Validate checks required fields and value ranges. Every failure is an
// ErrorTypeConfig error naming the offending key.
func (c *Config) Validate() error {
	required := map[string]string{
		"package_name":       c.App.PackageName,
		"pipeline_save_file": c.App.PipelineSaveFile,
		"target":             c.Model.Target,
		"id_var":             c.Model.IDVar,
		"Gender_var":         c.Model.GenderVar,
		"Age_var":            c.Model.AgeVar,
		"Vehicle_Age_var":    c.Model.VehicleAgeVar,
		"Vehicle_Damage_var": c.Model.VehicleDamageVar,
		"Annual_Premium_var": c.Model.AnnualPremiumVar,
		"Vintage_var":        c.Model.VintageVar,
	}
	for _, key := range sortedKeys(required) {
		if required[key] == "" {
			return configError(key, "is required")
		}
	}

	m := &c.Model
	if len(m.Features) == 0 {
		return configError("features", "must list at least one feature")
	}
	seen := make(map[string]struct{}, len(m.Features))
	for _, f := range m.Features {
		if f == "" {
			return configError("features", "contains an empty name")
		}
		if _, dup := seen[f]; dup {
			return configError("features", "contains duplicate "+f)
		}
		seen[f] = struct{}{}
	}
	if _, ok := seen[m.Target]; ok {
		return configError("target", "must not be listed in features")
	}
	names := m.canonicalNames()
	for _, key := range sortedKeys(names) {
		name := names[key]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			return configError(key, "names "+name+" which is not in features")
		}
	}
	if len(m.GenderMappings) == 0 {
		return configError("Gender_mappings", "must not be empty")
	}
	if math.IsNaN(m.TestSize) || m.TestSize <= 0 || m.TestSize >= 1 {
		return configError("TEST_SIZE", "must be in (0, 1)")
	}
	if m.NEstimators <= 0 {
		return configError("N_ESTIMATORS", "must be positive")
	}
	if m.MaxDepth < 0 {
		return configError("MAX_DEPTH", "cannot be negative")
	}
	if m.MinSamplesSplit < 2 {
		return configError("MIN_SAMPLES_SPLIT", "must be at least 2")
	}
	if m.MinSamplesLeaf < 1 {
		return configError("MIN_SAMPLES_LEAF", "must be at least 1")
	}
	if m.MaxFeatures < 0 {
		return configError("MAX_FEATURES", "cannot be negative")
	}
	switch m.Criterion {
	case "gini", "entropy":
	default:
		return configError("CRITERION", "must be gini or entropy")
	}
	switch m.UnknownCategoryPolicy {
	case UnknownCategoryError, UnknownCategoryIgnore:
	default:
		return configError("unknown_category_policy", "must be error or ignore")
	}
	switch m.DegenerateScalePolicy {
	case DegenerateZero, DegenerateError:
	default:
		return configError("degenerate_scale_policy", "must be zero or error")
	}

	switch c.Artifact.Backend {
	case BackendLocal:
		if c.Artifact.Dir == "" {
			return configError("artifact.dir", "is required for the local backend")
		}
	case BackendS3, BackendGCS:
		if c.Artifact.Bucket == "" {
			return configError("artifact.bucket", "is required for the "+c.Artifact.Backend+" backend")
		}
	default:
		return configError("artifact.backend", "must be local, s3 or gcs")
	}
	if _, err := compression.ParseAlgorithm(c.Artifact.Compression); err != nil {
		return configError("artifact.compression", "must be one of none, gzip, deflate, snappy, s2, lz4 or zstd")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return configError("tracing.sampling_rate", "must be in [0, 1]")
	}
	return nil
}

// canonicalNames maps each *_var key to its configured column name.
func (m *ModelConfig) canonicalNames() map[string]string {
	return map[string]string{
		"id_var":                   m.IDVar,
		"Gender_var":               m.GenderVar,
		"Age_var":                  m.AgeVar,
		"Driving_License_var":      m.DrivingLicenseVar,
		"Region_Code_var":          m.RegionCodeVar,
		"Previously_Insured_var":   m.PreviouslyInsuredVar,
		"Vehicle_Age_var":          m.VehicleAgeVar,
		"Vehicle_Damage_var":       m.VehicleDamageVar,
		"Annual_Premium_var":       m.AnnualPremiumVar,
		"Policy_Sales_Channel_var": m.PolicySalesChannelVar,
		"Vintage_var":              m.VintageVar,
	}
}

// ArtifactName returns the artifact file name for a version.
func (c *Config) ArtifactName(version string) string {
	return c.App.PipelineSaveFile + version
}

func configError(key, msg string) error {
	return errors.New(errors.ErrorTypeConfig, key+" "+msg).WithDetail("key", key)
}
