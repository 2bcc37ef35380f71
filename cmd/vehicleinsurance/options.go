package main

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
)

// envPrefix namespaces environment overrides, e.g. VI_LOG_LEVEL.
const envPrefix = "VI"

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "configs/config.yml"

// Override keys. Flags use the same names with dashes.
const (
	keyConfig          = "config"
	keyLogLevel        = "log.level"
	keyLogEncoding     = "log.encoding"
	keyAddr            = "server.addr"
	keyArtifactBackend = "artifact.backend"
	keyArtifactDir     = "artifact.dir"
	keyArtifactVersion = "artifact.version"
	keyDatasetDir      = "dataset.dir"
	keyTracing         = "tracing.enabled"
)

// newViper returns a viper instance that resolves overrides from flags and
// VI_* environment variables.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		keyConfig, keyLogLevel, keyLogEncoding, keyAddr, keyArtifactBackend,
		keyArtifactDir, keyArtifactVersion, keyDatasetDir, keyTracing,
	} {
		if f := flags.Lookup(flagName(key)); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func flagName(key string) string {
	return strings.ReplaceAll(key, ".", "-")
}

// loadConfig reads the YAML configuration and applies overrides on top.
// Without an explicit file the shipped path is tried, then the built-in
// defaults.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	path := v.GetString(keyConfig)
	var (
		cfg *config.Config
		err error
	)
	switch {
	case path != "":
		cfg, err = config.Load(path)
	case fileExists(defaultConfigFile):
		cfg, err = config.Load(defaultConfigFile)
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	setString(keyLogLevel, &cfg.Logging.Level)
	setString(keyLogEncoding, &cfg.Logging.Encoding)
	setString(keyAddr, &cfg.Server.Addr)
	setString(keyArtifactBackend, &cfg.Artifact.Backend)
	setString(keyArtifactDir, &cfg.Artifact.Dir)
	setString(keyArtifactVersion, &cfg.Artifact.Version)
	setString(keyDatasetDir, &cfg.Paths.DatasetDir)
	if v.IsSet(keyTracing) {
		cfg.Tracing.Enabled = v.GetBool(keyTracing)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
