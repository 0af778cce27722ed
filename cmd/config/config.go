// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/xataio/docsync/internal/log/zerolog"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/service"
)

func Load() error {
	return LoadFile(viper.GetString("config"))
}

func LoadFile(file string) error {
	if file == "" {
		return nil
	}
	viper.SetConfigFile(file)
	viper.SetConfigType(filepath.Ext(file)[1:])
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func ParseServiceConfig() (*service.Config, error) {
	if isYAMLConfig() {
		yamlCfg, err := unmarshalYAMLConfig()
		if err != nil {
			return nil, err
		}
		return yamlCfg.toServiceConfig()
	}
	return envConfigToServiceConfig()
}

func ParseInstrumentationConfig() (*otel.Config, error) {
	if isYAMLConfig() {
		yamlCfg, err := unmarshalYAMLConfig()
		if err != nil {
			return nil, err
		}
		return yamlCfg.Instrumentation.toOtelConfig()
	}
	return envToOtelConfig()
}

// ParseLogConfig returns the logger configuration. The log level flag takes
// precedence over the configuration file.
func ParseLogConfig() *zerolog.Config {
	cfg := &zerolog.Config{
		LogLevel: viper.GetString("DOCSYNC_LOG_LEVEL"),
		Format:   viper.GetString("DOCSYNC_LOG_FORMAT"),
	}
	if !isYAMLConfig() {
		return cfg
	}

	if !viper.IsSet("DOCSYNC_LOG_LEVEL") || cfg.LogLevel == "" {
		if level := viper.GetString("log.level"); level != "" {
			cfg.LogLevel = level
		}
	}
	if format := viper.GetString("log.format"); format != "" {
		cfg.Format = format
	}
	return cfg
}

func isYAMLConfig() bool {
	switch filepath.Ext(viper.GetViper().ConfigFileUsed()) {
	case ".yml", ".yaml":
		return true
	default:
		return false
	}
}

func unmarshalYAMLConfig() (*YAMLConfig, error) {
	yamlCfg := &YAMLConfig{}
	if err := viper.Unmarshal(yamlCfg); err != nil {
		return nil, fmt.Errorf("unmarshaling yaml config: %w", err)
	}
	return yamlCfg, nil
}
