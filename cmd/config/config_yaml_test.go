// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/tls"
)

func TestYAMLConfig_toServiceConfig(t *testing.T) {
	require.NoError(t, LoadFile("test/test_config.yaml"))

	var config YAMLConfig
	err := viper.Unmarshal(&config)
	require.NoError(t, err)

	serviceConfig, err := config.toServiceConfig()
	require.NoError(t, err)

	validateTestServiceConfig(t, serviceConfig)

	otelConfig, err := config.Instrumentation.toOtelConfig()
	require.NoError(t, err)
	validateTestOtelConfig(t, otelConfig)
}

func TestParseServiceConfig_yaml(t *testing.T) {
	require.NoError(t, LoadFile("test/test_config.yaml"))

	serviceConfig, err := ParseServiceConfig()
	require.NoError(t, err)
	validateTestServiceConfig(t, serviceConfig)

	logConfig := ParseLogConfig()
	require.Equal(t, "info", logConfig.LogLevel)
	require.Equal(t, "json", logConfig.Format)
}

func TestYAMLConfig_toServiceConfig_ErrorCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  YAMLConfig
		wantErr error
	}{
		{
			name:    "err - missing engine url",
			config:  YAMLConfig{Engine: EngineConfig{Type: elasticsearchEngine}},
			wantErr: errMissingEngineURL,
		},
		{
			name:    "err - unsupported engine type",
			config:  YAMLConfig{Engine: EngineConfig{Type: "solr", URL: "http://localhost:8983"}},
			wantErr: errUnsupportedEngineType,
		},
		{
			name: "err - summarization without generator url",
			config: YAMLConfig{
				Engine:        EngineConfig{Type: opensearchEngine, URL: "http://localhost:9200"},
				Summarization: &SummarizationConfig{Model: "bart"},
			},
			wantErr: errMissingGeneratorURL,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.config.toServiceConfig()
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestInstrumentationConfig_toOtelConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config InstrumentationConfig

		wantConfig *otel.Config
		wantErr    error
	}{
		{
			name: "ok - metrics only",
			config: InstrumentationConfig{
				Metrics: &MetricsConfig{Endpoint: "localhost:4317", CollectionInterval: 5000},
			},

			wantConfig: &otel.Config{
				Metrics: &otel.MetricsConfig{Endpoint: "localhost:4317", CollectionInterval: 5 * time.Second},
			},
			wantErr: nil,
		},
		{
			name:   "ok - disabled",
			config: InstrumentationConfig{},

			wantConfig: &otel.Config{},
			wantErr:    nil,
		},
		{
			name: "error - invalid sample ratio",
			config: InstrumentationConfig{
				Traces: &TracesConfig{Endpoint: "localhost:4317", SampleRatio: -1},
			},

			wantConfig: nil,
			wantErr:    otel.ErrInvalidSampleRatio,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := tc.config.toOtelConfig()
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantConfig, cfg)
		})
	}
}

func TestTLSConfig_parseTLSConfig(t *testing.T) {
	t.Parallel()

	var nilCfg *TLSConfig
	require.Equal(t, tls.Config{}, nilCfg.parseTLSConfig())
	require.Equal(t, tls.Config{InsecureSkipVerify: true}, (&TLSConfig{InsecureSkipVerify: true}).parseTLSConfig())
	require.Equal(t, tls.Config{Enabled: true, CaCertFile: "ca.crt"}, (&TLSConfig{CACert: "ca.crt"}).parseTLSConfig())
}
