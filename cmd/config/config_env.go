// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/xataio/docsync/internal/backoff"
	"github.com/xataio/docsync/pkg/docstore"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/server"
	"github.com/xataio/docsync/pkg/service"
	"github.com/xataio/docsync/pkg/summarizer"
	"github.com/xataio/docsync/pkg/summarizer/generator"
	"github.com/xataio/docsync/pkg/tls"
)

func envConfigToServiceConfig() (*service.Config, error) {
	cfg := &service.Config{
		Store:           parseStoreConfig(),
		Server:          parseServerConfig(),
		Summarization:   parseSummarizationConfig(),
		ShutdownTimeout: viper.GetDuration("DOCSYNC_SHUTDOWN_TIMEOUT"),
	}
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseStoreConfig() docstore.Config {
	return docstore.Config{
		Engine:        parseEngineConfig(),
		BatchSize:     viper.GetInt("DOCSYNC_BATCH_SIZE"),
		ScanPageSize:  viper.GetInt("DOCSYNC_SCAN_PAGE_SIZE"),
		ScanKeepAlive: viper.GetDuration("DOCSYNC_SCAN_KEEP_ALIVE"),
		QuerySize:     viper.GetInt("DOCSYNC_QUERY_SIZE"),
	}
}

func parseEngineConfig() docstore.EngineConfig {
	cfg := docstore.EngineConfig{
		ElasticsearchURL: viper.GetString("DOCSYNC_ELASTICSEARCH_URL"),
		OpenSearchURL:    viper.GetString("DOCSYNC_OPENSEARCH_URL"),
		Username:         viper.GetString("DOCSYNC_ENGINE_USERNAME"),
		Password:         viper.GetString("DOCSYNC_ENGINE_PASSWORD"),
		TLS:              parseTLSConfig("DOCSYNC_ENGINE"),
		RequestTimeout:   viper.GetDuration("DOCSYNC_ENGINE_REQUEST_TIMEOUT"),
		RetryBackoff: backoff.ExponentialConfig{
			InitialInterval: viper.GetDuration("DOCSYNC_ENGINE_BACKOFF_INITIAL_INTERVAL"),
			MaxInterval:     viper.GetDuration("DOCSYNC_ENGINE_BACKOFF_MAX_INTERVAL"),
		},
		VectorDimension: viper.GetInt("DOCSYNC_ENGINE_VECTOR_DIMENSION"),
	}
	if viper.IsSet("DOCSYNC_ENGINE_MAX_RETRIES") {
		maxRetries := viper.GetInt("DOCSYNC_ENGINE_MAX_RETRIES")
		cfg.MaxRetries = &maxRetries
	}
	return cfg
}

func parseServerConfig() server.Config {
	return server.Config{
		Address:      viper.GetString("DOCSYNC_SERVER_ADDRESS"),
		ReadTimeout:  viper.GetDuration("DOCSYNC_SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("DOCSYNC_SERVER_WRITE_TIMEOUT"),
		BodyLimit:    viper.GetString("DOCSYNC_SERVER_BODY_LIMIT"),
	}
}

func parseSummarizationConfig() *service.SummarizationConfig {
	url := viper.GetString("DOCSYNC_GENERATOR_URL")
	if url == "" {
		return nil
	}

	return &service.SummarizationConfig{
		Summarizer: summarizer.Config{
			Model:             viper.GetString("DOCSYNC_GENERATOR_MODEL"),
			MaxNewTokens:      viper.GetInt("DOCSYNC_SUMMARIZER_MAX_NEW_TOKENS"),
			NumBeams:          viper.GetInt("DOCSYNC_SUMMARIZER_NUM_BEAMS"),
			RepetitionPenalty: viper.GetFloat64("DOCSYNC_SUMMARIZER_REPETITION_PENALTY"),
		},
		Generator: generator.Config{
			URL:     url,
			Timeout: viper.GetDuration("DOCSYNC_GENERATOR_TIMEOUT"),
			Backoff: parseBackoffConfig("DOCSYNC_GENERATOR"),
		},
	}
}

func envToOtelConfig() (*otel.Config, error) {
	cfg := &otel.Config{}

	if endpoint := viper.GetString("DOCSYNC_METRICS_ENDPOINT"); endpoint != "" {
		cfg.Metrics = &otel.MetricsConfig{
			Endpoint:           endpoint,
			CollectionInterval: viper.GetDuration("DOCSYNC_METRICS_COLLECTION_INTERVAL"),
			RuntimeMetrics:     viper.GetBool("DOCSYNC_METRICS_RUNTIME_ENABLED"),
		}
	}

	if endpoint := viper.GetString("DOCSYNC_TRACES_ENDPOINT"); endpoint != "" {
		cfg.Traces = &otel.TracesConfig{
			Endpoint:    endpoint,
			SampleRatio: viper.GetFloat64("DOCSYNC_TRACES_SAMPLE_RATIO"),
		}
	}

	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseBackoffConfig(prefix string) backoff.Config {
	return backoff.Config{
		Exponential: parseExponentialBackoffConfig(prefix),
		Constant:    parseConstantBackoffConfig(prefix),
	}
}

func parseExponentialBackoffConfig(prefix string) *backoff.ExponentialConfig {
	initialInterval := viper.GetDuration(fmt.Sprintf("%s_EXP_BACKOFF_INITIAL_INTERVAL", prefix))
	maxInterval := viper.GetDuration(fmt.Sprintf("%s_EXP_BACKOFF_MAX_INTERVAL", prefix))
	maxRetries := viper.GetUint(fmt.Sprintf("%s_EXP_BACKOFF_MAX_RETRIES", prefix))
	if initialInterval == 0 && maxInterval == 0 && maxRetries == 0 {
		return nil
	}
	return &backoff.ExponentialConfig{
		InitialInterval: initialInterval,
		MaxInterval:     maxInterval,
		MaxRetries:      maxRetries,
	}
}

func parseConstantBackoffConfig(prefix string) *backoff.ConstantConfig {
	interval := viper.GetDuration(fmt.Sprintf("%s_BACKOFF_INTERVAL", prefix))
	maxRetries := viper.GetUint(fmt.Sprintf("%s_BACKOFF_MAX_RETRIES", prefix))
	if interval == 0 && maxRetries == 0 {
		return nil
	}
	return &backoff.ConstantConfig{
		Interval:   interval,
		MaxRetries: maxRetries,
	}
}

func parseTLSConfig(prefix string) tls.Config {
	return tls.Config{
		Enabled:            viper.GetBool(fmt.Sprintf("%s_TLS_ENABLED", prefix)),
		CaCertFile:         viper.GetString(fmt.Sprintf("%s_TLS_CA_CERT_FILE", prefix)),
		ClientCertFile:     viper.GetString(fmt.Sprintf("%s_TLS_CLIENT_CERT_FILE", prefix)),
		ClientKeyFile:      viper.GetString(fmt.Sprintf("%s_TLS_CLIENT_KEY_FILE", prefix)),
		InsecureSkipVerify: viper.GetBool(fmt.Sprintf("%s_TLS_INSECURE_SKIP_VERIFY", prefix)),
	}
}
