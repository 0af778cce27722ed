// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"time"

	"github.com/xataio/docsync/internal/backoff"
	"github.com/xataio/docsync/pkg/docstore"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/server"
	"github.com/xataio/docsync/pkg/service"
	"github.com/xataio/docsync/pkg/summarizer"
	"github.com/xataio/docsync/pkg/summarizer/generator"
	"github.com/xataio/docsync/pkg/tls"
)

// YAMLConfig is the docsync yaml configuration file format. Durations are
// expressed in milliseconds.
type YAMLConfig struct {
	Engine          EngineConfig          `mapstructure:"engine" yaml:"engine"`
	Store           StoreConfig           `mapstructure:"store" yaml:"store"`
	Server          ServerConfig          `mapstructure:"server" yaml:"server"`
	Summarization   *SummarizationConfig  `mapstructure:"summarization" yaml:"summarization"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation" yaml:"instrumentation"`
	Log             LogConfig             `mapstructure:"log" yaml:"log"`
	ShutdownTimeout int                   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type EngineConfig struct {
	Type            string         `mapstructure:"type" yaml:"type"`
	URL             string         `mapstructure:"url" yaml:"url"`
	Username        string         `mapstructure:"username" yaml:"username"`
	Password        string         `mapstructure:"password" yaml:"password"`
	RequestTimeout  int            `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxRetries      *int           `mapstructure:"max_retries" yaml:"max_retries"`
	Backoff         *BackoffConfig `mapstructure:"backoff" yaml:"backoff"`
	TLS             *TLSConfig     `mapstructure:"tls" yaml:"tls"`
	VectorDimension int            `mapstructure:"vector_dimension" yaml:"vector_dimension"`
}

type StoreConfig struct {
	BatchSize int        `mapstructure:"batch_size" yaml:"batch_size"`
	QuerySize int        `mapstructure:"query_size" yaml:"query_size"`
	Scan      ScanConfig `mapstructure:"scan" yaml:"scan"`
}

type ScanConfig struct {
	PageSize  int `mapstructure:"page_size" yaml:"page_size"`
	KeepAlive int `mapstructure:"keep_alive" yaml:"keep_alive"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address" yaml:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"`
	BodyLimit    string `mapstructure:"body_limit" yaml:"body_limit"`
}

type SummarizationConfig struct {
	Model             string          `mapstructure:"model" yaml:"model"`
	MaxNewTokens      int             `mapstructure:"max_new_tokens" yaml:"max_new_tokens"`
	NumBeams          int             `mapstructure:"num_beams" yaml:"num_beams"`
	RepetitionPenalty float64         `mapstructure:"repetition_penalty" yaml:"repetition_penalty"`
	Generator         GeneratorConfig `mapstructure:"generator" yaml:"generator"`
}

type GeneratorConfig struct {
	URL     string         `mapstructure:"url" yaml:"url"`
	Timeout int            `mapstructure:"timeout" yaml:"timeout"`
	Backoff *BackoffConfig `mapstructure:"backoff" yaml:"backoff"`
}

type TLSConfig struct {
	CACert             string `mapstructure:"ca_cert" yaml:"ca_cert"`
	ClientCert         string `mapstructure:"client_cert" yaml:"client_cert"`
	ClientKey          string `mapstructure:"client_key" yaml:"client_key"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type BackoffConfig struct {
	Exponential *ExponentialBackoffConfig `mapstructure:"exponential" yaml:"exponential"`
	Constant    *ConstantBackoffConfig    `mapstructure:"constant" yaml:"constant"`
}

type ExponentialBackoffConfig struct {
	MaxRetries      int `mapstructure:"max_retries" yaml:"max_retries"`
	InitialInterval int `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     int `mapstructure:"max_interval" yaml:"max_interval"`
}

type ConstantBackoffConfig struct {
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	Interval   int `mapstructure:"interval" yaml:"interval"`
}

type InstrumentationConfig struct {
	Metrics *MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Traces  *TracesConfig  `mapstructure:"traces" yaml:"traces"`
}

type MetricsConfig struct {
	Endpoint           string `mapstructure:"endpoint" yaml:"endpoint"`
	CollectionInterval int    `mapstructure:"collection_interval" yaml:"collection_interval"`
	Runtime            bool   `mapstructure:"runtime" yaml:"runtime"`
}

type TracesConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

const (
	elasticsearchEngine = "elasticsearch"
	opensearchEngine    = "opensearch"
)

var (
	errUnsupportedEngineType = errors.New("unsupported engine type, must be one of 'elasticsearch' or 'opensearch'")
	errMissingEngineURL      = errors.New("engine url must be provided")
	errMissingGeneratorURL   = errors.New("summarization generator url must be provided")
)

func (c *YAMLConfig) toServiceConfig() (*service.Config, error) {
	engineCfg, err := c.Engine.toEngineConfig()
	if err != nil {
		return nil, err
	}

	summarizationCfg, err := c.Summarization.toSummarizationConfig()
	if err != nil {
		return nil, err
	}

	return &service.Config{
		Store: docstore.Config{
			Engine:        engineCfg,
			BatchSize:     c.Store.BatchSize,
			QuerySize:     c.Store.QuerySize,
			ScanPageSize:  c.Store.Scan.PageSize,
			ScanKeepAlive: milliseconds(c.Store.Scan.KeepAlive),
		},
		Server: server.Config{
			Address:      c.Server.Address,
			ReadTimeout:  milliseconds(c.Server.ReadTimeout),
			WriteTimeout: milliseconds(c.Server.WriteTimeout),
			BodyLimit:    c.Server.BodyLimit,
		},
		Summarization:   summarizationCfg,
		ShutdownTimeout: milliseconds(c.ShutdownTimeout),
	}, nil
}

func (c *EngineConfig) toEngineConfig() (docstore.EngineConfig, error) {
	if c.URL == "" {
		return docstore.EngineConfig{}, errMissingEngineURL
	}

	cfg := docstore.EngineConfig{
		Username:        c.Username,
		Password:        c.Password,
		TLS:             c.TLS.parseTLSConfig(),
		RequestTimeout:  milliseconds(c.RequestTimeout),
		MaxRetries:      c.MaxRetries,
		VectorDimension: c.VectorDimension,
	}
	if exp := c.Backoff.parseExponentialBackoffConfig(); exp != nil {
		cfg.RetryBackoff = *exp
	}

	switch c.Type {
	case elasticsearchEngine:
		cfg.ElasticsearchURL = c.URL
	case opensearchEngine:
		cfg.OpenSearchURL = c.URL
	default:
		return docstore.EngineConfig{}, errUnsupportedEngineType
	}
	return cfg, nil
}

func (c *SummarizationConfig) toSummarizationConfig() (*service.SummarizationConfig, error) {
	if c == nil {
		return nil, nil
	}
	if c.Generator.URL == "" {
		return nil, errMissingGeneratorURL
	}

	return &service.SummarizationConfig{
		Summarizer: summarizer.Config{
			Model:             c.Model,
			MaxNewTokens:      c.MaxNewTokens,
			NumBeams:          c.NumBeams,
			RepetitionPenalty: c.RepetitionPenalty,
		},
		Generator: generator.Config{
			URL:     c.Generator.URL,
			Timeout: milliseconds(c.Generator.Timeout),
			Backoff: c.Generator.Backoff.parseBackoffConfig(),
		},
	}, nil
}

func (c *InstrumentationConfig) toOtelConfig() (*otel.Config, error) {
	cfg := &otel.Config{}
	if c.Metrics != nil {
		cfg.Metrics = &otel.MetricsConfig{
			Endpoint:           c.Metrics.Endpoint,
			CollectionInterval: milliseconds(c.Metrics.CollectionInterval),
			RuntimeMetrics:     c.Metrics.Runtime,
		}
	}
	if c.Traces != nil {
		cfg.Traces = &otel.TracesConfig{
			Endpoint:    c.Traces.Endpoint,
			SampleRatio: c.Traces.SampleRatio,
		}
	}
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *TLSConfig) parseTLSConfig() tls.Config {
	if t == nil {
		return tls.Config{Enabled: false}
	}
	return tls.Config{
		Enabled:            t.CACert != "" || t.ClientCert != "" || t.ClientKey != "",
		CaCertFile:         t.CACert,
		ClientCertFile:     t.ClientCert,
		ClientKeyFile:      t.ClientKey,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}
}

func (bo *BackoffConfig) parseBackoffConfig() backoff.Config {
	if bo == nil {
		return backoff.Config{}
	}
	return backoff.Config{
		Exponential: bo.parseExponentialBackoffConfig(),
		Constant:    bo.parseConstantBackoffConfig(),
	}
}

func (bo *BackoffConfig) parseExponentialBackoffConfig() *backoff.ExponentialConfig {
	if bo == nil || bo.Exponential == nil {
		return nil
	}
	return &backoff.ExponentialConfig{
		InitialInterval: milliseconds(bo.Exponential.InitialInterval),
		MaxInterval:     milliseconds(bo.Exponential.MaxInterval),
		MaxRetries:      uint(bo.Exponential.MaxRetries),
	}
}

func (bo *BackoffConfig) parseConstantBackoffConfig() *backoff.ConstantConfig {
	if bo == nil || bo.Constant == nil {
		return nil
	}
	return &backoff.ConstantConfig{
		Interval:   milliseconds(bo.Constant.Interval),
		MaxRetries: uint(bo.Constant.MaxRetries),
	}
}

func milliseconds(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
