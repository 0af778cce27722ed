// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"errors"
	"time"

	"github.com/xataio/docsync/internal/backoff"
	"github.com/xataio/docsync/pkg/tls"
)

type Config struct {
	Engine EngineConfig
	// BatchSize is the number of write actions accumulated before they are
	// flushed to the engine in one bulk request. Defaults to 100.
	BatchSize int
	// ScanPageSize is the number of documents fetched per scroll page.
	// Defaults to 1000.
	ScanPageSize int
	// ScanKeepAlive is how long the engine keeps a scroll cursor alive
	// between page fetches. Defaults to 5m.
	ScanKeepAlive time.Duration
	// QuerySize is the max number of hits returned by field queries. Defaults
	// to 10.
	QuerySize int
}

// EngineConfig selects and configures the search engine. Exactly one of the
// URLs must be set.
type EngineConfig struct {
	ElasticsearchURL string
	OpenSearchURL    string
	Username         string
	Password         string
	TLS              tls.Config
	RequestTimeout   time.Duration
	MaxRetries       *int
	RetryBackoff     backoff.ExponentialConfig
	// VectorDimension is applied to dense vector fields. Required by
	// OpenSearch.
	VectorDimension int
}

var (
	ErrMissingEngine   = errors.New("one of elasticsearch or opensearch url must be provided")
	ErrMultipleEngines = errors.New("only one of elasticsearch or opensearch url can be provided")
	// ErrMissingVectorDimension is returned for OpenSearch engines without a
	// vector dimension, since knn_vector fields can't be mapped without one.
	ErrMissingVectorDimension = errors.New("opensearch requires a vector dimension greater than 0")
)

const (
	defaultBatchSize     = 100
	defaultScanPageSize  = 1000
	defaultScanKeepAlive = 5 * time.Minute
	defaultQuerySize     = 10
)

func (c *Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return defaultBatchSize
}

func (c *Config) scanPageSize() int {
	if c.ScanPageSize > 0 {
		return c.ScanPageSize
	}
	return defaultScanPageSize
}

func (c *Config) scanKeepAlive() time.Duration {
	if c.ScanKeepAlive > 0 {
		return c.ScanKeepAlive
	}
	return defaultScanKeepAlive
}

func (c *Config) querySize() int {
	if c.QuerySize > 0 {
		return c.QuerySize
	}
	return defaultQuerySize
}

// IsValid checks that exactly one engine is selected and that it can map
// every field type of the type table.
func (c *EngineConfig) IsValid() error {
	switch {
	case c.ElasticsearchURL == "" && c.OpenSearchURL == "":
		return ErrMissingEngine
	case c.ElasticsearchURL != "" && c.OpenSearchURL != "":
		return ErrMultipleEngines
	case c.OpenSearchURL != "" && c.VectorDimension <= 0:
		return ErrMissingVectorDimension
	}
	return nil
}
