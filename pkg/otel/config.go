// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"errors"
	"time"
)

type Config struct {
	Metrics *MetricsConfig
	Traces  *TracesConfig
	// ServiceVersion is reported as the service.version resource attribute.
	// It defaults to the version recorded in the binary build info.
	ServiceVersion string
}

type MetricsConfig struct {
	Endpoint           string
	CollectionInterval time.Duration
	// RuntimeMetrics enables the go runtime metrics (memory, goroutines, gc)
	// on the configured meter provider.
	RuntimeMetrics bool
}

type TracesConfig struct {
	Endpoint    string
	SampleRatio float64
}

var ErrInvalidSampleRatio = errors.New("trace sample ratio must be between 0 and 1")

const defaultCollectionInterval = 60 * time.Second

func (c *Config) IsValid() error {
	if c.Traces != nil && (c.Traces.SampleRatio < 0 || c.Traces.SampleRatio > 1) {
		return ErrInvalidSampleRatio
	}
	return nil
}

func (c *MetricsConfig) collectionInterval() time.Duration {
	if c.CollectionInterval != 0 {
		return c.CollectionInterval
	}
	return defaultCollectionInterval
}
