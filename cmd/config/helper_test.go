// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/internal/backoff"
	"github.com/xataio/docsync/pkg/docstore"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/server"
	"github.com/xataio/docsync/pkg/service"
	"github.com/xataio/docsync/pkg/summarizer"
	"github.com/xataio/docsync/pkg/summarizer/generator"
	"github.com/xataio/docsync/pkg/tls"
)

// this function validates the service configuration produced from the test
// configuration in the test directory.
func validateTestServiceConfig(t *testing.T, serviceConfig *service.Config) {
	maxRetries := 3
	expectedConfig := &service.Config{
		Store: docstore.Config{
			Engine: docstore.EngineConfig{
				OpenSearchURL: "http://localhost:9200",
				Username:      "admin",
				Password:      "admin",
				TLS: tls.Config{
					Enabled:        true,
					CaCertFile:     "/path/to/ca.crt",
					ClientCertFile: "/path/to/client.crt",
					ClientKeyFile:  "/path/to/client.key",
				},
				RequestTimeout: 30 * time.Second,
				MaxRetries:     &maxRetries,
				RetryBackoff: backoff.ExponentialConfig{
					InitialInterval: 100 * time.Millisecond,
					MaxInterval:     5 * time.Second,
				},
				VectorDimension: 384,
			},
			BatchSize:     100,
			ScanPageSize:  500,
			ScanKeepAlive: 2 * time.Minute,
			QuerySize:     20,
		},
		Server: server.Config{
			Address:      "localhost:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			BodyLimit:    "10M",
		},
		Summarization: &service.SummarizationConfig{
			Summarizer: summarizer.Config{
				Model:             "facebook/bart-large",
				MaxNewTokens:      512,
				NumBeams:          2,
				RepetitionPenalty: 1.2,
			},
			Generator: generator.Config{
				URL:     "http://localhost:8000/generate",
				Timeout: time.Minute,
				Backoff: backoff.Config{
					Exponential: &backoff.ExponentialConfig{
						InitialInterval: time.Second,
						MaxInterval:     time.Minute,
						MaxRetries:      5,
					},
				},
			},
		},
		ShutdownTimeout: 15 * time.Second,
	}

	require.Equal(t, expectedConfig, serviceConfig)
}

// this function validates the otel configuration produced from the test
// configuration in the test directory.
func validateTestOtelConfig(t *testing.T, otelConfig *otel.Config) {
	require.Equal(t, &otel.Config{
		Metrics: &otel.MetricsConfig{
			Endpoint:           "http://localhost:4317",
			CollectionInterval: 60 * time.Second,
			RuntimeMetrics:     true,
		},
		Traces: &otel.TracesConfig{
			Endpoint:    "http://localhost:4317",
			SampleRatio: 0.5,
		},
	}, otelConfig)
}
