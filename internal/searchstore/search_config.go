// SPDX-License-Identifier: Apache-2.0

package searchstore

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xataio/docsync/internal/backoff"
	"github.com/xataio/docsync/pkg/tls"
)

type ClientConfig struct {
	URL      string
	Username string
	Password string
	TLS      tls.Config
	// RequestTimeout bounds the wait for the response headers of each request.
	// Defaults to 30s.
	RequestTimeout time.Duration
	// MaxRetries for requests failing with a retryable status. Defaults to 10.
	MaxRetries   *int
	RetryBackoff backoff.ExponentialConfig
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 10
)

var ErrMissingAddress = errors.New("no address provided")

// RetryOnStatus lists the status codes the engine transports retry on.
var RetryOnStatus = []int{
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

func (c *ClientConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return defaultRequestTimeout
}

func (c *ClientConfig) GetMaxRetries() int {
	if c.MaxRetries != nil {
		return *c.MaxRetries
	}
	return defaultMaxRetries
}

// Transport returns the http transport for the engine clients, with the TLS
// and timeout settings applied.
func (c *ClientConfig) Transport() (*http.Transport, error) {
	tlsCfg, err := tls.NewConfig(&c.TLS)
	if err != nil {
		return nil, fmt.Errorf("building tls config: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	transport.ResponseHeaderTimeout = c.GetRequestTimeout()
	return transport, nil
}

// RetryBackoffFn returns the wait between transport retries.
func (c *ClientConfig) RetryBackoffFn() func(attempt int) time.Duration {
	return backoff.AttemptBackoff(&c.RetryBackoff)
}
