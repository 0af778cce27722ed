// SPDX-License-Identifier: Apache-2.0

package server

import "time"

type Config struct {
	// Address for the server to listen on. The format is "host:port". Defaults
	// to ":8080".
	Address string
	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Defaults to 30s, since ingestion bodies can be
	// large.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Defaults to 5m, to accommodate summarization and exports.
	WriteTimeout time.Duration
	// BodyLimit is the max request body size, in the format accepted by the
	// echo body limit middleware (e.g. "10M"). Defaults to "50M".
	BodyLimit string
}

const (
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 5 * time.Minute
	defaultServerAddress      = ":8080"
	defaultBodyLimit          = "50M"
)

func (c *Config) readTimeout() time.Duration {
	if c.ReadTimeout > 0 {
		return c.ReadTimeout
	}
	return defaultServerReadTimeout
}

func (c *Config) writeTimeout() time.Duration {
	if c.WriteTimeout > 0 {
		return c.WriteTimeout
	}
	return defaultServerWriteTimeout
}

func (c *Config) address() string {
	if c.Address != "" {
		return c.Address
	}
	return defaultServerAddress
}

func (c *Config) bodyLimit() string {
	if c.BodyLimit != "" {
		return c.BodyLimit
	}
	return defaultBodyLimit
}
