// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"time"

	"github.com/xataio/docsync/internal/backoff"
)

type Config struct {
	// URL of the generation endpoint. Required.
	URL string
	// Timeout is the max time to wait for one generation. Defaults to 2m,
	// since beam search over long documents is slow.
	Timeout time.Duration
	// Backoff configures the retries of failed generations. No retries by
	// default.
	Backoff backoff.Config
}

const defaultTimeout = 2 * time.Minute

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}
