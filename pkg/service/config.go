// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"time"

	"github.com/xataio/docsync/pkg/docstore"
	"github.com/xataio/docsync/pkg/server"
	"github.com/xataio/docsync/pkg/summarizer"
	"github.com/xataio/docsync/pkg/summarizer/generator"
)

type Config struct {
	Store  docstore.Config
	Server server.Config
	// Summarization is optional. The summarize endpoint is disabled when it's
	// not set.
	Summarization *SummarizationConfig
	// ShutdownTimeout bounds the graceful shutdown of the server. Defaults to
	// 10s.
	ShutdownTimeout time.Duration
}

type SummarizationConfig struct {
	Summarizer summarizer.Config
	Generator  generator.Config
}

const defaultShutdownTimeout = 10 * time.Second

func (c *Config) IsValid() error {
	if err := c.Store.Engine.IsValid(); err != nil {
		return err
	}

	if c.Summarization != nil && c.Summarization.Generator.URL == "" {
		return fmt.Errorf("summarization: %w", generator.ErrMissingURL)
	}
	return nil
}

func (c *Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	return defaultShutdownTimeout
}
