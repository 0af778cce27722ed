// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/xataio/docsync/pkg/docstore"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/server"
	"github.com/xataio/docsync/pkg/summarizer"
	"github.com/xataio/docsync/pkg/summarizer/generator"
)

type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// NewStore returns a document store client for the engine configured.
func NewStore(config *Config, logger loglib.Logger, instrumentation *otel.Instrumentation) (*docstore.Client, error) {
	if err := config.IsValid(); err != nil {
		return nil, fmt.Errorf("incompatible configuration: %w", err)
	}

	store, err := docstore.NewClient(&config.Store,
		docstore.WithLogger(logger),
		docstore.WithInstrumentation(instrumentation))
	if err != nil {
		return nil, fmt.Errorf("error setting up document store client: %w", err)
	}
	return store, nil
}

// Run serves the docsync HTTP API until the context is cancelled. This call
// is blocking.
func Run(ctx context.Context, logger loglib.Logger, config *Config, instrumentation *otel.Instrumentation) error {
	store, err := NewStore(config, logger, instrumentation)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(logger)}
	summ, err := newSummarizer(config.Summarization, logger, instrumentation)
	if err != nil {
		return err
	}
	if summ != nil {
		logger.Info("summarization enabled")
		opts = append(opts, server.WithSummarizer(summ))
	}

	return run(ctx, logger, server.New(&config.Server, store, opts...), config)
}

func run(ctx context.Context, logger loglib.Logger, srv httpServer, config *Config) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer logger.Info("stopping docsync server...")
		logger.Info("starting docsync server...")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.shutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return nil
}

func newSummarizer(config *SummarizationConfig, logger loglib.Logger, instrumentation *otel.Instrumentation) (*summarizer.Summarizer, error) {
	if config == nil {
		return nil, nil
	}

	gen, err := generator.NewClient(&config.Generator,
		generator.WithLogger(logger),
		generator.WithInstrumentation(instrumentation))
	if err != nil {
		return nil, fmt.Errorf("error setting up summary generator: %w", err)
	}

	return summarizer.New(gen, &config.Summarizer, summarizer.WithLogger(logger)), nil
}
