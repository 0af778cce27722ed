// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/pkg/docstore"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/summarizer/generator"
)

type mockServer struct {
	startFn     func() error
	shutdownFn  func(ctx context.Context) error
	shutdownCnt atomic.Int32
}

func (m *mockServer) Start() error {
	return m.startFn()
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdownCnt.Add(1)
	return m.shutdownFn(ctx)
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *Config

		wantErr error
	}{
		{
			name: "ok - elasticsearch",
			config: &Config{
				Store: docstore.Config{Engine: docstore.EngineConfig{ElasticsearchURL: "http://localhost:9200"}},
			},
			wantErr: nil,
		},
		{
			name: "ok - opensearch with summarization",
			config: &Config{
				Store:         docstore.Config{Engine: docstore.EngineConfig{OpenSearchURL: "http://localhost:9200", VectorDimension: 384}},
				Summarization: &SummarizationConfig{Generator: generator.Config{URL: "http://localhost:8000/generate"}},
			},
			wantErr: nil,
		},
		{
			name:    "error - no engine",
			config:  &Config{},
			wantErr: docstore.ErrMissingEngine,
		},
		{
			name: "error - opensearch without vector dimension",
			config: &Config{
				Store: docstore.Config{Engine: docstore.EngineConfig{OpenSearchURL: "http://localhost:9200"}},
			},
			wantErr: docstore.ErrMissingVectorDimension,
		},
		{
			name: "error - both engines",
			config: &Config{
				Store: docstore.Config{Engine: docstore.EngineConfig{
					ElasticsearchURL: "http://localhost:9200",
					OpenSearchURL:    "http://localhost:9201",
				}},
			},
			wantErr: docstore.ErrMultipleEngines,
		},
		{
			name: "error - summarization without generator url",
			config: &Config{
				Store:         docstore.Config{Engine: docstore.EngineConfig{ElasticsearchURL: "http://localhost:9200"}},
				Summarization: &SummarizationConfig{},
			},
			wantErr: generator.ErrMissingURL,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.config.IsValid()
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_run(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	t.Run("ok - shutdown on context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		srv := &mockServer{
			startFn: func() error {
				cancel()
				<-stopped
				return http.ErrServerClosed
			},
			shutdownFn: func(ctx context.Context) error {
				close(stopped)
				return nil
			},
		}

		err := run(ctx, loglib.NewNoopLogger(), srv, &Config{})
		require.NoError(t, err)
		require.Equal(t, int32(1), srv.shutdownCnt.Load())
	})

	t.Run("error - server start", func(t *testing.T) {
		t.Parallel()

		srv := &mockServer{
			startFn: func() error {
				return errTest
			},
			shutdownFn: func(ctx context.Context) error {
				return nil
			},
		}

		err := run(context.Background(), loglib.NewNoopLogger(), srv, &Config{})
		require.ErrorIs(t, err, errTest)
		require.Equal(t, int32(1), srv.shutdownCnt.Load())
	})
}

func Test_newSummarizer(t *testing.T) {
	t.Parallel()

	summ, err := newSummarizer(nil, loglib.NewNoopLogger(), nil)
	require.NoError(t, err)
	require.Nil(t, summ)

	summ, err = newSummarizer(&SummarizationConfig{
		Generator: generator.Config{URL: "http://localhost:8000/generate"},
	}, loglib.NewNoopLogger(), nil)
	require.NoError(t, err)
	require.NotNil(t, summ)

	_, err = newSummarizer(&SummarizationConfig{}, loglib.NewNoopLogger(), nil)
	require.ErrorIs(t, err, generator.ErrMissingURL)
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	_, err := NewStore(&Config{}, loglib.NewNoopLogger(), nil)
	require.ErrorIs(t, err, docstore.ErrMissingEngine)

	store, err := NewStore(&Config{
		Store: docstore.Config{Engine: docstore.EngineConfig{ElasticsearchURL: "http://localhost:9200"}},
	}, loglib.NewNoopLogger(), nil)
	require.NoError(t, err)
	require.NotNil(t, store)
}
