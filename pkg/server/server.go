// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"

	httplib "github.com/xataio/docsync/internal/http"
	"github.com/xataio/docsync/pkg/docstore"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/summarizer"
)

// Server exposes the document store and the summarizer over HTTP.
type Server struct {
	server     httplib.Server
	router     *echo.Echo
	logger     loglib.Logger
	store      docstore.Store
	summarizer summaryService
	address    string
}

type summaryService interface {
	Summarize(ctx context.Context, document string, targets []summarizer.Target) ([]summarizer.Summary, error)
}

type Option func(*Server)

// New returns a server for the store on input. The summarizer is optional,
// summarization requests are rejected when it's not set.
func New(cfg *Config, store docstore.Store, opts ...Option) *Server {
	s := &Server{
		address: cfg.address(),
		store:   store,
		logger:  loglib.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.readTimeout()
	e.Server.WriteTimeout = cfg.writeTimeout()
	e.JSONSerializer = &jsonSerializer{}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.bodyLimit()))

	e.GET("/health", s.health)
	e.POST("/summarize", s.summarize)

	collections := e.Group("/collections/:collection")
	collections.PUT("", s.createCollection)
	collections.DELETE("", s.deleteCollection)
	collections.POST("/documents", s.createDocuments)
	collections.GET("/documents/:id", s.readDocument)
	collections.PATCH("/documents/:id", s.updateDocument)
	collections.DELETE("/documents/:id", s.deleteDocument)
	collections.POST("/query", s.queryByFields)
	collections.POST("/search", s.customQuery)
	collections.GET("/export", s.export)

	s.router = e
	s.server = e

	return s
}

func WithLogger(l loglib.Logger) Option {
	return func(s *Server) {
		s.logger = loglib.NewModuleLogger(l, "docsync_server")
	}
}

func WithSummarizer(summ summaryService) Option {
	return func(s *Server) {
		s.summarizer = summ
	}
}

// Start will start the server. This call is blocking.
func (s *Server) Start() error {
	s.logger.Info(fmt.Sprintf("docsync server listening on: %s...", s.address))
	return s.server.Start(s.address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := loglib.Fields{
				loglib.RequestIDField: v.RequestID,
				"method":              v.Method,
				"uri":                 v.URI,
				"status":              v.Status,
				"latency":             v.Latency,
			}
			if v.Error != nil {
				s.logger.Error(v.Error, "request failed", fields)
				return nil
			}
			s.logger.Debug("request served", fields)
			return nil
		},
	})
}
