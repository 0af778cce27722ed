// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xataio/docsync/internal/backoff"
	httplib "github.com/xataio/docsync/internal/http"
	"github.com/xataio/docsync/internal/json"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/summarizer"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client sends generation requests to the model inference service over HTTP.
type Client struct {
	client          httplib.Client
	url             string
	backoffProvider backoff.Provider
	logger          loglib.Logger
	tracer          trace.Tracer
}

type Option func(*Client)

type generationResponse struct {
	Text string `json:"text"`
}

// StatusError is returned when the service replies with a non 200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator returned status %d: %s", e.StatusCode, e.Body)
}

var (
	ErrMissingURL      = errors.New("generator url must be provided")
	errEmptyGeneration = errors.New("generator returned no text")
)

const maxErrorBodyBytes = 4096

func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}

	c := &Client{
		client: &http.Client{
			Timeout: cfg.timeout(),
		},
		url:             cfg.URL,
		backoffProvider: backoff.NewProvider(&cfg.Backoff),
		logger:          loglib.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func WithLogger(l loglib.Logger) Option {
	return func(c *Client) {
		c.logger = loglib.NewModuleLogger(l, "summarizer_generator")
	}
}

func WithInstrumentation(i *otel.Instrumentation) Option {
	return func(c *Client) {
		if i.IsEnabled() && i.Tracer != nil {
			c.tracer = i.Tracer
		}
	}
}

func withHTTPClient(client httplib.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// Generate sends the request and returns the generated text. Timeouts,
// throttling and server errors are retried according to the backoff
// configuration; any other failure is returned straight away.
func (c *Client) Generate(ctx context.Context, req *summarizer.GenerationRequest) (text string, err error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = otel.StartSpan(ctx, c.tracer, "generator.Generate", trace.WithAttributes(
			attribute.Int("generator.prompt_length", len(req.Prompt)),
			attribute.Int("generator.num_beams", req.NumBeams),
		))
		defer func() { otel.CloseSpan(span, err) }()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshalling generation request: %w", err)
	}

	bo := c.backoffProvider(ctx)
	err = bo.RetryNotify(func() error {
		var sendErr error
		text, sendErr = c.send(ctx, payload)
		return sendErr
	}, func(err error, d time.Duration) {
		c.logger.Warn(err, "generation failed, retrying", loglib.Fields{
			"url":     c.url,
			"backoff": d,
		})
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) send(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: building generation request: %w", backoff.ErrPermanent, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: sending generation request: %w", backoff.ErrPermanent, err)
		}
		return "", fmt.Errorf("sending generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if isRetryableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", fmt.Errorf("%w: %w", backoff.ErrPermanent, statusErr)
	}

	genResp := generationResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decoding generation response: %w", backoff.ErrPermanent, err)
	}
	if genResp.Text == "" {
		return "", fmt.Errorf("%w: %w", backoff.ErrPermanent, errEmptyGeneration)
	}
	return genResp.Text, nil
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
