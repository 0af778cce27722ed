// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xataio/docsync/internal/searchstore"
	"github.com/xataio/docsync/pkg/otel"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Client wraps a search engine client with tracing spans for every call and
// a counter of bulk item outcomes.
type Client struct {
	inner   searchstore.Client
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *clientMetrics
}

type clientMetrics struct {
	bulkItems metric.Int64Counter
}

func NewClient(inner searchstore.Client, instrumentation *otel.Instrumentation) (searchstore.Client, error) {
	if !instrumentation.IsEnabled() {
		return inner, nil
	}

	c := &Client{
		inner:   inner,
		tracer:  instrumentation.Tracer,
		meter:   instrumentation.Meter,
		metrics: &clientMetrics{},
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("error initialising search client metrics: %w", err)
	}

	return c, nil
}

func (c *Client) Count(ctx context.Context, index string) (count int, err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.Count", trace.WithAttributes(indexAttr(index)))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.Count(ctx, index)
}

func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]any) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.CreateIndex", trace.WithAttributes(indexAttr(index)))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.CreateIndex(ctx, index, body)
}

func (c *Client) DeleteIndex(ctx context.Context, index []string) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.DeleteIndex", trace.WithAttributes(
		attribute.StringSlice("indices", index),
	))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.DeleteIndex(ctx, index)
}

func (c *Client) IndexExists(ctx context.Context, index string) (exists bool, err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.IndexExists", trace.WithAttributes(indexAttr(index)))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.IndexExists(ctx, index)
}

func (c *Client) RefreshIndex(ctx context.Context, index string) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.RefreshIndex", trace.WithAttributes(indexAttr(index)))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.RefreshIndex(ctx, index)
}

func (c *Client) DeleteDocument(ctx context.Context, req *searchstore.DeleteDocumentRequest) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.DeleteDocument", trace.WithAttributes(
		indexAttr(req.Index),
		attribute.String("id", req.ID),
	))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.DeleteDocument(ctx, req)
}

func (c *Client) UpdateByQuery(ctx context.Context, req *searchstore.UpdateByQueryRequest) (resp *searchstore.UpdateByQueryResponse, err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.UpdateByQuery", trace.WithAttributes(indexAttr(req.Index)))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.UpdateByQuery(ctx, req)
}

func (c *Client) Search(ctx context.Context, req *searchstore.SearchRequest) (resp *searchstore.SearchResponse, err error) {
	attrs := []attribute.KeyValue{}
	if req.Index != nil {
		attrs = append(attrs, indexAttr(*req.Index))
	}
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.Search", trace.WithAttributes(attrs...))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.Search(ctx, req)
}

func (c *Client) Scroll(ctx context.Context, req *searchstore.ScrollRequest) (resp *searchstore.SearchResponse, err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.Scroll")
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.Scroll(ctx, req)
}

func (c *Client) ClearScroll(ctx context.Context, scrollID string) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.ClearScroll")
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.ClearScroll(ctx, scrollID)
}

func (c *Client) SendBulkRequest(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) (err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "searchClient.SendBulkRequest", trace.WithAttributes(
		attribute.Int("itemCount", len(items)),
	))
	defer func() { otel.CloseSpan(span, err) }()

	return c.inner.SendBulkRequest(ctx, items, func(res searchstore.BulkItemResult) error {
		if c.metrics.bulkItems != nil {
			c.metrics.bulkItems.Add(ctx, 1, metric.WithAttributes(
				attribute.String("action", res.Action),
				attribute.String("status", strconv.Itoa(res.Status)),
			))
		}
		return onResult(res)
	})
}

func (c *Client) GetMapper() searchstore.Mapper {
	return c.inner.GetMapper()
}

func (c *Client) initMetrics() error {
	if c.meter == nil {
		return nil
	}

	var err error
	c.metrics.bulkItems, err = c.meter.Int64Counter("docsync.search.bulk.items",
		metric.WithUnit("items"),
		metric.WithDescription("Count of bulk items processed by action and status"))
	if err != nil {
		return err
	}

	return nil
}

func indexAttr(index string) attribute.KeyValue {
	return attribute.String("index", index)
}
