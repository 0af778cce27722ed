// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/xataio/docsync/internal/searchstore"
	"github.com/xataio/docsync/internal/searchstore/elasticsearch"
	searchinstrumentation "github.com/xataio/docsync/internal/searchstore/instrumentation"
	"github.com/xataio/docsync/internal/searchstore/opensearch"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/otel"
)

// Store is the document store API exposed to the server and the CLI.
type Store interface {
	CreateCollection(ctx context.Context, name string, mapping Mapping) error
	CreateCollectionWithNativeMapping(ctx context.Context, name string, native map[string]any) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	RefreshCollection(ctx context.Context, name string) error
	CountDocuments(ctx context.Context, name string) (int, error)
	CreateDocuments(ctx context.Context, collection string, docs []Document, idField string) (*FlushOutcome, error)
	ReadDocument(ctx context.Context, collection, id string) (*Hit, error)
	UpdateDocument(ctx context.Context, collection, id string, fields Document) error
	DeleteDocument(ctx context.Context, collection, id string) error
	QueryByFields(ctx context.Context, collection string, fields map[string]any) (*QueryResult, error)
	CustomQuery(ctx context.Context, collection string, query map[string]any) (*QueryResult, error)
	ScanEach(ctx context.Context, collection string, fn func(*Hit) error) error
}

// Client implements the Store on top of an Elasticsearch or OpenSearch
// cluster.
type Client struct {
	engine          searchstore.Client
	logger          loglib.Logger
	clock           clockwork.Clock
	instrumentation *otel.Instrumentation

	// writeMu serialises the enqueue and flush sequence of multi document
	// writes, since the batch writer holds a single pending batch.
	writeMu sync.Mutex
	writer  *BatchWriter

	batchSize       int
	vectorDimension int
	scanPageSize    int
	scanKeepAlive   time.Duration
	querySize       int
}

type Option func(*Client)

// NewClient connects to the engine selected in the configuration.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	engine, err := newEngineClient(&cfg.Engine)
	if err != nil {
		return nil, err
	}
	return NewClientWithEngine(engine, cfg, opts...)
}

// NewClientWithEngine returns a client using the engine client on input.
func NewClientWithEngine(engine searchstore.Client, cfg *Config, opts ...Option) (*Client, error) {
	c := &Client{
		engine:          engine,
		logger:          loglib.NewNoopLogger(),
		clock:           clockwork.NewRealClock(),
		batchSize:       cfg.batchSize(),
		vectorDimension: cfg.Engine.VectorDimension,
		scanPageSize:    cfg.scanPageSize(),
		scanKeepAlive:   cfg.scanKeepAlive(),
		querySize:       cfg.querySize(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.instrumentation.IsEnabled() {
		var err error
		c.engine, err = searchinstrumentation.NewClient(c.engine, c.instrumentation)
		if err != nil {
			return nil, err
		}
	}

	c.writer = NewBatchWriter(c.engine, c.batchSize,
		WithBatchWriterLogger(c.logger),
		WithBatchWriterClock(c.clock))

	return c, nil
}

func WithLogger(l loglib.Logger) Option {
	return func(c *Client) {
		c.logger = loglib.NewModuleLogger(l, "docstore")
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

func WithInstrumentation(i *otel.Instrumentation) Option {
	return func(c *Client) {
		c.instrumentation = i
	}
}

// CreateCollection validates the mapping and creates the collection with its
// engine native translation. An invalid mapping never reaches the engine.
func (c *Client) CreateCollection(ctx context.Context, name string, mapping Mapping) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if len(mapping) == 0 {
		return &ArgumentError{Argument: "schema", Index: -1, Reason: "must define at least one field"}
	}
	if err := mapping.Validate(); err != nil {
		return err
	}

	native, err := mapping.Translate(c.engine.GetMapper(), c.vectorDimension)
	if err != nil {
		return err
	}

	return c.createIndex(ctx, name, native)
}

// CreateCollectionWithNativeMapping creates the collection with a mapping
// already expressed in the engine format. The mapping is not validated.
func (c *Client) CreateCollectionWithNativeMapping(ctx context.Context, name string, native map[string]any) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if native == nil {
		return &ArgumentError{Argument: "schema", Index: -1, Reason: "must not be empty"}
	}
	return c.createIndex(ctx, name, native)
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if err := c.engine.DeleteIndex(ctx, []string{name}); err != nil {
		return newEngineError("deleting collection", err)
	}
	c.logger.Info("collection deleted", loglib.Fields{loglib.CollectionField: name})
	return nil
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := validateCollectionName(name); err != nil {
		return false, err
	}
	exists, err := c.engine.IndexExists(ctx, name)
	if err != nil {
		return false, newEngineError("checking collection", err)
	}
	return exists, nil
}

// RefreshCollection makes all the writes so far visible to searches.
func (c *Client) RefreshCollection(ctx context.Context, name string) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if err := c.engine.RefreshIndex(ctx, name); err != nil {
		return newEngineError("refreshing collection", err)
	}
	return nil
}

func (c *Client) CountDocuments(ctx context.Context, name string) (int, error) {
	if err := validateCollectionName(name); err != nil {
		return 0, err
	}
	count, err := c.engine.Count(ctx, name)
	if err != nil {
		return 0, newEngineError("counting documents", err)
	}
	return count, nil
}

func (c *Client) createIndex(ctx context.Context, name string, mappings map[string]any) error {
	body := map[string]any{"mappings": mappings}
	if settings := c.engine.GetMapper().GetDefaultIndexSettings(); len(settings) > 0 {
		body["settings"] = settings
	}

	if err := c.engine.CreateIndex(ctx, name, body); err != nil {
		return newEngineError("creating collection", err)
	}
	c.logger.Info("collection created", loglib.Fields{loglib.CollectionField: name})
	return nil
}

func newEngineClient(cfg *EngineConfig) (searchstore.Client, error) {
	clientCfg := func(url string) *searchstore.ClientConfig {
		return &searchstore.ClientConfig{
			URL:            url,
			Username:       cfg.Username,
			Password:       cfg.Password,
			TLS:            cfg.TLS,
			RequestTimeout: cfg.RequestTimeout,
			MaxRetries:     cfg.MaxRetries,
			RetryBackoff:   cfg.RetryBackoff,
		}
	}

	if err := cfg.IsValid(); err != nil {
		return nil, err
	}

	if cfg.ElasticsearchURL != "" {
		client, err := elasticsearch.NewClient(clientCfg(cfg.ElasticsearchURL))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := opensearch.NewClient(clientCfg(cfg.OpenSearchURL))
	if err != nil {
		return nil, err
	}
	return client, nil
}

const maxCollectionNameBytes = 255

// validateCollectionName applies the engine index naming rules, so that an
// invalid name is reported as an argument error without a round trip.
func validateCollectionName(name string) error {
	reason := ""
	switch {
	case name == "":
		reason = "must not be empty"
	case name == "." || name == "..":
		reason = "must not be . or .."
	case len(name) > maxCollectionNameBytes:
		reason = fmt.Sprintf("must be at most %d bytes long", maxCollectionNameBytes)
	case strings.ToLower(name) != name:
		reason = "must be lowercase"
	case strings.ContainsAny(name[:1], "-_+"):
		reason = "must not start with -, _ or +"
	case strings.ContainsAny(name, "\\/*?\"<>| ,#:"):
		reason = "must not contain \\, /, *, ?, \", <, >, |, space, comma, # or :"
	}

	if reason != "" {
		return &ArgumentError{Argument: "collection", Index: -1, Reason: reason}
	}
	return nil
}
