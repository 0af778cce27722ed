// SPDX-License-Identifier: Apache-2.0

package searchstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/xataio/docsync/internal/json"
)

// Client is the set of engine operations the document store relies on. It is
// implemented for Elasticsearch and OpenSearch.
type Client interface {
	Count(ctx context.Context, index string) (int, error)
	CreateIndex(ctx context.Context, index string, body map[string]any) error
	DeleteIndex(ctx context.Context, index []string) error
	IndexExists(ctx context.Context, index string) (bool, error)
	RefreshIndex(ctx context.Context, index string) error
	DeleteDocument(ctx context.Context, req *DeleteDocumentRequest) error
	UpdateByQuery(ctx context.Context, req *UpdateByQueryRequest) (*UpdateByQueryResponse, error)
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
	Scroll(ctx context.Context, req *ScrollRequest) (*SearchResponse, error)
	ClearScroll(ctx context.Context, scrollID string) error
	// SendBulkRequest submits all the items in one bulk request. The per item
	// results are passed to onResult in the order they are decoded from the
	// response stream. An error returned by onResult stops the decoding.
	SendBulkRequest(ctx context.Context, items []BulkItem, onResult func(BulkItemResult) error) error
	GetMapper() Mapper
}

// Performer sends raw HTTP requests through the engine client transport,
// reusing its connection pool, authentication and retry policy.
type Performer interface {
	Perform(req *http.Request) (*http.Response, error)
}

func Ptr[T any](i T) *T { return &i }

// CreateReader returns a reader on the JSON representation of the given value.
func CreateReader(value any) (*bytes.Reader, error) {
	bytesValue, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("unexpected marshaling error: %w", err)
	}
	return bytes.NewReader(bytesValue), nil
}
