// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync/atomic"

	"github.com/xataio/docsync/internal/searchstore"
)

type Client struct {
	CountFn           func(ctx context.Context, index string) (int, error)
	CreateIndexFn     func(ctx context.Context, index string, body map[string]any) error
	DeleteIndexFn     func(ctx context.Context, index []string) error
	IndexExistsFn     func(ctx context.Context, index string) (bool, error)
	RefreshIndexFn    func(ctx context.Context, index string) error
	DeleteDocumentFn  func(ctx context.Context, req *searchstore.DeleteDocumentRequest) error
	UpdateByQueryFn   func(ctx context.Context, req *searchstore.UpdateByQueryRequest) (*searchstore.UpdateByQueryResponse, error)
	SearchFn          func(ctx context.Context, req *searchstore.SearchRequest) (*searchstore.SearchResponse, error)
	ScrollFn          func(ctx context.Context, req *searchstore.ScrollRequest) (*searchstore.SearchResponse, error)
	ClearScrollFn     func(ctx context.Context, scrollID string) error
	SendBulkRequestFn func(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error
	GetMapperFn       func() searchstore.Mapper

	searchCalls      atomic.Uint64
	scrollCalls      atomic.Uint64
	clearScrollCalls atomic.Uint64
	bulkCalls        atomic.Uint64
	deleteDocCalls   atomic.Uint64
	updateCalls      atomic.Uint64
}

func (m *Client) Count(ctx context.Context, index string) (int, error) {
	return m.CountFn(ctx, index)
}

func (m *Client) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	return m.CreateIndexFn(ctx, index, body)
}

func (m *Client) DeleteIndex(ctx context.Context, index []string) error {
	return m.DeleteIndexFn(ctx, index)
}

func (m *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	return m.IndexExistsFn(ctx, index)
}

func (m *Client) RefreshIndex(ctx context.Context, index string) error {
	return m.RefreshIndexFn(ctx, index)
}

func (m *Client) DeleteDocument(ctx context.Context, req *searchstore.DeleteDocumentRequest) error {
	m.deleteDocCalls.Add(1)
	return m.DeleteDocumentFn(ctx, req)
}

func (m *Client) UpdateByQuery(ctx context.Context, req *searchstore.UpdateByQueryRequest) (*searchstore.UpdateByQueryResponse, error) {
	m.updateCalls.Add(1)
	return m.UpdateByQueryFn(ctx, req)
}

func (m *Client) Search(ctx context.Context, req *searchstore.SearchRequest) (*searchstore.SearchResponse, error) {
	m.searchCalls.Add(1)
	return m.SearchFn(ctx, req)
}

func (m *Client) Scroll(ctx context.Context, req *searchstore.ScrollRequest) (*searchstore.SearchResponse, error) {
	m.scrollCalls.Add(1)
	return m.ScrollFn(ctx, req)
}

func (m *Client) ClearScroll(ctx context.Context, scrollID string) error {
	m.clearScrollCalls.Add(1)
	return m.ClearScrollFn(ctx, scrollID)
}

func (m *Client) SendBulkRequest(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
	m.bulkCalls.Add(1)
	return m.SendBulkRequestFn(ctx, items, onResult)
}

func (m *Client) GetMapper() searchstore.Mapper {
	return m.GetMapperFn()
}

func (m *Client) GetSearchCalls() uint64 {
	return m.searchCalls.Load()
}

func (m *Client) GetScrollCalls() uint64 {
	return m.scrollCalls.Load()
}

func (m *Client) GetClearScrollCalls() uint64 {
	return m.clearScrollCalls.Load()
}

func (m *Client) GetBulkCalls() uint64 {
	return m.bulkCalls.Load()
}

func (m *Client) GetDeleteDocumentCalls() uint64 {
	return m.deleteDocCalls.Load()
}

func (m *Client) GetUpdateByQueryCalls() uint64 {
	return m.updateCalls.Load()
}
