// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/xataio/docsync/pkg/docstore"
)

type Store struct {
	CreateCollectionFn                  func(ctx context.Context, name string, mapping docstore.Mapping) error
	CreateCollectionWithNativeMappingFn func(ctx context.Context, name string, native map[string]any) error
	DeleteCollectionFn                  func(ctx context.Context, name string) error
	CollectionExistsFn                  func(ctx context.Context, name string) (bool, error)
	RefreshCollectionFn                 func(ctx context.Context, name string) error
	CountDocumentsFn                    func(ctx context.Context, name string) (int, error)
	CreateDocumentsFn                   func(ctx context.Context, collection string, docs []docstore.Document, idField string) (*docstore.FlushOutcome, error)
	ReadDocumentFn                      func(ctx context.Context, collection, id string) (*docstore.Hit, error)
	UpdateDocumentFn                    func(ctx context.Context, collection, id string, fields docstore.Document) error
	DeleteDocumentFn                    func(ctx context.Context, collection, id string) error
	QueryByFieldsFn                     func(ctx context.Context, collection string, fields map[string]any) (*docstore.QueryResult, error)
	CustomQueryFn                       func(ctx context.Context, collection string, query map[string]any) (*docstore.QueryResult, error)
	ScanEachFn                          func(ctx context.Context, collection string, fn func(*docstore.Hit) error) error
}

func (m *Store) CreateCollection(ctx context.Context, name string, mapping docstore.Mapping) error {
	return m.CreateCollectionFn(ctx, name, mapping)
}

func (m *Store) CreateCollectionWithNativeMapping(ctx context.Context, name string, native map[string]any) error {
	return m.CreateCollectionWithNativeMappingFn(ctx, name, native)
}

func (m *Store) DeleteCollection(ctx context.Context, name string) error {
	return m.DeleteCollectionFn(ctx, name)
}

func (m *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	return m.CollectionExistsFn(ctx, name)
}

func (m *Store) RefreshCollection(ctx context.Context, name string) error {
	return m.RefreshCollectionFn(ctx, name)
}

func (m *Store) CountDocuments(ctx context.Context, name string) (int, error) {
	return m.CountDocumentsFn(ctx, name)
}

func (m *Store) CreateDocuments(ctx context.Context, collection string, docs []docstore.Document, idField string) (*docstore.FlushOutcome, error) {
	return m.CreateDocumentsFn(ctx, collection, docs, idField)
}

func (m *Store) ReadDocument(ctx context.Context, collection, id string) (*docstore.Hit, error) {
	return m.ReadDocumentFn(ctx, collection, id)
}

func (m *Store) UpdateDocument(ctx context.Context, collection, id string, fields docstore.Document) error {
	return m.UpdateDocumentFn(ctx, collection, id, fields)
}

func (m *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	return m.DeleteDocumentFn(ctx, collection, id)
}

func (m *Store) QueryByFields(ctx context.Context, collection string, fields map[string]any) (*docstore.QueryResult, error) {
	return m.QueryByFieldsFn(ctx, collection, fields)
}

func (m *Store) CustomQuery(ctx context.Context, collection string, query map[string]any) (*docstore.QueryResult, error) {
	return m.CustomQueryFn(ctx, collection, query)
}

func (m *Store) ScanEach(ctx context.Context, collection string, fn func(*docstore.Hit) error) error {
	return m.ScanEachFn(ctx, collection, fn)
}
