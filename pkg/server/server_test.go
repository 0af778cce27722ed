// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/internal/searchstore"
	"github.com/xataio/docsync/pkg/docstore"
	"github.com/xataio/docsync/pkg/docstore/mocks"
	"github.com/xataio/docsync/pkg/summarizer"
)

const testCollection = "books"

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, document string, targets []summarizer.Target) ([]summarizer.Summary, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, document string, targets []summarizer.Target) ([]summarizer.Summary, error) {
	return m.summarizeFn(ctx, document, targets)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestServer_collections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		store  *mocks.Store

		wantStatus int
		wantBody   string
	}{
		{
			name:   "ok - create collection",
			method: http.MethodPut,
			path:   "/collections/books",
			body:   `{"schema":{"title":"text","author":{"name":"text"}}}`,
			store: &mocks.Store{
				CreateCollectionFn: func(ctx context.Context, name string, mapping docstore.Mapping) error {
					require.Equal(t, testCollection, name)
					require.Equal(t, docstore.Mapping{
						"title":  docstore.Leaf(docstore.TypeText),
						"author": docstore.Object(docstore.Mapping{"name": docstore.Leaf(docstore.TypeText)}),
					}, mapping)
					return nil
				},
			},

			wantStatus: http.StatusCreated,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:   "ok - create collection with custom schema",
			method: http.MethodPut,
			path:   "/collections/books",
			body:   `{"schema":{"properties":{"title":{"type":"keyword"}}},"custom_schema":true}`,
			store: &mocks.Store{
				CreateCollectionWithNativeMappingFn: func(ctx context.Context, name string, native map[string]any) error {
					require.Equal(t, map[string]any{
						"properties": map[string]any{"title": map[string]any{"type": "keyword"}},
					}, native)
					return nil
				},
			},

			wantStatus: http.StatusCreated,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:   "error - invalid schema",
			method: http.MethodPut,
			path:   "/collections/books",
			body:   `{"schema":{"title":"varchar"}}`,
			store: &mocks.Store{
				CreateCollectionFn: func(ctx context.Context, name string, mapping docstore.Mapping) error {
					return mapping.Validate()
				},
			},

			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"status":"error","error_kind":"SchemaError","message":"invalid schema field \"title\": unsupported type \"varchar\""}`,
		},
		{
			name:   "error - malformed body",
			method: http.MethodPut,
			path:   "/collections/books",
			body:   `{"schema":`,
			store:  &mocks.Store{},

			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "error - collection already exists",
			method: http.MethodPut,
			path:   "/collections/books",
			body:   `{"schema":{"title":"text"}}`,
			store: &mocks.Store{
				CreateCollectionFn: func(ctx context.Context, name string, mapping docstore.Mapping) error {
					return &docstore.EngineError{
						Op:    "creating collection",
						Kind:  docstore.KindAlreadyExists,
						Cause: searchstore.ErrResourceAlreadyExists{Reason: "exists"},
					}
				},
			},

			wantStatus: http.StatusConflict,
		},
		{
			name:   "ok - delete collection",
			method: http.MethodDelete,
			path:   "/collections/books",
			store: &mocks.Store{
				DeleteCollectionFn: func(ctx context.Context, name string) error {
					require.Equal(t, testCollection, name)
					return nil
				},
			},

			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := New(&Config{}, tc.store)
			w := doRequest(t, s, tc.method, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, w.Code)
			require.NotEmpty(t, w.Header().Get(echo.HeaderXRequestID))
			if tc.wantBody != "" {
				require.JSONEq(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func TestServer_documents(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		store  *mocks.Store

		wantStatus int
		wantBody   string
	}{
		{
			name:   "ok - create documents",
			method: http.MethodPost,
			path:   "/collections/books/documents",
			body:   `{"documents":[{"isbn":9780441013593,"title":"Dune"}],"id_field":"isbn"}`,
			store: &mocks.Store{
				CreateDocumentsFn: func(ctx context.Context, collection string, docs []docstore.Document, idField string) (*docstore.FlushOutcome, error) {
					require.Equal(t, "isbn", idField)
					// numbers keep their exact representation
					require.Equal(t, []docstore.Document{{"isbn": json.Number("9780441013593"), "title": "Dune"}}, docs)
					return &docstore.FlushOutcome{IDs: []string{"9780441013593"}, Flushes: 1}, nil
				},
			},

			wantStatus: http.StatusCreated,
			wantBody:   `{"status":"ok","data":{"ids":["9780441013593"],"flushes":1}}`,
		},
		{
			name:   "ok - create a single document",
			method: http.MethodPost,
			path:   "/collections/books/documents",
			body:   `{"documents":{"isbn":9780441013593,"title":"Dune"},"id_field":"isbn"}`,
			store: &mocks.Store{
				CreateDocumentsFn: func(ctx context.Context, collection string, docs []docstore.Document, idField string) (*docstore.FlushOutcome, error) {
					require.Equal(t, []docstore.Document{{"isbn": json.Number("9780441013593"), "title": "Dune"}}, docs)
					return &docstore.FlushOutcome{IDs: []string{"9780441013593"}, Flushes: 1}, nil
				},
			},

			wantStatus: http.StatusCreated,
			wantBody:   `{"status":"ok","data":{"ids":["9780441013593"],"flushes":1}}`,
		},
		{
			name:   "error - create documents from a scalar",
			method: http.MethodPost,
			path:   "/collections/books/documents",
			body:   `{"documents":"Dune"}`,
			store:  &mocks.Store{},

			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"error","error_kind":"ArgumentError","message":"invalid argument documents: must be a document or an array of documents"}`,
		},
		{
			name:   "ok - create documents with failures",
			method: http.MethodPost,
			path:   "/collections/books/documents",
			body:   `{"documents":[{"title":"Dune"},{"title":1}]}`,
			store: &mocks.Store{
				CreateDocumentsFn: func(ctx context.Context, collection string, docs []docstore.Document, idField string) (*docstore.FlushOutcome, error) {
					return &docstore.FlushOutcome{
						IDs: []string{"a"},
						Failures: []docstore.ActionFailure{
							{Op: docstore.OpIndex, Collection: testCollection, Status: 400, Error: json.RawMessage(`{"type":"mapper_parsing_exception"}`)},
						},
						Flushes: 1,
					}, nil
				},
			},

			wantStatus: http.StatusMultiStatus,
			wantBody:   `{"status":"ok","data":{"ids":["a"],"failures":[{"op":"index","collection":"books","status":400,"error":{"type":"mapper_parsing_exception"}}],"flushes":1}}`,
		},
		{
			name:   "error - create documents with invalid id",
			method: http.MethodPost,
			path:   "/collections/books/documents",
			body:   `{"documents":[{"title":"Dune"}],"id_field":"isbn"}`,
			store: &mocks.Store{
				CreateDocumentsFn: func(ctx context.Context, collection string, docs []docstore.Document, idField string) (*docstore.FlushOutcome, error) {
					return nil, &docstore.ArgumentError{Argument: "id_field", Index: 0, Reason: `missing id field "isbn"`}
				},
			},

			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"error","error_kind":"ArgumentError","message":"invalid argument id_field: document at index 0: missing id field \"isbn\""}`,
		},
		{
			name:   "ok - read document",
			method: http.MethodGet,
			path:   "/collections/books/documents/dune",
			store: &mocks.Store{
				ReadDocumentFn: func(ctx context.Context, collection, id string) (*docstore.Hit, error) {
					require.Equal(t, "dune", id)
					return &docstore.Hit{ID: id, Collection: collection, Source: docstore.Document{"title": "Dune"}}, nil
				},
			},

			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","data":{"id":"dune","collection":"books","source":{"title":"Dune"}}}`,
		},
		{
			name:   "error - read missing document",
			method: http.MethodGet,
			path:   "/collections/books/documents/emma",
			store: &mocks.Store{
				ReadDocumentFn: func(ctx context.Context, collection, id string) (*docstore.Hit, error) {
					return nil, &docstore.NotFoundError{Collection: collection, ID: id}
				},
			},

			wantStatus: http.StatusNotFound,
			wantBody:   `{"status":"not_found","error_kind":"NotFoundError","message":"document \"emma\" not found in collection \"books\""}`,
		},
		{
			name:   "ok - update document",
			method: http.MethodPatch,
			path:   "/collections/books/documents/dune",
			body:   `{"title":"Dune Messiah"}`,
			store: &mocks.Store{
				UpdateDocumentFn: func(ctx context.Context, collection, id string, fields docstore.Document) error {
					require.Equal(t, docstore.Document{"title": "Dune Messiah"}, fields)
					return nil
				},
			},

			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:   "error - partial update",
			method: http.MethodPatch,
			path:   "/collections/books/documents/dune",
			body:   `{"author":"Herbert","title":"Dune Messiah"}`,
			store: &mocks.Store{
				UpdateDocumentFn: func(ctx context.Context, collection, id string, fields docstore.Document) error {
					return &docstore.PartialUpdateError{ID: id, Applied: []string{"author"}, Field: "title", Cause: errTest}
				},
			},

			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "ok - delete document",
			method: http.MethodDelete,
			path:   "/collections/books/documents/dune",
			store: &mocks.Store{
				DeleteDocumentFn: func(ctx context.Context, collection, id string) error {
					return nil
				},
			},

			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:   "error - delete document transport failure",
			method: http.MethodDelete,
			path:   "/collections/books/documents/dune",
			store: &mocks.Store{
				DeleteDocumentFn: func(ctx context.Context, collection, id string) error {
					return &docstore.EngineError{Op: "deleting document", Kind: docstore.KindTransport, Cause: errTest}
				},
			},

			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := New(&Config{}, tc.store)
			w := doRequest(t, s, tc.method, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				require.JSONEq(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func TestServer_queries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  string
		body  string
		store *mocks.Store

		wantStatus int
		wantBody   string
	}{
		{
			name: "ok - query with no match",
			path: "/collections/books/query",
			body: `{"status":"open"}`,
			store: &mocks.Store{
				QueryByFieldsFn: func(ctx context.Context, collection string, fields map[string]any) (*docstore.QueryResult, error) {
					require.Equal(t, map[string]any{"status": "open"}, fields)
					return &docstore.QueryResult{Hits: []docstore.Hit{}}, nil
				},
			},

			wantStatus: http.StatusOK,
			wantBody:   `{"status":"no_documents","message":"no documents found","data":{"total":0,"hits":[]}}`,
		},
		{
			name: "ok - custom query",
			path: "/collections/books/search",
			body: `{"query":{"term":{"status":"open"}}}`,
			store: &mocks.Store{
				CustomQueryFn: func(ctx context.Context, collection string, query map[string]any) (*docstore.QueryResult, error) {
					require.Equal(t, map[string]any{"term": map[string]any{"status": "open"}}, query)
					return &docstore.QueryResult{
						Total: 1,
						Hits:  []docstore.Hit{{ID: "1", Collection: collection, Source: docstore.Document{"status": "open"}}},
					}, nil
				},
			},

			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","data":{"total":1,"hits":[{"id":"1","collection":"books","source":{"status":"open"}}]}}`,
		},
		{
			name: "error - invalid custom query",
			path: "/collections/books/search",
			body: `{"query":{"foo":{}}}`,
			store: &mocks.Store{
				CustomQueryFn: func(ctx context.Context, collection string, query map[string]any) (*docstore.QueryResult, error) {
					return nil, &docstore.EngineError{
						Op:    "searching collection",
						Kind:  docstore.KindRequest,
						Cause: searchstore.ErrQueryInvalid{Cause: errors.New("unknown query [foo]")},
					}
				},
			},

			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := New(&Config{}, tc.store)
			w := doRequest(t, s, http.MethodPost, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				require.JSONEq(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func TestServer_export(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	tests := []struct {
		name   string
		scanFn func(ctx context.Context, collection string, fn func(*docstore.Hit) error) error

		wantStatus      int
		wantContentType string
		wantBody        string
	}{
		{
			name: "ok",
			scanFn: func(ctx context.Context, collection string, fn func(*docstore.Hit) error) error {
				for _, id := range []string{"1", "2"} {
					if err := fn(&docstore.Hit{ID: id, Collection: collection, Source: docstore.Document{"n": id}}); err != nil {
						return err
					}
				}
				return nil
			},

			wantStatus:      http.StatusOK,
			wantContentType: ndjsonContentType,
			wantBody: `{"id":"1","collection":"books","source":{"n":"1"}}
{"id":"2","collection":"books","source":{"n":"2"}}
`,
		},
		{
			name: "ok - empty collection",
			scanFn: func(ctx context.Context, collection string, fn func(*docstore.Hit) error) error {
				return nil
			},

			wantStatus:      http.StatusOK,
			wantContentType: ndjsonContentType,
			wantBody:        "",
		},
		{
			name: "error - before the first document",
			scanFn: func(ctx context.Context, collection string, fn func(*docstore.Hit) error) error {
				return &docstore.EngineError{Op: "scanning collection", Kind: docstore.KindResourceNotFound, Cause: searchstore.ErrResourceNotFound}
			},

			wantStatus:      http.StatusNotFound,
			wantContentType: echo.MIMEApplicationJSON,
		},
		{
			name: "error - after the first document",
			scanFn: func(ctx context.Context, collection string, fn func(*docstore.Hit) error) error {
				if err := fn(&docstore.Hit{ID: "1", Collection: collection, Source: docstore.Document{}}); err != nil {
					return err
				}
				return errTest
			},

			wantStatus:      http.StatusOK,
			wantContentType: ndjsonContentType,
			wantBody: `{"id":"1","collection":"books","source":{}}
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := New(&Config{}, &mocks.Store{ScanEachFn: tc.scanFn})
			w := doRequest(t, s, http.MethodGet, "/collections/books/export", "")
			require.Equal(t, tc.wantStatus, w.Code)
			require.Contains(t, w.Header().Get(echo.HeaderContentType), tc.wantContentType)
			if tc.wantStatus == http.StatusOK {
				require.Equal(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func TestServer_summarize(t *testing.T) {
	t.Parallel()

	errTest := errors.New("oh noes")

	tests := []struct {
		name       string
		summarizer summaryService
		body       string

		wantStatus int
		wantBody   string
	}{
		{
			name: "ok",
			summarizer: &mockSummarizer{
				summarizeFn: func(ctx context.Context, document string, targets []summarizer.Target) ([]summarizer.Summary, error) {
					require.Equal(t, "Vladimir Putin met his commanders", document)
					require.Equal(t, []summarizer.Target{{UUID: 9999, SpanStart: 0, SpanEnd: 14}}, targets)
					return []summarizer.Summary{{TargetUUID: 9999, Summary: "the president"}}, nil
				},
			},
			body: `{"document":"Vladimir Putin met his commanders","targets":[{"target_uuid":9999,"span_start":0,"span_end":14}]}`,

			wantStatus: http.StatusOK,
			wantBody:   `{"summaries":[{"target_uuid":9999,"summary":"the president"}]}`,
		},
		{
			name: "error - generator failure",
			summarizer: &mockSummarizer{
				summarizeFn: func(ctx context.Context, document string, targets []summarizer.Target) ([]summarizer.Summary, error) {
					return nil, errTest
				},
			},
			body: `{"document":"doc","targets":[]}`,

			wantStatus: http.StatusBadGateway,
			wantBody:   `{"status":"error","message":"oh noes"}`,
		},
		{
			name: "error - not configured",
			body: `{"document":"doc","targets":[]}`,

			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"error","message":"summarization is not configured"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := []Option{}
			if tc.summarizer != nil {
				opts = append(opts, WithSummarizer(tc.summarizer))
			}
			s := New(&Config{}, &mocks.Store{}, opts...)
			w := doRequest(t, s, http.MethodPost, "/summarize", tc.body)
			require.Equal(t, tc.wantStatus, w.Code)
			require.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestServer_health(t *testing.T) {
	t.Parallel()

	s := New(&Config{}, &mocks.Store{})
	w := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func Test_httpStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    *docstore.Response
		success int

		wantStatus int
	}{
		{name: "ok", resp: &docstore.Response{Status: docstore.StatusOK}, success: http.StatusCreated, wantStatus: http.StatusCreated},
		{name: "no documents", resp: &docstore.Response{Status: docstore.StatusNoDocuments}, success: http.StatusOK, wantStatus: http.StatusOK},
		{name: "not found", resp: &docstore.Response{Status: docstore.StatusNotFound, ErrorKind: docstore.KindNotFound}, success: http.StatusOK, wantStatus: http.StatusNotFound},
		{name: "argument", resp: &docstore.Response{Status: docstore.StatusError, ErrorKind: docstore.KindArgument}, success: http.StatusOK, wantStatus: http.StatusBadRequest},
		{name: "authorization", resp: &docstore.Response{Status: docstore.StatusError, ErrorKind: docstore.KindAuthorization}, success: http.StatusOK, wantStatus: http.StatusBadGateway},
		{name: "unknown kind", resp: &docstore.Response{Status: docstore.StatusError, ErrorKind: "Other"}, success: http.StatusOK, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.wantStatus, httpStatus(tc.resp, tc.success))
		})
	}
}

func Test_decodeDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string

		wantDocs []docstore.Document
		wantErr  bool
	}{
		{
			name:     "array",
			raw:      `[{"n":1},{"n":2}]`,
			wantDocs: []docstore.Document{{"n": json.Number("1")}, {"n": json.Number("2")}},
		},
		{
			name:     "single object",
			raw:      ` {"title":"Dune"} `,
			wantDocs: []docstore.Document{{"title": "Dune"}},
		},
		{
			name:     "missing",
			raw:      ``,
			wantDocs: []docstore.Document{},
		},
		{
			name:     "null",
			raw:      `null`,
			wantDocs: []docstore.Document{},
		},
		{
			name:    "error - scalar",
			raw:     `42`,
			wantErr: true,
		},
		{
			name:    "error - array of scalars",
			raw:     `[1,2]`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			docs, err := decodeDocuments([]byte(tc.raw))
			if tc.wantErr {
				var argErr *docstore.ArgumentError
				require.ErrorAs(t, err, &argErr)
				require.Equal(t, "documents", argErr.Argument)
				require.Nil(t, docs)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantDocs, docs)
		})
	}
}
