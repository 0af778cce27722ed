// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/internal/searchstore"
	"github.com/xataio/docsync/internal/searchstore/elasticsearch"
	searchstoremocks "github.com/xataio/docsync/internal/searchstore/mocks"
	loglib "github.com/xataio/docsync/pkg/log"
)

const testCollection = "books"

var testItemError = json.RawMessage(`{"type":"mapper_parsing_exception","reason":"failed to parse field"}`)

func newTestClient(t *testing.T, engine searchstore.Client, cfg *Config) *Client {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	c, err := NewClientWithEngine(engine, cfg)
	require.NoError(t, err)
	return c
}

// bulkResponder reports every item as successful except for the positions
// on input. Items without id get one generated from their position.
func bulkResponder(failed ...int) func(context.Context, []searchstore.BulkItem, func(searchstore.BulkItemResult) error) error {
	failedSet := map[int]bool{}
	for _, pos := range failed {
		failedSet[pos] = true
	}
	return func(_ context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
		for i, item := range items {
			res := searchstore.BulkItemResult{
				Position: i,
				Action:   "index",
				Index:    item.Index.Index,
				ID:       item.Index.ID,
				Status:   201,
				Result:   "created",
			}
			if res.ID == "" {
				res.ID = fmt.Sprintf("generated-%d", i)
			}
			if failedSet[i] {
				res.Status = 400
				res.Result = ""
				res.Error = testItemError
			}
			if err := onResult(res); err != nil {
				return err
			}
		}
		return nil
	}
}

func esMapper() searchstore.Mapper {
	return elasticsearch.NewMapper()
}

func searchResponse(hits ...searchstore.Hit) *searchstore.SearchResponse {
	resp := &searchstore.SearchResponse{}
	resp.Hits.Total.Value = len(hits)
	resp.Hits.Total.Relation = "eq"
	resp.Hits.Hits = hits
	return resp
}

func testDocuments(n int) []Document {
	docs := make([]Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, Document{"id": fmt.Sprintf("doc-%d", i), "title": fmt.Sprintf("title %d", i)})
	}
	return docs
}

// probeEngine returns an engine where the existence probe finds the ids on
// input.
func probeEngine(t *testing.T, existing ...string) *searchstoremocks.Client {
	found := map[string]bool{}
	for _, id := range existing {
		found[id] = true
	}
	return &searchstoremocks.Client{
		SearchFn: func(ctx context.Context, req *searchstore.SearchRequest) (*searchstore.SearchResponse, error) {
			require.Equal(t, testCollection, *req.Index)
			require.Equal(t, 1, *req.Size)
			var body struct {
				Query struct {
					IDs struct {
						Values []string `json:"values"`
					} `json:"ids"`
				} `json:"query"`
			}
			require.NoError(t, json.NewDecoder(req.Query).Decode(&body))
			require.Len(t, body.Query.IDs.Values, 1)
			id := body.Query.IDs.Values[0]
			if !found[id] {
				return searchResponse(), nil
			}
			return searchResponse(searchstore.Hit{ID: id, Index: testCollection, Source: map[string]any{"title": "dune"}}), nil
		},
	}
}

type logEntry struct {
	level  string
	err    error
	msg    string
	fields loglib.Fields
}

// recordingLogger keeps the log entries in memory.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level string, err error, msg string, fields []loglib.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var merged loglib.Fields
	for _, f := range fields {
		merged = loglib.MergeFields(merged, f)
	}
	l.entries = append(l.entries, logEntry{level: level, err: err, msg: msg, fields: merged})
}

func (l *recordingLogger) Trace(msg string, fields ...loglib.Fields) {
	l.record("trace", nil, msg, fields)
}

func (l *recordingLogger) Debug(msg string, fields ...loglib.Fields) {
	l.record("debug", nil, msg, fields)
}

func (l *recordingLogger) Info(msg string, fields ...loglib.Fields) {
	l.record("info", nil, msg, fields)
}

func (l *recordingLogger) Warn(err error, msg string, fields ...loglib.Fields) {
	l.record("warn", err, msg, fields)
}

func (l *recordingLogger) Error(err error, msg string, fields ...loglib.Fields) {
	l.record("error", err, msg, fields)
}

func (l *recordingLogger) Panic(msg string, fields ...loglib.Fields) {
	l.record("panic", nil, msg, fields)
}

func (l *recordingLogger) WithFields(loglib.Fields) loglib.Logger {
	return l
}

func (l *recordingLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := []logEntry{}
	for _, e := range l.entries {
		if e.level == level {
			entries = append(entries, e)
		}
	}
	return entries
}
