// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"sort"

	"github.com/xataio/docsync/internal/searchstore"
)

// QueryByFields returns the documents matching any of the field values on
// input. No match is an empty result, not an error.
func (c *Client) QueryByFields(ctx context.Context, collection string, fields map[string]any) (*QueryResult, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &ArgumentError{Argument: "fields", Index: -1, Reason: "must set at least one field"}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	should := make([]searchstore.Condition, 0, len(names))
	for _, name := range names {
		should = append(should, searchstore.Condition{
			Match: map[string]any{name: fields[name]},
		})
	}

	return c.search(ctx, collection, searchstore.QueryBody{
		Query: &searchstore.Query{
			Bool: &searchstore.BoolFilter{
				Should:             should,
				MinimumShouldMatch: 1,
			},
		},
	})
}

// CustomQuery runs the query clause on input as is. It's the value of the
// "query" key of a search request.
func (c *Client) CustomQuery(ctx context.Context, collection string, query map[string]any) (*QueryResult, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, &ArgumentError{Argument: "query", Index: -1, Reason: "must not be empty"}
	}

	return c.search(ctx, collection, searchstore.RawQueryBody{Query: query})
}

func (c *Client) search(ctx context.Context, collection string, body any) (*QueryResult, error) {
	reader, err := searchstore.CreateReader(body)
	if err != nil {
		return nil, &ArgumentError{Argument: "query", Index: -1, Reason: err.Error()}
	}

	resp, err := c.engine.Search(ctx, &searchstore.SearchRequest{
		Index: &collection,
		Size:  &c.querySize,
		Query: reader,
	})
	if err != nil {
		return nil, newEngineError("searching collection", err)
	}

	result := &QueryResult{
		Total: resp.Hits.Total.Value,
		Hits:  make([]Hit, 0, len(resp.Hits.Hits)),
	}
	for i := range resp.Hits.Hits {
		result.Hits = append(result.Hits, newHit(&resp.Hits.Hits[i]))
	}
	return result, nil
}
