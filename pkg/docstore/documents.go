// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/xataio/docsync/internal/searchstore"
	loglib "github.com/xataio/docsync/pkg/log"
)

const updateFieldScript = "ctx._source[params.field] = params.value"

// CreateDocuments writes the documents to the collection through the batch
// writer. When idField is set, every document must carry a value for it that
// can be represented as a string, and that value becomes the document id. The
// id checks run on all the documents before any of them is submitted.
//
// Per document engine failures don't stop the remaining documents, they are
// returned in the outcome failures.
func (c *Client) CreateDocuments(ctx context.Context, collection string, docs []Document, idField string) (*FlushOutcome, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, err
	}

	actions, err := documentActions(collection, docs, idField)
	if err != nil {
		return nil, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	outcome := newFlushOutcome()
	for _, action := range actions {
		flushed, err := c.writer.Enqueue(ctx, action)
		outcome.merge(flushed)
		if err != nil {
			return outcome, err
		}
	}

	flushed, err := c.writer.Flush(ctx)
	outcome.merge(flushed)
	if err != nil {
		return outcome, err
	}

	c.logger.Debug("documents created", loglib.Fields{
		loglib.CollectionField: collection,
		"documents":            len(docs),
		"failed":               len(outcome.Failures),
		"flushes":              outcome.Flushes,
	})
	return outcome, nil
}

// CreateDocument writes a single document. See CreateDocuments.
func (c *Client) CreateDocument(ctx context.Context, collection string, doc Document, idField string) (*FlushOutcome, error) {
	return c.CreateDocuments(ctx, collection, []Document{doc}, idField)
}

// ReadDocument returns the document with the given id.
func (c *Client) ReadDocument(ctx context.Context, collection, id string) (*Hit, error) {
	hit, err := c.probe(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	result := newHit(hit)
	return &result, nil
}

// DeleteDocument removes the document with the given id. The delete request is
// only sent if the document exists.
func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := c.probe(ctx, collection, id); err != nil {
		return err
	}

	if err := c.engine.DeleteDocument(ctx, &searchstore.DeleteDocumentRequest{
		Index: collection,
		ID:    id,
	}); err != nil {
		return newEngineError("deleting document", err)
	}
	return nil
}

// UpdateDocument sets the given fields on the document with the given id. Each
// field is written by its own update request, in field name order, so the
// update is not atomic: if one field fails, the fields before it remain
// applied and a *PartialUpdateError is returned.
func (c *Client) UpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	if len(fields) == 0 {
		return &ArgumentError{Argument: "fields", Index: -1, Reason: "must set at least one field"}
	}
	if _, err := c.probe(ctx, collection, id); err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	applied := make([]string, 0, len(names))
	for _, name := range names {
		if err := c.updateField(ctx, collection, id, name, fields[name]); err != nil {
			if len(applied) == 0 {
				return err
			}
			return &PartialUpdateError{ID: id, Applied: applied, Field: name, Cause: err}
		}
		applied = append(applied, name)
	}
	return nil
}

func (c *Client) updateField(ctx context.Context, collection, id, field string, value any) error {
	resp, err := c.engine.UpdateByQuery(ctx, &searchstore.UpdateByQueryRequest{
		Index: collection,
		Query: idsQuery(id),
		Script: &searchstore.Script{
			Source: updateFieldScript,
			Lang:   "painless",
			Params: map[string]any{
				"field": field,
				"value": value,
			},
		},
	})
	if err != nil {
		return newEngineError("updating document", err)
	}

	switch {
	case resp.VersionConflicts > 0:
		return &EngineError{
			Op:    "updating document",
			Kind:  KindConflict,
			Cause: fmt.Errorf("%w: %d version conflicts", searchstore.ErrConflict, resp.VersionConflicts),
		}
	case len(resp.Failures) > 0:
		return &EngineError{
			Op:    "updating document",
			Kind:  KindEngine,
			Cause: fmt.Errorf("update failed: %s", resp.Failures[0]),
		}
	}
	return nil
}

// probe looks up the document by id. It returns a *NotFoundError when there's
// no match.
func (c *Client) probe(ctx context.Context, collection, id string) (*searchstore.Hit, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, &ArgumentError{Argument: "id", Index: -1, Reason: "must not be empty"}
	}

	query, err := searchstore.CreateReader(searchstore.QueryBody{Query: idsQuery(id)})
	if err != nil {
		return nil, err
	}
	resp, err := c.engine.Search(ctx, &searchstore.SearchRequest{
		Index: &collection,
		Size:  searchstore.Ptr(1),
		Query: query,
	})
	if err != nil {
		return nil, newEngineError("looking up document", err)
	}

	if len(resp.Hits.Hits) == 0 {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	return &resp.Hits.Hits[0], nil
}

func idsQuery(ids ...string) *searchstore.Query {
	return &searchstore.Query{IDs: &searchstore.IDsFilter{Values: ids}}
}

// documentActions builds one index action per document. It fails on the first
// document that is nil or, when idField is set, that has no usable id.
func documentActions(collection string, docs []Document, idField string) ([]WriteAction, error) {
	actions := make([]WriteAction, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, &ArgumentError{Argument: "documents", Index: i, Reason: "document must not be null"}
		}

		action := WriteAction{
			Op:         OpIndex,
			Collection: collection,
			Doc:        doc,
		}

		if idField != "" {
			value, found := doc[idField]
			if !found {
				return nil, &ArgumentError{Argument: "id_field", Index: i, Reason: fmt.Sprintf("missing id field %q", idField)}
			}
			id, err := stringifyID(value)
			if err != nil {
				return nil, &ArgumentError{Argument: "id_field", Index: i, Reason: fmt.Sprintf("id field %q: %v", idField, err)}
			}
			action.ID = id
			action.Doc = withoutField(doc, idField)
		}

		actions = append(actions, action)
	}
	return actions, nil
}

// stringifyID returns the string representation of a scalar id value.
func stringifyID(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("must not be empty")
		}
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", fmt.Errorf("must not be null")
	default:
		return "", fmt.Errorf("value of type %T can't be used as an id", value)
	}
}

func withoutField(doc Document, field string) Document {
	copied := make(Document, len(doc))
	for k, v := range doc {
		if k != field {
			copied[k] = v
		}
	}
	return copied
}
