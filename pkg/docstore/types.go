// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/xataio/docsync/internal/searchstore"
)

// Document is a JSON object with arbitrary nesting. Numbers decoded by this
// package are kept as json.Number to avoid precision loss.
type Document map[string]any

type Op string

const (
	OpIndex  Op = "index"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// WriteAction is the unit submitted to the engine by the batch writer.
type WriteAction struct {
	Op         Op
	Collection string
	// ID is optional for index actions, the engine assigns one when empty.
	ID  string
	Doc Document
}

// FlushOutcome aggregates the results of one or more flushes. Identifiers
// and failures are kept in the order the engine reported them.
type FlushOutcome struct {
	IDs      []string        `json:"ids"`
	Failures []ActionFailure `json:"failures,omitempty"`
	Flushes  int             `json:"flushes"`
}

type ActionFailure struct {
	Op         Op              `json:"op"`
	Collection string          `json:"collection"`
	ID         string          `json:"id,omitempty"`
	Status     int             `json:"status"`
	Error      json.RawMessage `json:"error,omitempty"`
}

type Hit struct {
	ID         string   `json:"id"`
	Collection string   `json:"collection"`
	Score      float64  `json:"score,omitempty"`
	Source     Document `json:"source"`
}

type QueryResult struct {
	Total int   `json:"total"`
	Hits  []Hit `json:"hits"`
}

func newFlushOutcome() *FlushOutcome {
	return &FlushOutcome{
		IDs:      []string{},
		Failures: []ActionFailure{},
	}
}

func (o *FlushOutcome) merge(other *FlushOutcome) {
	if other == nil {
		return
	}
	o.IDs = append(o.IDs, other.IDs...)
	o.Failures = append(o.Failures, other.Failures...)
	o.Flushes += other.Flushes
}

func (o *FlushOutcome) HasFailures() bool {
	return len(o.Failures) > 0
}

func (r *QueryResult) IsEmpty() bool {
	return r == nil || len(r.Hits) == 0
}

func (a *WriteAction) validate() error {
	if a.Collection == "" {
		return &ArgumentError{Argument: "collection", Index: -1, Reason: "must not be empty"}
	}
	switch a.Op {
	case OpIndex:
		return nil
	case OpUpdate, OpDelete:
		if a.ID == "" {
			return &ArgumentError{Argument: "id", Index: -1, Reason: fmt.Sprintf("required for %s actions", a.Op)}
		}
		return nil
	default:
		return &ArgumentError{Argument: "op", Index: -1, Reason: fmt.Sprintf("unknown write action %q", a.Op)}
	}
}

func (a *WriteAction) bulkItem() searchstore.BulkItem {
	target := &searchstore.BulkIndex{Index: a.Collection, ID: a.ID}
	switch a.Op {
	case OpUpdate:
		return searchstore.BulkItem{Update: target, Doc: a.Doc}
	case OpDelete:
		return searchstore.BulkItem{Delete: target}
	default:
		return searchstore.BulkItem{Index: target, Doc: a.Doc}
	}
}

func newHit(h *searchstore.Hit) Hit {
	source := Document(h.Source)
	if source == nil {
		source = Document{}
	}
	return Hit{
		ID:         h.ID,
		Collection: h.Index,
		Score:      h.Score,
		Source:     source,
	}
}
