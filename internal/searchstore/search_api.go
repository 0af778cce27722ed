// SPDX-License-Identifier: Apache-2.0

package searchstore

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type SearchRequest struct {
	Index *string
	Size  *int
	From  *int
	Sort  *string
	// Scroll opens a scroll cursor kept alive for the given duration. The
	// cursor id is returned in the response.
	Scroll *time.Duration
	Query  io.Reader
}

type ScrollRequest struct {
	ScrollID  string
	KeepAlive time.Duration
}

type DeleteDocumentRequest struct {
	Index   string
	ID      string
	Refresh string
}

type UpdateByQueryRequest struct {
	Index   string
	Query   *Query
	Script  *Script
	Refresh bool
	// Conflicts is either "abort" (default) or "proceed".
	Conflicts string
}

type UpdateByQueryResponse struct {
	Total            int               `json:"total"`
	Updated          int               `json:"updated"`
	VersionConflicts int               `json:"version_conflicts"`
	Failures         []json.RawMessage `json:"failures"`
}

// BulkItem is one action of a bulk request. Exactly one of the action fields
// must be set.
type BulkItem struct {
	Index  *BulkIndex     `json:"index,omitempty"`
	Create *BulkIndex     `json:"create,omitempty"`
	Update *BulkIndex     `json:"update,omitempty"`
	Delete *BulkIndex     `json:"delete,omitempty"`
	Doc    map[string]any `json:"-"`
}

type BulkIndex struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

// BulkItemResult is the engine outcome for one bulk item.
type BulkItemResult struct {
	// Position of the item in the bulk request.
	Position int
	Action   string
	Index    string
	ID       string
	Status   int
	Result   string
	Error    json.RawMessage
}

func (r *BulkItemResult) Failed() bool {
	return r.Status > 299 || len(r.Error) > 0
}

type BoolFilter struct {
	Filter             []Condition `json:"filter,omitempty"`
	Should             []Condition `json:"should,omitempty"`
	Must               []Condition `json:"must,omitempty"`
	MustNot            []Condition `json:"must_not,omitempty"`
	MinimumShouldMatch int         `json:"minimum_should_match,omitempty"`
}

type Condition struct {
	Term  map[string]any `json:"term,omitempty"`
	Match map[string]any `json:"match,omitempty"`
	IDs   *IDsFilter     `json:"ids,omitempty"`
	Bool  *BoolFilter    `json:"bool,omitempty"`
}

type IDsFilter struct {
	Values []string `json:"values"`
}

type QueryBody struct {
	Query *Query `json:"query,omitempty"`
	Sort  *Sort  `json:"sort,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// RawQueryBody forwards a caller built query clause without interpreting it.
type RawQueryBody struct {
	Query map[string]any `json:"query"`
	Size  int            `json:"size,omitempty"`
}

type Query struct {
	Bool     *BoolFilter    `json:"bool,omitempty"`
	IDs      *IDsFilter     `json:"ids,omitempty"`
	MatchAll *struct{}      `json:"match_all,omitempty"`
	Match    map[string]any `json:"match,omitempty"`
}

type Script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang"`
	Params map[string]any `json:"params,omitempty"`
}

type Sort []map[string]any

type Hit struct {
	ID     string         `json:"_id"`
	Index  string         `json:"_index"`
	Source map[string]any `json:"_source"`
	Score  float64        `json:"_score"`
}

type Hits struct {
	Total struct {
		Value    int    `json:"value"`
		Relation string `json:"relation"`
	} `json:"total"`
	Hits []Hit `json:"hits"`
}

type SearchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     Hits   `json:"hits"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type scrollBody struct {
	Scroll   string `json:"scroll,omitempty"`
	ScrollID string `json:"scroll_id"`
}

type updateByQueryBody struct {
	Query  *Query  `json:"query,omitempty"`
	Script *Script `json:"script,omitempty"`
}

// KeepAlive renders a duration in the engine time unit format.
func KeepAlive(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func NewScrollBody(req *ScrollRequest) (io.Reader, error) {
	return CreateReader(scrollBody{
		Scroll:   KeepAlive(req.KeepAlive),
		ScrollID: req.ScrollID,
	})
}

func NewClearScrollBody(scrollID string) (io.Reader, error) {
	return CreateReader(scrollBody{ScrollID: scrollID})
}

func NewUpdateByQueryBody(req *UpdateByQueryRequest) (io.Reader, error) {
	return CreateReader(updateByQueryBody{
		Query:  req.Query,
		Script: req.Script,
	})
}
