// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/xataio/docsync/internal/searchstore"
	loglib "github.com/xataio/docsync/pkg/log"
)

const releaseCursorTimeout = 10 * time.Second

// Scanner iterates over every document of a collection using a scroll cursor.
// Pages are fetched lazily, one at a time. The scanner is forward only and
// can't be restarted. Close must be called to release the cursor unless the
// scanner is consumed through All, or until Next returns false.
type Scanner struct {
	engine     searchstore.Client
	logger     loglib.Logger
	collection string
	pageSize   int
	keepAlive  time.Duration

	scrollID  string
	page      []searchstore.Hit
	pos       int
	current   *Hit
	seen      int
	started   bool
	exhausted bool
	closed    bool
	err       error
}

// ScanAll returns a scanner over all the documents in the collection. No
// request is sent until the first call to Next.
func (c *Client) ScanAll(ctx context.Context, collection string) (*Scanner, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, err
	}
	return &Scanner{
		engine:     c.engine,
		logger:     c.logger,
		collection: collection,
		pageSize:   c.scanPageSize,
		keepAlive:  c.scanKeepAlive,
	}, nil
}

// ScanEach calls fn for every document in the collection. The scan stops at
// the first error returned by fn.
func (c *Client) ScanEach(ctx context.Context, collection string, fn func(*Hit) error) error {
	scanner, err := c.ScanAll(ctx, collection)
	if err != nil {
		return err
	}
	for hit, err := range scanner.All(ctx) {
		if err != nil {
			return err
		}
		if err := fn(hit); err != nil {
			return err
		}
	}
	return nil
}

// Next advances to the next document, fetching a new page when the current
// one is consumed. It returns false when there are no more documents or an
// error occurred, in which case the cursor has already been released.
func (s *Scanner) Next(ctx context.Context) bool {
	if s.closed || s.err != nil {
		return false
	}

	for s.pos >= len(s.page) {
		if s.exhausted {
			s.release(ctx)
			return false
		}
		if err := s.fetch(ctx); err != nil {
			s.err = err
			s.release(ctx)
			return false
		}
	}

	hit := newHit(&s.page[s.pos])
	s.pos++
	s.seen++
	s.current = &hit
	return true
}

// Hit returns the current document.
func (s *Scanner) Hit() *Hit {
	return s.current
}

func (s *Scanner) Err() error {
	return s.err
}

// Close releases the scroll cursor. It can be called more than once.
func (s *Scanner) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.page = nil
	if s.scrollID == "" {
		return nil
	}

	// the cursor must be released even if the caller context is done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseCursorTimeout)
	defer cancel()
	if err := s.engine.ClearScroll(ctx, s.scrollID); err != nil {
		// the cursor already expired
		if errors.Is(err, searchstore.ErrResourceNotFound) {
			return nil
		}
		return newEngineError("releasing scan cursor", err)
	}
	return nil
}

// All returns an iterator over the remaining documents. The cursor is released
// when the iteration ends, including when the consumer stops early. A scan
// error is yielded as the last element.
func (s *Scanner) All(ctx context.Context) iter.Seq2[*Hit, error] {
	return func(yield func(*Hit, error) bool) {
		defer s.release(ctx)

		for s.Next(ctx) {
			if !yield(s.Hit(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *Scanner) fetch(ctx context.Context) error {
	var resp *searchstore.SearchResponse
	var err error
	if !s.started {
		s.started = true
		resp, err = s.openCursor(ctx)
	} else {
		resp, err = s.engine.Scroll(ctx, &searchstore.ScrollRequest{
			ScrollID:  s.scrollID,
			KeepAlive: s.keepAlive,
		})
	}
	if err != nil {
		return newEngineError("scanning collection", err)
	}

	if resp.ScrollID != "" {
		s.scrollID = resp.ScrollID
	}
	s.page = resp.Hits.Hits
	s.pos = 0

	// a short page is the last one. The total can only be trusted when it's
	// an exact count.
	total := resp.Hits.Total
	if len(s.page) < s.pageSize || (total.Relation == "eq" && s.seen+len(s.page) >= total.Value) {
		s.exhausted = true
	}
	return nil
}

func (s *Scanner) openCursor(ctx context.Context) (*searchstore.SearchResponse, error) {
	query, err := searchstore.CreateReader(searchstore.QueryBody{
		Query: &searchstore.Query{MatchAll: &struct{}{}},
	})
	if err != nil {
		return nil, err
	}
	return s.engine.Search(ctx, &searchstore.SearchRequest{
		Index:  &s.collection,
		Size:   &s.pageSize,
		Sort:   searchstore.Ptr("_doc"),
		Scroll: &s.keepAlive,
		Query:  query,
	})
}

func (s *Scanner) release(ctx context.Context) {
	if err := s.Close(ctx); err != nil {
		s.logger.Warn(err, "failed to release scan cursor", loglib.Fields{
			loglib.CollectionField: s.collection,
		})
	}
}
