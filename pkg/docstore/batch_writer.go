// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/xataio/docsync/internal/searchstore"
	loglib "github.com/xataio/docsync/pkg/log"
)

// BatchWriter buffers write actions and submits them to the engine in bulk
// requests of at most threshold actions. It is not safe for concurrent use.
type BatchWriter struct {
	engine    searchstore.Client
	logger    loglib.Logger
	clock     clockwork.Clock
	threshold int
	pending   []WriteAction
}

type BatchWriterOption func(*BatchWriter)

func NewBatchWriter(engine searchstore.Client, threshold int, opts ...BatchWriterOption) *BatchWriter {
	if threshold <= 0 {
		threshold = defaultBatchSize
	}
	w := &BatchWriter{
		engine:    engine,
		logger:    loglib.NewNoopLogger(),
		clock:     clockwork.NewRealClock(),
		threshold: threshold,
		pending:   make([]WriteAction, 0, threshold),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func WithBatchWriterLogger(l loglib.Logger) BatchWriterOption {
	return func(w *BatchWriter) {
		w.logger = loglib.NewModuleLogger(l, "docstore_batch_writer")
	}
}

func WithBatchWriterClock(c clockwork.Clock) BatchWriterOption {
	return func(w *BatchWriter) {
		w.clock = c
	}
}

// Enqueue adds the action to the pending batch. When the batch reaches the
// threshold it is flushed before returning, and the outcome of that flush is
// returned. Otherwise the outcome is empty.
func (w *BatchWriter) Enqueue(ctx context.Context, action WriteAction) (*FlushOutcome, error) {
	if err := action.validate(); err != nil {
		return newFlushOutcome(), err
	}

	w.pending = append(w.pending, action)
	if len(w.pending) >= w.threshold {
		return w.Flush(ctx)
	}
	return newFlushOutcome(), nil
}

// Pending returns the number of actions waiting to be flushed.
func (w *BatchWriter) Pending() int {
	return len(w.pending)
}

// Flush submits all the pending actions in one bulk request. Results are
// processed as they are decoded from the response, and the pending batch is
// cleared whatever the outcome. An empty batch sends nothing.
func (w *BatchWriter) Flush(ctx context.Context) (*FlushOutcome, error) {
	outcome := newFlushOutcome()
	if len(w.pending) == 0 {
		return outcome, nil
	}

	batch := w.pending
	w.pending = make([]WriteAction, 0, w.threshold)

	items := make([]searchstore.BulkItem, 0, len(batch))
	for i := range batch {
		items = append(items, batch[i].bulkItem())
	}

	start := w.clock.Now()
	outcome.Flushes = 1
	err := w.engine.SendBulkRequest(ctx, items, func(res searchstore.BulkItemResult) error {
		if res.Position < 0 || res.Position >= len(batch) {
			return fmt.Errorf("bulk result for unknown position %d", res.Position)
		}
		action := &batch[res.Position]

		if res.Failed() {
			failure := ActionFailure{
				Op:         action.Op,
				Collection: action.Collection,
				ID:         firstNonEmpty(res.ID, action.ID),
				Status:     res.Status,
				Error:      res.Error,
			}
			outcome.Failures = append(outcome.Failures, failure)
			w.logger.Error(nil, "bulk action failed", loglib.Fields{
				loglib.CollectionField: failure.Collection,
				loglib.DocumentIDField: failure.ID,
				"op":                   string(failure.Op),
				"status":               failure.Status,
				"engine_error":         failure.Error,
			})
			return nil
		}

		outcome.IDs = append(outcome.IDs, firstNonEmpty(res.ID, action.ID))
		return nil
	})

	fields := loglib.Fields{
		"actions":   len(batch),
		"succeeded": len(outcome.IDs),
		"failed":    len(outcome.Failures),
		"duration":  w.clock.Since(start),
	}
	if err != nil {
		w.logger.Error(err, "bulk flush failed", fields)
		return outcome, newEngineError("flushing write actions", err)
	}

	w.logger.Debug("bulk flush completed", fields)
	return outcome, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
