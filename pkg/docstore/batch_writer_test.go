// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/internal/searchstore"
	searchstoremocks "github.com/xataio/docsync/internal/searchstore/mocks"
	"pgregory.net/rapid"
)

func testAction(i int) WriteAction {
	return WriteAction{
		Op:         OpIndex,
		Collection: testCollection,
		ID:         strconv.Itoa(i),
		Doc:        Document{"n": i},
	}
}

func TestBatchWriter_Enqueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flushSizes := []int{}
	engine := &searchstoremocks.Client{
		SendBulkRequestFn: func(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
			flushSizes = append(flushSizes, len(items))
			return bulkResponder()(ctx, items, onResult)
		},
	}

	writer := NewBatchWriter(engine, 3)
	outcome := newFlushOutcome()
	for i := 0; i < 7; i++ {
		flushed, err := writer.Enqueue(ctx, testAction(i))
		require.NoError(t, err)
		outcome.merge(flushed)
		require.Less(t, writer.Pending(), 3)
	}
	require.Equal(t, []int{3, 3}, flushSizes)
	require.Equal(t, 1, writer.Pending())

	flushed, err := writer.Flush(ctx)
	require.NoError(t, err)
	outcome.merge(flushed)

	require.Equal(t, []int{3, 3, 1}, flushSizes)
	require.Equal(t, 0, writer.Pending())
	require.Equal(t, 3, outcome.Flushes)
	require.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6"}, outcome.IDs)
	require.Empty(t, outcome.Failures)
}

func TestBatchWriter_Enqueue_invalidAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action WriteAction

		wantArgument string
	}{
		{
			name:         "missing collection",
			action:       WriteAction{Op: OpIndex},
			wantArgument: "collection",
		},
		{
			name:         "update without id",
			action:       WriteAction{Op: OpUpdate, Collection: testCollection},
			wantArgument: "id",
		},
		{
			name:         "delete without id",
			action:       WriteAction{Op: OpDelete, Collection: testCollection},
			wantArgument: "id",
		},
		{
			name:         "unknown op",
			action:       WriteAction{Op: "upsert", Collection: testCollection},
			wantArgument: "op",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine := &searchstoremocks.Client{}
			writer := NewBatchWriter(engine, 1)
			_, err := writer.Enqueue(context.Background(), tc.action)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			require.Equal(t, tc.wantArgument, argErr.Argument)
			require.Equal(t, 0, writer.Pending())
			require.Equal(t, uint64(0), engine.GetBulkCalls())
		})
	}
}

func TestBatchWriter_Flush_empty(t *testing.T) {
	t.Parallel()

	engine := &searchstoremocks.Client{}
	writer := NewBatchWriter(engine, 3)

	for i := 0; i < 2; i++ {
		outcome, err := writer.Flush(context.Background())
		require.NoError(t, err)
		require.Equal(t, newFlushOutcome(), outcome)
	}
	require.Equal(t, uint64(0), engine.GetBulkCalls())
}

func TestBatchWriter_Flush_partialFailure(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	engine := &searchstoremocks.Client{
		// the second and fourth actions fail
		SendBulkRequestFn: bulkResponder(1, 3),
	}
	writer := NewBatchWriter(engine, 100, WithBatchWriterLogger(logger))

	for i := 0; i < 5; i++ {
		_, err := writer.Enqueue(context.Background(), testAction(i))
		require.NoError(t, err)
	}

	outcome, err := writer.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"0", "2", "4"}, outcome.IDs)
	require.Equal(t, []ActionFailure{
		{Op: OpIndex, Collection: testCollection, ID: "1", Status: 400, Error: testItemError},
		{Op: OpIndex, Collection: testCollection, ID: "3", Status: 400, Error: testItemError},
	}, outcome.Failures)
	require.Equal(t, 0, writer.Pending())
	require.Len(t, logger.byLevel("error"), 2)

	// the batch was cleared, nothing left to send
	outcome, err = writer.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, newFlushOutcome(), outcome)
	require.Equal(t, uint64(1), engine.GetBulkCalls())
}

func TestBatchWriter_Flush_engineAssignedIDs(t *testing.T) {
	t.Parallel()

	engine := &searchstoremocks.Client{SendBulkRequestFn: bulkResponder()}
	writer := NewBatchWriter(engine, 10)

	for i := 0; i < 2; i++ {
		_, err := writer.Enqueue(context.Background(), WriteAction{Op: OpIndex, Collection: testCollection, Doc: Document{"n": i}})
		require.NoError(t, err)
	}

	outcome, err := writer.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"generated-0", "generated-1"}, outcome.IDs)
}

func TestBatchWriter_Flush_bulkError(t *testing.T) {
	t.Parallel()

	errTest := searchstore.RetryableError{Cause: searchstore.ErrTooManyRequests}
	engine := &searchstoremocks.Client{
		SendBulkRequestFn: func(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
			// the connection drops after the first result
			require.NoError(t, onResult(searchstore.BulkItemResult{Position: 0, Action: "index", ID: "0", Status: 201}))
			return errTest
		},
	}
	writer := NewBatchWriter(engine, 10)
	for i := 0; i < 3; i++ {
		_, err := writer.Enqueue(context.Background(), testAction(i))
		require.NoError(t, err)
	}

	outcome, err := writer.Flush(context.Background())
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Equal(t, KindTransport, engineErr.Kind)
	require.ErrorIs(t, err, searchstore.ErrTooManyRequests)
	require.Equal(t, []string{"0"}, outcome.IDs)
	require.Equal(t, 0, writer.Pending())
}

func TestBatchWriter_Flush_unknownPosition(t *testing.T) {
	t.Parallel()

	engine := &searchstoremocks.Client{
		SendBulkRequestFn: func(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
			return onResult(searchstore.BulkItemResult{Position: 5, Status: 201})
		},
	}
	writer := NewBatchWriter(engine, 10)
	_, err := writer.Enqueue(context.Background(), testAction(0))
	require.NoError(t, err)

	_, err = writer.Flush(context.Background())
	require.EqualError(t, err, "flushing write actions: bulk result for unknown position 5")
}

func TestBatchWriter_Flush_duration(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	logger := &recordingLogger{}
	engine := &searchstoremocks.Client{
		SendBulkRequestFn: func(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
			clock.Advance(250 * time.Millisecond)
			return bulkResponder()(ctx, items, onResult)
		},
	}
	writer := NewBatchWriter(engine, 10, WithBatchWriterLogger(logger), WithBatchWriterClock(clock))
	_, err := writer.Enqueue(context.Background(), testAction(0))
	require.NoError(t, err)

	_, err = writer.Flush(context.Background())
	require.NoError(t, err)

	debugLogs := logger.byLevel("debug")
	require.Len(t, debugLogs, 1)
	require.Equal(t, 250*time.Millisecond, debugLogs[0].fields["duration"])
	require.Equal(t, 1, debugLogs[0].fields["succeeded"])
}

func TestBatchWriter_flushCount(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		threshold := rapid.IntRange(1, 20).Draw(t, "threshold")
		n := rapid.IntRange(0, 200).Draw(t, "n")

		flushSizes := []int{}
		engine := &searchstoremocks.Client{
			SendBulkRequestFn: func(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
				flushSizes = append(flushSizes, len(items))
				return bulkResponder()(ctx, items, onResult)
			},
		}
		writer := NewBatchWriter(engine, threshold)
		outcome := newFlushOutcome()
		for i := 0; i < n; i++ {
			flushed, err := writer.Enqueue(context.Background(), testAction(i))
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			outcome.merge(flushed)
		}
		flushed, err := writer.Flush(context.Background())
		if err != nil {
			t.Fatalf("flush: %v", err)
		}
		outcome.merge(flushed)

		wantFlushes := (n + threshold - 1) / threshold
		if len(flushSizes) != wantFlushes || outcome.Flushes != wantFlushes {
			t.Fatalf("expected %d flushes, got %d (%d reported)", wantFlushes, len(flushSizes), outcome.Flushes)
		}
		for i, size := range flushSizes {
			last := i == len(flushSizes)-1
			if !last && size != threshold {
				t.Fatalf("flush %d has size %d, expected %d", i, size, threshold)
			}
			if last && n%threshold != 0 && size != n%threshold {
				t.Fatalf("last flush has size %d, expected %d", size, n%threshold)
			}
		}
		if len(outcome.IDs) != n {
			t.Fatalf("expected %d ids, got %d", n, len(outcome.IDs))
		}
		for i, id := range outcome.IDs {
			if id != fmt.Sprint(i) {
				t.Fatalf("id %d is %q", i, id)
			}
		}
		if writer.Pending() != 0 {
			t.Fatalf("pending actions left: %d", writer.Pending())
		}
	})
}

func TestFlushOutcome_merge(t *testing.T) {
	t.Parallel()

	outcome := newFlushOutcome()
	outcome.merge(nil)
	outcome.merge(&FlushOutcome{IDs: []string{"a"}, Flushes: 1})
	outcome.merge(&FlushOutcome{
		IDs:      []string{"b"},
		Failures: []ActionFailure{{ID: "c", Status: 409}},
		Flushes:  1,
	})

	require.Equal(t, &FlushOutcome{
		IDs:      []string{"a", "b"},
		Failures: []ActionFailure{{ID: "c", Status: 409}},
		Flushes:  2,
	}, outcome)
	require.True(t, outcome.HasFailures())
}
