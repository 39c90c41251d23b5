package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vexlabs/vex-go/core"
	"github.com/vexlabs/vex-go/logging"
)

// AsyncOptions holds configuration overrides passed to NewAsyncTransport.
type AsyncOptions struct {
	// MaxBufferSize caps the number of pending events. Further enqueues are
	// dropped and counted.
	MaxBufferSize int
	// FlushBatchSize caps events per ingest request; a larger snapshot is
	// shipped as sequential chunks.
	FlushBatchSize int
	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
	// LogEventIDs enables debug logging of execution IDs on enqueue.
	LogEventIDs bool
	// Logger receives drop warnings and flush diagnostics.
	Logger logging.Logger
}

// AsyncTransport delivers events to the ingestion endpoint in batches,
// best-effort, without blocking the caller. It exclusively owns its pending
// buffer between flush cycles.
//
// Contract:
//   - Enqueue never blocks and never fails; at capacity it drops and counts
//   - Flush snapshots-then-clears the buffer before any network call, so
//     enqueues during an in-flight flush land in the next cycle
//   - concurrent Flush calls are serialized
//   - within one batch, event order matches enqueue order; a batch requeued
//     after retry exhaustion ships before later-enqueued events.
type AsyncTransport struct {
	cfg        Config
	timeout    time.Duration
	maxBuffer  int
	batchSize  int
	logEventID bool
	logger     logging.Logger

	mu      sync.Mutex
	buffer  []core.ExecutionEvent
	dropped int64

	// flushMu serializes whole flush cycles; mu alone only guards the buffer.
	flushMu sync.Mutex
}

// NewAsyncTransport constructs an AsyncTransport with optional overrides.
func NewAsyncTransport(cfg Config, optFns ...func(o *AsyncOptions)) *AsyncTransport {
	opts := AsyncOptions{
		MaxBufferSize:  10000,
		FlushBatchSize: 100,
		Timeout:        30 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &AsyncTransport{
		cfg:        cfg,
		timeout:    opts.Timeout,
		maxBuffer:  opts.MaxBufferSize,
		batchSize:  opts.FlushBatchSize,
		logEventID: opts.LogEventIDs,
		logger:     opts.Logger,
	}
}

// Enqueue appends an event to the pending buffer. When the buffer is at
// capacity the event is discarded and the drop counter incremented; a
// warning is emitted on the first drop and every 100th thereafter.
func (t *AsyncTransport) Enqueue(ev core.ExecutionEvent) {
	t.mu.Lock()
	if len(t.buffer) >= t.maxBuffer {
		t.dropped++
		dropped := t.dropped
		t.mu.Unlock()
		if dropped == 1 || dropped%100 == 0 {
			t.logger.Warn("event buffer full, dropping event", "dropped_total", dropped, "buffer_capacity", t.maxBuffer)
		}
		return
	}
	t.buffer = append(t.buffer, ev)
	t.mu.Unlock()

	if t.logEventID {
		t.logger.Debug("event enqueued", "execution_id", ev.ExecutionID)
	}
}

// Pending returns the number of buffered events awaiting delivery.
func (t *AsyncTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}

// Dropped returns the total number of events discarded due to overflow.
func (t *AsyncTransport) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Flush drains the current buffer to the ingest endpoint. It is a no-op on
// an empty buffer. The buffer is snapshotted and cleared before any network
// I/O; events enqueued while the flush is in flight are untouched. On retry
// exhaustion of a chunk, that chunk and every unshipped chunk after it are
// placed back at the head of the buffer, truncated to capacity.
func (t *AsyncTransport) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	if len(t.buffer) == 0 {
		t.mu.Unlock()
		return nil
	}
	snapshot := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	for start := 0; start < len(snapshot); start += t.batchSize {
		end := start + t.batchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		chunk := snapshot[start:end]

		if err := t.ship(ctx, chunk); err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && statusErr.status < 500 {
				// Permanent client error: the chunk is gone for good.
				t.logger.Error("batch rejected, dropping events", "status", statusErr.status, "events", len(chunk))
				continue
			}
			t.requeue(snapshot[start:])
			return err
		}
	}
	return nil
}

// Close drains remaining events with one final flush. Events enqueued after
// Close carry no delivery guarantee.
func (t *AsyncTransport) Close(ctx context.Context) error {
	return t.Flush(ctx)
}

// ship POSTs one chunk as a single batch, retrying per the shared policy.
// A non-2xx status below 500 aborts retries immediately. An event whose
// payload cannot be serialized is dropped and counted, never requeued; it
// must not stall delivery of the events behind it.
func (t *AsyncTransport) ship(ctx context.Context, events []core.ExecutionEvent) error {
	wire := make([]any, 0, len(events))
	for _, ev := range events {
		w, err := EventToWire(ev)
		if err != nil {
			t.mu.Lock()
			t.dropped++
			dropped := t.dropped
			t.mu.Unlock()
			t.logger.Error("event not serializable, dropping", "execution_id", ev.ExecutionID, "error", err, "dropped_total", dropped)
			continue
		}
		wire = append(wire, w)
	}
	if len(wire) == 0 {
		return nil
	}
	payload := map[string]any{"events": wire}
	client := t.cfg.client()
	url := t.cfg.APIURL + batchIngestPath

	operation := func() error {
		_, err := postJSON(ctx, client, url, t.cfg.APIKey, t.timeout, payload)
		if err == nil {
			return nil
		}
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.status < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(operation, newRetryBackoff(ctx))
}

// requeue places undelivered events back at the head of the buffer, ahead of
// anything enqueued during the flush, preserving their original relative
// order. Overflow beyond capacity is truncated from the tail and counted as
// dropped.
func (t *AsyncTransport) requeue(failed []core.ExecutionEvent) {
	t.mu.Lock()
	combined := make([]core.ExecutionEvent, 0, len(failed)+len(t.buffer))
	combined = append(combined, failed...)
	combined = append(combined, t.buffer...)

	var overflow int
	if len(combined) > t.maxBuffer {
		overflow = len(combined) - t.maxBuffer
		combined = combined[:t.maxBuffer]
		t.dropped += int64(overflow)
	}
	t.buffer = combined
	dropped := t.dropped
	t.mu.Unlock()

	t.logger.Warn("flush failed, events requeued", "requeued", len(failed)-overflow, "truncated", overflow, "dropped_total", dropped)
}
