// Package vex provides a client for capturing structured records of AI agent
// executions and delivering them to the Vex verification backend. Most
// applications interact with this package by:
//  1. Creating a client via New() with an API key and optional overrides
//  2. Wrapping agent invocations in Trace() (or Session().Trace() for
//     multi-turn conversations)
//  3. Calling Close() on shutdown to drain buffered events
//
// In async mode (the default) events are buffered and shipped in background
// batches, and Trace returns a pass-through result immediately. In sync mode
// every trace blocks on an inline verification call; a block verdict is
// surfaced as a *core.BlockError carrying the full result, while an
// unreachable backend fails open to a pass-through result.
package vex

import (
	"context"
	"sync"
	"time"

	"github.com/vexlabs/vex-go/core"
	"github.com/vexlabs/vex-go/logging"
	"github.com/vexlabs/vex-go/session"
	"github.com/vexlabs/vex-go/transport"
)

// TraceOptions describes one traced execution.
type TraceOptions = session.TraceOptions

// TraceFunc is the caller's callback populating a trace context.
type TraceFunc = func(ctx context.Context, tc *core.TraceContext) error

// Vex owns both transports, the periodic flush scheduler and the mode
// dispatch policy. Construct with New; all methods are safe for concurrent
// use.
type Vex struct {
	opts   Options
	apiKey string
	logger logging.Logger

	asyncT *transport.AsyncTransport
	syncT  *transport.SyncTransport

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Vex client and starts its background flush loop. The API key
// must be non-empty after trimming and at least 8 characters; thresholds
// must satisfy block < flag < pass. Violations return a
// *core.ConfigurationError.
func New(apiKey string, optFns ...func(o *Options)) (*Vex, error) {
	key, opts, err := resolveOptions(apiKey, optFns...)
	if err != nil {
		return nil, err
	}

	cfg := transport.Config{APIURL: opts.APIURL, APIKey: key, HTTPClient: opts.HTTPClient}

	v := &Vex{
		opts:   opts,
		apiKey: key,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	v.asyncT = transport.NewAsyncTransport(cfg, func(o *transport.AsyncOptions) {
		o.MaxBufferSize = opts.MaxBufferSize
		o.FlushBatchSize = opts.FlushBatchSize
		o.Timeout = opts.Timeout
		o.LogEventIDs = opts.LogEventIDs
		o.Logger = opts.Logger
	})
	v.syncT = transport.NewSyncTransport(cfg, func(o *transport.SyncOptions) {
		o.Timeout = opts.Timeout
		o.CorrectionTimeout = opts.CorrectionTimeout
		o.Logger = opts.Logger
	})

	v.wg.Add(1)
	go v.flushLoop()

	return v, nil
}

// flushLoop periodically drains the async transport until Close. Failures
// are swallowed; the next tick or the final drain retries delivery.
func (v *Vex) flushLoop() {
	defer v.wg.Done()
	ticker := time.NewTicker(v.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.done:
			return
		case <-ticker.C:
			if err := v.asyncT.Flush(context.Background()); err != nil {
				v.logger.Debug("periodic flush failed", "error", err)
			}
		}
	}
}

// Trace observes one agent execution: it builds a trace context, invokes the
// callback to populate it, and dispatches the resulting event per the
// configured mode. In async mode the returned result is a pass-through; in
// sync mode it reflects the verifier's verdict, and a block verdict is
// returned as a *core.BlockError.
func (v *Vex) Trace(ctx context.Context, opts TraceOptions, fn TraceFunc) (*core.VexResult, error) {
	tc := core.NewTraceContext(opts.AgentID, opts.Input, func(o *core.TraceContextOptions) {
		o.Task = opts.Task
		o.ParentExecutionID = opts.ParentExecutionID
	})
	for k, val := range opts.Metadata {
		tc.SetMetadata(k, val)
	}

	if fn != nil {
		if err := fn(ctx, tc); err != nil {
			return nil, err
		}
	}
	return v.ProcessTrace(ctx, tc)
}

// ProcessTrace freezes the context into an event and routes it to the
// configured transport. It implements session.Processor so sessions can
// dispatch through this client.
func (v *Vex) ProcessTrace(ctx context.Context, tc *core.TraceContext) (*core.VexResult, error) {
	ev := tc.BuildEvent()
	if v.opts.LogEventIDs {
		v.logger.Debug("processing trace", "execution_id", ev.ExecutionID, "mode", string(v.opts.Mode))
	}

	if v.opts.Mode == ModeSync {
		return v.verifySync(ctx, ev)
	}
	v.asyncT.Enqueue(ev)
	return passThrough(ev), nil
}

// verifySync performs the blocking verification call and maps the verdict.
// Any verification failure, transport or HTTP level, fails open: the caller
// gets a pass-through result and a warning is logged. Only an explicit block
// verdict actually returned by the backend propagates as an error.
func (v *Vex) verifySync(ctx context.Context, ev core.ExecutionEvent) (*core.VexResult, error) {
	res, err := v.syncT.Verify(ctx, ev, transport.VerifyOptions{
		Thresholds:   &v.opts.Threshold,
		Correction:   v.opts.Correction,
		Transparency: v.opts.Transparency,
	})
	if err != nil {
		v.logger.Warn("verification unavailable, failing open", "execution_id", ev.ExecutionID, "error", err)
		return passThrough(ev), nil
	}

	switch res.Action {
	case core.ActionBlock:
		return nil, &core.BlockError{Result: res}
	case core.ActionFlag:
		if res.Confidence != nil {
			v.logger.Warn("output flagged by verifier", "execution_id", res.ExecutionID, "confidence", *res.Confidence)
		} else {
			v.logger.Warn("output flagged by verifier", "execution_id", res.ExecutionID)
		}
	}
	return res, nil
}

// passThrough builds the unverified result returned on the async path and on
// fail-open.
func passThrough(ev core.ExecutionEvent) *core.VexResult {
	return &core.VexResult{
		ExecutionID: ev.ExecutionID,
		Action:      core.ActionPass,
		Confidence:  nil,
		Output:      ev.Output,
	}
}

// Session constructs a Session bound to this client. The conversation window
// defaults to the client's ConversationWindowSize.
func (v *Vex) Session(optFns ...func(o *session.Options)) *session.Session {
	fns := append([]func(o *session.Options){func(o *session.Options) {
		o.WindowSize = v.opts.ConversationWindowSize
	}}, optFns...)
	return session.New(v, fns...)
}

// Flush manually drains the async transport.
func (v *Vex) Flush(ctx context.Context) error {
	return v.asyncT.Flush(ctx)
}

// Pending returns the number of buffered events awaiting delivery.
func (v *Vex) Pending() int { return v.asyncT.Pending() }

// Dropped returns the total number of events discarded due to overflow.
func (v *Vex) Dropped() int64 { return v.asyncT.Dropped() }

// Close stops the background flush loop and drains remaining events. It is
// idempotent; only the first call stops the loop, and every call performs a
// final drain (a no-op on an empty buffer).
func (v *Vex) Close(ctx context.Context) error {
	v.closeOnce.Do(func() {
		close(v.done)
	})
	v.wg.Wait()
	return v.asyncT.Close(ctx)
}
