package session

import (
	"context"
	"sync"

	"github.com/vexlabs/vex-go/core"
	"github.com/vexlabs/vex-go/internal/util"
)

// Processor dispatches one populated trace context per the orchestrator's
// mode policy and returns the resulting verdict. Implemented by vex.Vex.
type Processor interface {
	ProcessTrace(ctx context.Context, tc *core.TraceContext) (*core.VexResult, error)
}

// TraceOptions describes one turn executed under a session.
type TraceOptions struct {
	AgentID string
	Input   any
	Task    string
	// ParentExecutionID links this turn to a parent execution, if any.
	ParentExecutionID string
	// Metadata is merged over the session's sticky metadata for this turn.
	Metadata map[string]any
}

// Options holds configuration overrides passed to New.
type Options struct {
	// SessionID identifies the conversation; generated when empty.
	SessionID string
	// WindowSize bounds how many prior turns are injected as history.
	WindowSize int
	// Metadata is sticky metadata applied to every turn's trace context.
	Metadata map[string]any
}

// Session tracks one conversation across traces. It is safe for concurrent
// use: Trace runs one turn at a time, so an overlapping caller waits for the
// in-flight turn and sees its outcome in history.
//
// Contract:
//   - history entries are ordered oldest first
//   - the snapshot passed to turn N holds exactly the most recent
//     min(N, WindowSize) prior turns
//   - sequence numbers are contiguous from 0, never duplicated and never
//     reused; a turn whose callback or processing fails does not consume a
//     number.
type Session struct {
	id        string
	window    int
	processor Processor

	// turnMu serializes whole turns; mu alone only guards accessor reads.
	turnMu sync.Mutex

	mu       sync.Mutex
	sequence int
	history  []core.ConversationTurn
	metadata map[string]any
}

// New constructs a Session bound to the given processor.
func New(p Processor, optFns ...func(o *Options)) *Session {
	opts := Options{WindowSize: 10}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SessionID == "" {
		opts.SessionID = util.NewID()
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = 10
	}

	meta := make(map[string]any, len(opts.Metadata))
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	return &Session{
		id:        opts.SessionID,
		window:    opts.WindowSize,
		processor: p,
		metadata:  meta,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Sequence returns the number of completed turns.
func (s *Session) Sequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

// SetMetadata upserts sticky metadata applied to every subsequent turn.
func (s *Session) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// History returns a defensive copy of the retained turns, oldest first.
func (s *Session) History() []core.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ConversationTurn(nil), s.history...)
}

// Trace executes one turn: it builds a trace context stamped with the
// session identity, this turn's sequence number and the trailing history
// window, applies sticky metadata, invokes the callback, and hands the
// populated context to the processor. On success the turn is appended to
// history and the sequence counter advances. Turns are serialized;
// concurrent calls run one after another.
func (s *Session) Trace(ctx context.Context, opts TraceOptions, fn func(ctx context.Context, tc *core.TraceContext) error) (*core.VexResult, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	seq := s.sequence
	hist := s.historySnapshotLocked()
	meta := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		meta[k] = v
	}
	s.mu.Unlock()

	tc := core.NewTraceContext(opts.AgentID, opts.Input, func(o *core.TraceContextOptions) {
		o.SessionID = s.id
		o.SequenceNumber = &seq
		o.Task = opts.Task
		o.ParentExecutionID = opts.ParentExecutionID
		o.History = hist
	})
	for k, v := range meta {
		tc.SetMetadata(k, v)
	}
	for k, v := range opts.Metadata {
		tc.SetMetadata(k, v)
	}

	if fn != nil {
		if err := fn(ctx, tc); err != nil {
			return nil, err
		}
	}

	res, err := s.processor.ProcessTrace(ctx, tc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.history = append(s.history, core.ConversationTurn{
		SequenceNumber: seq,
		Input:          opts.Input,
		Output:         tc.Output(),
		Task:           opts.Task,
	})
	if len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}
	s.sequence++
	s.mu.Unlock()

	return res, nil
}

// historySnapshotLocked copies the trailing window of history; caller holds mu.
func (s *Session) historySnapshotLocked() []core.ConversationTurn {
	if len(s.history) == 0 {
		return nil
	}
	start := 0
	if len(s.history) > s.window {
		start = len(s.history) - s.window
	}
	return append([]core.ConversationTurn(nil), s.history[start:]...)
}
