package core

import (
	"sync"
	"time"

	"github.com/vexlabs/vex-go/internal/util"
)

// StepDescriptor describes one sub-operation passed to TraceContext.Step.
// Input and Output may be any value; non-strings are serialized to a string
// representation at recording time.
type StepDescriptor struct {
	Type       string
	Name       string
	Input      any
	Output     any
	DurationMS *int64
}

// TraceContextOptions carries the optional linkage applied at construction:
// session identity, turn sequencing, parent execution and conversation
// history. Populated by the session layer; direct callers rarely need it.
type TraceContextOptions struct {
	ExecutionID       string
	Task              string
	SessionID         string
	SequenceNumber    *int
	ParentExecutionID string
	History           []ConversationTurn
}

// TraceContext accumulates one execution's observable facts and freezes them
// into an ExecutionEvent. It is safe for concurrent use.
//
// Contract:
//   - Record and the Set* methods overwrite their slot (last write wins)
//   - Step appends in call order; Steps and Metadata return defensive copies
//   - BuildEvent may be called multiple times; each call recomputes latency
//     from the context's construction instant but reuses accumulated state.
type TraceContext struct {
	mu sync.Mutex

	executionID       string
	agentID           string
	input             any
	task              *string
	sessionID         *string
	sequenceNumber    *int
	parentExecutionID *string
	history           []ConversationTurn

	output           any
	groundTruth      any
	schemaDefinition any
	tokenCount       *int
	costEstimate     *float64
	metadata         map[string]any
	steps            []StepRecord

	start time.Time
}

// NewTraceContext creates a context for one execution of the given agent.
// The execution ID is generated unless overridden via options.
func NewTraceContext(agentID string, input any, optFns ...func(o *TraceContextOptions)) *TraceContext {
	opts := TraceContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	tc := &TraceContext{
		executionID: opts.ExecutionID,
		agentID:     agentID,
		input:       input,
		metadata:    map[string]any{},
		start:       time.Now(),
	}
	if tc.executionID == "" {
		tc.executionID = util.NewID()
	}
	if opts.Task != "" {
		task := opts.Task
		tc.task = &task
	}
	if opts.SessionID != "" {
		sid := opts.SessionID
		tc.sessionID = &sid
	}
	if opts.SequenceNumber != nil {
		seq := *opts.SequenceNumber
		tc.sequenceNumber = &seq
	}
	if opts.ParentExecutionID != "" {
		pid := opts.ParentExecutionID
		tc.parentExecutionID = &pid
	}
	if len(opts.History) > 0 {
		tc.history = append([]ConversationTurn(nil), opts.History...)
	}
	return tc
}

// ExecutionID returns the immutable execution identifier.
func (tc *TraceContext) ExecutionID() string { return tc.executionID }

// AgentID returns the agent identifier this context observes.
func (tc *TraceContext) AgentID() string { return tc.agentID }

// Input returns the execution input supplied at construction.
func (tc *TraceContext) Input() any { return tc.input }

// Record overwrites the current output. Last write wins.
func (tc *TraceContext) Record(output any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.output = output
}

// Output returns the most recently recorded output.
func (tc *TraceContext) Output() any {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.output
}

// SetGroundTruth stores the expected output for verification.
func (tc *TraceContext) SetGroundTruth(v any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.groundTruth = v
}

// SetSchema stores a schema definition the output should conform to.
func (tc *TraceContext) SetSchema(v any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.schemaDefinition = v
}

// SetTokenCount stores the token usage figure for this execution.
func (tc *TraceContext) SetTokenCount(n int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tokenCount = &n
}

// SetCostEstimate stores the estimated cost for this execution.
func (tc *TraceContext) SetCostEstimate(cost float64) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.costEstimate = &cost
}

// SetMetadata upserts a key/value pair into the context's metadata.
func (tc *TraceContext) SetMetadata(key string, value any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.metadata[key] = value
}

// Metadata returns a copy of the accumulated metadata. Mutating the returned
// map never affects the context.
func (tc *TraceContext) Metadata() map[string]any {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make(map[string]any, len(tc.metadata))
	for k, v := range tc.metadata {
		out[k] = v
	}
	return out
}

// Step appends a StepRecord for one sub-operation. The record's name is
// composed from the descriptor's type and name; non-string input/output
// values are serialized to strings.
func (tc *TraceContext) Step(d StepDescriptor) {
	name := d.Name
	if name == "" {
		name = d.Type
	} else if d.Type != "" {
		name = d.Type + ":" + d.Name
	}

	rec := StepRecord{
		Type:      d.Type,
		Name:      name,
		Input:     util.Stringify(d.Input),
		Output:    util.Stringify(d.Output),
		Timestamp: time.Now(),
	}
	if d.DurationMS != nil {
		dur := *d.DurationMS
		rec.DurationMS = &dur
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.steps = append(tc.steps, rec)
}

// Steps returns a defensive copy of the recorded steps in call order.
func (tc *TraceContext) Steps() []StepRecord {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]StepRecord(nil), tc.steps...)
}

// BuildEvent freezes the accumulated state into an independent
// ExecutionEvent. LatencyMS is the wall-clock time elapsed since the context
// was constructed, recomputed on every call.
func (tc *TraceContext) BuildEvent() ExecutionEvent {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	latency := time.Since(tc.start).Milliseconds()

	meta := make(map[string]any, len(tc.metadata))
	for k, v := range tc.metadata {
		meta[k] = v
	}

	ev := ExecutionEvent{
		ExecutionID:       tc.executionID,
		AgentID:           tc.agentID,
		Input:             tc.input,
		Output:            tc.output,
		Steps:             append([]StepRecord{}, tc.steps...),
		Metadata:          meta,
		Timestamp:         time.Now().UTC(),
		SessionID:         tc.sessionID,
		SequenceNumber:    tc.sequenceNumber,
		ParentExecutionID: tc.parentExecutionID,
		Task:              tc.task,
		TokenCount:        tc.tokenCount,
		CostEstimate:      tc.costEstimate,
		LatencyMS:         &latency,
		GroundTruth:       tc.groundTruth,
		SchemaDefinition:  tc.schemaDefinition,
	}
	if len(tc.history) > 0 {
		ev.ConversationHistory = append([]ConversationTurn(nil), tc.history...)
	}
	return ev
}
