package testutil

import (
	"time"

	"github.com/vexlabs/vex-go/core"
)

// EventBuilder provides a fluent helper for constructing execution events in
// tests. Example:
//
//	ev := NewEventBuilder().Agent("support-bot").Output("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	executionID string
	agentID     string
	input       any
	output      any
	steps       []core.StepRecord
	metadata    map[string]any
	sessionID   string
	sequence    *int
	task        string
}

// NewEventBuilder creates a builder with default agent "agent".
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{agentID: "agent", metadata: map[string]any{}}
}

// ExecutionID overrides the auto-generated execution ID (chainable).
func (b *EventBuilder) ExecutionID(id string) *EventBuilder { b.executionID = id; return b }

// Agent sets the agent identifier (chainable).
func (b *EventBuilder) Agent(id string) *EventBuilder { b.agentID = id; return b }

// Input sets the execution input (chainable).
func (b *EventBuilder) Input(v any) *EventBuilder { b.input = v; return b }

// Output sets the execution output (chainable).
func (b *EventBuilder) Output(v any) *EventBuilder { b.output = v; return b }

// Step appends a step record (chainable).
func (b *EventBuilder) Step(stepType, name, input, output string) *EventBuilder {
	b.steps = append(b.steps, core.StepRecord{
		Type:      stepType,
		Name:      name,
		Input:     input,
		Output:    output,
		Timestamp: time.Now(),
	})
	return b
}

// Meta upserts a metadata key/value pair (chainable).
func (b *EventBuilder) Meta(key string, value any) *EventBuilder { b.metadata[key] = value; return b }

// Session attaches session identity and sequence number (chainable).
func (b *EventBuilder) Session(id string, seq int) *EventBuilder {
	b.sessionID = id
	b.sequence = &seq
	return b
}

// Task sets the task label (chainable).
func (b *EventBuilder) Task(task string) *EventBuilder { b.task = task; return b }

// Build constructs the core.ExecutionEvent value.
func (b *EventBuilder) Build() core.ExecutionEvent {
	tc := core.NewTraceContext(b.agentID, b.input, func(o *core.TraceContextOptions) {
		o.ExecutionID = b.executionID
		o.SessionID = b.sessionID
		o.SequenceNumber = b.sequence
		o.Task = b.task
	})
	if b.output != nil {
		tc.Record(b.output)
	}
	for k, v := range b.metadata {
		tc.SetMetadata(k, v)
	}
	ev := tc.BuildEvent()
	if len(b.steps) > 0 {
		ev.Steps = append([]core.StepRecord{}, b.steps...)
	}
	return ev
}
