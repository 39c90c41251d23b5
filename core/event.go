package core

import (
	"time"
)

// ExecutionEvent is the frozen record of one agent execution, ready for
// transmission to the Vex backend. After construction via
// TraceContext.BuildEvent it should be treated as immutable. It captures:
//   - Correlation (ExecutionID, AgentID, optional session linkage)
//   - The observed input/output pair and ordered step records
//   - Accounting figures (tokens, cost, wall-clock latency)
//   - Optional verification inputs (ground truth, schema definition)
//
// JSON tags use the SDK's internal camelCase convention; the transport layer
// rewrites keys to the wire convention at the HTTP boundary.
type ExecutionEvent struct {
	ExecutionID         string             `json:"executionId"`
	AgentID             string             `json:"agentId"`
	Input               any                `json:"input,omitempty"`
	Output              any                `json:"output,omitempty"`
	Steps               []StepRecord       `json:"steps"`
	Metadata            map[string]any     `json:"metadata,omitempty"`
	Timestamp           time.Time          `json:"timestamp"`
	SessionID           *string            `json:"sessionId,omitempty"`
	SequenceNumber      *int               `json:"sequenceNumber,omitempty"`
	ParentExecutionID   *string            `json:"parentExecutionId,omitempty"`
	ConversationHistory []ConversationTurn `json:"conversationHistory,omitempty"`
	Task                *string            `json:"task,omitempty"`
	TokenCount          *int               `json:"tokenCount,omitempty"`
	CostEstimate        *float64           `json:"costEstimate,omitempty"`
	LatencyMS           *int64             `json:"latencyMs,omitempty"`
	GroundTruth         any                `json:"groundTruth,omitempty"`
	SchemaDefinition    any                `json:"schemaDefinition,omitempty"`
}

// StepRecord captures one named sub-operation of an execution (a tool call,
// a retrieval, a model call). Records are created only through
// TraceContext.Step and never mutated afterwards. Input and Output are
// stored as strings; non-string values are serialized at recording time.
type StepRecord struct {
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Input      string    `json:"input,omitempty"`
	Output     string    `json:"output,omitempty"`
	DurationMS *int64    `json:"durationMs,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConversationTurn is a historical snapshot of one completed trace within a
// session: the turn's sequence number, its input/output pair and the task it
// served. Turns are appended once per completed trace and never mutated.
type ConversationTurn struct {
	SequenceNumber int    `json:"sequenceNumber"`
	Input          any    `json:"input,omitempty"`
	Output         any    `json:"output,omitempty"`
	Task           string `json:"task,omitempty"`
}
