// Package anthropic records Anthropic Messages API responses into a Vex
// trace context: the concatenated text blocks as the traced output, token
// usage, and model identity.
package anthropic

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/vexlabs/vex-go/core"
)

// RecordMessage captures a message into the trace context. All text content
// blocks are concatenated into the recorded output; input plus output token
// usage and the serving model are attached as accounting figures. A model
// call step is appended so the message shows up in the event's step
// sequence.
func RecordMessage(tc *core.TraceContext, msg *anthropic.Message) {
	if tc == nil || msg == nil {
		return
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if text != "" {
		tc.Record(text)
	}

	total := msg.Usage.InputTokens + msg.Usage.OutputTokens
	if total > 0 {
		tc.SetTokenCount(int(total))
	}
	if msg.Model != "" {
		tc.SetMetadata("model", string(msg.Model))
	}
	tc.Step(core.StepDescriptor{
		Type:   "llm_call",
		Name:   string(msg.Model),
		Output: text,
	})
}
