// Package openai records OpenAI Chat Completions responses into a Vex trace
// context: the assistant text as the traced output, token usage, and model
// identity. It keeps instrumentation to one call at the site where the
// completion returns.
package openai

import (
	"github.com/openai/openai-go"

	"github.com/vexlabs/vex-go/core"
)

// RecordCompletion captures a completion into the trace context. The first
// choice's message text becomes the recorded output; total token usage and
// the serving model are attached as accounting figures. A model call step is
// appended so the completion shows up in the event's step sequence.
func RecordCompletion(tc *core.TraceContext, resp *openai.ChatCompletion) {
	if tc == nil || resp == nil {
		return
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
		tc.Record(text)
	}
	if resp.Usage.TotalTokens > 0 {
		tc.SetTokenCount(int(resp.Usage.TotalTokens))
	}
	if resp.Model != "" {
		tc.SetMetadata("model", resp.Model)
	}
	tc.Step(core.StepDescriptor{
		Type:   "llm_call",
		Name:   resp.Model,
		Output: text,
	})
}
