package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexlabs/vex-go/internal/testutil"
)

func TestWire_RoundTrip(t *testing.T) {
	original := map[string]any{
		"executionId": "exec-1",
		"tokenCount":  float64(42),
		"metadata": map[string]any{
			"customerTier": "gold",
			"nested":       map[string]any{"retryCount": float64(2)},
		},
		"steps": []any{
			map[string]any{"displayName": "tool:search"},
		},
	}

	back := FromWire(ToWire(original))
	assert.Equal(t, original, back)
}

func TestWire_ToWireRewritesNestedKeys(t *testing.T) {
	wire := ToWire(map[string]any{
		"executionId":         "exec-1",
		"conversationHistory": []any{map[string]any{"sequenceNumber": float64(0)}},
	}).(map[string]any)

	assert.Contains(t, wire, "execution_id")
	assert.NotContains(t, wire, "executionId")

	history := wire["conversation_history"].([]any)
	turn := history[0].(map[string]any)
	assert.Contains(t, turn, "sequence_number")
}

func TestWire_EventToWire(t *testing.T) {
	ev := testutil.NewEventBuilder().
		ExecutionID("exec-9").
		Agent("support-bot").
		Output("hello").
		Session("sess-1", 4).
		Build()

	wire, err := EventToWire(ev)
	require.NoError(t, err)

	assert.Equal(t, "exec-9", wire["execution_id"])
	assert.Equal(t, "support-bot", wire["agent_id"])
	assert.Equal(t, "hello", wire["output"])
	assert.Equal(t, "sess-1", wire["session_id"])
	assert.Equal(t, float64(4), wire["sequence_number"])
	assert.NotContains(t, wire, "executionId")
}
