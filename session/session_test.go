package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexlabs/vex-go/core"
)

// captureProcessor records every built event and returns a canned result.
type captureProcessor struct {
	events []core.ExecutionEvent
	err    error
}

func (p *captureProcessor) ProcessTrace(_ context.Context, tc *core.TraceContext) (*core.VexResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	ev := tc.BuildEvent()
	p.events = append(p.events, ev)
	return &core.VexResult{ExecutionID: ev.ExecutionID, Action: core.ActionPass, Output: ev.Output}, nil
}

func echoCallback(output string) func(ctx context.Context, tc *core.TraceContext) error {
	return func(_ context.Context, tc *core.TraceContext) error {
		tc.Record(output)
		return nil
	}
}

func TestSession_SequenceAndWindow(t *testing.T) {
	proc := &captureProcessor{}
	s := New(proc, func(o *Options) { o.WindowSize = 2 })

	const turns = 4
	for i := 0; i < turns; i++ {
		_, err := s.Trace(context.Background(), TraceOptions{
			AgentID: "chat-bot",
			Input:   fmt.Sprintf("q%d", i),
		}, echoCallback(fmt.Sprintf("a%d", i)))
		require.NoError(t, err)
	}

	assert.Equal(t, turns, s.Sequence())
	require.Len(t, proc.events, turns)

	for k, ev := range proc.events {
		require.NotNil(t, ev.SequenceNumber)
		assert.Equal(t, k, *ev.SequenceNumber, "turn %d sequence", k)

		want := k
		if want > 2 {
			want = 2
		}
		require.Len(t, ev.ConversationHistory, want, "turn %d history size", k)

		// Oldest first, sequence numbers [k-window, k) clipped at 0.
		for i, turn := range ev.ConversationHistory {
			assert.Equal(t, k-want+i, turn.SequenceNumber)
			assert.Equal(t, fmt.Sprintf("a%d", turn.SequenceNumber), turn.Output)
		}

		require.NotNil(t, ev.SessionID)
		assert.Equal(t, s.ID(), *ev.SessionID)
	}
}

func TestSession_HistoryTruncatedToWindow(t *testing.T) {
	proc := &captureProcessor{}
	s := New(proc, func(o *Options) { o.WindowSize = 3 })

	for i := 0; i < 10; i++ {
		_, err := s.Trace(context.Background(), TraceOptions{AgentID: "a", Input: i}, echoCallback("out"))
		require.NoError(t, err)
	}

	hist := s.History()
	require.Len(t, hist, 3)
	assert.Equal(t, 7, hist[0].SequenceNumber)
	assert.Equal(t, 9, hist[2].SequenceNumber)
}

func TestSession_StickyMetadata(t *testing.T) {
	proc := &captureProcessor{}
	s := New(proc, func(o *Options) {
		o.Metadata = map[string]any{"team": "support"}
	})
	s.SetMetadata("region", "eu")

	_, err := s.Trace(context.Background(), TraceOptions{
		AgentID:  "a",
		Input:    "q",
		Metadata: map[string]any{"region": "us", "turnOnly": true},
	}, echoCallback("out"))
	require.NoError(t, err)

	meta := proc.events[0].Metadata
	assert.Equal(t, "support", meta["team"])
	assert.Equal(t, "us", meta["region"], "per-turn metadata overrides sticky")
	assert.Equal(t, true, meta["turnOnly"])
}

func TestSession_FailedTurnConsumesNoSequence(t *testing.T) {
	proc := &captureProcessor{err: errors.New("backend down")}
	s := New(proc)

	_, err := s.Trace(context.Background(), TraceOptions{AgentID: "a", Input: "q"}, echoCallback("out"))
	require.Error(t, err)
	assert.Equal(t, 0, s.Sequence())
	assert.Empty(t, s.History())

	// Callback failures do not consume a sequence number either.
	proc.err = nil
	_, err = s.Trace(context.Background(), TraceOptions{AgentID: "a"}, func(context.Context, *core.TraceContext) error {
		return errors.New("agent crashed")
	})
	require.Error(t, err)
	assert.Equal(t, 0, s.Sequence())

	// The next successful turn reuses the never-consumed number 0.
	_, err = s.Trace(context.Background(), TraceOptions{AgentID: "a", Input: "q"}, echoCallback("out"))
	require.NoError(t, err)
	require.NotNil(t, proc.events[0].SequenceNumber)
	assert.Equal(t, 0, *proc.events[0].SequenceNumber)
}

func TestSession_ConcurrentTurnsGetUniqueSequences(t *testing.T) {
	proc := &captureProcessor{}
	s := New(proc, func(o *Options) { o.WindowSize = 4 })

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Trace(context.Background(), TraceOptions{AgentID: "a", Input: i}, echoCallback("out"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, turns, s.Sequence())
	require.Len(t, proc.events, turns)

	seen := map[int]bool{}
	for _, ev := range proc.events {
		require.NotNil(t, ev.SequenceNumber)
		assert.False(t, seen[*ev.SequenceNumber], "sequence %d assigned twice", *ev.SequenceNumber)
		seen[*ev.SequenceNumber] = true
	}
	for i := 0; i < turns; i++ {
		assert.True(t, seen[i], "sequence %d never assigned", i)
	}
}

func TestSession_IDGeneratedOrSupplied(t *testing.T) {
	proc := &captureProcessor{}

	generated := New(proc)
	assert.NotEmpty(t, generated.ID())

	supplied := New(proc, func(o *Options) { o.SessionID = "sess-42" })
	assert.Equal(t, "sess-42", supplied.ID())
}

func TestSession_ParentExecutionLinkage(t *testing.T) {
	proc := &captureProcessor{}
	s := New(proc)

	_, err := s.Trace(context.Background(), TraceOptions{
		AgentID:           "a",
		Input:             "q",
		ParentExecutionID: "exec-parent",
	}, echoCallback("out"))
	require.NoError(t, err)

	require.NotNil(t, proc.events[0].ParentExecutionID)
	assert.Equal(t, "exec-parent", *proc.events[0].ParentExecutionID)
}
