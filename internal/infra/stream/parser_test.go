package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreycrellin/deckhand/internal/domain"
)

func newTestParser() *Parser {
	p := NewParser()
	p.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
	return p
}

func feedLines(p *Parser, lines ...string) []domain.RenderBlock {
	var updates []domain.RenderBlock
	for _, line := range lines {
		updates = append(updates, p.Feed([]byte(line+"\n"))...)
	}
	return updates
}

func TestParser_AccumulatesTextAcrossEvents(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Hello, "}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"world."}]}}`,
	)

	require.Len(t, updates, 2)
	assert.Equal(t, "Hello, ", updates[0].Text)
	assert.Equal(t, domain.BlockActive, updates[0].Status)
	assert.Equal(t, "Hello, world.", updates[1].Text)
	assert.Equal(t, updates[0].ID, updates[1].ID, "same block must keep accumulating")

	final := p.Flush()
	require.Len(t, final, 1)
	assert.Equal(t, domain.BlockComplete, final[0].Status)
	assert.Equal(t, "Hello, world.", final[0].Text)
}

func TestParser_ThinkingAndTextAreSeparateBlocks(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"done"}]}}`,
	)

	require.Len(t, updates, 3)
	assert.Equal(t, domain.BlockThinking, updates[0].Kind)
	assert.Equal(t, domain.BlockActive, updates[0].Status)
	// Starting the text block finalizes the thinking block first.
	assert.Equal(t, updates[0].ID, updates[1].ID)
	assert.Equal(t, domain.BlockComplete, updates[1].Status)
	assert.Equal(t, domain.BlockText, updates[2].Kind)
	assert.Equal(t, "done", updates[2].Text)
}

func TestParser_ToolCallLifecycle(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"call-1","name":"read_file","input":{"path":"main.go"}}]}}`,
	)
	require.Len(t, updates, 1)
	call := updates[0]
	assert.Equal(t, domain.BlockToolCall, call.Kind)
	assert.Equal(t, domain.BlockActive, call.Status)
	assert.Equal(t, "read_file", call.ToolName)
	assert.JSONEq(t, `{"path":"main.go"}`, string(call.ToolInput))

	updates = feedLines(p,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"call-1","content":"package main","is_error":false}]}}`,
	)
	require.Len(t, updates, 1)
	done := updates[0]
	assert.Equal(t, call.ID, done.ID, "result must complete the originating block")
	assert.Equal(t, domain.BlockComplete, done.Status)
	assert.Equal(t, "package main", done.ToolResult)
	assert.False(t, done.IsError)
}

func TestParser_ToolResultErrorFlag(t *testing.T) {
	p := newTestParser()

	feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"call-9","name":"bash","input":{}}]}}`,
	)
	updates := feedLines(p,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"call-9","content":"command not found","is_error":true}]}}`,
	)

	require.Len(t, updates, 1)
	assert.True(t, updates[0].IsError)
	assert.Equal(t, "command not found", updates[0].ToolResult)
}

func TestParser_UncorrelatedToolResultIsDropped(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"never-seen","content":"orphan"}]}}`,
	)

	assert.Empty(t, updates)
}

func TestParser_ToolResultFinalizesActiveText(t *testing.T) {
	p := newTestParser()

	feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"call-3","name":"bash","input":{}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Meanwhile..."}]}}`,
	)
	updates := feedLines(p,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"call-3","content":"done"}]}}`,
	)

	require.Len(t, updates, 2)
	assert.Equal(t, domain.BlockText, updates[0].Kind)
	assert.Equal(t, domain.BlockComplete, updates[0].Status)
	assert.Equal(t, domain.BlockToolCall, updates[1].Kind)
	assert.Equal(t, "done", updates[1].ToolResult)
}

func TestParser_ToolResultTextEntryArray(t *testing.T) {
	p := newTestParser()

	feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"call-2","name":"grep","input":{}}]}}`,
	)
	updates := feedLines(p,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"call-2","content":[{"type":"text","text":"one"},{"type":"text","text":"two"}]}]}}`,
	)

	require.Len(t, updates, 1)
	assert.Equal(t, "one\ntwo", updates[0].ToolResult)
}

func TestParser_ResultFinalizesAndRecordsTotals(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"working"}]}}`,
		`{"type":"result","result":"All tests pass.","cost_usd":0.42,"duration_ms":9000,"num_turns":7,"is_error":false}`,
	)

	require.Len(t, updates, 3)
	assert.Equal(t, domain.BlockComplete, updates[1].Status, "text block finalized before the result")

	res := updates[2]
	assert.Equal(t, domain.BlockResult, res.Kind)
	assert.Equal(t, "All tests pass.", res.Text)
	assert.InDelta(t, 0.42, res.CostUSD, 1e-9)
	assert.Equal(t, int64(9000), res.DurationMS)
	assert.Equal(t, 7, res.NumTurns)
	assert.False(t, res.IsError)

	got, ok := p.Result()
	require.True(t, ok)
	assert.Equal(t, res, got)
}

func TestParser_ExitCode(t *testing.T) {
	p := newTestParser()

	_, ok := p.Exited()
	assert.False(t, ok)

	feedLines(p, `{"type":"exit","code":3}`)

	code, ok := p.Exited()
	require.True(t, ok)
	assert.Equal(t, 3, code)
}

func TestParser_MalformedLinesAreSkipped(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`not json at all`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"a"}]}}`,
		`{"truncated":`,
		`{"type":"assistant","message":"bogus shape"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"b"}]}}`,
		``,
	)

	require.Len(t, updates, 2)
	assert.Equal(t, "ab", updates[1].Text)
	assert.Equal(t, 2, p.Skipped())
}

func TestParser_UnknownEventTypeIgnored(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p, `{"type":"system","subtype":"init","session_id":"s1"}`)

	assert.Empty(t, updates)
	assert.Zero(t, p.Skipped())
}

func TestParser_PartialLineBuffering(t *testing.T) {
	p := newTestParser()
	line := `{"type":"assistant","message":{"content":[{"type":"text","text":"split across chunks"}]}}` + "\n"

	assert.Empty(t, p.Feed([]byte(line[:10])))
	assert.Empty(t, p.Feed([]byte(line[10:40])))
	updates := p.Feed([]byte(line[40:]))

	require.Len(t, updates, 1)
	assert.Equal(t, "split across chunks", updates[0].Text)
}

func TestParser_FlushParsesTrailingLine(t *testing.T) {
	p := newTestParser()

	updates := p.Feed([]byte(`{"type":"result","result":"done","cost_usd":0.1,"duration_ms":100,"num_turns":1}`))
	assert.Empty(t, updates, "no newline yet")

	updates = p.Flush()
	require.Len(t, updates, 1)
	assert.Equal(t, domain.BlockResult, updates[0].Kind)
	assert.Equal(t, "done", updates[0].Text)
}

func TestParser_FollowUpDeduplication(t *testing.T) {
	p := newTestParser()
	p.SeedFollowUp("please also add tests")

	updates := feedLines(p, `{"type":"user-follow-up","message":"please also add tests"}`)
	assert.Empty(t, updates, "locally added follow-up must not duplicate")

	updates = feedLines(p, `{"type":"user-follow-up","message":"please also add tests"}`)
	require.Len(t, updates, 1)
	assert.Equal(t, domain.BlockUserMessage, updates[0].Kind)
	assert.Equal(t, "please also add tests", updates[0].Text)
	assert.Equal(t, domain.BlockComplete, updates[0].Status)
}

func TestParser_InterleavedConversation(t *testing.T) {
	p := newTestParser()

	updates := feedLines(p,
		`{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"plan"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Reading the file."},{"type":"tool_use","id":"c1","name":"read_file","input":{"path":"a.go"}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"c1","content":"contents"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Looks fine."}]}}`,
		`{"type":"result","result":"ok","cost_usd":0.01,"duration_ms":50,"num_turns":2}`,
	)

	var kinds []domain.BlockKind
	seen := map[string]bool{}
	for _, u := range updates {
		if !seen[u.ID] {
			seen[u.ID] = true
			kinds = append(kinds, u.Kind)
		}
	}
	assert.Equal(t, []domain.BlockKind{
		domain.BlockThinking,
		domain.BlockText,
		domain.BlockToolCall,
		domain.BlockText,
		domain.BlockResult,
	}, kinds, "blocks must appear in arrival order")
}
