// Package stream converts the agent's line-delimited event protocol into
// render blocks usable for live display and durable history.
package stream

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// wireEvent is one line of the agent protocol. Type discriminates; the other
// fields are populated per kind and ignored otherwise.
// Fields are ordered to minimize memory padding.
type wireEvent struct {
	Message    json.RawMessage `json:"message"` // assistant/user: object; user-follow-up: string
	Type       string          `json:"type"`
	Result     string          `json:"result"`
	CostUSD    float64         `json:"cost_usd"`
	DurationMS int64           `json:"duration_ms"`
	NumTurns   int             `json:"num_turns"`
	Code       int             `json:"code"`
	IsError    bool            `json:"is_error"`
}

// wireMessage is the message envelope of assistant and user events.
type wireMessage struct {
	Content []wireContent `json:"content"`
}

// wireContent is one content entry inside a message.
// Fields are ordered to minimize memory padding.
type wireContent struct {
	Input     json.RawMessage `json:"input"`   // tool_use
	Content   json.RawMessage `json:"content"` // tool_result: string or text-entry array
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`   // tool_use call id
	Name      string          `json:"name"` // tool_use
	ToolUseID string          `json:"tool_use_id"`
	IsError   bool            `json:"is_error"`
}

// Parser is a single-consumer incremental parser over the agent's stdout.
// Feed it raw chunks; it buffers a trailing partial line across calls and
// returns block upserts in strict arrival order. Malformed lines are
// incidental noise: skipped silently, counted for diagnostics.
type Parser struct {
	now     func() time.Time
	newID   func() string
	pending map[string]*domain.RenderBlock // tool call id → emitted tool block
	local   map[string]int                 // follow-up texts already added by the sender
	current *domain.RenderBlock            // accumulating text or thinking block
	result  *domain.RenderBlock
	buf     bytes.Buffer
	exit    int
	skipped int
	exited  bool
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{
		now:     time.Now,
		newID:   uuid.NewString,
		pending: make(map[string]*domain.RenderBlock),
		local:   make(map[string]int),
	}
}

// SeedFollowUp registers a follow-up message the sender already appended to
// history locally, so the same message arriving on the stream is not
// duplicated.
func (p *Parser) SeedFollowUp(message string) {
	p.local[message]++
}

// Feed consumes a chunk and returns the resulting block upserts, in arrival
// order. An upsert carries the block's full state; a block may appear in
// several successive upserts as it accumulates content or completes.
func (p *Parser) Feed(chunk []byte) []domain.RenderBlock {
	p.buf.Write(chunk)

	var updates []domain.RenderBlock
	for {
		data := p.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(data[:i])
		p.buf.Next(i + 1)
		updates = append(updates, p.parseLine(line)...)
	}
	return updates
}

// Flush processes a trailing line without a newline terminator and finalizes
// any still-accumulating block. Call it after the chunk stream ends.
func (p *Parser) Flush() []domain.RenderBlock {
	var updates []domain.RenderBlock
	if p.buf.Len() > 0 {
		line := p.buf.String()
		p.buf.Reset()
		updates = append(updates, p.parseLine(line)...)
	}
	updates = append(updates, p.finalizeCurrent()...)
	return updates
}

// Result returns the terminal result block, if one was observed.
func (p *Parser) Result() (domain.RenderBlock, bool) {
	if p.result == nil {
		return domain.RenderBlock{}, false
	}
	return *p.result, true
}

// Exited returns the exit code announced on the stream, if any.
func (p *Parser) Exited() (int, bool) {
	return p.exit, p.exited
}

// Skipped reports how many non-empty lines failed to decode as JSON.
func (p *Parser) Skipped() int {
	return p.skipped
}

func (p *Parser) parseLine(line string) []domain.RenderBlock {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var ev wireEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		p.skipped++
		return nil
	}

	switch ev.Type {
	case "assistant":
		return p.handleAssistant(ev.Message)
	case "user":
		return p.handleUser(ev.Message)
	case "result":
		return p.handleResult(ev)
	case "exit":
		p.exited = true
		p.exit = ev.Code
		return p.finalizeCurrent()
	case "user-follow-up":
		return p.handleFollowUp(ev.Message)
	default:
		return nil
	}
}

func (p *Parser) handleAssistant(raw json.RawMessage) []domain.RenderBlock {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}

	var updates []domain.RenderBlock
	for _, c := range msg.Content {
		switch c.Type {
		case "text":
			updates = append(updates, p.accumulate(domain.BlockText, c.Text)...)
		case "thinking":
			updates = append(updates, p.accumulate(domain.BlockThinking, c.Thinking)...)
		case "tool_use":
			updates = append(updates, p.finalizeCurrent()...)
			blk := &domain.RenderBlock{
				Time:      p.now(),
				ID:        p.newID(),
				Kind:      domain.BlockToolCall,
				Status:    domain.BlockActive,
				ToolName:  c.Name,
				ToolInput: c.Input,
			}
			if c.ID != "" {
				p.pending[c.ID] = blk
			}
			updates = append(updates, *blk)
		}
	}
	return updates
}

func (p *Parser) handleUser(raw json.RawMessage) []domain.RenderBlock {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}

	// The assistant turn is over once results start arriving.
	updates := p.finalizeCurrent()
	for _, c := range msg.Content {
		if c.Type != "tool_result" {
			continue
		}
		blk, ok := p.pending[c.ToolUseID]
		if !ok {
			// A result for a call never seen leaves existing blocks alone.
			continue
		}
		delete(p.pending, c.ToolUseID)
		blk.ToolResult = decodeResultContent(c.Content)
		blk.IsError = c.IsError
		blk.Status = domain.BlockComplete
		updates = append(updates, *blk)
	}
	return updates
}

func (p *Parser) handleResult(ev wireEvent) []domain.RenderBlock {
	updates := p.finalizeCurrent()
	blk := domain.RenderBlock{
		Time:       p.now(),
		ID:         p.newID(),
		Kind:       domain.BlockResult,
		Status:     domain.BlockComplete,
		Text:       ev.Result,
		CostUSD:    ev.CostUSD,
		DurationMS: ev.DurationMS,
		NumTurns:   ev.NumTurns,
		IsError:    ev.IsError,
	}
	p.result = &blk
	return append(updates, blk)
}

func (p *Parser) handleFollowUp(raw json.RawMessage) []domain.RenderBlock {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil
	}
	if text == "" {
		return nil
	}
	if p.local[text] > 0 {
		p.local[text]--
		return nil
	}
	updates := p.finalizeCurrent()
	return append(updates, domain.RenderBlock{
		Time:   p.now(),
		ID:     p.newID(),
		Kind:   domain.BlockUserMessage,
		Status: domain.BlockComplete,
		Text:   text,
	})
}

// accumulate grows the currently active block of the given kind, starting a
// fresh one when the kind switches. Text spanning multiple events is
// concatenated in arrival order.
func (p *Parser) accumulate(kind domain.BlockKind, text string) []domain.RenderBlock {
	if text == "" {
		return nil
	}
	if p.current != nil && p.current.Kind == kind {
		p.current.Text += text
		return []domain.RenderBlock{*p.current}
	}
	updates := p.finalizeCurrent()
	blk := &domain.RenderBlock{
		Time:   p.now(),
		ID:     p.newID(),
		Kind:   kind,
		Status: domain.BlockActive,
		Text:   text,
	}
	p.current = blk
	return append(updates, *blk)
}

func (p *Parser) finalizeCurrent() []domain.RenderBlock {
	if p.current == nil {
		return nil
	}
	p.current.Status = domain.BlockComplete
	blk := *p.current
	p.current = nil
	return []domain.RenderBlock{blk}
}

// decodeResultContent renders a tool result's content, which the protocol
// delivers either as a plain string or as an array of text entries.
func decodeResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var entries []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		var parts []string
		for _, e := range entries {
			if e.Text != "" {
				parts = append(parts, e.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return string(raw)
}
