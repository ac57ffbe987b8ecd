package domain

import (
	"encoding/json"
	"time"
)

// BlockKind discriminates render blocks.
type BlockKind string

const (
	BlockText        BlockKind = "text"         // Assistant prose
	BlockThinking    BlockKind = "thinking"     // Assistant reasoning
	BlockToolCall    BlockKind = "tool_call"    // Tool invocation, later completed by its result
	BlockResult      BlockKind = "result"       // Terminal run summary
	BlockUserMessage BlockKind = "user_message" // User-sent message (follow-ups)
)

// BlockStatus tracks whether a block is still accumulating content.
type BlockStatus string

const (
	BlockActive   BlockStatus = "active"
	BlockComplete BlockStatus = "complete"
)

// RenderBlock is a normalized unit of agent output, used for both live
// display and durable history. Exactly the fields for the block's kind are
// populated; the rest stay zero.
// Fields are ordered to minimize memory padding.
type RenderBlock struct {
	Time       time.Time       `json:"time"`
	ID         string          `json:"id"`                   // Fresh UUID per block
	Kind       BlockKind       `json:"kind"`                 //
	Status     BlockStatus     `json:"status"`               //
	Text       string          `json:"text,omitempty"`       // text, thinking, result, user_message
	ToolName   string          `json:"toolName,omitempty"`   // tool_call
	ToolInput  json.RawMessage `json:"toolInput,omitempty"`  // tool_call
	ToolResult string          `json:"toolResult,omitempty"` // tool_call, set on completion
	CostUSD    float64         `json:"costUSD,omitempty"`    // result
	DurationMS int64           `json:"durationMS,omitempty"` // result
	NumTurns   int             `json:"numTurns,omitempty"`   // result
	IsError    bool            `json:"isError,omitempty"`    // tool_call, result
}
