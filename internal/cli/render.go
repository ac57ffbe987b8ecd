package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// blockBodyIndent aligns continuation lines under the block body column.
const blockBodyIndent = "               "

// newTable builds a table writer for w. Borders are dropped when the
// output is not a terminal so the columns stay grep-friendly.
func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if !isTerminal(w) {
		style := table.StyleDefault
		style.Options = table.OptionsNoBordersAndSeparators
		tw.SetStyle(style)
	}
	return tw
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderBlock writes one conversation block in a compact human form.
func renderBlock(w io.Writer, b domain.RenderBlock) {
	stamp := b.Time.Local().Format("15:04:05")
	switch b.Kind {
	case domain.BlockText:
		printBlockBody(w, stamp, "agent", b.Text)
	case domain.BlockThinking:
		printBlockBody(w, stamp, "thinking", b.Text)
	case domain.BlockUserMessage:
		printBlockBody(w, stamp, "user", b.Text)
	case domain.BlockToolCall:
		head := b.ToolName
		if in := compactJSON(b.ToolInput); in != "" && in != "{}" {
			head += " " + truncateLine(in, 96)
		}
		printBlockBody(w, stamp, "tool", head)
		if b.ToolResult != "" {
			marker := "->"
			if b.IsError {
				marker = "!>"
			}
			_, _ = fmt.Fprintf(w, "%s%s %s\n", blockBodyIndent, marker, truncateLine(b.ToolResult, 96))
		}
	case domain.BlockResult:
		label := "result"
		if b.IsError {
			label = "error"
		}
		body := b.Text
		stats := fmt.Sprintf("cost $%.4f, %d turns, %s", b.CostUSD, b.NumTurns,
			(time.Duration(b.DurationMS) * time.Millisecond).Round(100*time.Millisecond))
		if body == "" {
			body = stats
		} else {
			body += "\n" + stats
		}
		printBlockBody(w, stamp, label, body)
	}
}

// printBlockBody writes a stamped block header line and indents any
// continuation lines under the body column.
func printBlockBody(w io.Writer, stamp, label, body string) {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	_, _ = fmt.Fprintf(w, "%s %-6s %s\n", stamp, label, lines[0])
	for _, line := range lines[1:] {
		_, _ = fmt.Fprintf(w, "%s%s\n", blockBodyIndent, line)
	}
}

// printTaskDetails writes the human-readable task view used by show.
func printTaskDetails(w io.Writer, t *domain.Task, blocks []domain.RenderBlock) {
	_, _ = fmt.Fprintf(w, "Task %s: %s\n", domain.ShortID(t.ID), t.Title)
	_, _ = fmt.Fprintf(w, "Status:   %s", t.Status)
	if t.Locked {
		_, _ = fmt.Fprint(w, " (locked)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Priority: %s\n", t.Priority)
	if t.ModeHint != "" {
		_, _ = fmt.Fprintf(w, "Mode:     %s (task override)\n", t.ModeHint)
	}
	if t.Dispatch != domain.DispatchNone {
		_, _ = fmt.Fprintf(w, "Dispatch: %s (supervisor pid %d)\n", t.Dispatch, t.DispatchPID)
	}
	if t.Branch != "" {
		_, _ = fmt.Fprintf(w, "Branch:   %s\n", t.Branch)
	}
	if t.WorktreePath != "" {
		_, _ = fmt.Fprintf(w, "Worktree: %s\n", t.WorktreePath)
	}
	if t.MergeConflict != nil {
		_, _ = fmt.Fprintf(w, "Conflict: %s\n", t.MergeConflict.Summary)
		for _, f := range t.MergeConflict.Files {
			_, _ = fmt.Fprintf(w, "          %s\n", f)
		}
	}
	_, _ = fmt.Fprintf(w, "Created:  %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	_, _ = fmt.Fprintf(w, "Updated:  %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))

	if t.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", strings.TrimRight(t.Description, "\n"))
	}
	if t.Findings != "" {
		_, _ = fmt.Fprintf(w, "\nFindings:\n%s\n", indentLines(t.Findings, "  "))
	}
	if t.HumanSteps != "" {
		_, _ = fmt.Fprintf(w, "\nHuman verification:\n%s\n", indentLines(t.HumanSteps, "  "))
	}
	if t.PendingFollowUp != "" {
		_, _ = fmt.Fprintf(w, "\nPending follow-up:\n%s\n", indentLines(t.PendingFollowUp, "  "))
	}
	if t.AgentLog != "" {
		_, _ = fmt.Fprintf(w, "\nAgent runs:\n%s\n", indentLines(t.AgentLog, "  "))
	}

	if len(blocks) > 0 {
		_, _ = fmt.Fprintf(w, "\nConversation (%d blocks):\n", len(blocks))
		for _, b := range blocks {
			renderBlock(w, b)
		}
	}
}

// dispatchCell summarizes the dispatch column for list output.
func dispatchCell(t *domain.Task) string {
	switch {
	case t.Dispatch == domain.DispatchNone && t.MergeConflict != nil:
		return "conflict"
	case t.Dispatch == domain.DispatchNone:
		return "-"
	case t.DispatchPID > 0:
		return fmt.Sprintf("%s:%d", t.Dispatch, t.DispatchPID)
	default:
		return string(t.Dispatch)
	}
}

// compactJSON flattens a raw JSON value onto a single line.
func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}

// truncateLine collapses s onto one line and caps it at max runes.
func truncateLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// indentLines prefixes every line of s with the given indent.
func indentLines(s, indent string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
