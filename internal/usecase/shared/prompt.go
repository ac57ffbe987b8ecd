package shared

import (
	"fmt"
	"strings"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// completionContract tells the agent how to report a finished run. The
// command is the only part of the exchange deckhand treats as structured, so
// the wording stays imperative and exact.
const completionContract = `## Completion contract

When the task is done, report the outcome by running exactly once, as your
final action:

    deckhand task update %s --status verify --locked=false --findings "<summary>"

Replace <summary> with a short report covering what you changed and how a
human can verify it. If part of the work needs a human (credentials, manual
testing, a judgement call), describe it with --human-steps in the same
command. Do not move the task to done yourself.`

// BuildPrompt assembles the prompt for one agent run: the task, the
// completion contract, any operator-configured extra instructions, and the
// pending follow-up message when the run continues an earlier one.
func BuildPrompt(task *domain.Task, extra string) string {
	var b strings.Builder

	b.WriteString("# Task: ")
	b.WriteString(task.Title)
	b.WriteString("\n\n")
	if desc := strings.TrimSpace(task.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}

	if findings := strings.TrimSpace(task.Findings); findings != "" {
		b.WriteString("## Findings from the previous run\n\n")
		b.WriteString(findings)
		b.WriteString("\n\n")
	}

	if followUp := strings.TrimSpace(task.PendingFollowUp); followUp != "" {
		b.WriteString("## Follow-up\n\n")
		b.WriteString("The reviewer replied to your last run:\n\n")
		b.WriteString(followUp)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, completionContract, task.ShortID())
	b.WriteString("\n")

	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("\n## Additional instructions\n\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}

	return b.String()
}
