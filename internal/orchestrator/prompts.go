package orchestrator

import (
	"fmt"
	"strings"

	"github.com/quorumlabs/quorum/internal/planner"
	"github.com/quorumlabs/quorum/internal/tools"
)

// Markers the executor model uses to end a task or request a tool. Parsing
// looks for these at the start of a line.
const (
	FinalAnswerMarker = "FINAL_ANSWER:"
	ToolMarker        = "TOOL:"
)

const messengerSystem = `You are the messenger of an autonomous task agent.
Summarize the current situation for the planning stage: what the goal is,
what has already happened, and what remains open. Be factual and brief.
Do not propose actions yourself.`

const plannerSystem = `You are one planner on a panel advising an autonomous
task agent. Given the goal and the current situation, propose the single most
useful next action, with a short rationale. Other planners answer the same
question independently; do not assume your proposal is the only one.`

func executorSystem() string {
	return fmt.Sprintf(`You are the executor of an autonomous task agent.
You receive a situation summary and several independent planner proposals.
Synthesize them into exactly one decision:

- If the goal is fully achieved, answer on a single line:
  %s <the final answer text>
- Otherwise request exactly one tool call on a single line:
  %s <tool> <arguments>

Available tools: %s.
Quote arguments that contain spaces. For write_file, pass the content as one
quoted argument with \n for line breaks. Emit nothing after the marker line.`,
		FinalAnswerMarker, ToolMarker, strings.Join(tools.Names(), ", "))
}

func buildMessengerPrompt(goal, history, signalMeaning string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal:\n%s\n", goal)
	if history != "" {
		fmt.Fprintf(&b, "\nWhat has happened so far:\n%s\n", history)
	}
	fmt.Fprintf(&b, "\nLast feedback signal: %s\n", signalMeaning)
	b.WriteString("\nSummarize the situation for the planners.")
	return b.String()
}

func buildPlannerPrompt(goal, summary string) string {
	return fmt.Sprintf("Goal:\n%s\n\nSituation:\n%s\n\nPropose the next action.", goal, summary)
}

func buildExecutorPrompt(goal, summary string, proposals []planner.Proposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal:\n%s\n\nSituation summary:\n%s\n", goal, summary)
	for i, p := range proposals {
		if p.Failed {
			fmt.Fprintf(&b, "\nPlanner %d (%s) failed: %s\n", i+1, p.Model, p.ErrorText)
			continue
		}
		fmt.Fprintf(&b, "\nPlanner %d (%s) proposes:\n%s\n", i+1, p.Model, p.Text)
	}
	if len(proposals) == 0 {
		b.WriteString("\nNo planner proposals are available; decide on your own.\n")
	}
	b.WriteString("\nDecide now.")
	return b.String()
}
