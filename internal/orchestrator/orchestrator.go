// Package orchestrator drives one task from goal to final answer: a bounded
// loop of messenger summary, parallel planner fan-out, executor decision,
// signed tool dispatch and audit, with a fuzzy answer cache in front.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/quorumlabs/quorum/internal/config"
	"github.com/quorumlabs/quorum/internal/consts"
	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/logger"
	"github.com/quorumlabs/quorum/internal/planner"
	"github.com/quorumlabs/quorum/internal/signal"
	"github.com/quorumlabs/quorum/internal/signing"
	"github.com/quorumlabs/quorum/internal/store"
	"github.com/quorumlabs/quorum/internal/tools"
)

// Status is the terminal condition of a task's loop.
type Status string

const (
	StatusInProgress       Status = "IN_PROGRESS"
	StatusSuccess          Status = "SUCCESS"
	StatusNoToolChosen     Status = "NO_TOOL_CHOSEN"
	StatusSignatureFailure Status = "SIGNATURE_FAILURE"
	StatusExhausted        Status = "EXHAUSTED"
)

// Orchestrator composes the model client, planner panel, tool registry,
// signing channel and store into the task workflow.
type Orchestrator struct {
	cfg      *config.Config
	client   llm.Client
	fanout   *planner.FanOut
	registry *tools.Registry
	prompter tools.HumanPrompter
	channel  *signing.Channel
	store    *store.Store
	log      *logger.Logger

	// observe, when set, receives executor and messenger tokens as they
	// stream in, for live display.
	observe llm.StreamCallback
}

func New(cfg *config.Config, client llm.Client, registry *tools.Registry,
	prompter tools.HumanPrompter, channel *signing.Channel, st *store.Store,
	log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		client:   client,
		fanout:   planner.NewFanOut(client),
		registry: registry,
		prompter: prompter,
		channel:  channel,
		store:    st,
		log:      log,
	}
}

// SetObserver installs a callback for live token display.
func (o *Orchestrator) SetObserver(cb llm.StreamCallback) {
	o.observe = cb
}

// Run executes the whole workflow for one goal and returns the final answer.
// Messenger and executor model failures abort the task; planner failures,
// unknown tools and human aborts are absorbed into the loop.
func (o *Orchestrator) Run(ctx context.Context, goal string) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "", fmt.Errorf("goal must not be empty")
	}

	if answer, ok, err := o.store.LookupAnswer(goal); err != nil {
		return "", fmt.Errorf("memory lookup failed: %w", err)
	} else if ok {
		o.log.Info("cache hit, skipping workflow")
		return answer, nil
	}

	task, err := NewTask(goal, o.cfg.ProjectsDir())
	if err != nil {
		return "", err
	}
	o.log.Info("task %s started: %s", task.ID, goal)

	maxLoops := o.cfg.MaxLoops
	if maxLoops <= 0 {
		maxLoops = consts.DefaultMaxLoops
	}

	history := NewHistory(consts.DefaultHistoryTokenBudget)
	lastSignal := signal.Info
	status := StatusInProgress
	finalAnswer := ""

	for iteration := 1; iteration <= maxLoops; iteration++ {
		o.log.Info("task %s iteration %d/%d", task.ID, iteration, maxLoops)

		summary, err := o.client.Stream(ctx, &llm.Request{
			Model:  o.cfg.MessengerModel,
			System: messengerSystem,
			Prompt: buildMessengerPrompt(goal, history.Capped(), signal.Meaning(lastSignal)),
		}, o.observe)
		if err != nil {
			return "", fmt.Errorf("messenger model failed: %w", err)
		}

		proposals := o.fanout.RunAll(ctx, o.cfg.PlannerModels, plannerSystem,
			buildPlannerPrompt(goal, summary))
		if n := planner.FailedCount(proposals); n > 0 {
			o.log.Warn("task %s: %d of %d planners failed", task.ID, n, len(proposals))
		}

		decision, err := o.client.Stream(ctx, &llm.Request{
			Model:  o.cfg.ExecutorModel,
			System: executorSystem(),
			Prompt: buildExecutorPrompt(goal, summary, proposals),
		}, o.observe)
		if err != nil {
			return "", fmt.Errorf("executor model failed: %w", err)
		}

		if answer, ok := extractFinalAnswer(decision); ok {
			status = StatusSuccess
			finalAnswer = answer
			lastSignal = signal.Success
			break
		}

		rawLine, ok := extractToolDirective(decision)
		if !ok {
			status = StatusNoToolChosen
			lastSignal = signal.Warning
			break
		}

		// Both codes are computed independently over the literal directive
		// so a transformation step slipped in between would be caught.
		proposed, err := o.channel.Code(rawLine)
		if err != nil {
			status = StatusSignatureFailure
			lastSignal = signal.Error
			break
		}
		recomputed, err := o.channel.Code(rawLine)
		if err != nil || !o.channel.Verify(proposed, recomputed) {
			status = StatusSignatureFailure
			lastSignal = signal.Error
			break
		}
		lastSignal = signal.SecurityOK

		words, err := tools.SplitArgs(rawLine)
		if err != nil || len(words) == 0 {
			result := fmt.Sprintf("%s malformed tool directive: %v", llm.ErrorMarker, err)
			lastSignal = signal.Error
			history.Append(transcriptBlock(iteration, decision, result, lastSignal))
			continue
		}
		toolName, args := words[0], words[1:]

		approved, err := o.prompter.Confirm(rawLine)
		if err != nil {
			return "", fmt.Errorf("confirmation prompt failed: %w", err)
		}

		var result string
		switch {
		case !approved:
			result = "user aborted"
			lastSignal = signal.Warning
		case !o.registry.Has(toolName):
			result = fmt.Sprintf("%s unknown tool: %s", llm.ErrorMarker, toolName)
			lastSignal = signal.Error
		default:
			result, err = o.registry.Execute(ctx, toolName, task.WorkDir, args)
			if err != nil {
				result = fmt.Sprintf("%s %v", llm.ErrorMarker, err)
			}
			if strings.HasPrefix(result, llm.ErrorMarker) {
				lastSignal = signal.Error
			} else {
				lastSignal = signal.Success
			}
			if toolName == tools.ToolAskHuman {
				lastSignal = signal.HumanFeedbackRequested
			}
		}

		if err := o.store.RecordToolCall(task.ID, toolName, args, result); err != nil {
			return "", fmt.Errorf("audit write failed: %w", err)
		}

		history.Append(transcriptBlock(iteration, decision, result, lastSignal))
	}

	if status == StatusInProgress {
		status = StatusExhausted
	}
	if status != StatusSuccess {
		finalAnswer = fallbackAnswer(status, history)
	}
	o.log.Info("task %s finished with status %s", task.ID, status)

	if err := o.store.SaveAnswer(goal, finalAnswer); err != nil {
		return "", fmt.Errorf("memory write failed: %w", err)
	}
	return finalAnswer, nil
}

// extractFinalAnswer returns the text following the final-answer marker, if
// any line of the decision starts with it.
func extractFinalAnswer(decision string) (string, bool) {
	lines := strings.Split(decision, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, FinalAnswerMarker) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, FinalAnswerMarker))
		tail := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		if tail != "" {
			if rest != "" {
				rest += "\n"
			}
			rest += tail
		}
		return rest, true
	}
	return "", false
}

// extractToolDirective returns the first tool directive's payload, the exact
// text the integrity code is computed over.
func extractToolDirective(decision string) (string, bool) {
	for _, line := range strings.Split(decision, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ToolMarker) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, ToolMarker)), true
		}
	}
	return "", false
}

func transcriptBlock(iteration int, decision, result string, sig string) string {
	return fmt.Sprintf("[iteration %d] [signal: %s]\nExecutor decision:\n%s\n\nResult:\n%s",
		iteration, sig, strings.TrimSpace(decision), result)
}

func fallbackAnswer(status Status, history *History) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The workflow ended without an explicit resolution (status: %s).\n", status)
	if full := history.Full(); full != "" {
		b.WriteString("\nWhat happened:\n\n")
		b.WriteString(full)
	} else {
		b.WriteString("\nNo actions were taken.")
	}
	return b.String()
}
