// Package planner runs the configured panel of planner models concurrently
// against the same context. One planner's outage degrades plan quality but
// never blocks the workflow.
package planner

import (
	"context"
	"sync"
	"time"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/logger"
)

// Proposal is one planner model's output for one iteration.
type Proposal struct {
	Model     string
	Text      string
	Failed    bool
	ErrorText string
}

// FanOut invokes planner models in parallel through a shared model client.
type FanOut struct {
	client llm.Client
}

// NewFanOut creates a fan-out executor over the given client.
func NewFanOut(client llm.Client) *FanOut {
	return &FanOut{client: client}
}

// RunAll invokes every model concurrently with the same system and user
// prompt and waits for all of them. The returned slice preserves the input
// model order; a failed invocation is recorded in its slot rather than
// aborting the siblings.
func (f *FanOut) RunAll(ctx context.Context, models []string, system, prompt string) []Proposal {
	proposals := make([]Proposal, len(models))
	if len(models) == 0 {
		return proposals
	}

	start := time.Now()
	var wg sync.WaitGroup

	for i, model := range models {
		wg.Add(1)
		go func(slot int, model string) {
			defer wg.Done()

			text, err := f.client.Complete(ctx, &llm.Request{
				Model:  model,
				System: system,
				Prompt: prompt,
			})
			if err != nil {
				logger.Warn("planner %s failed: %v", model, err)
				proposals[slot] = Proposal{Model: model, Failed: true, ErrorText: err.Error()}
				return
			}

			proposals[slot] = Proposal{Model: model, Text: text}
		}(i, model)
	}

	wg.Wait()
	logger.Debug("planner fan-out across %d models completed in %s", len(models), time.Since(start))

	return proposals
}

// FailedCount returns how many proposals in the slice are marked failed.
func FailedCount(proposals []Proposal) int {
	n := 0
	for _, p := range proposals {
		if p.Failed {
			n++
		}
	}
	return n
}
