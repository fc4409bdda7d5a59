package orchestrator

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/quorumlabs/quorum/internal/consts"
)

// History is the append-only transcript carried across loop iterations.
// Blocks are never rewritten; Capped trims only what is forwarded to model
// calls, the full ledger stays intact for the fallback answer.
type History struct {
	blocks []string
	budget int
	enc    *tiktoken.Tiktoken
}

func NewHistory(tokenBudget int) *History {
	if tokenBudget <= 0 {
		tokenBudget = consts.DefaultHistoryTokenBudget
	}
	// Offline environments cannot fetch the encoding; fall back to a
	// character heuristic in countTokens.
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &History{budget: tokenBudget, enc: enc}
}

func (h *History) Append(block string) {
	h.blocks = append(h.blocks, block)
}

func (h *History) Len() int {
	return len(h.blocks)
}

// Full returns the entire transcript.
func (h *History) Full() string {
	return strings.Join(h.blocks, "\n\n")
}

// Capped returns the newest blocks that fit the token budget, oldest
// dropped first, in chronological order.
func (h *History) Capped() string {
	if len(h.blocks) == 0 {
		return ""
	}
	// The newest block is always kept, even when it alone exceeds the budget.
	total := 0
	start := len(h.blocks)
	for i := len(h.blocks) - 1; i >= 0; i-- {
		n := h.countTokens(h.blocks[i])
		if start < len(h.blocks) && total+n > h.budget {
			break
		}
		total += n
		start = i
	}
	kept := h.blocks[start:]
	if start > 0 {
		return "[earlier iterations omitted]\n\n" + strings.Join(kept, "\n\n")
	}
	return strings.Join(kept, "\n\n")
}

func (h *History) countTokens(text string) int {
	if h.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(h.enc.Encode(text, nil, nil))
}
