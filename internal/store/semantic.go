package store

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// SemanticKey digests a prompt into a stable cache key. Casing, punctuation
// and whitespace runs collapse away first, so "Deploy the app!" and
// "deploy   the app" land on the same row.
func SemanticKey(prompt string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalizePrompt(prompt)))
}

func normalizePrompt(prompt string) string {
	var b strings.Builder
	b.Grow(len(prompt))
	pendingSpace := false
	for _, r := range strings.ToLower(prompt) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		} else {
			pendingSpace = true
		}
	}
	return b.String()
}
