package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveAnswer records the final answer for a prompt, replacing any earlier
// answer filed under the same semantic key. Large answers spill to the blob
// store; the memory row only holds the reference.
func (s *Store) SaveAnswer(prompt, answer string) error {
	ref, err := s.StoreBlob(answer)
	if err != nil {
		return fmt.Errorf("failed to store answer payload: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.Exec(`
		INSERT INTO memory (prompt_key, prompt_text, answer_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(prompt_key) DO UPDATE SET
			prompt_text = excluded.prompt_text,
			answer_ref  = excluded.answer_ref,
			updated_at  = excluded.updated_at`,
		SemanticKey(prompt), prompt, ref, now, now)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	s.log.Debug("saved answer for key %s (%d bytes)", SemanticKey(prompt), len(answer))
	return nil
}

// LookupAnswer returns the cached answer for a semantically equivalent
// prompt, if one exists.
func (s *Store) LookupAnswer(prompt string) (string, bool, error) {
	var ref string
	err := s.db.QueryRow(
		`SELECT answer_ref FROM memory WHERE prompt_key = ?`,
		SemanticKey(prompt)).Scan(&ref)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up answer: %w", err)
	}

	answer, err := s.RetrieveBlob(ref)
	if err != nil {
		return "", false, fmt.Errorf("failed to load answer payload: %w", err)
	}
	return answer, true, nil
}

// MemoryCount reports how many prompts have cached answers.
func (s *Store) MemoryCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memory`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count memory rows: %w", err)
	}
	return n, nil
}
