package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolCall is one audited tool invocation. Rows are append-only; nothing in
// the codebase updates or deletes them.
type ToolCall struct {
	TaskID    string
	ToolName  string
	Args      []string
	Result    string
	CreatedAt time.Time
}

// RecordToolCall appends one row to the audit trail. Every attempted
// invocation is recorded, including declined and failed ones.
func (s *Store) RecordToolCall(taskID, toolName string, args []string, result string) error {
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO audit (task_id, tool_name, args, result, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		taskID, toolName, string(encoded), result, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record tool call: %w", err)
	}
	return nil
}

// ToolCallCount returns how many tool calls a task has on record.
func (s *Store) ToolCallCount(taskID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit WHERE task_id = ?`, taskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tool calls: %w", err)
	}
	return n, nil
}

// ToolCallsForTask returns a task's audit rows in insertion order.
func (s *Store) ToolCallsForTask(taskID string) ([]ToolCall, error) {
	rows, err := s.db.Query(`
		SELECT task_id, tool_name, args, result, created_at
		FROM audit WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool calls: %w", err)
	}
	defer rows.Close()

	var calls []ToolCall
	for rows.Next() {
		var (
			call    ToolCall
			argJSON string
			created int64
		)
		if err := rows.Scan(&call.TaskID, &call.ToolName, &argJSON, &call.Result, &created); err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		if err := json.Unmarshal([]byte(argJSON), &call.Args); err != nil {
			return nil, fmt.Errorf("failed to decode args: %w", err)
		}
		call.CreatedAt = time.Unix(created, 0)
		calls = append(calls, call)
	}
	return calls, rows.Err()
}
