package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Task is one user goal in flight. Each task gets its own working directory
// under the projects root; directories are never shared between tasks.
type Task struct {
	ID      string
	Goal    string
	WorkDir string
}

// NewTask derives a task identity from the goal text plus a timestamp nonce
// and creates its working directory.
func NewTask(goal, projectsDir string) (*Task, error) {
	id := fmt.Sprintf("%016x-%d", xxhash.Sum64String(goal), time.Now().Unix())
	workDir := filepath.Join(projectsDir, id)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create task directory: %w", err)
	}
	return &Task{ID: id, Goal: goal, WorkDir: workDir}, nil
}
