package orchestrator

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	projects := t.TempDir()
	task, err := NewTask("ship the release", projects)
	require.NoError(t, err)

	assert.Equal(t, "ship the release", task.Goal)
	assert.True(t, strings.Contains(task.ID, "-"))
	assert.Equal(t, filepath.Join(projects, task.ID), task.WorkDir)
	assert.DirExists(t, task.WorkDir)

	// Same goal, new task: the nonce keeps directories separate unless
	// created within the same second.
	other, err := NewTask("a different goal", projects)
	require.NoError(t, err)
	assert.NotEqual(t, task.ID, other.ID)
}
