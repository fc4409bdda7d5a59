package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/quorum/internal/config"
	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/logger"
	"github.com/quorumlabs/quorum/internal/signing"
	"github.com/quorumlabs/quorum/internal/store"
	"github.com/quorumlabs/quorum/internal/tools"
)

// fakeClient serves scripted responses per model name. The last queued
// response for a model repeats once the queue runs dry, so loops can iterate
// past the scripted prefix.
type fakeClient struct {
	mu     sync.Mutex
	queues map[string][]string
	fail   map[string]bool
	calls  map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		queues: make(map[string][]string),
		fail:   make(map[string]bool),
		calls:  make(map[string]int),
	}
}

func (f *fakeClient) script(model string, responses ...string) {
	f.queues[model] = responses
}

func (f *fakeClient) next(model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[model]++
	if f.fail[model] {
		return "", fmt.Errorf("model %s unavailable", model)
	}
	q := f.queues[model]
	if len(q) == 0 {
		return "ok", nil
	}
	resp := q[0]
	if len(q) > 1 {
		f.queues[model] = q[1:]
	}
	return resp, nil
}

func (f *fakeClient) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.Request) (string, error) {
	return f.next(req.Model)
}

func (f *fakeClient) Stream(ctx context.Context, req *llm.Request, callback llm.StreamCallback) (string, error) {
	resp, err := f.next(req.Model)
	if err != nil {
		return "", err
	}
	if callback != nil {
		if err := callback(resp); err != nil {
			return "", err
		}
	}
	return resp, nil
}

type testEnv struct {
	orch     *Orchestrator
	cfg      *config.Config
	store    *store.Store
	prompter *tools.ScriptedPrompter
}

func newTestEnv(t *testing.T, client llm.Client, approve bool) *testEnv {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.MessengerModel = "messenger"
	cfg.PlannerModels = []string{"planner-a", "planner-b"}
	cfg.ExecutorModel = "executor"

	log, _ := logger.New(logger.LevelNone, "", "")

	st, err := store.Open(cfg.DBPath(), cfg.SwapDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ch, err := signing.Open(cfg.KeyPath())
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	prompter := &tools.ScriptedPrompter{Approve: approve}
	registry := tools.NewRegistry(prompter, log)

	return &testEnv{
		orch:     New(cfg, client, registry, prompter, ch, st, log),
		cfg:      cfg,
		store:    st,
		prompter: prompter,
	}
}

// taskDirs lists per-task working directories created under the projects
// root.
func taskDirs(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.ProjectsDir())
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		dirs = append(dirs, filepath.Join(cfg.ProjectsDir(), e.Name()))
	}
	return dirs
}

func TestRunRejectsEmptyGoal(t *testing.T) {
	env := newTestEnv(t, newFakeClient(), true)
	_, err := env.orch.Run(context.Background(), "   ")
	assert.Error(t, err)
}

func TestFinalAnswerFirstIteration(t *testing.T) {
	client := newFakeClient()
	client.script("executor", "FINAL_ANSWER: the readme is in place")
	env := newTestEnv(t, client, true)

	answer, err := env.orch.Run(context.Background(), "add a readme")
	require.NoError(t, err)
	assert.Equal(t, "the readme is in place", answer)

	// One messenger, two planners, one executor.
	assert.Equal(t, 4, client.totalCalls())

	dirs := taskDirs(t, env.cfg)
	require.Len(t, dirs, 1)
	taskID := filepath.Base(dirs[0])
	n, err := env.store.ToolCallCount(taskID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCacheHitSkipsModels(t *testing.T) {
	client := newFakeClient()
	client.script("executor", "FINAL_ANSWER: 42")
	env := newTestEnv(t, client, true)

	first, err := env.orch.Run(context.Background(), "what is the answer")
	require.NoError(t, err)
	callsAfterFirst := client.totalCalls()

	// Same goal up to case and punctuation: hits the fuzzy cache.
	second, err := env.orch.Run(context.Background(), "What IS the answer???")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, client.totalCalls())
}

func TestWriteFileToolFlow(t *testing.T) {
	client := newFakeClient()
	client.script("executor",
		`TOOL: write_file README.md "# Hello"`,
		"FINAL_ANSWER: created the readme")
	env := newTestEnv(t, client, true)

	answer, err := env.orch.Run(context.Background(), "add a readme")
	require.NoError(t, err)
	assert.Equal(t, "created the readme", answer)

	dirs := taskDirs(t, env.cfg)
	require.Len(t, dirs, 1)
	data, err := os.ReadFile(filepath.Join(dirs[0], "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Hello", string(data))

	taskID := filepath.Base(dirs[0])
	calls, err := env.store.ToolCallsForTask(taskID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "write_file", calls[0].ToolName)
	assert.Equal(t, []string{"README.md", "# Hello"}, calls[0].Args)

	// The operator saw the literal directive.
	require.Len(t, env.prompter.Confirmed, 1)
	assert.Equal(t, `write_file README.md "# Hello"`, env.prompter.Confirmed[0])
}

func TestUnknownToolIsRecoverable(t *testing.T) {
	client := newFakeClient()
	client.script("executor",
		"TOOL: frobnicate the thing",
		"FINAL_ANSWER: done without frobnication")
	env := newTestEnv(t, client, true)

	answer, err := env.orch.Run(context.Background(), "do something odd")
	require.NoError(t, err)
	assert.Equal(t, "done without frobnication", answer)

	dirs := taskDirs(t, env.cfg)
	require.Len(t, dirs, 1)
	calls, err := env.store.ToolCallsForTask(filepath.Base(dirs[0]))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "frobnicate", calls[0].ToolName)
	assert.Contains(t, calls[0].Result, "unknown tool")
}

func TestNoToolChosenTerminates(t *testing.T) {
	client := newFakeClient()
	client.script("executor", "I am not sure what to do next.")
	env := newTestEnv(t, client, true)

	answer, err := env.orch.Run(context.Background(), "an unclear goal")
	require.NoError(t, err)
	assert.Contains(t, answer, string(StatusNoToolChosen))
	// Terminated after the first iteration: 4 calls, no audit rows.
	assert.Equal(t, 4, client.totalCalls())
}

func TestHumanDeclineContinuesLoop(t *testing.T) {
	client := newFakeClient()
	client.script("executor", "TOOL: run_command rm -rf /")
	env := newTestEnv(t, client, false)
	env.cfg.MaxLoops = 2

	answer, err := env.orch.Run(context.Background(), "clean the disk")
	require.NoError(t, err)
	assert.Contains(t, answer, string(StatusExhausted))

	dirs := taskDirs(t, env.cfg)
	require.Len(t, dirs, 1)
	calls, err := env.store.ToolCallsForTask(filepath.Base(dirs[0]))
	require.NoError(t, err)
	require.Len(t, calls, 2)
	for _, call := range calls {
		assert.Equal(t, "user aborted", call.Result)
	}
}

func TestAllPlannersFailStillProgresses(t *testing.T) {
	client := newFakeClient()
	client.fail["planner-a"] = true
	client.fail["planner-b"] = true
	client.script("executor", "FINAL_ANSWER: managed alone")
	env := newTestEnv(t, client, true)

	answer, err := env.orch.Run(context.Background(), "work without advisors")
	require.NoError(t, err)
	assert.Equal(t, "managed alone", answer)
}

func TestLoopExhaustion(t *testing.T) {
	client := newFakeClient()
	client.script("executor", "TOOL: run_command true")
	env := newTestEnv(t, client, true)
	env.cfg.MaxLoops = 3

	answer, err := env.orch.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Contains(t, answer, string(StatusExhausted))

	dirs := taskDirs(t, env.cfg)
	require.Len(t, dirs, 1)
	n, err := env.store.ToolCallCount(filepath.Base(dirs[0]))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMessengerFailureIsFatal(t *testing.T) {
	client := newFakeClient()
	client.fail["messenger"] = true
	env := newTestEnv(t, client, true)

	_, err := env.orch.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messenger")
}

func TestExecutorFailureIsFatal(t *testing.T) {
	client := newFakeClient()
	client.fail["executor"] = true
	env := newTestEnv(t, client, true)

	_, err := env.orch.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor")
}

func TestAskHumanRoutesToPrompter(t *testing.T) {
	client := newFakeClient()
	client.script("executor",
		`TOOL: ask_human "which branch should I use?"`,
		"FINAL_ANSWER: using main as instructed")
	env := newTestEnv(t, client, true)
	env.prompter.Answers = []string{"main"}

	answer, err := env.orch.Run(context.Background(), "pick a branch")
	require.NoError(t, err)
	assert.Equal(t, "using main as instructed", answer)
	require.Len(t, env.prompter.Asked, 1)
	assert.Equal(t, "which branch should I use?", env.prompter.Asked[0])

	dirs := taskDirs(t, env.cfg)
	calls, err := env.store.ToolCallsForTask(filepath.Base(dirs[0]))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "main", calls[0].Result)
}

func TestExtractFinalAnswer(t *testing.T) {
	answer, ok := extractFinalAnswer("some preamble\nFINAL_ANSWER: it works\n")
	require.True(t, ok)
	assert.Equal(t, "it works", answer)

	answer, ok = extractFinalAnswer("FINAL_ANSWER: first line\nand a second line")
	require.True(t, ok)
	assert.Equal(t, "first line\nand a second line", answer)

	_, ok = extractFinalAnswer("no marker here")
	assert.False(t, ok)
}

func TestExtractToolDirective(t *testing.T) {
	raw, ok := extractToolDirective("thinking...\nTOOL: run_command ls -la\nTOOL: run_command pwd")
	require.True(t, ok)
	assert.Equal(t, "run_command ls -la", raw)

	_, ok = extractToolDirective("plain prose")
	assert.False(t, ok)
}

func TestFallbackAnswerEmbedsHistory(t *testing.T) {
	h := NewHistory(0)
	h.Append("[iteration 1] did a thing")
	answer := fallbackAnswer(StatusExhausted, h)
	assert.Contains(t, answer, string(StatusExhausted))
	assert.Contains(t, answer, "did a thing")

	empty := fallbackAnswer(StatusNoToolChosen, NewHistory(0))
	assert.Contains(t, empty, "No actions were taken")
}
