package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/logger"
	"github.com/quorumlabs/quorum/internal/signal"
)

// ErrUnknownTool is returned by Execute for names outside the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Tool names understood by the executor. The set is closed: directives
// naming anything else are rejected before signing ever happens.
const (
	ToolRunCommand       = "run_command"
	ToolWriteFile        = "write_file"
	ToolAskHuman         = "ask_human"
	ToolGetSignalMeaning = "get_signal_meaning"
)

// Registry dispatches tool invocations inside a task's working directory.
// Every tool reports problems as text prefixed with the error marker rather
// than a Go error, so results always flow back into the transcript.
type Registry struct {
	prompter HumanPrompter
	log      *logger.Logger
}

func NewRegistry(prompter HumanPrompter, log *logger.Logger) *Registry {
	return &Registry{prompter: prompter, log: log}
}

// Has reports whether name is a known tool.
func (r *Registry) Has(name string) bool {
	switch name {
	case ToolRunCommand, ToolWriteFile, ToolAskHuman, ToolGetSignalMeaning:
		return true
	}
	return false
}

// Names lists the callable tools, for prompt construction.
func Names() []string {
	return []string{ToolRunCommand, ToolWriteFile, ToolAskHuman, ToolGetSignalMeaning}
}

// Execute runs the named tool with already-split args. workDir is the task's
// sandbox directory; relative paths and shell commands resolve inside it.
// The returned error is reserved for unknown tool names; everything a tool
// itself can get wrong comes back as marker-prefixed text.
func (r *Registry) Execute(ctx context.Context, name, workDir string, args []string) (string, error) {
	switch name {
	case ToolRunCommand:
		return r.runCommand(ctx, workDir, args), nil
	case ToolWriteFile:
		return r.writeFile(workDir, args), nil
	case ToolAskHuman:
		return r.askHuman(args), nil
	case ToolGetSignalMeaning:
		return r.signalMeaning(args), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func (r *Registry) runCommand(ctx context.Context, workDir string, args []string) string {
	if len(args) == 0 {
		return llm.ErrorMarker + " run_command needs a command to run"
	}
	command := JoinShell(args)
	r.log.Debug("run_command in %s: %s", workDir, command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workDir
	output, err := cmd.CombinedOutput()
	text := strings.TrimRight(string(output), "\n")
	if err != nil {
		if text == "" {
			return fmt.Sprintf("%s %v", llm.ErrorMarker, err)
		}
		return fmt.Sprintf("%s %v\n%s", llm.ErrorMarker, err, text)
	}
	if text == "" {
		return "(no output)"
	}
	return text
}

func (r *Registry) writeFile(workDir string, args []string) string {
	if len(args) < 2 {
		return llm.ErrorMarker + " write_file needs a path and content"
	}
	rel := args[0]
	// Models emit content as a single quoted word with literal \n sequences;
	// restore real newlines before writing.
	content := strings.ReplaceAll(strings.Join(args[1:], " "), `\n`, "\n")

	path := filepath.Join(workDir, rel)
	if !strings.HasPrefix(path, filepath.Clean(workDir)+string(os.PathSeparator)) && path != filepath.Clean(workDir) {
		return llm.ErrorMarker + " path escapes the working directory: " + rel
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Sprintf("%s creating directories for %s: %v", llm.ErrorMarker, rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Sprintf("%s writing %s: %v", llm.ErrorMarker, rel, err)
	}
	r.log.Debug("wrote %d bytes to %s", len(content), path)
	return fmt.Sprintf("wrote %d bytes to %s", len(content), rel)
}

func (r *Registry) askHuman(args []string) string {
	question := strings.Join(args, " ")
	if strings.TrimSpace(question) == "" {
		return llm.ErrorMarker + " ask_human needs a question"
	}
	answer, err := r.prompter.Ask(question)
	if err != nil {
		return fmt.Sprintf("%s asking the human failed: %v", llm.ErrorMarker, err)
	}
	if answer == "" {
		return "(the human gave no answer)"
	}
	return answer
}

func (r *Registry) signalMeaning(args []string) string {
	if len(args) == 0 {
		return llm.ErrorMarker + " get_signal_meaning needs a signal name"
	}
	return signal.Meaning(args[0])
}
