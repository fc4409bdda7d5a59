package tools

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// HumanPrompter is the capability the orchestrator uses whenever a human has
// to be in the loop: confirming a tool invocation before it runs, or
// answering a question the agent raised via ask_human.
type HumanPrompter interface {
	// Confirm shows the directive about to run and reports whether the
	// human approved it.
	Confirm(directive string) (bool, error)
	// Ask poses a free-form question and returns the human's answer.
	Ask(question string) (string, error)
}

// TerminalPrompter reads answers line-by-line from an input stream,
// normally stdin.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Confirm(directive string) (bool, error) {
	fmt.Fprintf(p.out, "\nAgent wants to run:\n  %s\nAllow? [y/N] ", directive)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (p *TerminalPrompter) Ask(question string) (string, error) {
	fmt.Fprintf(p.out, "\nAgent asks:\n  %s\n> ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ScriptedPrompter answers without a human attached. Approve controls
// Confirm; Answers are consumed in order by Ask, falling back to empty
// strings when exhausted. Used in tests and non-interactive runs.
type ScriptedPrompter struct {
	Approve bool
	Answers []string

	Confirmed []string
	Asked     []string
	next      int
}

func (p *ScriptedPrompter) Confirm(directive string) (bool, error) {
	p.Confirmed = append(p.Confirmed, directive)
	return p.Approve, nil
}

func (p *ScriptedPrompter) Ask(question string) (string, error) {
	p.Asked = append(p.Asked, question)
	if p.next < len(p.Answers) {
		answer := p.Answers[p.next]
		p.next++
		return answer, nil
	}
	return "", nil
}
