// Command quorum runs one autonomous task: a goal in, a bounded loop of
// messenger, planner panel and executor model calls with signed tool
// dispatch, and a final answer out.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/term"

	"github.com/quorumlabs/quorum/internal/config"
	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/logger"
	"github.com/quorumlabs/quorum/internal/orchestrator"
	"github.com/quorumlabs/quorum/internal/signing"
	"github.com/quorumlabs/quorum/internal/store"
	"github.com/quorumlabs/quorum/internal/tools"
)

type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(value string) error {
	if value == "" {
		return fmt.Errorf("value cannot be empty")
	}
	*s = append(*s, value)
	return nil
}

type options struct {
	logLevel    string
	maxLoops    int
	baseURL     string
	messenger   string
	executor    string
	planners    stringSlice
	autoApprove bool
	quiet       bool
}

func main() {
	// The signing key lives in locked memory; wipe it on signals and on exit.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.SafeExit(1)
	}
}

func run() error {
	var opts options
	fs := flag.NewFlagSet("quorum", flag.ContinueOnError)
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, none)")
	fs.IntVar(&opts.maxLoops, "max-loops", 0, "maximum workflow iterations")
	fs.StringVar(&opts.baseURL, "ollama-url", "", "ollama base URL")
	fs.StringVar(&opts.messenger, "messenger", "", "messenger model")
	fs.StringVar(&opts.executor, "executor", "", "executor model")
	fs.Var(&opts.planners, "planner", "planner model (repeatable)")
	fs.BoolVar(&opts.autoApprove, "yes", false, "approve every tool invocation without asking")
	fs.BoolVar(&opts.quiet, "quiet", false, "suppress live token output")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: quorum [flags] <goal...>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	goal, err := readGoal(fs.Args())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyOverrides(cfg, &opts)

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath()); err != nil {
		return err
	}
	log := logger.Global()
	defer log.Close()

	st, err := store.Open(cfg.DBPath(), cfg.SwapDir(), log.WithPrefix("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	channel, err := signing.Open(cfg.KeyPath())
	if err != nil {
		return err
	}
	defer channel.Close()

	var prompter tools.HumanPrompter
	if opts.autoApprove || !term.IsTerminal(int(os.Stdin.Fd())) {
		prompter = &tools.ScriptedPrompter{Approve: opts.autoApprove}
	} else {
		prompter = tools.NewTerminalPrompter(os.Stdin, os.Stderr)
	}

	client := llm.NewOllamaClient(cfg.OllamaBaseURL)
	registry := tools.NewRegistry(prompter, log.WithPrefix("tools"))
	orch := orchestrator.New(cfg, client, registry, prompter, channel, st,
		log.WithPrefix("orchestrator"))
	if !opts.quiet {
		orch.SetObserver(func(chunk string) error {
			fmt.Print(chunk)
			return nil
		})
	}

	answer, err := orch.Run(context.Background(), goal)
	if err != nil {
		return err
	}

	if !opts.quiet {
		fmt.Println()
	}
	fmt.Println(answer)
	return nil
}

// readGoal takes the goal from the remaining arguments, or from stdin when
// none are given and stdin is not a terminal.
func readGoal(args []string) (string, error) {
	if len(args) > 0 {
		goal := strings.TrimSpace(strings.Join(args, " "))
		if goal == "" {
			return "", fmt.Errorf("goal must not be empty")
		}
		return goal, nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no goal given; pass it as arguments or pipe it on stdin")
	}

	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read goal from stdin: %w", err)
	}
	goal := strings.TrimSpace(string(data))
	if goal == "" {
		return "", fmt.Errorf("goal must not be empty")
	}
	return goal, nil
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.maxLoops > 0 {
		cfg.MaxLoops = opts.maxLoops
	}
	if opts.baseURL != "" {
		cfg.OllamaBaseURL = opts.baseURL
	}
	if opts.messenger != "" {
		cfg.MessengerModel = opts.messenger
	}
	if opts.executor != "" {
		cfg.ExecutorModel = opts.executor
	}
	if len(opts.planners) > 0 {
		cfg.PlannerModels = opts.planners
	}
}
