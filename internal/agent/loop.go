// Package agent implements a bounded reason-and-act loop over the tool
// registry: the model thinks, names a tool, observes its output, and
// repeats until it produces a final answer or runs out of steps.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arlow/fitcoach/internal/llm"
	"github.com/arlow/fitcoach/internal/prompts"
	"github.com/arlow/fitcoach/internal/tools"
)

const (
	// DefaultMaxSteps bounds the thought/action/observation iterations.
	DefaultMaxSteps = 10
	// DefaultMaxParseRetries bounds consecutive unparseable model turns.
	DefaultMaxParseRetries = 5

	retryObservation = "Invalid format. Either use the Thought/Action/Action Input structure or give a Final Answer."
)

// Config holds the loop's tunables.
type Config struct {
	Model           string
	Temperature     float64
	MaxSteps        int
	MaxParseRetries int
	Timeout         time.Duration
}

// Step is one completed thought/action/observation turn.
type Step struct {
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// Result is the outcome of a finished run.
type Result struct {
	Answer string `json:"answer"`
	Steps  []Step `json:"steps"`
}

// Loop is the agent execution loop.
type Loop struct {
	llm    llm.Client
	tools  *tools.Registry
	logger *slog.Logger
	cfg    Config
}

// New creates a loop over the given client and tool registry.
func New(client llm.Client, reg *tools.Registry, cfg Config, logger *slog.Logger) *Loop {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.MaxParseRetries <= 0 {
		cfg.MaxParseRetries = DefaultMaxParseRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		llm:    client,
		tools:  reg,
		logger: logger.With("component", "agent"),
		cfg:    cfg,
	}
}

// Run answers the input question, calling tools as the model directs.
func (l *Loop) Run(ctx context.Context, input string) (*Result, error) {
	return l.RunWithCallback(ctx, input, nil)
}

// RunWithCallback is Run with a per-step callback, invoked after each
// completed observation. The callback must not block for long; it runs
// on the loop's goroutine.
func (l *Loop) RunWithCallback(ctx context.Context, input string, onStep func(Step)) (*Result, error) {
	spec, err := prompts.Get(prompts.TaskAgent)
	if err != nil {
		return nil, err
	}

	l.logger.Info("agent run started", "input_len", len(input), "max_steps", l.cfg.MaxSteps)

	var (
		scratchpad   strings.Builder
		steps        []Step
		parseRetries int
	)

	for step := 0; step < l.cfg.MaxSteps; step++ {
		output, err := l.callModel(ctx, spec, input, scratchpad.String())
		if err != nil {
			return nil, err
		}

		dec, err := parseDecision(output)
		if err != nil {
			parseRetries++
			l.logger.Warn("unparseable agent output", "retry", parseRetries, "output_len", len(output))
			if parseRetries > l.cfg.MaxParseRetries {
				return nil, &FormatError{Output: output, Retries: l.cfg.MaxParseRetries}
			}
			fmt.Fprintf(&scratchpad, "%s\nObservation: %s\n", output, retryObservation)
			continue
		}
		parseRetries = 0

		if dec.Final {
			l.logger.Info("agent run completed", "steps", len(steps))
			return &Result{Answer: dec.FinalAnswer, Steps: steps}, nil
		}

		observation := l.observe(ctx, dec)
		st := Step{
			Thought:     dec.Thought,
			Action:      dec.Action,
			ActionInput: dec.ActionInput,
			Observation: observation,
		}
		steps = append(steps, st)
		if onStep != nil {
			onStep(st)
		}

		fmt.Fprintf(&scratchpad, "Thought: %s\nAction: %s\nAction Input: %s\nObservation: %s\n",
			dec.Thought, dec.Action, dec.ActionInput, observation)
	}

	l.logger.Warn("agent step limit reached", "max_steps", l.cfg.MaxSteps)
	return nil, &StepLimitError{MaxSteps: l.cfg.MaxSteps}
}

// observe executes the chosen tool. Tool failures become observations
// the model can recover from rather than run-fatal errors.
func (l *Loop) observe(ctx context.Context, dec *decision) string {
	out, err := l.tools.Execute(ctx, dec.Action, dec.ActionInput)
	if err != nil {
		l.logger.Debug("tool execution failed", "tool", dec.Action, "error", err)
		var unavail *tools.ErrToolUnavailable
		if errors.As(err, &unavail) {
			return fmt.Sprintf("%s is not a valid tool, try one of [%s].", dec.Action, strings.Join(l.tools.Names(), ", "))
		}
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func (l *Loop) callModel(ctx context.Context, spec prompts.Spec, input, scratchpad string) (string, error) {
	rendered, err := spec.Render(map[string]string{
		"tools":            l.tools.Describe(),
		"tool_names":       strings.Join(l.tools.Names(), ", "),
		"input":            input,
		"agent_scratchpad": scratchpad,
	})
	if err != nil {
		return "", err
	}

	msgs := make([]llm.Message, 0, len(rendered))
	for _, m := range rendered {
		role := m.Role
		if role == "human" {
			role = "user"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}

	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	resp, err := l.llm.Chat(ctx, l.cfg.Model, msgs, llm.Options{Temperature: l.cfg.Temperature})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
