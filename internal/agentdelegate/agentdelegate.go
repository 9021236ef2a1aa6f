// Package agentdelegate hands a work item to an external AI coding agent and
// waits for it to finish, for jobs whose work kind is agent delegation. It
// intentionally says nothing about the agent's prompt protocol or which LLM
// backend serves the request: that is left to the command it shells out to.
package agentdelegate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Request describes one delegation.
type Request struct {
	Task         string
	Instructions string
	WorktreePath string
	SessionID    string
	Model        string
	ContextFiles []string
	MaxTurns     int
	ExtraContext string
}

// Metrics reports what the run cost, when the delegate can supply it.
type Metrics struct {
	DurationMS int64
	TurnCount  int
}

// Result is the outcome of one delegation.
type Result struct {
	Success   bool
	SessionID string
	Error     string
	ExitCode  int
	Metrics   *Metrics
}

// Delegator hands work to an agent and blocks until it exits.
type Delegator interface {
	Delegate(ctx context.Context, req Request) (Result, error)
}

// CommandBuilder constructs the shell invocation for a delegation request.
// Swapping this out is how a caller points delegation at a different backend
// without touching CLIDelegator itself.
type CommandBuilder interface {
	Build(req Request, promptFile string) (name string, args []string)
}

// CLIDelegator shells out to a command-line agent, writing the composed
// prompt to a file in the worktree the way Claudio's session launcher does
// before a start command reads it back with `cat`.
type CLIDelegator struct {
	builder CommandBuilder
}

// New creates a CLIDelegator using builder to construct each invocation.
func New(builder CommandBuilder) *CLIDelegator {
	return &CLIDelegator{builder: builder}
}

var _ Delegator = (*CLIDelegator)(nil)

// Delegate writes the prompt file, runs the built command with its working
// directory set to the worktree, and reports whether it exited zero.
func (d *CLIDelegator) Delegate(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	promptFile := filepath.Join(req.WorktreePath, ".orchestrator-prompt")
	if err := os.WriteFile(promptFile, []byte(composePrompt(req)), 0644); err != nil {
		return Result{}, fmt.Errorf("failed to write prompt file: %w", err)
	}
	defer os.Remove(promptFile)

	name, args := d.builder.Build(req, promptFile)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = req.WorktreePath

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	result := Result{
		SessionID: req.SessionID,
		Metrics:   &Metrics{DurationMS: elapsed.Milliseconds()},
	}

	if err != nil {
		result.Success = false
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		result.Error = firstNonEmpty(stderr.String(), err.Error())
		return result, nil
	}

	result.Success = true
	return result, nil
}

func composePrompt(req Request) string {
	var b bytes.Buffer
	b.WriteString(req.Task)
	if req.Instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(req.Instructions)
	}
	if req.ExtraContext != "" {
		b.WriteString("\n\n")
		b.WriteString(req.ExtraContext)
	}
	for _, f := range req.ContextFiles {
		fmt.Fprintf(&b, "\n\nSee also: %s", f)
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
