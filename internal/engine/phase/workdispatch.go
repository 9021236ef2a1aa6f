package phase

import (
	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/engine"
	engineexec "github.com/dagforge/dagforge/internal/engine/exec"
)

// Prechecks runs pc.Node.Prechecks, if any.
func Prechecks(pc *PhaseContext) PhaseResult {
	return dispatch(pc, pc.Node.Prechecks)
}

// Work runs pc.Node.Work, the node's primary work item.
func Work(pc *PhaseContext) PhaseResult {
	return dispatch(pc, pc.Node.Work)
}

// Postchecks runs pc.Node.Postchecks, if any.
func Postchecks(pc *PhaseContext) PhaseResult {
	return dispatch(pc, pc.Node.Postchecks)
}

// dispatch runs one WorkSpec, branching on its variant, and is shared by
// the three phases that execute a WorkSpec.
func dispatch(pc *PhaseContext, spec *engine.WorkSpec) PhaseResult {
	if spec == nil {
		return PhaseResult{Status: engine.StepSkipped, Skipped: true}
	}

	if spec.IsAgentDelegation() {
		return dispatchAgent(pc, spec)
	}
	return dispatchProcess(pc, spec)
}

func dispatchAgent(pc *PhaseContext, spec *engine.WorkSpec) PhaseResult {
	if pc.Delegator == nil {
		return PhaseResult{Status: engine.StepFailed, Error: "no agent delegator configured"}
	}

	if pc.OnAgentWork != nil {
		pc.OnAgentWork(true)
		defer pc.OnAgentWork(false)
	}

	instructions := spec.Instructions
	if instructions == "" {
		instructions = spec.String
	}

	result, err := pc.Delegator.Delegate(pc.Context, agentdelegate.Request{
		Task:         pc.Node.Task,
		Instructions: instructions,
		WorktreePath: pc.WorktreePath,
		Model:        spec.Model,
		ContextFiles: spec.ContextFiles,
		MaxTurns:     spec.MaxTurns,
		ExtraContext: spec.ExtraContext,
	})
	if err != nil {
		return PhaseResult{Status: engine.StepFailed, Error: err.Error()}
	}

	res := PhaseResult{SessionID: result.SessionID, ExitCode: result.ExitCode}
	if result.Metrics != nil {
		res.Metrics = &engine.AgentMetrics{DurationMS: result.Metrics.DurationMS, TurnCount: result.Metrics.TurnCount}
	}
	if !result.Success {
		res.Status = engine.StepFailed
		res.Error = result.Error
		return res
	}
	res.Status = engine.StepSuccess
	return res
}

func dispatchProcess(pc *PhaseContext, spec *engine.WorkSpec) PhaseResult {
	opts := engineexec.SpawnOptions{
		Cwd:     pc.WorktreePath,
		Env:     spec.Env,
		Timeout: spec.Timeout,
		Output: func(kind engineexec.StreamKind, line string) {
			pc.LogOutput(streamTypeTag(kind), line)
		},
		OnStart: pc.OnProcessStart,
	}

	switch spec.Kind {
	case engine.WorkKindProcess:
		opts.Executable = spec.Executable
		opts.Args = spec.Args
	case engine.WorkKindShell:
		opts.Command = spec.Command
		opts.Shell = string(spec.Shell)
	default:
		opts.Command = spec.String
	}
	if opts.Cwd == "" {
		opts.Cwd = pc.WorktreePath
	}
	if spec.Cwd != "" {
		opts.Cwd = spec.Cwd
	}

	result := engineexec.Run(pc.Context, opts)
	if result.ExitCode != 0 {
		msg := "process exited nonzero"
		if result.Err != nil {
			msg = result.Err.Error()
		}
		return PhaseResult{Status: engine.StepFailed, Error: msg, ExitCode: result.ExitCode}
	}
	return PhaseResult{Status: engine.StepSuccess, ExitCode: result.ExitCode}
}

func streamTypeTag(kind engineexec.StreamKind) string {
	if kind == engineexec.StreamStderr {
		return "STDERR"
	}
	return "STDOUT"
}
