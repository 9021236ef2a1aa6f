// Package phase implements the seven-stage job pipeline: merge-fi, setup,
// prechecks, work, commit, postchecks, merge-ri. Each stage is a pure
// function of a PhaseContext to a PhaseResult; the runner package sequences
// them and persists the transition after each one.
package phase

import (
	"context"
	"time"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/engine"
	"github.com/dagforge/dagforge/internal/evidence"
	"github.com/dagforge/dagforge/internal/gitops"
	"github.com/dagforge/dagforge/internal/logging"
)

// PhaseContext is everything one phase execution needs. It is assembled
// fresh by the runner for every phase of every attempt.
type PhaseContext struct {
	Context context.Context

	Plan *engine.Plan
	Node *engine.Node
	// State is the live NodeExecutionState; phases may read and mutate it
	// directly, matching the convention the runner uses when persisting.
	State *engine.NodeExecutionState

	Git       gitops.Ops
	Evidence  *evidence.Validator
	Delegator agentdelegate.Delegator

	Logger *logging.Logger

	// WorktreePath is set by the setup phase and available to every phase
	// after it.
	WorktreePath string

	// LogWriter receives tagged lines for the execution's append-only log.
	LogWriter LineWriter

	// CurrentPhase is set by Run before invoking each handler, so a handler
	// can tag its own output lines with the phase it ran under.
	CurrentPhase engine.PhaseName

	// MergePreference is the conflict-resolution side ("ours" or "theirs")
	// handed to the agent delegator during forward/reverse integration.
	MergePreference string

	// PushOnSuccess pushes the target branch after a successful reverse
	// integration merge.
	PushOnSuccess bool

	// Aborted reports whether the owning execution has been canceled. Run
	// checks it between phases so a canceled node stops advancing instead
	// of running every remaining phase to completion.
	Aborted func() bool

	// OnProcessStart, if set, is called with a spawned child's pid as soon
	// as it starts, so the owning execution can report it for cancellation.
	OnProcessStart func(pid int)

	// OnAgentWork, if set, is called to mark whether the phase currently
	// dispatching work is an agent delegation.
	OnAgentWork func(bool)
}

// isAborted reports whether pc carries a live abort signal that has fired.
// A nil Aborted func means the context was built without cancellation
// support and never aborts.
func (pc *PhaseContext) isAborted() bool {
	return pc.Aborted != nil && pc.Aborted()
}

// mergePreference returns pc.MergePreference, defaulting to "theirs" when
// the context was built without one set.
func mergePreference(pc *PhaseContext) string {
	if pc.MergePreference == "" {
		return "theirs"
	}
	return pc.MergePreference
}

// LogOutput writes one child-process output line, tagged
// "[<iso-timestamp>] [<PHASE>] [<TYPE>] <line>" per the execution log's
// format, where TYPE is STDOUT or STDERR.
func (pc *PhaseContext) LogOutput(streamType, line string) {
	if pc.LogWriter == nil {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	pc.LogWriter.WriteLine("[" + ts + "] [" + string(pc.CurrentPhase) + "] [" + streamType + "] " + line)
}

// LineWriter appends one already-formatted log line, e.g. to the per-attempt
// execution log file the exec package owns.
type LineWriter interface {
	WriteLine(line string)
}

// PhaseResult is what a single phase handler returns.
type PhaseResult struct {
	Status  engine.PhaseStepStatus
	Error   string
	Skipped bool

	// ExitCode is the underlying process exit code, when the phase ran one.
	ExitCode int
	// SessionID is the agent delegation session identifier, set only when
	// the phase dispatched work to an agent.
	SessionID string
	// Metrics carries agent delegation usage data (duration, turn count),
	// set only when the phase dispatched work to an agent.
	Metrics *engine.AgentMetrics
}

// Handler runs one pipeline phase.
type Handler func(pc *PhaseContext) PhaseResult

// Pipeline maps every fixed phase name to its handler, in engine.Order().
type Pipeline map[engine.PhaseName]Handler

// Default returns the production pipeline, wiring every phase's handler.
func Default() Pipeline {
	return Pipeline{
		engine.PhaseMergeFI:    MergeFI,
		engine.PhaseSetup:      Setup,
		engine.PhasePrechecks:  Prechecks,
		engine.PhaseWork:       Work,
		engine.PhaseCommit:     Commit,
		engine.PhasePostchecks: Postchecks,
		engine.PhaseMergeRI:    MergeRI,
	}
}

// Run executes phases in engine.Order() starting at startAt, stopping at the
// first failure. It logs a tagged line before and after every phase via
// pc.LogWriter, when set, per the execution log's line format.
func Run(pipeline Pipeline, pc *PhaseContext, startAt engine.PhaseName) (failedPhase engine.PhaseName, result PhaseResult) {
	order := engine.Order()
	started := startAt == ""

	for _, name := range order {
		if !started {
			if name == startAt {
				started = true
			} else {
				continue
			}
		}

		if pc.isAborted() {
			res := PhaseResult{Status: engine.StepFailed, Error: "canceled"}
			logLine(pc, name, "ABORT", res.Error)
			return name, res
		}

		handler, ok := pipeline[name]
		if !ok {
			continue
		}

		pc.CurrentPhase = name
		logLine(pc, name, "START", "")
		res := handler(pc)

		if pc.State.StepStatuses == nil {
			pc.State.StepStatuses = make(map[engine.PhaseName]engine.PhaseStepStatus)
		}
		pc.State.StepStatuses[name] = res.Status
		if res.SessionID != "" {
			pc.State.CopilotSessionID = res.SessionID
		}
		if res.Metrics != nil {
			pc.State.AgentMetrics = res.Metrics
		}
		if res.ExitCode != 0 {
			pc.State.LastExitCode = res.ExitCode
		}

		if res.Skipped {
			logLine(pc, name, "SKIP", res.Error)
			continue
		}
		if res.Status == engine.StepFailed {
			logLine(pc, name, "FAIL", res.Error)
			return name, res
		}
		logLine(pc, name, "OK", "")
	}
	return "", PhaseResult{Status: engine.StepSuccess}
}

func logLine(pc *PhaseContext, name engine.PhaseName, eventType, detail string) {
	if pc.LogWriter == nil {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	line := "[" + ts + "] [" + string(name) + "] [" + eventType + "]"
	if detail != "" {
		line += " " + detail
	}
	pc.LogWriter.WriteLine(line)
}
