package phase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/engine"
	"github.com/dagforge/dagforge/internal/evidence"
)

var errDummy = errors.New("merge conflict")

func successfulDelegation() agentdelegate.Result {
	return agentdelegate.Result{Success: true}
}

func newTestPlan() *engine.Plan {
	a := &engine.Node{ID: "a", Name: "a", Kind: engine.NodeKindJob, Task: "build"}
	b := &engine.Node{ID: "b", Name: "b", Kind: engine.NodeKindJob, Task: "test", Dependencies: []string{"a"}}
	return &engine.Plan{
		ID:    "plan-1",
		Nodes: map[string]*engine.Node{"a": a, "b": b},
		NodeStates: map[string]*engine.NodeExecutionState{
			"a": engine.NewNodeExecutionState(engine.StatusPending),
			"b": engine.NewNodeExecutionState(engine.StatusPending),
		},
	}
}

func newTestContext(t *testing.T, plan *engine.Plan, nodeID string, ops *fakeOps, delegator *fakeDelegator) *PhaseContext {
	t.Helper()
	dir := t.TempDir()
	return &PhaseContext{
		Context:      context.Background(),
		Plan:         plan,
		Node:         plan.Nodes[nodeID],
		State:        plan.NodeStates[nodeID],
		Git:          ops,
		Evidence:     evidence.New(),
		Delegator:    delegator,
		WorktreePath: dir,
		LogWriter:    &memLineWriter{},
	}
}

func TestRunExecutesAllPhasesInOrder(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{head: "deadbeef"}
	pc := newTestContext(t, plan, "a", ops, nil)

	pipeline := Pipeline{
		engine.PhaseMergeFI:    func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
		engine.PhaseSetup:      Setup,
		engine.PhasePrechecks:  func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSuccess} },
		engine.PhaseWork:       func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSuccess} },
		engine.PhaseCommit:     Commit,
		engine.PhasePostchecks: func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSuccess} },
		engine.PhaseMergeRI:    func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSuccess} },
	}

	failedPhase, result := Run(pipeline, pc, "")
	if failedPhase != "" {
		t.Fatalf("expected no failed phase, got %s: %s", failedPhase, result.Error)
	}
	if result.Status != engine.StepSuccess {
		t.Errorf("expected overall success, got %+v", result)
	}
	for _, name := range engine.Order() {
		if pc.State.StepStatuses[name] == "" {
			t.Errorf("expected step status recorded for phase %s", name)
		}
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{}
	pc := newTestContext(t, plan, "a", ops, nil)

	calledWork := false
	pipeline := Pipeline{
		engine.PhaseMergeFI:   func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
		engine.PhaseSetup:     Setup,
		engine.PhasePrechecks: func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepFailed, Error: "boom"} },
		engine.PhaseWork: func(pc *PhaseContext) PhaseResult {
			calledWork = true
			return PhaseResult{Status: engine.StepSuccess}
		},
	}

	failedPhase, result := Run(pipeline, pc, "")
	if failedPhase != engine.PhasePrechecks {
		t.Fatalf("expected failure at prechecks, got %s", failedPhase)
	}
	if result.Error != "boom" {
		t.Errorf("expected failure detail to propagate, got %q", result.Error)
	}
	if calledWork {
		t.Error("expected phases after a failure to be skipped")
	}
}

func TestRunResumesFromStartAt(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{}
	pc := newTestContext(t, plan, "a", ops, nil)

	var ran []engine.PhaseName
	record := func(name engine.PhaseName) Handler {
		return func(pc *PhaseContext) PhaseResult {
			ran = append(ran, name)
			return PhaseResult{Status: engine.StepSuccess}
		}
	}
	pipeline := Pipeline{
		engine.PhaseMergeFI:   record(engine.PhaseMergeFI),
		engine.PhaseSetup:     record(engine.PhaseSetup),
		engine.PhasePrechecks: record(engine.PhasePrechecks),
	}

	_, _ = Run(pipeline, pc, engine.PhasePrechecks)
	if len(ran) != 1 || ran[0] != engine.PhasePrechecks {
		t.Fatalf("expected only prechecks to run when resuming there, got %v", ran)
	}
}

func TestRunStopsWhenAborted(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{}
	pc := newTestContext(t, plan, "a", ops, nil)
	pc.Aborted = func() bool { return true }

	calledAnyPhase := false
	pipeline := Pipeline{
		engine.PhaseMergeFI: func(pc *PhaseContext) PhaseResult {
			calledAnyPhase = true
			return PhaseResult{Status: engine.StepSuccess}
		},
	}

	failedPhase, result := Run(pipeline, pc, "")
	if calledAnyPhase {
		t.Fatalf("expected no phase handler to run once aborted")
	}
	if failedPhase == "" || result.Status != engine.StepFailed {
		t.Fatalf("expected Run to report failure on an aborted execution, got phase=%s result=%+v", failedPhase, result)
	}
}

func TestRunPersistsAgentSessionAndMetricsOntoState(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{}
	pc := newTestContext(t, plan, "a", ops, nil)

	pipeline := Pipeline{
		engine.PhaseMergeFI: func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
		engine.PhaseSetup:   func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
		engine.PhasePrechecks: func(pc *PhaseContext) PhaseResult {
			return PhaseResult{Status: engine.StepSkipped, Skipped: true}
		},
		engine.PhaseWork: func(pc *PhaseContext) PhaseResult {
			return PhaseResult{
				Status:    engine.StepSuccess,
				SessionID: "session-123",
				ExitCode:  0,
				Metrics:   &engine.AgentMetrics{DurationMS: 4200, TurnCount: 3},
			}
		},
		engine.PhaseCommit:     func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
		engine.PhasePostchecks: func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
		engine.PhaseMergeRI:    func(pc *PhaseContext) PhaseResult { return PhaseResult{Status: engine.StepSkipped, Skipped: true} },
	}

	if failedPhase, result := Run(pipeline, pc, ""); failedPhase != "" {
		t.Fatalf("expected no failure, got %s: %+v", failedPhase, result)
	}
	if pc.State.CopilotSessionID != "session-123" {
		t.Errorf("expected session id persisted onto node state, got %q", pc.State.CopilotSessionID)
	}
	if pc.State.AgentMetrics == nil || pc.State.AgentMetrics.TurnCount != 3 {
		t.Errorf("expected metrics persisted onto node state, got %+v", pc.State.AgentMetrics)
	}
}

func TestDefaultWiresEveryPhase(t *testing.T) {
	p := Default()
	for _, name := range engine.Order() {
		if _, ok := p[name]; !ok {
			t.Errorf("expected default pipeline to wire phase %s", name)
		}
	}
}

func TestSetupCreatesOrchestratorDirsAndGitignore(t *testing.T) {
	plan := newTestPlan()
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	result := Setup(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected setup to succeed, got %+v", result)
	}
	for _, dir := range []string{"evidence", "instructions", "cli-state"} {
		if _, err := os.Stat(filepath.Join(pc.WorktreePath, ".orchestrator", dir)); err != nil {
			t.Errorf("expected %s directory created: %v", dir, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(pc.WorktreePath, ".gitignore"))
	if err != nil {
		t.Fatalf("expected .gitignore created: %v", err)
	}
	if string(data) != ".orchestrator/\n" {
		t.Errorf("unexpected .gitignore contents: %q", data)
	}
}

func TestSetupIsIdempotentOnExistingGitignore(t *testing.T) {
	plan := newTestPlan()
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	if err := os.WriteFile(filepath.Join(pc.WorktreePath, ".gitignore"), []byte("node_modules/\n.orchestrator/\n"), 0644); err != nil {
		t.Fatalf("seed .gitignore: %v", err)
	}

	if result := Setup(pc); result.Status != engine.StepSuccess {
		t.Fatalf("expected setup to succeed, got %+v", result)
	}

	data, err := os.ReadFile(filepath.Join(pc.WorktreePath, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	if string(data) != "node_modules/\n.orchestrator/\n" {
		t.Errorf("expected existing entry left untouched, got %q", data)
	}
}

func TestCommitStagesAndCommitsDirtyWorktree(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{uncommitted: true, head: "cafebabe"}
	pc := newTestContext(t, plan, "a", ops, nil)

	result := Commit(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected commit to succeed, got %+v", result)
	}
	if pc.State.CompletedCommit != "cafebabe" {
		t.Errorf("expected completed commit recorded, got %q", pc.State.CompletedCommit)
	}
}

func TestCommitFallsBackToEvidenceWhenClean(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].ExpectsNoChanges = true
	ops := &fakeOps{uncommitted: false, head: "clean-head"}
	pc := newTestContext(t, plan, "a", ops, nil)

	result := Commit(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected expectsNoChanges with no evidence file to satisfy commit, got %+v", result)
	}
	if pc.State.CompletedCommit != "clean-head" {
		t.Errorf("expected HEAD recorded even on the evidence path, got %q", pc.State.CompletedCommit)
	}
}

func TestCommitFailsWhenCleanAndNoEvidence(t *testing.T) {
	plan := newTestPlan()
	ops := &fakeOps{uncommitted: false}
	pc := newTestContext(t, plan, "a", ops, nil)

	result := Commit(pc)
	if result.Status != engine.StepFailed {
		t.Fatalf("expected commit to fail with no changes and no evidence, got %+v", result)
	}
}

func TestMergeFISkipsWithFewerThanTwoDependencyCommits(t *testing.T) {
	plan := newTestPlan()
	plan.NodeStates["a"].CompletedCommit = "commit-a"
	ops := &fakeOps{}
	pc := newTestContext(t, plan, "b", ops, nil)

	result := MergeFI(pc)
	if !result.Skipped {
		t.Fatalf("expected skip with a single dependency commit, got %+v", result)
	}
	if len(ops.mergeCalls) != 0 {
		t.Errorf("expected no merge attempted, got %v", ops.mergeCalls)
	}
}

func TestMergeFIMergesExtraDependencyCommits(t *testing.T) {
	plan := newTestPlan()
	c := &engine.Node{ID: "c", Name: "c", Kind: engine.NodeKindJob, Task: "extra"}
	plan.Nodes["c"] = c
	plan.NodeStates["c"] = engine.NewNodeExecutionState(engine.StatusPending)
	plan.Nodes["b"].Dependencies = []string{"a", "c"}
	plan.NodeStates["a"].CompletedCommit = "commit-a"
	plan.NodeStates["c"].CompletedCommit = "commit-c"

	ops := &fakeOps{}
	pc := newTestContext(t, plan, "b", ops, nil)

	result := MergeFI(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected merge-fi to succeed, got %+v", result)
	}
	if len(ops.mergeCalls) != 1 || ops.mergeCalls[0] != "commit-c" {
		t.Errorf("expected a single merge of the second dependency's commit, got %v", ops.mergeCalls)
	}
}

func TestMergeFIResolvesConflictViaDelegate(t *testing.T) {
	plan := newTestPlan()
	c := &engine.Node{ID: "c", Name: "c", Kind: engine.NodeKindJob, Task: "extra"}
	plan.Nodes["c"] = c
	plan.NodeStates["c"] = engine.NewNodeExecutionState(engine.StatusPending)
	plan.Nodes["b"].Dependencies = []string{"a", "c"}
	plan.NodeStates["a"].CompletedCommit = "commit-a"
	plan.NodeStates["c"].CompletedCommit = "commit-c"

	ops := &fakeOps{mergeErr: errDummy, uncommitted: false}
	delegator := &fakeDelegator{result: successfulDelegation()}
	pc := newTestContext(t, plan, "b", ops, delegator)

	result := MergeFI(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected delegate to resolve the conflict, got %+v", result)
	}
}

func TestMergeFIConflictInstructionsHonorConfiguredMergePreference(t *testing.T) {
	plan := newTestPlan()
	c := &engine.Node{ID: "c", Name: "c", Kind: engine.NodeKindJob, Task: "extra"}
	plan.Nodes["c"] = c
	plan.NodeStates["c"] = engine.NewNodeExecutionState(engine.StatusPending)
	plan.Nodes["b"].Dependencies = []string{"a", "c"}
	plan.NodeStates["a"].CompletedCommit = "commit-a"
	plan.NodeStates["c"].CompletedCommit = "commit-c"

	ops := &fakeOps{mergeErr: errDummy}
	delegator := &fakeDelegator{result: successfulDelegation()}
	pc := newTestContext(t, plan, "b", ops, delegator)
	pc.MergePreference = "ours"

	result := MergeFI(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected delegate to resolve the conflict, got %+v", result)
	}
	if !strings.Contains(delegator.lastRequest.Instructions, `"ours"`) {
		t.Errorf("expected conflict instructions to mention the configured preference, got %q", delegator.lastRequest.Instructions)
	}
}

func TestMergeFIConflictInstructionsDefaultToTheirs(t *testing.T) {
	plan := newTestPlan()
	c := &engine.Node{ID: "c", Name: "c", Kind: engine.NodeKindJob, Task: "extra"}
	plan.Nodes["c"] = c
	plan.NodeStates["c"] = engine.NewNodeExecutionState(engine.StatusPending)
	plan.Nodes["b"].Dependencies = []string{"a", "c"}
	plan.NodeStates["a"].CompletedCommit = "commit-a"
	plan.NodeStates["c"].CompletedCommit = "commit-c"

	ops := &fakeOps{mergeErr: errDummy}
	delegator := &fakeDelegator{result: successfulDelegation()}
	pc := newTestContext(t, plan, "b", ops, delegator)

	if result := MergeFI(pc); result.Status != engine.StepSuccess {
		t.Fatalf("expected delegate to resolve the conflict, got %+v", result)
	}
	if !strings.Contains(delegator.lastRequest.Instructions, `"theirs"`) {
		t.Errorf("expected conflict instructions to default to theirs, got %q", delegator.lastRequest.Instructions)
	}
}

func TestMergeFIFailsWhenDelegateCannotResolve(t *testing.T) {
	plan := newTestPlan()
	c := &engine.Node{ID: "c", Name: "c", Kind: engine.NodeKindJob, Task: "extra"}
	plan.Nodes["c"] = c
	plan.NodeStates["c"] = engine.NewNodeExecutionState(engine.StatusPending)
	plan.Nodes["b"].Dependencies = []string{"a", "c"}
	plan.NodeStates["a"].CompletedCommit = "commit-a"
	plan.NodeStates["c"].CompletedCommit = "commit-c"

	ops := &fakeOps{mergeErr: errDummy}
	pc := newTestContext(t, plan, "b", ops, nil)

	result := MergeFI(pc)
	if result.Status != engine.StepFailed {
		t.Fatalf("expected merge-fi to fail with no delegator available, got %+v", result)
	}
}
