package phase

import (
	"testing"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/engine"
)

func TestWorkSkipsWhenNoWorkSpec(t *testing.T) {
	plan := newTestPlan()
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	result := Work(pc)
	if !result.Skipped {
		t.Fatalf("expected work to skip with no WorkSpec, got %+v", result)
	}
}

func TestWorkDispatchesShellCommand(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Work = &engine.WorkSpec{Kind: engine.WorkKindShell, Command: "exit 0"}
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	result := Work(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected shell work to succeed, got %+v", result)
	}
}

func TestWorkDispatchFailsOnNonzeroExit(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Work = &engine.WorkSpec{Kind: engine.WorkKindShell, Command: "exit 7"}
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	result := Work(pc)
	if result.Status != engine.StepFailed {
		t.Fatalf("expected nonzero exit to fail the phase, got %+v", result)
	}
}

func TestWorkDispatchesAgentDelegation(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Work = &engine.WorkSpec{Kind: engine.WorkKindAgent, Instructions: "do it"}
	delegator := &fakeDelegator{result: successfulDelegation()}
	pc := newTestContext(t, plan, "a", &fakeOps{}, delegator)

	result := Work(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected agent delegation to succeed, got %+v", result)
	}
}

func TestWorkAgentDelegationThreadsSessionAndMetrics(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Work = &engine.WorkSpec{Kind: engine.WorkKindAgent, Instructions: "do it"}
	delegator := &fakeDelegator{result: agentdelegate.Result{
		Success:   true,
		SessionID: "session-abc",
		ExitCode:  0,
		Metrics:   &agentdelegate.Metrics{DurationMS: 1500, TurnCount: 2},
	}}
	pc := newTestContext(t, plan, "a", &fakeOps{}, delegator)

	var sawAgentWork []bool
	pc.OnAgentWork = func(v bool) { sawAgentWork = append(sawAgentWork, v) }

	result := Work(pc)
	if result.Status != engine.StepSuccess {
		t.Fatalf("expected agent delegation to succeed, got %+v", result)
	}
	if result.SessionID != "session-abc" {
		t.Errorf("expected session id threaded onto the result, got %q", result.SessionID)
	}
	if result.Metrics == nil || result.Metrics.TurnCount != 2 {
		t.Errorf("expected metrics threaded onto the result, got %+v", result.Metrics)
	}
	if len(sawAgentWork) != 2 || sawAgentWork[0] != true || sawAgentWork[1] != false {
		t.Errorf("expected OnAgentWork to toggle true then false around the delegation, got %v", sawAgentWork)
	}
}

func TestWorkAgentDelegationFailsWithNoDelegator(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Work = &engine.WorkSpec{Kind: engine.WorkKindAgent, Instructions: "do it"}
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	result := Work(pc)
	if result.Status != engine.StepFailed {
		t.Fatalf("expected agent delegation with no delegator configured to fail, got %+v", result)
	}
}

func TestWorkDispatchReportsChildPidViaOnProcessStart(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Work = &engine.WorkSpec{Kind: engine.WorkKindShell, Command: "exit 0"}
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	var reportedPID int
	pc.OnProcessStart = func(pid int) { reportedPID = pid }

	if result := Work(pc); result.Status != engine.StepSuccess {
		t.Fatalf("expected shell work to succeed, got %+v", result)
	}
	if reportedPID <= 0 {
		t.Errorf("expected a positive pid reported via OnProcessStart, got %d", reportedPID)
	}
}

func TestPrechecksAndPostchecksDispatchIndependently(t *testing.T) {
	plan := newTestPlan()
	plan.Nodes["a"].Prechecks = &engine.WorkSpec{Kind: engine.WorkKindShell, Command: "exit 0"}
	plan.Nodes["a"].Postchecks = &engine.WorkSpec{Kind: engine.WorkKindShell, Command: "exit 1"}
	pc := newTestContext(t, plan, "a", &fakeOps{}, nil)

	if result := Prechecks(pc); result.Status != engine.StepSuccess {
		t.Fatalf("expected prechecks to succeed, got %+v", result)
	}
	if result := Postchecks(pc); result.Status != engine.StepFailed {
		t.Fatalf("expected postchecks to fail, got %+v", result)
	}
}
