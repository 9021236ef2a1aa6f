package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dagforge/dagforge/internal/engine"
	engineexec "github.com/dagforge/dagforge/internal/engine/exec"
	"github.com/dagforge/dagforge/internal/engine/phase"
)

// runJob drives one job node through the full phase pipeline and records
// the outcome back onto the state machine.
func (r *Runner) runJob(e *planEntry, node *engine.Node) {
	state := e.sm.NodeState(node.ID)
	if state == nil {
		return
	}
	attempt := state.Attempts + 1

	e.sm.Transition(node.ID, engine.StatusRunning, func(s *engine.NodeExecutionState) {
		s.Attempts = attempt
		s.PID = nil
	})
	r.publishStateMachineEvents(e)

	key := engineexec.ExecutionKey{PlanID: e.plan.ID, NodeID: node.ID, Attempt: attempt}
	active, err := r.registry.Begin(key)
	if err != nil {
		r.failNode(e, node.ID, "failed to start execution log: "+err.Error())
		return
	}
	defer r.registry.End(key)

	active.SetStartTime(time.Now())

	worktreePath, baseCommit, err := r.prepareWorktree(e.plan, e.sm, node)
	if err != nil {
		r.failNode(e, node.ID, err.Error())
		return
	}
	state.WorktreePath = worktreePath
	state.BaseCommit = baseCommit

	pc := &phase.PhaseContext{
		Context:         context.Background(),
		Plan:            e.plan,
		Node:            node,
		State:           state,
		Git:             r.git,
		Evidence:        r.evidence,
		Delegator:       r.delegator,
		Logger:          r.logger,
		WorktreePath:    worktreePath,
		LogWriter:       active,
		MergePreference: r.mergePrefer,
		PushOnSuccess:   r.pushOnSuccess,
		Aborted:         active.IsAborted,
		OnProcessStart:  active.SetProcess,
		OnAgentWork:     active.SetIsAgentWork,
	}

	failedPhase, result := phase.Run(r.pipeline, pc, "")

	success := failedPhase == ""
	if success {
		e.sm.Transition(node.ID, engine.StatusSucceeded, nil)
	} else {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = fmt.Sprintf("phase %s failed", failedPhase)
		}
		e.sm.Transition(node.ID, engine.StatusFailed, func(s *engine.NodeExecutionState) {
			s.Error = errMsg
		})
	}

	r.publishStateMachineEvents(e)
	r.cleanupEligibleWorktrees(e.plan)
	r.store.Save(e.plan)
}

// failNode transitions node straight to failed without running any phase,
// for setup errors that occur before the pipeline can start.
func (r *Runner) failNode(e *planEntry, nodeID, errMsg string) {
	e.sm.Transition(nodeID, engine.StatusFailed, func(s *engine.NodeExecutionState) {
		s.Error = errMsg
	})
	r.publishStateMachineEvents(e)
	r.store.Save(e.plan)
}

// prepareWorktree creates the isolated worktree a job runs in, at the first
// dependency's completed commit, or at the plan's base branch for a root node.
func (r *Runner) prepareWorktree(plan *engine.Plan, sm *engine.StateMachine, node *engine.Node) (worktreePath, baseCommit string, err error) {
	commits := sm.GetBaseCommitsForNode(node.ID)

	if len(commits) > 0 {
		baseCommit = commits[0]
	} else {
		baseCommit, err = r.git.ResolveRef(plan.RepoPath, plan.BaseBranch)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve base branch %q: %w", plan.BaseBranch, err)
		}
	}

	worktreePath = filepath.Join(plan.WorktreeRoot, node.ID)
	if err := r.git.CreateDetachedWorktreeAtRef(plan.RepoPath, worktreePath, baseCommit); err != nil {
		return "", "", fmt.Errorf("failed to create worktree: %w", err)
	}

	return worktreePath, baseCommit, nil
}

// cleanupEligibleWorktrees walks every succeeded node and removes its
// worktree once nothing downstream still needs it: a leaf with no
// targetBranch, a leaf merged to its targetBranch, or a non-leaf whose
// dependents have all succeeded.
func (r *Runner) cleanupEligibleWorktrees(plan *engine.Plan) {
	for id, state := range plan.NodeStates {
		if state.Status != engine.StatusSucceeded || state.WorktreeCleanedUp || state.WorktreePath == "" {
			continue
		}

		eligible := false
		if plan.IsLeaf(id) {
			if plan.TargetBranch == "" {
				eligible = true
			} else if state.MergedToTarget != nil && *state.MergedToTarget {
				eligible = true
			}
		} else {
			eligible = allDependentsSucceeded(plan, id)
		}

		if !eligible {
			continue
		}

		if err := r.git.RemoveWorktreeSafe(plan.RepoPath, state.WorktreePath); err != nil {
			r.logger.Warn("failed to remove worktree", "node", id, "err", err)
			continue
		}
		state.WorktreeCleanedUp = true
	}
}

func allDependentsSucceeded(plan *engine.Plan, nodeID string) bool {
	node := plan.Node(nodeID)
	if node == nil || len(node.Dependents) == 0 {
		return false
	}
	for _, depID := range node.Dependents {
		state := plan.State(depID)
		if state == nil || state.Status != engine.StatusSucceeded {
			return false
		}
	}
	return true
}

// waitForPlanTerminal polls the given state machine until it reaches a
// terminal plan status, used by sub-plan coordination to translate a child
// plan's completion back onto its parent node.
func waitForPlanTerminal(sm *engine.StateMachine, interval time.Duration) engine.PlanStatus {
	for {
		status := sm.ComputePlanStatus()
		switch status {
		case engine.PlanSucceeded, engine.PlanFailed, engine.PlanPartial, engine.PlanCanceled:
			return status
		}
		time.Sleep(interval)
	}
}
