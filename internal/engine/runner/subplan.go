package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dagforge/dagforge/internal/engine"
	"github.com/dagforge/dagforge/internal/engine/phase"
)

// runSubPlan builds and registers a child plan from node's embedded spec,
// runs it to completion under the normal pump (since it is just another
// registered plan), then translates the child's terminal status back onto
// the parent node.
func (r *Runner) runSubPlan(e *planEntry, node *engine.Node) {
	e.sm.Transition(node.ID, engine.StatusRunning, nil)
	r.publishStateMachineEvents(e)

	childSpec := *node.SubPlanSpec
	if childSpec.RepoPath == "" {
		childSpec.RepoPath = e.plan.RepoPath
	}
	if childSpec.BaseBranch == "" {
		childSpec.BaseBranch = resolveChildBaseBranch(e.plan, node)
	}
	if childSpec.MaxParallel == 0 {
		childSpec.MaxParallel = node.SubPlanMaxParallel
	}

	childPlan, err := engine.Build(&childSpec)
	if err != nil {
		r.failNode(e, node.ID, "failed to build child plan: "+err.Error())
		return
	}
	childPlan.ID = uuid.NewString()
	if childPlan.MaxParallel == 0 {
		childPlan.MaxParallel = r.maxParallel
	}
	childPlan.WorktreeRoot = r.store.WorktreeRoot(childPlan.ID)

	childSM := engine.NewStateMachine(childPlan, r.logger)

	r.mu.Lock()
	r.plans[childPlan.ID] = &planEntry{plan: childPlan, sm: childSM}
	r.mu.Unlock()

	state := e.sm.NodeState(node.ID)
	state.ChildPlanID = childPlan.ID
	r.store.Save(childPlan)
	r.bus.Publish(engine.NewPlanCreatedEvent(childPlan))

	status := waitForPlanTerminal(childSM, r.pumpInterval)
	r.bus.Publish(engine.NewPlanCompletedEvent(childPlan.ID, status))

	switch status {
	case engine.PlanSucceeded, engine.PlanPartial:
		r.onChildPlanSucceeded(e, node, childPlan)
	default:
		e.sm.Transition(node.ID, engine.StatusFailed, func(s *engine.NodeExecutionState) {
			s.Error = fmt.Sprintf("Child plan %s", status)
		})
	}

	r.publishStateMachineEvents(e)
	r.cleanupEligibleWorktrees(e.plan)
	r.store.Save(e.plan)
}

// onChildPlanSucceeded copies a completed commit from a child leaf onto the
// parent node, then fires reverse integration if the sub-plan node is
// itself a leaf of the parent plan.
func (r *Runner) onChildPlanSucceeded(e *planEntry, node *engine.Node, childPlan *engine.Plan) {
	var leafCommit string
	for _, leafID := range childPlan.Leaves {
		if s := childPlan.State(leafID); s != nil && s.CompletedCommit != "" {
			leafCommit = s.CompletedCommit
			break
		}
	}

	e.sm.Transition(node.ID, engine.StatusSucceeded, func(s *engine.NodeExecutionState) {
		s.CompletedCommit = leafCommit
	})

	if leafCommit == "" || !e.plan.IsLeaf(node.ID) || e.plan.TargetBranch == "" {
		return
	}

	r.mergeSubPlanNodeToTarget(e, node)
}

// mergeSubPlanNodeToTarget runs the merge-ri phase in isolation for a
// sub-plan node, since sub-plan nodes do not go through the job pipeline.
func (r *Runner) mergeSubPlanNodeToTarget(e *planEntry, node *engine.Node) {
	state := e.sm.NodeState(node.ID)
	pc := &phase.PhaseContext{
		Context:         context.Background(),
		Plan:            e.plan,
		Node:            node,
		State:           state,
		Git:             r.git,
		Delegator:       r.delegator,
		Logger:          r.logger,
		MergePreference: r.mergePrefer,
		PushOnSuccess:   r.pushOnSuccess,
	}
	phase.MergeRI(pc)
}

func resolveChildBaseBranch(plan *engine.Plan, node *engine.Node) string {
	for _, depID := range node.Dependencies {
		if s := plan.State(depID); s != nil && s.CompletedCommit != "" {
			return s.CompletedCommit
		}
	}
	return plan.BaseBranch
}
