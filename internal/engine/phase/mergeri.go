package phase

import (
	"fmt"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/engine"
)

// MergeRI performs Reverse Integration: merging a leaf node's completed
// commit back into its configured target branch. It only fires for leaf
// nodes with a target branch configured.
func MergeRI(pc *PhaseContext) PhaseResult {
	if !pc.Plan.IsLeaf(pc.Node.ID) || pc.Plan.TargetBranch == "" {
		return PhaseResult{Status: engine.StepSkipped, Skipped: true}
	}
	if pc.State.CompletedCommit == "" {
		return PhaseResult{Status: engine.StepSkipped, Skipped: true}
	}

	merged := tryFastPath(pc)
	if merged {
		t := true
		pc.State.MergedToTarget = &t
		return PhaseResult{Status: engine.StepSuccess}
	}

	if resolveConflictViaStashedCheckout(pc) {
		t := true
		pc.State.MergedToTarget = &t
		return PhaseResult{Status: engine.StepSuccess}
	}

	// The node's own work is sound; only the merge failed. The node stays
	// succeeded but unmerged so the operator can retry by hand.
	f := false
	pc.State.MergedToTarget = &f
	return PhaseResult{Status: engine.StepSuccess}
}

// tryFastPath attempts the checkout-free in-memory merge against the
// target branch's current tip.
func tryFastPath(pc *PhaseContext) bool {
	result, err := pc.Git.MergeWithoutCheckout(pc.Plan.RepoPath, pc.Plan.TargetBranch, pc.State.CompletedCommit)
	if err != nil || result.HasConflicts {
		return false
	}

	targetTip, err := pc.Git.ResolveRef(pc.Plan.RepoPath, pc.Plan.TargetBranch)
	if err != nil {
		return false
	}

	message := fmt.Sprintf("PLAN %s: merge %s", pc.Plan.Spec.Name, pc.Node.Name)
	commitSHA, err := pc.Git.CommitTree(pc.Plan.RepoPath, result.TreeSHA, message, []string{targetTip})
	if err != nil {
		return false
	}

	if err := advanceTargetBranch(pc, commitSHA); err != nil {
		return false
	}

	maybePush(pc)
	return true
}

// maybePush pushes the target branch when pc.PushOnSuccess is set, logging
// but not failing the phase if the push itself fails: the merge already
// landed locally.
func maybePush(pc *PhaseContext) {
	if !pc.PushOnSuccess {
		return
	}
	if err := pc.Git.Push(pc.Plan.RepoPath, pc.Plan.TargetBranch); err != nil {
		pc.LogOutput("STDERR", fmt.Sprintf("failed to push %s: %v", pc.Plan.TargetBranch, err))
	}
}

// advanceTargetBranch moves targetBranch to commitSHA. If the operator's
// repository is currently checked out to the target branch, a hard reset is
// used (after stashing dirty work); otherwise the ref is updated directly
// without touching the working tree.
func advanceTargetBranch(pc *PhaseContext, commitSHA string) error {
	branch, ok, err := pc.Git.CurrentBranchOrNull(pc.Plan.RepoPath)
	if err != nil {
		return err
	}

	if ok && branch == pc.Plan.TargetBranch {
		stashed, err := pc.Git.StashPush(pc.Plan.RepoPath)
		if err != nil {
			return err
		}
		if err := pc.Git.ResetHard(pc.Plan.RepoPath, commitSHA); err != nil {
			return err
		}
		if stashed {
			return pc.Git.StashPop(pc.Plan.RepoPath)
		}
		return nil
	}

	return pc.Git.UpdateRef(pc.Plan.RepoPath, pc.Plan.TargetBranch, commitSHA)
}

// resolveConflictViaStashedCheckout falls back to a real checkout-based
// merge in the main repository when the fast path finds conflicts: stash
// the operator's dirty work, checkout target, merge without committing,
// delegate conflict resolution, and always restore the operator's branch
// and stash no matter the outcome.
func resolveConflictViaStashedCheckout(pc *PhaseContext) bool {
	repoPath := pc.Plan.RepoPath

	originalBranch, hadBranch, err := pc.Git.CurrentBranchOrNull(repoPath)
	if err != nil {
		return false
	}
	stashed, err := pc.Git.StashPush(repoPath)
	if err != nil {
		return false
	}

	restore := func() {
		if hadBranch {
			pc.Git.Checkout(repoPath, originalBranch)
		}
		if stashed {
			pc.Git.StashPop(repoPath)
		}
	}

	if err := pc.Git.Checkout(repoPath, pc.Plan.TargetBranch); err != nil {
		restore()
		return false
	}

	message := fmt.Sprintf("PLAN %s: merge %s", pc.Plan.Spec.Name, pc.Node.Name)
	if err := pc.Git.Merge(repoPath, pc.State.CompletedCommit, message, false); err != nil {
		if !resolveRIConflictWithDelegate(pc, repoPath) {
			pc.Git.MergeAbort(repoPath)
			restore()
			return false
		}
	}

	restore()
	maybePush(pc)
	return true
}

func resolveRIConflictWithDelegate(pc *PhaseContext, repoPath string) bool {
	if pc.Delegator == nil {
		return false
	}
	instructions := fmt.Sprintf(
		"Resolve the git merge conflict currently in progress in this repository. "+
			"Prefer %q unless told otherwise, stage every resolved file, and commit the merge.",
		mergePreference(pc))
	result, err := pc.Delegator.Delegate(pc.Context, agentdelegate.Request{
		Task:         "Resolve merge conflict",
		Instructions: instructions,
		WorktreePath: repoPath,
	})
	if err != nil || !result.Success {
		return false
	}
	uncommitted, err := pc.Git.HasUncommittedChanges(repoPath)
	if err != nil {
		return false
	}
	return !uncommitted
}
