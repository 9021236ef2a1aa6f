package phase

import (
	"fmt"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/engine"
)

// MergeFI performs Forward Integration: merging every dependency commit
// beyond the first (the worktree was already created at the first
// dependency's commit) into the worktree HEAD. It always runs when a node
// has two or more dependency commits, even on a resumed execution.
func MergeFI(pc *PhaseContext) PhaseResult {
	commits := dependencyCommits(pc)
	if len(commits) < 2 {
		return PhaseResult{Status: engine.StepSkipped, Skipped: true}
	}

	for _, commit := range commits[1:] {
		short := commit
		if len(short) > 8 {
			short = short[:8]
		}
		message := fmt.Sprintf("Merge parent commit %s for job %s", short, pc.Node.Name)

		err := pc.Git.Merge(pc.WorktreePath, commit, message, true)
		if err == nil {
			continue
		}

		if !resolveConflictWithDelegate(pc, commit) {
			_ = pc.Git.MergeAbort(pc.WorktreePath)
			return PhaseResult{Status: engine.StepFailed, Error: "merge conflict unresolved during forward integration"}
		}
	}

	return PhaseResult{Status: engine.StepSuccess}
}

// resolveConflictWithDelegate asks the agent delegator to resolve the
// in-progress merge conflict, stage, and commit. It reports whether the
// worktree ended up with no remaining uncommitted conflict markers.
func resolveConflictWithDelegate(pc *PhaseContext, sourceCommit string) bool {
	if pc.Delegator == nil {
		return false
	}

	instructions := fmt.Sprintf(
		"Resolve the git merge conflict currently in progress in this worktree "+
			"(merging %s). Prefer %q unless told otherwise, stage every "+
			"resolved file, and commit the merge.", sourceCommit, mergePreference(pc))

	result, err := pc.Delegator.Delegate(pc.Context, agentdelegate.Request{
		Task:         "Resolve merge conflict",
		Instructions: instructions,
		WorktreePath: pc.WorktreePath,
	})
	if err != nil || !result.Success {
		return false
	}

	uncommitted, err := pc.Git.HasUncommittedChanges(pc.WorktreePath)
	if err != nil {
		return false
	}
	return !uncommitted
}

// dependencyCommits returns the base commits recorded for a node's
// dependencies, in dependency-list order.
func dependencyCommits(pc *PhaseContext) []string {
	var commits []string
	for _, depID := range pc.Node.Dependencies {
		if state := pc.Plan.State(depID); state != nil && state.CompletedCommit != "" {
			commits = append(commits, state.CompletedCommit)
		}
	}
	return commits
}
