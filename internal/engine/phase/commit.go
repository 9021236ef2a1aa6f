package phase

import (
	"fmt"

	"github.com/dagforge/dagforge/internal/engine"
)

// Commit stages and commits any uncommitted work, or falls back to the
// Evidence Validator when the worktree is clean.
func Commit(pc *PhaseContext) PhaseResult {
	dirty, err := pc.Git.HasUncommittedChanges(pc.WorktreePath)
	if err != nil {
		return PhaseResult{Status: engine.StepFailed, Error: "failed to query worktree status: " + err.Error()}
	}

	if dirty {
		if err := pc.Git.StageAll(pc.WorktreePath); err != nil {
			return PhaseResult{Status: engine.StepFailed, Error: "failed to stage changes: " + err.Error()}
		}
		message := fmt.Sprintf("[PLAN] %s", pc.Node.Task)
		if err := pc.Git.Commit(pc.WorktreePath, message); err != nil {
			return PhaseResult{Status: engine.StepFailed, Error: "failed to commit: " + err.Error()}
		}
		head, err := pc.Git.GetHeadCommit(pc.WorktreePath)
		if err != nil {
			return PhaseResult{Status: engine.StepFailed, Error: "failed to read HEAD after commit: " + err.Error()}
		}
		pc.State.CompletedCommit = head
		return PhaseResult{Status: engine.StepSuccess}
	}

	result := pc.Evidence.Validate(pc.WorktreePath, pc.Node.ID, pc.Node.ExpectsNoChanges)
	if !result.Valid {
		return PhaseResult{Status: engine.StepFailed, Error: "No work evidence produced."}
	}

	head, err := pc.Git.GetHeadCommit(pc.WorktreePath)
	if err == nil {
		pc.State.CompletedCommit = head
	}
	return PhaseResult{Status: engine.StepSuccess}
}
