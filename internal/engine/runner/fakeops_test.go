package runner

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dagforge/dagforge/internal/gitops"
)

var errMerge = errors.New("simulated merge conflict")

// fakeOps is an in-memory gitops.Ops double. It never touches a real
// repository: CreateDetachedWorktreeAtRef just hands back a deterministic
// path, and every commit-bearing call returns a synthesized SHA, enough to
// drive a job through the full phase pipeline without git installed.
type fakeOps struct {
	commitCounter int32

	uncommitted bool
	failMerge   bool
}

func (f *fakeOps) nextCommit() string {
	n := atomic.AddInt32(&f.commitCounter, 1)
	return fmt.Sprintf("commit-%d", n)
}

func (f *fakeOps) CreateDetachedWorktreeAtRef(repoPath, worktreePath, ref string) error { return nil }
func (f *fakeOps) RemoveWorktreeSafe(repoPath, worktreePath string) error               { return nil }
func (f *fakeOps) ListWorktrees(repoPath string) ([]string, error)                      { return nil, nil }
func (f *fakeOps) GetHeadCommit(worktreePath string) (string, error)                    { return f.nextCommit(), nil }
func (f *fakeOps) HasUncommittedChanges(worktreePath string) (bool, error) {
	return f.uncommitted, nil
}
func (f *fakeOps) StageAll(worktreePath string) error       { return nil }
func (f *fakeOps) Commit(worktreePath, message string) error { return nil }
func (f *fakeOps) ResolveRef(repoPath, ref string) (string, error) { return "base-commit", nil }
func (f *fakeOps) ComputeDiffStats(repoPath, fromCommit, toCommit string) (gitops.DiffStats, error) {
	return gitops.DiffStats{}, nil
}
func (f *fakeOps) ListFilesChanged(repoPath, fromCommit, toCommit string) ([]gitops.FileChange, error) {
	return nil, nil
}
func (f *fakeOps) Push(repoPath, branch string) error          { return nil }
func (f *fakeOps) Checkout(repoPath, ref string) error          { return nil }
func (f *fakeOps) CurrentBranchOrNull(repoPath string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeOps) StashPush(repoPath string) (bool, error) { return false, nil }
func (f *fakeOps) StashPop(repoPath string) error          { return nil }
func (f *fakeOps) Merge(worktreePath, srcRef, message string, fastForward bool) error {
	if f.failMerge {
		return errMerge
	}
	return nil
}
func (f *fakeOps) MergeAbort(worktreePath string) error { return nil }
func (f *fakeOps) MergeWithoutCheckout(repoPath, dstRef, srcCommit string) (gitops.MergeResult, error) {
	return gitops.MergeResult{TreeSHA: "tree-sha"}, nil
}
func (f *fakeOps) CommitTree(repoPath, treeSHA, message string, parents []string) (string, error) {
	return f.nextCommit(), nil
}
func (f *fakeOps) UpdateRef(repoPath, ref, commitSHA string) error { return nil }
func (f *fakeOps) ResetHard(repoPath, commitSHA string) error      { return nil }
