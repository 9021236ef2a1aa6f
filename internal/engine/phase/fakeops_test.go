package phase

import (
	"context"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/gitops"
)

// fakeOps is a minimal in-memory gitops.Ops double for phase tests. Fields
// are scripted per test rather than backed by a real repository, matching
// how internal/worktree's own tests fake out CommandExecutor.
type fakeOps struct {
	uncommitted    bool
	uncommittedErr error
	commitErr      error
	stageErr       error
	head           string
	headErr        error
	mergeErr       error
	mergeCalls     []string

	mergeWithoutCheckoutResult gitops.MergeResult
	mergeWithoutCheckoutErr    error
	commitTreeSHA              string
	commitTreeErr              error
	updateRefErr               error
	resetHardErr               error
	resolveRefResult           string
	resolveRefErr              error
	currentBranch              string
	currentBranchOK            bool

	pushCalls []string
	pushErr   error
}

var _ gitops.Ops = (*fakeOps)(nil)

func (f *fakeOps) CreateDetachedWorktreeAtRef(string, string, string) error { return nil }
func (f *fakeOps) RemoveWorktreeSafe(string, string) error                 { return nil }
func (f *fakeOps) ListWorktrees(string) ([]string, error)                  { return nil, nil }
func (f *fakeOps) GetHeadCommit(string) (string, error)                    { return f.head, f.headErr }
func (f *fakeOps) HasUncommittedChanges(string) (bool, error) {
	return f.uncommitted, f.uncommittedErr
}
func (f *fakeOps) StageAll(string) error               { return f.stageErr }
func (f *fakeOps) Commit(string, string) error         { return f.commitErr }
func (f *fakeOps) ResolveRef(string, string) (string, error) {
	return f.resolveRefResult, f.resolveRefErr
}
func (f *fakeOps) ComputeDiffStats(string, string, string) (gitops.DiffStats, error) {
	return gitops.DiffStats{}, nil
}
func (f *fakeOps) ListFilesChanged(string, string, string) ([]gitops.FileChange, error) {
	return nil, nil
}
func (f *fakeOps) Push(repoPath, branch string) error {
	f.pushCalls = append(f.pushCalls, branch)
	return f.pushErr
}
func (f *fakeOps) Checkout(string, string) error { return nil }
func (f *fakeOps) CurrentBranchOrNull(string) (string, bool, error) {
	return f.currentBranch, f.currentBranchOK, nil
}
func (f *fakeOps) StashPush(string) (bool, error) { return false, nil }
func (f *fakeOps) StashPop(string) error          { return nil }
func (f *fakeOps) Merge(worktreePath, srcRef, message string, fastForward bool) error {
	f.mergeCalls = append(f.mergeCalls, srcRef)
	return f.mergeErr
}
func (f *fakeOps) MergeAbort(string) error { return nil }
func (f *fakeOps) MergeWithoutCheckout(string, string, string) (gitops.MergeResult, error) {
	return f.mergeWithoutCheckoutResult, f.mergeWithoutCheckoutErr
}
func (f *fakeOps) CommitTree(string, string, string, []string) (string, error) {
	return f.commitTreeSHA, f.commitTreeErr
}
func (f *fakeOps) UpdateRef(string, string, string) error { return f.updateRefErr }
func (f *fakeOps) ResetHard(string, string) error          { return f.resetHardErr }

// fakeDelegator scripts one delegation outcome for tests that exercise
// conflict-resolution fallbacks.
type fakeDelegator struct {
	result agentdelegate.Result
	err    error

	lastRequest agentdelegate.Request
}

func (f *fakeDelegator) Delegate(_ context.Context, req agentdelegate.Request) (agentdelegate.Result, error) {
	f.lastRequest = req
	return f.result, f.err
}

// memLineWriter records every logged line in memory for assertions.
type memLineWriter struct {
	lines []string
}

func (m *memLineWriter) WriteLine(line string) { m.lines = append(m.lines, line) }
