// Package gitops provides the git operations the plan execution engine
// consumes: worktree lifecycle, commit/diff primitives via the git CLI, and
// the in-memory tree merge the reverse-integration fast path needs (which
// the CLI cannot do without checking out the target branch).
package gitops

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dagforge/dagforge/internal/errors"
)

// FileChangeKind classifies one file in a diff.
type FileChangeKind string

const (
	FileAdded    FileChangeKind = "added"
	FileModified FileChangeKind = "modified"
	FileDeleted  FileChangeKind = "deleted"
)

// FileChange is one entry of a diff's changed-file list.
type FileChange struct {
	Path string
	Kind FileChangeKind
}

// DiffStats summarizes a diff between two commits.
type DiffStats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// MergeResult is the outcome of an in-memory, checkout-free merge attempt.
type MergeResult struct {
	TreeSHA       string
	HasConflicts  bool
	ConflictFiles []string
}

// CommandExecutor abstracts process invocation for testability, matching the
// convention used by internal/worktree.CommandExecutor.
type CommandExecutor interface {
	Run(dir string, name string, args ...string) ([]byte, error)
	RunQuiet(dir string, name string, args ...string) error
}

// CLIExecutor runs commands with os/exec.
type CLIExecutor struct{}

// Run executes a command and returns its combined output.
func (CLIExecutor) Run(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RunQuiet executes a command and discards its output.
func (CLIExecutor) RunQuiet(dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.Run()
}

// Ops is the git operations surface the engine consumes (spec §6). A
// *CLIOps backed by the real git CLI plus go-git plumbing is the only
// production implementation; tests substitute a fake.
type Ops interface {
	CreateDetachedWorktreeAtRef(repoPath, worktreePath, ref string) error
	RemoveWorktreeSafe(repoPath, worktreePath string) error
	ListWorktrees(repoPath string) ([]string, error)

	GetHeadCommit(worktreePath string) (string, error)
	HasUncommittedChanges(worktreePath string) (bool, error)
	StageAll(worktreePath string) error
	Commit(worktreePath, message string) error
	ResolveRef(repoPath, ref string) (string, error)

	ComputeDiffStats(repoPath, fromCommit, toCommit string) (DiffStats, error)
	ListFilesChanged(repoPath, fromCommit, toCommit string) ([]FileChange, error)

	Push(repoPath, branch string) error
	Checkout(repoPath, ref string) error
	CurrentBranchOrNull(repoPath string) (string, bool, error)
	StashPush(repoPath string) (bool, error)
	StashPop(repoPath string) error

	Merge(worktreePath, srcRef, message string, fastForward bool) error
	MergeAbort(worktreePath string) error

	// MergeWithoutCheckout computes a merge of srcCommit into dstRef's tree
	// without checking out dstRef. It never mutates any ref.
	MergeWithoutCheckout(repoPath, dstRef, srcCommit string) (MergeResult, error)
	// CommitTree creates a new commit object from treeSHA and parents,
	// without touching the working tree or any ref.
	CommitTree(repoPath, treeSHA, message string, parents []string) (string, error)
	// UpdateRef moves ref to point at commitSHA directly, without touching
	// the working tree.
	UpdateRef(repoPath, ref, commitSHA string) error
	// ResetHard performs `git reset --hard` to commitSHA in the working tree.
	ResetHard(repoPath, commitSHA string) error
}

// CLIOps implements Ops using the git CLI for the working-tree-bound
// operations and go-git plumbing (see merge.go) for the checkout-free ones.
type CLIOps struct {
	exec CommandExecutor
}

// NewCLIOps returns a CLIOps backed by os/exec.
func NewCLIOps() *CLIOps { return &CLIOps{exec: CLIExecutor{}} }

// NewCLIOpsWithExecutor returns a CLIOps backed by a custom executor, for tests.
func NewCLIOpsWithExecutor(e CommandExecutor) *CLIOps { return &CLIOps{exec: e} }

func (g *CLIOps) run(dir, name string, args ...string) ([]byte, error) {
	return g.exec.Run(dir, name, args...)
}

func (g *CLIOps) CreateDetachedWorktreeAtRef(repoPath, worktreePath, ref string) error {
	out, err := g.run(repoPath, "git", "worktree", "add", "--detach", worktreePath, ref)
	if err != nil {
		return errors.NewGitError("failed to create detached worktree", err).
			WithRepository(repoPath).WithWorktree(worktreePath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) RemoveWorktreeSafe(repoPath, worktreePath string) error {
	out, err := g.run(repoPath, "git", "worktree", "remove", "--force", worktreePath)
	if err != nil {
		return errors.NewGitError("failed to remove worktree", err).
			WithRepository(repoPath).WithWorktree(worktreePath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) ListWorktrees(repoPath string) ([]string, error) {
	out, err := g.run(repoPath, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.NewGitError("failed to list worktrees", err).WithRepository(repoPath).WithGitOutput(string(out))
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if p, ok := strings.CutPrefix(line, "worktree "); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (g *CLIOps) GetHeadCommit(worktreePath string) (string, error) {
	out, err := g.run(worktreePath, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to resolve HEAD", err).WithRepository(worktreePath).WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *CLIOps) HasUncommittedChanges(worktreePath string) (bool, error) {
	out, err := g.run(worktreePath, "git", "status", "--porcelain")
	if err != nil {
		return false, errors.NewGitError("failed to check status", err).WithRepository(worktreePath).WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (g *CLIOps) StageAll(worktreePath string) error {
	out, err := g.run(worktreePath, "git", "add", "-A")
	if err != nil {
		return errors.NewGitError("failed to stage changes", err).WithRepository(worktreePath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) Commit(worktreePath, message string) error {
	out, err := g.run(worktreePath, "git", "commit", "-m", message)
	if err != nil {
		if strings.Contains(string(out), "nothing to commit") {
			return nil
		}
		return errors.NewGitError("failed to commit", err).WithRepository(worktreePath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) ResolveRef(repoPath, ref string) (string, error) {
	out, err := g.run(repoPath, "git", "rev-parse", ref)
	if err != nil {
		return "", errors.NewGitError(fmt.Sprintf("failed to resolve ref %q", ref), err).
			WithRepository(repoPath).WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *CLIOps) ComputeDiffStats(repoPath, fromCommit, toCommit string) (DiffStats, error) {
	out, err := g.run(repoPath, "git", "diff", "--shortstat", fromCommit, toCommit)
	if err != nil {
		return DiffStats{}, errors.NewGitError("failed to compute diff stats", err).WithRepository(repoPath).WithGitOutput(string(out))
	}
	return parseShortstat(string(out)), nil
}

func parseShortstat(s string) DiffStats {
	var stats DiffStats
	fields := strings.Split(strings.TrimSpace(s), ",")
	for _, f := range fields {
		f = strings.TrimSpace(f)
		switch {
		case strings.Contains(f, "file"):
			n, _ := strconv.Atoi(strings.Fields(f)[0])
			stats.FilesChanged = n
		case strings.Contains(f, "insertion"):
			n, _ := strconv.Atoi(strings.Fields(f)[0])
			stats.Insertions = n
		case strings.Contains(f, "deletion"):
			n, _ := strconv.Atoi(strings.Fields(f)[0])
			stats.Deletions = n
		}
	}
	return stats
}

func (g *CLIOps) ListFilesChanged(repoPath, fromCommit, toCommit string) ([]FileChange, error) {
	out, err := g.run(repoPath, "git", "diff", "--name-status", fromCommit, toCommit)
	if err != nil {
		return nil, errors.NewGitError("failed to list changed files", err).WithRepository(repoPath).WithGitOutput(string(out))
	}

	var changes []FileChange
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		var kind FileChangeKind
		switch parts[0][0] {
		case 'A':
			kind = FileAdded
		case 'D':
			kind = FileDeleted
		default:
			kind = FileModified
		}
		changes = append(changes, FileChange{Path: parts[len(parts)-1], Kind: kind})
	}
	return changes, nil
}

func (g *CLIOps) Push(repoPath, branch string) error {
	out, err := g.run(repoPath, "git", "push", "origin", branch)
	if err != nil {
		return errors.NewGitError("failed to push", err).WithRepository(repoPath).WithBranch(branch).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) Checkout(repoPath, ref string) error {
	out, err := g.run(repoPath, "git", "checkout", ref)
	if err != nil {
		return errors.NewGitError(fmt.Sprintf("failed to checkout %q", ref), err).WithRepository(repoPath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) CurrentBranchOrNull(repoPath string) (string, bool, error) {
	out, err := g.run(repoPath, "git", "symbolic-ref", "--short", "HEAD")
	if err != nil {
		// Detached HEAD is not an error condition for this query.
		return "", false, nil
	}
	return strings.TrimSpace(string(out)), true, nil
}

func (g *CLIOps) StashPush(repoPath string) (bool, error) {
	out, err := g.run(repoPath, "git", "stash", "push", "-u", "-m", "dagforge-engine-autostash")
	if err != nil {
		return false, errors.NewGitError("failed to stash changes", err).WithRepository(repoPath).WithGitOutput(string(out))
	}
	return !strings.Contains(string(out), "No local changes to save"), nil
}

func (g *CLIOps) StashPop(repoPath string) error {
	out, err := g.run(repoPath, "git", "stash", "pop")
	if err != nil {
		return errors.NewGitError("failed to restore stashed changes", err).WithRepository(repoPath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) Merge(worktreePath, srcRef, message string, fastForward bool) error {
	args := []string{"merge", "--no-edit", "-m", message}
	if !fastForward {
		args = append(args, "--no-ff")
	}
	args = append(args, srcRef)
	out, err := g.run(worktreePath, "git", args...)
	if err != nil {
		if strings.Contains(string(out), "CONFLICT") {
			return errors.NewGitError("merge conflict", errors.ErrMergeConflict).
				WithRepository(worktreePath).WithGitOutput(string(out))
		}
		return errors.NewGitError("merge failed", err).WithRepository(worktreePath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) MergeAbort(worktreePath string) error {
	out, err := g.run(worktreePath, "git", "merge", "--abort")
	if err != nil {
		return errors.NewGitError("failed to abort merge", err).WithRepository(worktreePath).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) UpdateRef(repoPath, ref, commitSHA string) error {
	out, err := g.run(repoPath, "git", "update-ref", "refs/heads/"+ref, commitSHA)
	if err != nil {
		return errors.NewGitError("failed to update ref", err).WithRepository(repoPath).WithBranch(ref).WithGitOutput(string(out))
	}
	return nil
}

func (g *CLIOps) ResetHard(repoPath, commitSHA string) error {
	out, err := g.run(repoPath, "git", "reset", "--hard", commitSHA)
	if err != nil {
		return errors.NewGitError("failed to reset --hard", err).WithRepository(repoPath).WithGitOutput(string(out))
	}
	return nil
}

var _ Ops = (*CLIOps)(nil)
