package gitops

import (
	"errors"
	"strings"
	"testing"
)

// fakeExecutor is an injectable CommandExecutor returning scripted output
// per argument sequence, in the style of internal/worktree's test fakes.
type fakeExecutor struct {
	responses map[string][]byte
	errs      map[string]error
	calls     []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: map[string][]byte{}, errs: map[string]error{}}
}

func key(name string, args ...string) string {
	return name + " " + strings.Join(args, " ")
}

func (f *fakeExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	k := key(name, args...)
	f.calls = append(f.calls, k)
	return f.responses[k], f.errs[k]
}

func (f *fakeExecutor) RunQuiet(dir string, name string, args ...string) error {
	k := key(name, args...)
	f.calls = append(f.calls, k)
	return f.errs[k]
}

func TestHasUncommittedChanges(t *testing.T) {
	fx := newFakeExecutor()
	fx.responses[key("git", "status", "--porcelain")] = []byte(" M foo.go\n")
	ops := NewCLIOpsWithExecutor(fx)

	dirty, err := ops.HasUncommittedChanges("/repo")
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if !dirty {
		t.Error("expected dirty worktree to report true")
	}
}

func TestHasUncommittedChangesClean(t *testing.T) {
	fx := newFakeExecutor()
	fx.responses[key("git", "status", "--porcelain")] = []byte("")
	ops := NewCLIOpsWithExecutor(fx)

	dirty, err := ops.HasUncommittedChanges("/repo")
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if dirty {
		t.Error("expected clean worktree to report false")
	}
}

func TestCommitSwallowsNothingToCommit(t *testing.T) {
	fx := newFakeExecutor()
	fx.errs[key("git", "commit", "-m", "msg")] = errors.New("exit status 1")
	fx.responses[key("git", "commit", "-m", "msg")] = []byte("nothing to commit, working tree clean")
	ops := NewCLIOpsWithExecutor(fx)

	if err := ops.Commit("/repo", "msg"); err != nil {
		t.Fatalf("expected 'nothing to commit' to be treated as success, got %v", err)
	}
}

func TestCommitPropagatesRealFailures(t *testing.T) {
	fx := newFakeExecutor()
	fx.errs[key("git", "commit", "-m", "msg")] = errors.New("exit status 1")
	fx.responses[key("git", "commit", "-m", "msg")] = []byte("fatal: bad signature")
	ops := NewCLIOpsWithExecutor(fx)

	if err := ops.Commit("/repo", "msg"); err == nil {
		t.Fatal("expected a genuine commit failure to propagate")
	}
}

func TestComputeDiffStatsParsesShortstat(t *testing.T) {
	fx := newFakeExecutor()
	fx.responses[key("git", "diff", "--shortstat", "a", "b")] = []byte(" 3 files changed, 10 insertions(+), 4 deletions(-)\n")
	ops := NewCLIOpsWithExecutor(fx)

	stats, err := ops.ComputeDiffStats("/repo", "a", "b")
	if err != nil {
		t.Fatalf("ComputeDiffStats: %v", err)
	}
	if stats.FilesChanged != 3 || stats.Insertions != 10 || stats.Deletions != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestListFilesChangedClassifiesKind(t *testing.T) {
	fx := newFakeExecutor()
	fx.responses[key("git", "diff", "--name-status", "a", "b")] = []byte("A\tnew.go\nD\told.go\nM\tchanged.go\n")
	ops := NewCLIOpsWithExecutor(fx)

	changes, err := ops.ListFilesChanged("/repo", "a", "b")
	if err != nil {
		t.Fatalf("ListFilesChanged: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	want := map[string]FileChangeKind{"new.go": FileAdded, "old.go": FileDeleted, "changed.go": FileModified}
	for _, c := range changes {
		if want[c.Path] != c.Kind {
			t.Errorf("file %s: expected kind %s, got %s", c.Path, want[c.Path], c.Kind)
		}
	}
}

func TestListWorktreesParsesPorcelain(t *testing.T) {
	fx := newFakeExecutor()
	fx.responses[key("git", "worktree", "list", "--porcelain")] = []byte("worktree /repo\nHEAD abc\n\nworktree /repo/.worktrees/x\nHEAD def\n")
	ops := NewCLIOpsWithExecutor(fx)

	paths, err := ops.ListWorktrees("/repo")
	if err != nil {
		t.Fatalf("ListWorktrees: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 worktree paths, got %v", paths)
	}
}
