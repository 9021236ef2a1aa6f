package gitops

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dagforge/dagforge/internal/errors"
)

// MergeWithoutCheckout computes, without touching the working tree or any
// ref, what merging srcCommit into dstRef's tip would produce. It is
// conflict-free only when the set of paths changed since the merge base on
// each side is disjoint; overlapping paths are reported as conflicts rather
// than content-merged, since a true three-way text merge needs a working
// tree and external tooling the fast path is explicitly trying to avoid.
func (g *CLIOps) MergeWithoutCheckout(repoPath, dstRef, srcCommit string) (MergeResult, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to open repository", err).WithRepository(repoPath)
	}

	dstHash, err := resolveRevision(repo, dstRef)
	if err != nil {
		return MergeResult{}, errors.NewGitError(fmt.Sprintf("failed to resolve %q", dstRef), err).WithRepository(repoPath)
	}
	srcHash := plumbing.NewHash(srcCommit)

	dstCommit, err := repo.CommitObject(dstHash)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to load destination commit", err).WithRepository(repoPath)
	}
	srcCommitObj, err := repo.CommitObject(srcHash)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to load source commit", err).WithRepository(repoPath)
	}

	base, err := mergeBase(repo, dstCommit, srcCommitObj)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to compute merge base", err).WithRepository(repoPath)
	}

	baseTree, err := base.Tree()
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to load base tree", err).WithRepository(repoPath)
	}
	dstTree, err := dstCommit.Tree()
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to load destination tree", err).WithRepository(repoPath)
	}
	srcTree, err := srcCommitObj.Tree()
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to load source tree", err).WithRepository(repoPath)
	}

	dstChanges, err := changedPaths(baseTree, dstTree)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to diff base..dst", err).WithRepository(repoPath)
	}
	srcChanges, err := changedPaths(baseTree, srcTree)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to diff base..src", err).WithRepository(repoPath)
	}

	var conflicts []string
	for path := range srcChanges {
		if _, ok := dstChanges[path]; ok {
			conflicts = append(conflicts, path)
		}
	}
	if len(conflicts) > 0 {
		return MergeResult{HasConflicts: true, ConflictFiles: conflicts}, nil
	}

	mergedTree, err := overlayTree(repo, dstTree, srcTree, srcChanges)
	if err != nil {
		return MergeResult{}, errors.NewGitError("failed to build merged tree", err).WithRepository(repoPath)
	}

	return MergeResult{TreeSHA: mergedTree.String()}, nil
}

// CommitTree creates a new commit object from treeSHA and parents without
// touching the working tree or any ref, for the reverse-integration
// squash-style single-parent commit.
func (g *CLIOps) CommitTree(repoPath, treeSHA, message string, parents []string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", errors.NewGitError("failed to open repository", err).WithRepository(repoPath)
	}

	sig := commitSignature()

	parentHashes := make([]plumbing.Hash, len(parents))
	for i, p := range parents {
		parentHashes[i] = plumbing.NewHash(p)
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     plumbing.NewHash(treeSHA),
		ParentHashes: parentHashes,
	}

	obj := repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return "", errors.NewGitError("failed to encode commit object", err).WithRepository(repoPath)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", errors.NewGitError("failed to write commit object", err).WithRepository(repoPath)
	}
	return hash.String(), nil
}

func resolveRevision(repo *git.Repository, ref string) (plumbing.Hash, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return *h, nil
}

func mergeBase(repo *git.Repository, a, b *object.Commit) (*object.Commit, error) {
	bases, err := a.MergeBase(b)
	if err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("no common ancestor")
	}
	return bases[0], nil
}

// changedPaths returns the set of file paths that differ between from and to.
func changedPaths(from, to *object.Tree) (map[string]bool, error) {
	changes, err := object.DiffTree(from, to)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]bool, len(changes))
	for _, c := range changes {
		if c.From.Name != "" {
			paths[c.From.Name] = true
		}
		if c.To.Name != "" {
			paths[c.To.Name] = true
		}
	}
	return paths, nil
}

// overlayTree builds a new tree object equal to dstTree with every path in
// changedInSrc replaced by its entry from srcTree (or removed, if absent
// from srcTree). Since MergeWithoutCheckout already verified these paths
// are untouched on the dst side, this is a conflict-free composition.
func overlayTree(repo *git.Repository, dstTree, srcTree *object.Tree, changedInSrc map[string]bool) (plumbing.Hash, error) {
	entries := make(map[string]object.TreeEntry)
	for _, e := range dstTree.Entries {
		entries[e.Name] = e
	}

	for path := range changedInSrc {
		entry, err := srcTree.FindEntry(path)
		if err != nil {
			delete(entries, path)
			continue
		}
		entries[path] = *entry
	}

	var newTree object.Tree
	for _, e := range entries {
		newTree.Entries = append(newTree.Entries, e)
	}

	obj := repo.Storer.NewEncodedObject()
	if err := newTree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

func commitSignature() object.Signature {
	return object.Signature{
		Name:  "dagforge-engine",
		Email: "engine@dagforge.local",
		When:  time.Now(),
	}
}
