package vcs

import (
	"context"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	gserr "gitstack.dev/gitstack/internal/errors"
)

// GitRepo backs the Repo interface with go-git for everything except
// fetch/push, which shell out to the system git executable (see subprocess.go).
type GitRepo struct {
	repo       *gogit.Repository
	path       string
	pushRemote string
	pullRemote string
}

// OpenGitRepo opens the repository rooted at path (or any of its parents, like `git` does).
func OpenGitRepo(path string) (*GitRepo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, gserr.Repof("failed to open repository at %s: %w", path, err)
	}
	return &GitRepo{
		repo:       repo,
		path:       path,
		pushRemote: "origin",
		pullRemote: "origin",
	}, nil
}

func toCommit(c *object.Commit) *Commit {
	parentIDs := make([]CommitID, len(c.ParentHashes))
	for i, h := range c.ParentHashes {
		parentIDs[i] = CommitIDFromHash(h)
	}
	return &Commit{
		ID:        CommitIDFromHash(c.Hash),
		TreeID:    CommitIDFromHash(c.TreeHash),
		ParentIDs: parentIDs,
		Summary:   []byte(firstLine(c.Message)),
		Author:    Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer: Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Time:      c.Author.When,
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// HeadCommit returns the commit HEAD points at, whether attached or detached.
func (r *GitRepo) HeadCommit() (*Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, gserr.Repof("failed to resolve HEAD: %w", err)
	}
	c, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, gserr.Repof("failed to load HEAD commit: %w", err)
	}
	return toCommit(c), nil
}

// HeadBranch returns the branch HEAD is attached to, or nil if HEAD is detached.
func (r *GitRepo) HeadBranch() (*Branch, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, gserr.Repof("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return nil, nil
	}
	name := head.Name().Short()
	return r.FindLocalBranch(name)
}

// FindCommit looks up a commit by id.
func (r *GitRepo) FindCommit(id CommitID) (*Commit, error) {
	c, err := r.repo.CommitObject(id.Hash())
	if err != nil {
		return nil, gserr.Repof("commit %s not found: %w", id, err)
	}
	return toCommit(c), nil
}

// FindLocalBranch looks up a local branch ref by name, along with its
// upstream tracking ids (push_id/pull_id), read from the remote-tracking
// refs refs/remotes/<push remote>/<name> and refs/remotes/<pull remote>/<name>
// when present.
func (r *GitRepo) FindLocalBranch(name string) (*Branch, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return nil, gserr.NewBranchNotFoundError(name)
	}
	b := &Branch{Name: name, ID: CommitIDFromHash(ref.Hash())}
	if remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.pushRemote, name), true); err == nil {
		id := CommitIDFromHash(remoteRef.Hash())
		b.PushID = &id
	}
	if remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.pullRemote, name), true); err == nil {
		id := CommitIDFromHash(remoteRef.Hash())
		b.PullID = &id
	}
	return b, nil
}

// LocalBranches returns every local branch.
func (r *GitRepo) LocalBranches() ([]Branch, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, gserr.Repof("failed to list branches: %w", err)
	}
	var out []Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		b, err := r.FindLocalBranch(ref.Name().Short())
		if err != nil {
			return err
		}
		out = append(out, *b)
		return nil
	})
	if err != nil {
		return nil, gserr.Repof("failed to iterate branches: %w", err)
	}
	return out, nil
}

type commitIter struct {
	repo *gogit.Repository
	next plumbing.Hash
	done bool
}

func (r *GitRepo) CommitsFrom(tip CommitID) (CommitIter, error) {
	return &commitIter{repo: r.repo, next: tip.Hash()}, nil
}

func (it *commitIter) Next() (*Commit, bool) {
	if it.done || it.next.IsZero() {
		return nil, false
	}
	c, err := it.repo.CommitObject(it.next)
	if err != nil {
		it.done = true
		return nil, false
	}
	if len(c.ParentHashes) == 0 {
		it.done = true
	} else {
		it.next = c.ParentHashes[0]
	}
	return toCommit(c), true
}

// MergeBase returns the best common ancestor of a and b, or ok=false if their histories are disjoint.
func (r *GitRepo) MergeBase(a, b CommitID) (CommitID, bool, error) {
	ca, err := r.repo.CommitObject(a.Hash())
	if err != nil {
		return ZeroCommitID, false, gserr.Repof("merge-base: %w", err)
	}
	cb, err := r.repo.CommitObject(b.Hash())
	if err != nil {
		return ZeroCommitID, false, gserr.Repof("merge-base: %w", err)
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return ZeroCommitID, false, gserr.Repof("merge-base: %w", err)
	}
	if len(bases) == 0 {
		return ZeroCommitID, false, nil
	}
	return CommitIDFromHash(bases[0].Hash), true, nil
}

// Branch creates or moves a branch ref to point at id.
func (r *GitRepo) Branch(name string, id CommitID) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), id.Hash())
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return gserr.Repof("failed to set branch %s: %w", name, err)
	}
	return nil
}

// DeleteBranch removes a local branch ref.
func (r *GitRepo) DeleteBranch(name string) error {
	if err := r.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return gserr.Repof("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// Switch attaches HEAD to the named branch and checks out its tree.
func (r *GitRepo) Switch(name string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return gserr.Repof("failed to get worktree: %w", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err != nil {
		return gserr.Repof("failed to switch to %s: %w", name, err)
	}
	return nil
}

// SwitchCommit detaches HEAD and checks out id's tree.
func (r *GitRepo) SwitchCommit(id CommitID) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return gserr.Repof("failed to get worktree: %w", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: id.Hash()}); err != nil {
		return gserr.Repof("failed to switch to %s: %w", id, err)
	}
	return nil
}

// Detach detaches HEAD at its current commit, without changing the working tree.
func (r *GitRepo) Detach() error {
	head, err := r.repo.Head()
	if err != nil {
		return gserr.Repof("failed to resolve HEAD: %w", err)
	}
	ref := plumbing.NewHashReference(plumbing.HEAD, head.Hash())
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return gserr.Repof("failed to detach HEAD: %w", err)
	}
	return nil
}

// CherryPick applies id's diff (against its first parent) onto the current
// HEAD, producing a new commit with HEAD as its sole parent. The new tree
// and commit are written to the object database and HEAD is moved to the
// new commit; the worktree and index are not updated -- only Switch and
// SwitchCommit check out a tree.
func (r *GitRepo) CherryPick(id CommitID) (CommitID, error) {
	return r.applyOnto(id, false)
}

// Squash applies id's diff onto the current HEAD and replaces HEAD (keeping
// HEAD's own parent) rather than adding a new commit on top, implementing
// fixup/squash lowering.
func (r *GitRepo) Squash(id CommitID) (CommitID, error) {
	return r.applyOnto(id, true)
}

func (r *GitRepo) applyOnto(id CommitID, squash bool) (CommitID, error) {
	source, err := r.repo.CommitObject(id.Hash())
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}
	if source.NumParents() == 0 {
		return ZeroCommitID, gserr.NewRebaseConflictError(id.String(), "commit has no parent to diff against")
	}
	parent, err := source.Parent(0)
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}
	patch, err := parent.Patch(source)
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: failed to diff %s: %w", id, err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}
	headCommit, err := r.repo.CommitObject(headRef.Hash())
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}

	files := make(map[string]treeEntry)
	if err := flattenTree(r.repo.Storer, headTree, "", files); err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			// Best-effort: binary files are carried forward unchanged from HEAD;
			// a real conflict would surface once the user materializes the tree.
			continue
		}
		from, to := fp.Files()
		applyFilePatch(files, from, to)
	}
	newTreeHash, err := buildTreeFromFiles(r.repo.Storer, files)
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}

	parents := []plumbing.Hash{headRef.Hash()}
	message := source.Message
	author := source.Author
	if squash {
		if headCommit.NumParents() == 0 {
			parents = nil
		} else {
			parents = []plumbing.Hash{headCommit.ParentHashes[0]}
		}
		message = "squash! " + source.Message
	}

	newCommit := &object.Commit{
		Author:       author,
		Committer:    source.Committer,
		Message:      message,
		TreeHash:     newTreeHash,
		ParentHashes: parents,
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}
	newHash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: %w", err)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, newHash)); err != nil {
		return ZeroCommitID, gserr.Repof("cherry-pick: failed to update HEAD: %w", err)
	}
	return CommitIDFromHash(newHash), nil
}

// IsDirty reports whether the working tree has uncommitted changes.
func (r *GitRepo) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, gserr.Repof("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, gserr.Repof("failed to get status: %w", err)
	}
	return !status.IsClean(), nil
}

// RepoRoot returns the root of the repository's working tree.
func (r *GitRepo) RepoRoot() (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", gserr.Repof("failed to get worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// GitDir returns the repository's .git directory, the root config.Load and
// the backup ring's ref namespace both anchor to.
func (r *GitRepo) GitDir() (string, error) {
	root, err := r.RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ".git"), nil
}

func (r *GitRepo) PushRemote() string         { return r.pushRemote }
func (r *GitRepo) PullRemote() string         { return r.pullRemote }
func (r *GitRepo) SetPushRemote(name string)  { r.pushRemote = name }
func (r *GitRepo) SetPullRemote(name string)  { r.pullRemote = name }

// StashPush and StashPop are no-ops for GitRepo: rebase planning never
// writes to the real worktree, only to the object database, so there is
// nothing for the executor to stash.
func (r *GitRepo) StashPush(_ context.Context) (bool, error) { return false, nil }
func (r *GitRepo) StashPop(_ context.Context) error          { return nil }

var _ Repo = (*GitRepo)(nil)
