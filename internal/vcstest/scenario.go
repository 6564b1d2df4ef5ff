// Package vcstest provides a scenario builder for constructing throwaway
// git repositories in tests, adapted from the teacher corpus's
// testhelpers/scenario pattern onto this module's Repo abstraction.
package vcstest

import (
	"fmt"
	"os"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/vcs"
)

// Scenario wraps a real, temp-directory git repository with a fluent
// builder API, so graph/orchestrator tests can describe a commit DAG in a
// few lines instead of hand-rolling go-git calls.
type Scenario struct {
	t       *testing.T
	dir     string
	raw     *gogit.Repository
	Repo    *vcs.GitRepo
	counter int
	sig     object.Signature
}

// New initializes an empty repository with one commit on "main".
func New(t *testing.T) *Scenario {
	t.Helper()
	dir := t.TempDir()
	raw, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	s := &Scenario{
		t:   t,
		dir: dir,
		raw: raw,
		sig: object.Signature{Name: "Test User", Email: "test@example.com", When: fixedTime()},
	}
	repo, err := vcs.OpenGitRepo(dir)
	require.NoError(t, err)
	s.Repo = repo

	s.writeAndCommit("init")
	require.NoError(t, s.raw.Storer.SetReference(
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))))
	head, err := s.raw.Head()
	require.NoError(t, err)
	require.NoError(t, s.raw.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), head.Hash())))
	return s
}

// fixedTime returns a stable, non-wall-clock timestamp for reproducible commit hashes across a test run.
func fixedTime() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *Scenario) worktree() *gogit.Worktree {
	wt, err := s.raw.Worktree()
	require.NoError(s.t, err)
	return wt
}

func (s *Scenario) writeAndCommit(message string) plumbing.Hash {
	s.counter++
	path := fmt.Sprintf("file-%d.txt", s.counter)
	full := s.dir + "/" + path
	require.NoError(s.t, os.WriteFile(full, []byte(fmt.Sprintf("content %d\n", s.counter)), 0o644))

	wt := s.worktree()
	_, err := wt.Add(path)
	require.NoError(s.t, err)

	sig := s.sig
	sig.When = sig.When.Add(time.Duration(s.counter) * time.Minute)
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author:    &sig,
		Committer: &sig,
	})
	require.NoError(s.t, err)
	return hash
}

// Commit adds a new commit with the given summary on top of the current HEAD.
func (s *Scenario) Commit(message string) *Scenario {
	s.writeAndCommit(message)
	return s
}

// CreateBranch creates and switches to a new branch at the current HEAD.
func (s *Scenario) CreateBranch(name string) *Scenario {
	head, err := s.raw.Head()
	require.NoError(s.t, err)
	require.NoError(s.t, s.raw.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())))
	s.Checkout(name)
	return s
}

// Checkout switches HEAD to the named branch.
func (s *Scenario) Checkout(name string) *Scenario {
	require.NoError(s.t, s.Repo.Switch(name))
	return s
}

// BranchID returns the commit id a branch currently points at.
func (s *Scenario) BranchID(name string) vcs.CommitID {
	ref, err := s.raw.Reference(plumbing.NewBranchReferenceName(name), true)
	require.NoError(s.t, err)
	return vcs.CommitIDFromHash(ref.Hash())
}

// Dir returns the scenario's working directory, for tests that need to
// os.Chdir into a real repo (e.g. driving the CLI layer end to end).
func (s *Scenario) Dir() string {
	return s.dir
}

// HeadID returns the commit id HEAD currently points at.
func (s *Scenario) HeadID() vcs.CommitID {
	head, err := s.raw.Head()
	require.NoError(s.t, err)
	return vcs.CommitIDFromHash(head.Hash())
}

// TreeID returns the tree id of a commit, for tree-id equality assertions (fixup lowering, drop_by_tree_id).
func (s *Scenario) TreeID(id vcs.CommitID) vcs.CommitID {
	c, err := s.raw.CommitObject(id.Hash())
	require.NoError(s.t, err)
	return vcs.CommitIDFromHash(c.TreeHash)
}

// SetBranch force-moves a branch ref, simulating a pulled/landed remote update.
func (s *Scenario) SetBranch(name string, id vcs.CommitID) *Scenario {
	require.NoError(s.t, s.raw.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), id.Hash())))
	return s
}

// WriteUntracked drops an untracked file into the worktree, dirtying it for
// IsDirty()/dirty-tree-abort tests (S6) without creating a commit.
func (s *Scenario) WriteUntracked(name, content string) *Scenario {
	require.NoError(s.t, os.WriteFile(s.dir+"/"+name, []byte(content), 0o644))
	return s
}

// CommitWithTree adds a commit on the current branch that reuses an
// existing tree verbatim, without touching the worktree -- simulating a
// commit that landed on the base with content identical to some other
// commit's, the drop_by_tree_id scenario (S4).
func (s *Scenario) CommitWithTree(message string, tree vcs.CommitID) *Scenario {
	head, err := s.raw.Head()
	require.NoError(s.t, err)

	s.counter++
	sig := s.sig
	sig.When = sig.When.Add(time.Duration(s.counter) * time.Minute)

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree.Hash(),
		ParentHashes: []plumbing.Hash{head.Hash()},
	}
	obj := s.raw.Storer.NewEncodedObject()
	require.NoError(s.t, commit.Encode(obj))
	hash, err := s.raw.Storer.SetEncodedObject(obj)
	require.NoError(s.t, err)

	require.NoError(s.t, s.raw.Storer.SetReference(
		plumbing.NewHashReference(head.Name(), hash)))
	return s
}
