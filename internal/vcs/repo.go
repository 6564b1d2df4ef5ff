package vcs

import "context"

// Repo is the only surface the stack graph engine consumes. A concrete
// implementation backs everything but fetch/push with go-git; fetch and
// push shell out to the system git executable to inherit its credential
// handling (see GitRepo.Fetch / GitRepo.Push).
//
// Implementations fail with the sentinel/typed errors in internal/errors;
// no operation ever silently succeeds on failure.
type Repo interface {
	HeadCommit() (*Commit, error)
	HeadBranch() (*Branch, error)

	FindCommit(id CommitID) (*Commit, error)
	FindLocalBranch(name string) (*Branch, error)
	LocalBranches() ([]Branch, error)

	// CommitsFrom walks first-parent ancestry from tip down to the root,
	// finite and single-pass: callers collect the slice they need, they
	// cannot restart a partially-consumed walk.
	CommitsFrom(tip CommitID) (CommitIter, error)

	MergeBase(a, b CommitID) (CommitID, bool, error)

	Branch(name string, id CommitID) error
	DeleteBranch(name string) error
	Switch(name string) error
	SwitchCommit(id CommitID) error
	Detach() error

	CherryPick(id CommitID) (CommitID, error)
	Squash(id CommitID) (CommitID, error)

	IsDirty() (bool, error)

	PushRemote() string
	PullRemote() string
	SetPushRemote(name string)
	SetPullRemote(name string)

	// Fetch and Push invoke the system git executable as a subprocess so
	// that authentication is handled exactly the way an interactive `git`
	// invocation would handle it; context governs cancellation of the
	// subprocess.
	Fetch(ctx context.Context, remote, branch string) error
	Push(ctx context.Context, remote, branch string, forceWithLease bool) error

	// StashPush and StashPop are optional recovery hooks for a dirty
	// worktree. Nothing in this module calls them, and GitRepo implements
	// both as no-ops.
	StashPush(ctx context.Context) (bool, error)
	StashPop(ctx context.Context) error
}

// CommitIter is a lazy, finite, single-pass sequence of commits in
// first-parent order. Implementers without lazy iterators can materialize
// the chain up to a stop id and wrap it in a slice-backed iterator -- every
// call site in this module treats the sequence as take-while(id != stop).
type CommitIter interface {
	// Next returns the next commit, or ok=false at the end of the walk.
	Next() (commit *Commit, ok bool)
}

// sliceCommitIter adapts a pre-materialized slice to CommitIter.
type sliceCommitIter struct {
	commits []*Commit
	pos     int
}

// NewSliceCommitIter wraps a materialized first-parent chain as a CommitIter.
func NewSliceCommitIter(commits []*Commit) CommitIter {
	return &sliceCommitIter{commits: commits}
}

func (it *sliceCommitIter) Next() (*Commit, bool) {
	if it.pos >= len(it.commits) {
		return nil, false
	}
	c := it.commits[it.pos]
	it.pos++
	return c, true
}

// CollectUntil materializes a CommitIter into a slice, stopping (exclusive)
// at the first commit whose id equals stop, or id is the zero value meaning
// "collect to the end of history".
func CollectUntil(it CommitIter, stop CommitID) []*Commit {
	var out []*Commit
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		if !stop.IsZero() && c.ID == stop {
			break
		}
		out = append(out, c)
	}
	return out
}
