// Package vcs provides the repository abstraction the stack graph engine
// consumes: commit lookup, ancestor walks, merge-base, branch CRUD, and an
// in-memory rebase primitive. Everything above this package works purely in
// terms of CommitID/Commit/Branch and the Repo interface; outside tests,
// only this package imports go-git.
package vcs

import (
	"bytes"
	"encoding/hex"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// CommitID is a 20-byte opaque commit identifier. Zero value is the nil id.
type CommitID [20]byte

// ZeroCommitID is the nil/unset commit identifier.
var ZeroCommitID CommitID

// IsZero reports whether id is the unset identifier.
func (id CommitID) IsZero() bool {
	return id == ZeroCommitID
}

// String renders the identifier as lowercase hex, matching git's short/long SHA display.
func (id CommitID) String() string {
	return hex.EncodeToString(id[:])
}

// Compare returns -1, 0, or 1 ordering id against other by raw byte sequence.
func (id CommitID) Compare(other CommitID) int {
	return bytes.Compare(id[:], other[:])
}

// Hash converts the id to a go-git plumbing.Hash for use against the underlying repository.
func (id CommitID) Hash() plumbing.Hash {
	return plumbing.Hash(id)
}

// CommitIDFromHash wraps a go-git hash as a CommitID.
func CommitIDFromHash(h plumbing.Hash) CommitID {
	return CommitID(h)
}

// Signature is a lightweight author/committer record, decoupled from go-git's object.Signature
// so the core packages never import go-git.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is an immutable, content-addressed commit record. Instances are
// shared by pointer across every Node that references them; the commit DAG
// is already acyclic so ordinary garbage collection is sufficient; no
// explicit reference count is required the way a non-GC'd implementation
// would need one.
type Commit struct {
	ID        CommitID
	TreeID    CommitID
	ParentIDs []CommitID
	Summary   []byte
	Author    Signature
	Committer Signature
	Time      time.Time
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.ParentIDs) > 1
}

// FirstParent returns the commit's first parent id, or the zero id for a root commit.
func (c *Commit) FirstParent() CommitID {
	if len(c.ParentIDs) == 0 {
		return ZeroCommitID
	}
	return c.ParentIDs[0]
}

// SummaryString returns the commit summary as a string.
func (c *Commit) SummaryString() string {
	return string(c.Summary)
}
