package vcs

// Branch is a snapshot of a local branch ref at load time: the commit it
// points at, plus the upstream it tracks for pushes (push_id) and pulls
// (pull_id) -- usually the same remote-tracking ref, but kept distinct per
// the data model.
type Branch struct {
	Name   string
	ID     CommitID
	PushID *CommitID
	PullID *CommitID
}

// Clone returns a value copy of the branch. Branch values are small and owned,
// so cloning is the normal way to pass them around without aliasing the caller's copy.
func (b Branch) Clone() Branch {
	clone := b
	if b.PushID != nil {
		id := *b.PushID
		clone.PushID = &id
	}
	if b.PullID != nil {
		id := *b.PullID
		clone.PullID = &id
	}
	return clone
}
