package vcs

import "sort"

// BranchIndex is a multimap from commit id to the non-empty ordered
// sequence of local branches pointing at that commit, plus a name-ordered
// iteration order. It is always rebuilt wholesale from the current ref set
// (Update), never partially patched, whenever the underlying refs change.
type BranchIndex struct {
	byCommit map[CommitID][]Branch
	// order is the set of commit ids, kept so Iter can walk entries in a
	// name-stable order without re-sorting the map on every call.
	order []CommitID
}

// NewBranchIndex builds a BranchIndex from a slice of branches, bucketing by commit id.
func NewBranchIndex(branches []Branch) *BranchIndex {
	idx := &BranchIndex{byCommit: make(map[CommitID][]Branch)}
	for _, b := range branches {
		idx.insertLocked(b)
	}
	idx.resort()
	return idx
}

// NewEmptyBranchIndex returns an index with no entries.
func NewEmptyBranchIndex() *BranchIndex {
	return &BranchIndex{byCommit: make(map[CommitID][]Branch)}
}

func (idx *BranchIndex) insertLocked(b Branch) {
	existing, ok := idx.byCommit[b.ID]
	if !ok {
		idx.order = append(idx.order, b.ID)
	}
	idx.byCommit[b.ID] = append(existing, b)
}

func (idx *BranchIndex) resort() {
	sort.Slice(idx.order, func(i, j int) bool {
		return idx.firstName(idx.order[i]) < idx.firstName(idx.order[j])
	})
}

func (idx *BranchIndex) firstName(id CommitID) string {
	branches := idx.byCommit[id]
	if len(branches) == 0 {
		return ""
	}
	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name
	}
	sort.Strings(names)
	return names[0]
}

// Insert adds a branch to the index.
func (idx *BranchIndex) Insert(b Branch) {
	idx.insertLocked(b)
	idx.resort()
}

// Extend inserts every branch from the given slice.
func (idx *BranchIndex) Extend(branches []Branch) {
	for _, b := range branches {
		idx.insertLocked(b)
	}
	idx.resort()
}

// RemoveAtID removes and returns every branch pointing at id, or nil if none.
func (idx *BranchIndex) RemoveAtID(id CommitID) []Branch {
	branches, ok := idx.byCommit[id]
	if !ok {
		return nil
	}
	delete(idx.byCommit, id)
	for i, existing := range idx.order {
		if existing == id {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	return branches
}

// ContainsOID reports whether any branch points at id.
func (idx *BranchIndex) ContainsOID(id CommitID) bool {
	_, ok := idx.byCommit[id]
	return ok
}

// Get returns the branches pointing at id.
func (idx *BranchIndex) Get(id CommitID) []Branch {
	return idx.byCommit[id]
}

// Iter calls fn for every (commit id, branches) pair in name order.
func (idx *BranchIndex) Iter(fn func(id CommitID, branches []Branch)) {
	for _, id := range idx.order {
		fn(id, idx.byCommit[id])
	}
}

// OIDs returns every commit id carrying at least one branch, in name order.
func (idx *BranchIndex) OIDs() []CommitID {
	out := make([]CommitID, len(idx.order))
	copy(out, idx.order)
	return out
}

// Len returns the number of distinct commits carrying a branch.
func (idx *BranchIndex) Len() int {
	return len(idx.order)
}

// IsEmpty reports whether the index has no entries.
func (idx *BranchIndex) IsEmpty() bool {
	return len(idx.order) == 0
}

// Clone returns a deep-enough copy safe to mutate independently.
func (idx *BranchIndex) Clone() *BranchIndex {
	clone := NewEmptyBranchIndex()
	idx.Iter(func(_ CommitID, branches []Branch) {
		for _, b := range branches {
			clone.insertLocked(b.Clone())
		}
	})
	clone.resort()
	return clone
}

// Update rebuilds the index from scratch from the repo's current local branch set.
func (idx *BranchIndex) Update(repo Repo) error {
	branches, err := repo.LocalBranches()
	if err != nil {
		return err
	}
	idx.byCommit = make(map[CommitID][]Branch)
	idx.order = nil
	for _, b := range branches {
		idx.insertLocked(b)
	}
	idx.resort()
	return nil
}

// All returns a copy of the full index, unfiltered.
func (idx *BranchIndex) All() *BranchIndex {
	return idx.Clone()
}

// Protected returns the subset of branches whose name matches the protected pattern list.
func (idx *BranchIndex) Protected(matcher *ProtectedBranches) *BranchIndex {
	out := NewEmptyBranchIndex()
	idx.Iter(func(_ CommitID, branches []Branch) {
		for _, b := range branches {
			if matcher.Matches(b.Name) {
				out.insertLocked(b.Clone())
			}
		}
	})
	out.resort()
	return out
}

// Branch returns the subset of branches whose commit lies on the ancestry of
// head and is a descendant of mergeBase (i.e. sits between the shared base
// and head, both ends included).
func (idx *BranchIndex) Branch(repo Repo, mergeBase, head CommitID) (*BranchIndex, error) {
	ancestry, err := ancestrySet(repo, head, mergeBase)
	if err != nil {
		return nil, err
	}
	out := NewEmptyBranchIndex()
	idx.Iter(func(id CommitID, branches []Branch) {
		if ancestry[id] {
			for _, b := range branches {
				out.insertLocked(b.Clone())
			}
		}
	})
	out.resort()
	return out, nil
}

// Dependents returns Branch(repo, mergeBase, head) plus every branch whose
// merge-base with head lies strictly above mergeBase -- i.e. branches on an
// ancestor of head that is itself above the shared base.
func (idx *BranchIndex) Dependents(repo Repo, mergeBase, head CommitID) (*BranchIndex, error) {
	base, err := idx.Branch(repo, mergeBase, head)
	if err != nil {
		return nil, err
	}
	out := base.Clone()
	var outerErr error
	idx.Iter(func(id CommitID, branches []Branch) {
		if outerErr != nil || out.ContainsOID(id) {
			return
		}
		mb, ok, err := repo.MergeBase(id, head)
		if err != nil {
			outerErr = err
			return
		}
		if !ok || mb == mergeBase {
			return
		}
		// mb strictly above mergeBase: mergeBase is a (non-equal) ancestor of mb.
		aboveBase, err := isAncestor(repo, mergeBase, mb)
		if err != nil {
			outerErr = err
			return
		}
		if aboveBase && mb != mergeBase {
			for _, b := range branches {
				out.insertLocked(b.Clone())
			}
		}
	})
	if outerErr != nil {
		return nil, outerErr
	}
	out.resort()
	return out, nil
}

// Descendants returns every branch whose commit has mergeBase as an ancestor.
func (idx *BranchIndex) Descendants(repo Repo, mergeBase CommitID) (*BranchIndex, error) {
	out := NewEmptyBranchIndex()
	var outerErr error
	idx.Iter(func(id CommitID, branches []Branch) {
		if outerErr != nil {
			return
		}
		if id == mergeBase {
			for _, b := range branches {
				out.insertLocked(b.Clone())
			}
			return
		}
		ok, err := isAncestor(repo, mergeBase, id)
		if err != nil {
			outerErr = err
			return
		}
		if ok {
			for _, b := range branches {
				out.insertLocked(b.Clone())
			}
		}
	})
	if outerErr != nil {
		return nil, outerErr
	}
	out.resort()
	return out, nil
}

// isAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant, determined via merge-base.
func isAncestor(repo Repo, ancestor, descendant CommitID) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	mb, ok, err := repo.MergeBase(ancestor, descendant)
	if err != nil {
		return false, err
	}
	return ok && mb == ancestor, nil
}

// ancestrySet collects the set of commit ids on the first-parent chain from
// head down to (and including) stop.
func ancestrySet(repo Repo, head, stop CommitID) (map[CommitID]bool, error) {
	set := make(map[CommitID]bool)
	it, err := repo.CommitsFrom(head)
	if err != nil {
		return nil, err
	}
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		set[c.ID] = true
		if c.ID == stop {
			break
		}
	}
	return set, nil
}
