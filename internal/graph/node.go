// Package graph implements the stack graph engine: a per-commit tree
// embedding all relevant branches, annotation passes that mark each node
// with a rewrite Action, rebase-plan compilation into an ordered Script,
// and an Executor that carries the script out against a vcs.Repo.
package graph

import (
	"sort"

	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/vcs"
)

// Node is one commit in the stack graph: its VCS commit, the branches
// pointing at it, its rewrite Action, whether it is safe to publish, and
// its children keyed by commit id. Children are kept sorted by commit id
// byte order (the Go equivalent of the original implementation's
// BTreeMap<Oid, Node>), giving deterministic, sort-free traversal.
type Node struct {
	LocalCommit *vcs.Commit
	Branches    []vcs.Branch
	Action      Action
	Pushable    bool
	Collapsed   bool

	children []*Node
}

// New builds a leaf node for commit, claiming any branches that point at it
// out of possibleBranches (removed from the index as a side effect, so a
// later call for a different commit cannot double-claim them).
func New(commit *vcs.Commit, possibleBranches *vcs.BranchIndex) *Node {
	return &Node{
		LocalCommit: commit,
		Branches:    possibleBranches.RemoveAtID(commit.ID),
		Action:      Pick,
	}
}

// Children returns the node's children in commit-id order.
func (n *Node) Children() []*Node {
	return n.children
}

// InsertChild adds a child, keeping n.children sorted by commit id.
func (n *Node) InsertChild(child *Node) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].LocalCommit.ID.Compare(child.LocalCommit.ID) >= 0
	})
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
}

// FindCommit returns the node for id anywhere in the subtree rooted at n, or nil.
func (n *Node) FindCommit(id vcs.CommitID) *Node {
	if n.LocalCommit.ID == id {
		return n
	}
	for _, child := range n.children {
		if found := child.FindCommit(id); found != nil {
			return found
		}
	}
	return nil
}

// merge unions two nodes that represent the same commit: branches are
// concatenated, and children are merged recursively by commit id, taking
// the existing subtree when both sides already have one.
func (n *Node) merge(other *Node) {
	n.Branches = append(n.Branches, other.Branches...)
	for _, otherChild := range other.children {
		if existing := n.childByID(otherChild.LocalCommit.ID); existing != nil {
			existing.merge(otherChild)
		} else {
			n.InsertChild(otherChild)
		}
	}
}

func (n *Node) childByID(id vcs.CommitID) *Node {
	for _, c := range n.children {
		if c.LocalCommit.ID == id {
			return c
		}
	}
	return nil
}

// FromBranches picks the branch whose name sorts first as the graph root
// (a deterministic tie-break), then folds in every remaining branch.
func FromBranches(repo vcs.Repo, branches *vcs.BranchIndex) (*Node, error) {
	if branches.IsEmpty() {
		return nil, gserr.Repof("no branches to graph")
	}
	oids := branches.OIDs()
	rootCommit, err := repo.FindCommit(oids[0])
	if err != nil {
		return nil, err
	}
	root := New(rootCommit, branches)
	for _, id := range oids[1:] {
		commit, err := repo.FindCommit(id)
		if err != nil {
			return nil, err
		}
		root, err = root.InsertBranch(repo, commit, branches)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

// ExtendBranches folds every remaining branch in branches into root, one
// at a time, in name order -- the orchestrator's "build a graph rooted at
// HEAD, extend with all stack branches" step (§4.6).
func ExtendBranches(repo vcs.Repo, root *Node, branches *vcs.BranchIndex) (*Node, error) {
	if branches.IsEmpty() {
		return root, nil
	}
	oids := branches.OIDs()
	var err error
	for _, id := range oids {
		commit, ferr := repo.FindCommit(id)
		if ferr != nil {
			return nil, ferr
		}
		root, err = root.InsertBranch(repo, commit, branches)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

// InsertBranch folds a single additional commit (typically a branch tip)
// into the tree rooted at n: it finds the merge base with the current
// root, splices a prefix chain beneath the root if the base sits above it,
// then builds and merges the chain from the (possibly new) root down to
// commit.
func (n *Node) InsertBranch(repo vcs.Repo, commit *vcs.Commit, possibleBranches *vcs.BranchIndex) (*Node, error) {
	mergeBaseID, ok, err := repo.MergeBase(n.LocalCommit.ID, commit.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gserr.Repo(gserr.ErrMergeBaseNotFound)
	}

	root := n
	if mergeBaseID != root.LocalCommit.ID {
		prefix, err := populate(repo, mergeBaseID, root.LocalCommit.ID, possibleBranches, root.Action)
		if err != nil {
			return nil, err
		}
		root, err = prefix.Extend(repo, root)
		if err != nil {
			return nil, err
		}
	}

	other, err := populate(repo, root.LocalCommit.ID, commit.ID, possibleBranches, Pick)
	if err != nil {
		return nil, err
	}
	root.merge(other)
	return root, nil
}

// Extend folds subgraph `other` into the tree rooted at n: if other's root
// commit is already present somewhere in n, they are merged directly;
// otherwise both sides are extended with a merge-base prefix until they
// share a root, and merged there.
func (n *Node) Extend(repo vcs.Repo, other *Node) (*Node, error) {
	if existing := n.FindCommit(other.LocalCommit.ID); existing != nil {
		existing.merge(other)
		return n, nil
	}

	mergeBaseID, ok, err := repo.MergeBase(n.LocalCommit.ID, other.LocalCommit.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gserr.Repo(gserr.ErrMergeBaseNotFound)
	}

	root := n
	empty := vcs.NewEmptyBranchIndex()
	if mergeBaseID != root.LocalCommit.ID {
		prefix, err := populate(repo, mergeBaseID, root.LocalCommit.ID, empty, root.Action)
		if err != nil {
			return nil, err
		}
		root, err = prefix.Extend(repo, root)
		if err != nil {
			return nil, err
		}
	}
	if mergeBaseID != other.LocalCommit.ID {
		prefix, err := populate(repo, mergeBaseID, other.LocalCommit.ID, empty, other.Action)
		if err != nil {
			return nil, err
		}
		other, err = prefix.Extend(repo, other)
		if err != nil {
			return nil, err
		}
	}
	root.merge(other)
	return root, nil
}

// Graft builds a rebase-plan graph: a root node for onto (claiming any
// branches pointing at it), with each of chains spliced in as a direct
// child. This is how the orchestrator's rebase-planning step (§4.6)
// deliberately re-parents local commit chains onto a new base, rather than
// relying on the merge-base-discovered structure InsertBranch/Extend
// produce when asked what the repository's current topology actually is.
func Graft(ontoCommit *vcs.Commit, possibleBranches *vcs.BranchIndex, chains ...*Node) *Node {
	root := New(ontoCommit, possibleBranches)
	for _, chain := range chains {
		if chain != nil {
			root.InsertChild(chain)
		}
	}
	return root
}

// Reroot re-parents a merge-base-discovered tree so that the node carrying
// ontoID becomes the new root, with every sibling subtree that diverged
// from it (rather than leading to it) reattached as ontoID's direct
// children instead of the original shared ancestor's. This is what turns
// "what does the repo currently look like" (the sibling topology
// FromBranches/InsertBranch naturally produce when onto has moved
// independently of a stack's other branches) into "what should the repo
// look like after rebasing the stack onto its new base" -- the same splice
// Graft performs, but starting from a discovered tree instead of a
// hand-built chain. root must carry no branches of its own (true whenever
// root is an unnamed merge-base waypoint, the common case here, since the
// base/onto branch name already points at ontoID, not at the old shared
// ancestor) -- any branches on root itself would otherwise be silently
// dropped, so callers must ensure that precondition holds.
func Reroot(root *Node, ontoID vcs.CommitID) *Node {
	if root.LocalCommit.ID == ontoID {
		return root
	}
	ontoNode := root.FindCommit(ontoID)
	if ontoNode == nil {
		return root
	}
	for _, child := range root.children {
		if child.FindCommit(ontoID) != nil {
			continue
		}
		ontoNode.InsertChild(child)
	}
	return ontoNode
}

// populate builds a linear chain from headOid down to (and including)
// baseOid along first-parent ancestry, failing if head is not a descendant
// of base. Every node in the chain is tagged with defaultAction, and
// claims any branch pointing at it out of branches.
func populate(repo vcs.Repo, baseOid, headOid vcs.CommitID, branches *vcs.BranchIndex, defaultAction Action) (*Node, error) {
	mergeBaseOid, ok, err := repo.MergeBase(baseOid, headOid)
	if err != nil {
		return nil, err
	}
	if !ok || mergeBaseOid != baseOid {
		return nil, gserr.Repo(gserr.ErrHeadNotDescendant)
	}

	headCommit, err := repo.FindCommit(headOid)
	if err != nil {
		return nil, err
	}
	root := New(headCommit, branches)
	root.Action = defaultAction

	if headOid == baseOid {
		return root, nil
	}

	it, err := repo.CommitsFrom(headOid)
	if err != nil {
		return nil, err
	}
	first, ok := it.Next()
	if !ok || first.ID != headOid {
		return nil, gserr.Repof("commits_from(%s) did not yield HEAD first", headOid)
	}

	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		child := root
		root = New(c, branches)
		root.Action = defaultAction
		root.InsertChild(child)
		if root.LocalCommit.ID == baseOid {
			break
		}
	}

	return root, nil
}
