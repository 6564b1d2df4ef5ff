package graph

import (
	"strings"

	"gitstack.dev/gitstack/internal/vcs"
)

// ProtectBranches marks every node carrying a protected-branch name (and,
// transitively, every one of its ancestors) Protected. Protected downstream
// work blocks rewriting the ancestors that lead to it.
func ProtectBranches(root *Node, matcher *vcs.ProtectedBranches) {
	markProtected(root, matcher)
}

func markProtected(n *Node, matcher *vcs.ProtectedBranches) bool {
	protected := false
	for _, b := range n.Branches {
		if matcher.Matches(b.Name) {
			protected = true
			break
		}
	}
	for _, child := range n.children {
		if markProtected(child, matcher) {
			protected = true
		}
	}
	if protected {
		n.Action = Protected
	}
	return protected
}

// RebaseBranches marks root (the onto commit) Protected, and every other
// reachable node Pick unless an earlier pass already marked it Protected.
func RebaseBranches(root *Node) {
	root.Action = Protected
	for _, child := range root.children {
		setPickUnlessProtected(child)
	}
}

func setPickUnlessProtected(n *Node) {
	if n.Action != Protected {
		n.Action = Pick
	}
	for _, child := range n.children {
		setPickUnlessProtected(child)
	}
}

// DropByTreeID marks any non-protected node Delete when its commit's tree
// id matches one of the given commits' tree ids -- these are commits that
// already landed upstream: identical tree contents mean no diff remains.
func DropByTreeID(root *Node, commits []*vcs.Commit) {
	landed := make(map[vcs.CommitID]bool, len(commits))
	for _, c := range commits {
		landed[c.TreeID] = true
	}
	walkDropByTreeID(root, landed)
}

func walkDropByTreeID(n *Node, landed map[vcs.CommitID]bool) {
	if !n.Action.IsProtected() && landed[n.LocalCommit.TreeID] {
		n.Action = Delete
	}
	for _, child := range n.children {
		walkDropByTreeID(child, landed)
	}
}

// Fixup marks a non-protected node Fixup when its summary declares itself a
// `fixup! `/`squash! ` commit and the nearest matching ancestor summary is
// found in the stack. If no matching target is found, the node is left as
// Pick -- lenient by design, so an orphaned fixup commit does not abort the
// whole rebase; the user sorts it out by hand.
func Fixup(root *Node) {
	walkFixup(root, nil)
}

func walkFixup(n *Node, ancestors []*Node) {
	if !n.Action.IsProtected() {
		if target, isFixup := fixupTarget(n.LocalCommit.SummaryString()); isFixup {
			for i := len(ancestors) - 1; i >= 0; i-- {
				if ancestors[i].LocalCommit.SummaryString() == target {
					n.Action = Fixup
					break
				}
			}
		}
	}
	descendants := append(append([]*Node{}, ancestors...), n)
	for _, child := range n.children {
		walkFixup(child, descendants)
	}
}

// Pushable computes, for every node, whether it is safe to publish: it
// carries a branch, its action is Pick, its commit is not a merge, its
// summary carries no WIP marker, and every strict ancestor back to the
// nearest protected node is itself Pick (no unresolved Fixup/Delete above it).
func Pushable(root *Node) {
	walkPushable(root, true)
}

func walkPushable(n *Node, ancestorsClean bool) {
	hasBranch := len(n.Branches) > 0
	singleParent := len(n.LocalCommit.ParentIDs) <= 1
	n.Pushable = hasBranch && n.Action == Pick && singleParent && !hasWIPMarker(n.LocalCommit.SummaryString()) && ancestorsClean

	childClean := ancestorsClean
	switch {
	case n.Action == Protected:
		childClean = true
	case n.Action != Pick:
		childClean = false
	}
	for _, child := range n.children {
		walkPushable(child, childClean)
	}
}

func hasWIPMarker(summary string) bool {
	upper := strings.ToUpper(strings.TrimSpace(summary))
	if upper == "WIP" {
		return true
	}
	return strings.HasPrefix(upper, "WIP:") || strings.HasPrefix(upper, "WIP ")
}

// Delinearize resets every node's Collapsed marker to false, so that a
// chain of single-child, branch-less nodes stays fully represented in the
// tree. MarkCollapsible is the inverse. The rebase planner runs Delinearize
// when show-stacked is set and MarkCollapsible otherwise, and the renderer
// runs one or the other by format; script compilation ignores Collapsed.
func Delinearize(root *Node) {
	walk(root, func(n *Node) { n.Collapsed = false })
}

// MarkCollapsible marks a node Collapsed when it is a pure pass-through
// commit in a linear run: exactly one child, no branches, action Pick.
func MarkCollapsible(root *Node) {
	walk(root, func(n *Node) {
		n.Collapsed = len(n.children) == 1 && len(n.Branches) == 0 && n.Action == Pick
	})
}

func walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, child := range n.children {
		walk(child, fn)
	}
}

// FindProtectedBase walks first-parent ancestry from head looking for the
// nearest commit carrying a protected branch, implementing the "resolve
// implicit base" step used when `--stack all` needs one stack per base
// (§4.10) -- supplemented from original_source's resolve_implicit_base /
// find_protected_base, which spec.md only describes at the orchestrator level.
func FindProtectedBase(repo vcs.Repo, protected *vcs.BranchIndex, head vcs.CommitID) (*vcs.Branch, error) {
	it, err := repo.CommitsFrom(head)
	if err != nil {
		return nil, err
	}
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		if branches := protected.Get(c.ID); len(branches) > 0 {
			b := branches[0].Clone()
			return &b, nil
		}
	}
	return nil, nil
}
