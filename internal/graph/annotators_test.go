package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
	"gitstack.dev/gitstack/internal/vcstest"
)

func buildStack(t *testing.T, s *vcstest.Scenario, names ...string) *graph.Node {
	t.Helper()
	idx := branchIndex(t, s, names...)
	root, err := graph.FromBranches(s.Repo, idx)
	require.NoError(t, err)
	return root
}

func TestProtectBranches_PropagatesUpward(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature-a").Commit("a1")
	s.CreateBranch("feature-b").Commit("b1")

	root := buildStack(t, s, "main", "feature-a", "feature-b")
	matcher, err := vcs.NewProtectedBranches([]string{"feature-b"})
	require.NoError(t, err)

	graph.ProtectBranches(root, matcher)

	leaf := root.FindCommit(s.BranchID("feature-b"))
	require.NotNil(t, leaf)
	require.True(t, leaf.Action.IsProtected())

	mid := root.FindCommit(s.BranchID("feature-a"))
	require.NotNil(t, mid)
	require.True(t, mid.Action.IsProtected(), "ancestor of a protected branch must itself become protected")

	require.True(t, root.Action.IsProtected())
}

func TestRebaseBranches_MarksRootProtectedRestPick(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1").Commit("f2")

	root := buildStack(t, s, "main", "feature")
	graph.RebaseBranches(root)

	require.True(t, root.Action.IsProtected())
	require.Len(t, root.Children(), 1)
	require.Equal(t, graph.Pick, root.Children()[0].Action)
}

func TestDropByTreeID_MarksMatchingTreeDelete(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1")
	landedID := s.HeadID()
	landedCommit, err := s.Repo.FindCommit(landedID)
	require.NoError(t, err)
	s.Commit("f2")

	root := buildStack(t, s, "main", "feature")
	graph.DropByTreeID(root, []*vcs.Commit{landedCommit})

	f1Node := root.FindCommit(landedID)
	require.NotNil(t, f1Node)
	require.Equal(t, graph.Delete, f1Node.Action)
}

func TestFixup_FindsNearestMatchingAncestor(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("add feature")
	s.Commit("fixup! add feature")

	root := buildStack(t, s, "main", "feature")
	graph.Fixup(root)

	fixupNode := root.FindCommit(s.HeadID())
	require.NotNil(t, fixupNode)
	require.Equal(t, graph.Fixup, fixupNode.Action)
}

func TestFixup_LeavesOrphanFixupAsPick(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("fixup! nothing matches this")

	root := buildStack(t, s, "main", "feature")
	graph.Fixup(root)

	node := root.FindCommit(s.BranchID("feature"))
	require.NotNil(t, node)
	require.Equal(t, graph.Pick, node.Action)
}

func TestPushable_RequiresBranchPickSingleParentNoWIPAndCleanAncestors(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature-a").Commit("a1")
	s.CreateBranch("feature-b").Commit("b1")

	root := buildStack(t, s, "main", "feature-a", "feature-b")
	graph.RebaseBranches(root)
	graph.Pushable(root)

	a := root.FindCommit(s.BranchID("feature-a"))
	b := root.FindCommit(s.BranchID("feature-b"))
	require.True(t, a.Pushable)
	require.True(t, b.Pushable)

	// If feature-a is turned into a Fixup, its descendant feature-b is no
	// longer pushable: an unresolved rewrite sits strictly above it.
	a.Action = graph.Fixup
	graph.Pushable(root)
	require.False(t, b.Pushable)
}

func TestPushable_WIPCommitNeverPushable(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("WIP: still cooking")

	root := buildStack(t, s, "main", "feature")
	graph.RebaseBranches(root)
	graph.Pushable(root)

	node := root.FindCommit(s.BranchID("feature"))
	require.False(t, node.Pushable)
}

func TestDelinearizeAndMarkCollapsible(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.Commit("passthrough")
	s.CreateBranch("feature").Commit("f1")

	root := buildStack(t, s, "main", "feature")
	graph.MarkCollapsible(root)
	graph.Delinearize(root)

	var anyCollapsed bool
	var walkCheck func(n *graph.Node)
	walkCheck = func(n *graph.Node) {
		if n.Collapsed {
			anyCollapsed = true
		}
		for _, c := range n.Children() {
			walkCheck(c)
		}
	}
	walkCheck(root)
	require.False(t, anyCollapsed, "Delinearize must reset every Collapsed marker")
}
