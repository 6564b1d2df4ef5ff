package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
	"gitstack.dev/gitstack/internal/vcstest"
)

func branchIndex(t *testing.T, s *vcstest.Scenario, names ...string) *vcs.BranchIndex {
	t.Helper()
	var branches []vcs.Branch
	for _, n := range names {
		branches = append(branches, vcs.Branch{Name: n, ID: s.BranchID(n)})
	}
	return vcs.NewBranchIndex(branches)
}

// A single linear stack: main -> feature-a -> feature-b. FromBranches
// should produce a two-level chain rooted at feature-a's merge base with
// feature-b (which, on a pure line, is feature-a's own tip).
func TestFromBranches_LinearStack(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("feature-a").Commit("a1").Commit("a2")
	s.CreateBranch("feature-b").Commit("b1")

	idx := branchIndex(t, s, "feature-a", "feature-b")
	root, err := graph.FromBranches(s.Repo, idx)
	require.NoError(t, err)

	require.Equal(t, s.BranchID("feature-a"), root.LocalCommit.ID)
	require.Len(t, root.Children(), 1)
	child := root.Children()[0]
	require.Equal(t, s.BranchID("feature-b"), child.LocalCommit.ID)
	require.Empty(t, child.Children())
}

// Two branches diverging from a shared ancestor produce two distinct
// children under a common root.
func TestFromBranches_DivergingBranches(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("base").Commit("base1")
	base := s.HeadID()

	s.CreateBranch("left").Commit("left1")
	s.Checkout("base").CreateBranch("right").Commit("right1")

	idx := branchIndex(t, s, "left", "right")
	root, err := graph.FromBranches(s.Repo, idx)
	require.NoError(t, err)

	require.Equal(t, base, root.LocalCommit.ID)
	require.Len(t, root.Children(), 2)
	ids := map[vcs.CommitID]bool{
		root.Children()[0].LocalCommit.ID: true,
		root.Children()[1].LocalCommit.ID: true,
	}
	require.True(t, ids[s.BranchID("left")])
	require.True(t, ids[s.BranchID("right")])
}

func TestInsertChild_KeepsCommitIDOrder(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("base").Commit("base1")
	base := s.HeadID()
	s.CreateBranch("left").Commit("left1")
	s.Checkout("base").CreateBranch("right").Commit("right1")

	idx := branchIndex(t, s, "left", "right")
	root, err := graph.FromBranches(s.Repo, idx)
	require.NoError(t, err)
	require.Equal(t, base, root.LocalCommit.ID)

	children := root.Children()
	require.Len(t, children, 2)
	require.True(t, children[0].LocalCommit.ID.Compare(children[1].LocalCommit.ID) < 0)
}

func TestFindCommit(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("feature").Commit("f1").Commit("f2")
	idx := branchIndex(t, s, "feature")
	root, err := graph.FromBranches(s.Repo, idx)
	require.NoError(t, err)

	tip := s.HeadID()
	found := root.FindCommit(tip)
	require.NotNil(t, found)
	require.Equal(t, tip, found.LocalCommit.ID)

	require.Nil(t, root.FindCommit(vcs.CommitID{0xff}))
}
