package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
	"gitstack.dev/gitstack/internal/vcstest"
)

func TestExecutor_RunScript_RewritesOntoNewBase(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1")
	originalFeatureID := s.HeadID()

	// Advance main past feature's original base, so rebasing feature onto
	// main's new tip actually changes feature's commit id.
	s.Checkout("main").Commit("m2")
	newMain := s.HeadID()
	s.Checkout("feature")

	// Simulate the orchestrator's rebase-planning step: graft feature's
	// local chain onto main's new tip directly, rather than discovering a
	// topology via merge-base (which would still show the old divergence).
	chain, err := graph.FromBranches(s.Repo, branchIndex(t, s, "feature"))
	require.NoError(t, err)
	newMainCommit, err := s.Repo.FindCommit(newMain)
	require.NoError(t, err)
	root := graph.Graft(newMainCommit, branchIndex(t, s, "main"), chain)

	graph.RebaseBranches(root)
	script := graph.ToScript(root, "", vcs.CommitID{})

	exec := graph.NewExecutor(s.Repo, false)
	failures := exec.RunScript(script)
	require.Empty(t, failures)

	newFeature, err := s.Repo.FindLocalBranch("feature")
	require.NoError(t, err)
	require.NotEqual(t, originalFeatureID, newFeature.ID)

	rewritten, err := s.Repo.FindCommit(newFeature.ID)
	require.NoError(t, err)
	require.Equal(t, newMain, rewritten.ParentIDs[0])
}

func TestExecutor_DryRun_NeverMutatesRepo(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1")
	before := s.BranchID("feature")

	root := buildStack(t, s, "main", "feature")
	graph.RebaseBranches(root)
	script := graph.ToScript(root, "", vcs.CommitID{})

	exec := graph.NewExecutor(s.Repo, true)
	failures := exec.RunScript(script)
	require.Empty(t, failures)

	require.Equal(t, before, s.BranchID("feature"))
}
