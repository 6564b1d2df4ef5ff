package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
	"gitstack.dev/gitstack/internal/vcstest"
)

// graftedStack simulates a real rebase plan: main has moved to a new tip,
// and a two-commit feature chain (still rooted at the old main) is grafted
// onto it, so every Pick node's FirstParent genuinely differs from its
// compiled parent target and the script must emit real commands.
func graftedStack(t *testing.T) (*vcstest.Scenario, *graph.Node) {
	t.Helper()
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature-a").Commit("a1")
	s.CreateBranch("feature-b").Commit("b1")

	chain, err := graph.FromBranches(s.Repo, branchIndex(t, s, "feature-a", "feature-b"))
	require.NoError(t, err)

	s.Checkout("main")
	s.Commit("landed m2")
	newMain, err := s.Repo.FindCommit(s.BranchID("main"))
	require.NoError(t, err)

	root := graph.Graft(newMain, branchIndex(t, s, "main"), chain)
	graph.RebaseBranches(root)
	graph.Pushable(root)
	return s, root
}

func TestToScript_CompilesPickChainInOrder(t *testing.T) {
	_, root := graftedStack(t)
	script := graph.ToScript(root, "", vcs.CommitID{})

	var kinds []graph.CommandKind
	for _, cmd := range script {
		kinds = append(kinds, cmd.Kind)
	}
	// Protected anchor emits nothing; each moved Pick child emits
	// switch-to-parent, cherry-pick, register.
	require.Equal(t, []graph.CommandKind{
		graph.SwitchCommit, graph.CherryPick, graph.RegisterBranch,
		graph.SwitchCommit, graph.CherryPick, graph.RegisterBranch,
	}, kinds)
}

func TestToScript_UnchangedTreeCompilesEmpty(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1")

	root := buildStack(t, s, "main", "feature")
	graph.RebaseBranches(root)

	script := graph.ToScript(root, "", vcs.CommitID{})
	require.Empty(t, script, "nothing moved, so no branch needs a command (idempotence, §8 invariant 5)")
}

func TestToScript_DeletedNodeEmitsNoRebaseOps(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1")
	droppedID := s.HeadID()
	landed, err := s.Repo.FindCommit(droppedID)
	require.NoError(t, err)
	s.Commit("f2")
	keptID := s.HeadID()

	root := buildStack(t, s, "main", "feature")
	graph.RebaseBranches(root)
	graph.DropByTreeID(root, []*vcs.Commit{landed})

	script := graph.ToScript(root, "", vcs.CommitID{})
	var cherryPicked []vcs.CommitID
	for _, cmd := range script {
		if cmd.Kind == graph.CherryPick {
			cherryPicked = append(cherryPicked, cmd.OriginalID)
		}
	}
	require.NotContains(t, cherryPicked, droppedID, "a dropped commit must never be cherry-picked")
	require.Contains(t, cherryPicked, keptID, "the surviving child must still be replayed onto the new parent")
}

func TestToScript_AppendsFinalSwitchBranch(t *testing.T) {
	s, root := graftedStack(t)
	script := graph.ToScript(root, "feature-b", s.BranchID("feature-b"))
	require.NotEmpty(t, script)
	last := script[len(script)-1]
	require.Equal(t, graph.SwitchBranchCmd, last.Kind)
	require.Equal(t, "feature-b", last.Branch)
}

func TestToScript_NoOpRebaseOmitsTrailingSwitchBranch(t *testing.T) {
	s := vcstest.New(t)
	s.CreateBranch("main").Commit("m1")
	s.CreateBranch("feature").Commit("f1")

	root := buildStack(t, s, "main", "feature")
	graph.RebaseBranches(root)

	script := graph.ToScript(root, "feature", s.BranchID("feature"))
	require.Empty(t, script, "a genuinely empty plan must not grow a trailing switch-branch command")
}
