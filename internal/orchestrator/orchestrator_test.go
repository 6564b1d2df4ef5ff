package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/backup"
	"gitstack.dev/gitstack/internal/config"
	"gitstack.dev/gitstack/internal/orchestrator"
	"gitstack.dev/gitstack/internal/vcs"
	"gitstack.dev/gitstack/internal/vcstest"
)

func newState(t *testing.T, s *vcstest.Scenario, flags orchestrator.Flags) *orchestrator.State {
	t.Helper()
	cfg := config.Defaults()
	st, err := orchestrator.Init(s.Repo, s.Repo, cfg, flags)
	require.NoError(t, err)
	return st
}

func TestRun_TrivialNoOp_S1(t *testing.T) {
	s := vcstest.New(t) // single "main" branch, protected by default config

	state := newState(t, s, orchestrator.Flags{
		Rebase: true,
		Base:   "main",
		Onto:   "main",
		Stack:  config.StackCurrent,
		Format: config.FormatBrief,
	})

	result := orchestrator.Run(state, nil)
	require.NoError(t, result.Err)
	require.False(t, result.BackupTaken, "a no-op plan must not take a backup")
	require.Len(t, result.Stacks, 1)
	require.Empty(t, result.Stacks[0].Script, "nothing to rebase onto itself")
}

func TestRun_DirtyWorktreeAborts_S6(t *testing.T) {
	s := vcstest.New(t)
	s.Commit("dirty setup")
	s.WriteUntracked("scratch.txt", "uncommitted\n")

	state := newState(t, s, orchestrator.Flags{
		Rebase: true,
		Base:   "main",
		Onto:   "main",
		Stack:  config.StackCurrent,
		Format: config.FormatBrief,
	})

	result := orchestrator.Run(state, nil)
	require.Error(t, result.Err)
	require.False(t, result.BackupTaken)

	entries, err := backup.NewStack(s.Repo, "git-stack", 10).List()
	require.NoError(t, err)
	require.Empty(t, entries, "a dirty-tree abort must not touch the backup ring")
}

// TestRun_RebaseLinearStack_S2 is spec §8 scenario S2: a three-commit
// linear feature branch rebased onto a base that moved one commit ahead.
func TestRun_RebaseLinearStack_S2(t *testing.T) {
	s := vcstest.New(t) // main@C1
	s.CreateBranch("feature")
	s.Commit("C2")
	treeC2 := s.TreeID(s.HeadID())
	s.Commit("C3")
	treeC3 := s.TreeID(s.HeadID())

	s.Checkout("main")
	// C1' reuses C1's tree (a pulled commit that changes no content), so
	// the replayed C2' and C3' keep exactly C2's and C3's trees.
	s.CommitWithTree("C1'", s.TreeID(s.BranchID("main")))
	mainID := s.BranchID("main")
	s.Checkout("feature")

	state := newState(t, s, orchestrator.Flags{
		Rebase: true,
		Base:   "main",
		Onto:   "main",
		Stack:  config.StackCurrent,
		Format: config.FormatBrief,
	})

	result := orchestrator.Run(state, nil)
	require.NoError(t, result.Err)
	require.True(t, result.BackupTaken)
	require.Len(t, result.Stacks, 1)
	for _, f := range result.Stacks[0].Failures {
		t.Fatalf("unexpected failure: %s: %v", f.Branch, f.Err)
	}

	newFeature, err := s.Repo.FindLocalBranch("feature")
	require.NoError(t, err)
	mb, ok, err := s.Repo.MergeBase(newFeature.ID, mainID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mainID, mb, "feature must now descend from the moved main")

	it, err := s.Repo.CommitsFrom(newFeature.ID)
	require.NoError(t, err)
	commits := vcs.CollectUntil(it, mainID)
	require.Len(t, commits, 2, "both C2' and C3' must have been replayed onto C1'")
	// CollectUntil walks tip-to-base, so commits are newest first: [C3', C2'].
	require.Equal(t, treeC3, commits[0].TreeID)
	require.Equal(t, treeC2, commits[1].TreeID)
}

// TestRun_DependentBranchFollowsStack_S3 is spec §8 scenario S3: rebasing
// feature-a onto a moved main must carry feature-b, built on top of
// feature-a, along with it.
func TestRun_DependentBranchFollowsStack_S3(t *testing.T) {
	s := vcstest.New(t) // main@C1
	s.CreateBranch("feature-a")
	s.Commit("C2")
	s.Commit("C3")
	s.CreateBranch("feature-b")
	s.Commit("C4")
	s.Commit("C5")

	s.Checkout("main")
	s.Commit("C1'")
	mainID := s.BranchID("main")
	s.Checkout("feature-b")

	state := newState(t, s, orchestrator.Flags{
		Rebase: true,
		Base:   "main",
		Onto:   "main",
		Stack:  config.StackCurrent,
		Format: config.FormatBrief,
	})

	result := orchestrator.Run(state, nil)
	require.NoError(t, result.Err)
	require.Len(t, result.Stacks, 1)
	for _, f := range result.Stacks[0].Failures {
		t.Fatalf("unexpected failure: %s: %v", f.Branch, f.Err)
	}

	newA, err := s.Repo.FindLocalBranch("feature-a")
	require.NoError(t, err)
	newB, err := s.Repo.FindLocalBranch("feature-b")
	require.NoError(t, err)

	mbA, ok, err := s.Repo.MergeBase(newA.ID, mainID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mainID, mbA, "feature-a must now descend from the moved main")

	mbB, ok, err := s.Repo.MergeBase(newB.ID, newA.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newA.ID, mbB, "feature-b must still follow feature-a's new tip, not just the new base")
}

// TestRun_DropLandedByTreeID_S4 is spec §8 scenario S4: a commit whose tree
// already landed on the base (under a different history) must be dropped
// rather than replayed.
func TestRun_DropLandedByTreeID_S4(t *testing.T) {
	s := vcstest.New(t) // main@C1
	s.CreateBranch("feature")
	s.Commit("C2")
	treeC2 := s.TreeID(s.HeadID())
	s.Commit("C3")

	s.Checkout("main")
	s.CommitWithTree("C2 (landed)", treeC2)
	mainID := s.BranchID("main")
	s.Checkout("feature")

	state := newState(t, s, orchestrator.Flags{
		Rebase: true,
		Base:   "main",
		Onto:   "main",
		Stack:  config.StackCurrent,
		Format: config.FormatBrief,
	})

	result := orchestrator.Run(state, nil)
	require.NoError(t, result.Err)
	for _, f := range result.Stacks[0].Failures {
		t.Fatalf("unexpected failure: %s: %v", f.Branch, f.Err)
	}

	newFeature, err := s.Repo.FindLocalBranch("feature")
	require.NoError(t, err)
	mb, ok, err := s.Repo.MergeBase(newFeature.ID, mainID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mainID, mb, "feature must now sit directly on the landed main")

	it, err := s.Repo.CommitsFrom(newFeature.ID)
	require.NoError(t, err)
	commits := vcs.CollectUntil(it, mainID)
	require.Len(t, commits, 1, "C2 must have been dropped, leaving only C3'")
}

// TestRun_FixupLowering_S5 is spec §8 scenario S5: a "fixup! <summary>"
// commit must be squashed into the commit it targets rather than kept as
// its own entry in the stack.
func TestRun_FixupLowering_S5(t *testing.T) {
	s := vcstest.New(t) // main@C1
	s.CreateBranch("feature")
	s.Commit("add x")
	s.Commit("fixup! add x")
	treeC3 := s.TreeID(s.HeadID())

	state := newState(t, s, orchestrator.Flags{
		Rebase: true,
		Base:   "main",
		Onto:   "main",
		Stack:  config.StackCurrent,
		Format: config.FormatBrief,
	})

	result := orchestrator.Run(state, nil)
	require.NoError(t, result.Err)
	for _, f := range result.Stacks[0].Failures {
		t.Fatalf("unexpected failure: %s: %v", f.Branch, f.Err)
	}

	newFeature, err := s.Repo.FindLocalBranch("feature")
	require.NoError(t, err)
	mainID := s.BranchID("main")

	it, err := s.Repo.CommitsFrom(newFeature.ID)
	require.NoError(t, err)
	commits := vcs.CollectUntil(it, mainID)
	require.Len(t, commits, 1, "the fixup commit must be folded into its target, leaving one commit")
	require.Equal(t, treeC3, commits[0].TreeID, "the squashed commit's tree must match the fixup commit's tree")
}

