package orchestrator

import (
	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
)

// plan implements §4.6 for one stack: ensure base/onto are present in the
// branch set, build the merge-base-discovered graph over HEAD plus every
// stack branch, then Reroot it so onto -- not whatever shared ancestor the
// branches happen to have diverged from -- is the tree's root. Without the
// reroot, a base that has moved independently of the stack (the ordinary
// post-pull case) would show up as onto's sibling rather than its new
// parent, and nothing downstream of onto would ever compile to a real
// cherry-pick.
func plan(s *State, st *StackState) error {
	branches := st.Branches.Clone()
	if !branches.ContainsOID(st.Base.ID) {
		branches.Insert(st.Base.Clone())
	}
	if !branches.ContainsOID(st.Onto.ID) {
		branches.Insert(st.Onto.Clone())
	}

	claimIdx := branches.Clone()
	root, err := graph.FromBranches(s.Repo, claimIdx)
	if err != nil {
		return err
	}
	if s.Head != nil && !branches.ContainsOID(s.Head.ID) {
		root, err = root.InsertBranch(s.Repo, s.Head, claimIdx)
		if err != nil {
			return err
		}
	}
	root = graph.Reroot(root, st.Onto.ID)

	graph.ProtectBranches(root, s.Protected)
	graph.RebaseBranches(root)

	landedFrom, err := landedCommits(s, st)
	if err != nil {
		return err
	}
	graph.DropByTreeID(root, landedFrom)

	graph.Fixup(root)
	graph.Pushable(root)
	if s.Cfg.ShowStacked {
		graph.Delinearize(root)
	} else {
		graph.MarkCollapsible(root)
	}

	st.Root = root

	headBranchName := ""
	var headOriginal vcs.CommitID
	if s.HeadBranch != nil {
		headBranchName = s.HeadBranch.Name
	}
	if s.Head != nil {
		headOriginal = s.Head.ID
	}
	st.Script = graph.ToScript(root, headBranchName, headOriginal)
	return nil
}

// landedCommits collects the commits reachable from onto down to
// merge_base(base, onto), the comparison set for drop_by_tree_id (§4.6 step 3).
func landedCommits(s *State, st *StackState) ([]*vcs.Commit, error) {
	mergeBase, ok, err := s.Repo.MergeBase(st.Base.ID, st.Onto.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		mergeBase = st.Base.ID
	}
	it, err := s.Repo.CommitsFrom(st.Onto.ID)
	if err != nil {
		return nil, err
	}
	commits := vcs.CollectUntil(it, mergeBase)
	ontoCommit, err := s.Repo.FindCommit(st.Onto.ID)
	if err != nil {
		return nil, err
	}
	return append(commits, ontoCommit), nil
}
