package orchestrator

import (
	"log/slog"

	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/vcs"
)

// pullRange is the (old_base_after_pull, new_tip) interval returned by a
// successful pull, used by dropBranches to identify absorbed work.
type pullRange struct {
	branch   string
	oldBase  vcs.CommitID
	newTip   vcs.CommitID
	pulled   bool
}

// pull implements §4.5 for every stack whose onto branch is protected:
// fetch, compute the merge base with the fetched remote tip, replay the
// local commits since that merge base onto the remote tip in memory, move
// the ref, and reattach HEAD if it was there.
// Fails soft per stack: a fetch or rebase failure is logged and that
// stack's pull is skipped, not fatal to the run.
func pull(s *State, log *slog.Logger) ([]pullRange, error) {
	dirty, err := s.Repo.IsDirty()
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, gserr.Usage(gserr.ErrDirtyWorktree)
	}

	var ranges []pullRange
	seen := make(map[string]bool)
	for _, st := range s.Stacks {
		name := st.Onto.Name
		if seen[name] || !s.Protected.Matches(name) {
			continue
		}
		seen[name] = true

		r, err := pullOne(s, name, log)
		if err != nil {
			log.Warn("pull failed, skipping stack", "branch", name, "error", err)
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func pullOne(s *State, branchName string, log *slog.Logger) (pullRange, error) {
	local, err := s.Repo.FindLocalBranch(branchName)
	if err != nil {
		return pullRange{}, err
	}

	if s.Flags.DryRun {
		log.Info("dry-run: would fetch", "remote", s.Repo.PullRemote(), "branch", branchName)
		return pullRange{branch: branchName, oldBase: local.ID, newTip: local.ID}, nil
	}

	if err := s.Repo.Fetch(ctxBackground(), s.Repo.PullRemote(), branchName); err != nil {
		return pullRange{}, err
	}
	// Re-read the branch so PullID reflects the remote-tracking ref the fetch just updated.
	local, err = s.Repo.FindLocalBranch(branchName)
	if err != nil {
		return pullRange{}, err
	}

	remoteID := local.ID
	if local.PullID != nil {
		remoteID = *local.PullID
	}

	base, ok, err := s.Repo.MergeBase(local.ID, remoteID)
	if err != nil {
		return pullRange{}, err
	}
	if !ok {
		return pullRange{}, gserr.Repo(gserr.ErrNoCommonHistory)
	}
	if base == remoteID {
		return pullRange{branch: branchName, oldBase: local.ID, newTip: local.ID}, nil
	}

	newTip, err := rebaseRange(s, base, local.ID, remoteID)
	if err != nil {
		return pullRange{}, err
	}

	if err := s.Repo.Branch(branchName, newTip); err != nil {
		return pullRange{}, err
	}
	if s.HeadBranch != nil && s.HeadBranch.Name == branchName {
		if err := s.Repo.Detach(); err != nil {
			return pullRange{}, err
		}
		if err := s.Repo.SwitchCommit(newTip); err != nil {
			return pullRange{}, err
		}
		if err := s.Repo.Switch(branchName); err != nil {
			return pullRange{}, err
		}
	}

	return pullRange{branch: branchName, oldBase: base, newTip: newTip, pulled: true}, nil
}

// rebaseRange replays base..head onto newBase in memory, commit by commit,
// first-parent order. Used both by pull (§4.5) and is the same primitive
// rebase planning ultimately drives through the Executor.
func rebaseRange(s *State, base, head, newBase vcs.CommitID) (vcs.CommitID, error) {
	it, err := s.Repo.CommitsFrom(head)
	if err != nil {
		return vcs.ZeroCommitID, err
	}
	chain := vcs.CollectUntil(it, base)

	if err := s.Repo.SwitchCommit(newBase); err != nil {
		return vcs.ZeroCommitID, err
	}
	tip := newBase
	for i := len(chain) - 1; i >= 0; i-- {
		newID, err := s.Repo.CherryPick(chain[i].ID)
		if err != nil {
			return vcs.ZeroCommitID, gserr.Repo(gserr.NewRebaseConflictError("", err.Error()))
		}
		tip = newID
	}
	return tip, nil
}

// dropBranches prunes non-protected local branches whose commit falls
// inside a pulled interval, except the branch that just received the pull.
// If HEAD was on a pruned branch, switch to the pulled branch first.
func dropBranches(s *State, ranges []pullRange, log *slog.Logger) error {
	for _, r := range ranges {
		if !r.pulled {
			continue
		}
		absorbed, err := absorbedSet(s, r)
		if err != nil {
			return err
		}

		branches, err := s.Repo.LocalBranches()
		if err != nil {
			return err
		}
		for _, b := range branches {
			if b.Name == r.branch || s.Protected.Matches(b.Name) {
				continue
			}
			if !absorbed[b.ID] {
				continue
			}
			if s.HeadBranch != nil && s.HeadBranch.Name == b.Name {
				if err := s.Repo.Switch(r.branch); err != nil {
					return err
				}
			}
			log.Info("dropping branch absorbed by pull", "branch", b.Name)
			if err := s.Repo.DeleteBranch(b.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func absorbedSet(s *State, r pullRange) (map[vcs.CommitID]bool, error) {
	it, err := s.Repo.CommitsFrom(r.newTip)
	if err != nil {
		return nil, err
	}
	commits := vcs.CollectUntil(it, r.oldBase)
	set := make(map[vcs.CommitID]bool, len(commits)+1)
	for _, c := range commits {
		set[c.ID] = true
	}
	set[r.oldBase] = true
	return set, nil
}
