// Package orchestrator implements the pull/rebase/push state machine
// (§4.10) that ties the repo abstraction, branch index, graph engine, and
// backup ring together: `Init -> (pull?) -> Plan -> (rebase?) -> (backup?)
// -> Execute -> (push?) -> Show -> Done`. The Show step is left to the
// caller, which renders the returned Result.
package orchestrator

import (
	"context"

	"gitstack.dev/gitstack/internal/backup"
	"gitstack.dev/gitstack/internal/config"
	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
)

// StackState is one (base, onto, branches) unit of work, rebuilt after the
// pull phase (refreshStacks).
type StackState struct {
	Base      vcs.Branch
	Onto      vcs.Branch
	Branches  *vcs.BranchIndex
	Root      *graph.Node
	Script    []graph.Command
	Failures  []graph.Failure
}

// Flags carries the behavioral CLI/config knobs the state machine reads.
type Flags struct {
	Rebase   bool
	Pull     bool
	Push     bool
	DryRun   bool
	Base     string
	Onto     string
	Stack    config.StackMode
	Format   config.Format
}

// State is the orchestrator's aggregate: repo handle, full branch index,
// protected-branch view, head commit, per-stack work, and behavioral flags.
type State struct {
	Repo       vcs.Repo
	RefStore   vcs.RefStore
	Cfg        config.Config
	Flags      Flags
	All        *vcs.BranchIndex
	Protected  *vcs.ProtectedBranches
	Head       *vcs.Commit
	HeadBranch *vcs.Branch
	Stacks     []*StackState
	BackupNS   string
}

// Result is Done's summary, consumed by the CLI layer and Show.
type Result struct {
	Stacks       []*StackState
	BackupTaken  bool
	BackupBranches map[string]vcs.CommitID
	Err          error
}

// update resyncs the branch index and head commit, mirroring the spec's
// "between phases, call State::update()" requirement.
func (s *State) update() error {
	if err := s.All.Update(s.Repo); err != nil {
		return err
	}
	head, err := s.Repo.HeadCommit()
	if err != nil {
		return err
	}
	s.Head = head
	headBranch, err := s.Repo.HeadBranch()
	if err != nil {
		return err
	}
	s.HeadBranch = headBranch
	return nil
}

// Init builds State from merged config and CLI flags, then classifies
// stacks per the `stack` mode. It does not touch the repo beyond read-only
// lookups.
func Init(repo vcs.Repo, refStore vcs.RefStore, cfg config.Config, flags Flags) (*State, error) {
	matcher, err := vcs.NewProtectedBranches(cfg.ProtectedBranches)
	if err != nil {
		return nil, err
	}

	s := &State{
		Repo:      repo,
		RefStore:  refStore,
		Cfg:       cfg,
		Flags:     flags,
		All:       vcs.NewEmptyBranchIndex(),
		Protected: matcher,
		BackupNS:  "git-stack",
	}
	if err := s.update(); err != nil {
		return nil, err
	}

	stacks, err := classifyStacks(s)
	if err != nil {
		return nil, err
	}
	s.Stacks = stacks
	return s, nil
}

func classifyStacks(s *State) ([]*StackState, error) {
	protected := s.All.Protected(s.Protected)

	onto, err := resolveOnto(s)
	if err != nil {
		return nil, err
	}

	switch s.Flags.Stack {
	case config.StackAll:
		return classifyAll(s, protected, onto)
	default:
		base, err := resolveBase(s, onto)
		if err != nil {
			return nil, err
		}
		branches, err := selectBranches(s, base.ID)
		if err != nil {
			return nil, err
		}
		return []*StackState{{Base: base, Onto: onto, Branches: branches}}, nil
	}
}

// classifyAll groups every local branch into one stack per resolved
// implicit base, per §4.10's "all with no explicit base" rule.
func classifyAll(s *State, protected *vcs.BranchIndex, onto vcs.Branch) ([]*StackState, error) {
	groups := make(map[vcs.CommitID]*StackState)
	var order []vcs.CommitID

	var outerErr error
	s.All.Iter(func(id vcs.CommitID, branches []vcs.Branch) {
		if outerErr != nil {
			return
		}
		for _, b := range branches {
			baseBranch, err := graph.FindProtectedBase(s.Repo, protected, b.ID)
			if err != nil {
				outerErr = err
				return
			}
			if baseBranch == nil {
				continue
			}
			st, ok := groups[baseBranch.ID]
			if !ok {
				st = &StackState{Base: *baseBranch, Onto: onto, Branches: vcs.NewEmptyBranchIndex()}
				groups[baseBranch.ID] = st
				order = append(order, baseBranch.ID)
			}
			st.Branches.Insert(b.Clone())
		}
	})
	if outerErr != nil {
		return nil, outerErr
	}

	out := make([]*StackState, 0, len(order))
	for _, id := range order {
		out = append(out, groups[id])
	}
	return out, nil
}

func resolveOnto(s *State) (vcs.Branch, error) {
	name := s.Flags.Onto
	if name == "" {
		name = s.Flags.Base
	}
	if name == "" {
		if s.HeadBranch != nil {
			b, err := graph.FindProtectedBase(s.Repo, s.All.Protected(s.Protected), s.HeadBranch.ID)
			if err != nil {
				return vcs.Branch{}, err
			}
			if b != nil {
				return *b, nil
			}
		}
		return vcs.Branch{}, gserr.Usage(gserr.ErrNoProtectedBase)
	}
	b, err := s.Repo.FindLocalBranch(name)
	if err != nil {
		return vcs.Branch{}, gserr.Usage(gserr.NewBranchNotFoundError(name))
	}
	return *b, nil
}

func resolveBase(s *State, onto vcs.Branch) (vcs.Branch, error) {
	if s.Flags.Base == "" {
		return onto, nil
	}
	b, err := s.Repo.FindLocalBranch(s.Flags.Base)
	if err != nil {
		return vcs.Branch{}, gserr.Usage(gserr.NewBranchNotFoundError(s.Flags.Base))
	}
	return *b, nil
}

// selectBranches resolves which branches belong to this stack for the
// configured Stack mode. Dependents/Current both anchor on the current
// HEAD commit -- "the stack HEAD is on, plus (for Dependents) whatever
// else depends on it" -- never on onto, which only names where the stack
// will land, not which branches belong to it.
func selectBranches(s *State, base vcs.CommitID) (*vcs.BranchIndex, error) {
	switch s.Flags.Stack {
	case config.StackDependents:
		if s.Head == nil {
			return vcs.NewEmptyBranchIndex(), nil
		}
		return s.All.Dependents(s.Repo, base, s.Head.ID)
	case config.StackDescendants:
		return s.All.Descendants(s.Repo, base)
	default: // StackCurrent
		if s.Head == nil {
			return vcs.NewEmptyBranchIndex(), nil
		}
		return s.All.Branch(s.Repo, base, s.Head.ID)
	}
}

// backupStack returns the backup.Stack bound to this run's namespace and configured capacity.
func (s *State) backupStack() *backup.Stack {
	return backup.NewStack(s.RefStore, s.BackupNS, s.Cfg.Capacity)
}

// snapshotBranches captures every local branch's current commit id, the
// payload of a BackupEntry (§4.9).
func (s *State) snapshotBranches() (map[string]vcs.CommitID, error) {
	branches, err := s.Repo.LocalBranches()
	if err != nil {
		return nil, err
	}
	out := make(map[string]vcs.CommitID, len(branches))
	for _, b := range branches {
		out[b.Name] = b.ID
	}
	return out, nil
}

// ctxBackground is used for the fetch/push subprocess calls the
// orchestrator drives; no cancellation/timeout policy is imposed above the
// repo abstraction (§5).
func ctxBackground() context.Context { return context.Background() }
