package orchestrator

import (
	"log/slog"

	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/graph"
)

// Run drives the full state machine: Init has already run (the caller
// constructs State via Init); Run executes (pull?) -> Plan ->
// (rebase?) -> (backup?) -> Execute -> (push?) -> Done. Show is left to the
// caller, which owns the output writer (internal/render consumes Result).
func Run(s *State, log *slog.Logger) Result {
	if log == nil {
		log = slog.Default()
	}

	if s.Flags.Pull {
		dirty, err := s.Repo.IsDirty()
		if err != nil {
			return Result{Err: err}
		}
		if dirty {
			return Result{Err: gserr.Usage(gserr.ErrDirtyWorktree)}
		}
		ranges, err := pull(s, log)
		if err != nil {
			return Result{Err: err}
		}
		if err := dropBranches(s, ranges, log); err != nil {
			return Result{Err: err}
		}
		if err := s.update(); err != nil {
			return Result{Err: err}
		}
		if err := refreshStacks(s); err != nil {
			return Result{Err: err}
		}
	}

	for _, st := range s.Stacks {
		if err := plan(s, st); err != nil {
			return Result{Err: err}
		}
	}

	if !s.Flags.Rebase {
		return Result{Stacks: s.Stacks}
	}

	dirty, err := s.Repo.IsDirty()
	if err != nil {
		return Result{Err: err}
	}
	if dirty {
		return Result{Err: gserr.Usage(gserr.ErrDirtyWorktree)}
	}

	return execute(s, log)
}

func refreshStacks(s *State) error {
	stacks, err := classifyStacks(s)
	if err != nil {
		return err
	}
	s.Stacks = stacks
	return nil
}

// execute implements the (backup?) -> Execute -> (push?) tail of the state
// machine. A backup is taken if and only if the run is not a dry run and at
// least one stack has a non-empty script, per §7's "backups are taken iff at least one
// successful mutation" policy -- an empty script means nothing would
// mutate, so skipping the snapshot keeps a trivial no-op run (S1) truly inert.
func execute(s *State, log *slog.Logger) Result {
	snap, err := s.snapshotBranches()
	if err != nil {
		return Result{Err: err}
	}

	backupTaken := false
	for _, st := range s.Stacks {
		if len(st.Script) == 0 {
			continue
		}
		if !backupTaken && !s.Flags.DryRun {
			if err := s.backupStack().Push(snap); err != nil {
				return Result{Err: err}
			}
			backupTaken = true
		}
		exec := graph.NewExecutor(s.Repo, s.Flags.DryRun)
		st.Failures = exec.RunScript(st.Script)
	}

	if s.Flags.Push {
		for _, st := range s.Stacks {
			pushFailures := push(s, st, log)
			st.Failures = append(st.Failures, pushFailures...)
		}
	}

	return Result{
		Stacks:         s.Stacks,
		BackupTaken:    backupTaken,
		BackupBranches: snap,
	}
}
