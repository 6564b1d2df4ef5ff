package graph

import (
	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/vcs"
)

// Failure records one command in a Script that did not complete: either it
// failed directly (Blocked=false), or it was skipped because an earlier
// command it depended on already failed (Blocked=true). Branch is empty for
// failures not attached to a specific branch (e.g. a SwitchCommit failure).
type Failure struct {
	Branch  string
	Err     error
	Blocked bool
}

// Executor carries a compiled Script out against a Repo. It never aborts
// the whole run on a single branch's failure: that branch, and anything
// that depends on it, is marked Blocked and skipped, while independent
// branches elsewhere in the stack still land. The one exception is a failed
// SwitchCommit, which ends the run with the failures collected so far.
//
// In-memory cherry-pick/squash (internal/vcs) never performs a true 3-way
// merge, so it cannot itself detect a content conflict; a "failure" here is
// always a hard VCS error (missing object, bad ref, I/O), not a merge
// conflict. dryRun therefore never executes a single repo-mutating call --
// there is nothing to roll back, and nothing to falsely report as conflicting.
type Executor struct {
	repo     vcs.Repo
	dryRun   bool
	resultOf map[vcs.CommitID]vcs.CommitID
}

// NewExecutor builds an Executor bound to repo. In dry-run mode RunScript
// performs no mutations at all and always reports zero failures.
func NewExecutor(repo vcs.Repo, dryRun bool) *Executor {
	return &Executor{repo: repo, dryRun: dryRun, resultOf: make(map[vcs.CommitID]vcs.CommitID)}
}

func (e *Executor) resolve(id vcs.CommitID) vcs.CommitID {
	if v, ok := e.resultOf[id]; ok {
		return v
	}
	return id
}

// RunScript executes every command in order, returning the set of branches
// (if any) that failed to rebase or failed because a dependency was blocked.
func (e *Executor) RunScript(script []Command) []Failure {
	if e.dryRun {
		return nil
	}

	poisoned := make(map[vcs.CommitID]bool)
	var failures []Failure
	var currentPoisoned bool

	for _, cmd := range script {
		switch cmd.Kind {
		case SwitchCommit:
			if poisoned[cmd.OriginalID] {
				currentPoisoned = true
				continue
			}
			currentPoisoned = false
			if err := e.repo.SwitchCommit(e.resolve(cmd.OriginalID)); err != nil {
				failures = append(failures, Failure{Err: gserr.Repo(err)})
				return failures
			}

		case CherryPick:
			if currentPoisoned {
				poisoned[cmd.OriginalID] = true
				continue
			}
			newID, err := e.repo.CherryPick(cmd.OriginalID)
			if err != nil {
				poisoned[cmd.OriginalID] = true
				currentPoisoned = true
				failures = append(failures, Failure{Err: gserr.Repo(err)})
				continue
			}
			e.resultOf[cmd.OriginalID] = newID

		case Squash:
			if currentPoisoned {
				poisoned[cmd.OriginalID] = true
				continue
			}
			newID, err := e.repo.Squash(cmd.OriginalID)
			if err != nil {
				poisoned[cmd.OriginalID] = true
				currentPoisoned = true
				failures = append(failures, Failure{Err: gserr.Repo(err)})
				continue
			}
			e.resultOf[cmd.OriginalID] = newID

		case RegisterBranch:
			if poisoned[cmd.OriginalID] || currentPoisoned {
				failures = append(failures, Failure{Branch: cmd.Branch, Blocked: true})
				continue
			}
			if err := e.repo.Branch(cmd.Branch, e.resolve(cmd.OriginalID)); err != nil {
				failures = append(failures, Failure{Branch: cmd.Branch, Err: gserr.Repo(err)})
			}

		case DeleteBranchCmd:
			if err := e.repo.DeleteBranch(cmd.Branch); err != nil {
				failures = append(failures, Failure{Branch: cmd.Branch, Err: gserr.Repo(err)})
			}

		case SwitchBranchCmd:
			if poisoned[cmd.OriginalID] {
				continue
			}
			target := e.resolve(cmd.OriginalID)
			if err := e.repo.SwitchCommit(target); err != nil {
				failures = append(failures, Failure{Err: gserr.Repo(err)})
				continue
			}
			if err := e.repo.Branch(cmd.Branch, target); err != nil {
				failures = append(failures, Failure{Err: gserr.Repo(err)})
				continue
			}
			if err := e.repo.Switch(cmd.Branch); err != nil {
				failures = append(failures, Failure{Err: gserr.Repo(err)})
			}
		}
	}

	return failures
}

// IsDirty reports whether the worktree has uncommitted changes. The
// orchestrator does not call it; it checks Repo.IsDirty directly and aborts
// on a dirty tree.
func (e *Executor) IsDirty() (bool, error) {
	return e.repo.IsDirty()
}
