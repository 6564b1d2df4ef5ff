package orchestrator

import (
	"log/slog"

	"gitstack.dev/gitstack/internal/graph"
)

// push implements §4.10's push phase: rebuild pushable on the post-rebase
// graph, then DFS over nodes where node.Pushable and force-with-lease push
// each one. A failed push stops that branch's descendants from being
// attempted, mirroring the executor's blocked-dependents propagation.
func push(s *State, st *StackState, log *slog.Logger) []graph.Failure {
	if st.Root == nil {
		return nil
	}
	graph.Pushable(st.Root)

	var failures []graph.Failure
	pushNode(s, st.Root, false, &failures, log)
	return failures
}

func pushNode(s *State, n *graph.Node, ancestorFailed bool, failures *[]graph.Failure, log *slog.Logger) {
	failedHere := ancestorFailed
	if n.Pushable && !ancestorFailed {
		for _, b := range n.Branches {
			if err := pushBranch(s, b.Name, log); err != nil {
				*failures = append(*failures, graph.Failure{Branch: b.Name, Err: err})
				failedHere = true
			}
		}
	} else if ancestorFailed {
		for _, b := range n.Branches {
			*failures = append(*failures, graph.Failure{Branch: b.Name, Err: errAncestorPushFailed, Blocked: true})
		}
	}
	for _, child := range n.Children() {
		pushNode(s, child, failedHere, failures, log)
	}
}

func pushBranch(s *State, name string, log *slog.Logger) error {
	if s.Flags.DryRun {
		log.Info("dry-run: would push", "remote", s.Repo.PushRemote(), "branch", name)
		return nil
	}
	return s.Repo.Push(ctxBackground(), s.Repo.PushRemote(), name, true)
}

var errAncestorPushFailed = errAncestorPushFailedErr{}

type errAncestorPushFailedErr struct{}

func (errAncestorPushFailedErr) Error() string { return "blocked: an ancestor branch failed to push" }
