package vcs

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	gserr "gitstack.dev/gitstack/internal/errors"
)

// Fetch shells out to the system `git fetch`, inheriting the user's
// credential helpers and GIT_* environment verbatim -- authentication is
// deliberately deferred to this external process rather than reimplemented
// against go-git's transport layer.
func (r *GitRepo) Fetch(ctx context.Context, remote, branch string) error {
	return r.runGit(ctx, "fetch", remote, branch)
}

// Push shells out to the system `git push`, optionally with
// --force-with-lease, for the same reason as Fetch.
func (r *GitRepo) Push(ctx context.Context, remote, branch string, forceWithLease bool) error {
	args := []string{"push"}
	if forceWithLease {
		args = append(args, "--force-with-lease")
	}
	args = append(args, "--set-upstream", remote, branch)
	return r.runGit(ctx, args...)
}

func (r *GitRepo) runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return gserr.Network(gserr.NewSubprocessError("git", args, stdout.String(), stderr.String(), err))
	}
	return nil
}
