// Package errors provides sentinel errors, typed errors, and exit-code
// classification for the gitstack application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrNotOnBranch indicates that HEAD is detached when an attached HEAD is required
	ErrNotOnBranch = errors.New("HEAD is not on a branch")

	// ErrBranchNotFound indicates that a branch does not exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrDirtyWorktree indicates the working tree has uncommitted changes
	ErrDirtyWorktree = errors.New("working tree is dirty")

	// ErrMergeBaseNotFound indicates no common ancestor exists between two commits
	ErrMergeBaseNotFound = errors.New("could not find merge base")

	// ErrNoProtectedBase indicates no protected ancestor branch could be resolved
	ErrNoProtectedBase = errors.New("could not find a protected branch to use as a base")

	// ErrHeadNotDescendant indicates HEAD is not a descendant of the requested base
	ErrHeadNotDescendant = errors.New("HEAD must be a descendant of base")

	// ErrRebaseConflict indicates a rebase, cherry-pick, or squash produced conflicts
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrNoCommonHistory indicates two branches share no history, fetch/pull cannot linearize
	ErrNoCommonHistory = errors.New("no common history between local and remote")
)

// Kind classifies an error for exit-code and propagation purposes, per the
// error handling design: UsageError/ConfigError abort before any side
// effect (exit 2), RepoError is a VCS-level failure (exit 1), ConflictError
// is non-fatal per branch (exit 1), NetworkError is logged and only fatal
// if no other work succeeded.
type Kind int

const (
	// KindUsage covers missing/invalid CLI or config, dirty tree, detached HEAD, unknown branch
	KindUsage Kind = iota
	// KindConfig covers malformed patterns or unparseable config documents
	KindConfig
	// KindRepo covers VCS-level failures: lookup, ref write, merge-base not found
	KindRepo
	// KindConflict covers rebase/cherry-pick/squash conflicts, fatal only for the affected branch
	KindConflict
	// KindNetwork covers fetch/push subprocess failures
	KindNetwork
)

// ExitCode returns the process exit code associated with a Kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage, KindConfig:
		return 2
	case KindRepo, KindConflict, KindNetwork:
		return 1
	default:
		return 1
	}
}

// String renders the Kind's name, used in error messages and logs.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage error"
	case KindConfig:
		return "config error"
	case KindRepo:
		return "repo error"
	case KindConflict:
		return "conflict error"
	case KindNetwork:
		return "network error"
	default:
		return "error"
	}
}

// ExitCodeFor maps an error to a process exit code: 0 for nil, the Kind's
// code for anything wrapped via Usage/Config/Repo/Network, and 64 for an
// unclassified error (§6's "64, or equivalent, fatal" catch-all).
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind.ExitCode()
	}
	return 64
}

// ClassifiedError wraps an error with its propagation Kind.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Usage wraps err as a KindUsage ClassifiedError.
func Usage(err error) error { return &ClassifiedError{Kind: KindUsage, Err: err} }

// Usagef formats a KindUsage ClassifiedError.
func Usagef(format string, args ...interface{}) error {
	return &ClassifiedError{Kind: KindUsage, Err: fmt.Errorf(format, args...)}
}

// Config wraps err as a KindConfig ClassifiedError.
func Config(err error) error { return &ClassifiedError{Kind: KindConfig, Err: err} }

// Configf formats a KindConfig ClassifiedError.
func Configf(format string, args ...interface{}) error {
	return &ClassifiedError{Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

// Repo wraps err as a KindRepo ClassifiedError.
func Repo(err error) error { return &ClassifiedError{Kind: KindRepo, Err: err} }

// Repof formats a KindRepo ClassifiedError.
func Repof(format string, args ...interface{}) error {
	return &ClassifiedError{Kind: KindRepo, Err: fmt.Errorf(format, args...)}
}

// Network wraps err as a KindNetwork ClassifiedError.
func Network(err error) error { return &ClassifiedError{Kind: KindNetwork, Err: err} }

// BranchNotFoundError represents an error when a branch is not found.
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q does not exist", e.BranchName)
}

// Is returns true if the target error is ErrBranchNotFound.
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError.
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// RebaseConflictError represents an error when a rebase/cherry-pick/squash encounters a conflict.
type RebaseConflictError struct {
	BranchName string
	Message    string
}

func (e *RebaseConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("conflict on branch %s: %s", e.BranchName, e.Message)
	}
	return fmt.Sprintf("conflict on branch %s", e.BranchName)
}

// Is returns true if the target error is ErrRebaseConflict.
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}

// NewRebaseConflictError creates a new RebaseConflictError.
func NewRebaseConflictError(branchName string, message string) *RebaseConflictError {
	return &RebaseConflictError{
		BranchName: branchName,
		Message:    message,
	}
}

// SubprocessError represents an error from a subprocess invocation of the system git executable.
type SubprocessError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("%s %v failed", e.Command, e.Args)
	if e.Stderr != "" {
		msg += fmt.Sprintf(": %s", e.Stderr)
	} else if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}

// NewSubprocessError creates a new SubprocessError.
func NewSubprocessError(command string, args []string, stdout, stderr string, err error) *SubprocessError {
	return &SubprocessError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
