// Package cliapp wires the cobra command tree for gitstack: the default
// root verb drives the orchestrator's pull/rebase/push state machine, and
// config/backup subcommands expose the repo-local config file and the
// backup ring directly, mirroring the teacher corpus's one-root-command,
// many-AddCommand layout (internal/cli/root.go).
package cliapp

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gitstack.dev/gitstack/internal/backup"
	"gitstack.dev/gitstack/internal/config"
	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/logging"
	"gitstack.dev/gitstack/internal/vcs"
)

// env bundles the repo handle, merged config, and logger every subcommand
// needs, built once by the root command's PersistentPreRunE and threaded
// through via the command's context -- the teacher's runtime.Context,
// scoped down to what this module actually reads.
type env struct {
	repo *vcs.GitRepo
	cfg  config.Config
	log  *slog.Logger
}

// backupNamespace must match orchestrator.State.BackupNS so `gitstack backup
// list/pop` read the same ring a rebase run wrote to.
const backupNamespace = "git-stack"

func (e *env) backupStack() *backup.Stack {
	return backup.NewStack(e.repo, backupNamespace, e.cfg.Capacity)
}

type envKey struct{}

func withEnv(cmd *cobra.Command, e *env) {
	cmd.SetContext(contextWithEnv(cmd.Context(), e))
}

// NewRootCmd builds the gitstack command tree.
func NewRootCmd(version string) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "gitstack",
		Short:        "Stack-aware rebase and push orchestrator for a content-addressed VCS",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(cmd, flags)
			if err != nil {
				return err
			}
			withEnv(cmd, e)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefault(cmd, flags)
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.quiet, "quiet", false, "suppress info-level console output")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", os.Getenv("GITSTACK_LOG_FILE"), "also write full debug records to this rotating log file")

	root.Flags().BoolVar(&flags.dryRun, "dry-run", false, "plan and print without mutating any ref")
	root.Flags().BoolVar(&flags.pull, "pull", false, "fetch and fast-forward the base before rebasing")
	root.Flags().BoolVar(&flags.push, "push", false, "push the rebased stack with force-with-lease")
	root.Flags().BoolVar(&flags.noRebase, "no-rebase", false, "plan only, skip the rebase/backup/execute phases")
	root.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the confirmation prompt before a mutating rebase")
	root.Flags().StringVar(&flags.base, "base", "", "branch the stack is rooted on (defaults to onto)")
	root.Flags().StringVar(&flags.onto, "onto", "", "branch to rebase onto (defaults to --base, else the nearest protected ancestor)")
	root.Flags().StringVar(&flags.stack, "stack", "", "current|dependents|descendants|all (defaults to config)")
	root.Flags().StringVar(&flags.format, "format", "", "silent|brief|full|debug (defaults to config)")
	root.Flags().StringSliceVar(&flags.protect, "protect", nil, "additional protected-branch glob pattern (repeatable, persisted to repo config)")

	root.AddCommand(newConfigCmd())
	root.AddCommand(newBackupCmd())
	return root
}

func buildEnv(cmd *cobra.Command, flags *rootFlags) (*env, error) {
	repo, err := vcs.OpenGitRepo(".")
	if err != nil {
		return nil, err
	}
	gitDir, err := repo.GitDir()
	if err != nil {
		return nil, err
	}

	overrides := config.Overrides{ProtectedBranches: nil}
	if cmd.Flags().Changed("stack") {
		mode := config.StackMode(flags.stack)
		overrides.Stack = &mode
	}
	if cmd.Flags().Changed("format") {
		f := config.Format(flags.format)
		overrides.Format = &f
	}
	cfg, err := config.Load(gitDir, overrides)
	if err != nil {
		return nil, err
	}

	for _, pattern := range flags.protect {
		if err := config.AddProtectedBranch(gitDir, pattern); err != nil {
			return nil, err
		}
		cfg.ProtectedBranches = append(cfg.ProtectedBranches, pattern)
	}

	log := logging.New(logging.Options{Debug: flags.verbose, Quiet: flags.quiet, FilePath: flags.logFile})
	return &env{repo: repo, cfg: cfg, log: log}, nil
}

// Main is the thin entrypoint cmd/gitstack/main.go calls: build the root
// command, execute it, and translate the returned error into a process
// exit code via errors.ExitCodeFor.
func Main(version string, args []string) int {
	root := NewRootCmd(version)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gitstack:", err)
		return gserr.ExitCodeFor(err)
	}
	return 0
}

// out returns the writer subcommands should render to, honoring cobra's own redirection.
func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
