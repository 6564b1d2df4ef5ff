package cliapp

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"gitstack.dev/gitstack/internal/config"
	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/orchestrator"
	"gitstack.dev/gitstack/internal/render"
)

// rootFlags mirrors SPEC_FULL.md's flag set: rebase is implicit (the
// default verb) unless --no-rebase turns the run into Plan-only.
type rootFlags struct {
	verbose  bool
	quiet    bool
	logFile  string
	dryRun   bool
	pull     bool
	push     bool
	noRebase bool
	yes      bool
	base     string
	onto     string
	stack    string
	format   string
	protect  []string
}

func (f *rootFlags) orchestratorFlags() orchestrator.Flags {
	return orchestrator.Flags{
		Rebase: !f.noRebase,
		Pull:   f.pull,
		Push:   f.push,
		DryRun: f.dryRun,
		Base:   f.base,
		Onto:   f.onto,
		Stack:  config.StackMode(f.stack),
		Format: config.Format(f.format),
	}
}

func runDefault(cmd *cobra.Command, flags *rootFlags) error {
	return run(cmd, func(e *env) error {
		oFlags := flags.orchestratorFlags()
		if oFlags.Stack == "" {
			oFlags.Stack = e.cfg.Stack
		}
		if oFlags.Format == "" {
			oFlags.Format = e.cfg.Format
		}

		if oFlags.Rebase && !oFlags.DryRun && !flags.yes {
			confirmed, err := confirmRebase(e, oFlags)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(out(cmd), "aborted: rebase not confirmed")
				return nil
			}
		}

		state, err := orchestrator.Init(e.repo, e.repo, e.cfg, oFlags)
		if err != nil {
			return err
		}
		headBranch := ""
		if state.HeadBranch != nil {
			headBranch = state.HeadBranch.Name
		}
		result := orchestrator.Run(state, e.log)
		if result.Err != nil {
			return result.Err
		}
		showResult(out(cmd), result, oFlags.Format, headBranch)
		return failureErr(result)
	})
}

// confirmRebase previews the run in dry-run mode (reusing the orchestrator's
// own DryRun gating on every mutating call, rather than hand-rolling a
// separate preview path), renders the resulting plan, and asks for a single
// confirmation before the real, mutating run proceeds.
func confirmRebase(e *env, flags orchestrator.Flags) (bool, error) {
	preview := flags
	preview.DryRun = true

	state, err := orchestrator.Init(e.repo, e.repo, e.cfg, preview)
	if err != nil {
		return false, err
	}
	result := orchestrator.Run(state, e.log)
	if result.Err != nil {
		return false, result.Err
	}
	if !anyScript(result.Stacks) {
		return true, nil
	}

	headBranch := ""
	if state.HeadBranch != nil {
		headBranch = state.HeadBranch.Name
	}
	color := render.ColorEnabled(os.Stdout)
	for _, st := range result.Stacks {
		r := render.New(headBranch, color)
		r.Show(os.Stdout, st.Root, config.FormatFull)
	}

	confirmed := false
	prompt := &survey.Confirm{
		Message: "Rewrite the branches shown above?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, fmt.Errorf("canceled")
	}
	return confirmed, nil
}

func anyScript(stacks []*orchestrator.StackState) bool {
	for _, st := range stacks {
		if len(st.Script) > 0 {
			return true
		}
	}
	return false
}

func failureErr(result orchestrator.Result) error {
	n := countFailures(result)
	if n == 0 {
		return nil
	}
	return gserr.Repof("%d branch(es) failed, see output above", n)
}

func countFailures(result orchestrator.Result) int {
	n := 0
	for _, st := range result.Stacks {
		n += len(st.Failures)
	}
	return n
}
