package cliapp

import (
	"io"
	"os"

	"gitstack.dev/gitstack/internal/config"
	"gitstack.dev/gitstack/internal/orchestrator"
	"gitstack.dev/gitstack/internal/render"
)

// showResult is the state machine's Show phase: render every stack's tree
// at the configured format, print any failures, and note a taken backup.
// headBranch marks which node gets the "current" glyph; it is the name HEAD
// was on before Run started, not anything onto-specific.
func showResult(w io.Writer, result orchestrator.Result, format config.Format, headBranch string) {
	if format == config.FormatSilent {
		return
	}
	color := render.ColorEnabled(os.Stdout)
	for _, st := range result.Stacks {
		if st.Root == nil {
			continue
		}
		r := render.New(headBranch, color)
		r.Show(w, st.Root, format)
		render.ShowFailures(w, st.Failures, color)
	}
	if result.BackupTaken {
		render.ShowBackupNotice(w, backupNamespace, result.BackupBranches)
	}
}
