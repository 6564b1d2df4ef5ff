// Package render draws the post-run stack tree for the orchestrator's Show
// phase. It is an external collaborator to the core engine (§1): it reads
// an annotated graph.Node tree read-only and never mutates the repo.
// Styling follows the teacher's internal/tui/colors.go palette via
// lipgloss; color is suppressed when NO_COLOR is set or stdout is not a
// terminal, detected with github.com/mattn/go-isatty.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"gitstack.dev/gitstack/internal/config"
	"gitstack.dev/gitstack/internal/graph"
	"gitstack.dev/gitstack/internal/vcs"
)

var (
	styleCurrent   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	styleBranch    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleProtected = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleDelete    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleFixup     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDim       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ColorEnabled reports whether w should receive ANSI styling: NO_COLOR
// overrides everything, otherwise w must be a real terminal.
func ColorEnabled(w *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())
}

// Renderer draws a graph.Node tree at one of the four show formats.
type Renderer struct {
	headBranch string
	color      bool
}

// New builds a Renderer. color is typically render.ColorEnabled(os.Stdout).
func New(headBranch string, color bool) *Renderer {
	return &Renderer{headBranch: headBranch, color: color}
}

// Show writes root to w at the given format. Silent writes nothing.
func (r *Renderer) Show(w io.Writer, root *graph.Node, format config.Format) {
	switch format {
	case config.FormatSilent:
		return
	case config.FormatFull, config.FormatDebug:
		graph.MarkCollapsible(root)
	default:
		graph.Delinearize(root)
	}
	r.writeNode(w, root, 0, format)
}

func (r *Renderer) writeNode(w io.Writer, n *graph.Node, depth int, format config.Format) {
	if n.Collapsed && len(n.Branches) == 0 && format != config.FormatDebug {
		for _, child := range n.Children() {
			r.writeNode(w, child, depth, format)
		}
		return
	}

	prefix := strings.Repeat("│ ", depth)
	symbol := "◯"
	isCurrent := r.headBranch != "" && hasBranch(n, r.headBranch)
	if isCurrent {
		symbol = "◉"
	}

	line := prefix + symbol + " " + r.label(n, isCurrent, format)
	fmt.Fprintln(w, line)

	if format == config.FormatFull || format == config.FormatDebug {
		fmt.Fprintln(w, prefix+"│  "+r.style(styleDim, n.LocalCommit.ID.String()[:12]+" "+n.LocalCommit.SummaryString()))
	}

	for _, child := range n.Children() {
		r.writeNode(w, child, depth+1, format)
	}
}

func (r *Renderer) label(n *graph.Node, isCurrent bool, format config.Format) string {
	names := make([]string, len(n.Branches))
	for i, b := range n.Branches {
		names[i] = b.Name
	}
	if len(names) == 0 {
		return r.style(styleDim, n.LocalCommit.ID.String()[:8])
	}
	joined := strings.Join(names, ", ")

	var style lipgloss.Style
	switch {
	case isCurrent:
		style = styleCurrent
	case n.Action.IsProtected():
		style = styleProtected
	case n.Action.IsDelete():
		style = styleDelete
	case n.Action == graph.Fixup:
		style = styleFixup
	default:
		style = styleBranch
	}
	out := r.style(style, joined)

	if format == config.FormatDebug {
		out += " " + r.style(styleDim, fmt.Sprintf("[%s pushable=%v]", n.Action, n.Pushable))
	}
	return out
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func hasBranch(n *graph.Node, name string) bool {
	for _, b := range n.Branches {
		if b.Name == name {
			return true
		}
	}
	return false
}

// ShowFailures prints any Executor failures after the tree, in the brief
// style every format above Silent shares.
func ShowFailures(w io.Writer, failures []graph.Failure, color bool) {
	style := styleDelete
	for _, f := range failures {
		reason := "blocked"
		if f.Err != nil {
			reason = f.Err.Error()
			if f.Blocked {
				reason = "blocked: " + reason
			}
		}
		line := fmt.Sprintf("✗ %s: %s", f.Branch, reason)
		if color {
			line = style.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

// ShowBackupNotice prints a one-line notice of how many branches were
// backed up and under which ref namespace, once a backup is actually taken.
func ShowBackupNotice(w io.Writer, namespace string, branches map[string]vcs.CommitID) {
	fmt.Fprintf(w, "backed up %d branch(es) to refs/branch-stash/%s\n", len(branches), namespace)
}
