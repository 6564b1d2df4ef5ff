package graph

import "gitstack.dev/gitstack/internal/vcs"

// CommandKind identifies one low-level VCS operation in a compiled Script.
type CommandKind int

const (
	// SwitchCommit repositions HEAD (detached) at the commit currently
	// resolved for OriginalID -- the commit that replaced it, or OriginalID
	// itself if nothing has rewritten it yet.
	SwitchCommit CommandKind = iota
	// CherryPick replays OriginalID's diff onto the current HEAD, producing a new commit.
	CherryPick
	// Squash folds OriginalID's diff into the current HEAD commit (a fixup/squash target).
	Squash
	// RegisterBranch points Branch at the commit currently resolved for OriginalID.
	RegisterBranch
	// DeleteBranchCmd removes a local branch whose commit was dropped.
	DeleteBranchCmd
	// SwitchBranchCmd leaves the worktree on a real branch ref (rather than
	// detached HEAD) once the script has finished running, resolved against OriginalID.
	SwitchBranchCmd
)

// Command is one step of a compiled Script. OriginalID always names a
// commit from the ORIGINAL graph (content-addressed, so it never changes
// underfoot); the Executor resolves it to wherever that commit's content
// currently lives via a running original->current map built up as it executes.
type Command struct {
	Kind       CommandKind
	OriginalID vcs.CommitID
	Branch     string
}

// ToScript performs a pre-order walk of the annotated graph and compiles an
// ordered Script of low-level VCS operations (§4.7). headBranch/headOriginal
// identify the branch (if any, empty if detached) the repo was on before
// planning began, so the script can leave the user there afterward instead
// of on a detached HEAD. Per §4.7 ("branches that already point at the
// correct commit generate no commands"), a Pick node whose parent hasn't
// actually moved emits nothing and is skipped; the trailing return-to-branch
// command is only appended when the walk produced at least one real command
// -- an all-Protected tree (nothing to rebase) compiles to a genuinely empty
// script, not a no-op SwitchBranch.
func ToScript(root *Node, headBranch string, headOriginal vcs.CommitID) []Command {
	var script []Command
	compile(&script, root, vcs.CommitID{}, false)
	if headBranch != "" && len(script) > 0 {
		script = append(script, Command{Kind: SwitchBranchCmd, OriginalID: headOriginal, Branch: headBranch})
	}
	return script
}

// compile walks node, returning the commit id children should treat as their
// rebase parent. moved reports whether node's own position already differs
// from its original parent (forced by an ancestor rewrite/drop); it is
// threaded down so an unchanged tail of Pick nodes compiles to no commands
// at all, matching the idempotence property (§8 invariant 5).
func compile(script *[]Command, node *Node, parentKey vcs.CommitID, moved bool) vcs.CommitID {
	switch node.Action {
	case Delete:
		for _, b := range node.Branches {
			*script = append(*script, Command{Kind: DeleteBranchCmd, Branch: b.Name})
		}
		for _, child := range node.children {
			compile(script, child, parentKey, true)
		}
		return parentKey

	case Protected:
		// The anchor never moves; treat it purely as a positional reference
		// for its children, emitting no command of its own.
		thisKey := node.LocalCommit.ID
		for _, child := range node.children {
			compile(script, child, thisKey, false)
		}
		return thisKey

	case Fixup:
		*script = append(*script, Command{Kind: SwitchCommit, OriginalID: parentKey})
		*script = append(*script, Command{Kind: Squash, OriginalID: node.LocalCommit.ID})
		appendRegisterCommands(script, node)
		thisKey := node.LocalCommit.ID
		for _, child := range node.children {
			compile(script, child, thisKey, true)
		}
		return thisKey

	default: // Pick
		unchanged := !moved && node.LocalCommit.FirstParent() == parentKey
		thisKey := node.LocalCommit.ID
		if unchanged {
			for _, child := range node.children {
				compile(script, child, thisKey, false)
			}
			return thisKey
		}
		*script = append(*script, Command{Kind: SwitchCommit, OriginalID: parentKey})
		*script = append(*script, Command{Kind: CherryPick, OriginalID: node.LocalCommit.ID})
		appendRegisterCommands(script, node)
		for _, child := range node.children {
			compile(script, child, thisKey, true)
		}
		return thisKey
	}
}

func appendRegisterCommands(script *[]Command, node *Node) {
	for _, b := range node.Branches {
		*script = append(*script, Command{Kind: RegisterBranch, OriginalID: node.LocalCommit.ID, Branch: b.Name})
	}
}
