package cliapp

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"gitstack.dev/gitstack/internal/backup"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect and restore from the pre-rebase ref snapshot ring",
	}
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupPopCmd())
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots in the backup ring, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(e *env) error {
				entries, err := e.backupStack().List()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(out(cmd), "backup ring is empty")
					return nil
				}
				for i, entry := range entries {
					fmt.Fprintf(out(cmd), "%d: %d branch(es)\n", i, len(entry.Branches))
					for name, id := range entry.Branches {
						fmt.Fprintf(out(cmd), "   %s -> %s\n", name, id.String()[:12])
					}
				}
				return nil
			})
		},
	}
}

func newBackupPopCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "pop",
		Short: "Restore every branch in the most recent snapshot and drop it from the ring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(e *env) error {
				entry, ok, err := e.backupStack().Pop()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out(cmd), "backup ring is empty")
					return nil
				}

				if !yes {
					confirmed := false
					prompt := &survey.Confirm{
						Message: fmt.Sprintf("Restore %d branch(es) from the last backup?", len(entry.Branches)),
						Default: false,
					}
					if err := survey.AskOne(prompt, &confirmed); err != nil {
						return fmt.Errorf("canceled")
					}
					if !confirmed {
						fmt.Fprintln(out(cmd), "aborted: backup left popped but not restored")
						return nil
					}
				}

				for name, id := range entry.Branches {
					if err := e.repo.Branch(name, id); err != nil {
						return err
					}
					fmt.Fprintf(out(cmd), "restored %s -> %s\n", name, id.String()[:12])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the restore confirmation prompt")
	return cmd
}
