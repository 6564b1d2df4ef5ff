package cliapp

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"gitstack.dev/gitstack/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the repository's gitstack config",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigProtectCmd())
	cmd.AddCommand(newConfigDumpCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully merged config (defaults + user file + repo file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(e *env) error {
				enc := toml.NewEncoder(out(cmd))
				return enc.Encode(e.cfg)
			})
		},
	}
}

func newConfigProtectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "protect <pattern>",
		Short: "Add a glob pattern to the repository's protected-branches list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(e *env) error {
				gitDir, err := e.repo.GitDir()
				if err != nil {
					return err
				}
				if err := config.AddProtectedBranch(gitDir, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "protected: %s\n", args[0])
				return nil
			})
		},
	}
}

func newConfigDumpCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the merged config as TOML to a file, or '-' for stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(e *env) error {
				if outputPath == "" || outputPath == "-" {
					enc := toml.NewEncoder(out(cmd))
					return enc.Encode(e.cfg)
				}
				f, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				enc := toml.NewEncoder(f)
				return enc.Encode(e.cfg)
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "destination path, or '-' for stdout")
	return cmd
}
