package cliapp_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/cliapp"
	"gitstack.dev/gitstack/internal/vcstest"
)

// chdir switches the test process's cwd into dir and restores it on
// cleanup; cliapp always opens the repo at ".", mirroring how an installed
// gitstack binary would be invoked from inside a worktree.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}

func TestRootCmd_TrivialRun_NoSubcommand(t *testing.T) {
	s := vcstest.New(t)
	chdir(t, s.Dir())

	root := cliapp.NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--base", "main", "--onto", "main", "--yes"})

	require.NoError(t, root.Execute())
}

func TestRootCmd_ConfigShow(t *testing.T) {
	s := vcstest.New(t)
	chdir(t, s.Dir())

	root := cliapp.NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"config", "show"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "protected-branches")
}

func TestRootCmd_ConfigProtect(t *testing.T) {
	s := vcstest.New(t)
	chdir(t, s.Dir())

	root := cliapp.NewRootCmd("test")
	root.SetArgs([]string{"config", "protect", "release/*"})
	require.NoError(t, root.Execute())

	root2 := cliapp.NewRootCmd("test")
	var buf bytes.Buffer
	root2.SetOut(&buf)
	root2.SetArgs([]string{"config", "show"})
	require.NoError(t, root2.Execute())
	require.Contains(t, buf.String(), "release/*")
}

func TestRootCmd_BackupListEmpty(t *testing.T) {
	s := vcstest.New(t)
	chdir(t, s.Dir())

	root := cliapp.NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"backup", "list"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "empty")
}

func TestMain_ExitCodeZeroOnSuccess(t *testing.T) {
	s := vcstest.New(t)
	chdir(t, s.Dir())

	code := cliapp.Main("test", []string{"config", "show"})
	require.Equal(t, 0, code)
}

func TestMain_ExitCodeNonZeroOnUsageError(t *testing.T) {
	s := vcstest.New(t)
	chdir(t, s.Dir())

	code := cliapp.Main("test", []string{"--onto", "does-not-exist", "--yes"})
	require.Equal(t, 2, code)
}
