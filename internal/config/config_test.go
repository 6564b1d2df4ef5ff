package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/config"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := config.Load("", config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, config.Defaults(), cfg)
}

func TestLoad_RepoFileOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	gitDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "gitstack.toml"), []byte(`
push-remote = "upstream"
capacity = 3
protected-branches = ["main", "release/*"]
`), 0o644))

	cfg, err := config.Load(gitDir, config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, "upstream", cfg.PushRemote)
	require.Equal(t, 3, cfg.Capacity)
	require.Equal(t, []string{"main", "release/*"}, cfg.ProtectedBranches)
	require.Equal(t, config.Defaults().PullRemote, cfg.PullRemote, "unset keys keep the default")
}

func TestLoad_CLIOverridesBeatFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	gitDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "gitstack.toml"), []byte(`push-remote = "upstream"`), 0o644))

	cliRemote := "fork"
	cfg, err := config.Load(gitDir, config.Overrides{PushRemote: &cliRemote})
	require.NoError(t, err)
	require.Equal(t, "fork", cfg.PushRemote)
}

func TestLoad_RejectsInvalidStackMode(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	gitDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "gitstack.toml"), []byte(`stack = "bogus"`), 0o644))

	_, err := config.Load(gitDir, config.Overrides{})
	require.Error(t, err)
}

func TestWriteRepoConfig_RoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	gitDir := t.TempDir()

	cfg := config.Defaults()
	cfg.PushRemote = "upstream"
	cfg.Capacity = 7
	require.NoError(t, config.WriteRepoConfig(gitDir, cfg))

	loaded, err := config.Load(gitDir, config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, "upstream", loaded.PushRemote)
	require.Equal(t, 7, loaded.Capacity)
}

func TestAddProtectedBranch_AppendsAndDeduplicates(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	gitDir := t.TempDir()

	require.NoError(t, config.AddProtectedBranch(gitDir, "release/*"))
	require.NoError(t, config.AddProtectedBranch(gitDir, "release/*"))

	cfg, err := config.Load(gitDir, config.Overrides{})
	require.NoError(t, err)
	require.Contains(t, cfg.ProtectedBranches, "release/*")
	count := 0
	for _, p := range cfg.ProtectedBranches {
		if p == "release/*" {
			count++
		}
	}
	require.Equal(t, 1, count, "repeated protect calls must not duplicate the pattern")
}
