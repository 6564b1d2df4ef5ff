// Package config loads the gitstack TOML document, merging (lowest to
// highest precedence) built-in defaults, a user-level file, a repository-
// level file, and CLI overrides, using github.com/BurntSushi/toml.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	gserr "gitstack.dev/gitstack/internal/errors"
)

// StackMode selects which branches a run considers, mirroring `--stack`.
type StackMode string

const (
	StackCurrent    StackMode = "current"
	StackDependents StackMode = "dependents"
	StackDescendants StackMode = "descendants"
	StackAll        StackMode = "all"
)

// Format selects how much the Show phase renders, mirroring `--format`.
type Format string

const (
	FormatSilent Format = "silent"
	FormatBrief  Format = "brief"
	FormatFull   Format = "full"
	FormatDebug  Format = "debug"
)

// Config is the fully merged, validated document the orchestrator runs with.
type Config struct {
	ProtectedBranches []string `toml:"protected-branches"`
	Stack             StackMode `toml:"stack"`
	PushRemote        string   `toml:"push-remote"`
	PullRemote        string   `toml:"pull-remote"`
	Format            Format   `toml:"format"`
	ShowStacked       bool     `toml:"show-stacked"`
	Capacity          int      `toml:"capacity"`
}

// Defaults returns the built-in baseline, the lowest-precedence layer.
func Defaults() Config {
	return Config{
		ProtectedBranches: []string{"main", "master"},
		Stack:             StackCurrent,
		PushRemote:        "origin",
		PullRemote:        "origin",
		Format:            FormatBrief,
		ShowStacked:       true,
		Capacity:          10,
	}
}

// overlay holds the same fields as Config, but every field is a pointer so a
// partially-specified TOML file can be merged without clobbering unset keys
// with zero values.
type overlay struct {
	ProtectedBranches []string   `toml:"protected-branches"`
	Stack             *StackMode `toml:"stack"`
	PushRemote        *string    `toml:"push-remote"`
	PullRemote        *string    `toml:"pull-remote"`
	Format            *Format    `toml:"format"`
	ShowStacked       *bool      `toml:"show-stacked"`
	Capacity          *int       `toml:"capacity"`
}

func (c *Config) apply(o overlay) {
	if o.ProtectedBranches != nil {
		c.ProtectedBranches = o.ProtectedBranches
	}
	if o.Stack != nil {
		c.Stack = *o.Stack
	}
	if o.PushRemote != nil {
		c.PushRemote = *o.PushRemote
	}
	if o.PullRemote != nil {
		c.PullRemote = *o.PullRemote
	}
	if o.Format != nil {
		c.Format = *o.Format
	}
	if o.ShowStacked != nil {
		c.ShowStacked = *o.ShowStacked
	}
	if o.Capacity != nil {
		c.Capacity = *o.Capacity
	}
}

func loadOverlay(path string) (overlay, bool, error) {
	var o overlay
	if _, err := os.Stat(path); err != nil {
		return o, false, nil
	}
	if _, err := toml.DecodeFile(path, &o); err != nil {
		return o, false, gserr.Configf("failed to parse config %s: %w", path, err)
	}
	return o, true, nil
}

// UserConfigPath returns the user-level config file location, honoring $XDG_CONFIG_HOME.
func UserConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "gitstack", "config.toml")
}

// RepoConfigPath returns the repository-level config file location under gitDir (".git").
func RepoConfigPath(gitDir string) string {
	return filepath.Join(gitDir, "gitstack.toml")
}

// Overrides carries CLI-flag values; a nil field means "flag not passed".
type Overrides struct {
	ProtectedBranches []string
	Stack             *StackMode
	PushRemote        *string
	PullRemote        *string
	Format            *Format
	ShowStacked       *bool
	Capacity          *int
}

// Load merges defaults -> user file -> repo file -> CLI overrides, in that
// precedence order, and validates the result.
func Load(gitDir string, cli Overrides) (Config, error) {
	cfg := Defaults()

	if userPath := UserConfigPath(); userPath != "" {
		o, _, err := loadOverlay(userPath)
		if err != nil {
			return Config{}, err
		}
		cfg.apply(o)
	}

	if gitDir != "" {
		o, _, err := loadOverlay(RepoConfigPath(gitDir))
		if err != nil {
			return Config{}, err
		}
		cfg.apply(o)
	}

	cfg.apply(overlay{
		ProtectedBranches: cli.ProtectedBranches,
		Stack:             cli.Stack,
		PushRemote:        cli.PushRemote,
		PullRemote:        cli.PullRemote,
		Format:            cli.Format,
		ShowStacked:       cli.ShowStacked,
		Capacity:          cli.Capacity,
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Stack {
	case StackCurrent, StackDependents, StackDescendants, StackAll:
	default:
		return gserr.Configf("invalid stack mode %q", c.Stack)
	}
	switch c.Format {
	case FormatSilent, FormatBrief, FormatFull, FormatDebug:
	default:
		return gserr.Configf("invalid format %q", c.Format)
	}
	if c.Capacity <= 0 {
		return gserr.Configf("capacity must be positive, got %d", c.Capacity)
	}
	return nil
}

// WriteRepoConfig writes every field of cfg to gitDir's config file. It does
// not separate repository-local settings from values that came from the
// defaults or the user file: all of them are written.
func WriteRepoConfig(gitDir string, cfg Config) error {
	path := RepoConfigPath(gitDir)
	f, err := os.Create(path)
	if err != nil {
		return gserr.Configf("failed to write config %s: %w", path, err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return gserr.Configf("failed to encode config %s: %w", path, err)
	}
	return nil
}

// AddProtectedBranch appends pattern to the repository-local config's
// protected-branches list and rewrites it, implementing `gitstack config
// protect <pattern>`.
func AddProtectedBranch(gitDir, pattern string) error {
	o, _, err := loadOverlay(RepoConfigPath(gitDir))
	if err != nil {
		return err
	}
	cfg := Defaults()
	cfg.apply(o)
	for _, existing := range cfg.ProtectedBranches {
		if existing == pattern {
			return nil
		}
	}
	cfg.ProtectedBranches = append(cfg.ProtectedBranches, pattern)
	return WriteRepoConfig(gitDir, cfg)
}
