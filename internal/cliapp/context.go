package cliapp

import (
	"context"

	gserr "gitstack.dev/gitstack/internal/errors"
)

func contextWithEnv(ctx context.Context, e *env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

// run mirrors the teacher's helpers.Run: pull the env built by
// PersistentPreRunE out of the command's context and hand it to fn, so
// every subcommand's RunE reads as a one-liner.
func run(cmd interface{ Context() context.Context }, fn func(*env) error) error {
	e, ok := cmd.Context().Value(envKey{}).(*env)
	if !ok || e == nil {
		return gserr.Repof("cliapp: command ran without an initialized environment")
	}
	return fn(e)
}
