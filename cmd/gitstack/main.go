package main

import (
	"os"

	"gitstack.dev/gitstack/internal/cliapp"
)

// version is set at build time via -ldflags, following the teacher's
// cmd/stackit/main.go convention.
var version = "dev"

func main() {
	os.Exit(cliapp.Main(version, os.Args[1:]))
}
